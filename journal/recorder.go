package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/callsheet/campaign"
	"github.com/teranos/callsheet/internal/util"
	"github.com/teranos/callsheet/logger"
)

// DefaultWriteTimeout bounds a single journal write
const DefaultWriteTimeout = 2 * time.Second

// Recorder writes campaign events to the journal. A failed write is logged
// and the run carries on.
type Recorder struct {
	store   *Store
	logger  *zap.SugaredLogger
	timeout time.Duration

	mu       sync.Mutex
	failures int
}

// NewRecorder creates a Recorder writing to store
func NewRecorder(store *Store, log *zap.SugaredLogger) *Recorder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Recorder{
		store:   store,
		logger:  log.Named("journal"),
		timeout: DefaultWriteTimeout,
	}
}

// Failures returns how many journal writes failed
func (r *Recorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// Observe implements campaign.Observer
func (r *Recorder) Observe(e campaign.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if e.Kind == campaign.EventRunStarted {
		err := r.store.StartRun(ctx, Run{
			ID:         e.RunID,
			LedgerPath: e.Ledger,
			Mode:       string(e.Mode),
			StartedAt:  e.At,
		})
		if err != nil {
			r.failed(e, err)
			return
		}
	}

	if err := r.store.AppendEvent(ctx, eventRecord(e)); err != nil {
		r.failed(e, err)
		return
	}

	if e.Kind == campaign.EventRunFinished && e.Result != nil {
		res := e.Result
		err := r.store.FinishRun(ctx, Run{
			ID:              e.RunID,
			FinishedAt:      util.Ptr(e.At),
			Outcome:         string(res.Outcome),
			Dispatched:      res.Dispatched,
			Completed:       res.Completed,
			Failures:        res.Failures,
			Mismatches:      res.Mismatches,
			LedgerTotal:     util.Ptr(res.Ledger.Total),
			LedgerRemaining: util.Ptr(res.Ledger.Remaining),
		})
		if err != nil {
			r.failed(e, err)
		}
	}
}

func (r *Recorder) failed(e campaign.Event, err error) {
	r.mu.Lock()
	r.failures++
	n := r.failures
	r.mu.Unlock()

	r.logger.Warnw("Journal write failed",
		logger.FieldRunID, e.RunID,
		"event", string(e.Kind),
		logger.FieldFailures, n,
		logger.FieldError, err.Error(),
	)
}

func eventRecord(e campaign.Event) Event {
	rec := Event{
		RunID:   e.RunID,
		At:      e.At,
		Kind:    string(e.Kind),
		Contact: e.Contact,
		Detail:  detail(e),
	}
	if e.Index >= 0 {
		idx := e.Index
		rec.Index = &idx
	}
	return rec
}

func detail(e campaign.Event) string {
	switch e.Kind {
	case campaign.EventRunStarted:
		return fmt.Sprintf("total=%d complete=%d remaining=%d",
			e.Summary.Total, e.Summary.Complete, e.Summary.Remaining)
	case campaign.EventMismatch:
		return fmt.Sprintf("expected %q, observed %q (attempt %d)", e.Expected, e.Observed, e.Attempt)
	case campaign.EventDriverFailure:
		if e.Cooldown > 0 {
			return fmt.Sprintf("%v (cooldown %s)", e.Err, e.Cooldown)
		}
		return fmt.Sprint(e.Err)
	case campaign.EventPersistFailure:
		return fmt.Sprint(e.Err)
	case campaign.EventRunFinished:
		if e.Result != nil {
			d := fmt.Sprintf("outcome=%s dispatched=%d completed=%d", e.Result.Outcome, e.Result.Dispatched, e.Result.Completed)
			if e.Err != nil {
				d += fmt.Sprintf(" error=%v", e.Err)
			}
			return d
		}
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}
