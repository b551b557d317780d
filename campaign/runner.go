package campaign

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/ledger"
	"github.com/teranos/callsheet/logger"
)

// Env supplies time and randomness to a Runner. Zero fields fall back to the
// real clock and a randomly seeded source.
type Env struct {
	Now   func() time.Time
	After func(time.Duration) <-chan time.Time
	Rand  *rand.Rand
}

func (e Env) withDefaults() Env {
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.After == nil {
		e.After = time.After
	}
	if e.Rand == nil {
		e.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	return e
}

// Options configures a Runner
type Options struct {
	Policy    Policy
	Observer  Observer
	Continuer Continuer // asked after the test batch; nil waits for a Confirmed signal instead
	RunID     string    // generated when empty
	Env       Env
}

// Runner is the campaign state machine. At most one contact is in flight at
// any time and the runner is the only goroutine touching the Store.
type Runner struct {
	store     Store
	driver    Driver
	signals   <-chan Signal
	policy    Policy
	observer  Observer
	continuer Continuer
	env       Env
	limiter   *rate.Limiter
	runID     string
	logger    *zap.SugaredLogger

	state atomic.Int32
}

// New creates a Runner over store. signals may be nil for automated runs
// that have no operator listener.
func New(store Store, driver Driver, signals <-chan Signal, opts Options, log *zap.SugaredLogger) (*Runner, error) {
	if store == nil || driver == nil {
		return nil, errors.NewInvalidRequestError("runner needs a store and a driver")
	}

	p := opts.Policy
	switch p.Mode {
	case ModeConfirm:
		if signals == nil {
			return nil, errors.NewInvalidRequestError("confirm mode needs an operator signal source")
		}
	case ModeAuto:
		if p.TestBatch > 0 && opts.Continuer == nil && signals == nil {
			return nil, errors.NewInvalidRequestError("a test batch needs a continuation prompt or an operator signal source")
		}
	default:
		return nil, errors.NewInvalidRequestError("unknown campaign mode %q", p.Mode)
	}

	if log == nil {
		log = zap.NewNop().Sugar()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	r := &Runner{
		store:     store,
		driver:    driver,
		signals:   signals,
		policy:    p,
		observer:  opts.Observer,
		continuer: opts.Continuer,
		env:       opts.Env.withDefaults(),
		runID:     runID,
		logger:    log.Named("campaign").With(logger.FieldRunID, runID),
	}
	if p.MaxPerMinute > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(p.MaxPerMinute/60.0), 1)
	}
	return r, nil
}

// RunID identifies this run in logs and the journal
func (r *Runner) RunID() string { return r.runID }

// State returns the current state. Safe to call from any goroutine.
func (r *Runner) State() State { return State(r.state.Load()) }

func (r *Runner) setState(s State) {
	if prev := State(r.state.Swap(int32(s))); prev != s {
		r.logger.Debugw("State changed", logger.FieldState, s.String())
	}
}

// Run processes pending contacts until none are left, the action cap is hit,
// the operator aborts, or a fatal error occurs. Aborting (a signal, a
// cancelled ctx, or a declined continuation) ends the run with OutcomeAborted
// and a nil error. Persisting is never interrupted, so every contact is
// either fully marked or still pending.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: r.runID}
	r.setState(StateIdle)

	summary := r.store.Summary()
	r.logger.Infow("Campaign starting",
		logger.FieldLedger, r.store.Path(),
		logger.FieldMode, string(r.policy.Mode),
		logger.FieldTotal, summary.Total,
		logger.FieldComplete, summary.Complete,
		logger.FieldRemaining, summary.Remaining)
	r.emit(Event{Kind: EventRunStarted, Index: -1, Summary: summary})

	err := r.loop(ctx, res)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrAborted):
		res.Outcome = OutcomeAborted
		err = nil
	default:
		res.Outcome = OutcomeFailed
	}

	r.setState(StateDone)
	res.Ledger = r.store.Summary()

	fields := []interface{}{
		"outcome", string(res.Outcome),
		"dispatched", res.Dispatched,
		logger.FieldComplete, res.Completed,
		"mismatches", res.Mismatches,
		"failures", res.Failures,
		logger.FieldRemaining, res.Ledger.Remaining,
	}
	if err != nil {
		r.logger.Errorw("Campaign halted", append(fields, logger.FieldError, err)...)
	} else {
		r.logger.Infow("Campaign finished", fields...)
	}
	r.emit(Event{Kind: EventRunFinished, Index: -1, Result: res, Err: err})
	return res, err
}

func (r *Runner) loop(ctx context.Context, res *Result) error {
	idx, ok := r.store.FindNextPending(0)
	if !ok {
		res.Outcome = OutcomeExhausted
		return nil
	}

	if r.policy.Automated() {
		if err := r.pause(ctx, r.policy.StartDelay); err != nil {
			return err
		}
	}

	consecutive := 0 // driver failures in a row
	attempt := 0     // dispatches of the contact at idx

	for ok {
		r.setState(StateAwaitingAction)
		if err := r.checkStop(ctx); err != nil {
			return err
		}
		if r.policy.MaxActions > 0 && res.Dispatched >= r.policy.MaxActions {
			r.logger.Infow("Action limit reached", "max_actions", r.policy.MaxActions)
			res.Outcome = OutcomeLimit
			return nil
		}
		if err := r.waitRate(ctx); err != nil {
			return err
		}

		contact := r.store.At(idx)
		attempt++
		res.Dispatched++

		observed, err := r.perform(ctx, idx, contact, attempt)
		if errors.Is(err, errors.ErrAborted) {
			return err
		}

		if err == nil && !matches(observed, contact.Raw) {
			res.Mismatches++
			r.setState(StateAwaitingAction)
			r.logger.Warnw("Verification mismatch",
				logger.FieldIndex, idx,
				logger.FieldExpected, strings.TrimSpace(contact.Raw),
				logger.FieldObserved, strings.TrimSpace(observed),
				logger.FieldAttempt, attempt)
			r.emit(Event{
				Kind:     EventMismatch,
				Index:    idx,
				Contact:  contact.Raw,
				Expected: strings.TrimSpace(contact.Raw),
				Observed: strings.TrimSpace(observed),
				Attempt:  attempt,
			})
			if !r.policy.Automated() || attempt <= r.policy.MismatchRetries {
				continue
			}
			err = errors.DriverFailure(
				errors.Mark(errors.Newf("feedback did not match %q after %d attempts", contact.Raw, attempt), errors.ErrVerificationMismatch),
				"verification kept failing")
		}

		if err != nil {
			res.Failures++
			consecutive++
			if halt := r.driverFailed(ctx, idx, contact, attempt, consecutive, err); halt != nil {
				return halt
			}
			idx, ok = r.store.FindNextPending(idx + 1)
			attempt = 0
			continue
		}

		consecutive = 0
		r.setState(StateAdvancing)
		if err := r.store.MarkCompleteAt(idx); err != nil {
			if !errors.IsPersistFailure(err) {
				err = errors.PersistFailure(err, "failed to mark contact complete")
			}
			r.emit(Event{Kind: EventPersistFailure, Index: idx, Contact: contact.Raw, Err: err})
			return err
		}
		res.Completed++
		r.logger.Infow("Contact complete",
			logger.FieldIndex, idx,
			logger.FieldContact, contact.Raw)
		r.emit(Event{Kind: EventCompleted, Index: idx, Contact: contact.Raw, Attempt: attempt})

		attempt = 0
		idx, ok = r.store.FindNextPending(idx + 1)
		if !ok || !r.policy.Automated() {
			continue
		}
		if r.policy.TestBatch > 0 && res.Completed == r.policy.TestBatch {
			if err := r.awaitContinuation(ctx, res.Completed); err != nil {
				return err
			}
		}
		if err := r.pause(ctx, r.jitter()); err != nil {
			return err
		}
	}

	// Contacts skipped after a driver failure are still pending
	if remaining := r.store.Summary().Remaining; remaining > 0 {
		r.logger.Warnw("Reached the end of the ledger with skipped contacts pending", logger.FieldRemaining, remaining)
		res.Outcome = OutcomeIncomplete
		return nil
	}
	res.Outcome = OutcomeExhausted
	return nil
}

// perform dispatches contact and returns the verification input
func (r *Runner) perform(ctx context.Context, idx int, c ledger.Contact, attempt int) (string, error) {
	r.logger.Infow("Dispatching contact",
		logger.FieldIndex, idx,
		logger.FieldContact, c.Raw,
		logger.FieldAttempt, attempt)
	r.emit(Event{Kind: EventDispatched, Index: idx, Contact: c.Raw, Attempt: attempt})

	if err := r.driver.Dispatch(ctx, c.Raw); err != nil {
		if ctx.Err() != nil {
			return "", errors.ErrAborted
		}
		return "", errors.DriverFailure(err, "dispatch failed")
	}

	if !r.policy.Automated() {
		if err := r.awaitConfirmation(ctx); err != nil {
			return "", err
		}
		r.emit(Event{Kind: EventConfirmed, Index: idx, Contact: c.Raw, Attempt: attempt})
	}

	r.setState(StateVerifying)
	if !r.policy.Automated() {
		if err := r.pause(ctx, r.policy.SettleDelay); err != nil {
			return "", err
		}
	}

	observed, err := r.driver.CaptureFeedback(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.ErrAborted
		}
		return "", errors.DriverFailure(err, "capture feedback failed")
	}
	return observed, nil
}

// driverFailed reports a failed action and returns a non-nil error when the
// run has to stop.
func (r *Runner) driverFailed(ctx context.Context, idx int, c ledger.Contact, attempt, consecutive int, err error) error {
	cooldown := r.policy.Cooldown
	r.logger.Warnw("Action driver failed",
		logger.FieldIndex, idx,
		logger.FieldContact, c.Raw,
		logger.FieldAttempt, attempt,
		logger.FieldFailures, consecutive,
		logger.FieldError, err)
	r.emit(Event{Kind: EventDriverFailure, Index: idx, Contact: c.Raw, Attempt: attempt, Cooldown: cooldown, Err: err})

	if t := r.policy.FailureThreshold; t > 0 && consecutive >= t {
		return errors.WithHint(
			errors.Mark(errors.Wrapf(err, "%d consecutive action driver failures", consecutive), errors.ErrSystemicDriverFailure),
			"the driver keeps failing; check the target application and the driver configuration before running again",
		)
	}
	return r.pause(ctx, cooldown)
}

func (r *Runner) awaitContinuation(ctx context.Context, completed int) error {
	r.logger.Infow("Test batch finished, waiting for the operator", logger.FieldComplete, completed)

	if r.continuer == nil {
		// Confirmations sent before the prompt do not count
		if err := r.checkStop(ctx); err != nil {
			return err
		}
	}
	r.emit(Event{Kind: EventAwaitingContinuation, Index: -1})

	if r.continuer == nil {
		return r.awaitConfirmation(ctx)
	}
	proceed, err := r.continuer.Continue(ctx, completed)
	if err != nil {
		if ctx.Err() != nil {
			return errors.ErrAborted
		}
		return errors.Wrap(err, "continuation prompt failed")
	}
	if !proceed {
		r.logger.Infow("Operator declined to continue after the test batch")
		return errors.ErrAborted
	}
	return nil
}

// awaitConfirmation blocks until the operator confirms or aborts
func (r *Runner) awaitConfirmation(ctx context.Context) error {
	for {
		if r.signals == nil {
			return errors.ErrAborted
		}
		select {
		case <-ctx.Done():
			return errors.ErrAborted
		case sig, ok := <-r.signals:
			if !ok {
				r.signals = nil
				r.logger.Warnw("Operator signal source closed")
				return errors.ErrAborted
			}
			switch sig {
			case Confirmed:
				return nil
			case AbortRequested:
				r.logger.Infow("Abort requested by operator")
				return errors.ErrAborted
			}
		}
	}
}

// checkStop drains pending signals before a dispatch. Stale confirmations
// are dropped; an abort or a cancelled ctx stops the run.
func (r *Runner) checkStop(ctx context.Context) error {
	if ctx.Err() != nil {
		return errors.ErrAborted
	}
	for r.signals != nil {
		select {
		case sig, ok := <-r.signals:
			if !ok {
				if err := r.signalsClosed(); err != nil {
					return err
				}
				continue
			}
			if sig == AbortRequested {
				r.logger.Infow("Abort requested by operator")
				return errors.ErrAborted
			}
		default:
			return nil
		}
	}
	if !r.policy.Automated() {
		return errors.ErrAborted
	}
	return nil
}

// pause waits for d. An abort signal or a cancelled ctx cuts it short.
func (r *Runner) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	r.logger.Debugw("Pausing", logger.FieldDelayMS, d.Milliseconds())

	timer := r.env.After(d)
	for {
		select {
		case <-ctx.Done():
			return errors.ErrAborted
		case <-timer:
			return nil
		case sig, ok := <-r.signals:
			if !ok {
				if err := r.signalsClosed(); err != nil {
					return err
				}
				continue
			}
			if sig == AbortRequested {
				r.logger.Infow("Abort requested by operator")
				return errors.ErrAborted
			}
		}
	}
}

// signalsClosed stops listening on a closed signal channel. Without a
// listener a confirm-mode run cannot go on.
func (r *Runner) signalsClosed() error {
	r.signals = nil
	if r.policy.Automated() {
		r.logger.Debugw("Operator signal source closed")
		return nil
	}
	r.logger.Warnw("Operator signal source closed")
	return errors.ErrAborted
}

func (r *Runner) waitRate(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	now := r.env.Now()
	reservation := r.limiter.ReserveN(now, 1)
	if err := r.pause(ctx, reservation.DelayFrom(now)); err != nil {
		reservation.CancelAt(now)
		return err
	}
	return nil
}

// jitter picks a delay in [MinDelay, MaxDelay]
func (r *Runner) jitter() time.Duration {
	lo, hi := r.policy.MinDelay, r.policy.MaxDelay
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.env.Rand.Int64N(int64(hi-lo)+1))
}

func (r *Runner) emit(e Event) {
	if r.observer == nil {
		return
	}
	e.At = r.env.Now()
	e.RunID = r.runID
	e.State = r.State()
	e.Mode = r.policy.Mode
	e.Ledger = r.store.Path()
	r.observer.Observe(e)
}

// matches compares feedback to the dispatched value, ignoring surrounding whitespace
func matches(observed, expected string) bool {
	return strings.TrimSpace(observed) == strings.TrimSpace(expected)
}
