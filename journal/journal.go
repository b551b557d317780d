// Package journal keeps a sqlite history of campaign runs.
//
// The journal is observational: nothing reads it back to decide what to
// dispatch. The ledger file stays the only record of which contacts are done.
package journal

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/callsheet/db"
	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/internal/util"
)

// DefaultListLimit is how many runs ListRuns returns when limit <= 0
const DefaultListLimit = 20

// Run is one row of the runs table
type Run struct {
	ID         string     `json:"id"`
	LedgerPath string     `json:"ledger_path"`
	Mode       string     `json:"mode"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Outcome    string     `json:"outcome,omitempty"`
	Dispatched int        `json:"dispatched"`
	Completed  int        `json:"completed"`
	Failures   int        `json:"failures"`
	Mismatches int        `json:"mismatches"`

	// Ledger totals when the run finished
	LedgerTotal     *int `json:"ledger_total,omitempty"`
	LedgerRemaining *int `json:"ledger_remaining,omitempty"`
}

// Finished reports whether the run recorded its end
func (r Run) Finished() bool { return r.FinishedAt != nil }

// Event is one row of the run_events table
type Event struct {
	ID      int64     `json:"id"`
	RunID   string    `json:"run_id"`
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Contact string    `json:"contact,omitempty"`
	Index   *int      `json:"row_index,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// Store reads and writes the journal tables
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Open opens (creating if needed) the journal database at path
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	sqlDB, err := db.OpenWithMigrations(path, log.Named("db"))
	if err != nil {
		return nil, errors.WithHint(err, "set journal.enabled = false to run without a journal")
	}
	return NewStore(sqlDB, log), nil
}

// NewStore wraps an already migrated database
func NewStore(sqlDB *sql.DB, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{db: sqlDB, logger: log.Named("journal")}
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun inserts a new run
func (s *Store) StartRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, ledger_path, mode, started_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.LedgerPath, r.Mode, r.StartedAt.UTC())
	if err != nil {
		return errors.Wrapf(err, "insert run %s", r.ID)
	}
	return nil
}

// FinishRun records the end of a run and its counters
func (s *Store) FinishRun(ctx context.Context, r Run) error {
	finished := time.Now().UTC()
	if r.FinishedAt != nil {
		finished = r.FinishedAt.UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, outcome = ?, dispatched = ?, completed = ?, failures = ?,
		        mismatches = ?, ledger_total = ?, ledger_remaining = ?
		 WHERE id = ?`,
		finished, r.Outcome, r.Dispatched, r.Completed, r.Failures,
		r.Mismatches, nullInt(r.LedgerTotal), nullInt(r.LedgerRemaining), r.ID)
	if err != nil {
		return errors.Wrapf(err, "finish run %s", r.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("run %s not in journal", r.ID)
	}
	return nil
}

// AppendEvent adds an event to a run
func (s *Store) AppendEvent(ctx context.Context, e Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_events (run_id, at, kind, contact, row_index, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.At.UTC(), e.Kind, nullString(e.Contact), nullInt(e.Index), nullString(e.Detail))
	if err != nil {
		return errors.Wrapf(err, "insert %s event for run %s", e.Kind, e.RunID)
	}
	return nil
}

const runColumns = `id, ledger_path, mode, started_at, finished_at, outcome, dispatched, completed,
	failures, mismatches, ledger_total, ledger_remaining`

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, errors.Wrap(rows.Err(), "list runs")
}

// GetRun finds a run by its ID or an unambiguous ID prefix
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return Run{}, errors.NewInvalidRequestError("run id cannot be empty")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY started_at DESC LIMIT 2`,
		idOrPrefix, idOrPrefix+"%")
	if err != nil {
		return Run{}, errors.Wrapf(err, "get run %s", idOrPrefix)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, errors.Wrapf(err, "get run %s", idOrPrefix)
	}

	switch len(found) {
	case 0:
		return Run{}, errors.WithHint(
			errors.NewNotFoundError("no run %s in journal", idOrPrefix),
			"list recent runs with 'callsheet history'")
	case 1:
		return found[0], nil
	}
	for _, r := range found {
		if r.ID == idOrPrefix {
			return r, nil
		}
	}
	return Run{}, errors.NewInvalidRequestError("run prefix %s is ambiguous", idOrPrefix)
}

// Events returns a run's events in the order they were recorded
func (s *Store) Events(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, at, kind, contact, row_index, detail FROM run_events WHERE run_id = ? ORDER BY id`,
		runID)
	if err != nil {
		return nil, errors.Wrapf(err, "events of run %s", runID)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e       Event
			contact sql.NullString
			index   sql.NullInt64
			detail  sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.At, &e.Kind, &contact, &index, &detail); err != nil {
			return nil, errors.Wrapf(err, "scan event of run %s", runID)
		}
		e.Contact = contact.String
		e.Detail = detail.String
		e.Index = util.PtrIf(int(index.Int64), index.Valid)
		events = append(events, e)
	}
	return events, errors.Wrapf(rows.Err(), "events of run %s", runID)
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		r         Run
		finished  sql.NullTime
		outcome   sql.NullString
		total     sql.NullInt64
		remaining sql.NullInt64
	)
	err := rows.Scan(&r.ID, &r.LedgerPath, &r.Mode, &r.StartedAt, &finished, &outcome,
		&r.Dispatched, &r.Completed, &r.Failures, &r.Mismatches, &total, &remaining)
	if err != nil {
		return Run{}, errors.Wrap(err, "scan run")
	}
	r.FinishedAt = util.PtrIf(finished.Time, finished.Valid)
	r.Outcome = outcome.String
	r.LedgerTotal = util.PtrIf(int(total.Int64), total.Valid)
	r.LedgerRemaining = util.PtrIf(int(remaining.Int64), remaining.Valid)
	return r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
