// Package ledger is the durable campaign state store: an ordered CSV list of
// contacts, each PENDING or COMPLETE, rewritten in full after every change.
//
// File format, one contact per row, no header:
//
//	raw number, status marker, passthrough fields...
//
// A row whose first field is blank is dropped on load. The status field
// counts as complete when it equals the configured marker, ignoring case and
// surrounding whitespace. Row order is the resume order and is never changed.
//
// Only one process may work on a ledger file at a time; nothing locks it.
package ledger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/internal/fileutil"
	"github.com/teranos/callsheet/internal/tabular"
	"github.com/teranos/callsheet/logger"
	"github.com/teranos/callsheet/phone"
)

// Status is the completion state of a contact
type Status int

const (
	Pending Status = iota
	Complete
)

func (s Status) String() string {
	if s == Complete {
		return "COMPLETE"
	}
	return "PENDING"
}

// DefaultMarker is written to the status field of completed contacts
const DefaultMarker = "called"

// Contact is one ledger row
type Contact struct {
	Raw    string    // trimmed phone number exactly as supplied
	Key    phone.Key // digits-only key, empty when Raw has no digits
	Status Status

	note        string   // status field text as loaded
	hasNote     bool     // row had a status field
	passthrough []string // fields after the status field
}

// HasKey reports whether the contact normalized to a usable key
func (c Contact) HasKey() bool { return c.Key != "" }

// Passthrough returns the fields after the status field
func (c Contact) Passthrough() []string {
	return append([]string(nil), c.passthrough...)
}

// Writer replaces the file at path with data
type Writer func(path string, data []byte) error

// Options configures a Ledger
type Options struct {
	Marker  string // default DefaultMarker
	Backups int    // rotating backups kept before each rewrite

	// BeforeWrite runs right before the file is replaced, e.g. to let a
	// Watcher know the next change is ours.
	BeforeWrite func()

	// Write replaces the file; defaults to an atomic temp-file rename
	Write Writer
}

// Ledger is an in-memory view of a ledger file. It is not safe for
// concurrent use; the campaign runner is its only mutator.
type Ledger struct {
	path     string
	opts     Options
	contacts []Contact
	logger   *zap.SugaredLogger
}

// Summary counts contacts by status
type Summary struct {
	Total     int `json:"total"`
	Complete  int `json:"complete"`
	Remaining int `json:"remaining"`
}

// Load reads the ledger at path. A missing or unreadable file is
// ErrSourceUnavailable and yields no ledger.
func Load(path string, opts Options, log *zap.SugaredLogger) (*Ledger, error) {
	if opts.Marker == "" {
		opts.Marker = DefaultMarker
	}
	if opts.Write == nil {
		opts.Write = func(path string, data []byte) error {
			return fileutil.WriteAtomic(path, data, fileutil.DefaultFilePermissions)
		}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	table, err := tabular.ReadFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ledger")
	}

	l := &Ledger{path: path, opts: opts, logger: log}
	l.contacts = parseRows(table.Rows, opts.Marker)

	dropped := len(table.Rows) - len(l.contacts)
	s := l.Summary()
	log.Infow("Ledger loaded",
		logger.FieldLedger, path,
		logger.FieldTotal, s.Total,
		logger.FieldComplete, s.Complete,
		logger.FieldRemaining, s.Remaining,
		"dropped", dropped)

	return l, nil
}

func parseRows(rows [][]string, marker string) []Contact {
	contacts := make([]Contact, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		raw := strings.TrimSpace(row[0])
		if raw == "" {
			continue
		}

		c := Contact{Raw: raw}
		c.Key, _ = phone.Normalize(raw)
		if len(row) > 1 {
			c.hasNote = true
			c.note = strings.TrimSpace(row[1])
			if isMarker(c.note, marker) {
				c.Status = Complete
			}
		}
		if len(row) > 2 {
			c.passthrough = append([]string(nil), row[2:]...)
		}
		contacts = append(contacts, c)
	}
	return contacts
}

func isMarker(s, marker string) bool {
	return strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(marker))
}

// Path returns the file the ledger was loaded from
func (l *Ledger) Path() string { return l.path }

// Marker returns the completion marker
func (l *Ledger) Marker() string { return l.opts.Marker }

// Len returns the number of contacts
func (l *Ledger) Len() int { return len(l.contacts) }

// At returns the contact at index i
func (l *Ledger) At(i int) Contact { return l.contacts[i] }

// Contacts returns a copy of all contacts in ledger order
func (l *Ledger) Contacts() []Contact {
	return append([]Contact(nil), l.contacts...)
}

// Summary counts contacts by status
func (l *Ledger) Summary() Summary {
	s := Summary{Total: len(l.contacts)}
	for _, c := range l.contacts {
		if c.Status == Complete {
			s.Complete++
		}
	}
	s.Remaining = s.Total - s.Complete
	return s
}

// FindNextPending returns the first pending index at or after start.
// It reports false when every remaining contact is complete.
func (l *Ledger) FindNextPending(start int) (int, bool) {
	if start < 0 {
		start = 0
	}
	for i := start; i < len(l.contacts); i++ {
		if l.contacts[i].Status == Pending {
			return i, true
		}
	}
	return 0, false
}

// MarkComplete marks every contact whose raw value equals identity (after
// trimming) as complete and rewrites the file. It returns how many contacts
// changed; contacts already complete count as matched but not changed, and
// no rewrite happens when nothing changed. No match is ErrNotFound.
func (l *Ledger) MarkComplete(identity string) (int, error) {
	identity = strings.TrimSpace(identity)

	var matched []int
	for i, c := range l.contacts {
		if c.Raw == identity {
			matched = append(matched, i)
		}
	}
	if len(matched) == 0 {
		return 0, errors.NewNotFoundError("contact %q not in ledger", identity)
	}
	return l.markIndices(matched)
}

// MarkCompleteAt marks the single contact at index i complete and rewrites
// the file. Repeated numbers are separate rows and complete independently.
func (l *Ledger) MarkCompleteAt(i int) error {
	if i < 0 || i >= len(l.contacts) {
		return errors.NewNotFoundError("row %d out of range (ledger has %d contacts)", i, len(l.contacts))
	}
	_, err := l.markIndices([]int{i})
	return err
}

// markIndices flips the given rows to complete and persists. On a failed
// persist the rows are flipped back so memory matches the file on disk.
func (l *Ledger) markIndices(indices []int) (int, error) {
	var changed []int
	for _, i := range indices {
		if l.contacts[i].Status != Complete {
			l.contacts[i].Status = Complete
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}

	if err := l.Persist(); err != nil {
		for _, i := range changed {
			l.contacts[i].Status = Pending
		}
		return 0, err
	}

	l.logger.Debugw("Contacts marked complete",
		logger.FieldLedger, l.path,
		logger.FieldRows, changed)
	return len(changed), nil
}

// Persist rewrites the whole ledger file. Failure is ErrPersistFailure and
// leaves the previous file intact.
func (l *Ledger) Persist() error {
	data, err := tabular.Encode(nil, l.rows())
	if err != nil {
		return errors.PersistFailure(err, "failed to encode ledger")
	}

	if err := fileutil.RotateBackups(l.path, l.opts.Backups); err != nil {
		// Losing a backup is not worth halting a run over
		l.logger.Warnw("Ledger backup failed",
			logger.FieldLedger, l.path,
			logger.FieldError, err)
	}

	if l.opts.BeforeWrite != nil {
		l.opts.BeforeWrite()
	}

	if err := l.opts.Write(l.path, data); err != nil {
		return errors.WithHint(
			errors.PersistFailure(err, "failed to write ledger "+l.path),
			"the ledger file still holds the last successful save; fix the cause and run again",
		)
	}
	return nil
}

// rows renders contacts back to CSV records, keeping passthrough fields
func (l *Ledger) rows() [][]string {
	rows := make([][]string, 0, len(l.contacts))
	for _, c := range l.contacts {
		row := []string{c.Raw}

		status := c.note
		if c.Status == Complete && !isMarker(c.note, l.opts.Marker) {
			status = l.opts.Marker
		}
		if c.Status == Pending && isMarker(c.note, l.opts.Marker) {
			status = ""
		}
		if c.hasNote || status != "" || len(c.passthrough) > 0 {
			row = append(row, status)
		}
		row = append(row, c.passthrough...)
		rows = append(rows, row)
	}
	return rows
}
