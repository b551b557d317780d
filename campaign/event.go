package campaign

import (
	"time"

	"github.com/teranos/callsheet/ledger"
)

// EventKind names a step of a run
type EventKind string

const (
	EventRunStarted           EventKind = "run_started"
	EventDispatched           EventKind = "dispatched"
	EventConfirmed            EventKind = "confirmed"
	EventCompleted            EventKind = "completed"
	EventMismatch             EventKind = "mismatch"
	EventDriverFailure        EventKind = "driver_failure"
	EventPersistFailure       EventKind = "persist_failure"
	EventAwaitingContinuation EventKind = "awaiting_continuation"
	EventRunFinished          EventKind = "run_finished"
)

// Event narrates one step of a run. Which fields are set depends on Kind.
type Event struct {
	Kind    EventKind
	At      time.Time
	RunID   string
	State   State
	Mode    Mode
	Ledger  string
	Index   int // ledger row, -1 when no contact is involved
	Contact string

	Expected string
	Observed string
	Attempt  int
	Cooldown time.Duration
	Err      error

	Summary ledger.Summary // set on EventRunStarted
	Result  *Result        // set on EventRunFinished
}

// Observer receives run narration. Observe is called synchronously from the
// runner goroutine and must not block for long.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

// Observe calls f
func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans an event out to several observers in order
type Observers []Observer

// Observe forwards e to every non-nil observer
func (o Observers) Observe(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(e)
		}
	}
}
