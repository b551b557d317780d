// Package campaign runs a contact campaign over a ledger.
//
// A Runner walks the pending contacts of a Store in order. For each one it
// hands the raw number to a Driver, waits for a verification input and marks
// the contact complete only when the feedback equals the dispatched value.
// Operator input arrives as Signal values on a channel; the runner is the
// only writer of the ledger.
package campaign

import (
	"context"
	"time"

	"github.com/teranos/callsheet/config"
	"github.com/teranos/callsheet/ledger"
)

// State is a runner state
type State int32

const (
	StateIdle State = iota
	StateAwaitingAction
	StateVerifying
	StateAdvancing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingAction:
		return "AWAITING_ACTION"
	case StateVerifying:
		return "VERIFYING"
	case StateAdvancing:
		return "ADVANCING"
	case StateDone:
		return "DONE"
	}
	return "UNKNOWN"
}

// Signal is an operator event posted by a listener
type Signal int

const (
	// Confirmed reports the operator finished the action for the current contact
	Confirmed Signal = iota + 1
	// AbortRequested asks the runner to stop before the next dispatch
	AbortRequested
)

func (s Signal) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case AbortRequested:
		return "abort"
	}
	return "unknown"
}

// Driver performs the external action for a contact and reads back whatever
// the outside world reports, for verification.
type Driver interface {
	// Dispatch fires the action for raw. An error is an action driver failure.
	Dispatch(ctx context.Context, raw string) error
	// CaptureFeedback returns the current verification input, such as the
	// clipboard contents.
	CaptureFeedback(ctx context.Context) (string, error)
}

// Store is the ledger as seen by the runner. *ledger.Ledger implements it.
type Store interface {
	Path() string
	Len() int
	At(i int) ledger.Contact
	FindNextPending(start int) (int, bool)
	MarkCompleteAt(i int) error
	Summary() ledger.Summary
}

// Continuer decides whether an automated run proceeds after its test batch
type Continuer interface {
	Continue(ctx context.Context, completed int) (bool, error)
}

// ContinuerFunc adapts a function to Continuer
type ContinuerFunc func(ctx context.Context, completed int) (bool, error)

// Continue calls f
func (f ContinuerFunc) Continue(ctx context.Context, completed int) (bool, error) {
	return f(ctx, completed)
}

// Mode selects how completions are confirmed
type Mode string

const (
	ModeConfirm Mode = config.ModeConfirm
	ModeAuto    Mode = config.ModeAuto
)

// Policy holds the knobs of a run. Delays, the test batch and mismatch
// retries only apply to automated runs; the cooldown follows every driver
// failure in both modes.
type Policy struct {
	Mode             Mode
	MaxActions       int // dispatches per run, 0 = unlimited
	TestBatch        int // completions before asking to continue, 0 = none
	StartDelay       time.Duration
	MinDelay         time.Duration
	MaxDelay         time.Duration
	Cooldown         time.Duration
	SettleDelay      time.Duration
	FailureThreshold int     // consecutive driver failures that halt the run, 0 = never
	MaxPerMinute     float64 // 0 = unlimited
	MismatchRetries  int
}

// PolicyFromConfig builds a Policy from the campaign section of the config
func PolicyFromConfig(c config.CampaignConfig) Policy {
	return Policy{
		Mode:             Mode(c.Mode),
		MaxActions:       c.MaxActions,
		TestBatch:        c.TestBatch,
		StartDelay:       c.StartDelay,
		MinDelay:         c.MinDelay,
		MaxDelay:         c.MaxDelay,
		Cooldown:         c.Cooldown,
		SettleDelay:      c.SettleDelay,
		FailureThreshold: c.FailureThreshold,
		MaxPerMinute:     c.MaxPerMinute,
		MismatchRetries:  c.MismatchRetries,
	}
}

// Automated reports whether the runner drives the action without waiting for the operator
func (p Policy) Automated() bool { return p.Mode == ModeAuto }

// Outcome is how a run ended
type Outcome string

const (
	OutcomeExhausted  Outcome = "exhausted"  // no pending contacts left
	OutcomeIncomplete Outcome = "incomplete" // end of the ledger reached, contacts skipped after driver failures still pending
	OutcomeLimit      Outcome = "limit"      // max_actions reached
	OutcomeAborted    Outcome = "aborted"    // operator stop, cancelled context, or declined continuation
	OutcomeFailed     Outcome = "failed"     // persist failure or systemic driver failure
)

// Result summarizes a finished run
type Result struct {
	RunID      string         `json:"run_id"`
	Outcome    Outcome        `json:"outcome"`
	Dispatched int            `json:"dispatched"`
	Completed  int            `json:"completed"`
	Mismatches int            `json:"mismatches"`
	Failures   int            `json:"failures"`
	Ledger     ledger.Summary `json:"ledger"`
}
