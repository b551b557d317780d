package display

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/teranos/callsheet/campaign"
	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/sym"
)

// Narrator prints run events for an operator watching the terminal
type Narrator struct {
	w         io.Writer
	verbosity int

	info    *pterm.PrefixPrinter
	success *pterm.PrefixPrinter
	warning *pterm.PrefixPrinter
	failure *pterm.PrefixPrinter
	section *pterm.SectionPrinter
}

// NewNarrator creates a Narrator writing to w. At verbosity 0 only what the
// operator must act on is printed.
func NewNarrator(w io.Writer, verbosity int) *Narrator {
	return &Narrator{
		w:         w,
		verbosity: verbosity,
		info:      pterm.Info.WithWriter(w),
		success:   pterm.Success.WithWriter(w),
		warning:   pterm.Warning.WithWriter(w),
		failure:   pterm.Error.WithWriter(w),
		section:   pterm.DefaultSection.WithWriter(w),
	}
}

// Observe implements campaign.Observer
func (n *Narrator) Observe(e campaign.Event) {
	switch e.Kind {
	case campaign.EventRunStarted:
		n.section.Printfln("%s %s (%s mode)", sym.Run, e.Ledger, e.Mode)
		pterm.Fprintln(n.w, fmt.Sprintf("Total: %d | Complete: %d | Remaining: %s",
			e.Summary.Total, e.Summary.Complete, pterm.LightCyan(e.Summary.Remaining)))

	case campaign.EventDispatched:
		line := fmt.Sprintf("%s [row %d] %s", sym.Dispatch, e.Index+1, pterm.Bold.Sprint(e.Contact))
		if e.Attempt > 1 {
			line += pterm.Gray(fmt.Sprintf(" (attempt %d)", e.Attempt))
		}
		if e.Mode == campaign.ModeConfirm {
			line += pterm.Gray("  enter: done, q: stop")
		}
		pterm.Fprintln(n.w, line)

	case campaign.EventConfirmed:
		if n.verbosity >= 1 {
			pterm.Fprintln(n.w, pterm.Gray("  confirmed, checking feedback"))
		}

	case campaign.EventCompleted:
		pterm.Fprintln(n.w, fmt.Sprintf("%s %s marked", pterm.Green(sym.Verified), e.Contact))

	case campaign.EventMismatch:
		n.warning.Printfln("%s expected %q, got %q. Try again.", sym.Mismatch, e.Expected, e.Observed)

	case campaign.EventDriverFailure:
		msg := fmt.Sprintf("%s %s: %v", sym.Failure, e.Contact, e.Err)
		if e.Cooldown > 0 {
			msg += fmt.Sprintf(" (cooling down %s)", e.Cooldown)
		}
		n.failure.Println(msg)

	case campaign.EventPersistFailure:
		n.failure.Printfln("%s could not save %s: %v", sym.Failure, e.Ledger, e.Err)
		for _, hint := range errors.GetAllHints(e.Err) {
			pterm.Fprintln(n.w, pterm.Gray("  hint: "+hint))
		}

	case campaign.EventAwaitingContinuation:
		n.info.Printfln("%s Test batch done. Check the target, then confirm to continue or stop.", sym.Pause)

	case campaign.EventRunFinished:
		n.finished(e)
	}
}

func (n *Narrator) finished(e campaign.Event) {
	res := e.Result
	if res == nil {
		return
	}
	summary := fmt.Sprintf("%d completed, %d dispatched, %d mismatches, %d failures. %d of %d remaining.",
		res.Completed, res.Dispatched, res.Mismatches, res.Failures, res.Ledger.Remaining, res.Ledger.Total)

	switch res.Outcome {
	case campaign.OutcomeExhausted:
		n.success.Println("All contacts done. " + summary)
	case campaign.OutcomeIncomplete:
		n.warning.Println("End of list, skipped contacts still pending. " + summary)
		pterm.Fprintln(n.w, pterm.Gray("  hint: run again to retry the contacts the driver failed on"))
	case campaign.OutcomeLimit:
		n.success.Println("Action limit reached. " + summary)
	case campaign.OutcomeAborted:
		n.warning.Println("Stopped. " + summary)
	default:
		n.failure.Println("Run failed. " + summary)
		for _, hint := range errors.GetAllHints(e.Err) {
			pterm.Fprintln(n.w, pterm.Gray("  hint: "+hint))
		}
	}
}
