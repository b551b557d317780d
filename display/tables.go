package display

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/callsheet/internal/util"
	"github.com/teranos/callsheet/journal"
	"github.com/teranos/callsheet/ledger"
	"github.com/teranos/callsheet/sym"
)

// Status is what 'callsheet status' reports
type Status struct {
	Ledger  string         `json:"ledger"`
	Marker  string         `json:"marker"`
	Summary ledger.Summary `json:"summary"`
	Next    string         `json:"next,omitempty"`
	NextRow int            `json:"next_row,omitempty"` // 1-based, 0 when nothing is pending
}

// RenderStatus prints ledger totals and the next pending contact
func RenderStatus(w io.Writer, s Status) error {
	pterm.DefaultSection.WithWriter(w).Printfln("%s %s", sym.Status, s.Ledger)
	err := pterm.DefaultTable.WithWriter(w).WithData(pterm.TableData{
		{"Total", strconv.Itoa(s.Summary.Total)},
		{"Complete (" + s.Marker + ")", strconv.Itoa(s.Summary.Complete)},
		{"Remaining", strconv.Itoa(s.Summary.Remaining)},
	}).Render()
	if err != nil {
		return err
	}
	if s.NextRow == 0 {
		pterm.Success.WithWriter(w).Println("No pending contacts")
		return nil
	}
	pterm.Fprintln(w, fmt.Sprintf("Next: %s (row %d)", pterm.Bold.Sprint(s.Next), s.NextRow))
	return nil
}

// RenderRuns prints a table of journal runs
func RenderRuns(w io.Writer, runs []journal.Run) error {
	if len(runs) == 0 {
		pterm.Info.WithWriter(w).Println("No runs in the journal yet")
		return nil
	}
	data := pterm.TableData{{"Run", "Started", "Mode", "Ledger", "Outcome", "Done", "Sent", "Fail"}}
	for _, r := range runs {
		outcome := r.Outcome
		if !r.Finished() {
			outcome = "unfinished"
		}
		data = append(data, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			r.Mode,
			r.LedgerPath,
			outcome,
			strconv.Itoa(r.Completed),
			strconv.Itoa(r.Dispatched),
			strconv.Itoa(r.Failures),
		})
	}
	return pterm.DefaultTable.WithWriter(w).WithHasHeader().WithData(data).Render()
}

// RenderRun prints one run and its events
func RenderRun(w io.Writer, r journal.Run, events []journal.Event) error {
	pterm.DefaultSection.WithWriter(w).Printfln("%s run %s", sym.History, r.ID)
	pterm.Fprintln(w, fmt.Sprintf("Ledger: %s | Mode: %s | Started: %s",
		r.LedgerPath, r.Mode, r.StartedAt.Local().Format(time.DateTime)))

	data := pterm.TableData{{"Time", "Event", "Row", "Contact", "Detail"}}
	for _, e := range events {
		row := ""
		if e.Index != nil {
			row = strconv.Itoa(*e.Index + 1)
		}
		data = append(data, []string{
			e.At.Local().Format(time.TimeOnly),
			e.Kind,
			row,
			e.Contact,
			e.Detail,
		})
	}
	return pterm.DefaultTable.WithWriter(w).WithHasHeader().WithData(data).Render()
}

// shortID keeps the first block of a uuid
func shortID(id string) string { return util.Truncate(id, 8) }
