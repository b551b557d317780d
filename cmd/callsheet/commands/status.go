package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/callsheet/config"
	"github.com/teranos/callsheet/display"
	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/ledger"
	"github.com/teranos/callsheet/logger"
	"github.com/teranos/callsheet/sym"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [ledger.csv]",
		Short: sym.Short("status"),
		Long: sym.Status + ` status - Show ledger totals and the next pending contact

Counts are recomputed from the ledger file every time; nothing is cached.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, led, err := openLedger(cmd, args)
	if err != nil {
		return err
	}

	status := display.Status{
		Ledger:  led.Path(),
		Marker:  cfg.Ledger.Marker,
		Summary: led.Summary(),
	}
	if idx, ok := led.FindNextPending(0); ok {
		status.Next = led.At(idx).Raw
		status.NextRow = idx + 1
	}

	if display.ShouldOutputJSON(cmd) {
		return display.WriteJSON(cmd.OutOrStdout(), status)
	}
	return display.RenderStatus(cmd.OutOrStdout(), status)
}

type markResult struct {
	Ledger  string         `json:"ledger"`
	Contact string         `json:"contact"`
	Changed int            `json:"changed"`
	Summary ledger.Summary `json:"summary"`
}

func newMarkCmd() *cobra.Command {
	var row int
	cmd := &cobra.Command{
		Use:   "mark [number]",
		Short: sym.Short("mark"),
		Long: sym.Mark + ` mark - Mark a contact complete in the ledger

With a number, every row holding exactly that number (after trimming) is
marked. With --row, only that row is marked, so repeated numbers can be
completed one at a time.

Examples:
  callsheet mark "+1 555 010 1111"
  callsheet mark --row 12
  callsheet mark --row 3 calls.csv`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMark(cmd, args, row)
		},
	}
	cmd.Flags().IntVar(&row, "row", 0, "Mark the contact in this 1-based row; the argument is then the ledger path")
	return cmd
}

func runMark(cmd *cobra.Command, args []string, row int) error {
	var identity string
	ledgerArgs := args
	if row == 0 {
		if len(args) == 0 {
			return errors.WithHint(errors.NewInvalidRequestError("nothing to mark"), "pass a number, or --row N")
		}
		identity, ledgerArgs = args[0], args[1:]
	} else if len(args) > 1 {
		return errors.NewInvalidRequestError("--row takes at most one argument, the ledger path")
	}

	_, led, err := openLedger(cmd, ledgerArgs)
	if err != nil {
		return err
	}

	res := markResult{Ledger: led.Path()}
	if row != 0 {
		if row < 1 || row > led.Len() {
			return errors.NewNotFoundError("row %d not in ledger (rows 1..%d)", row, led.Len())
		}
		c := led.At(row - 1)
		if c.Status != ledger.Complete {
			if err := led.MarkCompleteAt(row - 1); err != nil {
				return err
			}
			res.Changed = 1
		}
		res.Contact = c.Raw
	} else {
		n, err := led.MarkComplete(identity)
		if err != nil {
			return errors.WithHint(err, "the number must match the ledger text exactly, spaces inside included")
		}
		res.Contact = identity
		res.Changed = n
	}
	res.Summary = led.Summary()

	if display.ShouldOutputJSON(cmd) {
		return display.WriteJSON(cmd.OutOrStdout(), res)
	}
	if res.Changed == 0 {
		pterm.Info.WithWriter(cmd.OutOrStdout()).Printfln("%s was already marked", res.Contact)
	} else {
		pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("%s Marked %s (%d rows). %d remaining.",
			sym.Mark, res.Contact, res.Changed, res.Summary.Remaining)
	}
	return nil
}

// openLedger loads the ledger named by args[0], or the configured one
func openLedger(cmd *cobra.Command, args []string) (*config.Config, *ledger.Ledger, error) {
	loaded, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg := loaded.Config
	if len(args) > 0 {
		cfg.Ledger.Path = args[0]
	}
	if cfg.Ledger.Path == "" {
		return nil, nil, errors.WithHint(
			errors.NewInvalidRequestError("no ledger"),
			"pass the ledger path or set ledger.path in callsheet.toml")
	}

	led, err := ledger.Load(cfg.Ledger.Path, ledger.Options{
		Marker:  cfg.Ledger.Marker,
		Backups: cfg.Ledger.Backups,
	}, logger.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, led, nil
}
