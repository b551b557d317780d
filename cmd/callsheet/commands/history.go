package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/callsheet/display"
	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/internal/fileutil"
	"github.com/teranos/callsheet/journal"
	"github.com/teranos/callsheet/logger"
	"github.com/teranos/callsheet/sym"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: sym.Short("history"),
		Long: sym.History + ` history - Show past campaign runs from the journal

Without an argument the most recent runs are listed. With a run ID (or its
first characters) every event of that run is shown.

Examples:
  callsheet history
  callsheet history --limit 50
  callsheet history 0f3c2a9e`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", journal.DefaultListLimit, "Number of runs to list")
	return cmd
}

type runHistoryResult struct {
	Run    journal.Run     `json:"run"`
	Events []journal.Event `json:"events"`
}

func runHistory(cmd *cobra.Command, args []string, limit int) error {
	loaded, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := loaded.Config.Journal.Path
	if !fileutil.Exists(path) {
		return errors.WithHint(
			errors.NewNotFoundError("no journal at %s", path),
			"runs are journaled when journal.enabled is true")
	}

	store, err := journal.Open(path, logger.Logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	jsonOut := display.ShouldOutputJSON(cmd)

	if len(args) == 0 {
		runs, err := store.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		if jsonOut {
			if runs == nil {
				runs = []journal.Run{}
			}
			return display.WriteJSON(cmd.OutOrStdout(), runs)
		}
		return display.RenderRuns(cmd.OutOrStdout(), runs)
	}

	run, err := store.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	events, err := store.Events(ctx, run.ID)
	if err != nil {
		return err
	}
	if jsonOut {
		return display.WriteJSON(cmd.OutOrStdout(), runHistoryResult{Run: run, Events: events})
	}
	return display.RenderRun(cmd.OutOrStdout(), run, events)
}
