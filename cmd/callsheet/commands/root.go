package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/logger"
)

// NewRootCmd builds the callsheet command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "callsheet",
		Short: "callsheet - work through a contact list one number at a time",
		Long: `callsheet - work through a contact list one number at a time.

A campaign walks a CSV ledger of phone numbers, hands each pending number to
an action driver (the clipboard, or a scripted UI automaton), waits for the
result to be verified, and marks the row done. Progress lives in the ledger
file itself, so a stopped run resumes at the next pending row.

Available commands:
  run     - Drive a campaign over the ledger
  clean   - Remove blacklisted numbers from a contact table
  check   - Report blacklisted numbers without writing anything
  status  - Show ledger totals and the next pending contact
  mark    - Mark a contact complete by hand
  history - Show past runs from the journal
  config  - Manage callsheet configuration

Examples:
  callsheet clean leads.csv --blacklist <sheet-url>
  callsheet run contacts.csv
  callsheet run --mode auto --driver script
  callsheet status`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			if err := logger.Initialize(jsonOutput, verbosity(cmd)); err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Cleanup()
		},
	}

	root.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	root.PersistentFlags().Bool("json", false, "Output results as JSON")
	root.PersistentFlags().String("config", "", "Config file that overrides every other source")

	root.AddCommand(
		newRunCmd(),
		newCleanCmd(),
		newCheckCmd(),
		newStatusCmd(),
		newMarkCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}
