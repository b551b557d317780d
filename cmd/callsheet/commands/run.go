package commands

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/callsheet/campaign"
	"github.com/teranos/callsheet/config"
	"github.com/teranos/callsheet/display"
	"github.com/teranos/callsheet/driver"
	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/journal"
	"github.com/teranos/callsheet/ledger"
	"github.com/teranos/callsheet/logger"
	"github.com/teranos/callsheet/operator"
	"github.com/teranos/callsheet/sym"
)

type runFlags struct {
	mode       string
	driver     string
	script     string
	dryRun     bool
	noInput    bool
	maxActions int
	testBatch  int
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [ledger.csv]",
		Short: sym.Short("run"),
		Long: sym.Run + ` run - Drive a contact campaign over the ledger

Each pending row is handed to the action driver. In confirm mode the number
is put on the clipboard and the operator presses enter once it has been
used (q stops). In auto mode the driver runs unattended with randomized
delays, and stops after the test batch until the operator confirms.

A row is only marked once its number has been verified and the ledger has
been rewritten, so stopping at any point is safe.

Examples:
  callsheet run                          # ledger from config, confirm mode
  callsheet run calls.csv --max-actions 20
  callsheet run --mode auto --driver script --script steps.toml
  callsheet run --dry-run --mode auto    # echo driver, nothing leaves the machine`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaign(cmd, args, f)
		},
	}
	cmd.Flags().StringVar(&f.mode, "mode", "", "Campaign mode: confirm or auto (default from config)")
	cmd.Flags().StringVar(&f.driver, "driver", "", "Action driver: clipboard, script or echo (default from config)")
	cmd.Flags().StringVar(&f.script, "script", "", "Step file for the script driver")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Use the echo driver; the ledger is still updated")
	cmd.Flags().BoolVar(&f.noInput, "no-input", false, "Do not listen for operator keys (auto mode only)")
	cmd.Flags().IntVar(&f.maxActions, "max-actions", -1, "Dispatch cap for this run, 0 = unlimited")
	cmd.Flags().IntVar(&f.testBatch, "test-batch", -1, "Completions before asking to continue, 0 = none")
	return cmd
}

func (f runFlags) apply(cmd *cobra.Command, cfg *config.Config, args []string) {
	if len(args) == 1 {
		cfg.Ledger.Path = args[0]
	}
	if f.mode != "" {
		cfg.Campaign.Mode = f.mode
	}
	if f.driver != "" {
		cfg.Driver.Kind = f.driver
	}
	if f.script != "" {
		cfg.Driver.Script = f.script
	}
	if f.dryRun {
		cfg.Driver.Kind = config.DriverEcho
	}
	if cmd.Flags().Changed("max-actions") {
		cfg.Campaign.MaxActions = f.maxActions
	}
	if cmd.Flags().Changed("test-batch") {
		cfg.Campaign.TestBatch = f.testBatch
	}
}

func runCampaign(cmd *cobra.Command, args []string, f runFlags) error {
	loaded, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := loaded.Config
	f.apply(cmd, cfg, args)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid run settings")
	}
	if f.noInput && cfg.Campaign.Mode == config.ModeConfirm {
		return errors.WithHint(
			errors.NewInvalidRequestError("confirm mode needs operator input"),
			"drop --no-input, or use --mode auto")
	}

	log := logger.Logger

	watcher, err := ledger.NewWatcher(cfg.Ledger.Path, log)
	if err != nil {
		log.Warnw("Ledger watcher unavailable", logger.FieldLedger, cfg.Ledger.Path, logger.FieldError, err.Error())
		watcher = nil
	}

	opts := ledger.Options{Marker: cfg.Ledger.Marker, Backups: cfg.Ledger.Backups}
	if watcher != nil {
		opts.BeforeWrite = watcher.MarkOwnWrite
	}
	led, err := ledger.Load(cfg.Ledger.Path, opts, log)
	if err != nil {
		if watcher != nil {
			watcher.Close()
		}
		return err
	}

	if watcher != nil {
		watcher.OnForeignWrite(func(path string) {
			log.Warnw("Ledger changed by another program; its edits will be overwritten by the next mark",
				logger.FieldLedger, path)
		})
		watcher.Start()
		defer watcher.Close()
	}

	drv, err := driver.New(cfg.Driver, log)
	if err != nil {
		return err
	}

	var (
		signals  chan campaign.Signal
		listener operator.Listener
		cont     campaign.Continuer
	)
	if f.noInput {
		if cfg.Campaign.TestBatch > 0 && operator.Interactive() {
			cont = operator.NewPromptContinuer()
		}
	} else {
		signals = make(chan campaign.Signal, 1)
		listener = operator.ForTerminal(operator.DefaultKeyMap, log)
	}

	out := cmd.OutOrStdout()
	if _, raw := listener.(*operator.KeyListener); raw {
		// Raw mode turns off output newline translation
		out = display.CRLF(out)
	}
	observers := campaign.Observers{narration(cmd, out)}
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path, log)
		if err != nil {
			log.Warnw("Run journal unavailable, continuing without it",
				logger.FieldPath, cfg.Journal.Path, logger.FieldError, err.Error())
		} else {
			defer store.Close()
			observers = append(observers, journal.NewRecorder(store, log))
		}
	}

	runner, err := campaign.New(led, drv, signals, campaign.Options{
		Policy:    campaign.PolicyFromConfig(cfg.Campaign),
		Observer:  observers,
		Continuer: cont,
	}, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = drive(ctx, runner, listener, signals)
	return err
}

// drive runs the campaign next to the operator listener. The listener stops
// when the run ends; the run aborts when the listener fails.
func drive(ctx context.Context, runner *campaign.Runner, listener operator.Listener, signals chan campaign.Signal) (*campaign.Result, error) {
	if listener == nil {
		return runner.Run(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopListener := context.WithCancel(gctx)
	defer stopListener()

	g.Go(func() error {
		defer close(signals)
		return errors.Wrap(listener.Listen(runCtx, signals), "operator input")
	})

	var res *campaign.Result
	g.Go(func() error {
		defer stopListener()
		var err error
		res, err = runner.Run(runCtx)
		return err
	})

	err := g.Wait()
	return res, err
}

// narration picks the run observer for the output mode
func narration(cmd *cobra.Command, w io.Writer) campaign.Observer {
	if display.ShouldOutputJSON(cmd) {
		return display.NewJSONObserver(w)
	}
	return display.NewNarrator(w, verbosity(cmd))
}
