package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/callsheet/config"
	"github.com/teranos/callsheet/display"
	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/internal/fileutil"
	"github.com/teranos/callsheet/sym"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: sym.Short("config"),
		Long: sym.Config + ` config - Manage callsheet configuration

Configuration sources (later overrides earlier):
1. Built-in defaults
2. System config (/etc/callsheet/config.toml)
3. User config (~/.callsheet/callsheet.toml)
4. Project config (callsheet.toml, searched upward from the current folder)
5. Environment variables (CALLSHEET_* prefix, e.g. CALLSHEET_CAMPAIGN_MODE)
6. The file given with --config

Examples:
  callsheet config init                  # write ./callsheet.toml with defaults
  callsheet config show --format yaml
  callsheet config get campaign.mode
  callsheet config where`,
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if display.ShouldOutputJSON(cmd) {
				format = config.FormatJSON
			}
			data, err := config.Render(loaded.Document(), format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	show.Flags().StringVar(&format, "format", config.FormatTOML, "Output format: toml, json, yaml")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long:  "Get a configuration value using dot notation (e.g. campaign.mode, ledger.marker)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			key := args[0]
			if !loaded.Viper.IsSet(key) {
				return errors.WithHint(
					errors.NewNotFoundError("configuration key %q not found", key),
					"'callsheet config where' lists every key")
			}
			fmt.Fprintln(cmd.OutOrStdout(), loaded.Viper.Get(key))
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadValidConfig(cmd); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Configuration is valid")
			return nil
		},
	}

	where := &cobra.Command{
		Use:   "where",
		Short: "Show where each setting comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if display.ShouldOutputJSON(cmd) {
				return display.WriteJSON(cmd.OutOrStdout(), loaded.Settings())
			}
			return renderWhere(cmd.OutOrStdout(), loaded)
		},
	}

	var (
		user  bool
		force bool
	)
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the default settings",
		Long: `Write a config file with the default settings.

The file goes to ./callsheet.toml, to ~/.callsheet/callsheet.toml with --user,
or to the given path. An existing file is only replaced with --force, and
the old one is kept as .back1.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			switch {
			case len(args) == 1:
				path = args[0]
			case user:
				path = config.UserConfigPath()
				if path == "" {
					return errors.New("cannot determine home directory")
				}
			}
			if fileutil.Exists(path) && !force {
				return errors.WithHint(
					errors.Newf("%s already exists", path),
					"pass --force to replace it; the current file is kept as a backup")
			}
			if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
				return err
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Wrote %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of ./callsheet.toml")
	initCmd.Flags().BoolVar(&force, "force", false, "Replace an existing file")

	cmd.AddCommand(initCmd, show, get, validate, where)
	return cmd
}

func renderWhere(w io.Writer, loaded *config.Loaded) error {
	pterm.Fprintln(w, "Configuration cascade (later overrides earlier):")
	if len(loaded.Files) == 0 {
		pterm.Fprintln(w, "  no config files found, using defaults and environment")
	}
	for i, f := range loaded.Files {
		pterm.Fprintln(w, fmt.Sprintf("  %d. %s", i+1, f))
	}
	pterm.Fprintln(w, "")

	data := pterm.TableData{{"Key", "Value", "Source"}}
	for _, s := range loaded.Settings() {
		source := string(s.Source)
		if s.Source != config.SourceDefault && s.SourcePath != "" {
			source += " (" + s.SourcePath + ")"
		}
		data = append(data, []string{s.Key, fmt.Sprint(s.Value), source})
	}
	return pterm.DefaultTable.WithWriter(w).WithHasHeader().WithData(data).Render()
}
