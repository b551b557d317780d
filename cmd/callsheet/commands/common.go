package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/callsheet/config"
	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/logger"
)

// loadConfig reads the configuration cascade, honouring the global --config
// flag, and applies the log settings it carries.
func loadConfig(cmd *cobra.Command) (*config.Loaded, error) {
	configFile, _ := cmd.Flags().GetString("config")

	loaded, err := config.LoadWithOptions(config.Options{ConfigFile: configFile})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	if theme := loaded.Config.Log.Theme; theme != "" {
		logger.SetTheme(theme)
	}
	if loaded.Config.Log.JSON && !logger.JSONOutput {
		if err := logger.Initialize(true, verbosity(cmd)); err != nil {
			return nil, errors.Wrap(err, "failed to initialize logger")
		}
	}
	return loaded, nil
}

// loadValidConfig is loadConfig followed by Validate
func loadValidConfig(cmd *cobra.Command) (*config.Config, error) {
	loaded, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := loaded.Config.Validate(); err != nil {
		return nil, errors.WithHint(
			errors.Wrap(err, "configuration validation failed"),
			"run 'callsheet config where' to see which file sets it")
	}
	return loaded.Config, nil
}

func verbosity(cmd *cobra.Command) int {
	v, _ := cmd.Flags().GetCount("verbose")
	return v
}
