// Package config loads callsheet configuration from layered TOML files and
// CALLSHEET_* environment variables.
package config

import (
	"fmt"
	"time"
)

// Config represents the callsheet configuration
type Config struct {
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Blacklist BlacklistConfig `mapstructure:"blacklist"`
	Campaign  CampaignConfig  `mapstructure:"campaign"`
	Driver    DriverConfig    `mapstructure:"driver"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Log       LogConfig       `mapstructure:"log"`
}

// LedgerConfig configures the CSV campaign ledger
type LedgerConfig struct {
	Path    string `mapstructure:"path"`
	Marker  string `mapstructure:"marker"`  // completion marker written to the status column ("called", "messaged")
	Backups int    `mapstructure:"backups"` // rotating .backN copies kept before each rewrite, 0 disables
}

// BlacklistConfig configures where the blacklist is fetched from
type BlacklistConfig struct {
	Source       string        `mapstructure:"source"` // path, URL, sheet URL or bare sheet ID
	Sheet        string        `mapstructure:"sheet"`  // sheet gid, empty = first sheet
	Column       int           `mapstructure:"column"` // zero-based column holding the numbers
	Timeout      time.Duration `mapstructure:"timeout"`
	AllowPrivate bool          `mapstructure:"allow_private"` // permit fetching from private or loopback hosts
	PrefixDigits int           `mapstructure:"prefix_digits"` // leading digits ignored when comparing, 0 = exact keys
}

// Run modes
const (
	ModeConfirm = "confirm" // operator confirms each contact with a keypress
	ModeAuto    = "auto"    // runner drives the action driver unattended
)

// Driver kinds
const (
	DriverClipboard = "clipboard"
	DriverScript    = "script"
	DriverEcho      = "echo"
)

// CampaignConfig holds the runner policy knobs
type CampaignConfig struct {
	Mode             string        `mapstructure:"mode"`
	MaxActions       int           `mapstructure:"max_actions"` // dispatch cap per run, 0 = unlimited
	TestBatch        int           `mapstructure:"test_batch"`  // completions before asking to continue, 0 = no test batch
	StartDelay       time.Duration `mapstructure:"start_delay"`
	MinDelay         time.Duration `mapstructure:"min_delay"`
	MaxDelay         time.Duration `mapstructure:"max_delay"`
	Cooldown         time.Duration `mapstructure:"cooldown"`          // pause after a driver failure
	SettleDelay      time.Duration `mapstructure:"settle_delay"`      // wait between confirmation and reading feedback
	FailureThreshold int           `mapstructure:"failure_threshold"` // consecutive driver failures that halt the run, 0 = never
	MaxPerMinute     float64       `mapstructure:"max_per_minute"`    // dispatch rate cap, 0 = unlimited
	MismatchRetries  int           `mapstructure:"mismatch_retries"`  // auto mode re-dispatches after a mismatch
}

// DriverConfig selects the external action driver
type DriverConfig struct {
	Kind   string `mapstructure:"kind"`
	Script string `mapstructure:"script"` // step file for the script driver
}

// JournalConfig configures the sqlite run journal
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig configures log output
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Theme string `mapstructure:"theme"` // everforest, gruvbox, plain
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Ledger: %s, Mode: %s, Driver: %s, Journal: %t}",
		c.Ledger.Path, c.Campaign.Mode, c.Driver.Kind, c.Journal.Enabled)
}
