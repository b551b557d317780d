package config

import (
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override configuration
const EnvPrefix = "CALLSHEET"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("ledger.path", "contacts.csv")
	v.SetDefault("ledger.marker", "called")
	v.SetDefault("ledger.backups", 3)

	v.SetDefault("blacklist.source", "")
	v.SetDefault("blacklist.sheet", "")
	v.SetDefault("blacklist.column", 1)
	v.SetDefault("blacklist.timeout", 30*time.Second)
	v.SetDefault("blacklist.allow_private", false)
	v.SetDefault("blacklist.prefix_digits", 3)

	v.SetDefault("campaign.mode", ModeConfirm)
	v.SetDefault("campaign.max_actions", 100)
	v.SetDefault("campaign.test_batch", 2)
	v.SetDefault("campaign.start_delay", 5*time.Second)
	v.SetDefault("campaign.min_delay", 2*time.Second)
	v.SetDefault("campaign.max_delay", 6*time.Second)
	v.SetDefault("campaign.cooldown", 5*time.Second)
	v.SetDefault("campaign.settle_delay", 100*time.Millisecond)
	v.SetDefault("campaign.failure_threshold", 3)
	v.SetDefault("campaign.max_per_minute", 0.0)
	v.SetDefault("campaign.mismatch_retries", 1)

	v.SetDefault("driver.kind", DriverClipboard)
	v.SetDefault("driver.script", "")

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "callsheet.db")

	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", "everforest")
}

// BindEnvVars binds every known key to its CALLSHEET_* variable so that
// Unmarshal sees overrides even for keys absent from all config files.
func BindEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		v.BindEnv(key, EnvKey(key))
	}
}
