package config

import (
	"time"

	"github.com/teranos/callsheet/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Ledger.Path == "" {
		return errors.New("ledger.path cannot be empty")
	}
	if c.Ledger.Marker == "" {
		return errors.New("ledger.marker cannot be empty")
	}
	if c.Ledger.Backups < 0 {
		return errors.Newf("ledger.backups must be >= 0, got %d", c.Ledger.Backups)
	}

	if c.Blacklist.Column < 0 {
		return errors.Newf("blacklist.column must be >= 0, got %d", c.Blacklist.Column)
	}
	if c.Blacklist.PrefixDigits < 0 {
		return errors.Newf("blacklist.prefix_digits must be >= 0, got %d", c.Blacklist.PrefixDigits)
	}
	if c.Blacklist.Timeout < 0 {
		return errors.Newf("blacklist.timeout must be >= 0, got %s", c.Blacklist.Timeout)
	}

	switch c.Campaign.Mode {
	case ModeConfirm, ModeAuto:
	default:
		return errors.Newf("campaign.mode must be %q or %q, got %q", ModeConfirm, ModeAuto, c.Campaign.Mode)
	}

	// 0 means "no limit" / "disabled" for every counter below; negative is invalid
	for name, n := range map[string]int{
		"campaign.max_actions":       c.Campaign.MaxActions,
		"campaign.test_batch":        c.Campaign.TestBatch,
		"campaign.failure_threshold": c.Campaign.FailureThreshold,
		"campaign.mismatch_retries":  c.Campaign.MismatchRetries,
	} {
		if n < 0 {
			return errors.Newf("%s must be >= 0, got %d", name, n)
		}
	}

	for name, d := range map[string]time.Duration{
		"campaign.start_delay":  c.Campaign.StartDelay,
		"campaign.min_delay":    c.Campaign.MinDelay,
		"campaign.max_delay":    c.Campaign.MaxDelay,
		"campaign.cooldown":     c.Campaign.Cooldown,
		"campaign.settle_delay": c.Campaign.SettleDelay,
	} {
		if d < 0 {
			return errors.Newf("%s must be >= 0, got %s", name, d)
		}
	}
	if c.Campaign.MinDelay > c.Campaign.MaxDelay {
		return errors.Newf("campaign.min_delay (%s) must not exceed campaign.max_delay (%s)",
			c.Campaign.MinDelay, c.Campaign.MaxDelay)
	}
	if c.Campaign.MaxPerMinute < 0 {
		return errors.Newf("campaign.max_per_minute must be >= 0, got %f", c.Campaign.MaxPerMinute)
	}

	switch c.Driver.Kind {
	case DriverClipboard, DriverEcho:
	case DriverScript:
		if c.Driver.Script == "" {
			return errors.New("driver.script cannot be empty when driver.kind is \"script\"")
		}
	default:
		return errors.Newf("driver.kind must be one of clipboard, script, echo, got %q", c.Driver.Kind)
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return errors.New("journal.path cannot be empty when journal is enabled")
	}

	return nil
}
