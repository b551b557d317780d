package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/internal/fileutil"
	testfiles "github.com/teranos/callsheet/internal/testing"
)

// isolated returns Options that only see files under a fresh temp dir
func isolated(t *testing.T) (Options, string) {
	t.Helper()
	root := t.TempDir()
	opts := Options{
		SystemFile: filepath.Join(root, "etc", "config.toml"),
		HomeDir:    filepath.Join(root, "home"),
		WorkDir:    filepath.Join(root, "work", "nested"),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(opts.HomeDir, ".callsheet"), 0755))
	require.NoError(t, os.MkdirAll(opts.WorkDir, 0755))
	return opts, root
}

func TestLoadDefaults(t *testing.T) {
	opts, _ := isolated(t)

	loaded, err := LoadWithOptions(opts)
	require.NoError(t, err)
	cfg := loaded.Config

	assert.Equal(t, "contacts.csv", cfg.Ledger.Path)
	assert.Equal(t, "called", cfg.Ledger.Marker)
	assert.Equal(t, 3, cfg.Ledger.Backups)
	assert.Equal(t, 1, cfg.Blacklist.Column)
	assert.Equal(t, 3, cfg.Blacklist.PrefixDigits)
	assert.Equal(t, ModeConfirm, cfg.Campaign.Mode)
	assert.Equal(t, 100, cfg.Campaign.MaxActions)
	assert.Equal(t, 2, cfg.Campaign.TestBatch)
	assert.Equal(t, 5*time.Second, cfg.Campaign.StartDelay)
	assert.Equal(t, 3, cfg.Campaign.FailureThreshold)
	assert.Equal(t, DriverClipboard, cfg.Driver.Kind)
	assert.True(t, cfg.Journal.Enabled)
	assert.Empty(t, loaded.Files)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	opts, root := isolated(t)

	testfiles.WriteFile(t, opts.SystemFile, `
[ledger]
path = "system.csv"
backups = 5
`)
	testfiles.WriteFile(t, filepath.Join(opts.HomeDir, ".callsheet", FileName), `
[ledger]
path = "user.csv"

[campaign]
min_delay = "1s"
max_delay = "3s"
`)
	// Found by walking up from WorkDir
	testfiles.WriteFile(t, filepath.Join(root, "work", FileName), `
[ledger]
marker = "messaged"

[campaign]
mode = "auto"
`)

	loaded, err := LoadWithOptions(opts)
	require.NoError(t, err)
	cfg := loaded.Config

	assert.Equal(t, "user.csv", cfg.Ledger.Path, "user overrides system")
	assert.Equal(t, 5, cfg.Ledger.Backups, "system value survives when nothing overrides it")
	assert.Equal(t, "messaged", cfg.Ledger.Marker)
	assert.Equal(t, ModeAuto, cfg.Campaign.Mode)
	assert.Equal(t, time.Second, cfg.Campaign.MinDelay)
	assert.Equal(t, 3*time.Second, cfg.Campaign.MaxDelay)
	assert.Len(t, loaded.Files, 3)

	assert.Equal(t, SourceUser, loaded.Sources["ledger.path"].Source)
	assert.Equal(t, SourceSystem, loaded.Sources["ledger.backups"].Source)
	assert.Equal(t, SourceProject, loaded.Sources["ledger.marker"].Source)
	assert.Equal(t, SourceDefault, loaded.Sources["journal.path"].Source)
}

func TestEnvironmentOverridesFiles(t *testing.T) {
	opts, root := isolated(t)
	testfiles.WriteFile(t, filepath.Join(root, "work", FileName), `
[ledger]
path = "project.csv"
`)
	t.Setenv("CALLSHEET_LEDGER_PATH", "env.csv")
	t.Setenv("CALLSHEET_CAMPAIGN_COOLDOWN", "250ms")
	t.Setenv("CALLSHEET_JOURNAL_ENABLED", "false")

	loaded, err := LoadWithOptions(opts)
	require.NoError(t, err)

	assert.Equal(t, "env.csv", loaded.Config.Ledger.Path)
	assert.Equal(t, 250*time.Millisecond, loaded.Config.Campaign.Cooldown)
	assert.False(t, loaded.Config.Journal.Enabled)
	assert.Equal(t, SourceInfo{Source: SourceEnvironment, Path: "CALLSHEET_LEDGER_PATH"}, loaded.Sources["ledger.path"])
}

func TestExplicitFileOverridesEnvironment(t *testing.T) {
	opts, root := isolated(t)
	t.Setenv("CALLSHEET_LEDGER_PATH", "env.csv")

	opts.ConfigFile = filepath.Join(root, "explicit.toml")
	testfiles.WriteFile(t, opts.ConfigFile, `
[ledger]
path = "explicit.csv"
`)

	loaded, err := LoadWithOptions(opts)
	require.NoError(t, err)
	assert.Equal(t, "explicit.csv", loaded.Config.Ledger.Path)
	assert.Equal(t, SourceExplicit, loaded.Sources["ledger.path"].Source)
}

func TestLoadRejectsInvalidTOML(t *testing.T) {
	opts, _ := isolated(t)
	testfiles.WriteFile(t, filepath.Join(opts.HomeDir, ".callsheet", FileName), "[ledger\npath=")

	_, err := LoadWithOptions(opts)
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "config init")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	testfiles.WriteFile(t, path, `
[driver]
kind = "script"
script = "steps.toml"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DriverScript, cfg.Driver.Kind)
	assert.Equal(t, "steps.toml", cfg.Driver.Script)
	assert.Equal(t, "contacts.csv", cfg.Ledger.Path, "defaults fill the rest")

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestSettingsAreSortedWithSources(t *testing.T) {
	opts, _ := isolated(t)
	loaded, err := LoadWithOptions(opts)
	require.NoError(t, err)

	settings := loaded.Settings()
	require.NotEmpty(t, settings)
	for i := 1; i < len(settings); i++ {
		assert.Less(t, settings[i-1].Key, settings[i].Key)
	}
	for _, s := range settings {
		assert.Equal(t, SourceDefault, s.Source, s.Key)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		opts, _ := isolated(t)
		loaded, err := LoadWithOptions(opts)
		require.NoError(t, err)
		return loaded.Config
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"empty ledger path", func(c *Config) { c.Ledger.Path = "" }, "ledger.path"},
		{"empty marker", func(c *Config) { c.Ledger.Marker = "" }, "ledger.marker"},
		{"unknown mode", func(c *Config) { c.Campaign.Mode = "yolo" }, "campaign.mode"},
		{"negative max actions", func(c *Config) { c.Campaign.MaxActions = -1 }, "campaign.max_actions"},
		{"negative cooldown", func(c *Config) { c.Campaign.Cooldown = -time.Second }, "campaign.cooldown"},
		{"inverted delays", func(c *Config) {
			c.Campaign.MinDelay = 5 * time.Second
			c.Campaign.MaxDelay = time.Second
		}, "campaign.min_delay"},
		{"script without file", func(c *Config) { c.Driver.Kind = DriverScript }, "driver.script"},
		{"unknown driver", func(c *Config) { c.Driver.Kind = "robot" }, "driver.kind"},
		{"journal without path", func(c *Config) { c.Journal.Path = "" }, "journal.path"},
		{"negative prefix digits", func(c *Config) { c.Blacklist.PrefixDigits = -1 }, "blacklist.prefix_digits"},
		{"negative rate", func(c *Config) { c.Campaign.MaxPerMinute = -1 }, "campaign.max_per_minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("zero disables counters", func(t *testing.T) {
		cfg := valid()
		cfg.Campaign.MaxActions = 0
		cfg.Campaign.TestBatch = 0
		cfg.Campaign.FailureThreshold = 0
		cfg.Journal.Enabled = false
		cfg.Journal.Path = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestWriteDefaultLoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	require.NoError(t, WriteDefault(path))
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Campaign.StartDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Campaign.SettleDelay)
	assert.Equal(t, "called", cfg.Ledger.Marker)

	// A second init keeps the first file as a backup
	require.NoError(t, WriteDefault(path))
	assert.True(t, fileutil.Exists(fileutil.BackupPath(path, 1)))
}

func TestRender(t *testing.T) {
	doc := DefaultDocument()

	out, err := Render(doc, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"marker": "called"`)
	assert.Contains(t, string(out), `"start_delay": "5s"`)

	out, err = Render(doc, FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(out), "marker: called")

	out, err = Render(doc, FormatTOML)
	require.NoError(t, err)
	assert.Contains(t, string(out), "[campaign]")

	_, err = Render(doc, "xml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "CALLSHEET_CAMPAIGN_MAX_ACTIONS", EnvKey("campaign.max_actions"))
}
