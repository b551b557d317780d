package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/callsheet/errors"
)

// FileName is the name of user and project config files
const FileName = "callsheet.toml"

// SystemConfigPath is the lowest-precedence config file
const SystemConfigPath = "/etc/callsheet/config.toml"

// Options controls where Load looks for configuration files.
// Zero values use the real system locations.
type Options struct {
	ConfigFile string // explicit --config file, overrides everything else
	SystemFile string // default SystemConfigPath
	HomeDir    string // default os.UserHomeDir
	WorkDir    string // start of the upward project config search, default os.Getwd
}

// Loaded is a loaded configuration together with the viper instance that
// produced it and where every key came from.
type Loaded struct {
	Config  *Config
	Viper   *viper.Viper
	Sources map[string]SourceInfo
	Files   []string // config files that were merged, lowest precedence first
}

// Load reads the configuration from all default locations.
// Every call builds a fresh Config; nothing is cached between calls.
func Load() (*Config, error) {
	loaded, err := LoadWithOptions(Options{})
	if err != nil {
		return nil, err
	}
	return loaded.Config, nil
}

// LoadWithOptions reads the configuration cascade described by opts
func LoadWithOptions(opts Options) (*Loaded, error) {
	v, sources, files, err := newViper(opts)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}

	return &Loaded{Config: cfg, Viper: v, Sources: sources, Files: files}, nil
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path on top of the
// defaults, ignoring environment variables and the other config files.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}

	return &config, nil
}

// EnvKey returns the environment variable that overrides key
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func newViper(opts Options) (*viper.Viper, map[string]SourceInfo, []string, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	BindEnvVars(v)

	sources := make(map[string]SourceInfo)
	for _, key := range v.AllKeys() {
		sources[key] = SourceInfo{Source: SourceDefault, Path: "built-in default"}
	}

	// Files merge below environment variables: system -> user -> project
	var merged []string
	for _, candidate := range cascade(opts) {
		if _, err := os.Stat(candidate.Path); err != nil {
			continue
		}
		fileViper, err := readFile(candidate.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := v.MergeConfigMap(fileViper.AllSettings()); err != nil {
			return nil, nil, nil, errors.Wrapf(err, "failed to merge %s", candidate.Path)
		}
		for _, key := range fileViper.AllKeys() {
			sources[key] = candidate
		}
		merged = append(merged, candidate.Path)
	}

	for _, key := range v.AllKeys() {
		if val, ok := os.LookupEnv(EnvKey(key)); ok && val != "" {
			sources[key] = SourceInfo{Source: SourceEnvironment, Path: EnvKey(key)}
		}
	}

	// An explicit --config file wins over everything, including the environment
	if opts.ConfigFile != "" {
		fileViper, err := readFile(opts.ConfigFile)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, key := range fileViper.AllKeys() {
			v.Set(key, fileViper.Get(key))
			sources[key] = SourceInfo{Source: SourceExplicit, Path: opts.ConfigFile}
		}
		merged = append(merged, opts.ConfigFile)
	}

	return v, sources, merged, nil
}

func readFile(path string) (*viper.Viper, error) {
	fileViper := viper.New()
	fileViper.SetConfigFile(path)
	fileViper.SetConfigType("toml")
	if err := fileViper.ReadInConfig(); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to read config file %s", path),
			"check the file is valid TOML, or run 'callsheet config init' to write a fresh one",
		)
	}
	return fileViper, nil
}

// cascade lists candidate config files from lowest to highest precedence
func cascade(opts Options) []SourceInfo {
	systemFile := opts.SystemFile
	if systemFile == "" {
		systemFile = SystemConfigPath
	}
	candidates := []SourceInfo{{Source: SourceSystem, Path: systemFile}}

	homeDir := opts.HomeDir
	if homeDir == "" {
		homeDir, _ = os.UserHomeDir()
	}
	if homeDir != "" {
		candidates = append(candidates, SourceInfo{
			Source: SourceUser,
			Path:   filepath.Join(homeDir, ".callsheet", FileName),
		})
	}

	if project := findProjectConfig(opts.WorkDir); project != "" {
		candidates = append(candidates, SourceInfo{Source: SourceProject, Path: project})
	}

	return candidates
}

// findProjectConfig searches for callsheet.toml by walking up the directory tree.
// Returns the path to the first config file found, or empty string if none found.
func findProjectConfig(start string) string {
	dir := start
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return ""
		}
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// UserConfigPath returns ~/.callsheet/callsheet.toml, or "" without a home directory
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".callsheet", FileName)
}
