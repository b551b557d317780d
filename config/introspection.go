package config

import (
	"sort"
	"time"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/callsheet/config.toml
	SourceUser        ConfigSource = "user"        // ~/.callsheet/callsheet.toml
	SourceProject     ConfigSource = "project"     // callsheet.toml found walking up from cwd
	SourceEnvironment ConfigSource = "environment" // CALLSHEET_* env vars
	SourceExplicit    ConfigSource = "explicit"    // --config
)

// SourceOrder lists sources from lowest to highest precedence
var SourceOrder = []ConfigSource{
	SourceDefault,
	SourceSystem,
	SourceUser,
	SourceProject,
	SourceEnvironment,
	SourceExplicit,
}

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string // file path or environment variable name
}

// SettingInfo contains metadata about a configuration setting
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"`
}

// Settings returns every effective setting with its origin, sorted by key
func (l *Loaded) Settings() []SettingInfo {
	keys := l.Viper.AllKeys()
	sort.Strings(keys)

	settings := make([]SettingInfo, 0, len(keys))
	for _, key := range keys {
		info, ok := l.Sources[key]
		if !ok {
			info = SourceInfo{Source: SourceDefault, Path: "built-in default"}
		}
		settings = append(settings, SettingInfo{
			Key:        key,
			Value:      l.Viper.Get(key),
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}
	return settings
}

// Document returns the effective settings as nested maps suitable for
// marshalling. Durations are rendered as strings ("5s") so the output can be
// read back by Load.
func (l *Loaded) Document() map[string]interface{} {
	return document(l.Viper.AllSettings())
}

func document(settings map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(settings))
	for k, v := range settings {
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = document(val)
		case time.Duration:
			out[k] = val.String()
		default:
			out[k] = val
		}
	}
	return out
}
