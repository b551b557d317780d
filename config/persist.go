package config

import (
	"bytes"
	"encoding/json"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/internal/fileutil"
)

// initBackups is how many rotating backups config init keeps
const initBackups = 3

// Output formats for Render
const (
	FormatTOML = "toml"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DefaultDocument returns the built-in defaults as a marshallable document
func DefaultDocument() map[string]interface{} {
	v := viper.New()
	SetDefaults(v)
	return document(v.AllSettings())
}

// WriteDefault writes the built-in defaults to path as TOML.
// An existing file is rotated into .back1..3 first.
func WriteDefault(path string) error {
	data, err := Render(DefaultDocument(), FormatTOML)
	if err != nil {
		return err
	}

	if err := fileutil.RotateBackups(path, initBackups); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	if err := fileutil.WriteAtomic(path, data, fileutil.DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write config %s", path)
	}
	return nil
}

// Render marshals a settings document in the requested format
func Render(doc map[string]interface{}, format string) ([]byte, error) {
	switch format {
	case FormatTOML:
		data, err := toml.Marshal(doc)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal config to TOML")
		}
		return append([]byte("# callsheet configuration\n"), data...), nil

	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, errors.Wrap(err, "failed to marshal config to JSON")
		}
		return buf.Bytes(), nil

	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal config to YAML")
		}
		return append([]byte("# callsheet configuration\n"), data...), nil

	default:
		return nil, errors.NewInvalidRequestError("unsupported format: %s (supported: toml, json, yaml)", format)
	}
}
