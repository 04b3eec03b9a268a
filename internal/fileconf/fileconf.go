// Package fileconf decodes TOML and YAML files chosen by extension.
package fileconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrFormat is returned for files that are neither TOML nor YAML.
var ErrFormat = errors.New("fileconf: unsupported file format")

// Format is a supported encoding.
type Format int

const (
	TOML Format = iota + 1
	YAML
)

// FormatOf returns the encoding implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrFormat, filepath.Ext(path))
}

// DecodeFile reads path and decodes it into v. Fields absent from the file
// keep their current values.
func DecodeFile(path string, v any) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return Decode(format, data, v)
}

// Decode decodes data in the given format into v.
func Decode(format Format, data []byte, v any) error {
	switch format {
	case TOML:
		if err := toml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("fileconf: toml: %w", err)
		}
	case YAML:
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("fileconf: yaml: %w", err)
		}
	default:
		return ErrFormat
	}
	return nil
}

// Encode renders v in the given format.
func Encode(format Format, v any) ([]byte, error) {
	switch format {
	case TOML:
		return toml.Marshal(v)
	case YAML:
		return yaml.Marshal(v)
	}
	return nil, ErrFormat
}
