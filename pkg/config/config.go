// Package config loads YAML configuration files with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configurations that check themselves after loading.
type Validator interface {
	Validate() error
}

// Load reads filename, expands ${VAR} references and decodes it over target.
// Fields absent from the file keep the values target already holds.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := Parse(data, target); err != nil {
		return fmt.Errorf("config file %s: %w", filename, err)
	}
	return nil
}

// LoadOrDefault behaves like Load but treats a missing file as empty, so
// target keeps its defaults. The result is still validated.
func LoadOrDefault[T any](filename string, target *T) (bool, error) {
	err := Load(filename, target)
	if errors.Is(err, os.ErrNotExist) {
		return false, validate(target)
	}
	return err == nil, err
}

// Parse expands environment references in data and decodes it over target.
func Parse[T any](data []byte, target *T) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("failed to parse: %w", err)
	}
	return validate(target)
}

func validate[T any](target *T) error {
	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
