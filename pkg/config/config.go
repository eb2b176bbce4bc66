// Package config loads YAML configuration with environment variable
// expansion. Callers pass a target struct pre-filled with defaults; the
// file overrides what it names.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by config types that check themselves after
// loading.
type Validator interface {
	Validate() error
}

// Load reads filename, expands $VAR references and unmarshals into
// target. If target implements Validator, validation runs afterwards.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config %s: %w", filename, err)
	}
	return parse(data, filename, target)
}

// LoadOptional behaves like Load but treats a missing file as "keep the
// defaults already in target". Validation still runs.
func LoadOptional[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return validate(target)
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", filename, err)
	}
	return parse(data, filename, target)
}

func parse[T any](data []byte, filename string, target *T) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}
	return validate(target)
}

func validate[T any](target *T) error {
	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
	}
	return nil
}
