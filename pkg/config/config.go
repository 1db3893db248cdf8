// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Override adjusts a decoded configuration before validation, typically
// from command-line flags.
type Override[T any] func(*T)

// Load loads configuration from a YAML file with environment variable
// expansion, applies overrides and validates the result.
func Load[T any](filename string, target *T, overrides ...Override[T]) error {
	if err := decodeFile(filename, target); err != nil {
		return err
	}
	return finish(target, overrides)
}

// LoadOptional behaves like Load but keeps the defaults already in target
// when filename does not exist.
func LoadOptional[T any](filename string, target *T, overrides ...Override[T]) error {
	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			if err := decodeFile(filename, target); err != nil {
				return err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat config file %s: %w", filename, err)
		}
	}
	return finish(target, overrides)
}

// Decode parses YAML with environment variable expansion into target.
// It does not validate.
func Decode[T any](data []byte, target *T) error {
	return yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target)
}

func decodeFile[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := Decode(data, target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

func finish[T any](target *T, overrides []Override[T]) error {
	for _, o := range overrides {
		o(target)
	}
	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
