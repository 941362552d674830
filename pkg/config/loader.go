package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"

	"github.com/utafrali/critiqo/pkg/validator"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    BaseURL  string `env:"CRITIQO_API_BASE_URL,required"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// LoadWithEnvironment is Load reading from the given map instead of the
// process environment. Used by the CLI to layer flag overrides.
func LoadWithEnvironment(cfg any, environ map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// LoadAndValidate parses cfg and then runs its `validate` struct tags.
func LoadAndValidate(cfg any) error {
	if err := Load(cfg); err != nil {
		return err
	}
	if err := validator.Validate(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}
