// Package config loads the DARY configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/opensource-finance/dary/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads envFile (or ./.env when envFile is empty and the file exists)
// into the process environment, then builds the configuration from DARY_*
// variables. Unset variables take their env-default values, which match
// domain.DefaultConfig.
func Load(envFile string) (*domain.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg domain.Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	// DARY_DEBUG=true wins over DARY_LOG_LEVEL.
	if os.Getenv("DARY_DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its validate tags.
func Validate(cfg *domain.Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// Usage describes every supported environment variable.
func Usage() string {
	var cfg domain.Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
