package main

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const envPrefix = "MAILACTIVATE_"

// Settings is the CLI configuration read from MAILACTIVATE_* variables.
type Settings struct {
	APIKey       string        `env:"API_KEY" validate:"required"`
	BaseURL      string        `env:"BASE_URL" validate:"omitempty,url"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s" validate:"gte=0"`
	Retries      int           `env:"RETRIES" envDefault:"0" validate:"gte=0"`
	PollPeriod   time.Duration `env:"POLL_PERIOD" envDefault:"5s" validate:"gte=0"`
	PollAttempts int           `env:"POLL_ATTEMPTS" envDefault:"10" validate:"min=1"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
	LogFile        string `env:"LOG_FILE"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// loadSettings reads settings from the configured environment. Variables
// from the env file never override ones already set.
func loadSettings(cfg Config) (Settings, error) {
	environ := maps.Clone(cfg.Env)
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}

	if cfg.EnvFile != "" {
		fileVars, err := godotenv.Read(cfg.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("read %s: %w", cfg.EnvFile, err)
		}
		for k, v := range fileVars {
			if _, ok := environ[k]; !ok {
				environ[k] = v
			}
		}
	}

	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{
		Prefix:      envPrefix,
		Environment: environ,
	}); err != nil {
		return Settings{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := validate.Struct(s); err != nil {
		return Settings{}, settingsError(err)
	}
	return s, nil
}

// envNames maps Settings field names to their variables.
var envNames = map[string]string{
	"APIKey":       "API_KEY",
	"BaseURL":      "BASE_URL",
	"Timeout":      "TIMEOUT",
	"Retries":      "RETRIES",
	"PollPeriod":   "POLL_PERIOD",
	"PollAttempts": "POLL_ATTEMPTS",
	"LogLevel":     "LOG_LEVEL",
}

func settingsError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid settings: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := envPrefix + envNames[fe.Field()]
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, name+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", name, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s=%s)", name, fe.Tag(), fe.Param()))
		}
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}
