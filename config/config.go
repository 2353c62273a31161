// Package config loads the carousel tools' settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "SIGNIN_CAROUSEL_"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the settings shared by the carousel commands.
type Config struct {
	AdvanceInterval    time.Duration `env:"ADVANCE_INTERVAL" envDefault:"5s"`
	TransitionDuration time.Duration `env:"TRANSITION_DURATION" envDefault:"500ms"`
	RearmOnUnlock      bool          `env:"REARM_ON_UNLOCK" envDefault:"true"`

	// DeckFile is a YAML deck. Empty selects the built-in deck.
	DeckFile string `env:"DECK_FILE"`

	// AssetBaseURL resolves relative image references.
	AssetBaseURL string `env:"ASSET_BASE_URL" envDefault:"http://localhost:3000"`

	// MonitorPort of 0 picks a free port.
	MonitorPort int `env:"MONITOR_PORT" envDefault:"0"`

	// RecordPath enables the SQLite trace when set.
	RecordPath string `env:"RECORD_PATH"`

	// OTelEndpoint enables span export when set.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"signin-carousel"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		AdvanceInterval:    5 * time.Second,
		TransitionDuration: 500 * time.Millisecond,
		RearmOnUnlock:      true,
		AssetBaseURL:       "http://localhost:3000",
		ServiceName:        "signin-carousel",
	}
}

// Load reads the given .env files, then parses the environment. Files that do
// not exist are skipped. Variables already set in the environment win over
// the files.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the timings can drive a controller.
func (c Config) Validate() error {
	if c.AdvanceInterval <= 0 {
		return fmt.Errorf("%w: advance interval %v must be positive",
			ErrInvalidConfig, c.AdvanceInterval)
	}

	if c.TransitionDuration <= 0 {
		return fmt.Errorf("%w: transition duration %v must be positive",
			ErrInvalidConfig, c.TransitionDuration)
	}

	if c.MonitorPort < 0 || c.MonitorPort > 65535 {
		return fmt.Errorf("%w: monitor port %d out of range",
			ErrInvalidConfig, c.MonitorPort)
	}

	return nil
}
