// Package config loads droproute settings from the environment and builds
// the process logger.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds settings shared by the CLI commands. Command-line flags
// override these values.
type Config struct {
	// DBPath is the run log database. Empty disables recording.
	DBPath string `env:"DROPROUTE_DB"`

	// NATSURL enables bus publishing when set.
	NATSURL           string        `env:"DROPROUTE_NATS_URL"`
	NATSSubject       string        `env:"DROPROUTE_NATS_SUBJECT" envDefault:"droproute.electrodes"`
	NATSMaxReconnects int           `env:"DROPROUTE_NATS_MAX_RECONNECTS" envDefault:"-1"`
	NATSReconnectWait time.Duration `env:"DROPROUTE_NATS_RECONNECT_WAIT" envDefault:"2s"`

	LogLevel  string `env:"DROPROUTE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"DROPROUTE_LOG_FORMAT" envDefault:"text"`
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
