// Package config loads runtime settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the knobs the CLI reads at startup. Every field has a
// default, so an empty environment is a working environment.
type Config struct {
	DBPath             string `env:"STORYKITT_DB"                   envDefault:"storykitt.db"`
	AuditWindow        int    `env:"STORYKITT_AUDIT_WINDOW"         envDefault:"20"`
	BankMaxAgeHours    int    `env:"STORYKITT_BANK_MAX_AGE_HOURS"   envDefault:"24"`
	BankMaxSizeBytes   int    `env:"STORYKITT_BANK_MAX_SIZE_BYTES"  envDefault:"10485760"`
	ContextMaxElements int    `env:"STORYKITT_CONTEXT_MAX_ELEMENTS" envDefault:"10"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
