package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"TB_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"TB_DB_MAX_CONNS" default:"8"`

	BriefMaxMovers        int           `envconfig:"BRIEF_MAX_MOVERS" default:"5"`
	BriefMaxDowngrades    int           `envconfig:"BRIEF_MAX_DOWNGRADES" default:"5"`
	BriefMaxNewEntrants   int           `envconfig:"BRIEF_MAX_NEW_ENTRANTS" default:"10"`
	BriefNewEntrantWindow time.Duration `envconfig:"BRIEF_NEW_ENTRANT_WINDOW" default:"24h"`
	PermalinkBaseURL      string        `envconfig:"PERMALINK_BASE_URL" default:"https://example.invalid/servers"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMinConns < 0 {
		return fmt.Errorf("TB_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("TB_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("TB_DB_MIN_CONNS (%d) cannot exceed TB_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.BriefMaxMovers < 1 {
		return fmt.Errorf("BRIEF_MAX_MOVERS must be >= 1")
	}
	if c.BriefMaxDowngrades < 1 {
		return fmt.Errorf("BRIEF_MAX_DOWNGRADES must be >= 1")
	}
	if c.BriefMaxNewEntrants < 1 {
		return fmt.Errorf("BRIEF_MAX_NEW_ENTRANTS must be >= 1")
	}
	if c.BriefNewEntrantWindow <= 0 {
		return fmt.Errorf("BRIEF_NEW_ENTRANT_WINDOW must be > 0")
	}
	return nil
}

// RequireDatabase reports an error when store-backed commands have no DSN.
func (c *Config) RequireDatabase() error {
	if c == nil || strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}
