package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

const (
	BackendMemory    = "memory"
	BackendJSONFile  = "jsonfile"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

type Config struct {
	Mode Mode   `env:"FARUM_MODE" envDefault:"local"`
	Port string `env:"FARUM_PORT" envDefault:"8080"`

	GCPProjectID string `env:"FARUM_GCP_PROJECT"`
	GCPLocation  string `env:"FARUM_GCP_LOCATION" envDefault:"us-central1"`
	ModelName    string `env:"FARUM_MODEL_NAME" envDefault:"gemini-2.5-flash-lite"`

	StorageBackend string `env:"FARUM_STORAGE_BACKEND" envDefault:"memory"` // memory, jsonfile, sqlite or firestore
	DataFile       string `env:"FARUM_DATA_FILE" envDefault:"users_data.json"`
	SQLitePath     string `env:"FARUM_SQLITE_PATH" envDefault:"farum.db"`

	// UseMockLLM is nil when unset so the mode can pick the default.
	UseMockLLM        *bool `env:"FARUM_USE_MOCK_LLM"`
	ReflectionEnabled bool  `env:"FARUM_REFLECTION_ENABLED" envDefault:"false"`

	SchedulerInterval    time.Duration `env:"FARUM_SCHEDULER_INTERVAL" envDefault:"24h"`
	SchedulerRunOnStart  bool          `env:"FARUM_SCHEDULER_RUN_ON_START" envDefault:"false"`
	SchedulerConcurrency int           `env:"FARUM_SCHEDULER_CONCURRENCY" envDefault:"4"`
	Timezone             string        `env:"FARUM_TIMEZONE" envDefault:"Local"`

	SessionShards int    `env:"FARUM_SESSION_SHARDS" envDefault:"32"`
	LogLevel      string `env:"FARUM_LOG_LEVEL" envDefault:"info"`
}

// Load reads all env vars and builds the config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Mode != ModeGCP {
		cfg.Mode = ModeLocal
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		return errors.New("FARUM_GCP_PROJECT must be set in gcp mode")
	}
	switch c.StorageBackend {
	case BackendMemory, BackendJSONFile, BackendSQLite:
	case BackendFirestore:
		if c.GCPProjectID == "" {
			return errors.New("FARUM_GCP_PROJECT is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.SchedulerInterval <= 0 {
		return errors.New("FARUM_SCHEDULER_INTERVAL must be positive")
	}
	if c.SchedulerConcurrency <= 0 {
		c.SchedulerConcurrency = 1
	}
	if c.SessionShards <= 0 {
		c.SessionShards = 1
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// MockLLM reports whether the mock LLM should be used.
// Defaults to true in local mode.
func (c *Config) MockLLM() bool {
	if c.UseMockLLM != nil {
		return *c.UseMockLLM
	}
	return c.Mode == ModeLocal
}

// Location resolves the calendar-day timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
