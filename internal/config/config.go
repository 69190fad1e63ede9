// Package config provides the YAML configuration for the dayplan daemon.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrInvalidStoreBackend = errors.New("store.backend must be 'memory' or 'sqlite'")
	ErrMissingSQLitePath   = errors.New("store.path is required for the sqlite backend")
	ErrMissingPollSpec     = errors.New("notify.poll must not be empty")
	ErrInvalidTimezone     = errors.New("notify.timezone is not a valid IANA zone")
	ErrInvalidLogLevel     = errors.New("log_level must be one of: debug, info, warn, error")
)

// StoreConfig selects and parameterizes the event store backend.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	// Path is the sqlite database file. Ignored by the memory backend.
	Path string `yaml:"path"`
}

// NotifyConfig controls the notification polling loop.
type NotifyConfig struct {
	// Poll is a six-field cron spec (with seconds) for the polling cadence.
	Poll string `yaml:"poll"`
	// Timezone is the IANA zone notification instants are computed in.
	// Empty means the process-local zone.
	Timezone string `yaml:"timezone"`
}

// Config is the top-level daemon configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Notify NotifyConfig `yaml:"notify"`

	// SeedICS is an optional ICS file imported into the store at startup.
	SeedICS string `yaml:"seed_ics"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the in-memory default configuration: memory store,
// one poll per second, local timezone.
func DefaultConfig() *Config {
	return &Config{
		Store:  StoreConfig{Backend: "memory"},
		Notify: NotifyConfig{Poll: "* * * * * *"},

		LogLevel: "info",
	}
}

// Load reads the configuration file at path. A missing file is not an
// error: defaults are returned so a first run needs no setup.
func Load(path string) (*Config, error) {
	conf := DefaultConfig()
	if path == "" {
		return conf, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return conf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return ErrMissingSQLitePath
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidStoreBackend, c.Store.Backend)
	}

	if c.Notify.Poll == "" {
		return ErrMissingPollSpec
	}
	if c.Notify.Timezone != "" {
		if _, err := time.LoadLocation(c.Notify.Timezone); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTimezone, c.Notify.Timezone)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return nil
}

// Location resolves the configured notification timezone. Validate must have
// accepted the config first.
func (c *Config) Location() *time.Location {
	if c.Notify.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Notify.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
