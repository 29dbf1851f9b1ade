// Package config loads the daemon configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration.
type Config struct {
	// Database is the SQLite file backing the local cache and outbox.
	Database string `yaml:"database"`

	Sync SyncConfig `yaml:"sync"`
	Log  LogConfig  `yaml:"log"`
}

// SyncConfig tunes the drain worker and scheduler.
type SyncConfig struct {
	// IntervalMinutes is the periodic safety-net drain cadence.
	IntervalMinutes int `yaml:"interval_minutes"`

	// MaxAttempts bounds whole-run retries within one sync run.
	MaxAttempts int `yaml:"max_attempts"`
}

// LogConfig controls slog output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database: "bandtrack.db",
		Sync: SyncConfig{
			IntervalMinutes: 15,
			MaxAttempts:     3,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks bounds on the tunables.
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.Sync.IntervalMinutes < 1 {
		return fmt.Errorf("sync.interval_minutes must be at least 1, got %d", c.Sync.IntervalMinutes)
	}
	if c.Sync.MaxAttempts < 1 || c.Sync.MaxAttempts > 10 {
		return fmt.Errorf("sync.max_attempts must be in 1..10, got %d", c.Sync.MaxAttempts)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
