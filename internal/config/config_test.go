package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
database: /var/lib/bandtrack/cache.db
sync:
  interval_minutes: 5
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database != "/var/lib/bandtrack/cache.db" {
		t.Errorf("database = %q", cfg.Database)
	}
	if cfg.Sync.IntervalMinutes != 5 {
		t.Errorf("interval = %d, want 5", cfg.Sync.IntervalMinutes)
	}
	// Untouched keys keep their defaults.
	if cfg.Sync.MaxAttempts != 3 {
		t.Errorf("max attempts = %d, want default 3", cfg.Sync.MaxAttempts)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level = %q", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"zero interval", "sync:\n  interval_minutes: 0\n"},
		{"attempts too high", "sync:\n  max_attempts: 11\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"empty database", "database: \"\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.doc), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected read error")
	}
}
