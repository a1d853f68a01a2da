package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != "poker.db" {
		t.Errorf("database path = %q, want poker.db", cfg.DatabasePath)
	}
	if cfg.ReplayDir != "raw" {
		t.Errorf("replay dir = %q, want raw", cfg.ReplayDir)
	}
	if cfg.MappingFile != "player_map.yaml" {
		t.Errorf("mapping file = %q, want player_map.yaml", cfg.MappingFile)
	}
	if cfg.MinSessions != 0 || cfg.Debug {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pokerpipe.yaml")
	content := "database_path: custom.db\nmin_sessions: 3\ndebug: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != "custom.db" {
		t.Errorf("database path = %q, want custom.db", cfg.DatabasePath)
	}
	if cfg.MinSessions != 3 {
		t.Errorf("min sessions = %d, want 3", cfg.MinSessions)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	// Unset keys keep their defaults.
	if cfg.ReplayDir != "raw" {
		t.Errorf("replay dir = %q, want raw", cfg.ReplayDir)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pokerpipe.yaml")
	if err := os.WriteFile(path, []byte("database_path: from-file.db\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("POKERPIPE_DATABASE_PATH", "from-env.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != "from-env.db" {
		t.Errorf("database path = %q, env must win over file", cfg.DatabasePath)
	}
}

func TestLoadRejectsNegativeMinSessions(t *testing.T) {
	t.Setenv("POKERPIPE_MIN_SESSIONS", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative min_sessions")
	}
}
