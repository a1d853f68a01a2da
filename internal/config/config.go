// Package config loads the application configuration with layered sources:
// built-in defaults, then an optional YAML config file, then POKERPIPE_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where the config file is searched, in order.
var DefaultConfigPaths = []string{
	"pokerpipe.yaml",
	"pokerpipe.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "POKERPIPE_CONFIG"

const envPrefix = "POKERPIPE_"

type Config struct {
	// DatabasePath is the SQLite database file.
	DatabasePath string `koanf:"database_path"`
	// ReplayDir holds the raw session replay JSON documents.
	ReplayDir string `koanf:"replay_dir"`
	// MappingFile is the canonical-player mapping YAML source.
	MappingFile string `koanf:"mapping_file"`
	// MinSessions filters the enriched leaderboard to players seen in at
	// least this many sessions. 0 disables the filter.
	MinSessions int `koanf:"min_sessions"`
	Debug       bool `koanf:"debug"`
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath: "poker.db",
		ReplayDir:    "raw",
		MappingFile:  "player_map.yaml",
		MinSessions:  0,
		Debug:        false,
	}
}

// Load builds the configuration from defaults, optional file and env vars,
// in increasing priority.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// POKERPIPE_DATABASE_PATH -> database_path, etc. Keys are flat, so
	// underscores stay as-is.
	envProvider := env.Provider(envPrefix, ".", func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load config env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.MinSessions < 0 {
		return nil, fmt.Errorf("min_sessions must not be negative, got %d", cfg.MinSessions)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
