/*
Package config loads server configuration.

PURPOSE:
  Configuration comes from an optional YAML file, with defaults that
  work out of the box. Command-line flags in cmd/server override the
  file for the common knobs (port, database path).

EXAMPLE FILE:
  addr: ":8080"
  db_path: "./data/loyalty.db"
  log_level: "info"
  cors:
    allowed_origins:
      - "http://localhost:5173"
*/
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all server settings.
type Config struct {
	Addr     string `yaml:"addr"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{
		Addr:     ":8080",
		DBPath:   "loyalty.db",
		LogLevel: "info",
	}
	cfg.CORS.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	return cfg
}

// Load reads the YAML file at path over the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
