// Package config loads the service configuration from an optional
// YAML file, with defaults matching the local single-user deployment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string `yaml:"addr"`
	// AllowedOrigins is the CORS allow-list for the frontend.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// Sync configures optional git auto-commit of the vault.
	Sync SyncConfig `yaml:"sync"`
}

// SyncConfig configures the vault git sync.
type SyncConfig struct {
	Enabled  bool   `yaml:"enabled"`
	RepoPath string `yaml:"repo_path"`
	Push     bool   `yaml:"push"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Addr:           ":8000",
		AllowedOrigins: []string{"http://localhost:3001"},
	}
}

// Load reads the config file at path, layering it over the defaults.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if c.Sync.Enabled && c.Sync.RepoPath == "" {
		return fmt.Errorf("sync.repo_path is required when sync is enabled")
	}
	return nil
}
