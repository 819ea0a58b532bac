// Package config loads stash settings from a YAML file with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const appName = "stash"

// Config holds all stash settings
type Config struct {
	// DatabasePath is the SQLite file. Defaults to $XDG_DATA_HOME/stash/stash.db.
	DatabasePath string `yaml:"database_path"`

	// SeedSamples inserts the starter tag groups and collections when the
	// catalog tables are first created.
	SeedSamples bool `yaml:"seed_samples"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // "stderr" writes to the terminal
}

// DefaultConfig returns the settings used when no file exists
func DefaultConfig() *Config {
	dataDir := DataDir()
	return &Config{
		DatabasePath: filepath.Join(dataDir, appName+".db"),
		SeedSamples:  true,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   filepath.Join(dataDir, appName+".log"),
		},
	}
}

// DataDir returns the application data directory, using the XDG data
// directory or falling back to ~/.local/share
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, appName)
}

// DefaultPath returns the config file location
func DefaultPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, appName, "config.yaml")
}

// Load reads the config at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config to path, creating its directory
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STASH_DB_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("STASH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STASH_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks the settings
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database_path is required")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}
