package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/maloquacious/tickmate/internal/logger"
	"github.com/maloquacious/tickmate/internal/store"
)

const (
	// DefaultConfigFile is looked up inside the data directory.
	DefaultConfigFile = "config.yaml"

	backupsSubdir = "backups"
)

// Config represents the tickmate configuration.
type Config struct {
	DataDir     string `yaml:"data_dir"`     // Holds the live database and config
	ExternalDir string `yaml:"external_dir"` // Named database snapshots (empty = <data_dir>/backups)
	LogLevel    string `yaml:"log_level"`    // debug, info, warn, error
}

// DefaultDataDir returns the default data directory (~/.tickmate).
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tickmate"), nil
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	dataDir, err := DefaultDataDir()
	if err != nil {
		dataDir = ".tickmate"
	}
	return &Config{
		DataDir:  dataDir,
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnvOverrides replaces settings with TICKMATE_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TICKMATE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("TICKMATE_EXTERNAL_DIR"); v != "" {
		c.ExternalDir = v
	}
	if v := os.Getenv("TICKMATE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// DatabasePath returns the path of the live database.
func (c *Config) DatabasePath() string {
	return store.GetDBPath(store.GetStorePath(c.DataDir))
}

// SnapshotDir returns the external snapshot directory.
func (c *Config) SnapshotDir() string {
	if c.ExternalDir != "" {
		return c.ExternalDir
	}
	return filepath.Join(c.DataDir, backupsSubdir)
}
