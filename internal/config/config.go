// Package config handles application configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AppName is the application directory name under XDG paths.
const AppName = "taskdeck"

// GoogleConfig holds the OAuth client used for the login flow.
// Tokens themselves live in the keyring, never in this file.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// UIConfig holds user interface settings
type UIConfig struct {
	ShowCompleted bool `yaml:"show_completed"`
}

// Config represents the application configuration
type Config struct {
	SnapshotPath string       `yaml:"snapshot_path"`
	Google       GoogleConfig `yaml:"google"`
	UI           UIConfig     `yaml:"ui"`
	Verbose      bool         `yaml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		SnapshotPath: filepath.Join(DefaultDataDir(), "tasks.json"),
		UI: UIConfig{
			ShowCompleted: true,
		},
	}
}

// Load reads the configuration file at path. A missing file yields
// the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = DefaultConfig().SnapshotPath
	}
	return cfg, nil
}

// DefaultConfigDir returns the configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// DefaultDataDir returns the data directory for the snapshot.
// Uses XDG_DATA_HOME if set, otherwise $HOME/.local/share.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".local", "share", AppName)
}

// DefaultConfigPath returns the path of the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}
