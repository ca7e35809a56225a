// Package config provides configuration loading for sceneplay.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the sceneplay configuration file structure.
type Config struct {
	AssetRoot string  `yaml:"asset_root"`
	Speed     float64 `yaml:"speed"`
	Notify    bool    `yaml:"notify"`
	LogLevel  string  `yaml:"log_level"`
}

// DefaultConfig returns a config with the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		AssetRoot: "assets",
		Speed:     1.0,
		Notify:    false,
		LogLevel:  "info",
	}
}

// ConfigDir returns the sceneplay config directory (~/.sceneplay).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sceneplay")
}

// ConfigPath returns the path to the config file (~/.sceneplay/config.yaml).
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Load loads the config from ~/.sceneplay/config.yaml.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom loads the config at path. Returns the default config if the file
// doesn't exist; fields missing from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if config.Speed <= 0 || math.IsNaN(config.Speed) || math.IsInf(config.Speed, 0) {
		return nil, fmt.Errorf("invalid config %s: speed must be positive, got %v", path, config.Speed)
	}
	if config.AssetRoot == "" {
		config.AssetRoot = DefaultConfig().AssetRoot
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultConfig().LogLevel
	}

	return config, nil
}
