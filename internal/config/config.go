// Package config handles configuration loading for kalani.
// It supports XDG config paths, project-level overrides, and environment
// variables, plus the YAML worker catalog and routing rule files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the delegation engine.
type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Delegate DelegateConfig `mapstructure:"delegate"`
	Recovery RecoveryConfig `mapstructure:"recovery"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	// DataDir holds the state database and audit logs.
	DataDir string `mapstructure:"data_dir"`
	// Workers is the worker catalog YAML file.
	Workers string `mapstructure:"workers"`
	// Rules is the routing rule YAML file.
	Rules string `mapstructure:"rules"`
}

// DelegateConfig holds delegation defaults.
type DelegateConfig struct {
	// DefaultPriority is used when a submission does not set one and
	// no routing rule matched.
	DefaultPriority int `mapstructure:"default_priority"`
}

// RecoveryConfig holds stale-task recovery settings.
type RecoveryConfig struct {
	// StaleWindow is how long an in_progress task may go without a
	// status update before the sweeper moves it to blocked.
	StaleWindow time.Duration `mapstructure:"stale_window"`
	// SweepSchedule is the cron expression for the recovery sweep.
	SweepSchedule string `mapstructure:"sweep_schedule"`
}

// DBPath returns the state database path under the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.Paths.DataDir, "state.db")
}

// LogsDir returns the audit logs directory under the data dir.
func (c *Config) LogsDir() string {
	return filepath.Join(c.Paths.DataDir, "logs")
}

// Load loads configuration.
// Precedence (highest to lowest):
// 1. Environment variables (KALANI_*)
// 2. Project config (.kalani.yaml in current directory or parent)
// 3. User config (~/.config/kalani/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("KALANI")
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.data_dir", ".kalani")
	v.SetDefault("paths.workers", "workers.yaml")
	v.SetDefault("paths.rules", "rules.yaml")
	v.SetDefault("delegate.default_priority", 100)
	v.SetDefault("recovery.stale_window", time.Hour)
	v.SetDefault("recovery.sweep_schedule", "*/5 * * * *")
}

// getUserConfigDir returns the XDG config directory for kalani.
func getUserConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "kalani")
}

// findProjectConfig walks up from the working directory looking for
// .kalani.yaml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".kalani.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
