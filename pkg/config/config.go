// Package config loads and validates the server configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (STATICD_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store configuration follows a type-switch pattern: the Store.Type
// field selects the backend, and only the matching type-specific map
// is decoded and used.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/staticd-io/staticd/internal/logger"
	"github.com/staticd-io/staticd/pkg/server"
)

// ErrConfigFile indicates the configuration file could not be read.
var ErrConfigFile = errors.New("cannot read config file")

// Config represents the complete server configuration.
type Config struct {
	// Logging controls log output behavior
	Logging logger.Config `mapstructure:"logging"`

	// Server contains the network-facing settings
	Server server.Config `mapstructure:"server"`

	// Site describes the served resource tree
	Site SiteConfig `mapstructure:"site"`

	// Store selects the resource backend and its configuration
	Store StoreConfig `mapstructure:"store"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SiteConfig describes the served resource tree.
type SiteConfig struct {
	// Root is the directory holding site resources. Required for the
	// filesystem store; used as the key namespace hint elsewhere.
	Root string `mapstructure:"root"`

	// HomePage is the resource served for a bare "/" target.
	HomePage string `mapstructure:"home_page"`
}

// StoreConfig selects the resource store backend.
//
// Only the type-specific section matching Type is used.
type StoreConfig struct {
	// Type specifies which store implementation to use
	// Valid values: filesystem, memory, badger, s3
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory badger s3"`

	// Filesystem is used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// Memory is used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger is used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`

	// S3 is used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns on metric collection and the /metrics endpoint
	Enabled bool `mapstructure:"enabled"`

	// Listen is the address for the /metrics endpoint
	Listen string `mapstructure:"listen"`
}

// Load reads, defaults, and validates the configuration.
//
// An empty configPath falls back to the default search locations; a
// missing file is acceptable and yields the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable and config file handling.
func setupViper(v *viper.Viper, configPath string) {
	// Example: STATICD_SERVER_PORT=8080
	v.SetEnvPrefix("STATICD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// No file is fine, defaults apply.
			return nil
		}
		return fmt.Errorf("%w: %v", ErrConfigFile, err)
	}

	return nil
}

// getConfigDir returns the configuration directory, preferring
// XDG_CONFIG_HOME over ~/.config.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "staticd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "staticd")
}
