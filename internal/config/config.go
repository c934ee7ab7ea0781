// Package config loads the user configuration file. Every field has a
// sensible default so the client runs without any configuration at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Connection defaults, overridable by command line flags.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Completion cache refresh cadence.
	MetadataInterval time.Duration `yaml:"metadata_interval"`
	KeysInterval     time.Duration `yaml:"keys_interval"`
	RefreshTimeout   time.Duration `yaml:"refresh_timeout"`

	// KeyPattern limits which keys the key cache enumerates.
	KeyPattern string `yaml:"key_pattern"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Host:             "localhost",
		Port:             6379,
		MetadataInterval: 5 * time.Minute,
		KeysInterval:     30 * time.Second,
		RefreshTimeout:   5 * time.Second,
		KeyPattern:       "*",
		LogLevel:         "info",
	}
}

// Load reads the config file at path, applying defaults for everything the
// file leaves unset. A missing file yields the defaults; a malformed file
// is an error so typos do not silently vanish.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Guard against zeroed-out intervals from explicit "0" entries.
	defaults := Default()
	if cfg.MetadataInterval <= 0 {
		cfg.MetadataInterval = defaults.MetadataInterval
	}
	if cfg.KeysInterval <= 0 {
		cfg.KeysInterval = defaults.KeysInterval
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = defaults.RefreshTimeout
	}
	if cfg.KeyPattern == "" {
		cfg.KeyPattern = defaults.KeyPattern
	}
	if cfg.Host == "" {
		cfg.Host = defaults.Host
	}
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}

	return cfg, nil
}
