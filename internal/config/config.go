// Package config loads pagesync settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lepinkainen/pagesync/pkg/filesystem"
	"github.com/lepinkainen/pagesync/pkg/urlutils"
	"github.com/spf13/viper"
)

// Config holds the central application configuration
type Config struct {
	// Collection is the default collection key (an artist id for the AIC API)
	Collection int `mapstructure:"collection" yaml:"collection"`

	API struct {
		BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
		Token       string        `mapstructure:"token" yaml:"token,omitempty"`
		Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
		RateLimit   time.Duration `mapstructure:"rate_limit" yaml:"rate_limit"` // minimum delay between calls
		Burst       int           `mapstructure:"burst" yaml:"burst"`
		MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	} `mapstructure:"api" yaml:"api"`

	Cache struct {
		Path      string        `mapstructure:"path" yaml:"path"`
		PageTTL   time.Duration `mapstructure:"page_ttl" yaml:"page_ttl"`
		PageSize  int           `mapstructure:"page_size" yaml:"page_size"`
		Retention time.Duration `mapstructure:"retention" yaml:"retention"` // 0 keeps pages forever
	} `mapstructure:"cache" yaml:"cache"`

	Connectivity struct {
		ProbeURL string        `mapstructure:"probe_url" yaml:"probe_url"`
		Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	} `mapstructure:"connectivity" yaml:"connectivity"`

	Log struct {
		Level string `mapstructure:"level" yaml:"level"`
		Color bool   `mapstructure:"color" yaml:"color"`
	} `mapstructure:"log" yaml:"log"`

	Server struct {
		Addr string `mapstructure:"addr" yaml:"addr"`
	} `mapstructure:"server" yaml:"server"`
}

// EnvPrefix prefixes environment overrides, e.g. PAGESYNC_API_TOKEN
const EnvPrefix = "PAGESYNC"

func setDefaults(v *viper.Viper) {
	v.SetDefault("collection", 34946)

	v.SetDefault("api.base_url", "https://api.artic.edu/api/v1")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 20*time.Second)
	v.SetDefault("api.rate_limit", time.Second)
	v.SetDefault("api.burst", 1)
	v.SetDefault("api.max_attempts", 3)

	v.SetDefault("cache.path", "")
	v.SetDefault("cache.page_ttl", 300*time.Second)
	v.SetDefault("cache.page_size", 20)
	v.SetDefault("cache.retention", 0)

	v.SetDefault("connectivity.probe_url", "")
	v.SetDefault("connectivity.interval", 15*time.Second)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.color", true)

	v.SetDefault("server.addr", "127.0.0.1:8080")
}

// resolvePath finds a relative config file in the current directory first,
// then next to the executable
func resolvePath(path string) string {
	if path == "" {
		path = "config.yaml"
	}

	if filepath.IsAbs(path) {
		return path
	}

	if _, err := os.Stat(path); err != nil {
		if execPath, err := os.Executable(); err == nil {
			candidate := filepath.Join(filepath.Dir(execPath), path)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return path
}

// LoadConfig loads the configuration from a file. A missing file is not an
// error; defaults and PAGESYNC_* environment variables still apply.
func LoadConfig(path string) (*Config, error) {
	path = resolvePath(path)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Cache.Path == "" {
		cachePath, err := filesystem.DefaultCachePath("cache.db")
		if err != nil {
			return nil, err
		}
		config.Cache.Path = cachePath
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error

	if !urlutils.IsValidURL(c.API.BaseURL) {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.Connectivity.ProbeURL != "" && !urlutils.IsValidURL(c.Connectivity.ProbeURL) {
		errs = append(errs, fmt.Errorf("connectivity.probe_url %q is not an absolute URL", c.Connectivity.ProbeURL))
	}
	if c.API.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("api.max_attempts must be at least 1, got %d", c.API.MaxAttempts))
	}
	if c.Cache.PageTTL < 0 {
		errs = append(errs, fmt.Errorf("cache.page_ttl must not be negative, got %v", c.Cache.PageTTL))
	}
	if c.Cache.PageSize < 1 || c.Cache.PageSize > 100 {
		errs = append(errs, fmt.Errorf("cache.page_size must be between 1 and 100, got %d", c.Cache.PageSize))
	}
	if c.Cache.Retention < 0 {
		errs = append(errs, fmt.Errorf("cache.retention must not be negative, got %v", c.Cache.Retention))
	}
	if c.Connectivity.Interval <= 0 {
		errs = append(errs, fmt.Errorf("connectivity.interval must be positive, got %v", c.Connectivity.Interval))
	}

	return errors.Join(errs...)
}

// ProbeURL returns the reachability probe target, defaulting to the API base URL
func (c *Config) ProbeURL() string {
	if c.Connectivity.ProbeURL != "" {
		return c.Connectivity.ProbeURL
	}
	return c.API.BaseURL
}

// SaveConfig writes the configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	path = resolvePath(path)

	if err := filesystem.EnsureDirectoryExists(path); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("collection", config.Collection)

	v.Set("api.base_url", config.API.BaseURL)
	v.Set("api.token", config.API.Token)
	v.Set("api.timeout", config.API.Timeout.String())
	v.Set("api.rate_limit", config.API.RateLimit.String())
	v.Set("api.burst", config.API.Burst)
	v.Set("api.max_attempts", config.API.MaxAttempts)

	v.Set("cache.path", config.Cache.Path)
	v.Set("cache.page_ttl", config.Cache.PageTTL.String())
	v.Set("cache.page_size", config.Cache.PageSize)
	v.Set("cache.retention", config.Cache.Retention.String())

	v.Set("connectivity.probe_url", config.Connectivity.ProbeURL)
	v.Set("connectivity.interval", config.Connectivity.Interval.String())

	v.Set("log.level", config.Log.Level)
	v.Set("log.color", config.Log.Color)

	v.Set("server.addr", config.Server.Addr)

	return v.WriteConfigAs(path)
}
