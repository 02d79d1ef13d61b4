// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/objstore/lib/client"
)

// Config is the configuration of an object store client.
type Config struct {
	// StoreSocket is the Unix socket of the object store.
	// Default: /run/objstore/store.sock
	StoreSocket string `yaml:"store_socket"`

	// ManagerSocket is the Unix socket of the manager. Empty disables
	// fetch, transfer, wait and info.
	ManagerSocket string `yaml:"manager_socket"`

	// ReleaseDelay is how many releases are held back before the
	// oldest is sent to the store.
	// Default: 64
	ReleaseDelay int `yaml:"release_delay"`

	// CacheBudgetBytes caps the bytes kept mapped by deferred
	// releases.
	// Default: 100000000
	CacheBudgetBytes int64 `yaml:"cache_budget_bytes"`

	// ConnectRetries is how many extra connect attempts are made
	// while the store socket is not listening.
	// Default: 50
	ConnectRetries int `yaml:"connect_retries"`

	// ConnectRetryDelay is the pause between connect attempts, as a Go
	// duration string.
	// Default: 100ms
	ConnectRetryDelay time.Duration `yaml:"connect_retry_delay"`

	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		StoreSocket:       "/run/objstore/store.sock",
		ReleaseDelay:      client.DefaultReleaseDelay,
		CacheBudgetBytes:  client.DefaultCacheBudget,
		ConnectRetries:    client.DefaultConnectRetries,
		ConnectRetryDelay: client.DefaultConnectRetryDelay,
		LogLevel:          "info",
	}
}

// Load loads configuration from the file named by OBJSTORE_CONFIG.
// There is no fallback: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv("OBJSTORE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("OBJSTORE_CONFIG environment variable not set; " +
			"set it to the path of your objstore.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, on top of
// Default, and expands variables in the socket paths.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	c.StoreSocket = expandVars(c.StoreSocket)
	c.ManagerSocket = expandVars(c.ManagerSocket)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns from the
// environment. An unset or empty variable takes the default.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if c.StoreSocket == "" {
		errs = append(errs, errors.New("store_socket is required"))
	}
	if c.ReleaseDelay < 0 {
		errs = append(errs, fmt.Errorf("release_delay must not be negative, got %d", c.ReleaseDelay))
	}
	if c.CacheBudgetBytes <= 0 {
		errs = append(errs, fmt.Errorf("cache_budget_bytes must be positive, got %d", c.CacheBudgetBytes))
	}
	if c.ConnectRetries < 0 {
		errs = append(errs, fmt.Errorf("connect_retries must not be negative, got %d", c.ConnectRetries))
	}
	if c.ConnectRetryDelay < 0 {
		errs = append(errs, fmt.Errorf("connect_retry_delay must not be negative, got %s", c.ConnectRetryDelay))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("log_level must be one of debug, info, warn, error: got %q", c.LogLevel)
	}
	return level, nil
}

// ClientOptions converts the configuration to options for
// client.Connect. The logger is attached as given.
func (c *Config) ClientOptions(logger *slog.Logger) client.Options {
	return client.Options{
		StoreSocket:       c.StoreSocket,
		ManagerSocket:     c.ManagerSocket,
		ReleaseDelay:      c.ReleaseDelay,
		CacheBudget:       c.CacheBudgetBytes,
		ConnectRetries:    c.ConnectRetries,
		ConnectRetryDelay: c.ConnectRetryDelay,
		Logger:            logger,
	}
}
