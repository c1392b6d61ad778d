// Package cliconfig resolves the rickmorty CLI configuration from flags,
// environment variables and an optional TOML file.
package cliconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
)

// DefaultUserAgent is sent when none is configured.
const DefaultUserAgent = "rickmorty-client/1.0"

// Config holds CLI configuration for rickmorty.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// RedisAddr enables the response cache when set.
	RedisAddr string
	RedisDB   int

	PageSize         int
	PrefetchDistance int
	Dedup            bool

	LogLevel  string
	LogPretty bool

	ListenAddr string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	paging := pagination.DefaultConfig()
	return Config{
		BaseURL:          client.DefaultBaseURL,
		UserAgent:        DefaultUserAgent,
		Timeout:          30 * time.Second,
		PageSize:         paging.PageSize,
		PrefetchDistance: paging.PrefetchDistance,
		Dedup:            paging.Dedup,
		LogLevel:         string(logging.LevelInfo),
		ListenAddr:       ":8080",
	}
}

// Validate checks the configuration for errors and normalizes values.
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.BaseURL == "" {
		return fmt.Errorf("base-url is required")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user-agent is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("redis-db must be >= 0")
	}
	paging := c.PagerConfig()
	if err := paging.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	c.LogLevel = string(level)

	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	return nil
}

// PagerConfig returns the paging settings.
func (c Config) PagerConfig() pagination.Config {
	return pagination.Config{
		PageSize:         c.PageSize,
		PrefetchDistance: c.PrefetchDistance,
		InitialLoadSize:  c.PageSize,
		Dedup:            c.Dedup,
	}
}

// LoggingConfig returns the logger settings.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setNonNegInt sets an int value if set and flag not changed. Zero is a valid value.
func (s *configSetter) setNonNegInt(flag string, value *int, dst *int) {
	if value == nil || *value < 0 || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDurationValue sets a duration from a pointer if not nil and flag not changed.
func (s *configSetter) setDurationValue(flag string, value *time.Duration, dst *time.Duration) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}
