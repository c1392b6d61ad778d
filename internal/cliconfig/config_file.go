package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	BaseURL          string `toml:"base_url"`
	UserAgent        string `toml:"user_agent"`
	Timeout          string `toml:"timeout"`
	RedisAddr        string `toml:"redis_addr"`
	RedisDB          *int   `toml:"redis_db"`
	PageSize         int    `toml:"page_size"`
	PrefetchDistance *int   `toml:"prefetch_distance"`
	Dedup            *bool  `toml:"dedup"`
	LogLevel         string `toml:"log_level"`
	LogPretty        *bool  `toml:"log_pretty"`
	ListenAddr       string `toml:"listen"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.rickmorty/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rickmorty", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("base-url", fc.BaseURL, &cfg.BaseURL)
	s.setString("user-agent", fc.UserAgent, &cfg.UserAgent)
	s.setString("redis-addr", fc.RedisAddr, &cfg.RedisAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)

	if err := s.setDuration("timeout", fc.Timeout, &cfg.Timeout); err != nil {
		return err
	}

	s.setInt("page-size", fc.PageSize, &cfg.PageSize)
	s.setNonNegInt("redis-db", fc.RedisDB, &cfg.RedisDB)
	s.setNonNegInt("prefetch-distance", fc.PrefetchDistance, &cfg.PrefetchDistance)

	s.setBool("dedup", fc.Dedup, &cfg.Dedup)
	s.setBool("log-pretty", fc.LogPretty, &cfg.LogPretty)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
