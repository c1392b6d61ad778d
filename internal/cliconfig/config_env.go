package cliconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of all environment overrides.
const EnvPrefix = "RICKMORTY"

// NewEnv returns a viper instance reading RICKMORTY_* variables.
// Keys use underscores: base_url reads RICKMORTY_BASE_URL.
func NewEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyEnvConfig applies environment overrides. Explicitly set flags win.
func ApplyEnvConfig(cfg *Config, v *viper.Viper, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("base-url", v.GetString("base_url"), &cfg.BaseURL)
	s.setString("user-agent", v.GetString("user_agent"), &cfg.UserAgent)
	s.setString("redis-addr", v.GetString("redis_addr"), &cfg.RedisAddr)
	s.setString("log-level", v.GetString("log_level"), &cfg.LogLevel)
	s.setString("listen", v.GetString("listen"), &cfg.ListenAddr)

	timeout, err := envDuration(v, "timeout")
	if err != nil {
		return err
	}
	s.setDurationValue("timeout", timeout, &cfg.Timeout)

	for _, e := range []struct {
		flag, key string
		dst       *int
	}{
		{"redis-db", "redis_db", &cfg.RedisDB},
		{"page-size", "page_size", &cfg.PageSize},
		{"prefetch-distance", "prefetch_distance", &cfg.PrefetchDistance},
	} {
		n, err := envInt(v, e.key)
		if err != nil {
			return err
		}
		s.setNonNegInt(e.flag, n, e.dst)
	}

	for _, e := range []struct {
		flag, key string
		dst       *bool
	}{
		{"dedup", "dedup", &cfg.Dedup},
		{"log-pretty", "log_pretty", &cfg.LogPretty},
	} {
		b, err := envBool(v, e.key)
		if err != nil {
			return err
		}
		s.setBool(e.flag, b, e.dst)
	}

	return nil
}

// envInt returns the typed value of key, nil when unset.
func envInt(v *viper.Viper, key string) (*int, error) {
	if !v.IsSet(key) {
		return nil, nil
	}
	n, err := cast.ToIntE(v.Get(key))
	if err != nil {
		return nil, fmt.Errorf("parse %s_%s: %w", EnvPrefix, strings.ToUpper(key), err)
	}
	return &n, nil
}

func envBool(v *viper.Viper, key string) (*bool, error) {
	if !v.IsSet(key) {
		return nil, nil
	}
	b, err := cast.ToBoolE(v.Get(key))
	if err != nil {
		return nil, fmt.Errorf("parse %s_%s: %w", EnvPrefix, strings.ToUpper(key), err)
	}
	return &b, nil
}

func envDuration(v *viper.Viper, key string) (*time.Duration, error) {
	if !v.IsSet(key) {
		return nil, nil
	}
	d, err := cast.ToDurationE(v.Get(key))
	if err != nil {
		return nil, fmt.Errorf("parse %s_%s: %w", EnvPrefix, strings.ToUpper(key), err)
	}
	return &d, nil
}
