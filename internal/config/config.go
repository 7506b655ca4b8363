package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration, loaded from the environment with
// an optional .env file.
type Config struct {
	Port                 string `mapstructure:"PORT"`
	Env                  string `mapstructure:"ENV"`
	BaseURL              string `mapstructure:"HCUP_BASE_URL"`
	CacheDir             string `mapstructure:"CACHE_DIR"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32  `mapstructure:"DB_MIN_CONNS"`
	ProbeTimeoutSeconds  int    `mapstructure:"PROBE_TIMEOUT_SECONDS"`
	FetchTimeoutSeconds  int    `mapstructure:"FETCH_TIMEOUT_SECONDS"`
	VersionCacheTTLHours int    `mapstructure:"VERSION_CACHE_TTL_HOURS"`
	VersionListTTLHours  int    `mapstructure:"VERSION_LIST_TTL_HOURS"`
}

// Load reads configuration from .env and the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("HCUP_BASE_URL", "https://hcup-us.ahrq.gov/toolssoftware/ccsr/")
	v.SetDefault("CACHE_DIR", ".hcup-cache")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("PROBE_TIMEOUT_SECONDS", 4)
	v.SetDefault("FETCH_TIMEOUT_SECONDS", 30)
	v.SetDefault("VERSION_CACHE_TTL_HOURS", 6)
	v.SetDefault("VERSION_LIST_TTL_HOURS", 24)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("HCUP_BASE_URL")
	v.BindEnv("CACHE_DIR")
	v.BindEnv("REDIS_URL")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("PROBE_TIMEOUT_SECONDS")
	v.BindEnv("FETCH_TIMEOUT_SECONDS")
	v.BindEnv("VERSION_CACHE_TTL_HOURS")
	v.BindEnv("VERSION_LIST_TTL_HOURS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("HCUP_BASE_URL must not be empty")
	}

	return cfg, nil
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ProbeTimeout returns the existence-check deadline as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// FetchTimeout returns the content-fetch deadline as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// VersionCacheTTL returns the freshness window for single-version lookups.
func (c *Config) VersionCacheTTL() time.Duration {
	return time.Duration(c.VersionCacheTTLHours) * time.Hour
}

// VersionListTTL returns the freshness window for version enumeration.
func (c *Config) VersionListTTL() time.Duration {
	return time.Duration(c.VersionListTTLHours) * time.Hour
}
