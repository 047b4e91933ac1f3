// Package config defines service configuration and its loading order.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir holds the SQLite database and anything else we persist.
	DataDir string `koanf:"data_dir"`

	// AllowedOrigins is the comma-separated CORS allowlist.
	AllowedOrigins string `koanf:"allowed_origins"`

	// JWTSecret signs operator session tokens.
	JWTSecret string `koanf:"jwt_secret"`

	// RedisURL enables Redis-backed rate limiting when set.
	RedisURL string `koanf:"redis_url"`

	// RateLimitPerMinute bounds requests per client per minute.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`

	// CacheTTLSeconds controls the risk-analysis response cache.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// RetentionDays is how long raw telemetry is kept before the daily
	// cleanup removes it. Zero disables cleanup.
	RetentionDays int `koanf:"retention_days"`

	// RankingRefreshMinutes sets the auto-refresh cadence of the driver
	// risk ranking cache. Zero disables auto-refresh.
	RankingRefreshMinutes int `koanf:"ranking_refresh_minutes"`

	// AlertWebhookURL receives critical-risk driver notifications when set.
	AlertWebhookURL string `koanf:"alert_webhook_url"`
}

// Defaults returns a Config with sane development defaults.
func Defaults() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":8080",
		DataDir:               "./data",
		AllowedOrigins:        "http://localhost:5173",
		JWTSecret:             "dev-secret-change-me",
		RateLimitPerMinute:    60,
		CacheTTLSeconds:       300,
		RetentionDays:         365,
		RankingRefreshMinutes: 10,
	}
}

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables.
// Order of precedence (low -> high):
//  1. defaults (Defaults())
//  2. file (YAML) if FLEETMETER_CONFIG is set
//  3. env (prefix FLEETMETER_)
func Load() (*Config, error) {
	base := Defaults()

	k := koanf.New(".")

	if path := os.Getenv("FLEETMETER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: FLEETMETER_ADDR, FLEETMETER_RETENTION_DAYS, ...
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("FLEETMETER_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "fleetmeter_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt_secret must not be empty")
	}
	return &cfg, nil
}

// CacheTTL returns the response-cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RankingRefresh returns the ranking auto-refresh interval as a duration.
func (c *Config) RankingRefresh() time.Duration {
	return time.Duration(c.RankingRefreshMinutes) * time.Minute
}

// Origins splits the CORS allowlist into its entries.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
