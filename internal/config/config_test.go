package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 365, cfg.RetentionDays)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FLEETMETER_ADDR", ":9090")
	t.Setenv("FLEETMETER_LOG_LEVEL", "debug")
	t.Setenv("FLEETMETER_RETENTION_DAYS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30, cfg.RetentionDays)
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: "http://a.example, http://b.example,,"}
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Origins())
}
