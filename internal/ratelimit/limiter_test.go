package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfleet/fleetmeter/internal/monitoring"
)

func newFallbackLimiter(cfg Config) *RateLimiter {
	return NewRateLimiter(&RedisClient{enabled: false}, cfg, monitoring.NewMetrics(), nil)
}

func TestAllowIPFallbackBlocksAfterBurst(t *testing.T) {
	limiter := newFallbackLimiter(Config{
		IPLimitPerMin:      10,
		ImportLimitPerHour: 5,
		BurstMultiplier:    2,
	})

	ctx := context.Background()

	// Burst capacity is limit * multiplier; the bucket starts full.
	allowed := 0
	var blocked *Result
	for i := 0; i < 30; i++ {
		result, err := limiter.AllowIP(ctx, "203.0.113.7")
		require.NoError(t, err)
		if result.Allowed {
			allowed++
		} else if blocked == nil {
			blocked = result
		}
	}

	assert.Equal(t, 20, allowed)
	require.NotNil(t, blocked)
	assert.Equal(t, 10, blocked.Limit)
	assert.Greater(t, blocked.RetryAfter, time.Duration(0))
}

func TestAllowIPIsolatesAddresses(t *testing.T) {
	limiter := newFallbackLimiter(Config{
		IPLimitPerMin:   2,
		BurstMultiplier: 1,
	})

	ctx := context.Background()

	// Exhaust one address.
	for i := 0; i < 10; i++ {
		_, err := limiter.AllowIP(ctx, "198.51.100.1")
		require.NoError(t, err)
	}
	exhausted, err := limiter.AllowIP(ctx, "198.51.100.1")
	require.NoError(t, err)
	assert.False(t, exhausted.Allowed)

	// A different address starts with a fresh bucket.
	fresh, err := limiter.AllowIP(ctx, "198.51.100.2")
	require.NoError(t, err)
	assert.True(t, fresh.Allowed)
}

func TestAllowImportSeparateFromIPLimit(t *testing.T) {
	limiter := newFallbackLimiter(Config{
		IPLimitPerMin:      1,
		ImportLimitPerHour: 3,
		BurstMultiplier:    1,
	})

	ctx := context.Background()

	// Drain the IP bucket entirely.
	for i := 0; i < 10; i++ {
		_, err := limiter.AllowIP(ctx, "192.0.2.1")
		require.NoError(t, err)
	}

	// The company import bucket is untouched.
	result, err := limiter.AllowImport(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 3, result.Limit)
}

func TestAllowImportBlocksCompany(t *testing.T) {
	limiter := newFallbackLimiter(Config{
		ImportLimitPerHour: 2,
		BurstMultiplier:    1,
	})

	ctx := context.Background()

	allowed := 0
	for i := 0; i < 20; i++ {
		result, err := limiter.AllowImport(ctx, "acme")
		require.NoError(t, err)
		if result.Allowed {
			allowed++
		}
	}

	// Burst floor is 5 even for small limits.
	assert.Equal(t, 5, allowed)

	// Another company is unaffected.
	other, err := limiter.AllowImport(ctx, "globex")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestFallbackRecordsMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(&RedisClient{enabled: false}, DefaultConfig(), metrics, nil)

	_, err := limiter.AllowIP(context.Background(), "203.0.113.9")
	require.NoError(t, err)

	stats := metrics.GetRateLimitStats()
	assert.Equal(t, int64(1), stats["fallback_count"])
}

func TestGetStatsFallbackMode(t *testing.T) {
	limiter := newFallbackLimiter(DefaultConfig())

	_, err := limiter.AllowIP(context.Background(), "203.0.113.10")
	require.NoError(t, err)

	stats := limiter.GetStats()
	assert.Equal(t, false, stats["redis_enabled"])
	assert.Equal(t, 1, stats["fallback_limiters"])
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 60, cfg.IPLimitPerMin)
	assert.Equal(t, 12, cfg.ImportLimitPerHour)
	assert.Equal(t, 2, cfg.BurstMultiplier)
}
