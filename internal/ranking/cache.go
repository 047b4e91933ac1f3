package ranking

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openfleet/fleetmeter/internal/cache"
	"github.com/openfleet/fleetmeter/internal/encoding"
)

// rankingCache wraps the generic TTL cache with JSON marshaling and
// company-scoped keys.
type rankingCache struct {
	cache *cache.Cache
	codec *encoding.Codec
	ttl   time.Duration
}

func newRankingCache(ttl time.Duration) *rankingCache {
	return &rankingCache{
		cache: cache.NewCache(ttl),
		codec: encoding.NewCodec(),
		ttl:   ttl,
	}
}

func cacheKey(companyID string, limit int) string {
	return fmt.Sprintf("ranking:%s:%d", companyID, limit)
}

func (c *rankingCache) get(companyID string, limit int) (*RankingResponse, bool) {
	data, found := c.cache.Get(cacheKey(companyID, limit))
	if !found {
		return nil, false
	}

	var response RankingResponse
	if err := c.codec.Unmarshal(data, &response); err != nil {
		slog.Warn("Failed to unmarshal cached ranking", "error", err, "company_id", companyID)
		return nil, false
	}

	return &response, true
}

func (c *rankingCache) set(companyID string, limit int, response *RankingResponse) {
	data, err := c.codec.Marshal(response)
	if err != nil {
		slog.Warn("Failed to marshal ranking for cache", "error", err, "company_id", companyID)
		return
	}

	c.cache.Set(cacheKey(companyID, limit), data)
}

func (c *rankingCache) invalidateCompany(companyID string) {
	c.cache.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, "ranking:"+companyID+":")
	})
}

func (c *rankingCache) invalidateAll() {
	c.cache.Clear()
}

func (c *rankingCache) stats() map[string]interface{} {
	s := c.cache.Stats()
	s["ttl_seconds"] = int(c.ttl.Seconds())
	return s
}
