package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/searchiq/storefront/internal/domain/providers"
	"github.com/searchiq/storefront/internal/infrastructure/observability"
)

// JSONCache stores JSON-encoded values in a CacheProvider and records hit/miss metrics.
type JSONCache struct {
	provider providers.CacheProvider
	metrics  *observability.Metrics
}

// NewJSONCache wraps provider.
func NewJSONCache(provider providers.CacheProvider, metrics *observability.Metrics) *JSONCache {
	return &JSONCache{provider: provider, metrics: metrics}
}

// Get decodes the cached value into out. It reports false on a miss. A value
// that no longer decodes is evicted and reported as a miss.
func (c *JSONCache) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.provider.Get(ctx, key)
	if errors.Is(err, providers.ErrCacheMiss) {
		observability.RecordCacheMiss(ctx, c.metrics, key)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		observability.RecordCacheMiss(ctx, c.metrics, key)
		if err := c.provider.Delete(ctx, key); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("failed to evict undecodable cache entry")
		}
		return false, nil
	}
	observability.RecordCacheHit(ctx, c.metrics, key)
	return true, nil
}

// Set encodes value and stores it for ttlSeconds.
func (c *JSONCache) Set(ctx context.Context, key string, value interface{}, ttlSeconds int) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.provider.Set(ctx, key, data, ttlSeconds)
}
