package cache

import (
	"context"
	"time"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/platform/logx"
)

// AttributionCache adapts a Store to ports.AttributionCache.
// Only resolved records are written; failures are always looked up again.
type AttributionCache struct {
	store  Store[*domain.AttributionRecord]
	ttl    time.Duration
	logger logx.Logger
}

// NewAttributionCache wraps store with the given TTL.
func NewAttributionCache(store Store[*domain.AttributionRecord], ttl time.Duration, logger logx.Logger) *AttributionCache {
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &AttributionCache{
		store:  store,
		ttl:    ttl,
		logger: logger.With("component", "cache"),
	}
}

// Get returns a copy of the cached record flagged as cached.
// Backend errors degrade to a miss.
func (c *AttributionCache) Get(ctx context.Context, key string) (*domain.AttributionRecord, bool) {
	rec, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err.Error())
		return nil, false
	}
	if !ok || !rec.OK() {
		return nil, false
	}
	out := rec.Clone()
	out.Cached = true
	return out, true
}

// Set stores rec if it resolved successfully.
func (c *AttributionCache) Set(ctx context.Context, rec *domain.AttributionRecord) {
	if !rec.OK() || rec.Cached {
		return
	}
	if err := c.store.Set(ctx, rec.Key, rec.Clone(), c.ttl); err != nil {
		c.logger.Warn("cache write failed", "key", rec.Key, "error", err.Error())
	}
}
