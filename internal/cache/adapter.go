// Package cache provides a Redis read-through decorator for source adapters.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/logger"
	"github.com/guttosm/finfetch/internal/source"
)

const (
	defaultTTL       = 6 * time.Hour
	defaultNamespace = "rawseries"
)

// CachingAdapter decorates a source.Adapter with Redis caching.
// Only successful fetches are stored; failures always reach the provider.
type CachingAdapter struct {
	inner     source.Adapter
	rdb       redis.Cmdable
	ttl       time.Duration
	namespace string
	log       zerolog.Logger
}

var _ source.Adapter = (*CachingAdapter)(nil)

// NewCachingAdapter wraps inner with the Redis series cache.
//
// Behavior:
//   - Serves a fetch from Redis when the key for (source, symbol, window) exists.
//   - Otherwise delegates to inner and stores successful results for ttl.
//   - Treats unreadable entries as misses; store failures are logged, never returned.
//
// Parameters:
//   - rdb (redis.Cmdable): cache client; nil disables caching.
//   - ttl (time.Duration): entry lifetime; <= 0 uses 6h.
//   - inner (source.Adapter): the provider being cached.
//
// Returns:
//   - *CachingAdapter: an adapter with inner's name.
func NewCachingAdapter(rdb redis.Cmdable, ttl time.Duration, inner source.Adapter) *CachingAdapter {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &CachingAdapter{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: defaultNamespace,
		log:       logger.Component("cache"),
	}
}

// Name reports the wrapped adapter's name so priorities and reports are unchanged.
func (c *CachingAdapter) Name() string { return c.inner.Name() }

// Fetch checks the cache first and falls back to the wrapped adapter.
func (c *CachingAdapter) Fetch(ctx context.Context, symbol models.Symbol, start, end time.Time) (models.RawSeries, error) {
	if c.rdb == nil {
		return c.inner.Fetch(ctx, symbol, start, end)
	}

	key := c.key(symbol, start, end)
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var rs models.RawSeries
		if err := json.Unmarshal(b, &rs); err == nil {
			c.log.Debug().Str("key", key).Int("points", len(rs.Points)).Msg("cache hit")
			return rs, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	rs, err := c.inner.Fetch(ctx, symbol, start, end)
	if err != nil {
		return models.RawSeries{}, err
	}

	if b, err := json.Marshal(rs); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.log.Warn().Str("key", key).Err(err).Msg("cache store failed")
		}
	}
	return rs, nil
}

// Invalidate removes every cached window of symbol for this source.
func (c *CachingAdapter) Invalidate(ctx context.Context, symbol models.Symbol) error {
	if c.rdb == nil {
		return nil
	}
	pattern := fmt.Sprintf("%s:%s:%s:*", c.namespace, safe(c.inner.Name()), safe(symbol.String()))
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete %d keys: %w", len(keys), err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *CachingAdapter) key(symbol models.Symbol, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s",
		c.namespace,
		safe(c.inner.Name()),
		safe(symbol.String()),
		start.Format(models.DateLayout),
		end.Format(models.DateLayout),
	)
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
