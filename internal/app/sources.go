package app

import (
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/guttosm/finfetch/config"
	"github.com/guttosm/finfetch/internal/cache"
	"github.com/guttosm/finfetch/internal/collector"
	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/ingestion"
	"github.com/guttosm/finfetch/internal/source"
)

// BuildRegistry creates the source registry from the provider settings.
//
// Behavior:
//   - Creates one adapter per enabled provider, each with its own limiter and the configured retry policy.
//   - Wraps every adapter in the Redis series cache when rdb is non-nil.
//   - Adds the local file adapter when a history directory is configured; it is never cached.
//
// Parameters:
//   - cfg (config.Config): application configuration.
//   - rdb (redis.Cmdable): series cache client, or nil.
//   - opts (...source.Option): extra options applied to every HTTP adapter.
//
// Returns:
//   - *collector.Registry: the adapters in priority order.
//   - error: when a provider is unknown or misconfigured, or nothing is enabled.
func BuildRegistry(cfg config.Config, rdb redis.Cmdable, opts ...source.Option) (*collector.Registry, error) {
	scs := make([]models.SourceConfig, 0, len(cfg.Providers))
	for _, sc := range cfg.SourceConfigs() {
		if sc.Enabled {
			scs = append(scs, sc)
		}
	}
	sort.Slice(scs, func(i, j int) bool {
		if scs[i].Priority != scs[j].Priority {
			return scs[i].Priority < scs[j].Priority
		}
		return scs[i].Name < scs[j].Name
	})

	retry := source.RetryPolicy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}

	reg := collector.NewRegistry()
	for _, sc := range scs {
		a, err := source.New(sc, append([]source.Option{source.WithRetry(retry)}, opts...)...)
		if err != nil {
			return nil, err
		}
		if rdb != nil {
			a = cache.NewCachingAdapter(rdb, cfg.Redis.TTL, a)
		}
		if err := reg.Register(a, sc.Priority); err != nil {
			return nil, err
		}
	}
	if cfg.Files.Dir != "" {
		if err := reg.Register(ingestion.NewFileAdapter(cfg.Files.Dir), cfg.Files.Priority); err != nil {
			return nil, err
		}
	}
	if reg.Len() == 0 {
		return nil, fmt.Errorf("%w: enable at least one provider", models.ErrNoSourcesConfigured)
	}
	return reg, nil
}
