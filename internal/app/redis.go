package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guttosm/finfetch/config"
)

// InitRedis connects to the series cache described by cfg.Redis and pings it.
//
// Parameters:
//   - cfg (config.Config): application configuration.
//
// Returns:
//   - *redis.Client: the connected client.
//   - error: when the server cannot be reached; the client is closed first.
func InitRedis(cfg config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Redis.Addr(), err)
	}
	return rdb, nil
}

// redisOpener is an indirection used by Build; overridden in tests.
var redisOpener = InitRedis
