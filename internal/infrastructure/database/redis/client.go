// Package redis provides the cache client and the cached catalog resolver.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vigiamx/satavisos/internal/config"
	"github.com/vigiamx/satavisos/pkg/errors"
)

// NewClient opens and pings a redis connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "ping redis")
	}
	return client, nil
}
