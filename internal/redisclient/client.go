// Package redisclient builds the shared go-redis client.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"sidehug/internal/config"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client from configuration. No connection is made until
// the first command.
func New(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Ping checks connectivity within timeout and returns the server reply.
func Ping(ctx context.Context, rdb *redis.Client, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := rdb.Ping(ctx).Result()
	if err != nil {
		return "", fmt.Errorf("redis ping %s: %w", rdb.Options().Addr, err)
	}
	return res, nil
}
