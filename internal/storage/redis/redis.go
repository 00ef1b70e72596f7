// Package redis provides Redis-backed invitation storage and a leaderboard
// cache using go-redis.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/sailor/internal/config"
)

const keyPrefix = "sailor:"

// NewClient connects to the Redis server named by cfg.
//
// Precondition: cfg.Addr must be non-empty.
// Postcondition: Returns a client that answered PING, or a non-nil error.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}
