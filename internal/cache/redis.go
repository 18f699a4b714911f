// Package cache holds the flat availability projection in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var errMissingAddress = errors.New("redis address is required")

// Config locates the Redis server.
type Config struct {
	Address  string
	Password string
	DB       int
}

// RedisCache stores integer copy counts under string keys.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache connects and pings the server.
func NewRedisCache(ctx context.Context, cfg Config, logger *zap.Logger) (*RedisCache, error) {
	if cfg.Address == "" {
		return nil, errMissingAddress
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		// Store failures abort the run.
		MaxRetries: -1,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("redis cache initialized", zap.String("address", cfg.Address))
	return &RedisCache{client: client, logger: logger}, nil
}

// SetAvailability overwrites the value stored at key.
func (c *RedisCache) SetAvailability(ctx context.Context, key string, copies int) error {
	return c.client.Set(ctx, key, copies, 0).Err()
}

// Availability returns the value stored at key; ok is false when the key is absent.
func (c *RedisCache) Availability(ctx context.Context, key string) (int, bool, error) {
	copies, err := c.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return copies, true, nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
