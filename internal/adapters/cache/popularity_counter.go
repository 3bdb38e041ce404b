package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/facilitysearch/internal/domain/providers"
	redisclient "github.com/zatekoja/facilitysearch/internal/infrastructure/clients/redis"
)

const popularityKeyPrefix = "popularity:"

// RedisPopularityCounter stores keyword search counts as plain Redis integers.
// Counters never expire.
type RedisPopularityCounter struct {
	client *redisclient.Client
}

// NewRedisPopularityCounter creates a popularity counter backed by Redis
func NewRedisPopularityCounter(client *redisclient.Client) providers.PopularityCounter {
	return &RedisPopularityCounter{client: client}
}

// PopularityKey is the Redis key holding the count for a keyword.
func PopularityKey(keyword string) string {
	return popularityKeyPrefix + strings.ToLower(keyword)
}

// Get returns the count, or 0 when the keyword was never searched
func (c *RedisPopularityCounter) Get(ctx context.Context, keyword string) (int64, error) {
	count, err := c.client.Client().Get(ctx, PopularityKey(keyword)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read popularity counter: %w", err)
	}
	return count, nil
}

// Increment atomically bumps the count
func (c *RedisPopularityCounter) Increment(ctx context.Context, keyword string) (int64, error) {
	count, err := c.client.Client().Incr(ctx, PopularityKey(keyword)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment popularity counter: %w", err)
	}
	return count, nil
}
