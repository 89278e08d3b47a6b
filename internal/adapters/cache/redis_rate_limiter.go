package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dontkillit/backend/internal/domain/providers"
)

// counterStore is the subset of the Redis API the rate limiter uses
type counterStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisRateLimiter is a fixed window counter shared by every API replica
type RedisRateLimiter struct {
	store  counterStore
	prefix string
}

// NewRedisRateLimiter creates a rate limiter whose keys live under prefix
func NewRedisRateLimiter(store counterStore, prefix string) providers.RateLimiter {
	return &RedisRateLimiter{store: store, prefix: prefix}
}

// Allow increments the counter of key. The window starts with the first call.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := l.prefix + key

	count, err := l.store.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.store.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= int64(limit), nil
}
