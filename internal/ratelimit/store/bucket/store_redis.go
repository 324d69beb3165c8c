package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cubby/internal/ratelimit/models"
)

const redisKeyPrefix = "cubby:"

// RedisStore is a fixed-window counter shared across instances. The fixed
// window trades the sliding window's precision for a single INCR per check,
// which is what keeps the hot path one round trip.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed bucket store. The client
// lifecycle is managed by the caller.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Allow records one request against the key's budget. The counter key is
// suffixed with the window number so expiry and windowing agree.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := time.Now()
	windowID := now.UnixNano() / int64(window)
	redisKey := fmt.Sprintf("%s%s:%d", redisKeyPrefix, key, windowID)

	pipe := s.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	// Expire a little past the window so a clock skewed reader still sees it.
	pipe.Expire(ctx, redisKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis rate limit check: %w", err)
	}

	used := int(count.Val())
	resetAt := time.Unix(0, (windowID+1)*int64(window))
	if used > limit {
		return &models.RateLimitResult{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(resetAt, now),
		}, nil
	}
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - used,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the current window's counter for a key. Past windows expire
// on their own.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+key+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis rate limit reset: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis rate limit reset scan: %w", err)
	}
	return nil
}
