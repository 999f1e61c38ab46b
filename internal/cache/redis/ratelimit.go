package redis

import (
	"context"
	"fmt"
	"time"
)

// rateKeyPrefix namespaces rate limiter counters.
const rateKeyPrefix = "rate:"

// RateLimiter implements a fixed-window request counter in Redis. One
// window per key; the first hit in a window sets the expiry.
type RateLimiter struct {
	client *Client
}

func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{client: c}
}

// Allow reports whether the caller identified by key is within limit
// requests for the current window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rdb := r.client.Underlying()
	k := rateKeyPrefix + key

	count, err := rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit incr %s: %w", key, err)
	}
	if count == 1 {
		if err := rdb.Expire(ctx, k, window).Err(); err != nil {
			return false, fmt.Errorf("redis: rate limit expire %s: %w", key, err)
		}
	}

	return count <= int64(limit), nil
}
