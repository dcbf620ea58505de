package redis

import (
	"context"
	"time"
)

// RateLimiter is a fixed-window counter per sender.
type RateLimiter struct {
	client RedisClient
	limit  int
	window time.Duration
}

func NewRateLimiter(client RedisClient, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Allow counts one command for phone. A non-positive limit allows everything.
func (r *RateLimiter) Allow(ctx context.Context, phone string) (bool, error) {
	if r.limit <= 0 {
		return true, nil
	}
	key := CommandKey(phone)
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window); err != nil {
			return false, err
		}
	}

	return count <= int64(r.limit), nil
}

func CommandKey(phone string) string {
	return "rate_limit:" + phone
}
