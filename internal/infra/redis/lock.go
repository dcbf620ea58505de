package redis

import (
	"context"
	"time"

	"group-broadcast-gateway/internal/domain"

	"github.com/google/uuid"
)

// RedisLocker holds one broadcast lease per key across processes.
type RedisLocker struct {
	client  RedisClient
	retries int
	wait    time.Duration
}

func NewLocker(c RedisClient) *RedisLocker {
	return &RedisLocker{client: c, retries: 3, wait: 50 * time.Millisecond}
}

// TryLock returns domain.ErrBroadcastInProgress when another holder owns key.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	var lastErr error
	for i := 0; i < l.retries; i++ {
		ok, err := l.client.SetNX(ctx, key, token, ttl)
		if err == nil && ok {
			return token, nil
		}
		if err == nil {
			return "", domain.ErrBroadcastInProgress
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.wait):
		}
	}
	return "", lastErr
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := l.client.CompareAndDelete(ctx, key, token)
	return err
}
