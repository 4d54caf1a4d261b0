package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxFailures = 5
	defaultWindow      = 15 * time.Minute
)

// LoginLimiter counts failed logins per username in Redis.
// Key format: login:fail:<username>
//
// A nil *LoginLimiter is valid and never blocks anyone.
type LoginLimiter struct {
	client      redis.Cmdable
	maxFailures int64
	window      time.Duration
}

// NewLoginLimiter creates a LoginLimiter wrapping client. The counter for a
// username expires window after its first failure.
func NewLoginLimiter(client redis.Cmdable, maxFailures int, window time.Duration) *LoginLimiter {
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &LoginLimiter{client: client, maxFailures: int64(maxFailures), window: window}
}

// Blocked reports whether username reached the failure limit.
func (l *LoginLimiter) Blocked(ctx context.Context, username string) (bool, error) {
	if l == nil {
		return false, nil
	}
	n, err := l.client.Get(ctx, l.key(username)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("login limiter get: %w", err)
	}
	return n >= l.maxFailures, nil
}

// RecordFailure increments the counter. The key is created with the window
// TTL in the same transaction, so a counter never exists without an expiry.
func (l *LoginLimiter) RecordFailure(ctx context.Context, username string) error {
	if l == nil {
		return nil
	}
	key := l.key(username)

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, l.window)
		pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("login limiter record: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, username string) error {
	if l == nil {
		return nil
	}
	return l.client.Del(ctx, l.key(username)).Err()
}

func (l *LoginLimiter) key(username string) string {
	return "login:fail:" + username
}
