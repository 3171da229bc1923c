package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/warden/ports"
)

// RedisLocker is a Redis implementation of the RefreshLocker interface.
// SET NX with a TTL gives cross-instance mutual exclusion; the TTL bounds
// how long a crashed holder can block other instances.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker creates a new Redis locker
func NewRedisLocker(client *redis.Client) ports.RefreshLocker {
	return &RedisLocker{
		client: client,
		prefix: "warden:refresh-lock:",
	}
}

// TryLock acquires the lock for key, returning false if already held
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire refresh lock: %w", err)
	}

	return ok, nil
}

// Unlock releases the lock for key
func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release refresh lock: %w", err)
	}

	return nil
}
