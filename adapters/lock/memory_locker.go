package lock

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/warden/ports"
)

// MemoryLocker is an in-memory implementation of the RefreshLocker
// interface. Suitable for single-instance deployments and tests; it cannot
// coordinate refreshes across instances.
type MemoryLocker struct {
	held map[string]time.Time
	mu   sync.Mutex
}

// NewMemoryLocker creates a new in-memory locker
func NewMemoryLocker() ports.RefreshLocker {
	return &MemoryLocker{
		held: make(map[string]time.Time),
	}
}

// TryLock acquires the lock for key, returning false if already held.
// Expired entries count as released.
func (l *MemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, exists := l.held[key]; exists && time.Now().Before(expiry) {
		return false, nil
	}

	l.held[key] = time.Now().Add(ttl)
	return true, nil
}

// Unlock releases the lock for key
func (l *MemoryLocker) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, key)
	return nil
}
