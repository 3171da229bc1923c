package ports

import (
	"context"
	"time"
)

// RefreshLocker provides mutual exclusion around an upstream refresh call.
// The lock is keyed by the refresh token so that concurrent requests holding
// the same stale artifact collapse into one refresh; the upstream refresh
// token is single-use and a second spend would fail.
type RefreshLocker interface {
	// TryLock acquires the lock for key. Returns false when another
	// holder already owns it. The lock self-expires after ttl.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Unlock releases the lock for key. Releasing an expired or unheld
	// lock is a no-op.
	Unlock(ctx context.Context, key string) error
}
