package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/warden/ports"
)

func TestMemoryLocker(t *testing.T) {
	t.Parallel()

	t.Run("acquire and contend", func(t *testing.T) {
		locker := NewMemoryLocker()

		ok, err := locker.TryLock(context.Background(), "R1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "first acquire should win")

		ok, err = locker.TryLock(context.Background(), "R1", time.Minute)
		require.NoError(t, err)
		require.False(t, ok, "second acquire on the same key must lose")

		ok, err = locker.TryLock(context.Background(), "R2", time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "a different key is independent")
	})

	t.Run("unlock releases", func(t *testing.T) {
		locker := NewMemoryLocker()

		ok, err := locker.TryLock(context.Background(), "R1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, locker.Unlock(context.Background(), "R1"))

		ok, err = locker.TryLock(context.Background(), "R1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "released lock should be acquirable again")
	})

	t.Run("expired lock is acquirable", func(t *testing.T) {
		locker := NewMemoryLocker()

		ok, err := locker.TryLock(context.Background(), "R1", time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		time.Sleep(5 * time.Millisecond)

		ok, err = locker.TryLock(context.Background(), "R1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "a crashed holder must not block forever")
	})

	t.Run("unlock of unheld key is a no-op", func(t *testing.T) {
		locker := NewMemoryLocker()

		require.NoError(t, locker.Unlock(context.Background(), "never-held"))
	})
}

func TestRedisLocker(t *testing.T) {
	t.Parallel()

	newLocker := func(t *testing.T) (ports.RefreshLocker, *miniredis.Miniredis) {
		t.Helper()

		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		return NewRedisLocker(client), mr
	}

	t.Run("acquire and contend", func(t *testing.T) {
		locker, _ := newLocker(t)

		ok, err := locker.TryLock(context.Background(), "R1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = locker.TryLock(context.Background(), "R1", time.Minute)
		require.NoError(t, err)
		require.False(t, ok, "SET NX must refuse a held key")
	})

	t.Run("unlock releases", func(t *testing.T) {
		locker, _ := newLocker(t)

		ok, err := locker.TryLock(context.Background(), "R1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, locker.Unlock(context.Background(), "R1"))

		ok, err = locker.TryLock(context.Background(), "R1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("lock self-expires", func(t *testing.T) {
		locker, mr := newLocker(t)

		ok, err := locker.TryLock(context.Background(), "R1", 10*time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		mr.FastForward(11 * time.Second)

		ok, err = locker.TryLock(context.Background(), "R1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "TTL should release the lock without an explicit unlock")
	})

	t.Run("redis down surfaces an error", func(t *testing.T) {
		locker, mr := newLocker(t)
		mr.Close()

		_, err := locker.TryLock(context.Background(), "R1", time.Minute)
		require.Error(t, err)
	})
}
