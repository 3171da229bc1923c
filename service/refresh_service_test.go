package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/warden/adapters/lock"
	"github.com/layer-3/warden/core"
)

// fakeLocker scripts lock outcomes and records acquisitions
type fakeLocker struct {
	mu       sync.Mutex
	tryLock  func(key string) (bool, error)
	acquired []string
	released []string
}

func (f *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tryLock != nil {
		ok, err := f.tryLock(key)
		if ok {
			f.acquired = append(f.acquired, key)
		}
		return ok, err
	}

	f.acquired = append(f.acquired, key)
	return true, nil
}

func (f *fakeLocker) Unlock(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.released = append(f.released, key)
	return nil
}

func stalePrincipal() core.Principal {
	return core.Principal{
		ID:    1,
		Name:  "J Smith",
		Email: "j@x.com",
		Token: core.Token{
			AccessToken:  "A1",
			RefreshToken: "R1",
			ExpiredAt:    time.Now().Add(-time.Second),
		},
	}
}

func freshPrincipal() core.Principal {
	p := stalePrincipal()
	p.Token.ExpiredAt = time.Now().Add(time.Minute)
	return p
}

func refreshingProvider() *fakeProvider {
	return &fakeProvider{
		refreshTokenFn: func(refreshToken string) (core.TokenResponse, error) {
			if refreshToken != "R1" {
				return core.TokenResponse{}, core.ErrRefreshFailed
			}
			return core.TokenResponse{AccessToken: "A2", ExpiresIn: 900, RefreshToken: "R2"}, nil
		},
	}
}

func TestEnsureFresh(t *testing.T) {
	t.Parallel()

	policy := core.ExpiryPolicy{TTL: 10 * time.Second}

	t.Run("fresh token is a strict no-op", func(t *testing.T) {
		provider := refreshingProvider()
		svc := NewRefreshService(provider, policy, nil, nil, nil)

		principal := freshPrincipal()
		snapshot := principal

		for i := 0; i < 2; i++ {
			rotated, err := svc.EnsureFresh(context.Background(), &principal)

			require.NoError(t, err)
			assert.False(t, rotated)
			assert.Equal(t, snapshot, principal, "repeated checks must not mutate the principal")
		}

		_, refreshes, _ := provider.counts()
		assert.Zero(t, refreshes, "no spurious upstream refresh for a fresh token")
	})

	t.Run("stale token is rotated in place", func(t *testing.T) {
		provider := refreshingProvider()
		events := &fakeEvents{}
		locker := &fakeLocker{}
		svc := NewRefreshService(provider, policy, locker, events, nil)

		principal := stalePrincipal()

		rotated, err := svc.EnsureFresh(context.Background(), &principal)

		require.NoError(t, err)
		require.True(t, rotated, "caller must re-encode the artifact")

		assert.Equal(t, "A2", principal.Token.AccessToken)
		assert.Equal(t, "R2", principal.Token.RefreshToken)
		assert.Equal(t, core.TokenFresh, principal.Token.State(time.Now()), "rotation returns the token to fresh")
		assert.WithinDuration(t, time.Now().Add(10*time.Second), principal.Token.ExpiredAt, time.Second)

		assert.Equal(t, int64(1), principal.ID, "identity fields stay untouched")
		assert.Equal(t, "J Smith", principal.Name)
		assert.Equal(t, "j@x.com", principal.Email)

		assert.Equal(t, []string{"R1"}, locker.acquired, "lock is keyed by the spent refresh token")
		assert.Equal(t, []string{"R1"}, locker.released)
		assert.Equal(t, []int64{1}, events.refreshed)
	})

	t.Run("refresh failure collapses to unauthorized", func(t *testing.T) {
		provider := &fakeProvider{
			refreshTokenFn: func(string) (core.TokenResponse, error) {
				return core.TokenResponse{}, core.ErrRefreshFailed
			},
		}
		svc := NewRefreshService(provider, policy, nil, nil, nil)

		principal := stalePrincipal()
		snapshot := principal

		rotated, err := svc.EnsureFresh(context.Background(), &principal)

		require.ErrorIs(t, err, core.ErrUnauthorized)
		assert.NotErrorIs(t, err, core.ErrRefreshFailed, "internal cause must not leak")
		assert.False(t, rotated)
		assert.Equal(t, snapshot, principal, "the stale principal is left as-is for the caller to discard")
	})

	t.Run("only a successful refresh resurrects a stale token", func(t *testing.T) {
		calls := 0
		provider := &fakeProvider{
			refreshTokenFn: func(string) (core.TokenResponse, error) {
				calls++
				if calls == 1 {
					return core.TokenResponse{}, core.ErrRefreshFailed
				}
				return core.TokenResponse{AccessToken: "A2", ExpiresIn: 900, RefreshToken: "R2"}, nil
			},
		}
		svc := NewRefreshService(provider, policy, nil, nil, nil)

		principal := stalePrincipal()

		_, err := svc.EnsureFresh(context.Background(), &principal)
		require.ErrorIs(t, err, core.ErrUnauthorized)
		require.Equal(t, core.TokenStale, principal.Token.State(time.Now()), "failure must not un-stale the token")

		rotated, err := svc.EnsureFresh(context.Background(), &principal)
		require.NoError(t, err)
		require.True(t, rotated)
		require.Equal(t, core.TokenFresh, principal.Token.State(time.Now()))
	})

	t.Run("lock held elsewhere passes through", func(t *testing.T) {
		provider := refreshingProvider()
		locker := &fakeLocker{
			tryLock: func(string) (bool, error) { return false, nil },
		}
		svc := NewRefreshService(provider, policy, locker, nil, nil)

		principal := stalePrincipal()
		snapshot := principal

		rotated, err := svc.EnsureFresh(context.Background(), &principal)

		require.ErrorIs(t, err, core.ErrRefreshInFlight)
		assert.False(t, rotated)
		assert.Equal(t, snapshot, principal)

		_, refreshes, _ := provider.counts()
		assert.Zero(t, refreshes, "the single-use refresh token must not be double-spent")
	})

	t.Run("lock store outage does not kill the session", func(t *testing.T) {
		provider := refreshingProvider()
		locker := &fakeLocker{
			tryLock: func(string) (bool, error) { return false, errScripted },
		}
		svc := NewRefreshService(provider, policy, locker, nil, nil)

		principal := stalePrincipal()

		rotated, err := svc.EnsureFresh(context.Background(), &principal)

		require.NoError(t, err, "locking is best effort, refresh proceeds")
		assert.True(t, rotated)
	})

	t.Run("concurrent requests collapse into one refresh", func(t *testing.T) {
		provider := &fakeProvider{
			refreshTokenFn: func(string) (core.TokenResponse, error) {
				time.Sleep(50 * time.Millisecond)
				return core.TokenResponse{AccessToken: "A2", ExpiresIn: 900, RefreshToken: "R2"}, nil
			},
		}
		svc := NewRefreshService(provider, policy, lock.NewMemoryLocker(), nil, nil)

		const requests = 8

		var wg sync.WaitGroup
		principals := make([]core.Principal, requests)
		errs := make([]error, requests)

		for i := 0; i < requests; i++ {
			i := i
			principals[i] = stalePrincipal()
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = svc.EnsureFresh(context.Background(), &principals[i])
			}()
		}
		wg.Wait()

		_, refreshes, _ := provider.counts()
		assert.Equal(t, 1, refreshes, "all requests must share a single upstream refresh")

		for i := 0; i < requests; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, "A2", principals[i].Token.AccessToken, "losers reuse the winner's result")
		}
	})
}
