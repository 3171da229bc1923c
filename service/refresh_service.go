package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/internal/logger"
	"github.com/layer-3/warden/ports"
)

// RefreshLockTTL bounds how long a refresh holds its lock. Must exceed the
// provider call timeout so a live refresh is never preempted.
const RefreshLockTTL = 15 * time.Second

// RefreshService decides whether a principal's token is stale and, if so,
// rotates it against the remote credential service.
//
// Concurrent requests presenting the same stale artifact are collapsed:
// in-process via singleflight, cross-instance via the refresh lock. The
// upstream refresh token is single-use, so a second spend would invalidate
// the session that just won the race.
type RefreshService struct {
	provider ports.CredentialProvider
	policy   core.ExpiryPolicy
	locker   ports.RefreshLocker
	events   ports.EventPublisher
	logger   logger.Logger

	group singleflight.Group
}

// NewRefreshService creates a new refresh orchestrator. locker and events
// may be nil; without a locker only in-process coalescing applies.
func NewRefreshService(provider ports.CredentialProvider, policy core.ExpiryPolicy, locker ports.RefreshLocker, events ports.EventPublisher, l logger.Logger) *RefreshService {
	if policy.TTL <= 0 {
		policy = core.DefaultExpiryPolicy
	}
	if l == nil {
		l = logger.NewNop()
	}

	return &RefreshService{
		provider: provider,
		policy:   policy,
		locker:   locker,
		events:   events,
		logger:   l,
	}
}

// EnsureFresh checks the principal's token and rotates it in place when
// stale. Returns true when the token was replaced and the caller must
// re-encode the session artifact.
//
// A fresh token is a strict no-op: no upstream call, no mutation, so the
// check is idempotent. On upstream rejection the error collapses to
// core.ErrUnauthorized and the principal is left untouched. When another
// instance holds the refresh lock, core.ErrRefreshInFlight is returned and
// the caller should pass the request through on the old artifact.
func (s *RefreshService) EnsureFresh(ctx context.Context, principal *core.Principal) (bool, error) {
	if principal.Token.State(time.Now()) == core.TokenFresh {
		return false, nil
	}

	key := principal.Token.RefreshToken

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.rotate(ctx, key)
	})
	if err != nil {
		if errors.Is(err, core.ErrRefreshInFlight) {
			return false, core.ErrRefreshInFlight
		}

		s.logger.Warn("refresh denied", "principal_id", principal.ID, "cause", err)
		return false, core.ErrUnauthorized
	}

	principal.RotateToken(v.(core.Token))

	if s.events != nil {
		if err := s.events.PublishRefreshed(ctx, principal.ID); err != nil {
			s.logger.Warn("failed to publish refresh event", "error", err)
		}
	}

	s.logger.Debug("token rotated", "principal_id", principal.ID)
	return true, nil
}

// rotate spends the refresh token upstream under the cross-instance lock
func (s *RefreshService) rotate(ctx context.Context, refreshToken string) (core.Token, error) {
	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx, refreshToken, RefreshLockTTL)
		if err != nil {
			// Lock store unavailable: proceed anyway, singleflight
			// still guards this process
			s.logger.Warn("refresh lock unavailable", "error", err)
		} else if !ok {
			return core.Token{}, core.ErrRefreshInFlight
		} else {
			defer func() {
				if err := s.locker.Unlock(context.WithoutCancel(ctx), refreshToken); err != nil {
					s.logger.Warn("failed to release refresh lock", "error", err)
				}
			}()
		}
	}

	grant, err := s.provider.RefreshToken(ctx, refreshToken)
	if err != nil {
		return core.Token{}, err
	}

	return s.policy.Mint(grant, time.Now()), nil
}
