package service

import (
	"context"
	"time"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/internal/logger"
	"github.com/layer-3/warden/ports"
)

// AuthService validates credentials against the remote credential service
// and produces authenticated principals.
type AuthService struct {
	provider ports.CredentialProvider
	policy   core.ExpiryPolicy
	events   ports.EventPublisher
	logger   logger.Logger
}

// NewAuthService creates a new authentication service. events may be nil.
func NewAuthService(provider ports.CredentialProvider, policy core.ExpiryPolicy, events ports.EventPublisher, l logger.Logger) *AuthService {
	if policy.TTL <= 0 {
		policy = core.DefaultExpiryPolicy
	}
	if l == nil {
		l = logger.NewNop()
	}

	return &AuthService{
		provider: provider,
		policy:   policy,
		events:   events,
		logger:   l,
	}
}

// Authorize validates a username/password pair and assembles a Principal
// with a freshly minted token. Every failure, whatever its internal cause,
// surfaces as core.ErrUnauthorized: callers must not be able to tell a bad
// password from a profile-service outage.
func (s *AuthService) Authorize(ctx context.Context, creds core.Credentials) (*core.Principal, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, core.ErrUnauthorized
	}

	grant, err := s.provider.RequestToken(ctx, creds)
	if err != nil {
		s.logger.Warn("authorize denied", "username", creds.Username, "cause", err)
		return nil, core.ClassifyAuthFailure(err)
	}

	profile, err := s.provider.FetchProfile(ctx, grant.AccessToken)
	if err != nil {
		s.logger.Warn("authorize denied", "username", creds.Username, "cause", err)
		return nil, core.ClassifyAuthFailure(err)
	}

	principal := &core.Principal{
		ID:    profile.ID,
		Name:  profile.Name,
		Email: profile.Email,
		Token: s.policy.Mint(grant, time.Now()),
	}

	if s.events != nil {
		if err := s.events.PublishLogin(ctx, principal.ID); err != nil {
			// Best effort, the session is already established
			s.logger.Warn("failed to publish login event", "error", err)
		}
	}

	s.logger.Info("principal authorized", "principal_id", principal.ID)
	return principal, nil
}

// Logout announces the end of a session. The artifact itself is discarded
// by the transport layer; this only notifies other instances.
func (s *AuthService) Logout(ctx context.Context, principal core.Principal) error {
	if s.events == nil {
		return nil
	}

	if err := s.events.PublishLogout(ctx, principal.ID); err != nil {
		s.logger.Warn("failed to publish logout event", "error", err)
		return err
	}

	return nil
}
