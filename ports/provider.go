package ports

import (
	"context"

	"github.com/layer-3/warden/core"
)

// CredentialProvider wraps the three calls against the remote credential
// service. Implementations keep no local mutable state; every failure is
// reported with an internal cause that the caller collapses at the boundary.
type CredentialProvider interface {
	// RequestToken exchanges a username/password pair for a token grant
	RequestToken(ctx context.Context, creds core.Credentials) (core.TokenResponse, error)

	// RefreshToken exchanges a refresh token for a new grant
	RefreshToken(ctx context.Context, refreshToken string) (core.TokenResponse, error)

	// FetchProfile resolves the identity behind a fresh access token
	FetchProfile(ctx context.Context, accessToken string) (core.Profile, error)
}
