package core

import "time"

// DefaultTokenTTL is the local lifetime assigned to every minted token.
//
// The upstream credential service declares its own expires_in, but the
// original deployment rotates on this fixed interval instead. Kept as a
// named policy knob so a deployment can align it with the upstream value.
const DefaultTokenTTL = 10 * time.Second

// Credentials carry a username/password pair for a single authorize call.
// Never persisted and never embedded in a session artifact.
type Credentials struct {
	Username string
	Password string
}

// TokenResponse is the raw result of an upstream token grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// Profile is the identity returned by the upstream profile endpoint.
type Profile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TokenState describes where a token is in its freshness lifecycle.
type TokenState string

const (
	// TokenFresh means the token may be used for protected calls
	TokenFresh TokenState = "fresh"

	// TokenStale means ExpiredAt has passed and a refresh is required
	TokenStale TokenState = "stale"

	// TokenInvalid means a refresh was attempted and rejected upstream.
	// Terminal: only a full re-authentication leaves this state.
	TokenInvalid TokenState = "invalid"
)

// Token is an access/refresh pair with the absolute instant it goes stale.
// ExpiredAt is computed locally at mint time, see ExpiryPolicy.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiredAt    time.Time `json:"expired_at"`
}

// State reports the token's freshness at the given instant. A zero token is
// always stale. Invalidity is not derivable from the token itself; it is
// assigned by the refresh path when the upstream rejects the refresh token.
func (t Token) State(now time.Time) TokenState {
	if now.After(t.ExpiredAt) {
		return TokenStale
	}
	return TokenFresh
}

// ExpiryPolicy decides the local expiry of freshly minted tokens.
type ExpiryPolicy struct {
	// TTL overrides the upstream-declared expires_in
	TTL time.Duration
}

// DefaultExpiryPolicy mints tokens with DefaultTokenTTL.
var DefaultExpiryPolicy = ExpiryPolicy{TTL: DefaultTokenTTL}

// Mint derives a Token from an upstream grant, stamping ExpiredAt as
// now + TTL. The upstream ExpiresIn is deliberately not consulted.
func (p ExpiryPolicy) Mint(resp TokenResponse, now time.Time) Token {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiredAt:    now.Add(ttl),
	}
}

// Principal is an authenticated identity bound to its current token.
// Exactly one live token at a time; RotateToken discards the old one.
type Principal struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token Token  `json:"token"`
}

// RotateToken replaces the principal's token in place. Identity fields are
// never touched by rotation.
func (p *Principal) RotateToken(t Token) {
	p.Token = t
}
