package codec

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
)

const (
	// AudienceSession marks artifacts produced by this codec
	AudienceSession = "session:artifact"

	// DefaultArtifactMaxAge bounds how long an artifact stays decodable.
	// Matches the cookie max-age; the embedded token goes stale much
	// earlier and is rotated in place.
	DefaultArtifactMaxAge = 30 * 24 * time.Hour
)

// JWTCodec serializes a Principal into a signed HS256 JWT and back.
// The secret is injected configuration; there is no default.
type JWTCodec struct {
	secret []byte
	maxAge time.Duration
}

var _ ports.SessionCodec = (*JWTCodec)(nil)

// NewJWTCodec creates a session codec. An empty secret is refused.
func NewJWTCodec(secret string, maxAge time.Duration) (*JWTCodec, error) {
	if secret == "" {
		return nil, errors.New("session signing secret must not be empty")
	}
	if maxAge <= 0 {
		maxAge = DefaultArtifactMaxAge
	}

	return &JWTCodec{
		secret: []byte(secret),
		maxAge: maxAge,
	}, nil
}

// Encode serializes the principal into a signed artifact
func (c *JWTCodec) Encode(principal core.Principal) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(principal.ID, 10),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		Principal: principal,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	artifact, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session artifact: %w", err)
	}

	return artifact, nil
}

// Decode verifies the artifact signature and restores the principal.
// Signature, audience or artifact-expiry failures all map to
// core.ErrSessionInvalid.
func (c *JWTCodec) Decode(artifact string) (core.Principal, error) {
	token, err := jwt.ParseWithClaims(artifact, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithAudience(AudienceSession))
	if err != nil {
		return core.Principal{}, fmt.Errorf("%w: %v", core.ErrSessionInvalid, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return core.Principal{}, core.ErrSessionInvalid
	}

	return claims.Principal, nil
}
