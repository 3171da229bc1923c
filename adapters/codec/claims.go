package codec

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/layer-3/warden/core"
)

// SessionClaims combine standard claims with the embedded principal.
// The principal carries its own token expiry; the registered ExpiresAt
// bounds the artifact itself (how long the cookie stays decodable).
type SessionClaims struct {
	jwt.RegisteredClaims
	Principal core.Principal `json:"principal"`
}
