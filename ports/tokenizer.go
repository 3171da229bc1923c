package ports

import "github.com/layer-3/warden/core"

// SessionCodec converts between a Principal and its signed session artifact
type SessionCodec interface {
	// Encode serializes the principal into a signed opaque artifact
	Encode(principal core.Principal) (string, error)

	// Decode verifies the artifact signature and restores the principal
	Decode(artifact string) (core.Principal, error)
}
