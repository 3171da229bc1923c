package core

import "errors"

var (
	// ErrUnauthorized is the single error surfaced on any authentication
	// or refresh failure. Callers never learn which step failed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is the internal cause for a rejected
	// username/password pair
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProfileFetch is the internal cause for a failed profile lookup
	// after a successful token grant
	ErrProfileFetch = errors.New("profile fetch failed")

	// ErrRefreshFailed is the internal cause for a refresh token rejected
	// upstream. Terminal for the session.
	ErrRefreshFailed = errors.New("refresh failed")

	// ErrTransport is the internal cause for network or timeout failures
	// talking to the credential service
	ErrTransport = errors.New("credential service unreachable")

	// ErrRefreshInFlight is returned when another request holds the
	// refresh lock for the same refresh token
	ErrRefreshInFlight = errors.New("refresh already in flight")

	// ErrNoSession is returned when a request carries no session artifact
	ErrNoSession = errors.New("no active session")

	// ErrSessionInvalid is returned when a session artifact fails
	// signature or shape validation
	ErrSessionInvalid = errors.New("session artifact is invalid")
)

// ClassifyAuthFailure collapses any authentication-path error into
// ErrUnauthorized. The richer internal cause stays available to the caller
// for logging but must never cross the service boundary, so that a failed
// password and a failed profile fetch are indistinguishable to clients.
func ClassifyAuthFailure(err error) error {
	if err == nil {
		return nil
	}
	return ErrUnauthorized
}
