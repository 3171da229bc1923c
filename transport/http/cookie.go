package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookieName carries the signed session artifact
	SessionCookieName = "warden.session-token"

	// DefaultCookieMaxAge matches the artifact lifetime
	DefaultCookieMaxAge = 30 * 24 * time.Hour
)

// CookieOptions define how the session cookie is issued. Secure defaults to
// off for local deployments and must be enabled behind TLS.
type CookieOptions struct {
	Path   string
	Domain string
	MaxAge time.Duration
	Secure bool
}

func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultCookieMaxAge
	}
	return o
}

// SetSessionCookie writes the session artifact to the response.
// Always http-only and SameSite=Lax.
func SetSessionCookie(c *gin.Context, artifact string, opts CookieOptions) {
	opts = opts.normalize()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, artifact, int(opts.MaxAge.Seconds()), opts.Path, opts.Domain, opts.Secure, true)
}

// ClearSessionCookie removes the session cookie from the client
func ClearSessionCookie(c *gin.Context, opts CookieOptions) {
	opts = opts.normalize()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, opts.Path, opts.Domain, opts.Secure, true)
}
