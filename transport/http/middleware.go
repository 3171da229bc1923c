package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/internal/logger"
	"github.com/layer-3/warden/ports"
	"github.com/layer-3/warden/service"
)

// principalKey is the gin context key for the decoded principal
const principalKey = "warden.principal"

// SessionMiddleware decodes the session artifact, refreshes the embedded
// token when stale and rewrites the cookie with the rotated artifact. Runs
// once per authenticated request before the handler.
//
// A request whose refresh lost the cross-instance race passes through on
// its old artifact; the winning request has already set the new cookie on
// the shared browser.
func SessionMiddleware(codec ports.SessionCodec, refresher *service.RefreshService, opts CookieOptions, l logger.Logger) gin.HandlerFunc {
	if l == nil {
		l = logger.NewNop()
	}

	return func(c *gin.Context) {
		artifact, err := c.Cookie(SessionCookieName)
		if err != nil || artifact == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		principal, err := codec.Decode(artifact)
		if err != nil {
			l.Debug("session artifact rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		rotated, err := refresher.EnsureFresh(c.Request.Context(), &principal)
		switch {
		case errors.Is(err, core.ErrRefreshInFlight):
			// Another request is rotating this token right now
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		case rotated:
			fresh, err := codec.Encode(principal)
			if err != nil {
				l.Error("failed to encode rotated artifact", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
				return
			}
			SetSessionCookie(c, fresh, opts)
		}

		c.Set(principalKey, principal)

		c.Next()
	}
}

// PrincipalFromContext returns the principal set by SessionMiddleware
func PrincipalFromContext(c *gin.Context) (core.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return core.Principal{}, false
	}

	principal, ok := v.(core.Principal)
	return principal, ok
}
