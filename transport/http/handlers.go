package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/warden/internal/logger"
	"github.com/layer-3/warden/ports"
	"github.com/layer-3/warden/service"

	"github.com/layer-3/warden/core"
)

// AuthHandlers contains HTTP handlers for session endpoints
type AuthHandlers struct {
	auth   *service.AuthService
	codec  ports.SessionCodec
	cookie CookieOptions
	logger logger.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(auth *service.AuthService, codec ports.SessionCodec, cookie CookieOptions, l logger.Logger) *AuthHandlers {
	if l == nil {
		l = logger.NewNop()
	}

	return &AuthHandlers{
		auth:   auth,
		codec:  codec,
		cookie: cookie,
		logger: l,
	}
}

// Login authenticates a username/password pair and issues the session
// cookie. Every denial is a bare 401: no hint which step failed.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	principal, err := h.auth.Authorize(c.Request.Context(), core.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	artifact, err := h.codec.Encode(*principal)
	if err != nil {
		h.logger.Error("failed to encode session artifact", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	SetSessionCookie(c, artifact, h.cookie)

	c.JSON(http.StatusOK, gin.H{
		"id":    principal.ID,
		"name":  principal.Name,
		"email": principal.Email,
	})
}

// Logout clears the session cookie. The artifact is client-held, so
// clearing the cookie is the deletion; other instances get an event.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if artifact, err := c.Cookie(SessionCookieName); err == nil && artifact != "" {
		if principal, err := h.codec.Decode(artifact); err == nil {
			_ = h.auth.Logout(c.Request.Context(), principal)
		}
	}

	ClearSessionCookie(c, h.cookie)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Token is the watchdog's entry point: refresh-if-stale happened in the
// session middleware by the time this handler runs, so it only signals
// completion and tells the consumer when the next refresh is due.
func (h *AuthHandlers) Token(c *gin.Context) {
	principal, exists := PrincipalFromContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Principal not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "done",
		"expired_at": principal.Token.ExpiredAt,
	})
}

// Me returns the identity fields of the authenticated principal
func (h *AuthHandlers) Me(c *gin.Context) {
	principal, exists := PrincipalFromContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Principal not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    principal.ID,
		"name":  principal.Name,
		"email": principal.Email,
	})
}
