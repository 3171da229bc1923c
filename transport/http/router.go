package http

import (
	"github.com/gin-gonic/gin"

	"github.com/layer-3/warden/internal/logger"
	"github.com/layer-3/warden/ports"
	"github.com/layer-3/warden/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(auth *service.AuthService, refresher *service.RefreshService, codec ports.SessionCodec, cookie CookieOptions, l logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	handlers := NewAuthHandlers(auth, codec, cookie, l)

	// Auth routes
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", handlers.Login)
		authGroup.POST("/logout", handlers.Logout)
	}

	// Protected API routes: the session middleware decodes the artifact
	// and rotates stale tokens before any handler runs
	api := router.Group("/api")
	api.Use(SessionMiddleware(codec, refresher, cookie, l))
	{
		api.GET("/token", handlers.Token)
		api.GET("/me", handlers.Me)
	}

	return router
}
