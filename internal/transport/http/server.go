package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremap-server/internal/auth"
	"github.com/vovakirdan/wiremap-server/internal/config"
	"github.com/vovakirdan/wiremap-server/internal/core"
	"github.com/vovakirdan/wiremap-server/internal/service/users"
)

// NewServer builds the HTTP server with the presence socket and the profile store API.
func NewServer(hub *core.Hub, authService *auth.Service, userService *users.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, WSOptions{
		ClientBuffer:    cfg.Presence.ClientBuffer,
		MaxMessageBytes: cfg.Presence.MaxMessageBytes,
	}, logger)))

	presenceHandlers := NewPresenceHandlers(hub)
	apiHandlers := NewAPIHandlers(authService, logger)
	userHandlers := NewUserHandlers(userService, logger)

	api := router.Group("/api")
	{
		api.GET("/presence", presenceHandlers.Snapshot)

		api.POST("/auth/register", apiHandlers.Register)
		api.POST("/auth/login", apiHandlers.Login)

		api.GET("/users/:id/profile", userHandlers.PublicProfile)

		me := api.Group("/users/me")
		me.Use(AuthMiddleware(authService, logger))
		{
			me.GET("", userHandlers.Me)
			me.PUT("", userHandlers.UpdateMe)
			me.DELETE("", userHandlers.DeleteMe)
			me.PUT("/avatar", userHandlers.SetAvatar)
		}
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
