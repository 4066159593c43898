package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gamechat/internal/auth"
	"gamechat/internal/config"
	"gamechat/internal/core"
)

// NewServer builds the HTTP server: the WebSocket chat endpoint, the guest
// auth endpoint and the administrative surface.
func NewServer(hub *core.Hub, authService *auth.Service, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, cfg, logger)))

	api := NewAPIHandlers(authService, logger)
	router.POST("/api/guest", api.GuestLogin)

	adminHandlers := NewAdminHandlers(hub, logger)
	admin := router.Group("/api/admin", AdminAuth(cfg.AdminToken, logger))
	admin.POST("/rooms", adminHandlers.CreateRoom)
	admin.GET("/stats", adminHandlers.Stats)
	admin.PUT("/moderation", adminHandlers.UpdateModerationPolicy)
	admin.POST("/moderation/messages", adminHandlers.ModerateMessage)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
