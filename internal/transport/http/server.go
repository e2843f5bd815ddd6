package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paperdesk/paperchat-server/internal/auth"
	"github.com/paperdesk/paperchat-server/internal/config"
	"github.com/paperdesk/paperchat-server/internal/core"
	"github.com/paperdesk/paperchat-server/internal/service/chat"
)

// NewServer builds the HTTP server carrying both surfaces: the synchronous
// API under /api and the WebSocket gateway on /ws.
func NewServer(hub *core.Hub, svc *chat.Service, verifier *auth.Verifier, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	wsHandler := NewWSHandler(hub, verifier, cfg.MaxMessageBytes, logger)
	router.GET("/ws", wsHandler.Handle)

	chatHandlers := NewChatHandlers(svc, logger)
	api := router.Group("/api")
	api.Use(AuthMiddleware(verifier, logger))
	{
		api.GET("/rooms", chatHandlers.ListRooms)
		api.GET("/papers/:paperId/room", chatHandlers.GetRoom)
		api.GET("/papers/:paperId/messages", chatHandlers.ListMessages)
		api.POST("/papers/:paperId/messages", chatHandlers.SendMessage)
		api.POST("/papers/:paperId/read", chatHandlers.MarkRoomRead)
		api.GET("/papers/:paperId/unread", chatHandlers.UnreadCount)
		api.POST("/messages/:messageId/read", chatHandlers.MarkMessageRead)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
