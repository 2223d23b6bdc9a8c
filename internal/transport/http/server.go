package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-rooms/internal/config"
	"github.com/vovakirdan/wirechat-rooms/internal/core"
)

// Broker is the subset of core.Broker the transport layer needs.
type Broker interface {
	CreateRoom(ctx context.Context) (string, error)
	Publish(ctx context.Context, roomID, sender, body string) (core.Message, error)
	Subscribe(roomID string, fromSeq uint64) (*core.Subscription, error)
	Snapshot(roomID string, fromSeq uint64, limit int) ([]core.Message, error)
	DeleteRoom(ctx context.Context, roomID string) bool
	Room(roomID string) (core.RoomInfo, error)
	Rooms() []core.RoomInfo
}

// NewServer builds the HTTP server exposing the chat API.
func NewServer(broker Broker, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(broker, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(broker Broker, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	chats := NewChatHandlers(broker, logger)
	streams := NewStreamHandlers(broker, cfg, logger)

	api := router.Group("/api", CORSMiddleware(cfg.AllowedOrigins))
	{
		api.POST("/create_chat", chats.CreateChat)
		api.POST("/send", chats.Send)
		api.GET("/messages", chats.Messages)
		api.GET("/chats", chats.ListChats)
		api.GET("/chats/:id", chats.GetChat)
		api.DELETE("/chats/:id", chats.DeleteChat)
		api.GET("/stream", streams.SSE)
		api.OPTIONS("/*path", func(c *gin.Context) { c.Status(stdhttp.StatusNoContent) })
	}

	router.GET("/ws", streams.WebSocket)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
