package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-rooms/internal/config"
	"github.com/vovakirdan/wirechat-rooms/internal/core"
	"github.com/vovakirdan/wirechat-rooms/internal/proto"
)

// StreamHandlers push live messages over WebSocket and Server-Sent Events.
type StreamHandlers struct {
	broker          Broker
	log             *zerolog.Logger
	allowedOrigins  []string
	maxMessageBytes int64
}

// NewStreamHandlers builds the streaming handlers.
func NewStreamHandlers(broker Broker, cfg *config.Config, logger *zerolog.Logger) *StreamHandlers {
	return &StreamHandlers{
		broker:          broker,
		log:             logger,
		allowedOrigins:  cfg.AllowedOrigins,
		maxMessageBytes: cfg.MaxMessageBytes,
	}
}

// subscribe resolves chat_id/after and opens a subscription, writing the
// error response itself when that fails.
func (h *StreamHandlers) subscribe(c *gin.Context) (*core.Subscription, bool) {
	chatID := c.Query("chat_id")
	if chatID == "" {
		abortWithError(c, http.StatusBadRequest, errCodeBadRequest, "Missing chat_id")
		return nil, false
	}
	after, ok := parseAfter(c)
	if !ok {
		return nil, false
	}

	sub, err := h.broker.Subscribe(chatID, after)
	if err != nil {
		abortWithCoreError(c, err)
		return nil, false
	}
	return sub, true
}

// SSE streams a chat as Server-Sent Events. Each message is a "message"
// event whose id is its sequence number; termination sends one "error" event.
// GET /api/stream?chat_id=...&after=...
func (h *StreamHandlers) SSE(c *gin.Context) {
	sub, ok := h.subscribe(c)
	if !ok {
		return
	}
	defer sub.Cancel()

	ctx := c.Request.Context()
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		msg, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.Render(-1, sse.Event{Event: proto.OutboundTypeError, Data: outboundFromError(err).Error})
			}
			return false
		}
		c.Render(-1, sse.Event{
			Id:    strconv.FormatUint(msg.Seq, 10),
			Event: proto.EventMessage,
			Data:  messageToProto(msg),
		})
		return true
	})

	h.log.Debug().Str("subscription", sub.ID).Str("chat_id", sub.Room).Err(sub.Err()).Msg("sse stream closed")
}
