package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-rooms/internal/core"
	"github.com/vovakirdan/wirechat-rooms/internal/proto"
)

// ChatHandlers provides HTTP handlers for chat rooms and messages.
type ChatHandlers struct {
	broker Broker
	log    *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(broker Broker, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		broker: broker,
		log:    logger,
	}
}

// CreateChatRequest is the optional create chat body. Username is accepted
// for compatibility and only logged.
type CreateChatRequest struct {
	Username string `json:"username"`
}

// CreateChatResponse is returned by CreateChat.
type CreateChatResponse struct {
	Status   string `json:"status"`
	ChatID   string `json:"chat_id"`
	ShareURL string `json:"share_url"`
}

// SendRequest is the send body. Pointers distinguish absent keys from empty values.
type SendRequest struct {
	ChatID   *string `json:"chat_id"`
	Username *string `json:"username"`
	Message  *string `json:"message"`
}

// SendResponse is returned by Send.
type SendResponse struct {
	Status string `json:"status"`
	Seq    uint64 `json:"seq"`
}

// MessagesResponse is returned by Messages. Next is the cursor to pass as
// "after" to continue reading.
type MessagesResponse struct {
	Status   string          `json:"status"`
	Messages []proto.Message `json:"messages"`
	Next     uint64          `json:"next"`
}

// ChatResponse describes a chat room.
type ChatResponse struct {
	ChatID       string `json:"chat_id"`
	CreatedAt    string `json:"created_at"`
	FirstSeq     uint64 `json:"first_seq"`
	LastSeq      uint64 `json:"last_seq"`
	Subscribers  int    `json:"subscribers"`
	LastActivity string `json:"last_activity"`
}

// CreateChat handles room creation.
// POST /api/create_chat
func (h *ChatHandlers) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.log.Debug().Err(err).Msg("invalid create chat request")
			abortWithError(c, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
			return
		}
	}

	id, err := h.broker.CreateRoom(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create chat")
		abortWithCoreError(c, err)
		return
	}

	h.log.Info().Str("chat_id", id).Str("username", req.Username).Msg("chat created")
	c.JSON(http.StatusOK, CreateChatResponse{
		Status:   statusSuccess,
		ChatID:   id,
		ShareURL: hostURL(c) + "?join=" + id,
	})
}

// Send publishes a message.
// POST /api/send
func (h *ChatHandlers) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send request")
		abortWithError(c, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.ChatID == nil || req.Username == nil || req.Message == nil {
		abortWithError(c, http.StatusBadRequest, errCodeBadRequest, "Missing parameters")
		return
	}

	msg, err := h.broker.Publish(c.Request.Context(), *req.ChatID, *req.Username, *req.Message)
	if err != nil {
		h.log.Debug().Err(err).Str("chat_id", *req.ChatID).Msg("publish rejected")
		abortWithCoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, SendResponse{Status: statusSuccess, Seq: msg.Seq})
}

// Messages returns a page of history.
// GET /api/messages?chat_id=...&after=...&limit=...
func (h *ChatHandlers) Messages(c *gin.Context) {
	chatID := c.Query("chat_id")
	if chatID == "" {
		abortWithError(c, http.StatusBadRequest, errCodeBadRequest, "Missing chat_id")
		return
	}

	after, ok := parseAfter(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			abortWithError(c, http.StatusBadRequest, errCodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	msgs, err := h.broker.Snapshot(chatID, after, limit)
	if err != nil {
		abortWithCoreError(c, err)
		return
	}

	next := after
	if n := len(msgs); n > 0 {
		next = msgs[n-1].Seq
	}
	c.JSON(http.StatusOK, MessagesResponse{
		Status:   statusSuccess,
		Messages: messagesToProto(msgs),
		Next:     next,
	})
}

// ListChats lists every chat room.
// GET /api/chats
func (h *ChatHandlers) ListChats(c *gin.Context) {
	rooms := h.broker.Rooms()

	response := make([]ChatResponse, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, chatResponse(room))
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSuccess, "chats": response})
}

// GetChat describes one chat room.
// GET /api/chats/:id
func (h *ChatHandlers) GetChat(c *gin.Context) {
	room, err := h.broker.Room(c.Param("id"))
	if err != nil {
		abortWithCoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSuccess, "chat": chatResponse(room)})
}

// DeleteChat removes a chat room. Deleting an unknown chat succeeds.
// DELETE /api/chats/:id
func (h *ChatHandlers) DeleteChat(c *gin.Context) {
	id := c.Param("id")
	deleted := h.broker.DeleteRoom(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"status": statusSuccess, "deleted": deleted})
}

func chatResponse(room core.RoomInfo) ChatResponse {
	return ChatResponse{
		ChatID:       room.ID,
		CreatedAt:    room.CreatedAt.Format(time.RFC3339),
		FirstSeq:     room.FirstSeq,
		LastSeq:      room.LastSeq,
		Subscribers:  room.Subscribers,
		LastActivity: room.LastActivity.Format(time.RFC3339),
	}
}

// parseAfter reads the optional "after" cursor. It writes a 400 and returns
// false when the value is malformed.
func parseAfter(c *gin.Context) (uint64, bool) {
	raw := c.Query("after")
	if raw == "" {
		return 0, true
	}
	after, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, errCodeBadRequest, "invalid after")
		return 0, false
	}
	return after, true
}

func hostURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + c.Request.Host + "/"
}
