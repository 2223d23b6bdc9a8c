package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"slices"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/wirechat-rooms/internal/core"
	"github.com/vovakirdan/wirechat-rooms/internal/proto"
)

// WebSocket upgrades the connection and bridges it to a subscription.
// Clients may also publish through it with {"type":"msg","data":{username,message}}.
// GET /ws?chat_id=...&after=...
func (h *StreamHandlers) WebSocket(c *gin.Context) {
	sub, ok := h.subscribe(c)
	if !ok {
		return
	}
	defer sub.Cancel()

	opts := &websocket.AcceptOptions{}
	if slices.Contains(h.allowedOrigins, "*") {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.allowedOrigins
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	hello := proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventHello,
		Data:  proto.Hello{Protocol: proto.ProtocolVersion, Chat: sub.Room, After: sub.Cursor()},
	}
	if err := wsjson.Write(ctx, conn, hello); err != nil {
		h.log.Warn().Err(err).Str("subscription", sub.ID).Msg("write ws hello")
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sub)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sub)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case errors.Is(err, core.ErrSlowConsumer):
		status = websocket.StatusTryAgainLater
		reason = core.ErrCodeSlowConsumer
	case errors.Is(err, core.ErrRoomDeleted), errors.Is(err, core.ErrBrokerClosed):
		status = websocket.StatusGoingAway
		reason = core.Code(err)
	case err != nil && !errors.Is(err, context.Canceled):
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("subscription", sub.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *StreamHandlers) readLoop(ctx context.Context, conn *websocket.Conn, sub *core.Subscription) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if inbound.Type != proto.InboundTypeMsg {
			if err := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: &proto.Error{Code: "invalid_message", Msg: "unknown message type"},
			}); err != nil {
				return err
			}
			continue
		}

		var data proto.MsgData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			h.log.Warn().Err(err).Str("subscription", sub.ID).Msg("failed to decode ws message")
			return err
		}

		if _, err := h.broker.Publish(ctx, sub.Room, data.Username, data.Message); err != nil {
			if core.Code(err) == "" {
				return err
			}
			if writeErr := wsjson.Write(ctx, conn, outboundFromError(err)); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (h *StreamHandlers) writeLoop(ctx context.Context, conn *websocket.Conn, sub *core.Subscription) error {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				// best effort: tell the client why the stream ended
				_ = wsjson.Write(ctx, conn, outboundFromError(err))
			}
			return err
		}
		if err := wsjson.Write(ctx, conn, outboundFromMessage(msg)); err != nil {
			h.log.Error().Err(err).Str("subscription", sub.ID).Msg("write ws event")
			return err
		}
	}
}
