package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/wirechat-rooms/internal/core"
	"github.com/vovakirdan/wirechat-rooms/internal/proto"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	errCodeBadRequest = "bad_request"
	errCodeInternal   = "internal_error"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func abortWithError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Status: statusError, Code: code, Message: msg})
}

// abortWithCoreError maps a broker error onto an HTTP status.
func abortWithCoreError(c *gin.Context, err error) {
	code := core.Code(err)
	if code == "" {
		abortWithError(c, http.StatusInternalServerError, errCodeInternal, "internal server error")
		return
	}
	abortWithError(c, statusForError(err), code, err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrRoomNotFound), errors.Is(err, core.ErrRoomDeleted):
		return http.StatusNotFound
	case errors.Is(err, core.ErrIDExhausted), errors.Is(err, core.ErrBrokerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageToProto(msg core.Message) proto.Message {
	return proto.NewMessage(msg.Room, msg.Seq, msg.Sender, msg.Body, msg.Time)
}

func messagesToProto(msgs []core.Message) []proto.Message {
	out := make([]proto.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, messageToProto(msg))
	}
	return out
}

func outboundFromMessage(msg core.Message) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventMessage,
		Data:  messageToProto(msg),
	}
}

func outboundFromError(err error) proto.Outbound {
	code := core.Code(err)
	if code == "" {
		code = errCodeInternal
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: err.Error()},
	}
}
