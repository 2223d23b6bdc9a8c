package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from a websocket client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeMsg = "msg"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventMessage = "message"
	EventHello   = "hello"
)

// ClockLayout is the legacy "HH:MM" display format for message times.
const ClockLayout = "15:04"

// MsgData is a chat message sent by a websocket client.
type MsgData struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Outbound is the envelope for messages sent to a websocket client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Message is the wire shape of a chat message. Username, Message and Time
// keep the legacy {username, message, time} shape; Seq and Timestamp carry
// full ordering information.
type Message struct {
	Chat      string `json:"chat_id,omitempty"`
	Seq       uint64 `json:"seq"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Time      string `json:"time"`
	Timestamp string `json:"timestamp"`
}

// Hello is sent once a websocket stream is attached to a chat.
type Hello struct {
	Protocol int    `json:"protocol"`
	Chat     string `json:"chat_id"`
	After    uint64 `json:"after"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// NewMessage renders a message for the wire. Time is truncated to HH:MM for
// display only; Timestamp keeps full precision.
func NewMessage(chat string, seq uint64, username, body string, ts time.Time) Message {
	return Message{
		Chat:      chat,
		Seq:       seq,
		Username:  username,
		Message:   body,
		Time:      ts.UTC().Format(ClockLayout),
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
	}
}
