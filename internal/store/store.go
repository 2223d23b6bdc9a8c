package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a chat does not exist.
var ErrNotFound = errors.New("not found")

// Chat represents a persisted chat room.
type Chat struct {
	ID        string
	CreatedAt time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ChatID    string
	Seq       uint64
	Username  string
	Body      string
	CreatedAt time.Time
}

// ChatStore persists chat rooms.
type ChatStore interface {
	CreateChat(ctx context.Context, chat Chat) error
	DeleteChat(ctx context.Context, id string) error
	GetChat(ctx context.Context, id string) (*Chat, error)
	ListChats(ctx context.Context) ([]Chat, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg Message) error
	// ListMessages returns the newest limit messages of a chat in ascending
	// sequence order. limit <= 0 returns the whole history.
	ListMessages(ctx context.Context, chatID string, limit int) ([]Message, error)
}

// Store combines all persistence interfaces.
type Store interface {
	ChatStore
	MessageStore
	Close() error
}
