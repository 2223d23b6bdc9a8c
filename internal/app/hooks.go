package app

import (
	"context"
	"fmt"

	"github.com/vovakirdan/wirechat-rooms/internal/core"
	"github.com/vovakirdan/wirechat-rooms/internal/store"
)

// storeHooks persists broker activity into a store. Writes are detached from
// the caller's cancellation so a client hanging up does not lose a message.
type storeHooks struct {
	store store.Store
}

func newStoreHooks(st store.Store) *storeHooks {
	return &storeHooks{store: st}
}

func (h *storeHooks) OnCreateRoom(ctx context.Context, info core.RoomInfo) error {
	return h.store.CreateChat(context.WithoutCancel(ctx), store.Chat{ID: info.ID, CreatedAt: info.CreatedAt})
}

func (h *storeHooks) OnAppend(ctx context.Context, msg core.Message) error {
	return h.store.AppendMessage(context.WithoutCancel(ctx), store.Message{
		ChatID:    msg.Room,
		Seq:       msg.Seq,
		Username:  msg.Sender,
		Body:      msg.Body,
		CreatedAt: msg.Time,
	})
}

func (h *storeHooks) OnDeleteRoom(ctx context.Context, roomID string) error {
	return h.store.DeleteChat(context.WithoutCancel(ctx), roomID)
}

// restore loads every persisted chat with its newest limit messages into the broker.
func restore(ctx context.Context, st store.Store, broker *core.Broker, limit int) (int, error) {
	chats, err := st.ListChats(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chats: %w", err)
	}

	for _, chat := range chats {
		stored, err := st.ListMessages(ctx, chat.ID, limit)
		if err != nil {
			return 0, fmt.Errorf("list messages for %s: %w", chat.ID, err)
		}

		history := make([]core.Message, 0, len(stored))
		for _, m := range stored {
			history = append(history, core.Message{
				Room:   chat.ID,
				Seq:    m.Seq,
				Sender: m.Username,
				Body:   m.Body,
				Time:   m.CreatedAt,
			})
		}

		if err := broker.Restore(chat.ID, chat.CreatedAt, history); err != nil {
			return 0, fmt.Errorf("restore %s: %w", chat.ID, err)
		}
	}
	return len(chats), nil
}
