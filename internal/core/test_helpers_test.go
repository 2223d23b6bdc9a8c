package core

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestBroker(t *testing.T, opts Options, hooks Hooks) *Broker {
	t.Helper()

	logger := zerolog.Nop()
	b := NewBroker(opts, hooks, &logger)
	t.Cleanup(b.Close)
	return b
}

func mustCreateRoom(t *testing.T, b *Broker) string {
	t.Helper()

	id, err := b.CreateRoom(context.Background())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return id
}

func mustPublish(t *testing.T, b *Broker, room, sender, body string) Message {
	t.Helper()

	msg, err := b.Publish(context.Background(), room, sender, body)
	if err != nil {
		t.Fatalf("publish %q: %v", body, err)
	}
	return msg
}

func mustNext(t *testing.T, sub *Subscription) Message {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("expected message, got error: %v", err)
	}
	return msg
}

func seqs(msgs []Message) []uint64 {
	out := make([]uint64, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Seq)
	}
	return out
}
