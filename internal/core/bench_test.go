package core

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func benchmarkRoomFanOut(b *testing.B, subscribers int) {
	logger := zerolog.Nop()
	broker := NewBroker(Options{QueueSize: 1024, CatchUpLimit: 0}, nil, &logger)
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	room, err := broker.CreateRoom(ctx)
	if err != nil {
		b.Fatalf("create room: %v", err)
	}

	// Drain every subscriber but the first to avoid eviction.
	target, err := broker.Subscribe(room, 0)
	if err != nil {
		b.Fatalf("subscribe: %v", err)
	}
	for i := 1; i < subscribers; i++ {
		sub, err := broker.Subscribe(room, 0)
		if err != nil {
			b.Fatalf("subscribe: %v", err)
		}
		go func(s *Subscription) {
			for {
				if _, err := s.Next(ctx); err != nil {
					return
				}
			}
		}(sub)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := broker.Publish(ctx, room, "sender", "payload"); err != nil {
			b.Fatalf("publish: %v", err)
		}
		if _, err := target.Next(ctx); err != nil {
			b.Fatalf("next: %v", err)
		}
	}
}

func BenchmarkRoomFanOut_10(b *testing.B)  { benchmarkRoomFanOut(b, 10) }
func BenchmarkRoomFanOut_100(b *testing.B) { benchmarkRoomFanOut(b, 100) }
func BenchmarkRoomFanOut_500(b *testing.B) { benchmarkRoomFanOut(b, 500) }
