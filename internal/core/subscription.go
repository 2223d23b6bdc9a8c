package core

import (
	"context"
	"iter"
	"sync/atomic"

	"github.com/google/uuid"
)

// SubscriptionState is the lifecycle state of a subscriber.
type SubscriptionState int32

const (
	// SubscriptionActive receives new messages.
	SubscriptionActive SubscriptionState = iota
	// SubscriptionCancelled was closed by its consumer, or by room deletion or shutdown.
	SubscriptionCancelled
	// SubscriptionEvicted fell behind and was dropped by the hub.
	SubscriptionEvicted
)

func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionActive:
		return "active"
	case SubscriptionCancelled:
		return "cancelled"
	case SubscriptionEvicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// Subscription is a live, ordered stream of a room's messages.
//
// Messages are consumed with Next or All. Once the subscription is terminated
// (Cancel, eviction, room deletion or broker shutdown) any still-queued
// messages are discarded and Next returns the terminal error. Cursor reports
// the last delivered sequence number so a consumer can resubscribe from it.
type Subscription struct {
	ID   string
	Room string

	after  uint64
	queue  chan Message
	done   chan struct{}
	state  atomic.Int32
	err    error
	cursor atomic.Uint64
	hub    *subscriberHub
}

func newSubscription(room string, after uint64, size int, hub *subscriberHub) *Subscription {
	s := &Subscription{
		ID:    uuid.NewString(),
		Room:  room,
		after: after,
		queue: make(chan Message, size),
		done:  make(chan struct{}),
		hub:   hub,
	}
	s.cursor.Store(after)
	return s
}

// Next blocks until a message is available, the subscription terminates, or
// ctx is done.
func (s *Subscription) Next(ctx context.Context) (Message, error) {
	select {
	case <-s.done:
		return Message{}, s.err
	default:
	}

	select {
	case msg := <-s.queue:
		// terminated while we were waiting: queued messages are discarded
		select {
		case <-s.done:
			return Message{}, s.err
		default:
		}
		s.cursor.Store(msg.Seq)
		return msg, nil
	case <-s.done:
		return Message{}, s.err
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// All returns an iterator over the subscription. It yields each message with
// a nil error and finishes with a single terminal error.
func (s *Subscription) All(ctx context.Context) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		for {
			msg, err := s.Next(ctx)
			if err != nil {
				yield(Message{}, err)
				return
			}
			if !yield(msg, nil) {
				return
			}
		}
	}
}

// Cancel stops deliveries and discards queued messages. It is idempotent.
func (s *Subscription) Cancel() {
	if s.terminate(SubscriptionCancelled, errSubscriptionClosed) {
		s.hub.remove(s)
	}
}

// Done is closed when the subscription terminates.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error, or nil while the subscription is active.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// State returns the current lifecycle state.
func (s *Subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// Cursor returns the sequence number of the last message returned by Next,
// or the starting point if nothing has been delivered yet.
func (s *Subscription) Cursor() uint64 {
	return s.cursor.Load()
}

// offer enqueues without blocking. It returns false if the queue is full.
func (s *Subscription) offer(msg Message) bool {
	if msg.Seq <= s.after {
		return true
	}
	select {
	case s.queue <- msg:
		return true
	default:
		return false
	}
}

// terminate moves an active subscription into a terminal state exactly once.
func (s *Subscription) terminate(state SubscriptionState, err error) bool {
	if !s.state.CompareAndSwap(int32(SubscriptionActive), int32(state)) {
		return false
	}
	s.err = err
	close(s.done)
	return true
}
