package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// subscriberHub fans out a room's messages to its live subscribers.
// Publish never blocks: a subscriber whose queue is full is evicted.
type subscriberHub struct {
	room string
	log  *zerolog.Logger

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func newSubscriberHub(room string, logger *zerolog.Logger) *subscriberHub {
	return &subscriberHub{
		room: room,
		log:  logger,
		subs: make(map[*Subscription]struct{}),
	}
}

// add registers an active subscriber. It returns false once the hub is closed.
func (h *subscriberHub) add(s *Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.subs[s] = struct{}{}
	return true
}

func (h *subscriberHub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// publish offers msg to every subscriber and evicts those that cannot take it.
// Callers serialize publish per room so every subscriber sees the same order.
func (h *subscriberHub) publish(msg Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	evicted := 0
	for s := range h.subs {
		if s.offer(msg) {
			continue
		}
		delete(h.subs, s)
		if s.terminate(SubscriptionEvicted, errSlowConsumer) {
			evicted++
			h.log.Warn().
				Str("room", h.room).
				Str("subscription", s.ID).
				Uint64("seq", msg.Seq).
				Msg("evicted slow consumer")
		}
	}
	return evicted
}

// closeAll terminates every subscriber with err and rejects new ones.
func (h *subscriberHub) closeAll(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for s := range h.subs {
		s.terminate(SubscriptionCancelled, err)
		delete(h.subs, s)
	}
}

func (h *subscriberHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
