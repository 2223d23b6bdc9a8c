package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Room is an isolated chat channel: its message log plus its subscribers.
type Room struct {
	ID        string
	CreatedAt time.Time

	log *MessageLog
	hub *subscriberHub

	// mu is the room's linearization point: appends and their fan-out happen
	// under it, as does catch-up plus registration of a new subscriber.
	mu     sync.Mutex
	closed bool

	lastActivity atomic.Int64
}

// RoomInfo is a point-in-time description of a room.
type RoomInfo struct {
	ID           string
	CreatedAt    time.Time
	FirstSeq     uint64
	LastSeq      uint64
	Subscribers  int
	LastActivity time.Time
}

func newRoom(id string, createdAt time.Time, maxMessages int, logger *zerolog.Logger) *Room {
	r := &Room{
		ID:        id,
		CreatedAt: createdAt,
		log:       NewMessageLog(id, maxMessages),
		hub:       newSubscriberHub(id, logger),
	}
	r.touch(createdAt)
	return r
}

// Log exposes the room's message log for reads.
func (r *Room) Log() *MessageLog {
	return r.log
}

// Info returns a snapshot of the room's state.
func (r *Room) Info() RoomInfo {
	return RoomInfo{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt,
		FirstSeq:     r.log.FirstSeq(),
		LastSeq:      r.log.LastSeq(),
		Subscribers:  r.hub.count(),
		LastActivity: time.Unix(0, r.lastActivity.Load()).UTC(),
	}
}

// publish appends to the log and then fans out, both under the room lock so
// that fan-out order always equals sequence order. onAppend runs between the
// two steps.
func (r *Room) publish(sender, body string, onAppend func(Message)) (Message, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Message{}, 0, notFoundError(r.ID)
	}

	msg, err := r.log.Append(sender, body)
	if err != nil {
		return Message{}, 0, err
	}
	r.touch(msg.Time)

	if onAppend != nil {
		onAppend(msg)
	}
	return msg, r.hub.publish(msg), nil
}

// subscribe enqueues a catch-up batch and registers the subscriber atomically
// with respect to publish, so the stream has neither gaps nor duplicates.
//
// If more than catchUp messages follow fromSeq, the catch-up batch is the
// newest catchUp messages: the delivered stream stays a gapless suffix of the log.
func (r *Room) subscribe(fromSeq uint64, queueSize, catchUp int, now time.Time) (*Subscription, error) {
	if catchUp > queueSize {
		catchUp = queueSize
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, notFoundError(r.ID)
	}

	sub := newSubscription(r.ID, fromSeq, queueSize, r.hub)

	if catchUp > 0 {
		start := fromSeq
		if last := r.log.LastSeq(); last > start+uint64(catchUp) {
			start = last - uint64(catchUp)
		}
		for _, msg := range r.log.ReadFrom(start, catchUp) {
			sub.offer(msg)
		}
	}

	if !r.hub.add(sub) {
		return nil, notFoundError(r.ID)
	}
	r.touch(now)
	return sub, nil
}

// close terminates all subscribers and rejects further publishes.
func (r *Room) close(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.hub.closeAll(err)
}

func (r *Room) touch(t time.Time) {
	r.lastActivity.Store(t.UnixNano())
}

func (r *Room) idleSince() time.Time {
	return time.Unix(0, r.lastActivity.Load())
}
