package core

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Hooks lets a durability collaborator observe room lifecycle and appends.
// Calls for a room are made in that room's order; OnAppend runs after the
// message is in the log and before it is fanned out. Errors are logged and
// never fail the originating operation.
type Hooks interface {
	OnCreateRoom(ctx context.Context, info RoomInfo) error
	OnAppend(ctx context.Context, msg Message) error
	OnDeleteRoom(ctx context.Context, roomID string) error
}

// Options tune the broker.
type Options struct {
	// QueueSize is the capacity of each subscriber's delivery queue.
	QueueSize int
	// CatchUpLimit bounds the history replayed into a new subscription.
	// It is clamped to QueueSize.
	CatchUpLimit int
	// ReadLimit is the default and maximum Snapshot size.
	ReadLimit int
	// MaxMessagesPerRoom caps log retention; 0 keeps every message.
	MaxMessagesPerRoom int
}

// DefaultOptions returns the stock broker settings.
func DefaultOptions() Options {
	return Options{
		QueueSize:    64,
		CatchUpLimit: 64,
		ReadLimit:    DefaultReadLimit,
	}
}

// Broker is the single entry point to rooms, messages and subscriptions.
// All methods are safe for concurrent use.
type Broker struct {
	opts     Options
	registry *Registry
	hooks    Hooks
	log      *zerolog.Logger
	now      func() time.Time
	closed   atomic.Bool
}

// NewBroker constructs a broker. hooks may be nil.
func NewBroker(opts Options, hooks Hooks, logger *zerolog.Logger) *Broker {
	def := DefaultOptions()
	if opts.QueueSize <= 0 {
		opts.QueueSize = def.QueueSize
	}
	if opts.CatchUpLimit < 0 {
		opts.CatchUpLimit = 0
	}
	if opts.CatchUpLimit > opts.QueueSize {
		opts.CatchUpLimit = opts.QueueSize
	}
	if opts.ReadLimit <= 0 || opts.ReadLimit > DefaultReadLimit {
		opts.ReadLimit = def.ReadLimit
	}

	return &Broker{
		opts:     opts,
		registry: NewRegistry(opts.MaxMessagesPerRoom, logger),
		hooks:    hooks,
		log:      logger,
		now:      time.Now,
	}
}

// CreateRoom creates an empty room and returns its identifier.
func (b *Broker) CreateRoom(ctx context.Context) (string, error) {
	if b.closed.Load() {
		return "", errBrokerClosed
	}

	room, err := b.registry.CreateRoom(b.now().UTC())
	if err != nil {
		b.log.Error().Err(err).Msg("failed to create room")
		return "", err
	}

	if b.hooks != nil {
		if err := b.hooks.OnCreateRoom(ctx, room.Info()); err != nil {
			b.log.Warn().Err(err).Str("room", room.ID).Msg("create room hook failed")
		}
	}

	b.log.Info().Str("room", room.ID).Msg("room created")
	return room.ID, nil
}

// Restore re-registers a persisted room with its history.
func (b *Broker) Restore(id string, createdAt time.Time, history []Message) error {
	room, err := b.registry.register(id, createdAt.UTC())
	if err != nil {
		return err
	}
	room.log.restore(history)
	if n := len(history); n > 0 {
		room.touch(history[n-1].Time)
	}
	return nil
}

// Publish appends a message to a room and delivers it to live subscribers.
func (b *Broker) Publish(ctx context.Context, roomID, sender, body string) (Message, error) {
	if b.closed.Load() {
		return Message{}, errBrokerClosed
	}
	room, ok := b.registry.Lookup(roomID)
	if !ok {
		return Message{}, notFoundError(roomID)
	}

	var onAppend func(Message)
	if b.hooks != nil {
		onAppend = func(msg Message) {
			if err := b.hooks.OnAppend(ctx, msg); err != nil {
				b.log.Warn().Err(err).Str("room", roomID).Uint64("seq", msg.Seq).Msg("append hook failed")
			}
		}
	}

	msg, evicted, err := room.publish(sender, body, onAppend)
	if err != nil {
		return Message{}, err
	}

	b.log.Debug().
		Str("room", roomID).
		Uint64("seq", msg.Seq).
		Int("evicted", evicted).
		Msg("message published")
	return msg, nil
}

// Subscribe opens a live stream of messages with Seq > fromSeq.
func (b *Broker) Subscribe(roomID string, fromSeq uint64) (*Subscription, error) {
	if b.closed.Load() {
		return nil, errBrokerClosed
	}
	room, ok := b.registry.Lookup(roomID)
	if !ok {
		return nil, notFoundError(roomID)
	}

	sub, err := room.subscribe(fromSeq, b.opts.QueueSize, b.opts.CatchUpLimit, b.now())
	if err != nil {
		return nil, err
	}

	b.log.Debug().Str("room", roomID).Str("subscription", sub.ID).Uint64("from", fromSeq).Msg("subscribed")
	return sub, nil
}

// Snapshot returns up to limit messages with Seq > fromSeq. It has no side effects.
func (b *Broker) Snapshot(roomID string, fromSeq uint64, limit int) ([]Message, error) {
	room, ok := b.registry.Lookup(roomID)
	if !ok {
		return nil, notFoundError(roomID)
	}
	if limit <= 0 || limit > b.opts.ReadLimit {
		limit = b.opts.ReadLimit
	}
	return room.log.ReadFrom(fromSeq, limit), nil
}

// DeleteRoom removes a room and closes its subscriptions. Deleting a missing
// room is a no-op; the return value reports whether anything was removed.
func (b *Broker) DeleteRoom(ctx context.Context, roomID string) bool {
	if !b.registry.DeleteRoom(roomID) {
		return false
	}

	if b.hooks != nil {
		if err := b.hooks.OnDeleteRoom(ctx, roomID); err != nil {
			b.log.Warn().Err(err).Str("room", roomID).Msg("delete room hook failed")
		}
	}

	b.log.Info().Str("room", roomID).Msg("room deleted")
	return true
}

// Room describes a single room.
func (b *Broker) Room(roomID string) (RoomInfo, error) {
	room, ok := b.registry.Lookup(roomID)
	if !ok {
		return RoomInfo{}, notFoundError(roomID)
	}
	return room.Info(), nil
}

// Rooms lists every room, oldest first.
func (b *Broker) Rooms() []RoomInfo {
	rooms := make([]RoomInfo, 0, b.registry.Len())
	b.registry.Range(func(r *Room) bool {
		rooms = append(rooms, r.Info())
		return true
	})
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms
}

// ReapIdle deletes rooms that have no subscribers and no activity within
// maxIdle. It returns the deleted identifiers.
func (b *Broker) ReapIdle(ctx context.Context, maxIdle time.Duration) []string {
	if maxIdle <= 0 {
		return nil
	}

	cutoff := b.now().Add(-maxIdle)
	var idle []string
	b.registry.Range(func(r *Room) bool {
		if r.hub.count() == 0 && r.idleSince().Before(cutoff) {
			idle = append(idle, r.ID)
		}
		return true
	})

	reaped := idle[:0]
	for _, id := range idle {
		if b.DeleteRoom(ctx, id) {
			reaped = append(reaped, id)
		}
	}
	return reaped
}

// Close terminates every subscription with ErrBrokerClosed and rejects further
// creates, publishes and subscriptions. Snapshots keep working.
func (b *Broker) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.registry.Range(func(r *Room) bool {
		r.close(errBrokerClosed)
		return true
	})
	b.log.Info().Msg("broker closed")
}
