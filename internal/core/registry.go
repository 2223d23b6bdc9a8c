package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-rooms/internal/utils"
)

// DefaultIDAttempts bounds how many identifiers CreateRoom tries before giving up.
const DefaultIDAttempts = 5

// Registry maps room identifiers to rooms. Lookups never block; creation and
// deletion contend only on the map's internal buckets.
type Registry struct {
	rooms       *xsync.MapOf[string, *Room]
	newID       func() (string, error)
	maxAttempts int
	maxMessages int
	log         *zerolog.Logger
}

// NewRegistry creates an empty registry. maxMessages is the per-room
// retention (0 keeps everything).
func NewRegistry(maxMessages int, logger *zerolog.Logger) *Registry {
	return &Registry{
		rooms:       xsync.NewMapOf[string, *Room](),
		newID:       utils.NewID,
		maxAttempts: DefaultIDAttempts,
		maxMessages: maxMessages,
		log:         logger,
	}
}

// CreateRoom registers an empty room under a fresh random identifier.
// Collisions are retried; after maxAttempts failures ErrIDExhausted is returned.
func (r *Registry) CreateRoom(now time.Time) (*Room, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		id, err := r.newID()
		if err != nil {
			lastErr = err
			continue
		}

		room, err := r.register(id, now)
		if err != nil {
			lastErr = err
			r.log.Debug().Str("room", id).Int("attempt", attempt+1).Msg("room id collision")
			continue
		}
		return room, nil
	}

	return nil, coreError(ErrCodeIDExhausted,
		fmt.Sprintf("could not allocate room id after %d attempts", r.maxAttempts),
		errors.Join(ErrIDExhausted, lastErr))
}

// register adds a room with a caller-chosen identifier.
func (r *Registry) register(id string, createdAt time.Time) (*Room, error) {
	room := newRoom(id, createdAt, r.maxMessages, r.log)
	if _, loaded := r.rooms.LoadOrStore(id, room); loaded {
		return nil, coreError(ErrCodeIDCollision, "room "+id+" already exists", ErrIDCollision)
	}
	return room, nil
}

// Lookup finds a room by identifier.
func (r *Registry) Lookup(id string) (*Room, bool) {
	return r.rooms.Load(id)
}

// DeleteRoom removes a room and terminates its subscribers with ErrRoomDeleted.
// Deleting an unknown room is a no-op and returns false.
func (r *Registry) DeleteRoom(id string) bool {
	return r.remove(id, errRoomDeleted)
}

func (r *Registry) remove(id string, reason error) bool {
	room, ok := r.rooms.LoadAndDelete(id)
	if !ok {
		return false
	}
	room.close(reason)
	return true
}

// Range calls f for every room until f returns false.
func (r *Registry) Range(f func(*Room) bool) {
	r.rooms.Range(func(_ string, room *Room) bool {
		return f(room)
	})
}

// Len returns the number of registered rooms.
func (r *Registry) Len() int {
	return r.rooms.Size()
}
