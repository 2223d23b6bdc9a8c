package core

import (
	"strings"
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// DefaultReadLimit caps a single ReadFrom when the caller passes no limit,
// and is the upper bound for any limit.
const DefaultReadLimit = 500

// MessageLog is the append-only, ordered record of a room's messages.
//
// Sequence numbers start at 1 and are gapless. Append order, sequence order
// and timestamp order are identical. When maxLen is positive the log keeps
// only the newest maxLen messages; sequence numbering is unaffected.
type MessageLog struct {
	room   string
	maxLen int
	now    func() time.Time

	mu       sync.RWMutex
	messages deque.Deque[Message]
	lastSeq  uint64
	lastTime time.Time
}

// NewMessageLog creates an empty log for a room. maxLen <= 0 retains everything.
func NewMessageLog(room string, maxLen int) *MessageLog {
	return &MessageLog{
		room:   room,
		maxLen: maxLen,
		now:    time.Now,
	}
}

// Append validates and appends a message, assigning the next sequence number
// and a timestamp that never goes backwards.
func (l *MessageLog) Append(sender, body string) (Message, error) {
	sender = strings.TrimSpace(sender)
	body = strings.TrimSpace(body)
	if sender == "" {
		return Message{}, validationError("sender must not be empty")
	}
	if body == "" {
		return Message{}, validationError("message body must not be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UTC()
	if ts.Before(l.lastTime) {
		ts = l.lastTime
	}

	l.lastSeq++
	msg := Message{
		Room:   l.room,
		Seq:    l.lastSeq,
		Sender: sender,
		Body:   body,
		Time:   ts,
	}
	l.lastTime = ts
	l.push(msg)
	return msg, nil
}

// ReadFrom returns messages with Seq > fromSeq in ascending order, at most limit
// of them. limit <= 0 or above DefaultReadLimit is clamped to DefaultReadLimit.
// Passing the last returned Seq as fromSeq continues the read.
func (l *MessageLog) ReadFrom(fromSeq uint64, limit int) []Message {
	if limit <= 0 || limit > DefaultReadLimit {
		limit = DefaultReadLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	n := l.messages.Len()
	if n == 0 || fromSeq >= l.lastSeq {
		return nil
	}

	first := l.messages.Front().Seq
	start := 0
	if fromSeq >= first {
		start = int(fromSeq - first + 1)
	}

	end := start + limit
	if end > n {
		end = n
	}

	out := make([]Message, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, l.messages.At(i))
	}
	return out
}

// LastSeq returns the sequence number of the newest message, 0 if none.
func (l *MessageLog) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastSeq
}

// FirstSeq returns the sequence number of the oldest retained message, 0 if none.
func (l *MessageLog) FirstSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.messages.Len() == 0 {
		return 0
	}
	return l.messages.Front().Seq
}

// Len returns the number of retained messages.
func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.messages.Len()
}

// restore loads persisted history into an empty log. msgs must be in ascending
// sequence order; out-of-order entries are skipped.
func (l *MessageLog) restore(msgs []Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, msg := range msgs {
		if msg.Seq <= l.lastSeq {
			continue
		}
		if l.messages.Len() > 0 && msg.Seq != l.lastSeq+1 {
			// keep retained messages contiguous so ReadFrom can index by seq
			l.messages.Clear()
		}
		msg.Room = l.room
		if msg.Time.Before(l.lastTime) {
			msg.Time = l.lastTime
		}
		l.lastSeq = msg.Seq
		l.lastTime = msg.Time
		l.push(msg)
	}
}

// push must be called with mu held.
func (l *MessageLog) push(msg Message) {
	l.messages.PushBack(msg)
	if l.maxLen > 0 {
		for l.messages.Len() > l.maxLen {
			l.messages.PopFront()
		}
	}
}
