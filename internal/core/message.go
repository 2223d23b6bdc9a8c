package core

import "time"

// Message is the domain model for a chat message.
// Messages are immutable once appended to a room's log.
type Message struct {
	Room   string
	Seq    uint64
	Sender string
	Body   string
	Time   time.Time
}
