package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Frame is the wire message pushed to realtime subscribers. Data carries
// the resolved ticket for created/updated events and the bare ticket id
// for deletions.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Conn is one live connection registered with the hub. A single consumer
// drains Frames, which preserves publish order per connection. Identity may
// be nil: unbound connections stay open but belong to no channel.
type Conn struct {
	id        string
	identity  *domain.User
	send      chan Frame
	closeOnce sync.Once
}

func newConn(identity *domain.User, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 32
	}
	return &Conn{
		id:       uuid.NewString(),
		identity: identity,
		send:     make(chan Frame, buffer),
	}
}

// Identity returns the bound identity, nil for anonymous connections.
func (c *Conn) Identity() *domain.User {
	return c.identity
}

// Frames is the outbound stream for the transport writer.
func (c *Conn) Frames() <-chan Frame {
	return c.send
}

// trySend enqueues without blocking; a full buffer drops the frame. Only
// the hub calls this, and only while holding its lock, so a send never
// races the close in Unregister.
func (c *Conn) trySend(frame Frame) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
