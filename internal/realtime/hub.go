// Package realtime fans lifecycle events out to live connections. The hub
// is an explicitly owned registry, constructed once at process start and
// shared by the connection-accept path and the event subscription; it holds
// no business logic and routes only already-validated events.
package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// StaffChannel is the shared broadcast channel joined by every connection
// bound to an Agent or Admin identity.
const StaffChannel = "staff"

// Bridge propagates published events to other instances. Implementations
// must not block the publisher beyond a short network write.
type Bridge interface {
	Broadcast(ctx context.Context, event events.Event) error
}

// Hub tracks channel membership for live connections and publishes
// lifecycle events to the audience of each ticket: creator channel,
// assignee channel (if any), then staff, each best-effort, at most one
// delivery per channel. Membership mutates only on register/unregister and
// is safe against concurrent publishes.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Conn]struct{}
	members  map[*Conn][]string

	bufferSize int
	logger     *zap.Logger
	metrics    *observability.Metrics
	bridge     Bridge
}

// NewHub creates an empty hub.
func NewHub(bufferSize int, logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		channels:   make(map[string]map[*Conn]struct{}),
		members:    make(map[*Conn][]string),
		bufferSize: bufferSize,
		logger:     logger,
		metrics:    metrics,
	}
}

// SetBridge attaches the cross-instance bridge. Call before serving.
func (h *Hub) SetBridge(bridge Bridge) {
	h.bridge = bridge
}

// Register admits a connection. A bound identity joins its private channel
// and, for staff roles, the shared staff channel; a nil identity joins
// nothing but the connection stays open.
func (h *Hub) Register(identity *domain.User) *Conn {
	conn := newConn(identity, h.bufferSize)

	var channelKeys []string
	if identity != nil {
		channelKeys = append(channelKeys, identity.ID)
		if identity.IsStaff() {
			channelKeys = append(channelKeys, StaffChannel)
		}
	}

	h.mu.Lock()
	h.members[conn] = channelKeys
	for _, key := range channelKeys {
		if h.channels[key] == nil {
			h.channels[key] = make(map[*Conn]struct{})
		}
		h.channels[key][conn] = struct{}{}
	}
	h.mu.Unlock()

	h.metrics.ConnOpened()
	if identity != nil {
		h.logger.Debug("realtime connection bound",
			zap.String("user_id", identity.ID),
			zap.String("role", string(identity.Role)))
	} else {
		h.logger.Debug("realtime connection accepted unbound")
	}
	return conn
}

// Unregister removes the connection from every channel and closes its
// outbound stream. Safe to call for connections dropping mid-publish.
func (h *Hub) Unregister(conn *Conn) {
	if conn == nil {
		return
	}
	h.mu.Lock()
	keys, known := h.members[conn]
	if known {
		for _, key := range keys {
			if members := h.channels[key]; members != nil {
				delete(members, conn)
				if len(members) == 0 {
					delete(h.channels, key)
				}
			}
		}
		delete(h.members, conn)
	}
	h.mu.Unlock()

	if known {
		conn.close()
		h.metrics.ConnClosed()
	}
}

// Publish routes an event to its local audience and hands it to the bridge
// for other instances. Failures never propagate to the caller: the
// originating mutation has already succeeded.
func (h *Hub) Publish(ctx context.Context, event events.Event) {
	h.Deliver(event)
	if h.bridge != nil {
		if err := h.bridge.Broadcast(ctx, event); err != nil {
			h.logger.Warn("realtime bridge publish failed",
				zap.String("ticket_id", event.TicketID), zap.Error(err))
		}
	}
}

// Deliver routes an event to local subscribers only. The audience is the
// creator channel, the assignee channel when present, then staff, in that
// fixed order. A connection in several matching channels may receive
// duplicates; within one channel it receives the event at most once.
func (h *Hub) Deliver(event events.Event) {
	frame := frameFor(event)
	audience := make([]string, 0, 3)
	if event.CreatedByID != "" {
		audience = append(audience, event.CreatedByID)
	}
	if event.AssigneeID != nil && *event.AssigneeID != "" {
		audience = append(audience, *event.AssigneeID)
	}
	audience = append(audience, StaffChannel)

	h.metrics.EventPublished()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, key := range audience {
		for conn := range h.channels[key] {
			if !conn.trySend(frame) {
				h.metrics.EventDropped()
				h.logger.Debug("realtime frame dropped",
					zap.String("channel", key),
					zap.String("ticket_id", event.TicketID))
			}
		}
	}
}

// SubscribeTo wires the hub to the lifecycle event dispatcher.
func (h *Hub) SubscribeTo(dispatcher events.Dispatcher) {
	handler := func(ctx context.Context, event events.Event) error {
		h.Publish(ctx, event)
		return nil
	}
	dispatcher.Subscribe(events.KindTicketCreated, handler)
	dispatcher.Subscribe(events.KindTicketUpdated, handler)
	dispatcher.Subscribe(events.KindTicketDeleted, handler)
}

func frameFor(event events.Event) Frame {
	if event.Kind == events.KindTicketDeleted {
		return Frame{Event: string(event.Kind), Data: event.TicketID}
	}
	return Frame{Event: string(event.Kind), Data: event.Ticket}
}
