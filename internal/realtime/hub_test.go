package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
)

func newTestHub(buffer int) *Hub {
	return NewHub(buffer, zap.NewNop(), observability.NewMetrics())
}

func ticketEvent(kind events.Kind, ticketID, creatorID string, assigneeID *string) events.Event {
	event := events.Event{
		ID:          "evt-" + ticketID,
		Kind:        kind,
		TicketID:    ticketID,
		CreatedByID: creatorID,
		AssigneeID:  assigneeID,
	}
	if kind != events.KindTicketDeleted {
		event.Ticket = &events.TicketPayload{ID: ticketID, Title: "t"}
	}
	return event
}

func drain(conn *Conn) []Frame {
	var frames []Frame
	for {
		select {
		case frame := <-conn.send:
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

func TestDeliver_AudienceRouting(t *testing.T) {
	hub := newTestHub(8)

	creator := hub.Register(&domain.User{ID: "u1", Role: domain.RoleUser})
	assignee := hub.Register(&domain.User{ID: "a1", Role: domain.RoleAgent})
	observerAdmin := hub.Register(&domain.User{ID: "admin", Role: domain.RoleAdmin})
	bystander := hub.Register(&domain.User{ID: "u2", Role: domain.RoleUser})

	assigneeID := "a1"
	hub.Deliver(ticketEvent(events.KindTicketCreated, "t1", "u1", &assigneeID))

	require.Len(t, drain(creator), 1)
	require.Len(t, drain(observerAdmin), 1)
	assert.Empty(t, drain(bystander))

	// the assignee is staff too: one copy per matching channel
	assert.Len(t, drain(assignee), 2)
}

func TestDeliver_UnassignedTicket(t *testing.T) {
	hub := newTestHub(8)
	creator := hub.Register(&domain.User{ID: "u1", Role: domain.RoleUser})
	staff := hub.Register(&domain.User{ID: "a1", Role: domain.RoleAgent})

	hub.Deliver(ticketEvent(events.KindTicketCreated, "t1", "u1", nil))

	require.Len(t, drain(creator), 1)
	require.Len(t, drain(staff), 1)
}

func TestDeliver_DeletedCarriesIDOnly(t *testing.T) {
	hub := newTestHub(8)
	creator := hub.Register(&domain.User{ID: "u1", Role: domain.RoleUser})

	hub.Deliver(ticketEvent(events.KindTicketDeleted, "t9", "u1", nil))

	frames := drain(creator)
	require.Len(t, frames, 1)
	assert.Equal(t, string(events.KindTicketDeleted), frames[0].Event)
	assert.Equal(t, "t9", frames[0].Data)
}

func TestRegister_UnboundConnectionJoinsNothing(t *testing.T) {
	hub := newTestHub(8)
	anon := hub.Register(nil)

	assigneeID := "a1"
	hub.Deliver(ticketEvent(events.KindTicketUpdated, "t1", "u1", &assigneeID))

	assert.Empty(t, drain(anon))
	hub.Unregister(anon)
}

func TestUnregister_Idempotent(t *testing.T) {
	hub := newTestHub(8)
	conn := hub.Register(&domain.User{ID: "u1", Role: domain.RoleUser})

	hub.Unregister(conn)
	hub.Unregister(conn)
	hub.Unregister(nil)

	// membership is gone: a publish after disconnect reaches nobody
	hub.Deliver(ticketEvent(events.KindTicketCreated, "t1", "u1", nil))

	_, open := <-conn.Frames()
	assert.False(t, open)
}

func TestDeliver_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := newTestHub(1)
	conn := hub.Register(&domain.User{ID: "u1", Role: domain.RoleUser})

	hub.Deliver(ticketEvent(events.KindTicketCreated, "t1", "u1", nil))
	hub.Deliver(ticketEvent(events.KindTicketUpdated, "t1", "u1", nil))
	hub.Deliver(ticketEvent(events.KindTicketUpdated, "t1", "u1", nil))

	frames := drain(conn)
	require.Len(t, frames, 1)
	assert.Equal(t, string(events.KindTicketCreated), frames[0].Event)
}

func TestPublish_ForwardsToBridge(t *testing.T) {
	hub := newTestHub(8)
	bridge := &recordingBridge{}
	hub.SetBridge(bridge)

	hub.Publish(context.Background(), ticketEvent(events.KindTicketCreated, "t1", "u1", nil))

	require.Len(t, bridge.events, 1)
	assert.Equal(t, "t1", bridge.events[0].TicketID)
}

type recordingBridge struct {
	events []events.Event
}

func (b *recordingBridge) Broadcast(_ context.Context, event events.Event) error {
	b.events = append(b.events, event)
	return nil
}
