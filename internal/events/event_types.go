package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Kind enumerates the lifecycle event kinds exposed to subscribers. The
// names double as the wire event names on realtime connections.
type Kind string

const (
	KindTicketCreated Kind = "ticketCreated"
	KindTicketUpdated Kind = "ticketUpdated"
	KindTicketDeleted Kind = "ticketDeleted"
)

// UserPayload is the serialized display projection of a user reference.
type UserPayload struct {
	ID        string      `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
}

// CommentPayload is the serialized form of a ticket comment.
type CommentPayload struct {
	ID        string       `json:"id"`
	Author    *UserPayload `json:"author,omitempty"`
	Body      string       `json:"body"`
	CreatedAt time.Time    `json:"createdAt"`
}

// TicketPayload is the fully resolved ticket carried by created/updated
// events and serialized onto realtime connections and the redis bridge.
type TicketPayload struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Status      domain.TicketStatus   `json:"status"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedBy   *UserPayload          `json:"createdBy,omitempty"`
	Assignee    *UserPayload          `json:"assignee,omitempty"`
	Comments    []CommentPayload      `json:"comments"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// Event is a lifecycle notification. CreatedByID and AssigneeID are the
// routing keys for the fan-out audience; Ticket is nil for deletions since
// the object no longer exists.
type Event struct {
	ID          string         `json:"id"`
	Kind        Kind           `json:"kind"`
	TicketID    string         `json:"ticketId"`
	CreatedByID string         `json:"createdById"`
	AssigneeID  *string        `json:"assigneeId,omitempty"`
	Ticket      *TicketPayload `json:"ticket,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

func userPayload(ref *domain.UserRef) *UserPayload {
	if ref == nil {
		return nil
	}
	return &UserPayload{
		ID:        ref.ID,
		FirstName: ref.FirstName,
		LastName:  ref.LastName,
		Email:     ref.Email,
		Role:      ref.Role,
	}
}

// NewTicketPayload projects a resolved ticket into its wire form.
func NewTicketPayload(t *domain.Ticket) *TicketPayload {
	if t == nil {
		return nil
	}
	comments := make([]CommentPayload, 0, len(t.Comments))
	for _, c := range t.Comments {
		comments = append(comments, CommentPayload{
			ID:        c.ID,
			Author:    userPayload(c.Author),
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}
	return &TicketPayload{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Category:    t.Category,
		Priority:    t.Priority,
		CreatedBy:   userPayload(t.CreatedBy),
		Assignee:    userPayload(t.Assignee),
		Comments:    comments,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
