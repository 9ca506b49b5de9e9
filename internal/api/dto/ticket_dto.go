package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
}

// UpdateTicketRequest payload. Assignee is raw so the three wire shapes
// stay distinguishable: absent (untouched), null (clear), string (set).
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *domain.TicketStatus   `json:"status"`
	Priority    *domain.TicketPriority `json:"priority"`
	Category    *domain.TicketCategory `json:"category"`
	Assignee    json.RawMessage        `json:"assignee"`
}

// AssigneePatch decodes the assignee field into the service's tri-state
// form. An empty string counts as a clear.
func (r UpdateTicketRequest) AssigneePatch() (*service.AssigneePatch, error) {
	if len(r.Assignee) == 0 {
		return nil, nil
	}
	var id *string
	if err := json.Unmarshal(r.Assignee, &id); err != nil {
		return nil, err
	}
	if id != nil && *id == "" {
		id = nil
	}
	return &service.AssigneePatch{ID: id}, nil
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// SuggestReplyResponse carries the drafted reply.
type SuggestReplyResponse struct {
	Suggestion string `json:"suggestion"`
}

// UserRefResponse is the embedded user projection.
type UserRefResponse struct {
	ID        string      `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID        string           `json:"id"`
	Author    *UserRefResponse `json:"author,omitempty"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"createdAt"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Status      domain.TicketStatus   `json:"status"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedByID string                `json:"createdById"`
	AssigneeID  *string               `json:"assigneeId,omitempty"`
	CreatedBy   *UserRefResponse      `json:"createdBy,omitempty"`
	Assignee    *UserRefResponse      `json:"assignee,omitempty"`
	Comments    []CommentResponse     `json:"comments"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// NewTicketResponse maps a domain ticket onto the wire form.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	comments := make([]CommentResponse, 0, len(t.Comments))
	for _, c := range t.Comments {
		comments = append(comments, CommentResponse{
			ID:        c.ID,
			Author:    newUserRefResponse(c.Author),
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}
	return TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Category:    t.Category,
		Priority:    t.Priority,
		CreatedByID: t.CreatedByID,
		AssigneeID:  t.AssigneeID,
		CreatedBy:   newUserRefResponse(t.CreatedBy),
		Assignee:    newUserRefResponse(t.Assignee),
		Comments:    comments,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func newUserRefResponse(ref *domain.UserRef) *UserRefResponse {
	if ref == nil {
		return nil
	}
	return &UserRefResponse{
		ID:        ref.ID,
		FirstName: ref.FirstName,
		LastName:  ref.LastName,
		Email:     ref.Email,
		Role:      ref.Role,
	}
}
