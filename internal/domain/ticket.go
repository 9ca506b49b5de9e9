package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states. Any state may transition to any
// other; the system does not model terminal states.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusClosed     TicketStatus = "Closed"
)

// ValidStatus reports whether the value is a known status.
func ValidStatus(s TicketStatus) bool {
	return s == TicketStatusOpen || s == TicketStatusInProgress || s == TicketStatusClosed
}

// TicketCategory routes tickets to qualified agents.
type TicketCategory string

const (
	CategoryBilling   TicketCategory = "Billing"
	CategoryTechnical TicketCategory = "Technical"
	CategoryGeneral   TicketCategory = "General"
)

// ValidCategory reports whether the value is a known category.
func ValidCategory(c TicketCategory) bool {
	return c == CategoryBilling || c == CategoryTechnical || c == CategoryGeneral
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "Low"
	PriorityMedium TicketPriority = "Medium"
	PriorityHigh   TicketPriority = "High"
)

// ValidPriority reports whether the value is a known priority.
func ValidPriority(p TicketPriority) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Ticket is the aggregate for support requests. CreatedByID is set once at
// creation and never changes; AssigneeID is nullable and mutable. CreatedBy
// and Assignee are expanded user references present only on resolved
// tickets loaded for display or fan-out.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	Category    TicketCategory
	Priority    TicketPriority
	CreatedByID string
	AssigneeID  *string
	CreatedBy   *UserRef
	Assignee    *UserRef
	Comments    []Comment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is owned by its parent ticket: appended once, never edited,
// removed only when the ticket is deleted.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Author    *UserRef
	Body      string
	CreatedAt time.Time
}

// ValidCommentBody reports whether the body is non-empty after trimming.
func ValidCommentBody(body string) bool {
	return strings.TrimSpace(body) != ""
}
