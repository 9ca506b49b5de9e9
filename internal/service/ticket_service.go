package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/access"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketService orchestrates the ticket lifecycle: every mutation passes
// the access evaluation, may trigger auto-assignment, and always triggers
// fan-out. Operations are all-or-nothing at the store level; fan-out runs
// after the mutation has succeeded and its failures never surface.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	assignment *AssignmentService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	Assignment  *AssignmentService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		assignment: deps.Assignment,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// TicketCreateInput describes the ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
}

// AssigneePatch distinguishes "set assignee to this id" from "clear the
// assignee" (nil ID). Its absence on an update means the field is untouched.
type AssigneePatch struct {
	ID *string
}

// TicketUpdateInput carries the mutable fields. Anything not listed here
// (id, creator, timestamps) is unreachable through Update.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Category    *domain.TicketCategory
	Assignee    *AssigneePatch
}

// Create validates input, auto-assigns a qualified agent and persists the
// ticket, then publishes a Created event with the resolved ticket.
func (s *TicketService) Create(ctx context.Context, identity *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if identity == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if !domain.ValidCategory(input.Category) {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": input.Category})
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Category:    input.Category,
		Priority:    domain.PriorityMedium,
		CreatedByID: identity.ID,
	}

	agent, err := s.assignment.PickAssignee(ctx, input.Category)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if agent != nil {
		id := agent.ID
		ticket.AssigneeID = &id
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	resolved, err := s.tickets.GetResolved(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("ticket created",
		zap.String("ticket_id", resolved.ID),
		zap.String("category", string(resolved.Category)),
		zap.Bool("assigned", resolved.AssigneeID != nil))
	s.publish(ctx, events.KindTicketCreated, resolved)
	return resolved, nil
}

// Get loads a resolved ticket. Read access follows the same CanModify
// gate as writes: principals with no relationship to the ticket are denied.
func (s *TicketService) Get(ctx context.Context, identity *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.loadResolved(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.Evaluate(identity, ticket).CanModify {
		return nil, apperrors.NewPermissionDenied("access denied")
	}
	return ticket, nil
}

// List returns the role-scoped ticket set, most recent first: Users see
// what they created, Agents what they are assigned, Admins everything.
func (s *TicketService) List(ctx context.Context, identity *domain.User) ([]domain.Ticket, error) {
	if identity == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.TicketFilter{}
	switch identity.Role {
	case domain.RoleUser:
		id := identity.ID
		filter.CreatedByID = &id
	case domain.RoleAgent:
		id := identity.ID
		filter.AssigneeID = &id
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Update applies the allow-listed field changes after access evaluation
// and the assignee policy, then publishes an Updated event.
func (s *TicketService) Update(ctx context.Context, identity *domain.User, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	if identity == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.loadRaw(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.Evaluate(identity, ticket).CanModify {
		return nil, apperrors.NewPermissionDenied("you are not allowed to update this ticket")
	}

	if input.Assignee != nil {
		if err := assigneePolicy(identity, input.Assignee); err != nil {
			return nil, err
		}
	}
	if err := applyUpdate(ticket, input); err != nil {
		return nil, err
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	resolved, err := s.tickets.GetResolved(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.KindTicketUpdated, resolved)
	return resolved, nil
}

// Delete removes the ticket and publishes a Deleted event carrying only the
// ticket id: the object no longer exists by the time subscribers hear of it.
func (s *TicketService) Delete(ctx context.Context, identity *domain.User, id string) error {
	ticket, err := s.loadRaw(ctx, id)
	if err != nil {
		return err
	}
	if !access.Evaluate(identity, ticket).CanModify {
		return apperrors.NewPermissionDenied("not authorized to delete this ticket")
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return apperrors.MapError(err)
	}
	s.logger.Info("ticket deleted",
		zap.String("ticket_id", ticket.ID),
		zap.String("deleted_by", identity.ID))
	s.publish(ctx, events.KindTicketDeleted, ticket)
	return nil
}

// AddComment appends a comment. Authorship is gated on authentication
// only, not on CanModify; comment addition is modeled as a ticket update.
func (s *TicketService) AddComment(ctx context.Context, identity *domain.User, ticketID, body string) (*domain.Ticket, error) {
	if identity == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !domain.ValidCommentBody(body) {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	ticket, err := s.loadRaw(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: identity.ID,
		Body:     strings.TrimSpace(body),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	resolved, err := s.tickets.GetResolved(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.KindTicketUpdated, resolved)
	return resolved, nil
}

func assigneePolicy(identity *domain.User, patch *AssigneePatch) error {
	switch identity.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleAgent:
		// agents may take a ticket, never hand it off or drop it
		if patch.ID == nil || *patch.ID != identity.ID {
			return apperrors.NewPermissionDenied("agents may only assign tickets to themselves")
		}
		return nil
	default:
		return apperrors.NewPermissionDenied("users may not change the assignee")
	}
}

func applyUpdate(ticket *domain.Ticket, input TicketUpdateInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return apperrors.NewValidationError("title is required", nil)
		}
		ticket.Title = title
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		if !domain.ValidStatus(*input.Status) {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
		ticket.Status = *input.Status
	}
	if input.Priority != nil {
		if !domain.ValidPriority(*input.Priority) {
			return apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}
	if input.Category != nil {
		if !domain.ValidCategory(*input.Category) {
			return apperrors.NewValidationError("invalid category", map[string]any{"category": *input.Category})
		}
		ticket.Category = *input.Category
	}
	if input.Assignee != nil {
		if input.Assignee.ID != nil {
			id := *input.Assignee.ID
			ticket.AssigneeID = &id
		} else {
			ticket.AssigneeID = nil
		}
		ticket.Assignee = nil
	}
	return nil
}

func (s *TicketService) loadRaw(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) loadResolved(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetResolved(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, kind events.Kind, ticket *domain.Ticket) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:          uuid.NewString(),
		Kind:        kind,
		TicketID:    ticket.ID,
		CreatedByID: ticket.CreatedByID,
		AssigneeID:  ticket.AssigneeID,
		Timestamp:   time.Now(),
	}
	if kind != events.KindTicketDeleted {
		event.Ticket = events.NewTicketPayload(ticket)
	}
	_ = s.dispatcher.Publish(ctx, event)
}
