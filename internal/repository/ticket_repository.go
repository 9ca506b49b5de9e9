package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter narrows ticket listings. A nil field means "no constraint".
type TicketFilter struct {
	CreatedByID *string
	AssigneeID  *string
	Statuses    []domain.TicketStatus
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence. GetByID returns the raw
// aggregate (id references only); GetResolved and ListWithFilter expand
// identity references and attach comments for display and fan-out.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetResolved(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// CountOpenByAssignee is the assignment engine's load metric: the
	// number of Open tickets currently assigned to the given agent.
	CountOpenByAssignee(ctx context.Context, assigneeID string) (int, error)
}

type ticketRepository struct {
	pool     *pgxpool.Pool
	comments CommentRepository
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool, comments CommentRepository) TicketRepository {
	return &ticketRepository{pool: pool, comments: comments}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, category, priority, created_by, assignee)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Category,
		ticket.Priority,
		ticket.CreatedByID,
		ticket.AssigneeID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets
        SET title=$1, description=$2, status=$3, category=$4, priority=$5, assignee=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Category,
		ticket.Priority,
		ticket.AssigneeID,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, title, description, status, category, priority, created_by, assignee, created_at, updated_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Category,
		&ticket.Priority,
		&ticket.CreatedByID,
		&ticket.AssigneeID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

const resolvedSelect = `
        SELECT t.id, t.title, t.description, t.status, t.category, t.priority,
               t.created_by, t.assignee, t.created_at, t.updated_at,
               cu.first_name, cu.last_name, cu.email, cu.role,
               au.first_name, au.last_name, au.email, au.role
        FROM tickets t
        JOIN users cu ON cu.id = t.created_by
        LEFT JOIN users au ON au.id = t.assignee`

func (r *ticketRepository) GetResolved(ctx context.Context, id string) (*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, resolvedSelect+` WHERE t.id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := r.scanResolved(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, ErrNotFound
	}
	ticket := tickets[0]
	comments, err := r.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.Comments = comments
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedByID != nil {
		args = append(args, *filter.CreatedByID)
		clauses = append(clauses, fmt.Sprintf("t.created_by=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("t.assignee=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.created_at DESC, t.id DESC`,
		resolvedSelect, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := r.scanResolved(rows)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		comments, err := r.comments.ListByTicket(ctx, tickets[i].ID)
		if err != nil {
			return nil, err
		}
		tickets[i].Comments = comments
	}
	return tickets, nil
}

func (r *ticketRepository) CountOpenByAssignee(ctx context.Context, assigneeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE assignee=$1 AND status=$2`
	var count int
	if err := r.pool.QueryRow(ctx, query, assigneeID, domain.TicketStatusOpen).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) scanResolved(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var (
			ticket  domain.Ticket
			cuFirst string
			cuLast  string
			cuEmail string
			cuRole  domain.Role
			auFirst *string
			auLast  *string
			auEmail *string
			auRole  *domain.Role
		)
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Category,
			&ticket.Priority,
			&ticket.CreatedByID,
			&ticket.AssigneeID,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&cuFirst, &cuLast, &cuEmail, &cuRole,
			&auFirst, &auLast, &auEmail, &auRole,
		); err != nil {
			return nil, err
		}
		ticket.CreatedBy = &domain.UserRef{
			ID:        ticket.CreatedByID,
			FirstName: cuFirst,
			LastName:  cuLast,
			Email:     cuEmail,
			Role:      cuRole,
		}
		if ticket.AssigneeID != nil && auFirst != nil {
			ticket.Assignee = &domain.UserRef{
				ID:        *ticket.AssigneeID,
				FirstName: *auFirst,
				LastName:  *auLast,
				Email:     *auEmail,
				Role:      *auRole,
			}
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
