package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// MemoryStore is a process-local implementation of the repository
// interfaces. It backs the test suites and the no-database boot path, and
// honors the same contracts as the Postgres backend: atomic per-record
// read-modify-write, stable enumeration order, ErrNotFound for unknown ids.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	tickets  map[string]domain.Ticket
	comments map[string][]domain.Comment
	seq      map[string]int64
	nextSeq  int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		tickets:  make(map[string]domain.Ticket),
		comments: make(map[string][]domain.Comment),
		seq:      make(map[string]int64),
	}
}

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() UserRepository { return (*memoryUsers)(s) }

// Tickets returns the ticket repository view of the store.
func (s *MemoryStore) Tickets() TicketRepository { return (*memoryTickets)(s) }

// Comments returns the comment repository view of the store.
func (s *MemoryStore) Comments() CommentRepository { return (*memoryComments)(s) }

type memoryUsers MemoryStore

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.nextSeq++
	m.seq[user.ID] = m.nextSeq
	m.users[user.ID] = cloneUser(*user)
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	user = cloneUser(user)
	return &user, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Email == email {
			user = cloneUser(user)
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryUsers) ListAgentsByDepartment(_ context.Context, department string) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.User
	for _, user := range m.users {
		if user.Role == domain.RoleAgent && user.HasDepartment(department) {
			result = append(result, cloneUser(user))
		}
	}
	// oldest first, matching the Postgres enumeration order
	sort.Slice(result, func(i, j int) bool {
		return m.seq[result[i].ID] < m.seq[result[j].ID]
	})
	return result, nil
}

func (m *memoryUsers) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.User
	for _, user := range m.users {
		result = append(result, cloneUser(user))
	}
	sort.Slice(result, func(i, j int) bool {
		return m.seq[result[i].ID] > m.seq[result[j].ID]
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

type memoryTickets MemoryStore

func (m *memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	m.nextSeq++
	m.seq[ticket.ID] = m.nextSeq
	m.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (m *memoryTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tickets[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	ticket.CreatedByID = stored.CreatedByID
	ticket.CreatedAt = stored.CreatedAt
	ticket.UpdatedAt = time.Now()
	m.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (m *memoryTickets) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[id]; !ok {
		return ErrNotFound
	}
	delete(m.tickets, id)
	delete(m.comments, id)
	return nil
}

func (m *memoryTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	ticket = cloneTicket(ticket)
	return &ticket, nil
}

func (m *memoryTickets) GetResolved(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	resolved := m.resolveLocked(ticket)
	return &resolved, nil
}

func (m *memoryTickets) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range m.tickets {
		if filter.CreatedByID != nil && ticket.CreatedByID != *filter.CreatedByID {
			continue
		}
		if filter.AssigneeID != nil {
			if ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		result = append(result, m.resolveLocked(ticket))
	}
	// most recent first, matching the Postgres ordering
	sort.Slice(result, func(i, j int) bool {
		return m.seq[result[i].ID] > m.seq[result[j].ID]
	})
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		if offset >= len(result) {
			return nil, nil
		}
		result = result[offset:]
		if filter.Limit < len(result) {
			result = result[:filter.Limit]
		}
	}
	return result, nil
}

func (m *memoryTickets) CountOpenByAssignee(_ context.Context, assigneeID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, ticket := range m.tickets {
		if ticket.Status != domain.TicketStatusOpen {
			continue
		}
		if ticket.AssigneeID != nil && *ticket.AssigneeID == assigneeID {
			count++
		}
	}
	return count, nil
}

func (m *memoryTickets) resolveLocked(ticket domain.Ticket) domain.Ticket {
	resolved := cloneTicket(ticket)
	if creator, ok := m.users[resolved.CreatedByID]; ok {
		resolved.CreatedBy = creator.Ref()
	}
	if resolved.AssigneeID != nil {
		if assignee, ok := m.users[*resolved.AssigneeID]; ok {
			resolved.Assignee = assignee.Ref()
		}
	}
	comments := m.comments[resolved.ID]
	resolved.Comments = make([]domain.Comment, 0, len(comments))
	for _, c := range comments {
		if author, ok := m.users[c.AuthorID]; ok {
			c.Author = author.Ref()
		}
		resolved.Comments = append(resolved.Comments, c)
	}
	return resolved
}

type memoryComments MemoryStore

func (m *memoryComments) Create(_ context.Context, comment *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[comment.TicketID]; !ok {
		return ErrNotFound
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = time.Now()
	m.comments[comment.TicketID] = append(m.comments[comment.TicketID], *comment)
	return nil
}

func (m *memoryComments) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.comments[ticketID]
	result := make([]domain.Comment, len(stored))
	copy(result, stored)
	return result, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func cloneUser(user domain.User) domain.User {
	user.Departments = append([]string(nil), user.Departments...)
	return user
}

func cloneTicket(ticket domain.Ticket) domain.Ticket {
	if ticket.AssigneeID != nil {
		id := *ticket.AssigneeID
		ticket.AssigneeID = &id
	}
	// raw storage never keeps resolved references or comments
	ticket.CreatedBy = nil
	ticket.Assignee = nil
	ticket.Comments = nil
	return ticket
}
