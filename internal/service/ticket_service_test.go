package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) subscribe(d events.Dispatcher) {
	handler := func(_ context.Context, e events.Event) error {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
		return nil
	}
	d.Subscribe(events.KindTicketCreated, handler)
	d.Subscribe(events.KindTicketUpdated, handler)
	d.Subscribe(events.KindTicketDeleted, handler)
}

func (r *eventRecorder) last(t *testing.T) events.Event {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.events)
	return r.events[len(r.events)-1]
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type ticketFixture struct {
	store    *repository.MemoryStore
	service  *TicketService
	recorder *eventRecorder
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	recorder.subscribe(dispatcher)

	assignment := NewAssignmentService(AssignmentDependencies{
		UserRepo:   store.Users(),
		TicketRepo: store.Tickets(),
	})
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  store.Tickets(),
		CommentRepo: store.Comments(),
		Assignment:  assignment,
		Dispatcher:  dispatcher,
	})
	return &ticketFixture{store: store, service: svc, recorder: recorder}
}

func (f *ticketFixture) seedUser(t *testing.T, email string, role domain.Role, departments ...string) *domain.User {
	t.Helper()
	user := &domain.User{
		FirstName:   "Test",
		LastName:    email,
		Email:       email,
		Role:        role,
		Departments: departments,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	assert.Equal(t, code, domainErr.Code)
}

func TestCreate_DefaultsAndAutoAssign(t *testing.T) {
	f := newTicketFixture(t)
	creator := f.seedUser(t, "user@example.com", domain.RoleUser)
	agent := f.seedUser(t, "agent@example.com", domain.RoleAgent, "Technical")

	ticket, err := f.service.Create(context.Background(), creator, TicketCreateInput{
		Title:    "  printer on fire  ",
		Category: domain.CategoryTechnical,
	})
	require.NoError(t, err)

	assert.Equal(t, "printer on fire", ticket.Title)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.PriorityMedium, ticket.Priority)
	assert.Equal(t, creator.ID, ticket.CreatedByID)
	require.NotNil(t, ticket.AssigneeID)
	assert.Equal(t, agent.ID, *ticket.AssigneeID)
	require.NotNil(t, ticket.CreatedBy)
	assert.Equal(t, creator.Email, ticket.CreatedBy.Email)

	event := f.recorder.last(t)
	assert.Equal(t, events.KindTicketCreated, event.Kind)
	assert.Equal(t, ticket.ID, event.TicketID)
	require.NotNil(t, event.Ticket)
	assert.Equal(t, ticket.Title, event.Ticket.Title)
}

func TestCreate_NoQualifiedAgentLeavesUnassigned(t *testing.T) {
	f := newTicketFixture(t)
	creator := f.seedUser(t, "user@example.com", domain.RoleUser)

	ticket, err := f.service.Create(context.Background(), creator, TicketCreateInput{
		Title:    "billing question",
		Category: domain.CategoryBilling,
	})
	require.NoError(t, err)
	assert.Nil(t, ticket.AssigneeID)
	assert.Nil(t, ticket.Assignee)
}

func TestCreate_Validation(t *testing.T) {
	f := newTicketFixture(t)
	creator := f.seedUser(t, "user@example.com", domain.RoleUser)

	_, err := f.service.Create(context.Background(), creator, TicketCreateInput{
		Title: "   ", Category: domain.CategoryGeneral,
	})
	assertCode(t, err, "VALIDATION_FAILED")

	_, err = f.service.Create(context.Background(), creator, TicketCreateInput{
		Title: "valid", Category: "Gardening",
	})
	assertCode(t, err, "VALIDATION_FAILED")
	assert.Zero(t, f.recorder.count())
}

func TestGet_AccessGatesReads(t *testing.T) {
	f := newTicketFixture(t)
	creator := f.seedUser(t, "user@example.com", domain.RoleUser)
	stranger := f.seedUser(t, "stranger@example.com", domain.RoleUser)
	admin := f.seedUser(t, "admin@example.com", domain.RoleAdmin)

	created, err := f.service.Create(context.Background(), creator, TicketCreateInput{
		Title: "help", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	got, err := f.service.Get(context.Background(), creator, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = f.service.Get(context.Background(), stranger, created.ID)
	assertCode(t, err, "PERMISSION_DENIED")

	_, err = f.service.Get(context.Background(), admin, created.ID)
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), creator, "missing-id")
	assertCode(t, err, "NOT_FOUND")
}

func TestUpdate_AllowListedFields(t *testing.T) {
	f := newTicketFixture(t)
	creator := f.seedUser(t, "user@example.com", domain.RoleUser)

	created, err := f.service.Create(context.Background(), creator, TicketCreateInput{
		Title: "slow laptop", Category: domain.CategoryTechnical,
	})
	require.NoError(t, err)

	status := domain.TicketStatusInProgress
	priority := domain.PriorityHigh
	updated, err := f.service.Update(context.Background(), creator, created.ID, TicketUpdateInput{
		Status:   &status,
		Priority: &priority,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, domain.PriorityHigh, updated.Priority)
	assert.Equal(t, created.Title, updated.Title)
	assert.Equal(t, created.CreatedByID, updated.CreatedByID)

	event := f.recorder.last(t)
	assert.Equal(t, events.KindTicketUpdated, event.Kind)

	bad := domain.TicketStatus("Resolved")
	_, err = f.service.Update(context.Background(), creator, created.ID, TicketUpdateInput{Status: &bad})
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestUpdate_AssigneePolicy(t *testing.T) {
	f := newTicketFixture(t)
	creator := f.seedUser(t, "user@example.com", domain.RoleUser)
	agent := f.seedUser(t, "agent@example.com", domain.RoleAgent, "General")
	other := f.seedUser(t, "other-agent@example.com", domain.RoleAgent, "General")
	admin := f.seedUser(t, "admin@example.com", domain.RoleAdmin)

	created, err := f.service.Create(context.Background(), creator, TicketCreateInput{
		Title: "question", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)
	require.NotNil(t, created.AssigneeID)

	// the assigned agent may not hand the ticket to a colleague
	_, err = f.service.Update(context.Background(), agent, created.ID, TicketUpdateInput{
		Assignee: &AssigneePatch{ID: &other.ID},
	})
	assertCode(t, err, "PERMISSION_DENIED")

	// nor drop it
	_, err = f.service.Update(context.Background(), agent, created.ID, TicketUpdateInput{
		Assignee: &AssigneePatch{},
	})
	assertCode(t, err, "PERMISSION_DENIED")

	// self-assignment is fine
	updated, err := f.service.Update(context.Background(), agent, created.ID, TicketUpdateInput{
		Assignee: &AssigneePatch{ID: &agent.ID},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, agent.ID, *updated.AssigneeID)

	// the creator may not touch the assignee at all
	_, err = f.service.Update(context.Background(), creator, created.ID, TicketUpdateInput{
		Assignee: &AssigneePatch{ID: &other.ID},
	})
	assertCode(t, err, "PERMISSION_DENIED")

	// admins reassign and clear freely
	updated, err = f.service.Update(context.Background(), admin, created.ID, TicketUpdateInput{
		Assignee: &AssigneePatch{ID: &other.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, *updated.AssigneeID)

	updated, err = f.service.Update(context.Background(), admin, created.ID, TicketUpdateInput{
		Assignee: &AssigneePatch{},
	})
	require.NoError(t, err)
	assert.Nil(t, updated.AssigneeID)
	assert.Nil(t, updated.Assignee)
}

func TestDelete_PublishesIDOnly(t *testing.T) {
	f := newTicketFixture(t)
	creator := f.seedUser(t, "user@example.com", domain.RoleUser)
	stranger := f.seedUser(t, "stranger@example.com", domain.RoleUser)

	created, err := f.service.Create(context.Background(), creator, TicketCreateInput{
		Title: "obsolete", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	err = f.service.Delete(context.Background(), stranger, created.ID)
	assertCode(t, err, "PERMISSION_DENIED")

	require.NoError(t, f.service.Delete(context.Background(), creator, created.ID))

	event := f.recorder.last(t)
	assert.Equal(t, events.KindTicketDeleted, event.Kind)
	assert.Equal(t, created.ID, event.TicketID)
	assert.Equal(t, creator.ID, event.CreatedByID)
	assert.Nil(t, event.Ticket)

	_, err = f.service.Get(context.Background(), creator, created.ID)
	assertCode(t, err, "NOT_FOUND")
}

func TestAddComment_AuthenticationOnly(t *testing.T) {
	f := newTicketFixture(t)
	creator := f.seedUser(t, "user@example.com", domain.RoleUser)
	stranger := f.seedUser(t, "stranger@example.com", domain.RoleUser)

	created, err := f.service.Create(context.Background(), creator, TicketCreateInput{
		Title: "question", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	// commenting is open to any authenticated identity, related or not
	updated, err := f.service.AddComment(context.Background(), stranger, created.ID, "have you tried rebooting?")
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	assert.Equal(t, stranger.ID, updated.Comments[0].AuthorID)
	require.NotNil(t, updated.Comments[0].Author)
	assert.Equal(t, stranger.Email, updated.Comments[0].Author.Email)

	event := f.recorder.last(t)
	assert.Equal(t, events.KindTicketUpdated, event.Kind)
	require.NotNil(t, event.Ticket)
	require.Len(t, event.Ticket.Comments, 1)

	_, err = f.service.AddComment(context.Background(), stranger, created.ID, "   ")
	assertCode(t, err, "VALIDATION_FAILED")

	_, err = f.service.AddComment(context.Background(), nil, created.ID, "hello")
	assertCode(t, err, "UNAUTHORIZED")
}

func TestList_RoleScoping(t *testing.T) {
	f := newTicketFixture(t)
	alice := f.seedUser(t, "alice@example.com", domain.RoleUser)
	bob := f.seedUser(t, "bob@example.com", domain.RoleUser)
	agent := f.seedUser(t, "agent@example.com", domain.RoleAgent, "Technical")
	admin := f.seedUser(t, "admin@example.com", domain.RoleAdmin)

	first, err := f.service.Create(context.Background(), alice, TicketCreateInput{
		Title: "alice technical", Category: domain.CategoryTechnical,
	})
	require.NoError(t, err)
	second, err := f.service.Create(context.Background(), bob, TicketCreateInput{
		Title: "bob general", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	aliceView, err := f.service.List(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, aliceView, 1)
	assert.Equal(t, first.ID, aliceView[0].ID)

	agentView, err := f.service.List(context.Background(), agent)
	require.NoError(t, err)
	require.Len(t, agentView, 1)
	assert.Equal(t, first.ID, agentView[0].ID)

	adminView, err := f.service.List(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, adminView, 2)
	// newest first
	assert.Equal(t, second.ID, adminView[0].ID)
	assert.Equal(t, first.ID, adminView[1].ID)

	// listing is read-only: repeating it changes nothing
	again, err := f.service.List(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, len(adminView), len(again))
}
