package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func ptr(s string) *string { return &s }

func TestEvaluate_Owner(t *testing.T) {
	identity := &domain.User{ID: "u1", Role: domain.RoleUser}
	ticket := &domain.Ticket{ID: "t1", CreatedByID: "u1"}

	d := Evaluate(identity, ticket)
	assert.True(t, d.IsOwner)
	assert.False(t, d.IsAssignee)
	assert.False(t, d.IsAdmin)
	assert.True(t, d.CanModify)
}

func TestEvaluate_AssigneeByRawID(t *testing.T) {
	identity := &domain.User{ID: "a1", Role: domain.RoleAgent}
	ticket := &domain.Ticket{ID: "t1", CreatedByID: "u1", AssigneeID: ptr("a1")}

	d := Evaluate(identity, ticket)
	assert.False(t, d.IsOwner)
	assert.True(t, d.IsAssignee)
	assert.True(t, d.CanModify)
}

func TestEvaluate_AssigneeByResolvedRef(t *testing.T) {
	identity := &domain.User{ID: "a1", Role: domain.RoleAgent}
	ticket := &domain.Ticket{
		ID:          "t1",
		CreatedByID: "u1",
		Assignee:    &domain.UserRef{ID: "a1"},
	}

	d := Evaluate(identity, ticket)
	assert.True(t, d.IsAssignee)
	assert.True(t, d.CanModify)
}

func TestEvaluate_AdminAlwaysModifies(t *testing.T) {
	identity := &domain.User{ID: "admin", Role: domain.RoleAdmin}
	ticket := &domain.Ticket{ID: "t1", CreatedByID: "u1", AssigneeID: ptr("a1")}

	d := Evaluate(identity, ticket)
	assert.False(t, d.IsOwner)
	assert.False(t, d.IsAssignee)
	assert.True(t, d.IsAdmin)
	assert.True(t, d.CanModify)
}

func TestEvaluate_StrangerDenied(t *testing.T) {
	identity := &domain.User{ID: "other", Role: domain.RoleUser}
	ticket := &domain.Ticket{ID: "t1", CreatedByID: "u1", AssigneeID: ptr("a1")}

	d := Evaluate(identity, ticket)
	assert.Equal(t, Decision{}, d)
}

// An unrelated agent holds no implicit privilege: staff membership matters
// for fan-out, not for per-ticket access.
func TestEvaluate_UnassignedAgentDenied(t *testing.T) {
	identity := &domain.User{ID: "a2", Role: domain.RoleAgent}
	ticket := &domain.Ticket{ID: "t1", CreatedByID: "u1", AssigneeID: ptr("a1")}

	assert.False(t, Evaluate(identity, ticket).CanModify)
}

func TestEvaluate_NilInputs(t *testing.T) {
	ticket := &domain.Ticket{ID: "t1", CreatedByID: "u1"}
	assert.Equal(t, Decision{}, Evaluate(nil, ticket))
	assert.Equal(t, Decision{}, Evaluate(&domain.User{ID: "u1"}, nil))
}

func TestEvaluate_Deterministic(t *testing.T) {
	identity := &domain.User{ID: "u1", Role: domain.RoleUser}
	ticket := &domain.Ticket{ID: "t1", CreatedByID: "u1"}

	first := Evaluate(identity, ticket)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(identity, ticket))
	}
}
