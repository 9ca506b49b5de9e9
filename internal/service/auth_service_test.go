package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

func newAuthFixture(t *testing.T) (*AuthService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := NewAuthService(AuthDependencies{
		UserRepo:   store.Users(),
		Tokens:     auth.NewTokenManager("test-secret", 60),
		BcryptCost: 4, // minimum cost keeps the suite fast
	})
	return svc, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture(t)

	session, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "Ada@Example.com",
		Password:  "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, domain.RoleUser, session.User.Role)
	assert.Equal(t, "ada@example.com", session.User.Email)

	// login is case-insensitive on email
	logged, err := svc.Login(context.Background(), "ADA@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, logged.User.ID)

	_, err = svc.Login(context.Background(), "ada@example.com", "wrong")
	assertCode(t, err, "UNAUTHORIZED")

	// unknown email is indistinguishable from a bad password
	_, err = svc.Login(context.Background(), "nobody@example.com", "whatever")
	assertCode(t, err, "UNAUTHORIZED")
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Ada", LastName: "L", Email: "not-an-email", Password: "long enough",
	})
	assertCode(t, err, "VALIDATION_FAILED")

	_, err = svc.Register(context.Background(), RegisterInput{
		FirstName: "Ada", LastName: "L", Email: "a@example.com", Password: "short",
	})
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	input := RegisterInput{FirstName: "Ada", LastName: "L", Email: "a@example.com", Password: "long enough"}
	_, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), input)
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestProvisionUser(t *testing.T) {
	svc, _ := newAuthFixture(t)

	agent, err := svc.ProvisionUser(context.Background(), ProvisionInput{
		FirstName:   "Grace",
		LastName:    "Hopper",
		Email:       "grace@example.com",
		Password:    "long enough",
		Role:        domain.RoleAgent,
		Departments: []string{"Technical", " ", "Billing"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, agent.Role)
	assert.Equal(t, []string{"Technical", "Billing"}, agent.Departments)

	_, err = svc.ProvisionUser(context.Background(), ProvisionInput{
		FirstName: "X", LastName: "Y", Email: "x@example.com", Password: "long enough",
		Role: "Superuser",
	})
	assertCode(t, err, "VALIDATION_FAILED")
}
