package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	user := &domain.User{ID: "u1", Role: domain.RoleAgent}

	token, expiresAt, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, domain.RoleAgent, claims.Role)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	other := NewTokenManager("other-secret", 60)

	token, _, err := tm.GenerateToken(&domain.User{ID: "u1", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestResolveRealtime_FailsOpen(t *testing.T) {
	store := repository.NewMemoryStore()
	tm := NewTokenManager("test-secret", 60)
	mw := NewMiddleware(tm, store.Users())

	// empty, garbage and unknown-identity tokens all yield nil, no error
	assert.Nil(t, mw.ResolveRealtime(context.Background(), ""))
	assert.Nil(t, mw.ResolveRealtime(context.Background(), "not-a-jwt"))

	token, _, err := tm.GenerateToken(&domain.User{ID: "ghost", Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Nil(t, mw.ResolveRealtime(context.Background(), token))

	// a valid token bound to a stored user resolves, with the role reloaded
	user := &domain.User{Email: "a@example.com", Role: domain.RoleUser}
	require.NoError(t, store.Users().Create(context.Background(), user))
	token, _, err = tm.GenerateToken(user)
	require.NoError(t, err)

	identity := mw.ResolveRealtime(context.Background(), token)
	require.NotNil(t, identity)
	assert.Equal(t, user.ID, identity.ID)
}
