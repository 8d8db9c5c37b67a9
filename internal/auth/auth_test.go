package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan:
// 1. Test token round trip preserves identity and roles
// 2. Test expired and malformed tokens are rejected
// 3. Test empty secret disables the service
// 4. Test context helpers
// 5. Test superuser and role checks

// Test: token round trip preserves identity and roles
func TestService_RoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	token, err := svc.GenerateToken("u1", "u1@example.com", []string{"admin", "editor"})
	require.NoError(t, err)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "u1@example.com", user.Email)
	assert.Equal(t, []string{"admin", "editor"}, user.Roles)
	assert.True(t, user.IsSuperuser())
}

// Test: expired tokens are rejected
func TestService_Expired(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)

	token, err := svc.GenerateToken("u1", "", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

// Test: malformed tokens and wrong secrets are rejected
func TestService_Invalid(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)

	other := NewService("other-secret", time.Hour)
	token, err := other.GenerateToken("u1", "", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

// Test: empty secret disables the service entirely
func TestService_NoSecret(t *testing.T) {
	svc := NewService("", time.Hour)

	_, err := svc.GenerateToken("u1", "", nil)
	assert.Error(t, err)
	_, err = svc.ValidateToken("anything")
	assert.Error(t, err)
}

// Test: context helpers carry the user and tolerate its absence
func TestContextHelpers(t *testing.T) {
	assert.Nil(t, UserFromContext(context.Background()))

	user := &User{ID: "u1"}
	ctx := WithUser(context.Background(), user)
	assert.Same(t, user, UserFromContext(ctx))
}

// Test: role checks on nil users are safe
func TestUser_NilSafe(t *testing.T) {
	var user *User
	assert.False(t, user.IsSuperuser())
	assert.False(t, user.HasRole("admin"))
}
