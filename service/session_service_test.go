package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/willvault/auth/adapters/events"
	"github.com/willvault/auth/adapters/tokenizer"
	"github.com/willvault/auth/adapters/users"
	"github.com/willvault/auth/core"
)

type sessionFixture struct {
	svc   *SessionService
	users *users.MemoryUserStore
	now   *time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	userStore := users.NewMemoryUserStore()
	svc := NewSessionService(tokenizer.NewJWTTokenizerWithClock(key, clock), userStore, events.NopPublisher{}, zap.NewNop(), clock)

	return &sessionFixture{svc: svc, users: userStore, now: &now}
}

func (f *sessionFixture) createUser(t *testing.T, role core.Role) *core.User {
	t.Helper()
	user := &core.User{
		Email:       "a@b.com",
		Role:        role,
		Verified:    true,
		DisplayName: "Ada",
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func TestIssueAndAuthenticate(t *testing.T) {
	f := newSessionFixture(t)
	user := f.createUser(t, core.RoleUser)

	token, err := f.svc.Issue(user.Identity())
	require.NoError(t, err)

	identity, err := f.svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.ID)
	assert.Equal(t, user.Email, identity.Email)
	assert.Equal(t, core.RoleUser, identity.Role)
}

func TestAuthenticateMissingToken(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrMissingToken)
}

func TestAuthenticateGarbageToken(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestAuthenticateDeletedUser(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	user := f.createUser(t, core.RoleUser)

	token, err := f.svc.Issue(user.Identity())
	require.NoError(t, err)

	// Claims alone are not trusted: a deleted account's token stops
	// working even though the signature is still valid
	require.NoError(t, f.users.Delete(ctx, user.ID))
	_, err = f.svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	f := newSessionFixture(t)
	user := f.createUser(t, core.RoleUser)

	token, err := f.svc.Issue(user.Identity())
	require.NoError(t, err)

	*f.now = f.now.Add(DefaultSessionTTL + time.Minute)

	_, err = f.svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestRefresh(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	user := f.createUser(t, core.RoleUser)

	token, err := f.svc.Issue(user.Identity())
	require.NoError(t, err)

	*f.now = f.now.Add(12 * time.Hour)

	renewed, err := f.svc.Refresh(ctx, token)
	require.NoError(t, err)
	assert.NotEqual(t, token, renewed)

	// The renewed token outlives the original's expiry
	*f.now = f.now.Add(13 * time.Hour)
	_, err = f.svc.Authenticate(ctx, renewed)
	assert.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	f := newSessionFixture(t)
	user := f.createUser(t, core.RoleUser)

	token, err := f.svc.Issue(user.Identity())
	require.NoError(t, err)

	*f.now = f.now.Add(DefaultSessionTTL + time.Minute)

	_, err = f.svc.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestRequireRole(t *testing.T) {
	f := newSessionFixture(t)

	admin := &core.Identity{ID: "u1", Role: core.RoleAdmin}
	member := &core.Identity{ID: "u2", Role: core.RoleUser}

	assert.NoError(t, f.svc.RequireRole(admin, core.RoleAdmin))
	assert.NoError(t, f.svc.RequireRole(member, core.RoleUser, core.RoleAdmin))
	assert.ErrorIs(t, f.svc.RequireRole(member, core.RoleAdmin), core.ErrForbidden)
}
