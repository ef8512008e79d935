package http

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/willvault/auth/adapters/events"
	"github.com/willvault/auth/adapters/mailer"
	"github.com/willvault/auth/adapters/store"
	"github.com/willvault/auth/adapters/tokenizer"
	"github.com/willvault/auth/adapters/users"
	"github.com/willvault/auth/core"
	"github.com/willvault/auth/internal/stacks"
	"github.com/willvault/auth/service"
)

func testRouter(t *testing.T) (*gin.Engine, *service.SessionService, *users.MemoryUserStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	log := zap.NewNop()
	userStore := users.NewMemoryUserStore()
	sessions := service.NewSessionService(tokenizer.NewJWTTokenizer(key), userStore, events.NopPublisher{}, log, nil)
	wallet := service.NewWalletAuthService(store.NewMemoryChallengeRepository(), stacks.AddressDeriver(stacks.Testnet), events.NopPublisher{}, log, nil)
	otp := service.NewOTPService(store.NewMemoryCodeRepository(), mailer.NewLogMailer(log), events.NopPublisher{}, log, nil)

	handlers := NewAuthHandlers(wallet, otp, sessions, userStore, log)
	return SetupRouter(handlers, sessions), sessions, userStore
}

func issueToken(t *testing.T, sessions *service.SessionService, userStore *users.MemoryUserStore, role core.Role) string {
	t.Helper()
	user := &core.User{Email: "a@b.com", Role: role, Verified: true}
	require.NoError(t, userStore.Create(context.Background(), user))

	token, err := sessions.Issue(user.Identity())
	require.NoError(t, err)
	return token
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	router, _, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Missing token")
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	router, _, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token")
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	router, sessions, userStore := testRouter(t)
	token := issueToken(t, sessions, userStore, core.RoleUser)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@b.com")
}

func TestRoleGuard(t *testing.T) {
	router, sessions, userStore := testRouter(t)

	userToken := issueToken(t, sessions, userStore, core.RoleUser)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken := issueToken(t, sessions, userStore, core.RoleAdmin)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterNeverRevealsAccountState(t *testing.T) {
	router, _, userStore := testRouter(t)

	existing := &core.User{Email: "taken@b.com", Role: core.RoleUser}
	require.NoError(t, userStore.Create(context.Background(), existing))

	fresh := httptest.NewRecorder()
	router.ServeHTTP(fresh, jsonRequest(http.MethodPost, "/auth/register",
		`{"email":"new@b.com","display_name":"New"}`))

	taken := httptest.NewRecorder()
	router.ServeHTTP(taken, jsonRequest(http.MethodPost, "/auth/register",
		`{"email":"taken@b.com","display_name":"Taken"}`))

	// Identical responses whether or not the email is registered
	assert.Equal(t, fresh.Code, taken.Code)
	assert.Equal(t, fresh.Body.String(), taken.Body.String())
}

func TestVerifyEmailRejectsBadCode(t *testing.T) {
	router, _, _ := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(http.MethodPost, "/auth/verify-email", `{"code":"000000"}`))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or has expired")
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
