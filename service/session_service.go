package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/willvault/auth/core"
	"github.com/willvault/auth/ports"
)

// DefaultSessionTTL is the fixed lifetime of a session token
const DefaultSessionTTL = 24 * time.Hour

// SessionService issues session tokens from verified identities and
// resolves presented tokens back to identities
type SessionService struct {
	tokenizer ports.Tokenizer
	users     ports.UserStore
	events    ports.EventPublisher
	log       *zap.Logger

	sessionTTL time.Duration
	now        func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(
	tokenizer ports.Tokenizer,
	users ports.UserStore,
	events ports.EventPublisher,
	log *zap.Logger,
	now func() time.Time,
) *SessionService {
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		tokenizer:  tokenizer,
		users:      users,
		events:     events,
		log:        log,
		sessionTTL: DefaultSessionTTL,
		now:        now,
	}
}

// Issue signs a session token for an identity. Callers invoke it only
// after a successful verification event; the service never derives trust
// from an existing token here.
func (s *SessionService) Issue(identity *core.Identity) (string, error) {
	issuedAt := s.now()
	session := &core.Session{
		ID:          uuid.New().String(),
		SubjectID:   identity.ID,
		Email:       identity.Email,
		Role:        identity.Role,
		Verified:    identity.Verified,
		DisplayName: identity.DisplayName,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(s.sessionTTL),
	}
	return s.tokenizer.SessionToToken(session)
}

// Refresh re-signs a still-valid token with a fresh expiry. No new
// identity check happens; an expired or invalid token cannot be refreshed.
func (s *SessionService) Refresh(ctx context.Context, token string) (string, error) {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return "", err
	}

	issuedAt := s.now()
	renewed := &core.Session{
		ID:          uuid.New().String(),
		SubjectID:   session.SubjectID,
		Email:       session.Email,
		Role:        session.Role,
		Verified:    session.Verified,
		DisplayName: session.DisplayName,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(s.sessionTTL),
	}

	signed, err := s.tokenizer.SessionToToken(renewed)
	if err != nil {
		return "", err
	}

	if err := s.events.PublishSessionRefreshed(ctx, renewed.SubjectID, renewed.ID); err != nil {
		s.log.Warn("failed to publish session refreshed event", zap.Error(err))
	}

	return signed, nil
}

// Authenticate resolves a bearer token to an identity. Claims are a
// cache: the subject is re-resolved through the user store so a deleted
// account's tokens stop working before they expire.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*core.Identity, error) {
	if token == "" {
		return nil, core.ErrMissingToken
	}

	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, session.SubjectID)
	if err != nil {
		// Do not reveal whether the account ever existed
		return nil, core.ErrTokenInvalid
	}

	return user.Identity(), nil
}

// RequireRole rejects identities whose role is not in the required set;
// orthogonal to token validity
func (s *SessionService) RequireRole(identity *core.Identity, roles ...core.Role) error {
	for _, role := range roles {
		if identity.Role == role {
			return nil
		}
	}
	return core.ErrForbidden
}
