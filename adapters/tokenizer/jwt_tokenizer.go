package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/willvault/auth/core"
	"github.com/willvault/auth/ports"
)

// AudienceSession pins session tokens so they cannot be replayed as any
// other token kind a future version may add
const AudienceSession = "willvault:session"

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs signed
// with a server-held ECDSA key
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
	now     func() time.Time
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return NewJWTTokenizerWithClock(signKey, time.Now)
}

// NewJWTTokenizerWithClock creates a tokenizer whose expiry validation
// follows the given clock; tests use it to drive expiry deterministically
func NewJWTTokenizerWithClock(signKey *ecdsa.PrivateKey, now func() time.Time) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey, now: now}
}

// SessionToToken signs a session into a bearer token
func (j *JWTTokenizer) SessionToToken(session *core.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.SubjectID,
			ID:        session.ID,
			Audience:  jwt.ClaimStrings{AudienceSession},
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		Email:       session.Email,
		Role:        string(session.Role),
		Verified:    session.Verified,
		DisplayName: session.DisplayName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signed, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// TokenToSession decodes and signature-checks a token
func (j *JWTTokenizer) TokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceSession), jwt.WithTimeFunc(j.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, core.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, core.ErrTokenInvalid
	}

	return &core.Session{
		ID:          claims.ID,
		SubjectID:   claims.Subject,
		Email:       claims.Email,
		Role:        core.Role(claims.Role),
		Verified:    claims.Verified,
		DisplayName: claims.DisplayName,
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
