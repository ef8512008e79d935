package ports

import "github.com/willvault/auth/core"

// Tokenizer converts between sessions and signed tokens
type Tokenizer interface {
	// SessionToToken signs a session into a bearer token
	SessionToToken(session *core.Session) (string, error)

	// TokenToSession decodes and signature-checks a token. Returns
	// core.ErrTokenExpired or core.ErrTokenInvalid on failure.
	TokenToSession(token string) (*core.Session, error)
}
