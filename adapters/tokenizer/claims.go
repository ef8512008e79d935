package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with identity-specific ones
type SessionClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	Verified    bool   `json:"verified"`
	DisplayName string `json:"name,omitempty"`
}
