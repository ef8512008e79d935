package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/willvault/auth/core"
	"github.com/willvault/auth/service"
)

const identityKey = "authIdentity"

// AuthMiddleware creates middleware that resolves bearer tokens to
// identities
func AuthMiddleware(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}

		identity, err := sessions.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortError(c, err)
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole creates middleware that rejects identities outside the
// required role set; it runs after AuthMiddleware
func RequireRole(sessions *service.SessionService, roles ...core.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := CurrentIdentity(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}
		if err := sessions.RequireRole(identity, roles...); err != nil {
			abortError(c, err)
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity set by AuthMiddleware, or nil
func CurrentIdentity(c *gin.Context) *core.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, ok := v.(*core.Identity)
	if !ok {
		return nil
	}
	return identity
}

// statusFor maps typed failures to HTTP responses. Messages stay vague on
// purpose: no store state, no remaining attempts, no account existence.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidAddress):
		return http.StatusBadRequest, "Invalid wallet address"
	case errors.Is(err, core.ErrChallengeNotFound), errors.Is(err, core.ErrChallengeExpired):
		return http.StatusUnauthorized, "Challenge is invalid or has expired"
	case errors.Is(err, core.ErrChallengeUsed):
		return http.StatusUnauthorized, "Challenge already used"
	case errors.Is(err, core.ErrSignatureInvalid), errors.Is(err, core.ErrAddressMismatch):
		return http.StatusUnauthorized, "Signature verification failed"
	case errors.Is(err, core.ErrCodeNotFound),
		errors.Is(err, core.ErrCodeExpired),
		errors.Is(err, core.ErrTooManyAttempts):
		return http.StatusUnauthorized, "Verification code is invalid or has expired"
	case errors.Is(err, core.ErrMissingToken):
		return http.StatusUnauthorized, "Missing token"
	case errors.Is(err, core.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, core.ErrTokenInvalid):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, "Insufficient permissions"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

func respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	c.JSON(status, gin.H{"error": msg})
}

func abortError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
