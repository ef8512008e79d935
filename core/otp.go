package core

import (
	"strings"
	"time"
)

// OneTimeCode represents an outstanding email verification code
type OneTimeCode struct {
	Code           string    // 6-digit numeric code
	Email          string    // Normalized subject email
	PendingPayload []byte    // Opaque registration data unlocked on success
	CreatedAt      time.Time // When the code was issued
	ExpiresAt      time.Time // When the code expires
	Attempts       int       // Verification attempts so far
	Verified       bool      // Set once on first success
	VerifiedAt     time.Time // When the code was verified
}

// NormalizeEmail canonicalizes an email for use as a store key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
