package core

import "errors"

var (
	// ErrInvalidAddress is returned when a wallet address fails the syntax check
	ErrInvalidAddress = errors.New("invalid stacks address")

	// ErrChallengeNotFound is returned when no challenge matches the presented message and address
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeExpired is returned when a challenge is past its expiry
	ErrChallengeExpired = errors.New("challenge has expired")

	// ErrChallengeUsed is returned when a challenge was already consumed by a successful verification
	ErrChallengeUsed = errors.New("challenge already used")

	// ErrSignatureInvalid is returned when a signature fails verification under every framing
	ErrSignatureInvalid = errors.New("invalid signature")

	// ErrAddressMismatch is returned when the public key does not derive to the claimed address
	ErrAddressMismatch = errors.New("public key does not match address")

	// ErrCodeNotFound is returned when no verification code matches
	ErrCodeNotFound = errors.New("verification code not found")

	// ErrCodeExpired is returned when a verification code is past its expiry
	ErrCodeExpired = errors.New("verification code has expired")

	// ErrTooManyAttempts is returned when a verification code has exhausted its attempts
	ErrTooManyAttempts = errors.New("too many verification attempts")

	// ErrVerificationPending is returned when a live code already exists for the email
	ErrVerificationPending = errors.New("verification already pending")

	// ErrMissingToken is returned when no bearer token is presented
	ErrMissingToken = errors.New("missing token")

	// ErrTokenExpired is returned when a session token is past its expiry
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a session token fails decoding or signature checks
	ErrTokenInvalid = errors.New("invalid token")

	// ErrForbidden is returned when the identity's role is not in the required set
	ErrForbidden = errors.New("insufficient permissions")

	// ErrUserNotFound is returned by user stores when no record matches
	ErrUserNotFound = errors.New("user not found")

	// ErrStoreOperationFailed is returned when a repository backend fails
	ErrStoreOperationFailed = errors.New("store operation failed")
)
