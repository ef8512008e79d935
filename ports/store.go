package ports

import (
	"context"
	"time"

	"github.com/willvault/auth/core"
)

// ChallengeRepository owns outstanding wallet challenges. A single-process
// deployment backs it with a mutex-guarded map; multi-instance deployments
// back it with Redis. Verification logic never depends on which.
type ChallengeRepository interface {
	// Save stores a new challenge
	Save(ctx context.Context, ch *core.Challenge) error

	// FindByMessage looks up a challenge by exact message and address match
	FindByMessage(ctx context.Context, message, address string) (*core.Challenge, error)

	// Consume marks a challenge used. It is atomic: of two concurrent
	// callers, exactly one gets nil and the other core.ErrChallengeUsed.
	Consume(ctx context.Context, id string) error

	// Delete removes a challenge
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes every challenge with expiry at or before now
	// and returns how many were removed
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// CodeRepository owns outstanding email verification codes
type CodeRepository interface {
	// Save stores a code, replacing any live code for the same email
	Save(ctx context.Context, code *core.OneTimeCode) error

	// FindByCode looks up a code record
	FindByCode(ctx context.Context, code string) (*core.OneTimeCode, error)

	// FindByEmail looks up the live code record for an email
	FindByEmail(ctx context.Context, email string) (*core.OneTimeCode, error)

	// IncrementAttempts bumps the attempt counter and returns the
	// post-increment count. The increment is atomic across callers.
	IncrementAttempts(ctx context.Context, code string) (int, error)

	// MarkVerified records the first successful verification
	MarkVerified(ctx context.Context, code string, at time.Time) error

	// Delete removes a code record
	Delete(ctx context.Context, code string) error

	// DeleteByEmail removes any code record for an email
	DeleteByEmail(ctx context.Context, email string) error

	// DeleteExpired removes every record with expiry at or before now
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
