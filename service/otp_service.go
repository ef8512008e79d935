package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/willvault/auth/core"
	"github.com/willvault/auth/ports"
)

const (
	// DefaultCodeTTL is how long a verification code stays verifiable
	DefaultCodeTTL = 15 * time.Minute

	// DefaultMaxAttempts is the attempt budget per code. The counter is
	// incremented before the limit check, so the call after the budget is
	// always rejected and the record removed.
	DefaultMaxAttempts = 3

	// DefaultSweepInterval is how often the background sweep runs
	DefaultSweepInterval = 30 * time.Minute
)

// OTPService manages email verification codes
type OTPService struct {
	codes  ports.CodeRepository
	mailer ports.Mailer
	events ports.EventPublisher
	log    *zap.Logger

	codeTTL     time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewOTPService creates a new OTP service
func NewOTPService(
	codes ports.CodeRepository,
	mailer ports.Mailer,
	events ports.EventPublisher,
	log *zap.Logger,
	now func() time.Time,
) *OTPService {
	if now == nil {
		now = time.Now
	}
	return &OTPService{
		codes:       codes,
		mailer:      mailer,
		events:      events,
		log:         log,
		codeTTL:     DefaultCodeTTL,
		maxAttempts: DefaultMaxAttempts,
		now:         now,
	}
}

// IssueCode generates a 6-digit code for the email, replacing any live
// code so at most one is outstanding per address, and mails it out.
// The pending payload is returned by Verify on success.
func (s *OTPService) IssueCode(ctx context.Context, email string, pendingPayload []byte) (string, error) {
	email = core.NormalizeEmail(email)

	if err := s.codes.DeleteByEmail(ctx, email); err != nil {
		return "", fmt.Errorf("failed to replace prior code: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return "", err
	}

	createdAt := s.now()
	rec := &core.OneTimeCode{
		Code:           code,
		Email:          email,
		PendingPayload: pendingPayload,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(s.codeTTL),
	}
	if err := s.codes.Save(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to save code: %w", err)
	}

	body := fmt.Sprintf("Your WillVault verification code is %s. It expires in %d minutes.", code, int(s.codeTTL.Minutes()))
	if err := s.mailer.Send(ctx, email, "Verify your email", body); err != nil {
		// Undo so the next issue is not treated as a resend of a code
		// the user never received
		if delErr := s.codes.Delete(ctx, code); delErr != nil {
			s.log.Warn("failed to remove undelivered code", zap.Error(delErr))
		}
		return "", fmt.Errorf("failed to send code: %w", err)
	}

	return code, nil
}

// Verify checks a presented code and returns its pending payload. Check
// order is fixed: expiry, then attempts, then (implicitly, via lookup by
// code) the value. Expired codes and codes past the attempt budget are
// removed. The record itself is NOT removed on success; the caller deletes
// it right after consuming the payload.
func (s *OTPService) Verify(ctx context.Context, code string) ([]byte, error) {
	rec, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.After(rec.ExpiresAt) {
		if err := s.codes.Delete(ctx, code); err != nil {
			s.log.Warn("failed to delete expired code", zap.Error(err))
		}
		return nil, core.ErrCodeExpired
	}

	attempts, err := s.codes.IncrementAttempts(ctx, code)
	if err != nil {
		return nil, err
	}
	if attempts > s.maxAttempts {
		if err := s.codes.Delete(ctx, code); err != nil {
			s.log.Warn("failed to delete exhausted code", zap.Error(err))
		}
		return nil, core.ErrTooManyAttempts
	}

	if err := s.codes.MarkVerified(ctx, code, now); err != nil {
		return nil, err
	}

	if err := s.events.PublishEmailVerified(ctx, rec.Email); err != nil {
		s.log.Warn("failed to publish email verified event", zap.Error(err))
	}

	return rec.PendingPayload, nil
}

// Consume removes a code record once its payload has been acted on,
// closing the replay window Verify leaves open
func (s *OTPService) Consume(ctx context.Context, code string) error {
	return s.codes.Delete(ctx, code)
}

// Resend reissues a code for an email that already has a pending
// verification, carrying the same pending payload
func (s *OTPService) Resend(ctx context.Context, email string) (string, error) {
	email = core.NormalizeEmail(email)

	rec, err := s.codes.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return s.IssueCode(ctx, email, rec.PendingPayload)
}

// HasPendingVerification reports whether a live, unverified code exists
// for the email; used to rate-limit duplicate issuance
func (s *OTPService) HasPendingVerification(ctx context.Context, email string) bool {
	rec, err := s.codes.FindByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return false
	}
	return !rec.Verified && s.now().Before(rec.ExpiresAt)
}

// CleanupExpired removes every expired code record
func (s *OTPService) CleanupExpired(ctx context.Context) (int, error) {
	return s.codes.DeleteExpired(ctx, s.now())
}

// StartSweeper runs CleanupExpired on an interval until ctx is done
func (s *OTPService) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.CleanupExpired(ctx); err != nil {
					s.log.Warn("code sweep failed", zap.Error(err))
				} else if n > 0 {
					s.log.Debug("swept expired codes", zap.Int("removed", n))
				}
			}
		}
	}()
}

// generateCode draws a 6-digit numeric code from crypto/rand
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
