package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/willvault/auth/core"
	"github.com/willvault/auth/internal/stacks"
	"github.com/willvault/auth/ports"
)

// DefaultChallengeTTL is how long a wallet challenge stays verifiable
const DefaultChallengeTTL = 5 * time.Minute

// WalletAuthService turns a signed challenge into a verified wallet
// identity
type WalletAuthService struct {
	challenges ports.ChallengeRepository
	derive     ports.AddressDeriver
	events     ports.EventPublisher
	log        *zap.Logger

	challengeTTL time.Duration
	now          func() time.Time
}

// NewWalletAuthService creates a new wallet auth service. The clock is a
// constructor parameter so tests can drive expiry deterministically.
func NewWalletAuthService(
	challenges ports.ChallengeRepository,
	derive ports.AddressDeriver,
	events ports.EventPublisher,
	log *zap.Logger,
	now func() time.Time,
) *WalletAuthService {
	if now == nil {
		now = time.Now
	}
	return &WalletAuthService{
		challenges:   challenges,
		derive:       derive,
		events:       events,
		log:          log,
		challengeTTL: DefaultChallengeTTL,
		now:          now,
	}
}

// IssueChallenge creates a challenge the wallet must sign. The store is
// swept before and after insertion so outstanding challenges never grow
// past the traffic of one TTL window.
func (s *WalletAuthService) IssueChallenge(ctx context.Context, address string, purpose core.ChallengePurpose, payment *core.PaymentDetails) (*core.Challenge, error) {
	if !stacks.ValidAddress(address) {
		return nil, core.ErrInvalidAddress
	}
	if !purpose.Valid() {
		return nil, fmt.Errorf("unknown challenge purpose %q", purpose)
	}

	s.sweep(ctx)

	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)

	issuedAt := s.now()
	ch := &core.Challenge{
		ID:        core.ChallengeID(address, issuedAt.UnixMilli(), nonce),
		Message:   core.ChallengeMessage(address, purpose, issuedAt, nonce, payment),
		Address:   address,
		Purpose:   purpose,
		Nonce:     nonce,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.challengeTTL),
	}

	if err := s.challenges.Save(ctx, ch); err != nil {
		return nil, fmt.Errorf("failed to save challenge: %w", err)
	}

	s.sweep(ctx)

	return ch, nil
}

// VerifyChallengeResponse validates a signed challenge and consumes it.
// Lookup is by exact message and address match, never a caller-supplied
// id, so a caller cannot point verification at a different stored record.
// On signature failure the challenge stays unused and a fresh signature
// may be retried until expiry; on success the consume and the success
// decision are one atomic step.
func (s *WalletAuthService) VerifyChallengeResponse(ctx context.Context, message, signature, publicKey, address string) (*core.Identity, error) {
	ch, err := s.challenges.FindByMessage(ctx, message, address)
	if err != nil {
		return nil, err
	}

	if !s.now().Before(ch.ExpiresAt) {
		if err := s.challenges.Delete(ctx, ch.ID); err != nil {
			s.log.Warn("failed to delete expired challenge", zap.String("id", ch.ID), zap.Error(err))
		}
		return nil, core.ErrChallengeExpired
	}
	if ch.Used {
		return nil, core.ErrChallengeUsed
	}

	pubKey, err := stacks.DecodePublicKey(publicKey)
	if err != nil {
		return nil, core.ErrSignatureInvalid
	}

	derived, err := s.derive(pubKey)
	if err != nil {
		return nil, core.ErrSignatureInvalid
	}
	if derived != address {
		return nil, core.ErrAddressMismatch
	}

	if !stacks.VerifySignature(message, signature, pubKey) {
		return nil, core.ErrSignatureInvalid
	}

	// Of two concurrent verifications only one wins this consume
	if err := s.challenges.Consume(ctx, ch.ID); err != nil {
		return nil, err
	}

	if err := s.events.PublishWalletLogin(ctx, address, ch.ID); err != nil {
		s.log.Warn("failed to publish wallet login event", zap.Error(err))
	}

	return &core.Identity{
		WalletAddress: address,
		Role:          core.RoleUser,
		Verified:      true,
	}, nil
}

// SweepExpired removes every expired challenge
func (s *WalletAuthService) SweepExpired(ctx context.Context) (int, error) {
	return s.challenges.DeleteExpired(ctx, s.now())
}

func (s *WalletAuthService) sweep(ctx context.Context) {
	if _, err := s.challenges.DeleteExpired(ctx, s.now()); err != nil {
		s.log.Warn("challenge sweep failed", zap.Error(err))
	}
}
