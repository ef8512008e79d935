package service

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/willvault/auth/adapters/events"
	"github.com/willvault/auth/adapters/store"
	"github.com/willvault/auth/core"
	"github.com/willvault/auth/internal/stacks"
)

type walletFixture struct {
	svc  *WalletAuthService
	repo *store.MemoryChallengeRepository
	now  *time.Time

	key    *ecdsa.PrivateKey
	pubHex string
	addr   string
}

func newWalletFixture(t *testing.T) *walletFixture {
	t.Helper()

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	compressed := ethcrypto.CompressPubkey(&key.PublicKey)

	derive := stacks.AddressDeriver(stacks.Testnet)
	addr, err := derive(compressed)
	require.NoError(t, err)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	repo := store.NewMemoryChallengeRepository()
	svc := NewWalletAuthService(repo, derive, events.NopPublisher{}, zap.NewNop(), func() time.Time { return now })

	return &walletFixture{
		svc:    svc,
		repo:   repo,
		now:    &now,
		key:    key,
		pubHex: hex.EncodeToString(compressed),
		addr:   addr,
	}
}

func (f *walletFixture) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := ethcrypto.Sign(stacks.MessageDigest(message), f.key)
	require.NoError(t, err)
	return hex.EncodeToString(sig)
}

func TestIssueChallenge(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.addr, core.PurposeConnection, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, ch.ID)
	assert.Contains(t, ch.Message, f.addr)
	assert.Contains(t, ch.Message, "Purpose: connection")
	assert.Contains(t, ch.Message, ch.Nonce)
	assert.Equal(t, f.now.Add(DefaultChallengeTTL), ch.ExpiresAt)
}

func TestIssueChallengeRejectsBadInput(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	_, err := f.svc.IssueChallenge(ctx, "0xdeadbeef", core.PurposeConnection, nil)
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	_, err = f.svc.IssueChallenge(ctx, f.addr, core.ChallengePurpose("banana"), nil)
	assert.Error(t, err)
}

func TestIssueChallengeNeverReusesIDOrNonce(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	seenIDs := make(map[string]bool)
	seenNonces := make(map[string]bool)
	for i := 0; i < 10; i++ {
		ch, err := f.svc.IssueChallenge(ctx, f.addr, core.PurposeConnection, nil)
		require.NoError(t, err)
		assert.False(t, seenIDs[ch.ID])
		assert.False(t, seenNonces[ch.Nonce])
		seenIDs[ch.ID] = true
		seenNonces[ch.Nonce] = true
	}
}

func TestPaymentChallengeMessage(t *testing.T) {
	f := newWalletFixture(t)

	payment := &core.PaymentDetails{
		PaymentID: "pay-123",
		Amount:    decimal.RequireFromString("12.5"),
	}
	ch, err := f.svc.IssueChallenge(context.Background(), f.addr, core.PurposePayment, payment)
	require.NoError(t, err)

	assert.Contains(t, ch.Message, "Purpose: payment")
	assert.Contains(t, ch.Message, "Payment ID: pay-123")
	assert.Contains(t, ch.Message, "Amount: 12.5 STX")
}

func TestVerifyChallengeResponse(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.addr, core.PurposeConnection, nil)
	require.NoError(t, err)

	sig := f.sign(t, ch.Message)

	identity, err := f.svc.VerifyChallengeResponse(ctx, ch.Message, sig, f.pubHex, f.addr)
	require.NoError(t, err)
	assert.Equal(t, f.addr, identity.WalletAddress)
	assert.True(t, identity.Verified)

	// The exact same correct call must now fail: single use
	_, err = f.svc.VerifyChallengeResponse(ctx, ch.Message, sig, f.pubHex, f.addr)
	assert.ErrorIs(t, err, core.ErrChallengeUsed)
}

func TestVerifyChallengeResponseWrongKey(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.addr, core.PurposeConnection, nil)
	require.NoError(t, err)

	otherKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	badSig, err := ethcrypto.Sign(stacks.MessageDigest(ch.Message), otherKey)
	require.NoError(t, err)

	_, err = f.svc.VerifyChallengeResponse(ctx, ch.Message, hex.EncodeToString(badSig), f.pubHex, f.addr)
	assert.ErrorIs(t, err, core.ErrSignatureInvalid)

	// The challenge stays retryable after a failed signature
	identity, err := f.svc.VerifyChallengeResponse(ctx, ch.Message, f.sign(t, ch.Message), f.pubHex, f.addr)
	require.NoError(t, err)
	assert.Equal(t, f.addr, identity.WalletAddress)
}

func TestVerifyChallengeResponseAddressMismatch(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.addr, core.PurposeConnection, nil)
	require.NoError(t, err)

	otherKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	otherPub := hex.EncodeToString(ethcrypto.CompressPubkey(&otherKey.PublicKey))
	otherSig, err := ethcrypto.Sign(stacks.MessageDigest(ch.Message), otherKey)
	require.NoError(t, err)

	// Valid signature from a key that does not derive to the claimed
	// address
	_, err = f.svc.VerifyChallengeResponse(ctx, ch.Message, hex.EncodeToString(otherSig), otherPub, f.addr)
	assert.ErrorIs(t, err, core.ErrAddressMismatch)
}

func TestVerifyChallengeResponseExpired(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	ch, err := f.svc.IssueChallenge(ctx, f.addr, core.PurposeConnection, nil)
	require.NoError(t, err)
	sig := f.sign(t, ch.Message)

	*f.now = f.now.Add(DefaultChallengeTTL + time.Second)

	_, err = f.svc.VerifyChallengeResponse(ctx, ch.Message, sig, f.pubHex, f.addr)
	assert.ErrorIs(t, err, core.ErrChallengeExpired)

	// The expired record was removed on detection
	_, err = f.svc.VerifyChallengeResponse(ctx, ch.Message, sig, f.pubHex, f.addr)
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestVerifyChallengeResponseUnknownMessage(t *testing.T) {
	f := newWalletFixture(t)

	_, err := f.svc.VerifyChallengeResponse(context.Background(), "never issued", "00", f.pubHex, f.addr)
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestIssueChallengeSweepsExpired(t *testing.T) {
	f := newWalletFixture(t)
	ctx := context.Background()

	stale, err := f.svc.IssueChallenge(ctx, f.addr, core.PurposeConnection, nil)
	require.NoError(t, err)

	*f.now = f.now.Add(DefaultChallengeTTL + time.Second)

	_, err = f.svc.IssueChallenge(ctx, f.addr, core.PurposeConnection, nil)
	require.NoError(t, err)

	_, err = f.svc.VerifyChallengeResponse(ctx, stale.Message, f.sign(t, stale.Message), f.pubHex, f.addr)
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}
