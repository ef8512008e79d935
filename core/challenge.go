package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ChallengePurpose tags what a signed challenge authorizes
type ChallengePurpose string

const (
	// PurposeConnection authorizes a wallet login
	PurposeConnection ChallengePurpose = "connection"

	// PurposePayment authorizes a single payment
	PurposePayment ChallengePurpose = "payment"
)

// Valid reports whether the purpose is one of the known tags
func (p ChallengePurpose) Valid() bool {
	return p == PurposeConnection || p == PurposePayment
}

// PaymentDetails carries the payment a payment-purpose challenge is bound to
type PaymentDetails struct {
	PaymentID string
	Amount    decimal.Decimal
}

// Challenge represents an outstanding wallet authentication challenge
type Challenge struct {
	ID        string           // Derived from (address, issuedAt, nonce)
	Message   string           // Canonical text the wallet must sign
	Address   string           // Stacks address the challenge is bound to
	Purpose   ChallengePurpose // What a valid signature authorizes
	Nonce     string           // Random value embedded in the message
	IssuedAt  time.Time        // When the challenge was created
	ExpiresAt time.Time        // When the challenge expires
	Used      bool             // Set once on first successful verification
}

// ChallengeID derives the deterministic, unguessable challenge identifier.
// The nonce keeps it unpredictable; the timestamp keeps it unique across
// reissues for the same address.
func ChallengeID(address string, issuedAtMillis int64, nonce string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%s", address, issuedAtMillis, nonce))
	return hex.EncodeToString(sum[:])
}

// ChallengeMessage builds the canonical message text for a challenge. The
// wallet signs these exact bytes; verification matches them byte-for-byte.
func ChallengeMessage(address string, purpose ChallengePurpose, issuedAt time.Time, nonce string, payment *PaymentDetails) string {
	var b strings.Builder
	b.WriteString("WillVault wants you to sign this message with your Stacks wallet:\n\n")
	fmt.Fprintf(&b, "Address: %s\n", address)
	fmt.Fprintf(&b, "Purpose: %s\n", purpose)
	fmt.Fprintf(&b, "Issued At: %d\n", issuedAt.UnixMilli())
	fmt.Fprintf(&b, "Nonce: %s", nonce)
	if purpose == PurposePayment && payment != nil {
		fmt.Fprintf(&b, "\nPayment ID: %s\n", payment.PaymentID)
		fmt.Fprintf(&b, "Amount: %s STX", payment.Amount.String())
	}
	return b.String()
}
