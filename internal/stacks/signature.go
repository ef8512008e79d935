package stacks

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// signedMessagePrefix is prepended (with the message length) before
// hashing, so a challenge signature can never double as a transaction
// signature.
const signedMessagePrefix = "\x17Stacks Signed Message:\n"

// MessageDigest hashes a challenge message the way wallets do before
// signing
func MessageDigest(message string) []byte {
	payload := signedMessagePrefix + strconv.Itoa(len(message)) + message
	sum := sha256.Sum256([]byte(payload))
	return sum[:]
}

// DecodePublicKey parses a hex public key, with or without a 0x prefix,
// into compressed or uncompressed secp256k1 bytes.
func DecodePublicKey(pubKeyHex string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(pubKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid public key encoding: %w", err)
	}
	if len(raw) != 33 && len(raw) != 65 {
		return nil, fmt.Errorf("invalid public key length %d", len(raw))
	}
	return raw, nil
}

// VerifySignature checks that signature proves ownership of pubKey over
// message. Wallet providers frame hex signatures inconsistently, so the
// signature is tried under an ordered list of framings with early exit:
// exactly as given, then with a 0x prefix added (if it lacked one) or
// stripped (if it had one). Every attempt is a full verification against
// the same message and key; only the byte framing varies.
func VerifySignature(message, signature string, pubKey []byte) bool {
	framings := []string{signature}
	if strings.HasPrefix(signature, "0x") {
		framings = append(framings, strings.TrimPrefix(signature, "0x"))
	} else {
		framings = append(framings, "0x"+signature)
	}

	digest := MessageDigest(message)
	for _, framing := range framings {
		if verifyFraming(digest, framing, pubKey) {
			return true
		}
	}
	return false
}

// verifyFraming attempts one framing. Decoding is strict per framing: a
// bare-hex signature only decodes here once the 0x variant is tried, which
// is what makes the attempts distinct.
func verifyFraming(digest []byte, signature string, pubKey []byte) bool {
	if !strings.HasPrefix(signature, "0x") {
		return false
	}
	sig, err := hex.DecodeString(signature[2:])
	if err != nil {
		return false
	}

	switch len(sig) {
	case 64:
		return ethcrypto.VerifySignature(pubKey, digest, sig)
	case 65:
		// Recovery byte position differs between RSV and VRS producers
		return ethcrypto.VerifySignature(pubKey, digest, sig[:64]) ||
			ethcrypto.VerifySignature(pubKey, digest, sig[1:])
	default:
		return false
	}
}
