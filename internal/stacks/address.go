// Package stacks implements the chain-specific pieces of wallet
// authentication: address syntax checks, c32check address derivation from
// a secp256k1 public key, and message signature verification.
package stacks

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/willvault/auth/ports"
)

// Network selects the address version used for derivation
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// Single-sig address versions per SIP-005
const (
	versionMainnetP2PKH = 22 // encodes to 'P'
	versionTestnetP2PKH = 26 // encodes to 'T'
)

const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Standard single-sig addresses are 41 characters ("S" + version char +
// 39 data chars); leading zero bits in the hash can shorten the data part.
const (
	minAddressLen = 38
	maxAddressLen = 41
)

// ValidAddress reports whether addr is syntactically a standard Stacks
// address: SP/SM prefix on mainnet or ST/SN on testnet, length in range,
// every character from the c32 alphabet.
func ValidAddress(addr string) bool {
	if len(addr) < minAddressLen || len(addr) > maxAddressLen {
		return false
	}
	if addr[0] != 'S' {
		return false
	}
	switch addr[1] {
	case 'P', 'M', 'T', 'N':
	default:
		return false
	}
	for i := 1; i < len(addr); i++ {
		if !strings.ContainsRune(c32Alphabet, rune(addr[i])) {
			return false
		}
	}
	return true
}

// AddressDeriver returns the derivation function for a network. The
// returned function accepts compressed (33-byte) or uncompressed (65-byte)
// secp256k1 public keys.
func AddressDeriver(network Network) ports.AddressDeriver {
	version := byte(versionMainnetP2PKH)
	if network == Testnet {
		version = versionTestnetP2PKH
	}
	return func(pubKey []byte) (string, error) {
		compressed, err := compressPubKey(pubKey)
		if err != nil {
			return "", err
		}
		return c32Address(version, btcutil.Hash160(compressed)), nil
	}
}

func compressPubKey(pubKey []byte) ([]byte, error) {
	switch len(pubKey) {
	case 33:
		return pubKey, nil
	case 65:
		key, err := ethcrypto.UnmarshalPubkey(pubKey)
		if err != nil {
			return nil, fmt.Errorf("invalid public key: %w", err)
		}
		return ethcrypto.CompressPubkey(key), nil
	default:
		return nil, fmt.Errorf("invalid public key length %d", len(pubKey))
	}
}

// c32Address encodes a version byte and hash160 into a c32check address
func c32Address(version byte, hash160 []byte) string {
	checksum := c32Checksum(version, hash160)
	payload := make([]byte, 0, len(hash160)+4)
	payload = append(payload, hash160...)
	payload = append(payload, checksum...)
	return "S" + string(c32Alphabet[version]) + c32Encode(payload)
}

// c32Checksum is the first four bytes of a double sha256 over
// version || data
func c32Checksum(version byte, data []byte) []byte {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, version)
	buf = append(buf, data...)
	first := sha256.Sum256(buf)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// c32Encode encodes bytes as crockford base32 the way Stacks does: the
// big-endian integer value in base 32, with one '0' digit re-prepended
// per leading zero byte.
func c32Encode(data []byte) string {
	n := new(big.Int).SetBytes(data)
	base := big.NewInt(32)
	mod := new(big.Int)

	var out []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		out = append(out, c32Alphabet[mod.Int64()])
	}
	for _, b := range data {
		if b != 0 {
			break
		}
		out = append(out, '0')
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
