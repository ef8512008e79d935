package stacks

import (
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidAddress(t *testing.T) {
	cases := []struct {
		name  string
		addr  string
		valid bool
	}{
		{"mainnet", "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", true},
		{"testnet", "ST2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", true},
		{"empty", "", false},
		{"too short", "ST2J6ZY48", false},
		{"too long", "ST2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7XXXX", false},
		{"wrong first char", "XP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", false},
		{"wrong version char", "SZ2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", false},
		{"excluded letter O", "ST2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJO", false},
		{"excluded letter I", "ST2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJI", false},
		{"lowercase", "st2j6zy48gv1ez5v2v5rb9mp66sw86pykknrv9ej7", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, ValidAddress(tc.addr))
		})
	}
}

func TestAddressDeriver(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	compressed := ethcrypto.CompressPubkey(&key.PublicKey)
	uncompressed := ethcrypto.FromECDSAPub(&key.PublicKey)

	derive := AddressDeriver(Testnet)

	addr, err := derive(compressed)
	require.NoError(t, err)
	assert.True(t, ValidAddress(addr), "derived address %q must be syntactically valid", addr)
	assert.Equal(t, "ST", addr[:2])

	// Compressed and uncompressed forms of the same key derive the same
	// address
	addr2, err := derive(uncompressed)
	require.NoError(t, err)
	assert.Equal(t, addr, addr2)

	// Derivation is deterministic
	addr3, err := derive(compressed)
	require.NoError(t, err)
	assert.Equal(t, addr, addr3)

	// Mainnet derivation differs only in version
	mainnetAddr, err := AddressDeriver(Mainnet)(compressed)
	require.NoError(t, err)
	assert.Equal(t, "SP", mainnetAddr[:2])
	assert.NotEqual(t, addr, mainnetAddr)

	// A different key derives a different address
	otherKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	otherAddr, err := derive(ethcrypto.CompressPubkey(&otherKey.PublicKey))
	require.NoError(t, err)
	assert.NotEqual(t, addr, otherAddr)
}

func TestAddressDeriverRejectsBadKeys(t *testing.T) {
	derive := AddressDeriver(Testnet)

	_, err := derive([]byte{0x02, 0x03})
	assert.Error(t, err)

	_, err = derive(make([]byte, 65))
	assert.Error(t, err)
}
