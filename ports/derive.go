package ports

// AddressDeriver maps a secp256k1 public key (compressed or uncompressed)
// to the canonical wallet address for the deployment's chain. The wallet
// auth service uses it to cross-check the claimed identity against the
// presented key.
type AddressDeriver func(pubKey []byte) (string, error)
