package crypto

import (
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// DeriveSharedSecret computes the X25519 Diffie-Hellman shared secret between
// a local private key and a peer's public key.
func DeriveSharedSecret(privateKey, peerPublicKey [32]byte) ([32]byte, error) {
	var result [32]byte

	shared, err := curve25519.X25519(privateKey[:], peerPublicKey[:])
	if err != nil {
		return result, fmt.Errorf("x25519 shared secret: %w", err)
	}

	copy(result[:], shared)
	ZeroBytes(shared)

	return result, nil
}
