package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// KeyPair is an X25519 key pair used for the LEO handshake.
type KeyPair struct {
	Private [32]byte
	Public  [32]byte
}

// GenerateKeyPair creates a new random X25519 key pair.
//
// The private scalar is 32 random bytes; curve25519 clamps it internally
// during scalar multiplication, so no explicit clamping step is needed here.
func GenerateKeyPair() (*KeyPair, error) {
	kp := &KeyPair{}
	if _, err := rand.Read(kp.Private[:]); err != nil {
		return nil, fmt.Errorf("generate x25519 private key: %w", err)
	}

	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		ZeroBytes(kp.Private[:])
		return nil, fmt.Errorf("derive x25519 public key: %w", err)
	}
	copy(kp.Public[:], pub)

	return kp, nil
}

// Wipe securely erases the private half of the key pair.
func (kp *KeyPair) Wipe() {
	if kp == nil {
		return
	}
	ZeroBytes(kp.Private[:])
}
