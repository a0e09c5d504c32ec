package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SessionKeys holds the two directional AEAD keys derived for one LEO
// session. Separating c2s (client-to-server) and s2c (server-to-client)
// keys defends against reflection attacks: a message encrypted by one
// party can never be replayed back to it and decrypt successfully.
type SessionKeys struct {
	C2S [32]byte
	S2C [32]byte
}

// sessionInfo builds the HKDF "info" parameter for a given session ID,
// binding the derived keys to this specific session.
func sessionInfo(sessionID string) []byte {
	return []byte("LEO-SESSION-" + sessionID)
}

// DeriveSessionKeys expands a shared secret into directional session keys
// using HKDF-SHA256 with an empty salt and an info string that binds the
// output to sessionID. The first 32 bytes of the expanded output become
// C2S, the next 32 become S2C; both endpoints must derive in this order.
func DeriveSessionKeys(sharedSecret [32]byte, sessionID string) (*SessionKeys, error) {
	reader := hkdf.New(sha256.New, sharedSecret[:], nil, sessionInfo(sessionID))

	out := make([]byte, 64)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("hkdf expand session keys: %w", err)
	}

	keys := &SessionKeys{}
	copy(keys.C2S[:], out[:32])
	copy(keys.S2C[:], out[32:])
	ZeroBytes(out)

	return keys, nil
}

// Wipe securely erases both directional keys.
func (k *SessionKeys) Wipe() {
	if k == nil {
		return
	}
	ZeroBytes(k.C2S[:])
	ZeroBytes(k.S2C[:])
}
