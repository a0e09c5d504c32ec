package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// NonceSize is the AES-GCM nonce length mandated by the protocol (96 bits).
const NonceSize = 12

// TagSize is the AES-GCM authentication tag length (128 bits).
const TagSize = 16

// MinBlobSize is the smallest legal AEAD blob: an empty ciphertext still
// carries a full nonce and tag.
const MinBlobSize = NonceSize + TagSize

// ErrBlobTooShort is returned when a ciphertext blob is shorter than a
// nonce plus tag could ever be, so it cannot possibly be genuine.
var ErrBlobTooShort = errors.New("crypto: ciphertext blob shorter than nonce+tag")

// Encrypt seals plaintext under key using AES-256-GCM with a fresh random
// nonce. The returned blob has the wire layout nonce(12) || ciphertext ||
// tag(16); no associated data is used.
func Encrypt(key [32]byte, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	blob := gcm.Seal(nonce, nonce, plaintext, nil)
	return blob, nil
}

// Decrypt opens a blob produced by Encrypt under key, verifying the GCM
// tag. A blob shorter than MinBlobSize fails with ErrBlobTooShort; every
// other failure (truncation, tampering, wrong key) is reported as the same
// opaque aead open error so callers cannot use it as a decryption oracle.
func Decrypt(key [32]byte, blob []byte) ([]byte, error) {
	if len(blob) < MinBlobSize {
		return nil, ErrBlobTooShort
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, ciphertext := blob[:NonceSize], blob[NonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: aead open: %w", err)
	}

	return plaintext, nil
}

func newGCM(key [32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new aes cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}

	return gcm, nil
}
