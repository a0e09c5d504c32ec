// Package crypto implements the cryptographic primitives used by the LEO
// file-transfer protocol: X25519 key agreement, HKDF-SHA256 session key
// derivation, and AES-256-GCM authenticated encryption.
//
// Example:
//
//	keys, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Public key:", base64.StdEncoding.EncodeToString(keys.Public[:]))
package crypto
