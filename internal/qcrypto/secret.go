package qcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2Iterations is the fixed iteration count for deriving the at-rest
// secret-wrapping key from a passphrase.
const PBKDF2Iterations = 250_000

// DeriveKey derives a 32-byte AES-256 key from passphrase and salt.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, 32, sha256.New)
}

// EncryptSecret wraps plaintext (a private key or other at-rest secret)
// under a PBKDF2-derived AES-GCM key. The returned blob is
// salt || nonce || ciphertext.
func EncryptSecret(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	key := DeriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// DecryptSecret reverses EncryptSecret.
func DecryptSecret(passphrase string, blob []byte) ([]byte, error) {
	if len(blob) < 16+12 {
		return nil, fmt.Errorf("qcrypto: secret blob too short")
	}

	salt := blob[:16]
	key := DeriveKey(passphrase, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	nonce := blob[16 : 16+nonceSize]
	ciphertext := blob[16+nonceSize:]

	return gcm.Open(nil, nonce, ciphertext, nil)
}
