package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. The salt is a fixed application constant: the
// derived key only needs to differ per deployment secret, not per record.
const (
	cipherKeySalt       = "markgate-token-cipher-v1"
	cipherKeyIterations = 10000
	cipherKeyLength     = 32 // AES-256
)

var (
	ErrCipherSecretMissing = errors.New("encryption secret is not configured")
	ErrCiphertextInvalid   = errors.New("ciphertext is malformed or was tampered with")
)

// TokenCipher encrypts upstream provider tokens before they touch the
// database. AES-256-GCM with a key derived from a single configured secret.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher derives the AEAD key from secret via PBKDF2.
func NewTokenCipher(secret string) (*TokenCipher, error) {
	if secret == "" {
		return nil, ErrCipherSecretMissing
	}

	key := pbkdf2.Key([]byte(secret), []byte(cipherKeySalt), cipherKeyIterations, cipherKeyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any truncation or bit flip fails authentication
// and returns ErrCiphertextInvalid.
func (c *TokenCipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrCiphertextInvalid
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", ErrCiphertextInvalid
	}

	plaintext, err := c.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", ErrCiphertextInvalid
	}
	return string(plaintext), nil
}
