package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
)

// AESGCMCipher implements AEAD using AES in Galois/Counter Mode.
//
// The key length selects AES-128, AES-192 or AES-256. The nonce is 12 bytes and
// the 16-byte tag is appended to the ciphertext. Nonces are drawn from
// crypto/rand on every Encrypt call and are never supplied by the caller.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-GCM cipher instance from a 16, 24 or 32-byte key.
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if !cryptoDomain.AESGCM.ValidKeySize(len(key)) {
		return nil, fmt.Errorf("%w: AES-GCM requires 16, 24 or 32 bytes, got %d", cryptoDomain.ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt seals plaintext with a freshly generated nonce.
//
// The AAD is authenticated but not encrypted. Decrypt must be given the same
// AAD or authentication fails.
func (a *AESGCMCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext = a.aead.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// Decrypt verifies the tag and returns the plaintext. No plaintext is returned
// when verification fails.
func (a *AESGCMCipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	if len(nonce) != a.aead.NonceSize() {
		return nil, fmt.Errorf("invalid nonce size: expected %d, got %d", a.aead.NonceSize(), len(nonce))
	}
	plaintext, err := a.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}
