package service

import (
	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
)

// aeadCodec implements AeadCodec on top of an AEADManager.
type aeadCodec struct {
	aeadManager AEADManager
}

// NewAeadCodec creates an AeadCodec that builds a cipher per call through aeadManager.
func NewAeadCodec(aeadManager AEADManager) AeadCodec {
	return &aeadCodec{aeadManager: aeadManager}
}

// Seal encrypts plaintext under key. The nonce is generated inside the cipher
// and returned to the caller for storage next to the ciphertext.
func (c *aeadCodec) Seal(key cryptoDomain.SymmetricKey, plaintext, aad []byte) ([]byte, []byte, error) {
	aead, err := c.aeadManager.CreateCipher(key.Key, key.Algorithm)
	if err != nil {
		return nil, nil, err
	}
	return aead.Encrypt(plaintext, aad)
}

// Open verifies and decrypts ciphertext under key.
func (c *aeadCodec) Open(key cryptoDomain.SymmetricKey, ciphertext, nonce, aad []byte) ([]byte, error) {
	aead, err := c.aeadManager.CreateCipher(key.Key, key.Algorithm)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Decrypt(ciphertext, nonce, aad)
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}
	return plaintext, nil
}
