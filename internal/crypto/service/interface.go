// Package service provides the AEAD primitives behind envelope encryption:
// cipher construction, the seal/open codec, data key wrapping under master
// keys, password key derivation and KMS access.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and a fresh random nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager creates AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// AeadCodec seals and opens payloads under a versioned symmetric key.
//
// Every call builds its own cipher context, so one codec is safe for any
// number of concurrent callers without locking.
type AeadCodec interface {
	// Seal encrypts plaintext and returns the ciphertext (tag appended) and the nonce it generated.
	Seal(key cryptoDomain.SymmetricKey, plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Open verifies and decrypts. A tag mismatch returns cryptoDomain.ErrAuthenticationFailed.
	Open(key cryptoDomain.SymmetricKey, ciphertext, nonce, aad []byte) ([]byte, error)
}

// WrappedKey is a data key sealed under a master key.
type WrappedKey struct {
	MasterKeyID  string
	EncryptedKey []byte
	Nonce        []byte
}

// KeyManager generates data keys and wraps them under master keys.
type KeyManager interface {
	// GenerateKey creates fresh random key material for version.
	GenerateKey(version string, alg cryptoDomain.Algorithm, bits int) (cryptoDomain.SymmetricKey, error)

	// WrapKey seals key under masterKey, authenticating the key's version and algorithm.
	WrapKey(masterKey *cryptoDomain.MasterKey, key cryptoDomain.SymmetricKey) (WrappedKey, error)

	// UnwrapKey recovers the key material sealed by WrapKey.
	UnwrapKey(
		masterKey *cryptoDomain.MasterKey,
		version string,
		alg cryptoDomain.Algorithm,
		wrapped WrappedKey,
	) (cryptoDomain.SymmetricKey, error)
}

// KMSService opens keepers for KMS providers.
type KMSService interface {
	// OpenKeeper opens a keeper for the provider addressed by keyURI.
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}
