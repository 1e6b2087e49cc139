package service

import (
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
)

// KeyManagerService implements KeyManager.
//
// Data keys are generated here and wrapped under a master key before they are
// persisted. The wrap is always AES-256-GCM with the master key, and the data
// key's "version|algorithm" is passed as associated data so a stored record
// cannot be moved to another version without failing authentication.
type KeyManagerService struct {
	aeadManager AEADManager
}

// NewKeyManager creates a new KeyManagerService instance with the provided AEADManager.
func NewKeyManager(aeadManager AEADManager) *KeyManagerService {
	return &KeyManagerService{
		aeadManager: aeadManager,
	}
}

// GenerateKey creates new random key material for version.
func (km *KeyManagerService) GenerateKey(
	version string,
	alg cryptoDomain.Algorithm,
	bits int,
) (cryptoDomain.SymmetricKey, error) {
	size, err := alg.KeySizeForBits(bits)
	if err != nil {
		return cryptoDomain.SymmetricKey{}, err
	}

	key := make([]byte, size)
	if _, err := rand.Read(key); err != nil {
		return cryptoDomain.SymmetricKey{}, fmt.Errorf("failed to generate key: %w", err)
	}

	return cryptoDomain.SymmetricKey{Version: version, Algorithm: alg, Key: key}, nil
}

// WrapKey seals key under masterKey.
func (km *KeyManagerService) WrapKey(
	masterKey *cryptoDomain.MasterKey,
	key cryptoDomain.SymmetricKey,
) (WrappedKey, error) {
	aead, err := km.aeadManager.CreateCipher(masterKey.Key, cryptoDomain.AESGCM)
	if err != nil {
		return WrappedKey{}, err
	}

	encryptedKey, nonce, err := aead.Encrypt(key.Key, wrapAAD(key.Version, key.Algorithm))
	if err != nil {
		return WrappedKey{}, fmt.Errorf("failed to wrap key: %w", err)
	}

	return WrappedKey{
		MasterKeyID:  masterKey.ID,
		EncryptedKey: encryptedKey,
		Nonce:        nonce,
	}, nil
}

// UnwrapKey recovers the key sealed by WrapKey. A wrong master key, a tampered
// record or a mismatched version all return ErrAuthenticationFailed.
func (km *KeyManagerService) UnwrapKey(
	masterKey *cryptoDomain.MasterKey,
	version string,
	alg cryptoDomain.Algorithm,
	wrapped WrappedKey,
) (cryptoDomain.SymmetricKey, error) {
	aead, err := km.aeadManager.CreateCipher(masterKey.Key, cryptoDomain.AESGCM)
	if err != nil {
		return cryptoDomain.SymmetricKey{}, err
	}

	key, err := aead.Decrypt(wrapped.EncryptedKey, wrapped.Nonce, wrapAAD(version, alg))
	if err != nil {
		return cryptoDomain.SymmetricKey{}, cryptoDomain.ErrAuthenticationFailed
	}

	return cryptoDomain.NewSymmetricKey(version, alg, key)
}

func wrapAAD(version string, alg cryptoDomain.Algorithm) []byte {
	return []byte(version + "|" + string(alg))
}
