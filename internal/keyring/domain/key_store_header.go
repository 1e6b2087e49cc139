package domain

import (
	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
)

// FileMasterKeyID names the master key derived from the file key store password.
const FileMasterKeyID = "keystore-password"

// KeyStoreHeader is the cleartext header of a password-protected key store.
// It holds what is needed to re-derive the master key, never the key itself.
type KeyStoreHeader struct {
	KDF          cryptoDomain.KDFParams `json:"kdf"`
	PasswordHash string                 `json:"password_hash"`
}
