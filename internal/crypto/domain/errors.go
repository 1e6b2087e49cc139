package domain

import (
	"github.com/allisson/envelope/internal/errors"
)

// Cryptographic error definitions.
//
// These wrap the standard errors from internal/errors so handlers can map
// them to HTTP status codes without knowing about cryptography.
var (
	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a key length not accepted by its algorithm.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrAuthenticationFailed indicates the AEAD tag did not verify.
	//
	// The ciphertext, nonce or associated data was modified, or the wrong key
	// was supplied. No plaintext is ever returned alongside this error, and the
	// cause is deliberately not narrowed further.
	ErrAuthenticationFailed = errors.Wrap(errors.ErrInvalidInput, "authentication failed")
)

// Master key configuration errors.
var (
	ErrMasterKeysNotSet        = errors.New("MASTER_KEYS not set")
	ErrActiveMasterKeyIDNotSet = errors.New("ACTIVE_MASTER_KEY_ID not set")
	ErrInvalidMasterKeysFormat = errors.New("invalid MASTER_KEYS format")
	ErrInvalidMasterKeyBase64  = errors.New("invalid master key base64")
	ErrActiveMasterKeyNotFound = errors.New("active master key not found")
	ErrKMSKeeperRequired       = errors.New("KMS keeper is required to decrypt MASTER_KEYS")

	// ErrMasterKeyNotFound indicates a stored key references a master key that is
	// no longer configured.
	ErrMasterKeyNotFound = errors.Wrap(errors.ErrUnavailable, "master key not found")
)
