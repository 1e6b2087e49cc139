package domain

import (
	"github.com/allisson/envelope/internal/errors"
)

// Key registry errors.
var (
	// ErrUnknownKeyVersion indicates a version that was never created or was purged.
	// Callers must not retry or fall back to another key.
	ErrUnknownKeyVersion = errors.Wrap(errors.ErrNotFound, "unknown key version")

	// ErrNoCurrentKey indicates the registry holds no keys yet, so there is no
	// key to encrypt with.
	ErrNoCurrentKey = errors.Wrap(errors.ErrNotFound, "no current key")

	// ErrKeyCreationFailed indicates a new key could not be generated or durably persisted.
	ErrKeyCreationFailed = errors.Wrap(errors.ErrUnavailable, "key creation failed")

	// ErrKeyAlreadyExists is returned by repositories when a version is already stored.
	ErrKeyAlreadyExists = errors.Wrap(errors.ErrConflict, "key version already exists")

	// ErrInvalidKeyVersion indicates a malformed version identifier.
	ErrInvalidKeyVersion = errors.Wrap(
		errors.ErrInvalidInput,
		"invalid key version: must be 1-64 characters of letters, digits, '.', '_' or '-'",
	)

	// ErrWrongPassword indicates the file key store password does not match its verifier.
	ErrWrongPassword = errors.Wrap(errors.ErrInvalidInput, "wrong key store password")
)
