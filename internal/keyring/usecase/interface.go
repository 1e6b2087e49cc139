// Package usecase implements the key registry: versioned symmetric keys,
// current-key designation, idempotent key creation and master key re-wrapping.
package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
)

// DataKeyRepository persists wrapped data keys keyed by version.
type DataKeyRepository interface {
	// Create stores a new data key. Returns ErrKeyAlreadyExists if the version is taken.
	Create(ctx context.Context, dataKey *keyringDomain.DataKey) error

	// GetByVersion returns the data key for version or ErrUnknownKeyVersion.
	GetByVersion(ctx context.Context, version string) (*keyringDomain.DataKey, error)

	// GetLatest returns the most recently created data key or ErrNoCurrentKey.
	GetLatest(ctx context.Context) (*keyringDomain.DataKey, error)

	// List returns every data key in creation order.
	List(ctx context.Context) ([]*keyringDomain.DataKey, error)

	// UpdateWrapping replaces MasterKeyID, EncryptedKey and Nonce of an existing version.
	UpdateWrapping(ctx context.Context, dataKey *keyringDomain.DataKey) error
}

// KeyStoreHeaderRepository stores the header of a password-protected key store.
type KeyStoreHeaderRepository interface {
	// Header returns the stored header, or false when the store is new.
	Header(ctx context.Context) (*keyringDomain.KeyStoreHeader, bool, error)

	// InitHeader durably writes the header of a new store.
	InitHeader(ctx context.Context, header *keyringDomain.KeyStoreHeader) error
}

// KeyRegistry resolves versioned symmetric keys.
//
// Returned keys are copies owned by the caller, who should Zero them after use.
type KeyRegistry interface {
	// CurrentKey returns the key designated for new encryptions.
	CurrentKey(ctx context.Context) (cryptoDomain.SymmetricKey, error)

	// KeyByVersion returns the key for version or ErrUnknownKeyVersion.
	KeyByVersion(ctx context.Context, version string) (cryptoDomain.SymmetricKey, error)

	// GetOrCreateKey returns the existing key for version or durably creates one.
	// Concurrent callers for the same version observe the same key material.
	GetOrCreateKey(ctx context.Context, version string) (cryptoDomain.SymmetricKey, error)

	// AllVersions returns every known version in creation order.
	AllVersions(ctx context.Context) ([]string, error)
}

// KeyUseCase is the management surface of the registry used by the CLI and HTTP API.
type KeyUseCase interface {
	KeyRegistry

	// Create is GetOrCreateKey returning metadata. created reports whether a new key was minted.
	Create(ctx context.Context, version string) (info *keyringDomain.KeyInfo, created bool, err error)

	// Rotate creates a new version, which becomes current unless a version is pinned.
	// An empty version is replaced by a timestamp version.
	Rotate(ctx context.Context, version string) (*keyringDomain.KeyInfo, error)

	// ListKeys returns metadata for every version, marking the current one.
	ListKeys(ctx context.Context) ([]*keyringDomain.KeyInfo, error)

	// Rewrap re-wraps data keys not wrapped by the active master key, batchSize per
	// transaction. Returns the number of keys re-wrapped.
	Rewrap(ctx context.Context, batchSize int) (int, error)
}
