// Package domain defines the persisted key registry records and their invariants.
package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
)

// DefaultVersionLayout formats generated key versions. Versions produced with it
// sort in creation order.
const DefaultVersionLayout = "20060102T150405Z"

// MaxVersionLength bounds a key version so it fits in the compact envelope token
// and in the key store's version column.
const MaxVersionLength = 64

var versionRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// DataKey is a registry entry: a symmetric key wrapped under a master key.
//
// The unwrapped key material is never part of this record. Once persisted, a
// DataKey is never modified except for re-wrapping under a newer master key,
// which changes MasterKeyID, EncryptedKey and Nonce but never the material.
type DataKey struct {
	ID           uuid.UUID
	Version      string
	Algorithm    cryptoDomain.Algorithm
	Bits         int
	MasterKeyID  string
	EncryptedKey []byte
	Nonce        []byte
	CreatedAt    time.Time
}

// KeyInfo is the non-secret view of a registry entry.
type KeyInfo struct {
	Version   string
	Algorithm cryptoDomain.Algorithm
	Bits      int
	CreatedAt time.Time
	Current   bool
}

// Info returns the non-secret view of the data key.
func (d *DataKey) Info() KeyInfo {
	return KeyInfo{
		Version:   d.Version,
		Algorithm: d.Algorithm,
		Bits:      d.Bits,
		CreatedAt: d.CreatedAt,
	}
}

// ValidateVersion enforces 1..64 characters from [A-Za-z0-9._-].
func ValidateVersion(version string) error {
	if version == "" || len(version) > MaxVersionLength || !versionRegex.MatchString(version) {
		return ErrInvalidKeyVersion
	}
	return nil
}

// NewDefaultVersion returns a timestamp version for rotations that do not name one.
func NewDefaultVersion(now time.Time) string {
	return now.UTC().Format(DefaultVersionLayout)
}
