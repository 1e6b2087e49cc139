package domain

import (
	"fmt"
	"log/slog"
)

// SymmetricKey is versioned key material used to seal and open envelopes.
//
// The Key bytes never leave process memory in cleartext: they are not logged
// (see LogValue), not serialized, and callers must call Zero once done.
type SymmetricKey struct {
	Version   string
	Algorithm Algorithm
	Key       []byte
}

// NewSymmetricKey validates the key length against the algorithm.
func NewSymmetricKey(version string, alg Algorithm, key []byte) (SymmetricKey, error) {
	if _, err := ParseAlgorithm(string(alg)); err != nil {
		return SymmetricKey{}, err
	}
	if !alg.ValidKeySize(len(key)) {
		return SymmetricKey{}, fmt.Errorf(
			"%w: %s does not accept %d-byte keys",
			ErrInvalidKeySize,
			alg,
			len(key),
		)
	}
	return SymmetricKey{Version: version, Algorithm: alg, Key: key}, nil
}

// Bits returns the key length in bits (128, 192 or 256).
func (k SymmetricKey) Bits() int {
	return len(k.Key) * 8
}

// Clone returns a copy that owns its own key bytes.
func (k SymmetricKey) Clone() SymmetricKey {
	key := make([]byte, len(k.Key))
	copy(key, k.Key)
	return SymmetricKey{Version: k.Version, Algorithm: k.Algorithm, Key: key}
}

// Zero wipes the key bytes in place.
func (k SymmetricKey) Zero() {
	Zero(k.Key)
}

// LogValue implements slog.LogValuer and omits the key material.
func (k SymmetricKey) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", k.Version),
		slog.String("algorithm", string(k.Algorithm)),
		slog.Int("bits", k.Bits()),
	)
}

// String omits the key material.
func (k SymmetricKey) String() string {
	return fmt.Sprintf("SymmetricKey{version=%s algorithm=%s bits=%d}", k.Version, k.Algorithm, k.Bits())
}

// Zero securely overwrites a byte slice with zeros to clear sensitive data from memory.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
