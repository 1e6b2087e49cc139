// Package domain defines the cryptographic primitives shared by the key registry
// and the envelope service: algorithms, symmetric keys and master keys.
package domain

import (
	"fmt"
	"strings"
)

// Algorithm represents the AEAD algorithm bound to a symmetric key.
//
// Both supported algorithms use a 12-byte nonce and append a 16-byte
// authentication tag to the ciphertext, so envelopes produced under either
// algorithm share the same wire shape.
type Algorithm string

const (
	// AESGCM is AES in Galois/Counter Mode. Accepts 128, 192 or 256-bit keys.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305. Accepts 256-bit keys only.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

const (
	// NonceSize is the nonce length in bytes for every supported algorithm.
	NonceSize = 12

	// TagSize is the authentication tag length in bytes appended by Seal.
	TagSize = 16

	// MasterKeySize is the required master key length in bytes.
	MasterKeySize = 32
)

// ParseAlgorithm converts a configuration or request string into an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case AESGCM:
		return AESGCM, nil
	case ChaCha20:
		return ChaCha20, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
}

// KeySizes returns the accepted key lengths in bytes for the algorithm.
func (a Algorithm) KeySizes() []int {
	switch a {
	case AESGCM:
		return []int{16, 24, 32}
	case ChaCha20:
		return []int{32}
	default:
		return nil
	}
}

// ValidKeySize reports whether n bytes is an accepted key length for the algorithm.
func (a Algorithm) ValidKeySize(n int) bool {
	for _, size := range a.KeySizes() {
		if size == n {
			return true
		}
	}
	return false
}

// KeySizeForBits converts a bit length (128, 192, 256) into a validated byte length.
func (a Algorithm) KeySizeForBits(bits int) (int, error) {
	if _, err := ParseAlgorithm(string(a)); err != nil {
		return 0, err
	}
	if bits%8 != 0 || !a.ValidKeySize(bits/8) {
		return 0, fmt.Errorf("%w: %s does not accept %d-bit keys", ErrInvalidKeySize, a, bits)
	}
	return bits / 8, nil
}
