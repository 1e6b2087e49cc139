package service

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/allisson/go-pwdhash"
	"golang.org/x/crypto/argon2"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
)

// DefaultKDFParams returns the recommended Argon2id parameters with a fresh 16-byte salt.
func DefaultKDFParams() (cryptoDomain.KDFParams, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return cryptoDomain.KDFParams{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	return cryptoDomain.KDFParams{Salt: salt, Time: 3, Memory: 64 * 1024, Threads: 4}, nil
}

// DeriveMasterKey derives a 32-byte master key from password with Argon2id.
func DeriveMasterKey(id string, password []byte, params cryptoDomain.KDFParams) (*cryptoDomain.MasterKey, error) {
	if len(password) == 0 {
		return nil, errors.New("key store password must not be empty")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	key := argon2.IDKey(
		password,
		params.Salt,
		params.Time,
		params.Memory,
		params.Threads,
		cryptoDomain.MasterKeySize,
	)
	return &cryptoDomain.MasterKey{ID: id, Key: key}, nil
}

// PasswordVerifier hashes a key store password so a wrong password is
// reported as such instead of as an authentication failure on every key.
type PasswordVerifier interface {
	Hash(password []byte) (string, error)
	Verify(password []byte, hash string) bool
}

type pwdhashVerifier struct {
	hasher *pwdhash.PasswordHasher
}

// NewPasswordVerifier creates a PasswordVerifier backed by Argon2id hashing.
func NewPasswordVerifier() PasswordVerifier {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyInteractive))
	if err != nil {
		// Only reachable with an invalid built-in policy.
		panic(err)
	}
	return &pwdhashVerifier{hasher: hasher}
}

// Hash returns an encoded Argon2id hash of password.
func (v *pwdhashVerifier) Hash(password []byte) (string, error) {
	hash, err := v.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// Verify compares password against hash in constant time.
func (v *pwdhashVerifier) Verify(password []byte, hash string) bool {
	ok, err := v.hasher.Verify(password, hash)
	if err != nil {
		return false
	}
	return ok
}
