// Package usecase implements the envelope encryption service.
//
// The service encrypts payloads under the registry's current key and tags each
// result with the key version, so any envelope can later be decrypted with the
// exact key that produced it. Migrating data to a newer key is a decrypt under
// the envelope's version followed by an encrypt under the target version.
//
// # Batch Semantics
//
// DecryptBatch is all-or-nothing: the first failing element aborts the batch and
// is reported through *envelopeDomain.BatchError. ReEncryptBatch reports a result
// per element, so one bad envelope never blocks the rest of a migration.
//
// Both batch operations pair every element with its input index, group the
// elements by key version, resolve each distinct key once and process groups in
// parallel. Output order always matches input order, duplicates included.
package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	envelopeDomain "github.com/allisson/envelope/internal/envelope/domain"
)

// KeyRegistry resolves the symmetric keys used by the service. Keys are
// returned as caller-owned copies.
type KeyRegistry interface {
	// CurrentKey returns the key designated for new encryptions.
	CurrentKey(ctx context.Context) (cryptoDomain.SymmetricKey, error)

	// KeyByVersion returns the key for version or ErrUnknownKeyVersion. It never creates keys.
	KeyByVersion(ctx context.Context, version string) (cryptoDomain.SymmetricKey, error)
}

// EnvelopeUseCase encrypts, decrypts and migrates envelopes.
type EnvelopeUseCase interface {
	// Encrypt seals plaintext under the current key.
	Encrypt(ctx context.Context, plaintext []byte) (*envelopeDomain.Envelope, error)

	// EncryptWithVersion seals plaintext under an existing version.
	EncryptWithVersion(ctx context.Context, plaintext []byte, version string) (*envelopeDomain.Envelope, error)

	// Decrypt opens an envelope with the key named by its version.
	Decrypt(ctx context.Context, envelope *envelopeDomain.Envelope) ([]byte, error)

	// DecryptBatch decrypts every envelope, preserving order. Any failure fails
	// the whole batch with a *BatchError and no plaintext.
	DecryptBatch(ctx context.Context, envelopes []*envelopeDomain.Envelope) ([][]byte, error)

	// ReEncryptWithNewKey moves an envelope to version without exposing the plaintext.
	ReEncryptWithNewKey(
		ctx context.Context,
		envelope *envelopeDomain.Envelope,
		version string,
	) (*envelopeDomain.Envelope, error)

	// ReEncryptBatch moves every envelope to version, reporting a result per
	// element. An error is returned only when version itself cannot be resolved.
	ReEncryptBatch(
		ctx context.Context,
		envelopes []*envelopeDomain.Envelope,
		version string,
	) ([]envelopeDomain.ReEncryptResult, error)
}
