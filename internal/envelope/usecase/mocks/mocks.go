// Package mocks provides mock implementations of the envelope interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	envelopeDomain "github.com/allisson/envelope/internal/envelope/domain"
)

// MockKeyRegistry is a mock implementation of KeyRegistry.
//
// Like the real registry it hands out copies, so callers may zero returned keys.
type MockKeyRegistry struct {
	mock.Mock
}

// CurrentKey mocks the CurrentKey method of KeyRegistry.
func (m *MockKeyRegistry) CurrentKey(ctx context.Context) (cryptoDomain.SymmetricKey, error) {
	args := m.Called(ctx)
	return args.Get(0).(cryptoDomain.SymmetricKey).Clone(), args.Error(1)
}

// KeyByVersion mocks the KeyByVersion method of KeyRegistry.
func (m *MockKeyRegistry) KeyByVersion(ctx context.Context, version string) (cryptoDomain.SymmetricKey, error) {
	args := m.Called(ctx, version)
	return args.Get(0).(cryptoDomain.SymmetricKey).Clone(), args.Error(1)
}

// MockEnvelopeUseCase is a mock implementation of EnvelopeUseCase.
type MockEnvelopeUseCase struct {
	mock.Mock
}

// Encrypt mocks the Encrypt method of EnvelopeUseCase.
func (m *MockEnvelopeUseCase) Encrypt(ctx context.Context, plaintext []byte) (*envelopeDomain.Envelope, error) {
	args := m.Called(ctx, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envelopeDomain.Envelope), args.Error(1)
}

// EncryptWithVersion mocks the EncryptWithVersion method of EnvelopeUseCase.
func (m *MockEnvelopeUseCase) EncryptWithVersion(
	ctx context.Context,
	plaintext []byte,
	version string,
) (*envelopeDomain.Envelope, error) {
	args := m.Called(ctx, plaintext, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envelopeDomain.Envelope), args.Error(1)
}

// Decrypt mocks the Decrypt method of EnvelopeUseCase.
func (m *MockEnvelopeUseCase) Decrypt(ctx context.Context, envelope *envelopeDomain.Envelope) ([]byte, error) {
	args := m.Called(ctx, envelope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// DecryptBatch mocks the DecryptBatch method of EnvelopeUseCase.
func (m *MockEnvelopeUseCase) DecryptBatch(
	ctx context.Context,
	envelopes []*envelopeDomain.Envelope,
) ([][]byte, error) {
	args := m.Called(ctx, envelopes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]byte), args.Error(1)
}

// ReEncryptWithNewKey mocks the ReEncryptWithNewKey method of EnvelopeUseCase.
func (m *MockEnvelopeUseCase) ReEncryptWithNewKey(
	ctx context.Context,
	envelope *envelopeDomain.Envelope,
	version string,
) (*envelopeDomain.Envelope, error) {
	args := m.Called(ctx, envelope, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envelopeDomain.Envelope), args.Error(1)
}

// ReEncryptBatch mocks the ReEncryptBatch method of EnvelopeUseCase.
func (m *MockEnvelopeUseCase) ReEncryptBatch(
	ctx context.Context,
	envelopes []*envelopeDomain.Envelope,
	version string,
) ([]envelopeDomain.ReEncryptResult, error) {
	args := m.Called(ctx, envelopes, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]envelopeDomain.ReEncryptResult), args.Error(1)
}
