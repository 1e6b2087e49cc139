// Package mocks provides mock implementations of the key registry interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
)

// MockDataKeyRepository is a mock implementation of DataKeyRepository.
type MockDataKeyRepository struct {
	mock.Mock
}

// Create mocks the Create method of DataKeyRepository.
func (m *MockDataKeyRepository) Create(ctx context.Context, dataKey *keyringDomain.DataKey) error {
	args := m.Called(ctx, dataKey)
	return args.Error(0)
}

// GetByVersion mocks the GetByVersion method of DataKeyRepository.
func (m *MockDataKeyRepository) GetByVersion(ctx context.Context, version string) (*keyringDomain.DataKey, error) {
	args := m.Called(ctx, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keyringDomain.DataKey), args.Error(1)
}

// GetLatest mocks the GetLatest method of DataKeyRepository.
func (m *MockDataKeyRepository) GetLatest(ctx context.Context) (*keyringDomain.DataKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keyringDomain.DataKey), args.Error(1)
}

// List mocks the List method of DataKeyRepository.
func (m *MockDataKeyRepository) List(ctx context.Context) ([]*keyringDomain.DataKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*keyringDomain.DataKey), args.Error(1)
}

// UpdateWrapping mocks the UpdateWrapping method of DataKeyRepository.
func (m *MockDataKeyRepository) UpdateWrapping(ctx context.Context, dataKey *keyringDomain.DataKey) error {
	args := m.Called(ctx, dataKey)
	return args.Error(0)
}

// MockKeyUseCase is a mock implementation of KeyUseCase.
type MockKeyUseCase struct {
	mock.Mock
}

// CurrentKey mocks the CurrentKey method of KeyUseCase.
func (m *MockKeyUseCase) CurrentKey(ctx context.Context) (cryptoDomain.SymmetricKey, error) {
	args := m.Called(ctx)
	return args.Get(0).(cryptoDomain.SymmetricKey), args.Error(1)
}

// KeyByVersion mocks the KeyByVersion method of KeyUseCase.
func (m *MockKeyUseCase) KeyByVersion(ctx context.Context, version string) (cryptoDomain.SymmetricKey, error) {
	args := m.Called(ctx, version)
	return args.Get(0).(cryptoDomain.SymmetricKey), args.Error(1)
}

// GetOrCreateKey mocks the GetOrCreateKey method of KeyUseCase.
func (m *MockKeyUseCase) GetOrCreateKey(ctx context.Context, version string) (cryptoDomain.SymmetricKey, error) {
	args := m.Called(ctx, version)
	return args.Get(0).(cryptoDomain.SymmetricKey), args.Error(1)
}

// AllVersions mocks the AllVersions method of KeyUseCase.
func (m *MockKeyUseCase) AllVersions(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// Create mocks the Create method of KeyUseCase.
func (m *MockKeyUseCase) Create(ctx context.Context, version string) (*keyringDomain.KeyInfo, bool, error) {
	args := m.Called(ctx, version)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*keyringDomain.KeyInfo), args.Bool(1), args.Error(2)
}

// Rotate mocks the Rotate method of KeyUseCase.
func (m *MockKeyUseCase) Rotate(ctx context.Context, version string) (*keyringDomain.KeyInfo, error) {
	args := m.Called(ctx, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keyringDomain.KeyInfo), args.Error(1)
}

// ListKeys mocks the ListKeys method of KeyUseCase.
func (m *MockKeyUseCase) ListKeys(ctx context.Context) ([]*keyringDomain.KeyInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*keyringDomain.KeyInfo), args.Error(1)
}

// Rewrap mocks the Rewrap method of KeyUseCase.
func (m *MockKeyUseCase) Rewrap(ctx context.Context, batchSize int) (int, error) {
	args := m.Called(ctx, batchSize)
	return args.Int(0), args.Error(1)
}
