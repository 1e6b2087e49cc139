package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	apperrors "github.com/allisson/envelope/internal/errors"
)

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		valid   bool
	}{
		{name: "month", version: "2024-01", valid: true},
		{name: "timestamp", version: "20240102T150405Z", valid: true},
		{name: "dotted", version: "v1.2_rc-3", valid: true},
		{name: "max length", version: strings.Repeat("a", MaxVersionLength), valid: true},
		{name: "empty", version: "", valid: false},
		{name: "too long", version: strings.Repeat("a", MaxVersionLength+1), valid: false},
		{name: "colon", version: "2024:01", valid: false},
		{name: "space", version: "2024 01", valid: false},
		{name: "slash", version: "../etc", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVersion(tt.version)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidKeyVersion)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestNewDefaultVersion(t *testing.T) {
	earlier := NewDefaultVersion(time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC))
	later := NewDefaultVersion(time.Date(2024, 11, 2, 15, 4, 5, 0, time.FixedZone("X", 3600)))

	assert.Equal(t, "20240102T150405Z", earlier)
	assert.Equal(t, "20241102T140405Z", later)
	assert.Less(t, earlier, later)
	assert.NoError(t, ValidateVersion(earlier))
}

func TestDataKey_Info(t *testing.T) {
	createdAt := time.Now().UTC()
	dk := &DataKey{
		ID:           uuid.Must(uuid.NewV7()),
		Version:      "2024-01",
		Algorithm:    cryptoDomain.AESGCM,
		Bits:         256,
		MasterKeyID:  "mk1",
		EncryptedKey: []byte("wrapped"),
		Nonce:        []byte("nonce"),
		CreatedAt:    createdAt,
	}

	info := dk.Info()
	assert.Equal(t, "2024-01", info.Version)
	assert.Equal(t, cryptoDomain.AESGCM, info.Algorithm)
	assert.Equal(t, 256, info.Bits)
	assert.Equal(t, createdAt, info.CreatedAt)
	assert.False(t, info.Current)
}

func TestErrors_MapToStandardErrors(t *testing.T) {
	assert.ErrorIs(t, ErrUnknownKeyVersion, apperrors.ErrNotFound)
	assert.ErrorIs(t, ErrKeyCreationFailed, apperrors.ErrUnavailable)
	assert.ErrorIs(t, ErrKeyAlreadyExists, apperrors.ErrConflict)
}
