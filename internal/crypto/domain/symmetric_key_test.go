package domain

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{input: "aes-gcm", want: AESGCM},
		{input: " AES-GCM ", want: AESGCM},
		{input: "chacha20-poly1305", want: ChaCha20},
		{input: "aes-cbc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			alg, err := ParseAlgorithm(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, alg)
		})
	}
}

func TestAlgorithm_KeySizeForBits(t *testing.T) {
	tests := []struct {
		alg     Algorithm
		bits    int
		want    int
		wantErr error
	}{
		{alg: AESGCM, bits: 128, want: 16},
		{alg: AESGCM, bits: 192, want: 24},
		{alg: AESGCM, bits: 256, want: 32},
		{alg: AESGCM, bits: 512, wantErr: ErrInvalidKeySize},
		{alg: ChaCha20, bits: 256, want: 32},
		{alg: ChaCha20, bits: 128, wantErr: ErrInvalidKeySize},
		{alg: Algorithm("rot13"), bits: 256, wantErr: ErrUnsupportedAlgorithm},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.alg, tt.bits), func(t *testing.T) {
			size, err := tt.alg.KeySizeForBits(tt.bits)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, size)
		})
	}
}

func TestNewSymmetricKey(t *testing.T) {
	t.Run("Success_AES128", func(t *testing.T) {
		key, err := NewSymmetricKey("2024-01", AESGCM, make([]byte, 16))
		require.NoError(t, err)
		assert.Equal(t, 128, key.Bits())
		assert.Equal(t, "2024-01", key.Version)
	})

	t.Run("Error_ChaChaShortKey", func(t *testing.T) {
		_, err := NewSymmetricKey("2024-01", ChaCha20, make([]byte, 16))
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})

	t.Run("Error_UnknownAlgorithm", func(t *testing.T) {
		_, err := NewSymmetricKey("2024-01", Algorithm("des"), make([]byte, 8))
		assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})
}

func TestSymmetricKey_CloneAndZero(t *testing.T) {
	original := SymmetricKey{Version: "v1", Algorithm: AESGCM, Key: bytes.Repeat([]byte{0xAB}, 32)}
	clone := original.Clone()

	original.Zero()

	assert.Equal(t, make([]byte, 32), original.Key)
	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 32), clone.Key)
	assert.Equal(t, original.Version, clone.Version)
}

func TestSymmetricKey_NeverPrintsMaterial(t *testing.T) {
	key := SymmetricKey{Version: "v1", Algorithm: ChaCha20, Key: []byte("0123456789abcdef0123456789abcdef")}

	assert.NotContains(t, fmt.Sprintf("%v", key), "0123456789abcdef")
	assert.NotContains(t, key.String(), "0123456789abcdef")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("loaded", slog.Any("key", key))
	assert.NotContains(t, buf.String(), "0123456789abcdef")
	assert.Contains(t, buf.String(), `"bits":256`)
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3}
	Zero(b)
	assert.Equal(t, []byte{0, 0, 0}, b)

	assert.NotPanics(t, func() { Zero(nil) })
}
