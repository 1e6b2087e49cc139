package service

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
)

func randomKey(t *testing.T, size int) []byte {
	t.Helper()
	key := make([]byte, size)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestAEADManagerService_CreateCipher(t *testing.T) {
	manager := NewAEADManager()

	tests := []struct {
		alg      cryptoDomain.Algorithm
		size     int
		wantType any
		wantErr  error
	}{
		{alg: cryptoDomain.AESGCM, size: 16, wantType: &AESGCMCipher{}},
		{alg: cryptoDomain.AESGCM, size: 24, wantType: &AESGCMCipher{}},
		{alg: cryptoDomain.AESGCM, size: 32, wantType: &AESGCMCipher{}},
		{alg: cryptoDomain.AESGCM, size: 0, wantErr: cryptoDomain.ErrInvalidKeySize},
		{alg: cryptoDomain.AESGCM, size: 64, wantErr: cryptoDomain.ErrInvalidKeySize},
		{alg: cryptoDomain.ChaCha20, size: 32, wantType: &ChaCha20Poly1305Cipher{}},
		{alg: cryptoDomain.ChaCha20, size: 16, wantErr: cryptoDomain.ErrInvalidKeySize},
		{alg: cryptoDomain.Algorithm("unsupported"), size: 32, wantErr: cryptoDomain.ErrUnsupportedAlgorithm},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.alg, tt.size), func(t *testing.T) {
			cipher, err := manager.CreateCipher(make([]byte, tt.size), tt.alg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, cipher)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, cipher)
		})
	}
}

func TestAEAD_RoundTripAllKeySizes(t *testing.T) {
	manager := NewAEADManager()

	cases := []struct {
		alg  cryptoDomain.Algorithm
		size int
	}{
		{cryptoDomain.AESGCM, 16},
		{cryptoDomain.AESGCM, 24},
		{cryptoDomain.AESGCM, 32},
		{cryptoDomain.ChaCha20, 32},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%d", tc.alg, tc.size*8), func(t *testing.T) {
			cipher, err := manager.CreateCipher(randomKey(t, tc.size), tc.alg)
			require.NoError(t, err)

			plaintext := []byte("sensitive data")
			aad := []byte("2024-01")

			ciphertext, nonce, err := cipher.Encrypt(plaintext, aad)
			require.NoError(t, err)
			assert.Len(t, nonce, cryptoDomain.NonceSize)
			assert.Len(t, ciphertext, len(plaintext)+cryptoDomain.TagSize)

			decrypted, err := cipher.Decrypt(ciphertext, nonce, aad)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)

			_, err = cipher.Decrypt(ciphertext, nonce, []byte("2024-02"))
			assert.Error(t, err)

			_, err = cipher.Decrypt(ciphertext, nonce[:8], aad)
			assert.Error(t, err)
		})
	}
}

func TestAEAD_EmptyPlaintext(t *testing.T) {
	cipher, err := NewChaCha20Poly1305(randomKey(t, 32))
	require.NoError(t, err)

	ciphertext, nonce, err := cipher.Encrypt([]byte{}, nil)
	require.NoError(t, err)
	assert.Len(t, ciphertext, cryptoDomain.TagSize)

	decrypted, err := cipher.Decrypt(ciphertext, nonce, nil)
	require.NoError(t, err)
	assert.Empty(t, decrypted)
}
