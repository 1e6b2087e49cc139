package service

import (
	"fmt"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
)

// AEADManagerService implements the AEADManager interface.
type AEADManagerService struct{}

// NewAEADManager creates a new AEADManagerService.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher creates an AEAD cipher instance for the specified algorithm.
// Returns ErrInvalidKeySize if the algorithm does not accept the key length and
// ErrUnsupportedAlgorithm if the algorithm is unknown.
func (am *AEADManagerService) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error) {
	switch alg {
	case cryptoDomain.AESGCM:
		if !alg.ValidKeySize(len(key)) {
			return nil, fmt.Errorf("%w: %d bytes for %s", cryptoDomain.ErrInvalidKeySize, len(key), alg)
		}
		return NewAESGCM(key)
	case cryptoDomain.ChaCha20:
		if !alg.ValidKeySize(len(key)) {
			return nil, fmt.Errorf("%w: %d bytes for %s", cryptoDomain.ErrInvalidKeySize, len(key), alg)
		}
		return NewChaCha20Poly1305(key)
	default:
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
}
