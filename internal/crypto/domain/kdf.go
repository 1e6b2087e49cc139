package domain

import (
	"errors"
)

// KDFParams are the Argon2id parameters stored in a password-protected key
// store header. Memory is in KiB.
type KDFParams struct {
	Salt    []byte `json:"salt"`
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
}

// Validate rejects parameters argon2 cannot run with.
func (p KDFParams) Validate() error {
	if len(p.Salt) < 8 {
		return errors.New("kdf salt must be at least 8 bytes")
	}
	if p.Time == 0 || p.Threads == 0 {
		return errors.New("kdf time and threads must be positive")
	}
	if p.Memory < 8*uint32(p.Threads) {
		return errors.New("kdf memory must be at least 8 KiB per thread")
	}
	return nil
}
