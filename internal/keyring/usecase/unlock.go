package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	cryptoService "github.com/allisson/envelope/internal/crypto/service"
	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
)

// UnlockFileKeyStore derives the master key of a password-protected key store.
//
// A new store gets a header built from newParams and a verifier of password.
// An existing store re-derives its key from the stored parameters after the
// password has been checked against the verifier, so a wrong password is
// reported as ErrWrongPassword instead of failing on every key unwrap.
func UnlockFileKeyStore(
	ctx context.Context,
	headerRepo KeyStoreHeaderRepository,
	verifier cryptoService.PasswordVerifier,
	password []byte,
	newParams func() (cryptoDomain.KDFParams, error),
) (*cryptoDomain.MasterKeyChain, error) {
	if len(password) == 0 {
		return nil, keyringDomain.ErrWrongPassword
	}

	header, ok, err := headerRepo.Header(ctx)
	if err != nil {
		return nil, err
	}

	if !ok {
		params, err := newParams()
		if err != nil {
			return nil, err
		}
		hash, err := verifier.Hash(password)
		if err != nil {
			return nil, err
		}
		header = &keyringDomain.KeyStoreHeader{KDF: params, PasswordHash: hash}
		if err := headerRepo.InitHeader(ctx, header); err != nil {
			return nil, err
		}
	} else if !verifier.Verify(password, header.PasswordHash) {
		return nil, keyringDomain.ErrWrongPassword
	}

	masterKey, err := cryptoService.DeriveMasterKey(keyringDomain.FileMasterKeyID, password, header.KDF)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(masterKey.Key)

	return cryptoDomain.NewMasterKeyChain(masterKey.ID, masterKey)
}
