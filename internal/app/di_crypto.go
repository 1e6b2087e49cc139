package app

import (
	"context"
	"fmt"

	"github.com/allisson/envelope/internal/config"
	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	cryptoService "github.com/allisson/envelope/internal/crypto/service"
	keyringUseCase "github.com/allisson/envelope/internal/keyring/usecase"
)

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = c.initAEADManager()
	})
	return c.aeadManager
}

// AeadCodec returns the codec that seals and opens envelope payloads.
func (c *Container) AeadCodec() cryptoService.AeadCodec {
	c.aeadCodecInit.Do(func() {
		c.aeadCodec = cryptoService.NewAeadCodec(c.AEADManager())
	})
	return c.aeadCodec
}

// KeyManager returns the key manager service.
func (c *Container) KeyManager() cryptoService.KeyManager {
	c.keyManagerInit.Do(func() {
		c.keyManager = c.initKeyManager()
	})
	return c.keyManager
}

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// PasswordVerifier returns the verifier guarding the file key store password.
func (c *Container) PasswordVerifier() cryptoService.PasswordVerifier {
	c.passwordVerifierInit.Do(func() {
		c.passwordVerifier = cryptoService.NewPasswordVerifier()
	})
	return c.passwordVerifier
}

// MasterKeyChain returns the master keys that wrap stored data keys.
//
// The file key store derives a single master key from KEYSTORE_PASSWORD. The
// database key stores decrypt MASTER_KEYS with the configured KMS.
func (c *Container) MasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	var err error
	c.masterKeyChainInit.Do(func() {
		c.masterKeyChain, err = c.initMasterKeyChain()
		if err != nil {
			c.initErrors["masterKeyChain"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKeyChain"]; exists {
		return nil, storedErr
	}
	return c.masterKeyChain, nil
}

// initMasterKeyChain loads the master key chain for the configured key store.
func (c *Container) initMasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	ctx := context.Background()

	if c.config.KeystoreDriver == config.KeystoreDriverFile {
		store, err := c.FileKeyStore()
		if err != nil {
			return nil, fmt.Errorf("failed to get file key store for master key chain: %w", err)
		}

		password := []byte(c.config.KeystorePassword)
		defer cryptoDomain.Zero(password)

		chain, err := keyringUseCase.UnlockFileKeyStore(
			ctx,
			store,
			c.PasswordVerifier(),
			password,
			cryptoService.DefaultKDFParams,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to unlock key store %s: %w", store.Path(), err)
		}
		return chain, nil
	}

	if err := cryptoService.ValidateKMSConfig(c.config.KMSProvider, c.config.KMSKeyURI); err != nil {
		return nil, err
	}

	keeper, err := c.KMSService().OpenKeeper(ctx, c.config.KMSKeyURI)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = keeper.Close()
	}()

	chain, err := cryptoDomain.LoadMasterKeyChain(ctx, c.config.MasterKeys, c.config.ActiveMasterKeyID, keeper)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key chain: %w", err)
	}
	return chain, nil
}

// initAEADManager creates the AEAD manager service.
func (c *Container) initAEADManager() cryptoService.AEADManager {
	return cryptoService.NewAEADManager()
}

// initKeyManager creates the key manager service using the AEAD manager.
func (c *Container) initKeyManager() cryptoService.KeyManager {
	aeadManager := c.AEADManager()
	return cryptoService.NewKeyManager(aeadManager)
}
