package app

import (
	"context"
	"fmt"

	"github.com/allisson/envelope/internal/config"
	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	keyringHTTP "github.com/allisson/envelope/internal/keyring/http"
	keyringRepository "github.com/allisson/envelope/internal/keyring/repository"
	keyringUseCase "github.com/allisson/envelope/internal/keyring/usecase"
)

// FileKeyStore returns the JSON file key store used by the file driver.
func (c *Container) FileKeyStore() (*keyringRepository.FileDataKeyRepository, error) {
	var err error
	c.fileKeyStoreInit.Do(func() {
		c.fileKeyStore, err = keyringRepository.NewFileDataKeyRepository(c.config.KeystoreFilePath)
		if err != nil {
			c.initErrors["fileKeyStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fileKeyStore"]; exists {
		return nil, storedErr
	}
	return c.fileKeyStore, nil
}

// DataKeyRepository returns the data key repository based on the key store driver.
func (c *Container) DataKeyRepository() (keyringUseCase.DataKeyRepository, error) {
	var err error
	c.dataKeyRepositoryInit.Do(func() {
		c.dataKeyRepository, err = c.initDataKeyRepository()
		if err != nil {
			c.initErrors["dataKeyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dataKeyRepository"]; exists {
		return nil, storedErr
	}
	return c.dataKeyRepository, nil
}

// KeyUseCase returns the key registry.
func (c *Container) KeyUseCase() (keyringUseCase.KeyUseCase, error) {
	var err error
	c.keyUseCaseInit.Do(func() {
		c.keyUseCase, err = c.initKeyUseCase()
		if err != nil {
			c.initErrors["keyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyUseCase, nil
}

// KeyHandler returns the key management HTTP handler.
func (c *Container) KeyHandler() (*keyringHTTP.KeyHandler, error) {
	var err error
	c.keyHandlerInit.Do(func() {
		c.keyHandler, err = c.initKeyHandler()
		if err != nil {
			c.initErrors["keyHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyHandler"]; exists {
		return nil, storedErr
	}
	return c.keyHandler, nil
}

// initDataKeyRepository selects the repository for the configured key store driver.
func (c *Container) initDataKeyRepository() (keyringUseCase.DataKeyRepository, error) {
	if c.config.KeystoreDriver == config.KeystoreDriverFile {
		store, err := c.FileKeyStore()
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for data key repository: %w", err)
	}

	switch c.config.KeystoreDriver {
	case config.KeystoreDriverPostgres:
		return keyringRepository.NewPostgreSQLDataKeyRepository(db), nil
	case config.KeystoreDriverMySQL:
		return keyringRepository.NewMySQLDataKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported key store driver: %s", c.config.KeystoreDriver)
	}
}

// initKeyUseCase creates the key registry with all its dependencies.
func (c *Container) initKeyUseCase() (keyringUseCase.KeyUseCase, error) {
	repo, err := c.DataKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get data key repository for key use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key use case: %w", err)
	}

	masterKeyChain, err := c.MasterKeyChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key chain for key use case: %w", err)
	}

	algorithm, err := cryptoDomain.ParseAlgorithm(c.config.KeyAlgorithm)
	if err != nil {
		return nil, err
	}

	baseUseCase, err := keyringUseCase.NewKeyUseCase(
		repo,
		txManager,
		c.KeyManager(),
		masterKeyChain,
		keyringUseCase.RegistryConfig{
			Algorithm:      algorithm,
			Bits:           c.config.KeyBits,
			CurrentVersion: c.config.CurrentKeyVersion,
		},
		c.Logger(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create key use case: %w", err)
	}

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for key use case: %w", err)
		}

		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for key use case: %w", err)
		}
		err = provider.ObserveKeyVersions(c.config.MetricsNamespace, func(ctx context.Context) (int, error) {
			versions, err := baseUseCase.AllVersions(ctx)
			return len(versions), err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to observe key versions: %w", err)
		}

		return keyringUseCase.NewKeyUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initKeyHandler creates the key HTTP handler with all its dependencies.
func (c *Container) initKeyHandler() (*keyringHTTP.KeyHandler, error) {
	keyUseCase, err := c.KeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key use case for key handler: %w", err)
	}

	return keyringHTTP.NewKeyHandler(keyUseCase, c.Logger()), nil
}
