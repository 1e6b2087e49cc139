package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	cryptoService "github.com/allisson/envelope/internal/crypto/service"
	"github.com/allisson/envelope/internal/database"
	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
)

const defaultRewrapBatchSize = 100

// RegistryConfig controls how new keys are minted and which one is current.
type RegistryConfig struct {
	// Algorithm and Bits describe keys created by GetOrCreateKey and Rotate.
	Algorithm cryptoDomain.Algorithm
	Bits      int

	// CurrentVersion pins the current key. When empty the most recently
	// created version is current.
	CurrentVersion string
}

// cachedKey is an unwrapped key held encrypted in memory between uses.
type cachedKey struct {
	algorithm cryptoDomain.Algorithm
	enclave   *memguard.Enclave
}

// keyRegistry implements KeyUseCase.
//
// Unwrapped key material lives only in memguard enclaves. Every caller gets
// its own copy, so zeroing a returned key never affects the cache or another
// caller. Cold lookups and creations of the same version are collapsed into a
// single repository round trip.
type keyRegistry struct {
	repo           DataKeyRepository
	txManager      database.TxManager
	keyManager     cryptoService.KeyManager
	masterKeyChain *cryptoDomain.MasterKeyChain
	cfg            RegistryConfig
	logger         *slog.Logger
	now            func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]*cachedKey
}

// NewKeyUseCase creates the key registry.
func NewKeyUseCase(
	repo DataKeyRepository,
	txManager database.TxManager,
	keyManager cryptoService.KeyManager,
	masterKeyChain *cryptoDomain.MasterKeyChain,
	cfg RegistryConfig,
	logger *slog.Logger,
) (KeyUseCase, error) {
	if _, err := cfg.Algorithm.KeySizeForBits(cfg.Bits); err != nil {
		return nil, err
	}
	if cfg.CurrentVersion != "" {
		if err := keyringDomain.ValidateVersion(cfg.CurrentVersion); err != nil {
			return nil, fmt.Errorf("invalid current key version %q: %w", cfg.CurrentVersion, err)
		}
	}

	return &keyRegistry{
		repo:           repo,
		txManager:      txManager,
		keyManager:     keyManager,
		masterKeyChain: masterKeyChain,
		cfg:            cfg,
		logger:         logger,
		now:            time.Now,
		cache:          make(map[string]*cachedKey),
	}, nil
}

// CurrentKey returns the pinned version, creating it on first use, or the
// most recently created version.
func (r *keyRegistry) CurrentKey(ctx context.Context) (cryptoDomain.SymmetricKey, error) {
	if r.cfg.CurrentVersion != "" {
		return r.resolve(ctx, r.cfg.CurrentVersion, true)
	}

	latest, err := r.repo.GetLatest(ctx)
	if err != nil {
		return cryptoDomain.SymmetricKey{}, err
	}
	return r.resolve(ctx, latest.Version, false)
}

// KeyByVersion returns the key for version. A syntactically invalid version
// can never have been created and is reported as unknown.
func (r *keyRegistry) KeyByVersion(ctx context.Context, version string) (cryptoDomain.SymmetricKey, error) {
	if err := keyringDomain.ValidateVersion(version); err != nil {
		return cryptoDomain.SymmetricKey{}, keyringDomain.ErrUnknownKeyVersion
	}
	return r.resolve(ctx, version, false)
}

// GetOrCreateKey returns the key for version, creating and persisting it first if needed.
func (r *keyRegistry) GetOrCreateKey(ctx context.Context, version string) (cryptoDomain.SymmetricKey, error) {
	if err := keyringDomain.ValidateVersion(version); err != nil {
		return cryptoDomain.SymmetricKey{}, err
	}
	return r.resolve(ctx, version, true)
}

// AllVersions returns every stored version in creation order.
func (r *keyRegistry) AllVersions(ctx context.Context) ([]string, error) {
	dataKeys, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(dataKeys))
	for _, dk := range dataKeys {
		versions = append(versions, dk.Version)
	}
	return versions, nil
}

// Create ensures version exists and returns its metadata.
func (r *keyRegistry) Create(ctx context.Context, version string) (*keyringDomain.KeyInfo, bool, error) {
	if err := keyringDomain.ValidateVersion(version); err != nil {
		return nil, false, err
	}

	created, err := r.ensure(ctx, version, true)
	if err != nil {
		return nil, false, err
	}

	dataKey, err := r.repo.GetByVersion(ctx, version)
	if err != nil {
		return nil, false, err
	}

	current, err := r.currentVersion(ctx)
	if err != nil {
		return nil, false, err
	}

	info := dataKey.Info()
	info.Current = info.Version == current
	return &info, created, nil
}

// Rotate creates a new version. An empty version gets a timestamp version.
func (r *keyRegistry) Rotate(ctx context.Context, version string) (*keyringDomain.KeyInfo, error) {
	if version == "" {
		version = keyringDomain.NewDefaultVersion(r.now())
	}

	info, created, err := r.Create(ctx, version)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, keyringDomain.ErrKeyAlreadyExists
	}

	r.logger.Info("key rotated",
		slog.String("version", info.Version),
		slog.Bool("current", info.Current),
	)
	return info, nil
}

// ListKeys returns every version's metadata with the current one marked.
func (r *keyRegistry) ListKeys(ctx context.Context) ([]*keyringDomain.KeyInfo, error) {
	dataKeys, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	current := r.cfg.CurrentVersion
	if current == "" && len(dataKeys) > 0 {
		current = dataKeys[len(dataKeys)-1].Version
	}

	infos := make([]*keyringDomain.KeyInfo, 0, len(dataKeys))
	for _, dk := range dataKeys {
		info := dk.Info()
		info.Current = info.Version == current
		infos = append(infos, &info)
	}
	return infos, nil
}

// Rewrap re-wraps every data key not wrapped by the active master key.
// The key material is unchanged, so cached keys stay valid.
func (r *keyRegistry) Rewrap(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultRewrapBatchSize
	}

	active, ok := r.masterKeyChain.Active()
	if !ok {
		return 0, cryptoDomain.ErrMasterKeyNotFound
	}

	dataKeys, err := r.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	var pending []*keyringDomain.DataKey
	for _, dk := range dataKeys {
		if dk.MasterKeyID != active.ID {
			pending = append(pending, dk)
		}
	}

	rewrapped := 0
	for start := 0; start < len(pending); start += batchSize {
		batch := pending[start:min(start+batchSize, len(pending))]

		err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
			for _, dk := range batch {
				if err := r.rewrapOne(ctx, active, dk); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return rewrapped, err
		}

		rewrapped += len(batch)
		r.logger.Info("data keys rewrapped",
			slog.Int("batch", len(batch)),
			slog.Int("total", rewrapped),
			slog.String("master_key_id", active.ID),
		)
	}

	return rewrapped, nil
}

func (r *keyRegistry) rewrapOne(
	ctx context.Context,
	active *cryptoDomain.MasterKey,
	dk *keyringDomain.DataKey,
) error {
	key, err := r.unwrap(dk)
	if err != nil {
		return err
	}
	defer key.Zero()

	wrapped, err := r.keyManager.WrapKey(active, key)
	if err != nil {
		return err
	}

	dk.MasterKeyID = wrapped.MasterKeyID
	dk.EncryptedKey = wrapped.EncryptedKey
	dk.Nonce = wrapped.Nonce
	return r.repo.UpdateWrapping(ctx, dk)
}

func (r *keyRegistry) currentVersion(ctx context.Context) (string, error) {
	if r.cfg.CurrentVersion != "" {
		return r.cfg.CurrentVersion, nil
	}

	latest, err := r.repo.GetLatest(ctx)
	if err != nil {
		if errors.Is(err, keyringDomain.ErrNoCurrentKey) {
			return "", nil
		}
		return "", err
	}
	return latest.Version, nil
}

// resolve returns a private copy of version's key, loading or creating it when
// it is not cached.
func (r *keyRegistry) resolve(
	ctx context.Context,
	version string,
	create bool,
) (cryptoDomain.SymmetricKey, error) {
	if key, ok, err := r.cached(version); err != nil || ok {
		return key, err
	}

	if _, err := r.ensure(ctx, version, create); err != nil {
		return cryptoDomain.SymmetricKey{}, err
	}

	key, ok, err := r.cached(version)
	if err != nil {
		return cryptoDomain.SymmetricKey{}, err
	}
	if !ok {
		return cryptoDomain.SymmetricKey{}, keyringDomain.ErrUnknownKeyVersion
	}
	return key, nil
}

// ensure places version in the cache. Concurrent calls for the same version
// share one execution, which is detached from the first caller's cancellation
// so that caller giving up does not fail the others. The result reports
// whether a new key was created.
func (r *keyRegistry) ensure(ctx context.Context, version string, create bool) (bool, error) {
	flight := "get:" + version
	if create {
		flight = "create:" + version
	}

	ctx = context.WithoutCancel(ctx)
	created, err, _ := r.group.Do(flight, func() (any, error) {
		dataKey, err := r.repo.GetByVersion(ctx, version)
		if err == nil {
			return false, r.cacheDataKey(dataKey)
		}
		if !create || !errors.Is(err, keyringDomain.ErrUnknownKeyVersion) {
			return false, err
		}
		return r.createKey(ctx, version)
	})
	if err != nil {
		return false, err
	}
	return created.(bool), nil
}

// createKey mints and persists version. Losing a creation race to another
// process is not an error: the winner's key is loaded instead.
func (r *keyRegistry) createKey(ctx context.Context, version string) (bool, error) {
	masterKey, ok := r.masterKeyChain.Active()
	if !ok {
		return false, keyCreationFailed(cryptoDomain.ErrMasterKeyNotFound)
	}

	key, err := r.keyManager.GenerateKey(version, r.cfg.Algorithm, r.cfg.Bits)
	if err != nil {
		return false, keyCreationFailed(err)
	}

	wrapped, err := r.keyManager.WrapKey(masterKey, key)
	if err != nil {
		key.Zero()
		return false, keyCreationFailed(err)
	}

	dataKey := &keyringDomain.DataKey{
		ID:           uuid.Must(uuid.NewV7()),
		Version:      version,
		Algorithm:    key.Algorithm,
		Bits:         key.Bits(),
		MasterKeyID:  wrapped.MasterKeyID,
		EncryptedKey: wrapped.EncryptedKey,
		Nonce:        wrapped.Nonce,
		CreatedAt:    r.now().UTC(),
	}

	if err := r.repo.Create(ctx, dataKey); err != nil {
		key.Zero()
		if !errors.Is(err, keyringDomain.ErrKeyAlreadyExists) {
			return false, keyCreationFailed(err)
		}

		winner, err := r.repo.GetByVersion(ctx, version)
		if err != nil {
			return false, keyCreationFailed(err)
		}
		return false, r.cacheDataKey(winner)
	}

	r.store(key)
	r.logger.Info("key created",
		slog.String("version", version),
		slog.String("algorithm", string(dataKey.Algorithm)),
		slog.Int("bits", dataKey.Bits),
		slog.String("master_key_id", dataKey.MasterKeyID),
	)
	return true, nil
}

func (r *keyRegistry) cacheDataKey(dataKey *keyringDomain.DataKey) error {
	key, err := r.unwrap(dataKey)
	if err != nil {
		return err
	}
	r.store(key)
	return nil
}

func (r *keyRegistry) unwrap(dataKey *keyringDomain.DataKey) (cryptoDomain.SymmetricKey, error) {
	masterKey, ok := r.masterKeyChain.Get(dataKey.MasterKeyID)
	if !ok {
		return cryptoDomain.SymmetricKey{}, fmt.Errorf(
			"%w: %s (key version %s)",
			cryptoDomain.ErrMasterKeyNotFound,
			dataKey.MasterKeyID,
			dataKey.Version,
		)
	}

	key, err := r.keyManager.UnwrapKey(
		masterKey,
		dataKey.Version,
		dataKey.Algorithm,
		cryptoService.WrappedKey{
			MasterKeyID:  dataKey.MasterKeyID,
			EncryptedKey: dataKey.EncryptedKey,
			Nonce:        dataKey.Nonce,
		},
	)
	if err != nil {
		return cryptoDomain.SymmetricKey{}, fmt.Errorf("failed to unwrap key version %s: %w", dataKey.Version, err)
	}
	return key, nil
}

// store moves key into the cache and wipes the source. The first stored copy
// of a version wins.
func (r *keyRegistry) store(key cryptoDomain.SymmetricKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache[key.Version]; ok {
		key.Zero()
		return
	}
	r.cache[key.Version] = &cachedKey{
		algorithm: key.Algorithm,
		enclave:   memguard.NewEnclave(key.Key),
	}
}

func (r *keyRegistry) cached(version string) (cryptoDomain.SymmetricKey, bool, error) {
	r.mu.RLock()
	entry, ok := r.cache[version]
	r.mu.RUnlock()
	if !ok {
		return cryptoDomain.SymmetricKey{}, false, nil
	}

	buf, err := entry.enclave.Open()
	if err != nil {
		return cryptoDomain.SymmetricKey{}, false, fmt.Errorf("failed to open cached key %s: %w", version, err)
	}
	defer buf.Destroy()

	key := make([]byte, buf.Size())
	copy(key, buf.Bytes())
	return cryptoDomain.SymmetricKey{Version: version, Algorithm: entry.algorithm, Key: key}, true, nil
}

func keyCreationFailed(err error) error {
	return fmt.Errorf("%w: %v", keyringDomain.ErrKeyCreationFailed, err)
}
