package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
)

// KMSKeeper decrypts master keys sealed by an external key management service.
// *secrets.Keeper from gocloud.dev satisfies it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// MasterKey wraps and unwraps stored data keys. It never encrypts envelopes directly.
type MasterKey struct {
	ID  string
	Key []byte
}

// MasterKeyChain holds every configured master key with one designated active.
//
// New data keys are wrapped with the active key. Older keys stay loaded so
// data keys wrapped before a master key rotation can still be unwrapped.
type MasterKeyChain struct {
	activeID string
	keys     sync.Map
}

// NewMasterKeyChain builds a chain from already decoded keys. The chain keeps
// its own copy of every key.
func NewMasterKeyChain(activeID string, keys ...*MasterKey) (*MasterKeyChain, error) {
	if activeID == "" {
		return nil, ErrActiveMasterKeyIDNotSet
	}

	mkc := &MasterKeyChain{activeID: activeID}
	for _, mk := range keys {
		if len(mk.Key) != MasterKeySize {
			mkc.Close()
			return nil, fmt.Errorf(
				"%w: master key %s must be %d bytes, got %d",
				ErrInvalidKeySize,
				mk.ID,
				MasterKeySize,
				len(mk.Key),
			)
		}
		key := make([]byte, len(mk.Key))
		copy(key, mk.Key)
		mkc.keys.Store(mk.ID, &MasterKey{ID: mk.ID, Key: key})
	}

	if _, ok := mkc.Get(activeID); !ok {
		mkc.Close()
		return nil, fmt.Errorf("%w: ACTIVE_MASTER_KEY_ID=%s", ErrActiveMasterKeyNotFound, activeID)
	}

	return mkc, nil
}

// ActiveMasterKeyID returns the ID of the master key used to wrap new data keys.
func (m *MasterKeyChain) ActiveMasterKeyID() string {
	return m.activeID
}

// Active returns the active master key.
func (m *MasterKeyChain) Active() (*MasterKey, bool) {
	return m.Get(m.activeID)
}

// Get retrieves a master key by ID.
func (m *MasterKeyChain) Get(id string) (*MasterKey, bool) {
	if masterKey, ok := m.keys.Load(id); ok {
		return masterKey.(*MasterKey), ok
	}

	return nil, false
}

// IDs returns the IDs of every loaded master key.
func (m *MasterKeyChain) IDs() []string {
	var ids []string
	m.keys.Range(func(key, _ any) bool {
		ids = append(ids, key.(string))
		return true
	})
	return ids
}

// Close zeroes every master key and empties the chain.
func (m *MasterKeyChain) Close() {
	m.keys.Range(func(_, value any) bool {
		Zero(value.(*MasterKey).Key)
		return true
	})
	m.activeID = ""
	m.keys.Clear()
}

// LoadMasterKeyChain decodes MASTER_KEYS entries and unwraps each one with keeper.
//
// raw is a comma-separated list of "id:base64(kms-ciphertext)" entries, the
// format printed by the create-master-key command. On any error the partially
// built chain is zeroed.
func LoadMasterKeyChain(
	ctx context.Context,
	raw, activeID string,
	keeper KMSKeeper,
) (*MasterKeyChain, error) {
	if raw == "" {
		return nil, ErrMasterKeysNotSet
	}
	if activeID == "" {
		return nil, ErrActiveMasterKeyIDNotSet
	}
	if keeper == nil {
		return nil, ErrKMSKeeperRequired
	}

	var keys []*MasterKey
	defer func() {
		for _, mk := range keys {
			Zero(mk.Key)
		}
	}()

	for part := range strings.SplitSeq(raw, ",") {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 || p[0] == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMasterKeysFormat, part)
		}
		id := p[0]

		ciphertext, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidMasterKeyBase64, id, err)
		}

		key, err := keeper.Decrypt(ctx, ciphertext)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt master key %s with KMS: %w", id, err)
		}
		keys = append(keys, &MasterKey{ID: id, Key: key})
	}

	return NewMasterKeyChain(activeID, keys...)
}
