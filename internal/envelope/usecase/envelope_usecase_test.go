package usecase_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	cryptoService "github.com/allisson/envelope/internal/crypto/service"
	envelopeDomain "github.com/allisson/envelope/internal/envelope/domain"
	"github.com/allisson/envelope/internal/envelope/usecase"
	usecaseMocks "github.com/allisson/envelope/internal/envelope/usecase/mocks"
	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
)

// memoryRegistry is an in-memory KeyRegistry that counts lookups per version.
type memoryRegistry struct {
	mu      sync.Mutex
	current string
	keys    map[string]cryptoDomain.SymmetricKey
	lookups map[string]int
}

func newMemoryRegistry() *memoryRegistry {
	return &memoryRegistry{
		keys:    make(map[string]cryptoDomain.SymmetricKey),
		lookups: make(map[string]int),
	}
}

// add registers a new version, which becomes current.
func (r *memoryRegistry) add(t *testing.T, version string, alg cryptoDomain.Algorithm) cryptoDomain.SymmetricKey {
	t.Helper()
	key := newTestKey(t, version, alg)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[version] = key
	r.current = version
	return key
}

func (r *memoryRegistry) lookupCount(version string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups[version]
}

func (r *memoryRegistry) CurrentKey(ctx context.Context) (cryptoDomain.SymmetricKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == "" {
		return cryptoDomain.SymmetricKey{}, keyringDomain.ErrNoCurrentKey
	}
	return r.keys[r.current].Clone(), nil
}

func (r *memoryRegistry) KeyByVersion(ctx context.Context, version string) (cryptoDomain.SymmetricKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups[version]++
	key, ok := r.keys[version]
	if !ok {
		return cryptoDomain.SymmetricKey{}, keyringDomain.ErrUnknownKeyVersion
	}
	return key.Clone(), nil
}

func newTestKey(t *testing.T, version string, alg cryptoDomain.Algorithm) cryptoDomain.SymmetricKey {
	t.Helper()
	material := make([]byte, 32)
	_, err := rand.Read(material)
	require.NoError(t, err)

	key, err := cryptoDomain.NewSymmetricKey(version, alg, material)
	require.NoError(t, err)
	return key
}

func newTestUseCase(registry usecase.KeyRegistry) usecase.EnvelopeUseCase {
	codec := cryptoService.NewAeadCodec(cryptoService.NewAEADManager())
	return usecase.NewEnvelopeUseCase(registry, codec, usecase.Config{BatchConcurrency: 4, BatchMaxSize: 100})
}

func TestEnvelopeUseCase_EncryptDecrypt(t *testing.T) {
	ctx := context.Background()

	for _, alg := range []cryptoDomain.Algorithm{cryptoDomain.AESGCM, cryptoDomain.ChaCha20} {
		t.Run("Success_RoundTrip_"+string(alg), func(t *testing.T) {
			registry := newMemoryRegistry()
			registry.add(t, "v1", alg)
			uc := newTestUseCase(registry)

			envelope, err := uc.Encrypt(ctx, []byte("attack at dawn"))
			require.NoError(t, err)

			assert.Equal(t, "v1", envelope.KeyVersion)
			assert.Len(t, envelope.IV, cryptoDomain.NonceSize)
			assert.Len(t, envelope.Ciphertext, len("attack at dawn")+cryptoDomain.TagSize)
			assert.NotContains(t, string(envelope.Ciphertext), "attack at dawn")

			plaintext, err := uc.Decrypt(ctx, envelope)
			require.NoError(t, err)
			assert.Equal(t, []byte("attack at dawn"), plaintext)
		})
	}

	t.Run("Success_EmptyPlaintext", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelope, err := uc.Encrypt(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, envelope.Ciphertext, cryptoDomain.TagSize)

		plaintext, err := uc.Decrypt(ctx, envelope)
		require.NoError(t, err)
		assert.Empty(t, plaintext)
	})

	t.Run("Success_SerializedEnvelopeDecrypts", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelope, err := uc.Encrypt(ctx, []byte("payload"))
		require.NoError(t, err)

		parsed, err := envelopeDomain.ParseEnvelope(envelope.String())
		require.NoError(t, err)

		plaintext, err := uc.Decrypt(ctx, parsed)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), plaintext)
	})

	t.Run("Success_OldVersionStillDecryptsAfterRotation", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		old, err := uc.Encrypt(ctx, []byte("old data"))
		require.NoError(t, err)

		registry.add(t, "v2", cryptoDomain.ChaCha20)
		fresh, err := uc.Encrypt(ctx, []byte("new data"))
		require.NoError(t, err)
		assert.Equal(t, "v2", fresh.KeyVersion)

		plaintext, err := uc.Decrypt(ctx, old)
		require.NoError(t, err)
		assert.Equal(t, []byte("old data"), plaintext)
	})

	t.Run("Error_NoCurrentKey", func(t *testing.T) {
		uc := newTestUseCase(newMemoryRegistry())

		_, err := uc.Encrypt(ctx, []byte("data"))
		assert.ErrorIs(t, err, keyringDomain.ErrNoCurrentKey)
	})

	t.Run("Error_UnknownVersion", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelope, err := uc.Encrypt(ctx, []byte("data"))
		require.NoError(t, err)
		envelope.KeyVersion = "v9"

		plaintext, err := uc.Decrypt(ctx, envelope)
		assert.ErrorIs(t, err, keyringDomain.ErrUnknownKeyVersion)
		assert.Nil(t, plaintext)
	})

	t.Run("Error_MalformedEnvelopeNeverResolvesKey", func(t *testing.T) {
		registry := &usecaseMocks.MockKeyRegistry{}
		uc := newTestUseCase(registry)

		_, err := uc.Decrypt(ctx, &envelopeDomain.Envelope{
			Ciphertext: make([]byte, 32),
			IV:         make([]byte, 8),
			KeyVersion: "v1",
		})

		assert.ErrorIs(t, err, envelopeDomain.ErrMalformedEnvelope)
		registry.AssertNotCalled(t, "KeyByVersion", mock.Anything, mock.Anything)
	})

	t.Run("Error_RegistryFailureIsReturned", func(t *testing.T) {
		registry := &usecaseMocks.MockKeyRegistry{}
		uc := newTestUseCase(registry)
		registry.On("CurrentKey", ctx).
			Return(cryptoDomain.SymmetricKey{}, keyringDomain.ErrKeyCreationFailed).
			Once()

		envelope, err := uc.Encrypt(ctx, []byte("data"))

		assert.ErrorIs(t, err, keyringDomain.ErrKeyCreationFailed)
		assert.Nil(t, envelope)
		registry.AssertExpectations(t)
	})
}

func TestEnvelopeUseCase_EncryptWithVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_UsesNamedVersion", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		registry.add(t, "v2", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelope, err := uc.EncryptWithVersion(ctx, []byte("data"), "v1")
		require.NoError(t, err)
		assert.Equal(t, "v1", envelope.KeyVersion)

		plaintext, err := uc.Decrypt(ctx, envelope)
		require.NoError(t, err)
		assert.Equal(t, []byte("data"), plaintext)
	})

	t.Run("Error_UnknownVersionIsNotCreated", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		_, err := uc.EncryptWithVersion(ctx, []byte("data"), "v2")
		assert.ErrorIs(t, err, keyringDomain.ErrUnknownKeyVersion)

		_, err = registry.KeyByVersion(ctx, "v2")
		assert.ErrorIs(t, err, keyringDomain.ErrUnknownKeyVersion)
	})
}

func TestEnvelopeUseCase_HelloMigrationScenario(t *testing.T) {
	ctx := context.Background()
	registry := newMemoryRegistry()
	registry.add(t, "2024-01", cryptoDomain.AESGCM)
	uc := newTestUseCase(registry)

	e1, err := uc.Encrypt(ctx, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01", e1.KeyVersion)

	plaintext, err := uc.Decrypt(ctx, e1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), plaintext)

	registry.add(t, "2024-02", cryptoDomain.AESGCM)
	e1Copy := *e1

	e2, err := uc.ReEncryptWithNewKey(ctx, e1, "2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02", e2.KeyVersion)
	assert.Equal(t, e1Copy, *e1, "the source envelope is never modified")

	plaintext, err = uc.Decrypt(ctx, e2)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), plaintext)

	plaintext, err = uc.Decrypt(ctx, e1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), plaintext)
}

func TestEnvelopeUseCase_ReEncryptWithNewKey(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_SameVersionGetsFreshNonce", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelope, err := uc.Encrypt(ctx, []byte("data"))
		require.NoError(t, err)

		moved, err := uc.ReEncryptWithNewKey(ctx, envelope, "v1")
		require.NoError(t, err)
		assert.Equal(t, "v1", moved.KeyVersion)
		assert.NotEqual(t, envelope.IV, moved.IV)
	})

	t.Run("Error_UnknownTarget", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelope, err := uc.Encrypt(ctx, []byte("data"))
		require.NoError(t, err)

		moved, err := uc.ReEncryptWithNewKey(ctx, envelope, "v2")
		assert.ErrorIs(t, err, keyringDomain.ErrUnknownKeyVersion)
		assert.Nil(t, moved)
	})

	t.Run("Error_TamperedSource", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		registry.add(t, "v2", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelope, err := uc.EncryptWithVersion(ctx, []byte("data"), "v1")
		require.NoError(t, err)
		envelope.Ciphertext[0] ^= 0x01

		_, err = uc.ReEncryptWithNewKey(ctx, envelope, "v2")
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)
	})
}

func TestEnvelopeUseCase_NonceUniqueness(t *testing.T) {
	ctx := context.Background()
	registry := newMemoryRegistry()
	registry.add(t, "v1", cryptoDomain.AESGCM)
	uc := newTestUseCase(registry)

	seen := make(map[string]struct{})
	var mu sync.Mutex
	record := func(iv []byte) {
		mu.Lock()
		defer mu.Unlock()
		_, dup := seen[string(iv)]
		assert.False(t, dup, "nonce reused")
		seen[string(iv)] = struct{}{}
	}

	for range 1000 {
		envelope, err := uc.Encrypt(ctx, []byte("same plaintext"))
		require.NoError(t, err)
		record(envelope.IV)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 250 {
				envelope, err := uc.Encrypt(ctx, []byte("same plaintext"))
				if !assert.NoError(t, err) {
					return
				}
				record(envelope.IV)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 3000)
}

func TestEnvelopeUseCase_TamperDetection(t *testing.T) {
	ctx := context.Background()
	registry := newMemoryRegistry()
	registry.add(t, "v1", cryptoDomain.AESGCM)
	registry.add(t, "v2", cryptoDomain.AESGCM)
	uc := newTestUseCase(registry)

	envelope, err := uc.EncryptWithVersion(ctx, []byte("hi"), "v1")
	require.NoError(t, err)

	t.Run("Error_AnyCiphertextBit", func(t *testing.T) {
		for i := range len(envelope.Ciphertext) * 8 {
			tampered := *envelope
			tampered.Ciphertext = bytes.Clone(envelope.Ciphertext)
			tampered.Ciphertext[i/8] ^= 1 << (i % 8)

			plaintext, err := uc.Decrypt(ctx, &tampered)
			require.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed, "bit %d", i)
			require.Nil(t, plaintext)
		}
	})

	t.Run("Error_AnyIVBit", func(t *testing.T) {
		for i := range len(envelope.IV) * 8 {
			tampered := *envelope
			tampered.IV = bytes.Clone(envelope.IV)
			tampered.IV[i/8] ^= 1 << (i % 8)

			plaintext, err := uc.Decrypt(ctx, &tampered)
			require.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed, "bit %d", i)
			require.Nil(t, plaintext)
		}
	})

	t.Run("Error_RelabeledVersion", func(t *testing.T) {
		tampered := *envelope
		tampered.KeyVersion = "v2"

		_, err := uc.Decrypt(ctx, &tampered)
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)
	})

	t.Run("Success_OriginalStillDecrypts", func(t *testing.T) {
		plaintext, err := uc.Decrypt(ctx, envelope)
		require.NoError(t, err)
		assert.Equal(t, []byte("hi"), plaintext)
	})
}

// encryptMixed encrypts payloads alternating between versions and returns the
// envelopes with their expected plaintexts.
func encryptMixed(
	t *testing.T,
	uc usecase.EnvelopeUseCase,
	versions []string,
	n int,
) ([]*envelopeDomain.Envelope, [][]byte) {
	t.Helper()
	envelopes := make([]*envelopeDomain.Envelope, 0, n)
	plaintexts := make([][]byte, 0, n)
	for i := range n {
		plaintext := []byte(fmt.Sprintf("payload-%d", i))
		envelope, err := uc.EncryptWithVersion(context.Background(), plaintext, versions[i%len(versions)])
		require.NoError(t, err)
		envelopes = append(envelopes, envelope)
		plaintexts = append(plaintexts, plaintext)
	}
	return envelopes, plaintexts
}

func TestEnvelopeUseCase_DecryptBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_MixedVersionsWithDuplicates", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		registry.add(t, "v2", cryptoDomain.ChaCha20)
		registry.add(t, "v3", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelopes, expected := encryptMixed(t, uc, []string{"v1", "v2", "v3"}, 12)
		envelopes = append(envelopes, envelopes[4], envelopes[0], envelopes[4])
		expected = append(expected, expected[4], expected[0], expected[4])

		before := map[string]int{}
		for _, v := range []string{"v1", "v2", "v3"} {
			before[v] = registry.lookupCount(v)
		}

		plaintexts, err := uc.DecryptBatch(ctx, envelopes)
		require.NoError(t, err)
		assert.Equal(t, expected, plaintexts)

		for _, v := range []string{"v1", "v2", "v3"} {
			assert.Equal(t, 1, registry.lookupCount(v)-before[v], "version %s resolved once", v)
		}

		for i, envelope := range envelopes {
			single, err := uc.Decrypt(ctx, envelope)
			require.NoError(t, err)
			assert.Equal(t, single, plaintexts[i])
		}
	})

	t.Run("Success_EmptyBatch", func(t *testing.T) {
		uc := newTestUseCase(newMemoryRegistry())

		plaintexts, err := uc.DecryptBatch(ctx, nil)
		require.NoError(t, err)
		assert.NotNil(t, plaintexts)
		assert.Empty(t, plaintexts)
	})

	t.Run("Error_AuthenticationFailureFailsWholeBatch", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		registry.add(t, "v2", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelopes, _ := encryptMixed(t, uc, []string{"v1", "v2"}, 6)
		envelopes[3].Ciphertext[0] ^= 0xff

		plaintexts, err := uc.DecryptBatch(ctx, envelopes)

		assert.Nil(t, plaintexts)
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)
		var batchErr *envelopeDomain.BatchError
		require.True(t, errors.As(err, &batchErr))
		assert.Equal(t, 3, batchErr.Index)
	})

	t.Run("Error_UnknownVersionReportsIndex", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelopes, _ := encryptMixed(t, uc, []string{"v1"}, 4)
		envelopes[2].KeyVersion = "gone"

		_, err := uc.DecryptBatch(ctx, envelopes)

		assert.ErrorIs(t, err, keyringDomain.ErrUnknownKeyVersion)
		var batchErr *envelopeDomain.BatchError
		require.True(t, errors.As(err, &batchErr))
		assert.Equal(t, 2, batchErr.Index)
	})

	t.Run("Error_MalformedElementRejectedBeforeLookup", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelopes, _ := encryptMixed(t, uc, []string{"v1"}, 3)
		envelopes[1] = &envelopeDomain.Envelope{Ciphertext: []byte("short"), IV: envelopes[1].IV, KeyVersion: "v1"}
		before := registry.lookupCount("v1")

		_, err := uc.DecryptBatch(ctx, envelopes)

		assert.ErrorIs(t, err, envelopeDomain.ErrMalformedEnvelope)
		var batchErr *envelopeDomain.BatchError
		require.True(t, errors.As(err, &batchErr))
		assert.Equal(t, 1, batchErr.Index)
		assert.Equal(t, before, registry.lookupCount("v1"))
	})

	t.Run("Error_BatchTooLarge", func(t *testing.T) {
		registry := newMemoryRegistry()
		codec := cryptoService.NewAeadCodec(cryptoService.NewAEADManager())
		uc := usecase.NewEnvelopeUseCase(registry, codec, usecase.Config{BatchMaxSize: 2})

		_, err := uc.DecryptBatch(ctx, make([]*envelopeDomain.Envelope, 3))
		assert.ErrorIs(t, err, envelopeDomain.ErrBatchTooLarge)
	})

	t.Run("Error_CancelledContext", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)
		envelopes, _ := encryptMixed(t, uc, []string{"v1"}, 3)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		plaintexts, err := uc.DecryptBatch(cancelled, envelopes)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, plaintexts)
	})
}

func TestEnvelopeUseCase_ReEncryptBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_PerElementResults", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		registry.add(t, "v2", cryptoDomain.ChaCha20)
		registry.add(t, "v3", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelopes, expected := encryptMixed(t, uc, []string{"v1", "v2"}, 8)
		envelopes[2].Ciphertext[1] ^= 0x01
		envelopes[5] = &envelopeDomain.Envelope{KeyVersion: "v1"}
		envelopes = append(envelopes, envelopes[0])
		expected = append(expected, expected[0])

		results, err := uc.ReEncryptBatch(ctx, envelopes, "v3")
		require.NoError(t, err)
		require.Len(t, results, len(envelopes))

		for i, result := range results {
			switch i {
			case 2:
				assert.ErrorIs(t, result.Err, cryptoDomain.ErrAuthenticationFailed)
				assert.Nil(t, result.Envelope)
			case 5:
				assert.ErrorIs(t, result.Err, envelopeDomain.ErrMalformedEnvelope)
				assert.Nil(t, result.Envelope)
			default:
				require.NoError(t, result.Err, "element %d", i)
				assert.Equal(t, "v3", result.Envelope.KeyVersion)

				plaintext, err := uc.Decrypt(ctx, result.Envelope)
				require.NoError(t, err)
				assert.Equal(t, expected[i], plaintext)
			}
		}
	})

	t.Run("Success_UnknownSourceVersionIsPerElement", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)

		envelopes, _ := encryptMixed(t, uc, []string{"v1"}, 3)
		envelopes[0].KeyVersion = "retired"

		results, err := uc.ReEncryptBatch(ctx, envelopes, "v1")
		require.NoError(t, err)
		assert.ErrorIs(t, results[0].Err, keyringDomain.ErrUnknownKeyVersion)
		assert.NoError(t, results[1].Err)
		assert.NoError(t, results[2].Err)
	})

	t.Run("Success_KeysResolvedOncePerVersion", func(t *testing.T) {
		source := newMemoryRegistry()
		source.add(t, "v1", cryptoDomain.AESGCM)
		source.add(t, "v2", cryptoDomain.AESGCM)
		target := newTestKey(t, "v3", cryptoDomain.AESGCM)
		envelopes, _ := encryptMixed(t, newTestUseCase(source), []string{"v1", "v2"}, 10)

		v1, err := source.KeyByVersion(ctx, "v1")
		require.NoError(t, err)
		v2, err := source.KeyByVersion(ctx, "v2")
		require.NoError(t, err)

		registry := &usecaseMocks.MockKeyRegistry{}
		registry.On("KeyByVersion", mock.Anything, "v3").Return(target, nil).Once()
		registry.On("KeyByVersion", mock.Anything, "v1").Return(v1, nil).Once()
		registry.On("KeyByVersion", mock.Anything, "v2").Return(v2, nil).Once()
		uc := newTestUseCase(registry)

		results, err := uc.ReEncryptBatch(ctx, envelopes, "v3")
		require.NoError(t, err)
		for _, result := range results {
			assert.NoError(t, result.Err)
		}
		registry.AssertExpectations(t)
	})

	t.Run("Error_UnknownTarget", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)
		envelopes, _ := encryptMixed(t, uc, []string{"v1"}, 2)

		results, err := uc.ReEncryptBatch(ctx, envelopes, "v9")
		assert.ErrorIs(t, err, keyringDomain.ErrUnknownKeyVersion)
		assert.Nil(t, results)
	})

	t.Run("Error_CancelledContextPerElement", func(t *testing.T) {
		registry := newMemoryRegistry()
		registry.add(t, "v1", cryptoDomain.AESGCM)
		uc := newTestUseCase(registry)
		envelopes, _ := encryptMixed(t, uc, []string{"v1"}, 2)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		results, err := uc.ReEncryptBatch(cancelled, envelopes, "v1")
		require.NoError(t, err)
		for _, result := range results {
			assert.ErrorIs(t, result.Err, context.Canceled)
		}
	})
}
