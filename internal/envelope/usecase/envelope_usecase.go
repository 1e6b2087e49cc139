package usecase

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	cryptoService "github.com/allisson/envelope/internal/crypto/service"
	envelopeDomain "github.com/allisson/envelope/internal/envelope/domain"
)

// Config bounds batch processing.
type Config struct {
	// BatchConcurrency caps the key-version groups processed at once.
	// Zero or less uses GOMAXPROCS.
	BatchConcurrency int

	// BatchMaxSize rejects larger batches with ErrBatchTooLarge. Zero disables the limit.
	BatchMaxSize int
}

type envelopeUseCase struct {
	registry    KeyRegistry
	codec       cryptoService.AeadCodec
	concurrency int
	maxSize     int
}

// batchItem is one batch element paired with its input index.
type batchItem struct {
	index      int
	ciphertext []byte
	nonce      []byte
}

// NewEnvelopeUseCase creates an EnvelopeUseCase resolving keys through registry.
func NewEnvelopeUseCase(registry KeyRegistry, codec cryptoService.AeadCodec, cfg Config) EnvelopeUseCase {
	concurrency := cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	return &envelopeUseCase{
		registry:    registry,
		codec:       codec,
		concurrency: concurrency,
		maxSize:     cfg.BatchMaxSize,
	}
}

// Encrypt seals plaintext under the current key.
func (e *envelopeUseCase) Encrypt(ctx context.Context, plaintext []byte) (*envelopeDomain.Envelope, error) {
	key, err := e.registry.CurrentKey(ctx)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	return e.seal(key, plaintext)
}

// EncryptWithVersion seals plaintext under an existing version.
func (e *envelopeUseCase) EncryptWithVersion(
	ctx context.Context,
	plaintext []byte,
	version string,
) (*envelopeDomain.Envelope, error) {
	key, err := e.registry.KeyByVersion(ctx, version)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	return e.seal(key, plaintext)
}

// Decrypt validates the envelope, resolves its key and opens it.
func (e *envelopeUseCase) Decrypt(ctx context.Context, envelope *envelopeDomain.Envelope) ([]byte, error) {
	ciphertext, nonce, version, err := envelopeDomain.Unwrap(envelope)
	if err != nil {
		return nil, err
	}

	key, err := e.registry.KeyByVersion(ctx, version)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	return e.codec.Open(key, ciphertext, nonce, []byte(version))
}

// DecryptBatch decrypts envelopes grouped by key version. Every envelope is
// validated before any key is resolved.
func (e *envelopeUseCase) DecryptBatch(
	ctx context.Context,
	envelopes []*envelopeDomain.Envelope,
) ([][]byte, error) {
	if err := e.checkBatchSize(len(envelopes)); err != nil {
		return nil, err
	}

	groups, order, err := groupByVersion(envelopes)
	if err != nil {
		return nil, err
	}

	plaintexts := make([][]byte, len(envelopes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, version := range order {
		items := groups[version]
		g.Go(func() error {
			key, err := e.registry.KeyByVersion(gctx, version)
			if err != nil {
				return &envelopeDomain.BatchError{Index: items[0].index, Err: err}
			}
			defer key.Zero()

			aad := []byte(version)
			for _, item := range items {
				if err := gctx.Err(); err != nil {
					return err
				}
				plaintext, err := e.codec.Open(key, item.ciphertext, item.nonce, aad)
				if err != nil {
					return &envelopeDomain.BatchError{Index: item.index, Err: err}
				}
				plaintexts[item.index] = plaintext
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, plaintext := range plaintexts {
			cryptoDomain.Zero(plaintext)
		}
		return nil, err
	}
	return plaintexts, nil
}

// ReEncryptWithNewKey decrypts the envelope and seals the plaintext under
// version. The intermediate plaintext is zeroed before returning.
func (e *envelopeUseCase) ReEncryptWithNewKey(
	ctx context.Context,
	envelope *envelopeDomain.Envelope,
	version string,
) (*envelopeDomain.Envelope, error) {
	plaintext, err := e.Decrypt(ctx, envelope)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(plaintext)

	return e.EncryptWithVersion(ctx, plaintext, version)
}

// ReEncryptBatch migrates envelopes to version. The target key is resolved once
// and each source key once per distinct version.
func (e *envelopeUseCase) ReEncryptBatch(
	ctx context.Context,
	envelopes []*envelopeDomain.Envelope,
	version string,
) ([]envelopeDomain.ReEncryptResult, error) {
	if err := e.checkBatchSize(len(envelopes)); err != nil {
		return nil, err
	}

	target, err := e.registry.KeyByVersion(ctx, version)
	if err != nil {
		return nil, err
	}
	defer target.Zero()

	results := make([]envelopeDomain.ReEncryptResult, len(envelopes))
	groups := make(map[string][]batchItem)
	var order []string
	for i, envelope := range envelopes {
		ciphertext, nonce, sourceVersion, err := envelopeDomain.Unwrap(envelope)
		if err != nil {
			results[i].Err = err
			continue
		}
		if _, ok := groups[sourceVersion]; !ok {
			order = append(order, sourceVersion)
		}
		groups[sourceVersion] = append(groups[sourceVersion], batchItem{
			index:      i,
			ciphertext: ciphertext,
			nonce:      nonce,
		})
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for _, sourceVersion := range order {
		items := groups[sourceVersion]
		g.Go(func() error {
			e.reEncryptGroup(ctx, sourceVersion, items, target, results)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// reEncryptGroup migrates one key-version group, writing only its own indexes of results.
func (e *envelopeUseCase) reEncryptGroup(
	ctx context.Context,
	sourceVersion string,
	items []batchItem,
	target cryptoDomain.SymmetricKey,
	results []envelopeDomain.ReEncryptResult,
) {
	source, err := e.registry.KeyByVersion(ctx, sourceVersion)
	if err != nil {
		for _, item := range items {
			results[item.index].Err = err
		}
		return
	}
	defer source.Zero()

	aad := []byte(sourceVersion)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			results[item.index].Err = err
			continue
		}

		plaintext, err := e.codec.Open(source, item.ciphertext, item.nonce, aad)
		if err != nil {
			results[item.index].Err = err
			continue
		}

		envelope, err := e.seal(target, plaintext)
		cryptoDomain.Zero(plaintext)
		if err != nil {
			results[item.index].Err = err
			continue
		}
		results[item.index].Envelope = envelope
	}
}

func (e *envelopeUseCase) seal(key cryptoDomain.SymmetricKey, plaintext []byte) (*envelopeDomain.Envelope, error) {
	ciphertext, nonce, err := e.codec.Seal(key, plaintext, []byte(key.Version))
	if err != nil {
		return nil, err
	}
	return envelopeDomain.Wrap(ciphertext, nonce, key.Version), nil
}

func (e *envelopeUseCase) checkBatchSize(n int) error {
	if e.maxSize > 0 && n > e.maxSize {
		return fmt.Errorf("%w: %d envelopes, limit is %d", envelopeDomain.ErrBatchTooLarge, n, e.maxSize)
	}
	return nil
}

// groupByVersion validates every envelope and groups them by key version in
// order of first appearance. The first malformed envelope is reported as a *BatchError.
func groupByVersion(envelopes []*envelopeDomain.Envelope) (map[string][]batchItem, []string, error) {
	groups := make(map[string][]batchItem)
	var order []string

	for i, envelope := range envelopes {
		ciphertext, nonce, version, err := envelopeDomain.Unwrap(envelope)
		if err != nil {
			return nil, nil, &envelopeDomain.BatchError{Index: i, Err: err}
		}
		if _, ok := groups[version]; !ok {
			order = append(order, version)
		}
		groups[version] = append(groups[version], batchItem{index: i, ciphertext: ciphertext, nonce: nonce})
	}
	return groups, order, nil
}
