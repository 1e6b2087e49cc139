package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
	"github.com/allisson/envelope/internal/metrics"
)

const metricsDomain = "keyring"

// keyUseCaseWithMetrics decorates KeyUseCase with metrics instrumentation.
type keyUseCaseWithMetrics struct {
	next    KeyUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyUseCaseWithMetrics wraps a KeyUseCase with metrics recording.
func NewKeyUseCaseWithMetrics(useCase KeyUseCase, m metrics.BusinessMetrics) KeyUseCase {
	return &keyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (k *keyUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	k.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	k.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// CurrentKey records metrics for current key resolution.
func (k *keyUseCaseWithMetrics) CurrentKey(ctx context.Context) (cryptoDomain.SymmetricKey, error) {
	start := time.Now()
	key, err := k.next.CurrentKey(ctx)
	k.record(ctx, "key_current", start, err)
	return key, err
}

// KeyByVersion records metrics for key lookups.
func (k *keyUseCaseWithMetrics) KeyByVersion(ctx context.Context, version string) (cryptoDomain.SymmetricKey, error) {
	start := time.Now()
	key, err := k.next.KeyByVersion(ctx, version)
	k.record(ctx, "key_lookup", start, err)
	return key, err
}

// GetOrCreateKey records metrics for idempotent key creation.
func (k *keyUseCaseWithMetrics) GetOrCreateKey(
	ctx context.Context,
	version string,
) (cryptoDomain.SymmetricKey, error) {
	start := time.Now()
	key, err := k.next.GetOrCreateKey(ctx, version)
	k.record(ctx, "key_get_or_create", start, err)
	return key, err
}

// AllVersions records metrics for version listing.
func (k *keyUseCaseWithMetrics) AllVersions(ctx context.Context) ([]string, error) {
	start := time.Now()
	versions, err := k.next.AllVersions(ctx)
	k.record(ctx, "key_versions", start, err)
	return versions, err
}

// Create records metrics for key creation.
func (k *keyUseCaseWithMetrics) Create(
	ctx context.Context,
	version string,
) (*keyringDomain.KeyInfo, bool, error) {
	start := time.Now()
	info, created, err := k.next.Create(ctx, version)
	k.record(ctx, "key_create", start, err)
	return info, created, err
}

// Rotate records metrics for key rotation, labelling success with the new version.
func (k *keyUseCaseWithMetrics) Rotate(ctx context.Context, version string) (*keyringDomain.KeyInfo, error) {
	start := time.Now()
	info, err := k.next.Rotate(ctx, version)
	k.record(ctx, "key_rotate", start, err)
	if err == nil {
		k.metrics.RecordKeyVersion(ctx, metricsDomain, "key_rotate", info.Version)
	}
	return info, err
}

// ListKeys records metrics for key listing.
func (k *keyUseCaseWithMetrics) ListKeys(ctx context.Context) ([]*keyringDomain.KeyInfo, error) {
	start := time.Now()
	infos, err := k.next.ListKeys(ctx)
	k.record(ctx, "key_list", start, err)
	return infos, err
}

// Rewrap records metrics for master key re-wrapping.
func (k *keyUseCaseWithMetrics) Rewrap(ctx context.Context, batchSize int) (int, error) {
	start := time.Now()
	count, err := k.next.Rewrap(ctx, batchSize)
	k.record(ctx, "key_rewrap", start, err)
	return count, err
}
