package usecase

import (
	"context"
	"time"

	envelopeDomain "github.com/allisson/envelope/internal/envelope/domain"
	"github.com/allisson/envelope/internal/metrics"
)

const metricsDomain = "envelope"

// envelopeUseCaseWithMetrics decorates EnvelopeUseCase with metrics instrumentation.
type envelopeUseCaseWithMetrics struct {
	next    EnvelopeUseCase
	metrics metrics.BusinessMetrics
}

// NewEnvelopeUseCaseWithMetrics wraps an EnvelopeUseCase with metrics recording.
func NewEnvelopeUseCaseWithMetrics(useCase EnvelopeUseCase, m metrics.BusinessMetrics) EnvelopeUseCase {
	return &envelopeUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (e *envelopeUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	e.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	e.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Encrypt records metrics for encryption under the current key.
func (e *envelopeUseCaseWithMetrics) Encrypt(
	ctx context.Context,
	plaintext []byte,
) (*envelopeDomain.Envelope, error) {
	start := time.Now()
	envelope, err := e.next.Encrypt(ctx, plaintext)
	e.record(ctx, "envelope_encrypt", start, err)
	if err == nil {
		e.metrics.RecordKeyVersion(ctx, metricsDomain, "envelope_encrypt", envelope.KeyVersion)
	}
	return envelope, err
}

// EncryptWithVersion records metrics for encryption under a named version.
func (e *envelopeUseCaseWithMetrics) EncryptWithVersion(
	ctx context.Context,
	plaintext []byte,
	version string,
) (*envelopeDomain.Envelope, error) {
	start := time.Now()
	envelope, err := e.next.EncryptWithVersion(ctx, plaintext, version)
	e.record(ctx, "envelope_encrypt_with_version", start, err)
	if err == nil {
		e.metrics.RecordKeyVersion(ctx, metricsDomain, "envelope_encrypt", envelope.KeyVersion)
	}
	return envelope, err
}

// Decrypt records metrics for decryption. Successful reads are counted per
// source version, which shows how much traffic still depends on old keys.
func (e *envelopeUseCaseWithMetrics) Decrypt(
	ctx context.Context,
	envelope *envelopeDomain.Envelope,
) ([]byte, error) {
	start := time.Now()
	plaintext, err := e.next.Decrypt(ctx, envelope)
	e.record(ctx, "envelope_decrypt", start, err)
	if err == nil {
		e.metrics.RecordKeyVersion(ctx, metricsDomain, "envelope_decrypt", envelope.KeyVersion)
	}
	return plaintext, err
}

// DecryptBatch records metrics for batch decryption.
func (e *envelopeUseCaseWithMetrics) DecryptBatch(
	ctx context.Context,
	envelopes []*envelopeDomain.Envelope,
) ([][]byte, error) {
	start := time.Now()
	plaintexts, err := e.next.DecryptBatch(ctx, envelopes)
	e.record(ctx, "envelope_decrypt_batch", start, err)

	// The batch is all-or-nothing: one failure fails every element.
	failed := 0
	if err != nil {
		failed = len(envelopes)
	}
	e.metrics.RecordBatch(ctx, metricsDomain, "envelope_decrypt_batch", len(envelopes), failed)
	return plaintexts, err
}

// ReEncryptWithNewKey records metrics for single envelope migration.
func (e *envelopeUseCaseWithMetrics) ReEncryptWithNewKey(
	ctx context.Context,
	envelope *envelopeDomain.Envelope,
	version string,
) (*envelopeDomain.Envelope, error) {
	start := time.Now()
	result, err := e.next.ReEncryptWithNewKey(ctx, envelope, version)
	e.record(ctx, "envelope_re_encrypt", start, err)
	if err == nil {
		e.metrics.RecordKeyVersion(ctx, metricsDomain, "envelope_re_encrypt", envelope.KeyVersion)
	}
	return result, err
}

// ReEncryptBatch records metrics for batch migration. Elements that failed
// individually are counted as batch failures, not in the batch status.
func (e *envelopeUseCaseWithMetrics) ReEncryptBatch(
	ctx context.Context,
	envelopes []*envelopeDomain.Envelope,
	version string,
) ([]envelopeDomain.ReEncryptResult, error) {
	start := time.Now()
	results, err := e.next.ReEncryptBatch(ctx, envelopes, version)
	e.record(ctx, "envelope_re_encrypt_batch", start, err)
	if err != nil {
		return results, err
	}

	failed := 0
	for i, result := range results {
		if result.Err != nil {
			failed++
			continue
		}
		e.metrics.RecordKeyVersion(ctx, metricsDomain, "envelope_re_encrypt", envelopes[i].KeyVersion)
	}
	e.metrics.RecordBatch(ctx, metricsDomain, "envelope_re_encrypt_batch", len(envelopes), failed)
	return results, nil
}
