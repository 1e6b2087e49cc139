package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics records what the envelope service and the key registry do.
//
// Besides generic operation counts and latencies it tracks which key versions
// are still in use, so operators can watch old versions drain while envelopes
// are migrated, and how large batches are and how many of their elements fail.
type BusinessMetrics interface {
	// RecordOperation counts one operation, e.g. domain "envelope",
	// operation "envelope_encrypt", status "success" or "error".
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the latency of one operation in seconds.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordKeyVersion counts one envelope sealed or opened under keyVersion.
	RecordKeyVersion(ctx context.Context, domain, operation, keyVersion string)

	// RecordBatch records the element count of a batch call and how many of
	// its elements failed.
	RecordBatch(ctx context.Context, domain, operation string, size, failed int)
}

type businessMetrics struct {
	operationCounter  metric.Int64Counter
	durationHisto     metric.Float64Histogram
	keyVersionCounter metric.Int64Counter
	batchSizeHisto    metric.Int64Histogram
	batchFailures     metric.Int64Counter
}

// NewBusinessMetrics creates the instruments under namespace, so that
// namespace "envelope" exposes envelope_operations_total and friends.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of envelope and key registry operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of envelope and key registry operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	keyVersionCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_key_version_operations_total", namespace),
		metric.WithDescription("Envelopes sealed or opened, by key version"),
		metric.WithUnit("{envelope}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create key version counter: %w", err)
	}

	batchSizeHisto, err := meter.Int64Histogram(
		fmt.Sprintf("%s_batch_size", namespace),
		metric.WithDescription("Number of envelopes per batch call"),
		metric.WithUnit("{envelope}"),
		metric.WithExplicitBucketBoundaries(1, 10, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch size histogram: %w", err)
	}

	batchFailures, err := meter.Int64Counter(
		fmt.Sprintf("%s_batch_failed_elements_total", namespace),
		metric.WithDescription("Batch elements that could not be processed"),
		metric.WithUnit("{envelope}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch failure counter: %w", err)
	}

	return &businessMetrics{
		operationCounter:  operationCounter,
		durationHisto:     durationHisto,
		keyVersionCounter: keyVersionCounter,
		batchSizeHisto:    batchSizeHisto,
		batchFailures:     batchFailures,
	}, nil
}

func operationAttributes(domain, operation string, extra ...attribute.KeyValue) metric.MeasurementOption {
	attrs := append([]attribute.KeyValue{
		attribute.String("domain", domain),
		attribute.String("operation", operation),
	}, extra...)
	return metric.WithAttributes(attrs...)
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1, operationAttributes(domain, operation, attribute.String("status", status)))
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		operationAttributes(domain, operation, attribute.String("status", status)))
}

func (b *businessMetrics) RecordKeyVersion(ctx context.Context, domain, operation, keyVersion string) {
	b.keyVersionCounter.Add(ctx, 1,
		operationAttributes(domain, operation, attribute.String("key_version", keyVersion)))
}

func (b *businessMetrics) RecordBatch(ctx context.Context, domain, operation string, size, failed int) {
	attrs := operationAttributes(domain, operation)
	b.batchSizeHisto.Record(ctx, int64(size), attrs)
	if failed > 0 {
		b.batchFailures.Add(ctx, int64(failed), attrs)
	}
}

// NoOpBusinessMetrics discards every measurement. It is used when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {}

func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

func (n *NoOpBusinessMetrics) RecordKeyVersion(ctx context.Context, domain, operation, keyVersion string) {}

func (n *NoOpBusinessMetrics) RecordBatch(ctx context.Context, domain, operation string, size, failed int) {}
