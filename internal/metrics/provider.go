// Package metrics exposes envelope service and key registry measurements
// through OpenTelemetry, exported in Prometheus format on the metrics server.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Provider owns the meter provider and the private Prometheus registry behind /metrics.
type Provider struct {
	meterProvider *metric.MeterProvider
	exporter      *promexporter.Exporter
	registry      *prometheus.Registry
	registrations []otelmetric.Registration
}

// NewProvider creates a meter provider that exports to a dedicated registry,
// so only the service's own instruments are scraped.
func NewProvider(namespace string) (*Provider, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter for %q: %w", namespace, err)
	}

	return &Provider{
		meterProvider: metric.NewMeterProvider(metric.WithReader(exporter)),
		exporter:      exporter,
		registry:      registry,
	}, nil
}

// Handler serves the registry in Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// MeterProvider returns the OpenTelemetry meter provider for creating meters.
func (p *Provider) MeterProvider() *metric.MeterProvider {
	return p.meterProvider
}

// ObserveKeyVersions exports <namespace>_key_versions, the number of key
// versions in the key store, read through count at scrape time. A failed read
// skips the sample instead of reporting zero.
func (p *Provider) ObserveKeyVersions(namespace string, count func(ctx context.Context) (int, error)) error {
	meter := p.meterProvider.Meter(namespace)

	gauge, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_key_versions", namespace),
		otelmetric.WithDescription("Number of key versions in the key store"),
		otelmetric.WithUnit("{version}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create key versions gauge: %w", err)
	}

	registration, err := meter.RegisterCallback(func(ctx context.Context, o otelmetric.Observer) error {
		n, err := count(ctx)
		if err != nil {
			return nil
		}
		o.ObserveInt64(gauge, int64(n))
		return nil
	}, gauge)
	if err != nil {
		return fmt.Errorf("failed to register key versions callback: %w", err)
	}

	p.registrations = append(p.registrations, registration)
	return nil
}

// Shutdown unregisters scrape callbacks and flushes the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	for _, registration := range p.registrations {
		_ = registration.Unregister()
	}
	p.registrations = nil

	if p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
