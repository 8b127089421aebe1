package observe

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ProviderConfig configures the metrics SDK.
type ProviderConfig struct {
	// ServiceName is reported in the resource. Default: "trendcard".
	ServiceName    string
	ServiceVersion string
}

// Provider owns the installed meter provider and its Prometheus registry.
type Provider struct {
	registry *prometheus.Registry
	mp       *sdkmetric.MeterProvider
}

// InitProvider installs a MeterProvider that exports through a Prometheus
// registry and registers it as the global provider. Call Shutdown on exit.
func InitProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "trendcard"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	exp, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exp),
	)
	otel.SetMeterProvider(mp)

	return &Provider{registry: registry, mp: mp}, nil
}

// Handler serves the registry in the Prometheus text format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// MeterProvider returns the installed provider.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.mp
}

// Shutdown flushes and closes the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.mp.Shutdown(ctx)
}
