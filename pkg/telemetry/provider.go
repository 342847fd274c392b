// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "hirehive"

// Config holds the configuration for metrics.
type Config struct {
	// MetricsEnabled controls whether metrics are collected and served on /metrics.
	// When false, a no-op meter provider is used.
	MetricsEnabled bool

	// IncludeRuntimeMetrics adds the Go runtime and process collectors to the registry.
	IncludeRuntimeMetrics bool

	// ServiceVersion is reported as the service.version resource attribute.
	ServiceVersion string
}

// DefaultConfig returns a default telemetry configuration.
func DefaultConfig() Config {
	return Config{
		MetricsEnabled:        true,
		IncludeRuntimeMetrics: true,
	}
}

// Provider owns the meter provider and the Prometheus handler.
type Provider struct {
	meterProvider     metric.MeterProvider
	prometheusHandler http.Handler
	shutdown          func(context.Context) error
}

// NewProvider creates a Provider from config.
func NewProvider(config Config) (*Provider, error) {
	if !config.MetricsEnabled {
		return &Provider{
			meterProvider: noop.NewMeterProvider(),
			shutdown:      func(context.Context) error { return nil },
		}, nil
	}

	registry := prometheus.NewRegistry()
	if config.IncludeRuntimeMetrics {
		if err := registry.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("failed to register go collector: %w", err)
		}
		if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, fmt.Errorf("failed to register process collector: %w", err)
		}
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(newResource(config)),
	)

	return &Provider{
		meterProvider:     meterProvider,
		prometheusHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		shutdown:          meterProvider.Shutdown,
	}, nil
}

func newResource(config Config) *resource.Resource {
	attrs := []attribute.KeyValue{attribute.String("service.name", ServiceName)}
	if config.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", config.ServiceVersion))
	}
	return resource.NewSchemaless(attrs...)
}

// MeterProvider returns the meter provider.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}

// PrometheusHandler returns the /metrics handler, or nil when metrics are disabled.
func (p *Provider) PrometheusHandler() http.Handler {
	return p.prometheusHandler
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
