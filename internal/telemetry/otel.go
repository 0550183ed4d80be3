// Package telemetry wires OpenTelemetry metrics for mcpbridge and exposes them to Prometheus.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Config controls telemetry initialization.
type Config struct {
	ServiceName string
	Enabled     bool
}

// Providers holds the initialized OpenTelemetry providers.
// When telemetry is disabled, Meter is a no-op meter and Shutdown does nothing.
type Providers struct {
	Meter metric.Meter

	meterProvider *sdkmetric.MeterProvider
	serviceName   string
	enabled       bool
}

// Init sets up the OpenTelemetry meter provider backed by a Prometheus exporter.
// The exporter registers with the default Prometheus registry, so metrics are served by promhttp.Handler().
func Init(ctx context.Context, c *Config) (*Providers, error) {
	p := &Providers{
		serviceName: c.ServiceName,
		enabled:     c.Enabled,
	}
	if !c.Enabled {
		p.Meter = noop.NewMeterProvider().Meter(c.ServiceName)
		return p, nil
	}

	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", c.ServiceName))

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(p.meterProvider)
	p.Meter = p.meterProvider.Meter(c.ServiceName)

	return p, nil
}

// IsEnabled reports whether telemetry was initialized with real providers.
func (p *Providers) IsEnabled() bool {
	return p != nil && p.enabled
}

// ServiceName returns the service name reported to OpenTelemetry.
func (p *Providers) ServiceName() string {
	return p.serviceName
}

// Shutdown flushes and stops the providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
