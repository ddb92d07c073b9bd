package tracer

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ProviderConfig describes the process-wide tracer provider.
type ProviderConfig struct {
	ServiceName    string
	ServiceVersion string
	// SampleRatio is the fraction of root spans kept, between 0 and 1.
	SampleRatio float64
	// Output receives finished spans as JSON lines.
	Output io.Writer
}

// Provider owns the SDK tracer provider and its exporter.
type Provider struct {
	sdk *sdktrace.TracerProvider
}

// NewProvider installs an SDK tracer provider as the global provider and
// exports batched spans to cfg.Output.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return nil, fmt.Errorf("sample ratio %v outside [0, 1]", cfg.SampleRatio)
	}
	if cfg.Output == nil {
		return nil, fmt.Errorf("trace output is required")
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Output))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return newProvider(cfg, sdktrace.WithBatcher(exporter)), nil
}

func newProvider(cfg ProviderConfig, processor sdktrace.TracerProviderOption) *Provider {
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	sdk := sdktrace.NewTracerProvider(
		processor,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(sdk)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return &Provider{sdk: sdk}
}

// Tracer returns a Tracer backed by this provider.
func (p *Provider) Tracer() Tracer {
	return NewOTel(p.sdk)
}

// Shutdown flushes pending spans. It is safe on a nil provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
