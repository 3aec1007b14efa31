// Package observability wires OpenTelemetry distributed tracing for the
// assistant. Tracing is off by default; Prometheus metrics are always on
// and served by the HTTP server.
package observability

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config configures tracing.
type Config struct {
	// Enabled turns on distributed tracing. Default: false.
	Enabled bool `yaml:"enabled,omitempty"`

	// Exporter is "otlp" (gRPC collector) or "stdout". Default: otlp.
	Exporter string `yaml:"exporter,omitempty"`

	// Endpoint is the OTLP gRPC collector endpoint. Default: localhost:4317.
	Endpoint string `yaml:"endpoint,omitempty"`

	// SamplingRate is the fraction of traces sampled, 0.0-1.0. Default: 1.0.
	SamplingRate float64 `yaml:"sampling_rate,omitempty"`

	// ServiceName identifies this service in traces. Default: canopya.
	ServiceName string `yaml:"service_name,omitempty"`

	// Insecure disables TLS for the collector connection. Default: true.
	Insecure *bool `yaml:"insecure,omitempty"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Exporter == "" {
		c.Exporter = "otlp"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = 1.0
	}
	if c.ServiceName == "" {
		c.ServiceName = "canopya"
	}
	if c.Insecure == nil {
		insecure := true
		c.Insecure = &insecure
	}
}

// Validate checks the tracing configuration.
func (c *Config) Validate() error {
	if c.Exporter != "" && c.Exporter != "otlp" && c.Exporter != "stdout" {
		return fmt.Errorf("invalid trace exporter %q (valid: otlp, stdout)", c.Exporter)
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("sampling_rate must be within [0, 1], got %v", c.SamplingRate)
	}
	return nil
}

// Init installs the global tracer provider and returns its shutdown
// function. When tracing is disabled a no-op provider is installed and
// shutdown does nothing.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	default:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if *cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
