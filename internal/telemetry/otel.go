// Package telemetry wires OpenTelemetry tracing for the server, worker and CLI.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
)

// DefaultServiceName names the process in exported traces
const DefaultServiceName = "productivity-assistant"

// Options configures tracing
type Options struct {
	Enabled     bool
	ServiceName string
	// Endpoint is the OTLP/HTTP collector host:port
	Endpoint string
}

// Setup installs the global tracer provider and propagator when tracing is
// enabled. The returned shutdown func is always safe to call.
func Setup(ctx context.Context, opts Options) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !opts.Enabled {
		return noop, nil
	}
	if opts.ServiceName == "" {
		opts.ServiceName = DefaultServiceName
	}

	tp, err := InitTracer(ctx, opts.ServiceName, opts.Endpoint)
	if err != nil {
		return noop, err
	}
	return func(ctx context.Context) error { return Shutdown(ctx, tp) }, nil
}

// InitTracer initializes the OpenTelemetry tracer provider
func InitTracer(ctx context.Context, serviceName, endpoint string) (*sdktrace.TracerProvider, error) {
	// Plain HTTP to the collector; TLS is terminated by the collector sidecar
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

// Shutdown flushes and stops the tracer provider
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
