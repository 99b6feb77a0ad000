// Package tracing installs the process-wide OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// EnvTrace selects where finished spans are written: "stderr" (or any true
// boolean) for standard error, any other value is a file path appended to.
// Empty or a false boolean leaves tracing off.
const EnvTrace = "OPTASK_TRACE"

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "optask"

// Shutdown flushes pending spans and releases the exporter.
type Shutdown func(context.Context) error

// Setup installs an SDK tracer provider exporting to target and returns its
// shutdown func. With tracing off the global provider is left untouched.
func Setup(target string) (Shutdown, error) {
	w, closeOut, err := openTarget(target)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return func(context.Context) error { return nil }, nil
	}

	tp, err := NewProvider(w)
	if err != nil {
		closeOut()
		return nil, err
	}
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		defer closeOut()
		return tp.Shutdown(ctx)
	}, nil
}

// NewProvider builds a batching provider that writes spans to w as JSON.
func NewProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", ServiceName),
		)),
	), nil
}

func openTarget(target string) (io.Writer, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(target)) {
	case "", "0", "false", "off", "no":
		return nil, noop, nil
	case "stderr", "1", "true", "on", "yes":
		return os.Stderr, noop, nil
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, noop, fmt.Errorf("open trace output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
