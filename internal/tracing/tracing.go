// Package tracing wires a local-only OpenTelemetry tracer provider around
// the hot ingestion path (watcher read -> parse -> redact -> validate ->
// enqueue) and around backfill/export/merge runs. No network exporter is
// ever configured: per the Non-goal "no real-time streaming to remote
// consumers", spans stay on-box for local diagnostics (e.g. a future
// stdout/file exporter), never shipped to a collector.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the module-wide tracer name.
const Tracer = "contrail"

// Setup installs a local tracer provider (no exporter) and returns a
// shutdown function. When enabled is false, a no-op provider is installed
// instead so call sites pay no cost.
func Setup(enabled bool) func(context.Context) error {
	if !enabled {
		otel.SetTracerProvider(trace.NewNoopTracerProvider())
		return func(context.Context) error { return nil }
	}
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// Start begins a span named name under the module tracer.
func Start(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(Tracer).Start(ctx, name)
}
