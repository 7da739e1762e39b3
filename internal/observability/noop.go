package observability

import (
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// NewNoopTracer creates a tracer that does nothing.
func NewNoopTracer() *Tracer {
	return &Tracer{
		tracer: tracenoop.NewTracerProvider().Tracer(""),
	}
}

// NewNoopMetrics creates metrics that do nothing.
func NewNoopMetrics() *Metrics {
	meter := noop.NewMeterProvider().Meter("")
	m := &Metrics{}

	// Note: noop meter never returns errors, but we must check them to satisfy the linter.
	m.parseCount, _ = meter.Int64Counter("odata.query.parse.count")           //nolint:errcheck
	m.parseDuration, _ = meter.Float64Histogram("odata.query.parse.duration") //nolint:errcheck
	m.parseErrors, _ = meter.Int64Counter("odata.query.parse.errors")         //nolint:errcheck

	return m
}
