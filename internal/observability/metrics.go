package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the parse metric instruments.
type Metrics struct {
	parseCount    metric.Int64Counter
	parseDuration metric.Float64Histogram
	parseErrors   metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	// Note: errors from meter instrument creation are unlikely in practice
	// and would only occur with invalid parameters. We fall back to an
	// instrument without options so recording never hits a nil instrument.
	var err error

	m.parseCount, err = meter.Int64Counter(
		"odata.query.parse.count",
		metric.WithDescription("Total number of parsed query options"),
		metric.WithUnit("{option}"),
	)
	if err != nil {
		m.parseCount, _ = meter.Int64Counter("odata.query.parse.count")
	}

	m.parseDuration, err = meter.Float64Histogram(
		"odata.query.parse.duration",
		metric.WithDescription("Duration of query option parsing in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.parseDuration, _ = meter.Float64Histogram("odata.query.parse.duration")
	}

	m.parseErrors, err = meter.Int64Counter(
		"odata.query.parse.errors",
		metric.WithDescription("Total number of rejected query options"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.parseErrors, _ = meter.Int64Counter("odata.query.parse.errors")
	}

	return m
}

// RecordParse records one parse call. errorKind is empty for successful calls.
func (m *Metrics) RecordParse(ctx context.Context, option string, duration time.Duration, errorKind string) {
	outcome := OutcomeSuccess
	if errorKind != "" {
		outcome = OutcomeError
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrQueryOption, option),
		attribute.String(AttrOutcome, outcome),
	)
	m.parseCount.Add(ctx, 1, attrs)
	m.parseDuration.Record(ctx, float64(duration.Microseconds())/1000.0, attrs)

	if errorKind != "" {
		m.parseErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String(AttrQueryOption, option),
			attribute.String(AttrErrorKind, errorKind),
		))
	}
}
