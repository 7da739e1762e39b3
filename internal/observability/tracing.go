package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with query-specific span creation methods.
type Tracer struct {
	tracer         trace.Tracer
	serviceName    string
	serviceVersion string
	recordInput    bool
}

// NewTracer creates a new Tracer using the given TracerProvider. The service
// name and version are attached to every span it starts.
func NewTracer(tp trace.TracerProvider, serviceName, serviceVersion string) *Tracer {
	return &Tracer{
		tracer:         tp.Tracer(TracerName),
		serviceName:    serviceName,
		serviceVersion: serviceVersion,
	}
}

func (t *Tracer) serviceAttributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if t.serviceName != "" {
		attrs = append(attrs, attribute.String(AttrServiceName, t.serviceName))
	}
	if t.serviceVersion != "" {
		attrs = append(attrs, attribute.String(AttrServiceVersion, t.serviceVersion))
	}
	return attrs
}

// StartSpan starts a new span with the given name and attributes.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, span
}

// StartParse starts a span for parsing one system query option against an entity type.
func (t *Tracer) StartParse(ctx context.Context, option, entityType, input string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		QueryOptionAttr(option),
		EntityTypeAttr(entityType),
		attribute.Int(AttrInputLength, len(input)),
	}
	if t.recordInput {
		attrs = append(attrs, QueryInputAttr(input))
	}
	attrs = append(attrs, t.serviceAttributes()...)
	return t.tracer.Start(ctx, SpanParse, trace.WithAttributes(attrs...))
}

// StartTranslate starts a span for translating a parsed option into the query AST.
func (t *Tracer) StartTranslate(ctx context.Context, option string) (context.Context, trace.Span) {
	attrs := append([]attribute.KeyValue{QueryOptionAttr(option)}, t.serviceAttributes()...)
	return t.tracer.Start(ctx, SpanTranslate, trace.WithAttributes(attrs...))
}

// RecordError records an error on the span with its kind.
func (t *Tracer) RecordError(span trace.Span, err error, kind string) {
	if err == nil {
		span.SetAttributes(OutcomeAttr(OutcomeSuccess))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(OutcomeAttr(OutcomeError), ErrorKindAttr(kind))
}

// LoggerWithTrace returns a logger enriched with trace context.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}
	return logger.With(
		slog.String(LogFieldTraceID, span.SpanContext().TraceID().String()),
		slog.String(LogFieldSpanID, span.SpanContext().SpanID().String()),
	)
}
