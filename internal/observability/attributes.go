// Package observability provides OpenTelemetry-based instrumentation for query option parsing.
//
// It supports distributed tracing, metrics collection, and trace-aware structured logging.
//
// All observability features are opt-in. When not configured, no-op implementations
// are used with zero performance overhead.
package observability

import "go.opentelemetry.io/otel/attribute"

// Instrumentation identity constants
const (
	// TracerName is the instrumentation name for tracing.
	TracerName = "github.com/nlstn/go-odata-query"
	// MeterName is the instrumentation name for metrics.
	MeterName = "github.com/nlstn/go-odata-query"
)

// Span names
const (
	SpanParse     = "odata.query.parse"
	SpanTranslate = "odata.query.translate"
)

// Query semantic attribute keys following OpenTelemetry conventions.
const (
	AttrQueryOption = "odata.query.option"
	AttrQueryInput  = "odata.query.input"
	AttrEntityType  = "odata.entity_type"
	AttrOutcome     = "odata.query.outcome"
	AttrErrorKind   = "odata.error.kind"
	AttrInputLength = "odata.query.input_length"

	AttrServiceName    = "service.name"
	AttrServiceVersion = "service.version"
)

// Outcome values
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Error kinds reported on spans and metrics.
const (
	ErrorKindSyntax       = "syntax"
	ErrorKindSemantic     = "semantic"
	ErrorKindNotSupported = "not_supported"
	ErrorKindValue        = "value"
	ErrorKindOther        = "other"
)

// Log field names for trace correlation.
const (
	LogFieldTraceID = "trace_id"
	LogFieldSpanID  = "span_id"
)

// maxInputAttrLength caps the raw option text recorded on spans.
const maxInputAttrLength = 256

// QueryOptionAttr creates an attribute naming the system query option.
func QueryOptionAttr(option string) attribute.KeyValue {
	return attribute.String(AttrQueryOption, option)
}

// QueryInputAttr creates an attribute holding the raw option text, truncated.
func QueryInputAttr(input string) attribute.KeyValue {
	if len(input) > maxInputAttrLength {
		input = input[:maxInputAttrLength]
	}
	return attribute.String(AttrQueryInput, input)
}

// EntityTypeAttr creates an entity type attribute.
func EntityTypeAttr(name string) attribute.KeyValue {
	return attribute.String(AttrEntityType, name)
}

// OutcomeAttr creates an outcome attribute.
func OutcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// ErrorKindAttr creates an error kind attribute.
func ErrorKindAttr(kind string) attribute.KeyValue {
	return attribute.String(AttrErrorKind, kind)
}
