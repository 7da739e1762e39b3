package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(
		WithServiceName("test-service"),
		WithServiceVersion("1.2.3"),
		WithInputRecording(),
	)

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected service name 'test-service', got '%s'", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "1.2.3" {
		t.Errorf("expected service version '1.2.3', got '%s'", cfg.ServiceVersion)
	}
	if !cfg.RecordInput {
		t.Error("expected input recording to be enabled")
	}
	if err := cfg.Initialize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tracer().serviceVersion != "" {
		t.Error("expected noop tracer without a tracer provider")
	}

	cfg = NewConfig(WithTracerProvider(tracenoop.NewTracerProvider()), WithServiceVersion("1.2.3"))
	if err := cfg.Initialize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tracer().serviceVersion != "1.2.3" {
		t.Errorf("expected tracer service version '1.2.3', got '%s'", cfg.Tracer().serviceVersion)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.ServiceName != "odata-query" {
		t.Errorf("expected default service name 'odata-query', got '%s'", cfg.ServiceName)
	}
	if cfg.RecordInput {
		t.Error("expected input recording to be disabled by default")
	}
}

func TestConfigInitialize(t *testing.T) {
	tp := tracenoop.NewTracerProvider()
	mp := noop.NewMeterProvider()

	cfg := NewConfig(
		WithTracerProvider(tp),
		WithMeterProvider(mp),
		WithServiceName("test-service"),
		WithInputRecording(),
	)

	err := cfg.Initialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Tracer() == nil {
		t.Error("expected tracer to be initialized")
	}
	if !cfg.Tracer().recordInput {
		t.Error("expected tracer to record input")
	}
	if cfg.Metrics() == nil {
		t.Error("expected metrics to be initialized")
	}
}

func TestConfigInitializeNoProviders(t *testing.T) {
	cfg := NewConfig(WithServiceName("test-service"))

	err := cfg.Initialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should get noop implementations
	if cfg.Tracer() == nil {
		t.Error("expected noop tracer to be returned")
	}
	if cfg.Metrics() == nil {
		t.Error("expected noop metrics to be returned")
	}
}

func TestNilConfig(t *testing.T) {
	var cfg *Config
	if cfg.Tracer() == nil {
		t.Error("expected noop tracer from nil config")
	}
	if cfg.Metrics() == nil {
		t.Error("expected noop metrics from nil config")
	}
	if cfg.IsEnabled() {
		t.Error("expected nil config to not be enabled")
	}
}

func TestNoopTracer(t *testing.T) {
	tracer := NewNoopTracer()

	ctx := context.Background()

	// Test span creation methods don't panic
	ctx, span := tracer.StartSpan(ctx, "test")
	span.End()

	ctx, span = tracer.StartParse(ctx, "$filter", "Sales.Products", "Price gt 5")
	tracer.RecordError(span, nil, "")
	span.End()

	_, span = tracer.StartTranslate(ctx, "$filter")
	tracer.RecordError(span, errors.New("boom"), ErrorKindOther)
	span.End()
}

func TestNoopMetrics(t *testing.T) {
	metrics := NewNoopMetrics()

	ctx := context.Background()

	// Test record methods don't panic
	metrics.RecordParse(ctx, "$filter", time.Millisecond, "")
	metrics.RecordParse(ctx, "$apply", time.Second, ErrorKindSyntax)
}

func TestMetricsWithProvider(t *testing.T) {
	metrics := NewMetrics(noop.NewMeterProvider())
	if metrics.parseCount == nil || metrics.parseDuration == nil || metrics.parseErrors == nil {
		t.Fatal("expected all instruments to be created")
	}
	metrics.RecordParse(context.Background(), "$orderby", 3*time.Millisecond, ErrorKindSemantic)
}

func TestIsEnabled(t *testing.T) {
	// Empty config is not enabled
	cfg := NewConfig()
	if cfg.IsEnabled() {
		t.Error("expected empty config to not be enabled")
	}

	// With tracer provider is enabled
	cfg = NewConfig(WithTracerProvider(tracenoop.NewTracerProvider()))
	if !cfg.IsEnabled() {
		t.Error("expected config with tracer to be enabled")
	}

	// With meter provider is enabled
	cfg = NewConfig(WithMeterProvider(noop.NewMeterProvider()))
	if !cfg.IsEnabled() {
		t.Error("expected config with meter to be enabled")
	}
}

func TestAttributes(t *testing.T) {
	tests := []struct {
		name string
		got  string
		key  string
		want string
	}{
		{"option", QueryOptionAttr("$filter").Value.AsString(), string(QueryOptionAttr("").Key), "$filter"},
		{"entity type", EntityTypeAttr("Sales.Products").Value.AsString(), string(EntityTypeAttr("").Key), "Sales.Products"},
		{"outcome", OutcomeAttr(OutcomeError).Value.AsString(), string(OutcomeAttr("").Key), "error"},
		{"error kind", ErrorKindAttr(ErrorKindNotSupported).Value.AsString(), string(ErrorKindAttr("").Key), "not_supported"},
	}

	keys := map[string]string{
		"option":      AttrQueryOption,
		"entity type": AttrEntityType,
		"outcome":     AttrOutcome,
		"error kind":  AttrErrorKind,
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("value = %q, want %q", tt.got, tt.want)
			}
			if tt.key != keys[tt.name] {
				t.Errorf("key = %q, want %q", tt.key, keys[tt.name])
			}
		})
	}
}

func TestQueryInputAttrTruncates(t *testing.T) {
	short := QueryInputAttr("Name eq 'x'")
	if short.Value.AsString() != "Name eq 'x'" {
		t.Errorf("short input changed: %q", short.Value.AsString())
	}

	long := QueryInputAttr(strings.Repeat("a", maxInputAttrLength+10))
	if len(long.Value.AsString()) != maxInputAttrLength {
		t.Errorf("length = %d, want %d", len(long.Value.AsString()), maxInputAttrLength)
	}
}
