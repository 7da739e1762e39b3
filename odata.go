// Package odata parses OData v4 system query options against an entity data
// model and translates them into a storage-agnostic query AST.
//
// A Parser is created once per model and is safe for concurrent use:
//
//	model, err := odata.LoadModel("model.yaml")
//	if err != nil {
//	    return err
//	}
//	parser := odata.NewParser(model, odata.WithLogger(logger))
//	result, err := parser.Filter(ctx, odata.Target{Type: "Products"}, "Price gt 5 and Name eq 'x'")
package odata

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nlstn/go-odata-query/internal/cqn"
	"github.com/nlstn/go-odata-query/internal/edm"
	"github.com/nlstn/go-odata-query/internal/metadata"
	"github.com/nlstn/go-odata-query/internal/observability"
	"github.com/nlstn/go-odata-query/internal/query"
)

// Target identifies what a query option is evaluated against.
type Target struct {
	// Type is the qualified or unqualified name of an entity type, complex
	// type or entity set. It is empty for cross-join requests.
	Type string
	// Aliases maps parameter alias names (without '@') to their raw values.
	Aliases map[string]string
	// CrossJoin lists the entity sets of a $crossjoin request.
	CrossJoin []string
}

// Parser parses and translates query options for one model.
type Parser struct {
	model         *metadata.Model
	logger        *slog.Logger
	observability *observability.Config
	obsOptions    []observability.Option
	maxDepth      int
	maxInListSize int
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for debug records of parse calls.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObservability adds OpenTelemetry options such as tracer and meter providers.
func WithObservability(opts ...observability.Option) Option {
	return func(p *Parser) {
		p.obsOptions = append(p.obsOptions, opts...)
	}
}

// WithTracerProvider enables tracing of parse and translate calls.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return WithObservability(observability.WithTracerProvider(tp))
}

// WithMeterProvider enables parse metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return WithObservability(observability.WithMeterProvider(mp))
}

// WithServiceInfo names the embedding service on spans.
func WithServiceInfo(name, version string) Option {
	return WithObservability(observability.WithServiceName(name), observability.WithServiceVersion(version))
}

// WithMaxExpressionDepth bounds the nesting of expressions. Values <= 0 keep
// the default of 100.
func WithMaxExpressionDepth(depth int) Option {
	return func(p *Parser) {
		p.maxDepth = depth
	}
}

// WithMaxInListSize bounds the number of items of an 'in' list. 0 means unlimited.
func WithMaxInListSize(size int) Option {
	return func(p *Parser) {
		p.maxInListSize = size
	}
}

// NewParser creates a Parser for model.
func NewParser(model *Model, opts ...Option) *Parser {
	p := &Parser{
		model:  model,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.observability = observability.NewConfig(p.obsOptions...)
	if err := p.observability.Initialize(); err != nil {
		p.logger.Warn("observability initialization failed, continuing without instrumentation", "error", err)
		p.observability = nil
	}
	return p
}

// Model returns the model the parser resolves names against.
func (p *Parser) Model() *Model {
	return p.model
}

// FilterResult is a parsed and translated $filter.
type FilterResult struct {
	Expr  Expression
	Where []cqn.Node
}

// OrderByResult is a parsed and translated $orderby.
type OrderByResult struct {
	Items   []OrderByItem
	OrderBy []cqn.OrderBy
}

// SearchResult is a parsed and translated $search. Properties lists the
// properties of the target type a storage layer should match terms against.
type SearchResult struct {
	Expr       *SearchExpression
	Search     []cqn.Node
	Properties []string
}

// ApplyResult is a parsed and translated $apply.
type ApplyResult struct {
	Transformations []Transformation
	Type            *TransientType
	Query           *cqn.ApplyResult
}

// ParseFilter parses a $filter value without translating it.
func (p *Parser) ParseFilter(ctx context.Context, target Target, input string) (Expression, error) {
	var node Expression
	err := p.observe(ctx, query.OptionFilter, target, input, func(pc *query.ParseContext) error {
		var err error
		node, err = query.ParseFilter(input, pc)
		return err
	})
	return node, err
}

// Filter parses a $filter value and translates it into a flat infix condition.
func (p *Parser) Filter(ctx context.Context, target Target, input string) (*FilterResult, error) {
	node, err := p.ParseFilter(ctx, target, input)
	if err != nil {
		return nil, err
	}
	var where cqn.Node
	err = p.translate(ctx, query.OptionFilter, func() error {
		var err error
		where, err = cqn.Translate(node)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &FilterResult{Expr: node, Where: cqn.Tokens(where)}, nil
}

// ParseOrderBy parses a $orderby value without translating it.
func (p *Parser) ParseOrderBy(ctx context.Context, target Target, input string) ([]OrderByItem, error) {
	var items []OrderByItem
	err := p.observe(ctx, query.OptionOrderBy, target, input, func(pc *query.ParseContext) error {
		var err error
		items, err = query.ParseOrderBy(input, pc)
		return err
	})
	return items, err
}

// OrderBy parses and translates a $orderby value.
func (p *Parser) OrderBy(ctx context.Context, target Target, input string) (*OrderByResult, error) {
	items, err := p.ParseOrderBy(ctx, target, input)
	if err != nil {
		return nil, err
	}
	var orderBy []cqn.OrderBy
	err = p.translate(ctx, query.OptionOrderBy, func() error {
		var err error
		orderBy, err = cqn.TranslateOrderBy(items)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &OrderByResult{Items: items, OrderBy: orderBy}, nil
}

// ParseSearch parses a $search value. Search expressions do not depend on
// the model, so no target is needed.
func (p *Parser) ParseSearch(ctx context.Context, input string) (*SearchExpression, error) {
	var expr *SearchExpression
	err := p.observe(ctx, query.OptionSearch, Target{}, input, func(*query.ParseContext) error {
		var err error
		expr, err = query.ParseSearch(input)
		return err
	})
	return expr, err
}

// Search parses and translates a $search value and resolves the searchable
// properties of the target type.
func (p *Parser) Search(ctx context.Context, target Target, input string) (*SearchResult, error) {
	expr, err := p.ParseSearch(ctx, input)
	if err != nil {
		return nil, err
	}
	result := &SearchResult{Expr: expr, Search: cqn.TranslateSearch(expr)}
	if target.Type != "" {
		pc, err := p.parseContext(target)
		if err != nil {
			return nil, err
		}
		result.Properties = query.SearchableProperties(pc.Type)
	}
	return result, nil
}

// ParseApply parses a $apply value without translating it and returns the
// transformations together with the type of the resulting data.
func (p *Parser) ParseApply(ctx context.Context, target Target, input string) ([]Transformation, *TransientType, error) {
	var (
		seq    []Transformation
		result *TransientType
	)
	err := p.observe(ctx, query.OptionApply, target, input, func(pc *query.ParseContext) error {
		var err error
		seq, result, err = query.ParseApply(input, pc)
		return err
	})
	return seq, result, err
}

// Apply parses and translates a $apply value.
func (p *Parser) Apply(ctx context.Context, target Target, input string) (*ApplyResult, error) {
	seq, resultType, err := p.ParseApply(ctx, target, input)
	if err != nil {
		return nil, err
	}
	var translated *cqn.ApplyResult
	err = p.translate(ctx, query.OptionApply, func() error {
		var err error
		translated, err = cqn.TranslateApply(seq)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ApplyResult{Transformations: seq, Type: resultType, Query: translated}, nil
}

// parseContext resolves the target against the model.
func (p *Parser) parseContext(target Target) (*query.ParseContext, error) {
	var pc *query.ParseContext
	if target.Type == "" {
		pc = &query.ParseContext{Model: p.model, CrossJoin: target.CrossJoin}
	} else {
		var err error
		pc, err = query.NewParseContext(p.model, target.Type)
		if err != nil {
			return nil, err
		}
		pc.CrossJoin = target.CrossJoin
	}
	pc.Aliases = target.Aliases
	pc.MaxDepth = p.maxDepth
	pc.MaxInListSize = p.maxInListSize
	return pc, nil
}

// observe runs one parse call inside a span, records its metrics and logs
// the outcome at debug level.
func (p *Parser) observe(ctx context.Context, option string, target Target, input string, parse func(*query.ParseContext) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	typeName := target.Type
	tracer := p.observability.Tracer()
	ctx, span := tracer.StartParse(ctx, option, typeName, input)
	defer span.End()

	start := time.Now()
	err := func() error {
		pc, err := p.parseContext(target)
		if err != nil {
			return err
		}
		return parse(pc)
	}()
	duration := time.Since(start)

	kind := ""
	if err != nil {
		kind = ErrorKind(err)
	}
	tracer.RecordError(span, err, kind)
	p.observability.Metrics().RecordParse(ctx, option, duration, kind)

	logger := observability.LoggerWithTrace(ctx, p.logger)
	if err != nil {
		logger.Debug("query option rejected",
			"option", option,
			"type", typeName,
			"kind", kind,
			"duration", duration,
			"error", err)
		return err
	}
	logger.Debug("query option parsed",
		"option", option,
		"type", typeName,
		"duration", duration)
	return nil
}

// translate runs one translation inside a span.
func (p *Parser) translate(ctx context.Context, option string, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	tracer := p.observability.Tracer()
	ctx, span := tracer.StartTranslate(ctx, option)
	defer span.End()

	err := fn()
	if err != nil {
		var nsErr *query.NotSupportedError
		if errors.As(err, &nsErr) && nsErr.Option == "" {
			nsErr.Option = option
		}
		tracer.RecordError(span, err, ErrorKind(err))
		observability.LoggerWithTrace(ctx, p.logger).Debug("query option not translatable",
			"option", option,
			"error", err)
		return err
	}
	tracer.RecordError(span, nil, "")
	return nil
}

// ErrorKind classifies err for metrics and logs: syntax, semantic,
// not_supported, value or other.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotSupported):
		return observability.ErrorKindNotSupported
	case errors.Is(err, ErrSyntax):
		return observability.ErrorKindSyntax
	case errors.Is(err, ErrSemantic):
		return observability.ErrorKindSemantic
	case errors.Is(err, edm.ErrInvalidValue):
		return observability.ErrorKindValue
	}
	return observability.ErrorKindOther
}
