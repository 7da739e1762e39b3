package query

import (
	"github.com/nlstn/go-odata-query/internal/metadata"
)

// DefaultMaxDepth bounds expression nesting when no limit is configured.
const DefaultMaxDepth = 100

// Option names used in error messages.
const (
	OptionFilter  = "$filter"
	OptionOrderBy = "$orderby"
	OptionSearch  = "$search"
	OptionApply   = "$apply"
)

type lambdaVariable struct {
	name string
	typ  metadata.TypeRef
}

// ParseContext carries everything an expression is resolved against.
type ParseContext struct {
	Model *metadata.Model
	// Type is the type the option is evaluated against. It may be nil for
	// cross-join requests.
	Type *TransientType
	// CrossJoin lists the entity sets of a $crossjoin request.
	CrossJoin []string
	// Aliases maps parameter alias names (without '@') to their raw values.
	Aliases       map[string]string
	MaxDepth      int
	MaxInListSize int

	option          string
	allowCollection bool
	variables       []lambdaVariable
	aliasStack      []string
	depth           int
}

// NewParseContext creates a context for the named entity type or entity set.
func NewParseContext(model *metadata.Model, typeName string) (*ParseContext, error) {
	st, ok := model.StructuredType(typeName)
	if !ok {
		if set, isSet := model.EntitySet(typeName); isSet {
			st, ok = model.StructuredType(set.EntityType)
		}
	}
	if !ok {
		return nil, &SemanticError{
			Code:    CodeUnknownType,
			Message: "unknown structured type or entity set " + typeName,
			Names:   []string{typeName},
		}
	}
	return &ParseContext{Model: model, Type: NewTransientType(model, st)}, nil
}

// withOption returns a copy bound to the named option.
func (c *ParseContext) withOption(option string) *ParseContext {
	cp := *c
	cp.option = option
	if cp.MaxDepth <= 0 {
		cp.MaxDepth = DefaultMaxDepth
	}
	return &cp
}

// withType returns a copy evaluated against another transient type.
func (c *ParseContext) withType(t *TransientType) *ParseContext {
	cp := *c
	cp.Type = t
	return &cp
}

// withCollections returns a copy that accepts collection-valued paths, as
// needed for aggregation operands.
func (c *ParseContext) withCollections() *ParseContext {
	cp := *c
	cp.allowCollection = true
	return &cp
}

func (c *ParseContext) lookupVariable(name string) (lambdaVariable, bool) {
	for i := len(c.variables) - 1; i >= 0; i-- {
		if c.variables[i].name == name {
			return c.variables[i], true
		}
	}
	return lambdaVariable{}, false
}

func (c *ParseContext) enter(ts *TokenStream) error {
	c.depth++
	if c.depth > c.MaxDepth {
		return c.semantic(ts.Pos(), CodeLimitExceeded, errExpressionTooDeep.Error(), nil, nil)
	}
	return nil
}

func (c *ParseContext) leave() {
	c.depth--
}

func (c *ParseContext) semantic(pos int, code SemanticCode, message string, names, types []string) *SemanticError {
	return &SemanticError{Option: c.option, Code: code, Message: message, Names: names, Types: types, Pos: pos}
}

func (c *ParseContext) notSupported(feature string) *NotSupportedError {
	return &NotSupportedError{Feature: feature, Option: c.option}
}
