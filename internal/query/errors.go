package query

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrSyntax       = errors.New("syntax error")
	ErrSemantic     = errors.New("semantic error")
	ErrNotSupported = errors.New("not supported")
)

// Pre-defined messages for fixed failure cases
var (
	errEmptyExpression      = errors.New("expression must not be empty")
	errEmptySearch          = errors.New("search expression must not be empty")
	errFilterNotBoolean     = errors.New("filter expression must be of type Edm.Boolean")
	errOrderByNotPrimitive  = errors.New("orderby expression must be a single-valued primitive or enum value")
	errComputeNotPrimitive  = errors.New("compute expression must be a primitive, enum or type definition value")
	errLambdaNotBoolean     = errors.New("lambda predicate must be of type Edm.Boolean")
	errConcatNeedsTwo       = errors.New("concat requires at least two sequences")
	errExpressionTooDeep    = errors.New("expression nesting exceeds the maximum depth")
	errInListTooLarge       = errors.New("'in' list exceeds the maximum number of items")
	errGroupingNotSingle    = errors.New("grouping paths must be single-valued")
	errBottomTopCountInt    = errors.New("the count of topcount and bottomcount must be an integer")
	errBottomTopNumeric     = errors.New("top/bottom arguments must be numeric")
	errSkipTopNonNegative   = errors.New("skip and top require a non-negative integer")
	errAggregateMethodInput = errors.New("aggregation method cannot be applied to this expression")
)

// SyntaxError reports input that does not match the grammar of a query option.
type SyntaxError struct {
	Option   string
	Token    string
	Pos      int
	Expected []string
	Message  string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	b.WriteString("syntax error")
	if e.Option != "" {
		b.WriteString(" in ")
		b.WriteString(e.Option)
	}
	fmt.Fprintf(&b, " at position %d", e.Pos)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
		return b.String()
	}
	if e.Token == "" {
		b.WriteString(": unexpected end of input")
	} else {
		fmt.Fprintf(&b, ": unexpected '%s'", e.Token)
	}
	if len(e.Expected) > 0 {
		b.WriteString(", expected ")
		if len(e.Expected) > 1 {
			b.WriteString("one of ")
		}
		quoted := make([]string, len(e.Expected))
		for i, exp := range e.Expected {
			quoted[i] = "'" + exp + "'"
		}
		b.WriteString(strings.Join(quoted, ", "))
	}
	return b.String()
}

// Is makes errors.Is(err, ErrSyntax) work for syntax errors.
func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

// SemanticCode classifies semantic errors.
type SemanticCode string

const (
	CodeUnknownProperty    SemanticCode = "UnknownProperty"
	CodeUnknownType        SemanticCode = "UnknownType"
	CodeUnknownEnumMember  SemanticCode = "UnknownEnumMember"
	CodeUnknownFunction    SemanticCode = "UnknownFunction"
	CodeUnknownAggregate   SemanticCode = "UnknownAggregate"
	CodeTypeMismatch       SemanticCode = "TypeMismatch"
	CodeResultType         SemanticCode = "ResultTypeKind"
	CodeArgumentCount      SemanticCode = "ArgumentCount"
	CodeArgumentType       SemanticCode = "ArgumentType"
	CodeUnresolvedAlias    SemanticCode = "UnresolvedAlias"
	CodeAliasCycle         SemanticCode = "AliasCycle"
	CodeDuplicateVariable  SemanticCode = "DuplicateVariable"
	CodeDuplicateAlias     SemanticCode = "DuplicateAlias"
	CodeDuplicateGrouping  SemanticCode = "DuplicateGrouping"
	CodeDuplicateParameter SemanticCode = "DuplicateParameter"
	CodeNotCollection      SemanticCode = "NotCollection"
	CodeNotSingleValued    SemanticCode = "NotSingleValued"
	CodeNotStructured      SemanticCode = "NotStructured"
	CodeLimitExceeded      SemanticCode = "LimitExceeded"
	CodeInvalidArgument    SemanticCode = "InvalidArgument"
)

// SemanticError reports well-formed input that is invalid against the model,
// such as unknown properties or incompatible operand types.
type SemanticError struct {
	Option  string
	Code    SemanticCode
	Message string
	Names   []string
	Types   []string
	Pos     int
	Err     error
}

func (e *SemanticError) Error() string {
	if e.Option == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s at position %d: %s", e.Option, e.Pos, e.Message)
}

// Is makes errors.Is(err, ErrSemantic) work for semantic errors.
func (e *SemanticError) Is(target error) bool {
	return target == ErrSemantic
}

func (e *SemanticError) Unwrap() error {
	return e.Err
}

// NotSupportedError reports a valid construct that this library does not handle.
type NotSupportedError struct {
	Feature string
	Option  string
}

func (e *NotSupportedError) Error() string {
	if e.Option == "" {
		return fmt.Sprintf("%s is not supported", e.Feature)
	}
	return fmt.Sprintf("%s is not supported in %s", e.Feature, e.Option)
}

// Is makes errors.Is(err, ErrNotSupported) work for unsupported features.
func (e *NotSupportedError) Is(target error) bool {
	return target == ErrNotSupported
}

func typeNames(refs ...fmt.Stringer) []string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.String()
	}
	return names
}
