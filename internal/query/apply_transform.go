package query

import (
	"github.com/nlstn/go-odata-query/internal/metadata"
)

// ApplyTransformationType names a transformation of $apply.
type ApplyTransformationType string

const (
	ApplyTypeGroupBy        ApplyTransformationType = "groupby"
	ApplyTypeAggregate      ApplyTransformationType = "aggregate"
	ApplyTypeFilter         ApplyTransformationType = "filter"
	ApplyTypeCompute        ApplyTransformationType = "compute"
	ApplyTypeConcat         ApplyTransformationType = "concat"
	ApplyTypeBottomTop      ApplyTransformationType = "bottomtop"
	ApplyTypeCustomFunction ApplyTransformationType = "function"
	ApplyTypeIdentity       ApplyTransformationType = "identity"
	ApplyTypeSearch         ApplyTransformationType = "search"
	ApplyTypeOrderBy        ApplyTransformationType = "orderby"
	ApplyTypeSkip           ApplyTransformationType = "skip"
	ApplyTypeTop            ApplyTransformationType = "top"
	ApplyTypeExpand         ApplyTransformationType = "expand"
)

// Transformation is one step of an $apply pipeline. ResultType is the shape
// of the data after the step.
type Transformation interface {
	Type() ApplyTransformationType
	ResultType() *TransientType
	transformation()
}

type transformationResult struct {
	result *TransientType
}

func (r *transformationResult) ResultType() *TransientType { return r.result }
func (r *transformationResult) transformation()            {}

// AggregationMethod is a standard aggregation method or the qualified name of
// a custom aggregation method.
type AggregationMethod string

const (
	AggregationSum           AggregationMethod = "sum"
	AggregationAvg           AggregationMethod = "average"
	AggregationMin           AggregationMethod = "min"
	AggregationMax           AggregationMethod = "max"
	AggregationCountDistinct AggregationMethod = "countdistinct"
	AggregationCount         AggregationMethod = "$count"
)

// IsStandard reports whether m is one of the built-in methods.
func (m AggregationMethod) IsStandard() bool {
	switch m {
	case AggregationSum, AggregationAvg, AggregationMin, AggregationMax, AggregationCountDistinct, AggregationCount:
		return true
	}
	return false
}

// FromClause is one "from path [with method]" step of an aggregate expression.
type FromClause struct {
	Path   *MemberExpr
	Method AggregationMethod
}

// AggregateExpression is one item of aggregate(). Prefix holds the
// navigation or complex properties the item is nested in, so that
// Sales(Amount with sum as Total) becomes Prefix [Sales].
type AggregateExpression struct {
	Prefix          []string
	Expr            Node
	Method          AggregationMethod
	CustomAggregate string
	Alias           string
	From            []FromClause
	EdmType         metadata.TypeRef
}

// AggregateTransformation is aggregate(...).
type AggregateTransformation struct {
	transformationResult
	Expressions []*AggregateExpression
}

func (*AggregateTransformation) Type() ApplyTransformationType { return ApplyTypeAggregate }

// Rollup is rollup($all|path, path, ...) inside groupby.
type Rollup struct {
	All   bool
	Paths []*MemberExpr
}

// GroupByTransformation is groupby((paths)[, pipeline]).
type GroupByTransformation struct {
	transformationResult
	Properties []*MemberExpr
	Rollups    []*Rollup
	Pipeline   []Transformation
}

func (*GroupByTransformation) Type() ApplyTransformationType { return ApplyTypeGroupBy }

// FilterTransformation is filter(boolCommonExpr).
type FilterTransformation struct {
	transformationResult
	Predicate Node
}

func (*FilterTransformation) Type() ApplyTransformationType { return ApplyTypeFilter }

// ComputeExpression is one "expr as alias" item of compute().
type ComputeExpression struct {
	Expr  Node
	Alias string
}

// ComputeTransformation is compute(...).
type ComputeTransformation struct {
	transformationResult
	Expressions []*ComputeExpression
}

func (*ComputeTransformation) Type() ApplyTransformationType { return ApplyTypeCompute }

// ConcatTransformation is concat(seq, seq, ...).
type ConcatTransformation struct {
	transformationResult
	Sequences [][]Transformation
}

func (*ConcatTransformation) Type() ApplyTransformationType { return ApplyTypeConcat }

// BottomTopMethod is one of the top/bottom transformations.
type BottomTopMethod string

const (
	TopCount      BottomTopMethod = "topcount"
	TopSum        BottomTopMethod = "topsum"
	TopPercent    BottomTopMethod = "toppercent"
	BottomCount   BottomTopMethod = "bottomcount"
	BottomSum     BottomTopMethod = "bottomsum"
	BottomPercent BottomTopMethod = "bottompercent"
)

var bottomTopMethods = map[string]BottomTopMethod{
	string(TopCount):      TopCount,
	string(TopSum):        TopSum,
	string(TopPercent):    TopPercent,
	string(BottomCount):   BottomCount,
	string(BottomSum):     BottomSum,
	string(BottomPercent): BottomPercent,
}

// IsCount reports whether the method keeps a number of items.
func (m BottomTopMethod) IsCount() bool {
	return m == TopCount || m == BottomCount
}

// IsTop reports whether the method keeps the highest values.
func (m BottomTopMethod) IsTop() bool {
	return m == TopCount || m == TopSum || m == TopPercent
}

// BottomTopTransformation is topcount(n, value) and its siblings.
type BottomTopTransformation struct {
	transformationResult
	Method BottomTopMethod
	N      Node
	Value  Node
}

func (*BottomTopTransformation) Type() ApplyTransformationType { return ApplyTypeBottomTop }

// FunctionArgument is a named argument of a custom function transformation.
type FunctionArgument struct {
	Name  string
	Value Node
}

// CustomFunctionTransformation is a call of a bound function such as
// Sales.TopSelling(count=5).
type CustomFunctionTransformation struct {
	transformationResult
	Function  *metadata.Function
	Arguments []FunctionArgument
}

func (*CustomFunctionTransformation) Type() ApplyTransformationType { return ApplyTypeCustomFunction }

// IdentityTransformation is identity.
type IdentityTransformation struct {
	transformationResult
}

func (*IdentityTransformation) Type() ApplyTransformationType { return ApplyTypeIdentity }

// SearchTransformation is search(searchExpr).
type SearchTransformation struct {
	transformationResult
	Expr *SearchExpr
}

func (*SearchTransformation) Type() ApplyTransformationType { return ApplyTypeSearch }

// OrderByTransformation is orderby(...).
type OrderByTransformation struct {
	transformationResult
	Items []OrderByItem
}

func (*OrderByTransformation) Type() ApplyTransformationType { return ApplyTypeOrderBy }

// SkipTransformation is skip(n).
type SkipTransformation struct {
	transformationResult
	Count int64
}

func (*SkipTransformation) Type() ApplyTransformationType { return ApplyTypeSkip }

// TopTransformation is top(n).
type TopTransformation struct {
	transformationResult
	Count int64
}

func (*TopTransformation) Type() ApplyTransformationType { return ApplyTypeTop }

// ExpandTransformation is expand(navPath[, filter(...)][, expand(...)]).
type ExpandTransformation struct {
	transformationResult
	Path    *MemberExpr
	Filter  Node
	Expands []*ExpandTransformation
}

func (*ExpandTransformation) Type() ApplyTransformationType { return ApplyTypeExpand }
