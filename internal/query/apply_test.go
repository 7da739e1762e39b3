package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/go-odata-query/internal/edm"
)

func parseApply(t *testing.T, input string) ([]Transformation, *TransientType) {
	t.Helper()
	seq, result, err := ParseApply(input, productsContext(t))
	require.NoError(t, err)
	return seq, result
}

func TestApplyGroupByAggregate(t *testing.T) {
	seq, result := parseApply(t, "groupby((Name),aggregate(Price with sum as Total))")
	require.Len(t, seq, 1)

	g, ok := seq[0].(*GroupByTransformation)
	require.True(t, ok)
	assert.Equal(t, ApplyTypeGroupBy, g.Type())
	require.Len(t, g.Properties, 1)
	assert.Equal(t, []string{"Name"}, g.Properties[0].Names())
	require.Len(t, g.Pipeline, 1)

	agg := g.Pipeline[0].(*AggregateTransformation)
	require.Len(t, agg.Expressions, 1)
	assert.Equal(t, AggregationSum, agg.Expressions[0].Method)
	assert.Equal(t, "Total", agg.Expressions[0].Alias)
	assert.Equal(t, edm.Decimal, agg.Expressions[0].EdmType.Name)

	assert.Equal(t, []string{"Name", "Total"}, result.PropertyNames())
	assert.False(t, result.IsProtected("Name"))
}

func TestApplyGroupByVariants(t *testing.T) {
	_, result := parseApply(t, "groupby((Category/Name,Color))")
	assert.Equal(t, []string{"Color", "Category"}, result.PropertyNames())

	seq, _ := parseApply(t, "groupby((rollup($all,Name,Color)),aggregate($count as N))")
	g := seq[0].(*GroupByTransformation)
	require.Len(t, g.Rollups, 1)
	assert.True(t, g.Rollups[0].All)
	assert.Len(t, g.Rollups[0].Paths, 2)

	ctx := productsContext(t)
	_, _, err := ParseApply("groupby((Name,Name))", ctx)
	requireSemantic(t, err, CodeDuplicateGrouping)

	_, _, err = ParseApply("groupby((Category,Category/Name))", ctx)
	requireSemantic(t, err, CodeDuplicateGrouping)

	_, _, err = ParseApply("groupby((Sales))", ctx)
	requireSemantic(t, err, CodeNotSingleValued)

	_, _, err = ParseApply("groupby((Name))/filter(Price gt 1)", ctx)
	requireSemantic(t, err, CodeUnknownProperty)

	_, _, err = ParseApply("groupby((rollup($all)))", ctx)
	requireSemantic(t, err, CodeArgumentCount)
}

func TestApplyNestedGroupBy(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"groupby((Name),aggregate($count as N))", []string{"Name", "N"}},
		{"groupby((Name),groupby((Color))/aggregate($count as N))", []string{"Name", "N"}},
		{"groupby((Name),groupby((Color)))", []string{"Name", "Color"}},
		{"groupby((Name),groupby((Name),aggregate($count as N)))", []string{"Name", "N"}},
		{"groupby((Name),compute(Price mul 2 as Twice)/filter(Twice gt 1))", []string{"Name", "Twice"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, result := parseApply(t, tt.input)
			assert.Equal(t, tt.want, result.PropertyNames())
			assert.Empty(t, result.ProtectedNames())
		})
	}

	_, _, err := ParseApply("groupby((Name),groupby((Color))/aggregate($count as N))/filter(Color eq null)", productsContext(t))
	requireSemantic(t, err, CodeUnknownProperty)
}

func TestApplyAggregate(t *testing.T) {
	seq, result := parseApply(t, "aggregate(Price with average as Avg,Price with max as Top,$count as N)")
	agg := seq[0].(*AggregateTransformation)
	require.Len(t, agg.Expressions, 3)
	assert.Equal(t, edm.Decimal, agg.Expressions[1].EdmType.Name)
	assert.Equal(t, AggregationCount, agg.Expressions[2].Method)
	assert.Equal(t, []string{"Avg", "Top", "N"}, result.PropertyNames())

	seq, result = parseApply(t, "aggregate(Forecast)")
	expr := seq[0].(*AggregateTransformation).Expressions[0]
	assert.Equal(t, "Forecast", expr.CustomAggregate)
	assert.Equal(t, "Forecast", expr.Alias)
	assert.Equal(t, []string{"Forecast"}, result.PropertyNames())

	seq, _ = parseApply(t, "aggregate(Sales(Amount with sum as Revenue))")
	expr = seq[0].(*AggregateTransformation).Expressions[0]
	assert.Equal(t, []string{"Sales"}, expr.Prefix)
	assert.Equal(t, "Revenue", expr.Alias)
	assert.Equal(t, AggregationSum, expr.Method)

	seq, _ = parseApply(t, "aggregate(Sales/Amount with sum as Revenue)")
	expr = seq[0].(*AggregateTransformation).Expressions[0]
	assert.Equal(t, []string{"Sales", "Amount"}, expr.Expr.(*MemberExpr).Names())

	seq, _ = parseApply(t, "aggregate(Price with Sales.median as Median from Category/Name with max)")
	expr = seq[0].(*AggregateTransformation).Expressions[0]
	assert.Equal(t, AggregationMethod("Sales.median"), expr.Method)
	assert.Equal(t, edm.Decimal, expr.EdmType.Name)
	require.Len(t, expr.From, 1)
	assert.Equal(t, AggregationMax, expr.From[0].Method)

	seq, _ = parseApply(t, "aggregate(ID with countdistinct as Distinct)")
	assert.Equal(t, edm.Decimal, seq[0].(*AggregateTransformation).Expressions[0].EdmType.Name)
}

func TestApplyAggregateErrors(t *testing.T) {
	ctx := productsContext(t)

	tests := []struct {
		name  string
		input string
		code  SemanticCode
	}{
		{"sum on strings", "aggregate(Name with sum as S)", CodeArgumentType},
		{"Unknown method", "aggregate(Price with mode as M)", CodeUnknownAggregate},
		{"Duplicate alias", "aggregate(Price with sum as T,Price with max as T)", CodeDuplicateAlias},
		{"Alias collides with property", "aggregate(Price with sum as Name)", CodeDuplicateAlias},
		{"Collection from path", "aggregate(Price with sum as T from Tags)", CodeNotSingleValued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseApply(tt.input, ctx)
			requireSemantic(t, err, tt.code)
		})
	}
}

func TestApplyCompute(t *testing.T) {
	seq, result := parseApply(t, "compute(Price mul 2 as Twice,length(Name) as Len)/filter(Twice gt 10)")
	require.Len(t, seq, 2)
	c := seq[0].(*ComputeTransformation)
	require.Len(t, c.Expressions, 2)
	assert.Equal(t, "Len", c.Expressions[1].Alias)

	prop, ok := result.Property("Twice")
	require.True(t, ok)
	assert.Equal(t, edm.Decimal, prop.PropertyType().Name)
	assert.True(t, prop.IsNullable())
	assert.Equal(t, []string{"Twice", "Len"}, result.DynamicNames())

	ctx := productsContext(t)
	_, _, err := ParseApply("compute(Price as Name)", ctx)
	requireSemantic(t, err, CodeDuplicateAlias)

	_, _, err = ParseApply("compute(Address as A)", ctx)
	requireSemantic(t, err, CodeResultType)
}

func TestApplyBottomTop(t *testing.T) {
	seq, _ := parseApply(t, "topcount(2,Price)")
	bt := seq[0].(*BottomTopTransformation)
	assert.Equal(t, TopCount, bt.Method)
	assert.True(t, bt.Method.IsCount())
	assert.True(t, bt.Method.IsTop())
	assert.Equal(t, ApplyTypeBottomTop, bt.Type())

	seq, _ = parseApply(t, "bottompercent(12.5,Price)")
	assert.False(t, seq[0].(*BottomTopTransformation).Method.IsTop())

	ctx := productsContext(t)
	_, _, err := ParseApply("topcount(1.5,Price)", ctx)
	requireSemantic(t, err, CodeArgumentType)

	_, _, err = ParseApply("topsum(10,Name)", ctx)
	requireSemantic(t, err, CodeArgumentType)
}

func TestApplyConcat(t *testing.T) {
	seq, result := parseApply(t, "concat(identity,groupby((Name)))")
	c := seq[0].(*ConcatTransformation)
	require.Len(t, c.Sequences, 2)

	id, ok := result.Property("ID")
	require.True(t, ok)
	assert.True(t, id.IsNullable())
	assert.IsType(t, &DynamicProperty{}, id)

	name, ok := result.Property("Name")
	require.True(t, ok)
	assert.IsType(t, &SchemaProperty{}, name)

	_, result = parseApply(t, "concat(compute(ID as X),compute(Price as X))")
	x, ok := result.Property("X")
	require.True(t, ok)
	assert.Equal(t, edm.Decimal, x.PropertyType().Name)

	ctx := productsContext(t)
	_, _, err := ParseApply("concat(compute(Name as X),compute(Price as X))", ctx)
	semErr := requireSemantic(t, err, CodeTypeMismatch)
	assert.Equal(t, []string{"X"}, semErr.Names)

	_, _, err = ParseApply("concat(identity)", ctx)
	requireSemantic(t, err, CodeArgumentCount)
}

func TestApplyCustomFunction(t *testing.T) {
	seq, result := parseApply(t, "filter(Price gt 5)/Sales.TopSelling(count=5)")
	require.Len(t, seq, 2)
	fn := seq[1].(*CustomFunctionTransformation)
	assert.Equal(t, "TopSelling", fn.Function.Name)
	require.Len(t, fn.Arguments, 1)
	assert.Equal(t, "count", fn.Arguments[0].Name)
	assert.Equal(t, "Sales.Products", result.BaseName())

	ctx := productsContext(t)
	_, _, err := ParseApply("Sales.Nope(count=5)", ctx)
	requireSemantic(t, err, CodeUnknownFunction)

	_, _, err = ParseApply("Sales.TopSelling(size=5)", ctx)
	requireSemantic(t, err, CodeUnknownFunction)

	_, _, err = ParseApply("Sales.TopSelling(count=5,count=6)", ctx)
	requireSemantic(t, err, CodeDuplicateParameter)

	_, _, err = ParseApply("Sales.TopSelling(count='five')", ctx)
	requireSemantic(t, err, CodeArgumentType)

	orders, err := NewParseContext(salesModel(t), "SalesOrders")
	require.NoError(t, err)
	_, _, err = ParseApply("Sales.TopSelling(count=5)", orders)
	requireSemantic(t, err, CodeUnknownFunction)
}

func TestApplyPipeline(t *testing.T) {
	seq, _ := parseApply(t, `search(blue OR "red car")/filter(Price gt 5)/orderby(Price desc,Name)/skip(1)/top(2)`)
	require.Len(t, seq, 5)

	assert.Equal(t, `blue OR "red car"`, seq[0].(*SearchTransformation).Expr.String())
	assert.IsType(t, &FilterTransformation{}, seq[1])
	items := seq[2].(*OrderByTransformation).Items
	require.Len(t, items, 2)
	assert.True(t, items[0].Descending)
	assert.Equal(t, int64(1), seq[3].(*SkipTransformation).Count)
	assert.Equal(t, int64(2), seq[4].(*TopTransformation).Count)

	ctx := productsContext(t)
	_, _, err := ParseApply("top(-1)", ctx)
	requireSemantic(t, err, CodeInvalidArgument)

	_, _, err = ParseApply("filter(Price)", ctx)
	requireSemantic(t, err, CodeResultType)

	_, _, err = ParseApply("search()", ctx)
	assert.True(t, errors.Is(err, ErrSyntax))
}

func TestApplyExpand(t *testing.T) {
	seq, _ := parseApply(t, "expand(Sales,filter(Amount gt 100),expand(Product))")
	e := seq[0].(*ExpandTransformation)
	assert.Equal(t, []string{"Sales"}, e.Path.Names())
	require.NotNil(t, e.Filter)
	require.Len(t, e.Expands, 1)
	assert.Equal(t, []string{"Product"}, e.Expands[0].Path.Names())

	ctx := productsContext(t)
	_, _, err := ParseApply("expand(Name)", ctx)
	requireSemantic(t, err, CodeInvalidArgument)

	_, _, err = ParseApply("expand(Sales,filter(Amount gt 1),filter(Amount lt 5))", ctx)
	requireSemantic(t, err, CodeInvalidArgument)
}

func TestApplyErrors(t *testing.T) {
	ctx := productsContext(t)

	_, _, err := ParseApply("", ctx)
	assert.True(t, errors.Is(err, ErrSyntax))

	_, _, err = ParseApply("frobnicate(1)", ctx)
	require.Error(t, err)
	var syntaxErr *SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, "frobnicate", syntaxErr.Token)
	assert.Contains(t, syntaxErr.Expected, "groupby")
	assert.Contains(t, syntaxErr.Expected, "topcount")

	_, _, err = ParseApply("identity/", ctx)
	assert.True(t, errors.Is(err, ErrSyntax))

	crossjoin := &ParseContext{Model: salesModel(t), CrossJoin: []string{"Products", "Categories"}}
	_, _, err = ParseApply("identity", crossjoin)
	assert.True(t, errors.Is(err, ErrNotSupported))
}
