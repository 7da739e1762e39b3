package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/go-odata-query/internal/edm"
	"github.com/nlstn/go-odata-query/internal/metadata"
)

func salesModel(t testing.TB) *metadata.Model {
	t.Helper()
	m, err := metadata.LoadFile("../metadata/testdata/sales.yaml")
	require.NoError(t, err)
	return m
}

func productsContext(t testing.TB) *ParseContext {
	t.Helper()
	ctx, err := NewParseContext(salesModel(t), "Products")
	require.NoError(t, err)
	return ctx
}

func requireSemantic(t *testing.T, err error, code SemanticCode) *SemanticError {
	t.Helper()
	require.Error(t, err)
	var semErr *SemanticError
	require.True(t, errors.As(err, &semErr), "expected semantic error, got %v", err)
	assert.Equal(t, code, semErr.Code, semErr.Message)
	assert.True(t, errors.Is(err, ErrSemantic))
	return semErr
}

func TestNewParseContext(t *testing.T) {
	m := salesModel(t)

	ctx, err := NewParseContext(m, "Sales.Products")
	require.NoError(t, err)
	assert.Equal(t, "Sales.Products", ctx.Type.BaseName())

	ctx, err = NewParseContext(m, "SalesOrders")
	require.NoError(t, err)
	assert.Equal(t, "Sales.SalesOrders", ctx.Type.BaseName())

	_, err = NewParseContext(m, "Nope")
	requireSemantic(t, err, CodeUnknownType)
}

func TestExpressionPrecedence(t *testing.T) {
	node, err := ParseFilter("ID eq 1 or ID eq 2 and not (Price gt 3 add 4 mul 5)", productsContext(t))
	require.NoError(t, err)

	or, ok := node.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpOr, or.Op)

	and, ok := or.Right.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpAnd, and.Op)

	not, ok := and.Right.(*UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpNot, not.Op)

	gt := not.Operand.(*BinaryExpr)
	assert.Equal(t, OpGt, gt.Op)
	add := gt.Right.(*BinaryExpr)
	assert.Equal(t, OpAdd, add.Op)
	mul := add.Right.(*BinaryExpr)
	assert.Equal(t, OpMul, mul.Op)
}

func TestExpressionResultTypes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Integer addition", "ID add 1", edm.Int32},
		{"Large integer literal", "ID add 3000000000", edm.Int64},
		{"Decimal promotion", "Price add 1", edm.Decimal},
		{"Double promotion", "Price mul 1.5e0", edm.Double},
		{"divby on integers", "ID divby 2", edm.Decimal},
		{"Negation", "-ID", edm.Int32},
		{"String method", "tolower(Name)", edm.String},
		{"length", "length(Name)", edm.Int32},
		{"Rounding keeps double", "round(1.5e0)", edm.Double},
		{"Rounding decimal", "round(Price)", edm.Decimal},
		{"Count", "Sales/$count", edm.Int64},
		{"Navigation", "Category/Name", edm.String},
		{"Complex", "Address/City", edm.String},
		{"Type definition", "Address/Zip", "Sales.ZipCode"},
		{"Type cast", "Sales.SpecialProducts/Discount", edm.Double},
		{"Cast method", "cast(Price,Edm.String)", edm.String},
		{"Date arithmetic", "2024-01-01 add duration'P1D'", edm.Date},
		{"DateTimeOffset difference", "now() sub 2024-01-01T00:00:00Z", edm.Duration},
		{"Enum literal", "Sales.Color'Red,Blue'", "Sales.Color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := NewTokenStream(OptionFilter, tt.input)
			require.NoError(t, err)
			node, err := ParseExpression(ts, productsContext(t))
			require.NoError(t, err)
			assert.True(t, ts.AtEOF())
			assert.Equal(t, tt.expected, node.ResultType().Name)
		})
	}
}

func TestExpressionLiterals(t *testing.T) {
	ctx := productsContext(t)

	node, err := ParseFilter("Color eq Sales.Color'Red,Blue'", ctx)
	require.NoError(t, err)
	lit := node.(*BinaryExpr).Right.(*LiteralExpr)
	assert.Equal(t, EnumValue{Members: []string{"Red", "Blue"}, Value: 5}, lit.Value)

	node, err = ParseFilter("Price eq null", ctx)
	require.NoError(t, err)
	assert.True(t, node.(*BinaryExpr).Right.(*LiteralExpr).IsNull())

	node, err = ParseFilter("ID eq -5", ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), node.(*BinaryExpr).Right.(*LiteralExpr).Value)

	_, err = ParseFilter("ID eq 99999999999999999999", ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, edm.ErrInvalidValue))

	_, err = ParseFilter("Name eq 'x' and 2024-13-01 eq 2024-13-01", ctx)
	assert.True(t, errors.Is(err, edm.ErrInvalidValue))

	_, err = ParseFilter("Color eq Sales.Color'Purple'", ctx)
	requireSemantic(t, err, CodeUnknownEnumMember)
}

func TestExpressionEnumStringComparison(t *testing.T) {
	ctx := productsContext(t)

	for _, input := range []string{"Color eq 'Red'", "'Green' ne Color", "Color eq 'Red,Blue'", "Color eq '4'", "Color has 'Blue'"} {
		_, err := ParseFilter(input, ctx)
		assert.NoError(t, err, input)
	}

	for _, input := range []string{"Color eq 'Purple'", "'Purple' eq Color", "Color eq 'Red,Purple'", "Color has 'Purple'"} {
		_, err := ParseFilter(input, ctx)
		requireSemantic(t, err, CodeUnknownEnumMember)
	}
}

func TestExpressionMemberPaths(t *testing.T) {
	ctx := productsContext(t)

	node, err := ParseFilter("Category/Name eq 'Books'", ctx)
	require.NoError(t, err)
	member := node.(*BinaryExpr).Left.(*MemberExpr)
	assert.Equal(t, []string{"Category", "Name"}, member.Names())
	assert.Equal(t, SegNavigationToOne, member.Segments[0].Kind)
	assert.Equal(t, SegPrimitiveProperty, member.Segments[1].Kind)

	_, err = ParseFilter("Foo eq 1", ctx)
	semErr := requireSemantic(t, err, CodeUnknownProperty)
	assert.Equal(t, []string{"Foo"}, semErr.Names)
	assert.Equal(t, OptionFilter, semErr.Option)
	assert.Equal(t, 0, semErr.Pos)

	_, err = ParseFilter("Category/Foo eq 1", ctx)
	semErr = requireSemantic(t, err, CodeUnknownProperty)
	assert.Equal(t, []string{"Sales.Categories"}, semErr.Types)

	_, err = ParseFilter("Sales/Amount gt 1", ctx)
	requireSemantic(t, err, CodeNotSingleValued)

	_, err = ParseFilter("Name/$count gt 1", ctx)
	require.Error(t, err)

	_, err = ParseFilter("Sales.Categories/Name eq 'x'", ctx)
	requireSemantic(t, err, CodeTypeMismatch)
}

func TestExpressionLambda(t *testing.T) {
	ctx := productsContext(t)

	node, err := ParseFilter("Tags/any(t: t eq 'red')", ctx)
	require.NoError(t, err)
	member := node.(*MemberExpr)
	last := member.Last()
	assert.Equal(t, SegAny, last.Kind)
	assert.Equal(t, "t", last.Lambda.Variable)
	assert.Equal(t, edm.Boolean, member.ResultType().Name)

	node, err = ParseFilter("Sales/all(s: s/Amount gt $it/Price)", ctx)
	require.NoError(t, err)
	last = node.(*MemberExpr).Last()
	assert.Equal(t, SegAll, last.Kind)
	cmp := last.Lambda.Predicate.(*BinaryExpr)
	assert.Equal(t, SegLambdaVariable, cmp.Left.(*MemberExpr).Segments[0].Kind)
	assert.Equal(t, SegIt, cmp.Right.(*MemberExpr).Segments[0].Kind)

	node, err = ParseFilter("Sales/any()", ctx)
	require.NoError(t, err)
	assert.Nil(t, node.(*MemberExpr).Last().Lambda.Predicate)

	_, err = ParseFilter("Sales/any(s: s/Product/Sales/any(s: s/Quantity gt 1))", ctx)
	requireSemantic(t, err, CodeDuplicateVariable)

	_, err = ParseFilter("Sales/any(s: s/Amount)", ctx)
	requireSemantic(t, err, CodeResultType)

	_, err = ParseFilter("Category/any(c: c/Name eq 'x')", ctx)
	requireSemantic(t, err, CodeNotCollection)

	_, err = ParseFilter("Sales/any(s: t eq 1)", ctx)
	requireSemantic(t, err, CodeUnknownProperty)
}

func TestExpressionTypeChecks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  SemanticCode
	}{
		{"String compared with number", "Name eq 1", CodeTypeMismatch},
		{"Ordering booleans with null", "null gt null", CodeTypeMismatch},
		{"Structured comparison", "Address eq 'x'", CodeTypeMismatch},
		{"Arithmetic on strings", "Name add 1 eq 2", CodeTypeMismatch},
		{"has on non-enum", "Name has Sales.Color'Red'", CodeTypeMismatch},
		{"Logical on numbers", "ID and true", CodeTypeMismatch},
		{"not on numbers", "not ID", CodeTypeMismatch},
		{"Method argument type", "contains(Price,'x')", CodeArgumentType},
		{"Method argument count", "substring(Name)", CodeArgumentCount},
		{"Enum of other type", "Color eq 1", CodeTypeMismatch},
		{"Unknown cast type", "cast(Price,Sales.Nope) eq 1", CodeUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilter(tt.input, productsContext(t))
			semErr := requireSemantic(t, err, tt.code)
			assert.NotEmpty(t, semErr.Message)
		})
	}
}

func TestExpressionMismatchNamesTypes(t *testing.T) {
	_, err := ParseFilter("Name eq 1", productsContext(t))
	semErr := requireSemantic(t, err, CodeTypeMismatch)
	assert.Equal(t, []string{edm.String, edm.Int32}, semErr.Types)
	assert.Contains(t, semErr.Error(), "Edm.String and Edm.Int32")
}

func TestExpressionIn(t *testing.T) {
	ctx := productsContext(t)

	node, err := ParseFilter("Name in ('a','b','c')", ctx)
	require.NoError(t, err)
	list := node.(*BinaryExpr).Right.(*ListExpr)
	assert.Len(t, list.Items, 3)
	assert.Equal(t, metadata.TypeRef{Name: edm.String, Collection: true}, list.ResultType())

	node, err = ParseFilter("'red' in Tags", ctx)
	require.NoError(t, err)
	assert.IsType(t, &MemberExpr{}, node.(*BinaryExpr).Right)

	_, err = ParseFilter("Name in (1,2)", ctx)
	requireSemantic(t, err, CodeTypeMismatch)

	_, err = ParseFilter("Name in Name", ctx)
	requireSemantic(t, err, CodeNotCollection)

	ctx.MaxInListSize = 2
	_, err = ParseFilter("ID in (1,2,3)", ctx)
	requireSemantic(t, err, CodeLimitExceeded)
}

func TestExpressionHas(t *testing.T) {
	node, err := ParseFilter("Color has Sales.Color'Red'", productsContext(t))
	require.NoError(t, err)
	assert.Equal(t, OpHas, node.(*BinaryExpr).Op)
}

func TestExpressionAliases(t *testing.T) {
	ctx := productsContext(t)
	ctx.Aliases = map[string]string{"p": "5", "name": "'x'", "a": "@b", "b": "@a", "nested": "@p add 1"}

	node, err := ParseFilter("Price gt @p and Name eq @name", ctx)
	require.NoError(t, err)
	alias := node.(*BinaryExpr).Left.(*BinaryExpr).Right.(*AliasExpr)
	assert.Equal(t, "p", alias.Name)
	assert.Equal(t, edm.Int32, alias.ResultType().Name)

	_, err = ParseFilter("Price gt @nested", ctx)
	require.NoError(t, err)

	_, err = ParseFilter("Price gt @missing", ctx)
	requireSemantic(t, err, CodeUnresolvedAlias)

	_, err = ParseFilter("Price gt @a", ctx)
	requireSemantic(t, err, CodeAliasCycle)
}

func TestExpressionNotSupported(t *testing.T) {
	_, err := ParseFilter("geo.distance(Location, geography'SRID=4326;Point(1 2)') lt 10", productsContext(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotSupported))

	var nsErr *NotSupportedError
	require.True(t, errors.As(err, &nsErr))
	assert.Equal(t, OptionFilter, nsErr.Option)
	assert.Contains(t, nsErr.Feature, "geo.distance")
	assert.Equal(t, "method 'geo.distance' is not supported in $filter", nsErr.Error())
}

func TestExpressionDepthLimit(t *testing.T) {
	ctx := productsContext(t)
	ctx.MaxDepth = 3

	_, err := ParseFilter("((Price gt 1))", ctx)
	require.NoError(t, err)

	_, err = ParseFilter("((((Price gt 1))))", ctx)
	requireSemantic(t, err, CodeLimitExceeded)
}

func TestExpressionCrossJoin(t *testing.T) {
	ctx := &ParseContext{Model: salesModel(t), CrossJoin: []string{"Products", "Categories"}}

	node, err := ParseFilter("Products/Category/ID eq Categories/ID", ctx)
	require.NoError(t, err)
	left := node.(*BinaryExpr).Left.(*MemberExpr)
	assert.Equal(t, SegEntitySet, left.Segments[0].Kind)

	_, err = ParseFilter("SalesOrders/ID eq 1", ctx)
	requireSemantic(t, err, CodeUnknownProperty)
}

func TestExpressionRoot(t *testing.T) {
	node, err := ParseFilter("ID lt $root/Categories/$count", productsContext(t))
	require.NoError(t, err)
	right := node.(*BinaryExpr).Right.(*MemberExpr)
	assert.Equal(t, []string{"Categories", "$count"}, right.Names())
}
