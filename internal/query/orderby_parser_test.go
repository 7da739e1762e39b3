package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderBy(t *testing.T) {
	ctx := productsContext(t)

	items, err := ParseOrderBy("Name desc, Price asc, Category/Name, Sales/$count desc", ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.True(t, items[0].Descending)
	assert.False(t, items[1].Descending)
	assert.False(t, items[2].Descending)
	assert.True(t, items[3].Descending)
	assert.Equal(t, []string{"Category", "Name"}, items[2].Expr.(*MemberExpr).Names())

	items, err = ParseOrderBy("length(Name) add 1", ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.IsType(t, &BinaryExpr{}, items[0].Expr)
}

func TestParseOrderByErrors(t *testing.T) {
	ctx := productsContext(t)

	tests := []struct {
		name  string
		input string
		code  SemanticCode
	}{
		{"Complex property", "Address", CodeResultType},
		{"Navigation property", "Category", CodeResultType},
		{"Collection property", "Tags", CodeResultType},
		{"Unknown property", "Weight desc", CodeUnknownProperty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOrderBy(tt.input, ctx)
			semErr := requireSemantic(t, err, tt.code)
			assert.Equal(t, OptionOrderBy, semErr.Option)
		})
	}

	_, err := ParseOrderBy("Name sideways", ctx)
	require.Error(t, err)
	var syntaxErr *SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, "sideways", syntaxErr.Token)
	assert.Contains(t, syntaxErr.Expected, "desc")

	_, err = ParseOrderBy("", ctx)
	assert.True(t, errors.Is(err, ErrSyntax))

	_, err = ParseOrderBy("Name,", ctx)
	assert.True(t, errors.Is(err, ErrSyntax))
}
