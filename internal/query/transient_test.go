package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/go-odata-query/internal/edm"
	"github.com/nlstn/go-odata-query/internal/metadata"
)

func TestTransientType(t *testing.T) {
	m := salesModel(t)
	base, ok := m.StructuredType("Sales.SpecialProducts")
	require.True(t, ok)

	tt := NewTransientType(m, base)
	assert.Equal(t, []string{"ID", "Name", "Price", "Color", "Tags", "Address", "Discount", "Category", "Sales"},
		tt.PropertyNames())
	assert.Empty(t, tt.DynamicNames())

	total := &DynamicProperty{Name: "Total", Type: metadata.TypeRef{Name: edm.Decimal}, Nullable: true}
	withTotal := tt.WithProperties(total)
	assert.Len(t, withTotal.PropertyNames(), 10)
	assert.Len(t, tt.PropertyNames(), 9)
	assert.Equal(t, []string{"Total"}, withTotal.DynamicNames())

	replaced := withTotal.WithProperties(&DynamicProperty{Name: "Total", Type: metadata.TypeRef{Name: edm.Double}})
	prop, ok := replaced.Property("Total")
	require.True(t, ok)
	assert.Equal(t, edm.Double, prop.PropertyType().Name)
	assert.Len(t, replaced.PropertyNames(), 10)

	protected := withTotal.Protect("Name")
	assert.True(t, protected.IsProtected("Name"))
	assert.False(t, withTotal.IsProtected("Name"))
	assert.Equal(t, []string{"ID", "Name"}, protected.Protect("ID").ProtectedNames())
	assert.Equal(t, []string{"ID"}, protected.Protect("ID").Unprotect("Name").ProtectedNames())

	retained := protected.RetainOnly(map[string]bool{"Total": true})
	assert.Equal(t, []string{"Name", "Total"}, retained.PropertyNames())
	assert.Equal(t, []string{"Total"}, retained.Unprotect("Name").RetainOnly(map[string]bool{"Total": true}).PropertyNames())

	categories, ok := m.StructuredType("Sales.Categories")
	require.True(t, ok)
	switched := retained.WithBase(categories)
	assert.Equal(t, "Sales.Categories", switched.BaseName())
	assert.Equal(t, []string{"ID", "Name", "Products"}, switched.PropertyNames())
	assert.Equal(t, "Sales.SpecialProducts", retained.BaseName())
}

func TestTransientSchemaProperty(t *testing.T) {
	ctx := productsContext(t)

	price, ok := ctx.Type.Property("Price")
	require.True(t, ok)
	assert.True(t, price.IsNullable())
	assert.Equal(t, edm.Decimal, price.PropertyType().Name)

	sales, ok := ctx.Type.Property("Sales")
	require.True(t, ok)
	assert.Equal(t, metadata.TypeRef{Name: "Sales.SalesOrders", Collection: true}, sales.PropertyType())
}
