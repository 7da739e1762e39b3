package metadata

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/go-odata-query/internal/edm"
)

func loadSales(t *testing.T) *Model {
	t.Helper()
	m, err := LoadFile("testdata/sales.yaml")
	require.NoError(t, err)
	return m
}

func TestLoadFile(t *testing.T) {
	m := loadSales(t)

	assert.Equal(t, "Sales", m.Namespace())
	assert.Equal(t, KindEntity, m.Kind("Sales.Products"))
	assert.Equal(t, KindEntity, m.Kind("Products"))
	assert.Equal(t, KindComplex, m.Kind("Sales.Address"))
	assert.Equal(t, KindEnum, m.Kind("Sales.Color"))
	assert.Equal(t, KindTypeDefinition, m.Kind("Sales.ZipCode"))
	assert.Equal(t, KindPrimitive, m.Kind(edm.Int32))
	assert.Equal(t, KindUnknown, m.Kind("Sales.Nope"))

	sets := m.EntitySets()
	require.Len(t, sets, 3)
	assert.Equal(t, "Products", sets[0].Name)
	assert.Equal(t, "Sales.Products", sets[0].EntityType)

	price, ok := m.FindMember("Sales.Products", "Price")
	require.True(t, ok)
	require.NotNil(t, price.Property)
	assert.Equal(t, edm.Decimal, price.Property.Type)
	assert.True(t, price.Property.Nullable)
	assert.Equal(t, 10, *price.Property.Facets.Precision)
	assert.Equal(t, 2, *price.Property.Facets.Scale)

	amount, ok := m.FindMember("Sales.SalesOrders", "Amount")
	require.True(t, ok)
	assert.True(t, amount.Property.Facets.ScaleVariable)

	category, ok := m.FindMember("Sales.Products", "Category")
	require.True(t, ok)
	require.NotNil(t, category.Navigation)
	assert.Equal(t, "Sales.Categories", category.Navigation.Target)
	assert.False(t, category.Navigation.Collection)

	tags, ok := m.FindMember("Sales.Products", "Tags")
	require.True(t, ok)
	assert.Equal(t, TypeRef{Name: edm.String, Collection: true}, tags.Property.TypeRef())
}

func TestModelInheritance(t *testing.T) {
	m := loadSales(t)

	assert.True(t, m.IsDerivedFrom("Sales.SpecialProducts", "Sales.Products"))
	assert.False(t, m.IsDerivedFrom("Sales.Products", "Sales.SpecialProducts"))

	props := m.AllProperties("Sales.SpecialProducts")
	require.NotEmpty(t, props)
	assert.Equal(t, "ID", props[0].Name)
	assert.Equal(t, "Discount", props[len(props)-1].Name)

	member, ok := m.FindMember("Sales.SpecialProducts", "Category")
	require.True(t, ok)
	assert.NotNil(t, member.Navigation)

	agg, ok := m.CustomAggregate("Sales.SpecialProducts", "Forecast")
	require.True(t, ok)
	assert.Equal(t, edm.Decimal, agg.Type)
}

func TestModelLookups(t *testing.T) {
	m := loadSales(t)

	assert.Equal(t, edm.Int32, m.PrimitiveOf("Sales.Color"))
	assert.Equal(t, edm.String, m.PrimitiveOf("Sales.ZipCode"))
	assert.Equal(t, "", m.PrimitiveOf("Sales.Products"))

	color, ok := m.EnumType("Color")
	require.True(t, ok)
	assert.True(t, color.IsFlags)
	green, ok := color.Member("Green")
	require.True(t, ok)
	assert.Equal(t, int64(2), green.Value)

	fns := m.Functions("Sales.TopSelling")
	require.Len(t, fns, 1)
	assert.True(t, fns[0].IsBound)
	assert.Equal(t, TypeRef{Name: "Sales.Products", Collection: true}, fns[0].Parameters[0].Type)
	assert.Equal(t, TypeRef{Name: "Sales.Products", Collection: true}, fns[0].ReturnType)

	_, ok = m.CustomAggregationMethod("Sales.median")
	assert.True(t, ok)
}

func TestFindMemberConcurrent(t *testing.T) {
	m := loadSales(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				member, ok := m.FindMember("Sales.Products", "Name")
				if !ok || member.Property == nil {
					t.Errorf("Name not found")
					return
				}
				if _, ok := m.FindMember("Sales.Products", "Missing"); ok {
					t.Errorf("Missing unexpectedly found")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing namespace",
			doc:  "entityTypes: []\n",
			want: "namespace is required",
		},
		{
			name: "unknown property type",
			doc: `namespace: N
entityTypes:
  - name: A
    key: [ID]
    properties:
      - {name: ID, type: N.Nope}
`,
			want: "unknown type N.Nope",
		},
		{
			name: "missing key",
			doc: `namespace: N
entityTypes:
  - name: A
    properties:
      - {name: X, type: Edm.Int32}
`,
			want: "at least one key property",
		},
		{
			name: "unknown navigation target",
			doc: `namespace: N
entityTypes:
  - name: A
    key: [ID]
    properties:
      - {name: ID, type: Edm.Int32}
    navigationProperties:
      - {name: B, type: N.B}
`,
			want: "targets unknown entity type N.B",
		},
		{
			name: "unknown field",
			doc:  "namespace: N\nbogus: 1\n",
			want: "decode model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseTypeRef(t *testing.T) {
	assert.Equal(t, TypeRef{Name: "Edm.String", Collection: true}, ParseTypeRef("Collection(Edm.String)"))
	assert.Equal(t, TypeRef{Name: "N.A"}, ParseTypeRef(" N.A "))
	assert.Equal(t, "Collection(N.A)", TypeRef{Name: "N.A", Collection: true}.String())
	assert.Equal(t, "null", TypeRef{}.String())
	assert.True(t, TypeRef{}.IsUntyped())
}
