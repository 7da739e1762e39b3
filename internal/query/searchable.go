package query

import (
	"github.com/nlstn/go-odata-query/internal/edm"
)

// SearchableProperties returns the properties $search applies to. When no
// property is marked searchable, every single-valued string property is used.
func SearchableProperties(t *TransientType) []string {
	var searchable, stringProps []string
	for _, p := range t.Properties() {
		sp, ok := p.(*SchemaProperty)
		if !ok || sp.Property == nil || sp.Property.Collection {
			continue
		}
		if sp.Property.Searchable {
			searchable = append(searchable, sp.Property.Name)
		}
		if t.Model().PrimitiveOf(sp.Property.Type) == edm.String {
			stringProps = append(stringProps, sp.Property.Name)
		}
	}
	if len(searchable) == 0 {
		return stringProps
	}
	return searchable
}
