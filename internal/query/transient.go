package query

import (
	"sort"

	"github.com/nlstn/go-odata-query/internal/edm"
	"github.com/nlstn/go-odata-query/internal/metadata"
)

// Property is a visible property of a TransientType: either a
// *SchemaProperty or a *DynamicProperty.
type Property interface {
	PropertyName() string
	PropertyType() metadata.TypeRef
	IsNullable() bool
	transientProperty()
}

// SchemaProperty wraps a structural or navigation property of the model.
type SchemaProperty struct {
	Property   *metadata.Property
	Navigation *metadata.NavigationProperty
}

func (p *SchemaProperty) PropertyName() string {
	if p.Navigation != nil {
		return p.Navigation.Name
	}
	return p.Property.Name
}

func (p *SchemaProperty) PropertyType() metadata.TypeRef {
	if p.Navigation != nil {
		return p.Navigation.TypeRef()
	}
	return p.Property.TypeRef()
}

func (p *SchemaProperty) IsNullable() bool {
	if p.Navigation != nil {
		return p.Navigation.Nullable
	}
	return p.Property.Nullable
}

func (p *SchemaProperty) transientProperty() {}

// DynamicProperty is a property introduced by aggregate, compute or concat.
type DynamicProperty struct {
	Name     string
	Type     metadata.TypeRef
	Nullable bool
	Facets   edm.Facets
}

func (p *DynamicProperty) PropertyName() string           { return p.Name }
func (p *DynamicProperty) PropertyType() metadata.TypeRef { return p.Type }
func (p *DynamicProperty) IsNullable() bool               { return p.Nullable }
func (p *DynamicProperty) transientProperty()             {}

// TransientType is the shape of the data at one stage of an $apply pipeline.
// Values are immutable: every mutator returns a new TransientType and leaves
// the receiver untouched.
type TransientType struct {
	model     *metadata.Model
	base      *metadata.StructuredType
	props     []Property
	protected map[string]bool
}

// NewTransientType exposes every structural and navigation property of base,
// including inherited ones.
func NewTransientType(model *metadata.Model, base *metadata.StructuredType) *TransientType {
	t := &TransientType{model: model, base: base}
	for _, p := range model.AllProperties(base.FullName()) {
		t.props = append(t.props, &SchemaProperty{Property: p})
	}
	for _, n := range model.AllNavigationProperties(base.FullName()) {
		t.props = append(t.props, &SchemaProperty{Navigation: n})
	}
	return t
}

// Model returns the model the type was built from.
func (t *TransientType) Model() *metadata.Model {
	return t.model
}

// Base returns the underlying structured type.
func (t *TransientType) Base() *metadata.StructuredType {
	return t.base
}

// BaseName returns the qualified name of the underlying structured type.
func (t *TransientType) BaseName() string {
	return t.base.FullName()
}

// Properties returns the visible properties in order.
func (t *TransientType) Properties() []Property {
	return append([]Property(nil), t.props...)
}

// PropertyNames returns the names of the visible properties in order.
func (t *TransientType) PropertyNames() []string {
	names := make([]string, len(t.props))
	for i, p := range t.props {
		names[i] = p.PropertyName()
	}
	return names
}

// Property looks up a visible property by name.
func (t *TransientType) Property(name string) (Property, bool) {
	for _, p := range t.props {
		if p.PropertyName() == name {
			return p, true
		}
	}
	return nil, false
}

// IsProtected reports whether name survives RetainOnly regardless of the
// retained set.
func (t *TransientType) IsProtected(name string) bool {
	return t.protected[name]
}

func (t *TransientType) clone() *TransientType {
	c := &TransientType{model: t.model, base: t.base}
	c.props = append([]Property(nil), t.props...)
	if len(t.protected) > 0 {
		c.protected = make(map[string]bool, len(t.protected))
		for k, v := range t.protected {
			c.protected[k] = v
		}
	}
	return c
}

// WithProperties returns a copy with the given properties added or, when a
// property of the same name exists, replaced in place.
func (t *TransientType) WithProperties(props ...Property) *TransientType {
	c := t.clone()
	for _, p := range props {
		replaced := false
		for i, existing := range c.props {
			if existing.PropertyName() == p.PropertyName() {
				c.props[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			c.props = append(c.props, p)
		}
	}
	return c
}

// RetainOnly returns a copy that keeps the named properties and the protected ones.
func (t *TransientType) RetainOnly(names map[string]bool) *TransientType {
	c := t.clone()
	kept := c.props[:0]
	for _, p := range c.props {
		if names[p.PropertyName()] || c.protected[p.PropertyName()] {
			kept = append(kept, p)
		}
	}
	c.props = kept
	return c
}

// Protect returns a copy in which the named properties are protected.
func (t *TransientType) Protect(names ...string) *TransientType {
	c := t.clone()
	if c.protected == nil {
		c.protected = make(map[string]bool, len(names))
	}
	for _, n := range names {
		c.protected[n] = true
	}
	return c
}

// Unprotect returns a copy in which the named properties are no longer protected.
func (t *TransientType) Unprotect(names ...string) *TransientType {
	c := t.clone()
	for _, n := range names {
		delete(c.protected, n)
	}
	return c
}

// ProtectedNames returns the protected property names in sorted order.
func (t *TransientType) ProtectedNames() []string {
	names := make([]string, 0, len(t.protected))
	for n := range t.protected {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WithBase returns a fresh type exposing the properties of another structured type.
func (t *TransientType) WithBase(base *metadata.StructuredType) *TransientType {
	return NewTransientType(t.model, base)
}

// DynamicNames returns the names of the dynamic properties.
func (t *TransientType) DynamicNames() []string {
	var names []string
	for _, p := range t.props {
		if _, ok := p.(*DynamicProperty); ok {
			names = append(names, p.PropertyName())
		}
	}
	return names
}
