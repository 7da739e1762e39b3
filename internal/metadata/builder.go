package metadata

import (
	"errors"
	"fmt"

	"github.com/nlstn/go-odata-query/internal/edm"
)

// Builder assembles a Model. Registration errors are collected and returned
// by Build.
type Builder struct {
	model *Model
	errs  []error
}

// NewBuilder creates a builder for a model whose unqualified names live in namespace.
func NewBuilder(namespace string) *Builder {
	return &Builder{
		model: &Model{
			namespace:  namespace,
			structured: make(map[string]*StructuredType),
			enums:      make(map[string]*EnumType),
			typeDefs:   make(map[string]*TypeDefinition),
			functions:  make(map[string][]*Function),
			methods:    make(map[string]*CustomAggregationMethod),
			entitySets: make(map[string]*EntitySet),
		},
	}
}

func (b *Builder) fail(format string, args ...interface{}) *Builder {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
	return b
}

func (b *Builder) namespaced(ns string) string {
	if ns == "" {
		return b.model.namespace
	}
	return ns
}

// AddStructuredType registers an entity or complex type.
func (b *Builder) AddStructuredType(t *StructuredType) *Builder {
	t.Namespace = b.namespaced(t.Namespace)
	name := t.FullName()
	if _, exists := b.model.structured[name]; exists {
		return b.fail("duplicate type %s", name)
	}
	b.model.structured[name] = t
	return b
}

// AddEnumType registers an enum type. The underlying type defaults to Edm.Int32.
func (b *Builder) AddEnumType(e *EnumType) *Builder {
	e.Namespace = b.namespaced(e.Namespace)
	if e.UnderlyingType == "" {
		e.UnderlyingType = edm.Int32
	}
	if !edm.IsIntegral(e.UnderlyingType) {
		return b.fail("enum type %s must have an integral underlying type, got %s", e.FullName(), e.UnderlyingType)
	}
	if len(e.Members) == 0 {
		return b.fail("enum type %s must have at least one member", e.FullName())
	}
	seen := make(map[string]struct{}, len(e.Members))
	for _, m := range e.Members {
		if m.Name == "" {
			return b.fail("enum type %s has a member with an empty name", e.FullName())
		}
		if _, dup := seen[m.Name]; dup {
			return b.fail("enum type %s has duplicate member name %s", e.FullName(), m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	b.model.enums[e.FullName()] = e
	return b
}

// AddTypeDefinition registers a type definition over a primitive type.
func (b *Builder) AddTypeDefinition(d *TypeDefinition) *Builder {
	d.Namespace = b.namespaced(d.Namespace)
	if !edm.IsPrimitive(d.UnderlyingType) {
		return b.fail("type definition %s must have a primitive underlying type", d.FullName())
	}
	b.model.typeDefs[d.FullName()] = d
	return b
}

// AddFunction registers a function overload.
func (b *Builder) AddFunction(f *Function) *Builder {
	f.Namespace = b.namespaced(f.Namespace)
	if f.IsBound && len(f.Parameters) == 0 {
		return b.fail("bound function %s needs a binding parameter", f.FullName())
	}
	name := f.FullName()
	b.model.functions[name] = append(b.model.functions[name], f)
	return b
}

// AddCustomAggregationMethod registers a qualified aggregation method.
func (b *Builder) AddCustomAggregationMethod(m *CustomAggregationMethod) *Builder {
	b.model.methods[m.Name] = m
	return b
}

// AddEntitySet registers an entity set over an entity type.
func (b *Builder) AddEntitySet(name, entityType string) *Builder {
	if _, exists := b.model.entitySets[name]; exists {
		return b.fail("duplicate entity set %s", name)
	}
	b.model.entitySets[name] = &EntitySet{Name: name, EntityType: b.model.qualified(entityType)}
	b.model.setOrder = append(b.model.setOrder, name)
	return b
}

// Build validates all cross references and returns the finished model.
func (b *Builder) Build() (*Model, error) {
	m := b.model
	errs := append([]error(nil), b.errs...)

	for name, t := range m.structured {
		if t.BaseType != "" {
			t.BaseType = m.qualified(t.BaseType)
			if _, ok := m.structured[t.BaseType]; !ok {
				errs = append(errs, fmt.Errorf("type %s: unknown base type %s", name, t.BaseType))
			}
		}
		for _, p := range t.Properties {
			if !edm.IsPrimitive(p.Type) {
				p.Type = m.qualified(p.Type)
			}
			if m.Kind(p.Type) == KindUnknown {
				errs = append(errs, fmt.Errorf("type %s: property %s has unknown type %s", name, p.Name, p.Type))
			}
			if m.Kind(p.Type) == KindEntity {
				errs = append(errs, fmt.Errorf("type %s: property %s must not be entity typed", name, p.Name))
			}
		}
		for _, n := range t.NavigationProperties {
			n.Target = m.qualified(n.Target)
			if m.Kind(n.Target) != KindEntity {
				errs = append(errs, fmt.Errorf("type %s: navigation property %s targets unknown entity type %s", name, n.Name, n.Target))
			}
		}
		for _, a := range t.CustomAggregates {
			if !edm.IsPrimitive(a.Type) {
				a.Type = m.qualified(a.Type)
			}
		}
	}

	for name, t := range m.structured {
		if !t.IsEntity || t.Abstract {
			continue
		}
		if len(t.Keys) == 0 && t.BaseType == "" {
			errs = append(errs, fmt.Errorf("entity type %s must have at least one key property", name))
		}
		for _, k := range t.Keys {
			if member, ok := m.lookupMember(name, k); !ok || member.Property == nil {
				errs = append(errs, fmt.Errorf("entity type %s: key property %s not found", name, k))
			}
		}
	}

	for _, overloads := range m.functions {
		for _, f := range overloads {
			for i := range f.Parameters {
				f.Parameters[i].Type.Name = qualifyTypeName(m, f.Parameters[i].Type.Name)
			}
			f.ReturnType.Name = qualifyTypeName(m, f.ReturnType.Name)
		}
	}

	for _, set := range m.entitySets {
		if m.Kind(set.EntityType) != KindEntity {
			errs = append(errs, fmt.Errorf("entity set %s: unknown entity type %s", set.Name, set.EntityType))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

func qualifyTypeName(m *Model, name string) string {
	if name == "" || edm.IsPrimitive(name) {
		return name
	}
	return m.qualified(name)
}
