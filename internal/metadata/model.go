package metadata

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/nlstn/go-odata-query/internal/edm"
)

// TypeKind classifies a type name resolved against a Model.
type TypeKind int

const (
	KindUnknown TypeKind = iota
	KindPrimitive
	KindEnum
	KindTypeDefinition
	KindComplex
	KindEntity
)

func (k TypeKind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindEnum:
		return "enum"
	case KindTypeDefinition:
		return "type definition"
	case KindComplex:
		return "complex"
	case KindEntity:
		return "entity"
	default:
		return "unknown"
	}
}

// TypeRef references a (possibly collection valued) type by qualified name.
// The zero value is the untyped null.
type TypeRef struct {
	Name       string
	Collection bool
}

// IsUntyped reports whether the reference carries no type (the null literal).
func (r TypeRef) IsUntyped() bool {
	return r.Name == ""
}

// Element returns the single-valued element type of a collection reference.
func (r TypeRef) Element() TypeRef {
	return TypeRef{Name: r.Name}
}

func (r TypeRef) String() string {
	if r.Name == "" {
		return "null"
	}
	if r.Collection {
		return "Collection(" + r.Name + ")"
	}
	return r.Name
}

// ParseTypeRef parses "Ns.Type" or "Collection(Ns.Type)".
func ParseTypeRef(s string) TypeRef {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "Collection(") && strings.HasSuffix(s, ")") {
		return TypeRef{Name: strings.TrimSuffix(strings.TrimPrefix(s, "Collection("), ")"), Collection: true}
	}
	return TypeRef{Name: s}
}

// Property is a structural property of an entity or complex type.
type Property struct {
	Name       string
	Type       string
	Collection bool
	Nullable   bool
	Facets     edm.Facets
	FieldName  string
	Searchable bool
}

// TypeRef returns the declared type of the property.
func (p *Property) TypeRef() TypeRef {
	return TypeRef{Name: p.Type, Collection: p.Collection}
}

// NavigationProperty relates an entity type to another entity type.
type NavigationProperty struct {
	Name       string
	Target     string
	Collection bool
	Nullable   bool
	FieldName  string
}

// TypeRef returns the declared type of the navigation property.
func (n *NavigationProperty) TypeRef() TypeRef {
	return TypeRef{Name: n.Target, Collection: n.Collection}
}

// CustomAggregate is a named aggregate declared for a structured type.
type CustomAggregate struct {
	Name string
	Type string
}

// CustomAggregationMethod is a qualified aggregation method usable after "with".
// An empty ResultType means the method returns the operand type.
type CustomAggregationMethod struct {
	Name       string
	ResultType string
}

// StructuredType is an entity type or complex type.
type StructuredType struct {
	Namespace            string
	Name                 string
	IsEntity             bool
	BaseType             string
	Abstract             bool
	OpenType             bool
	Keys                 []string
	Properties           []*Property
	NavigationProperties []*NavigationProperty
	CustomAggregates     []*CustomAggregate
}

// FullName returns the namespace qualified type name.
func (t *StructuredType) FullName() string {
	return qualify(t.Namespace, t.Name)
}

// EnumMember is a single member of an enum type.
type EnumMember struct {
	Name  string
	Value int64
}

// EnumType is an enumeration type.
type EnumType struct {
	Namespace      string
	Name           string
	UnderlyingType string
	IsFlags        bool
	Members        []EnumMember
}

// FullName returns the namespace qualified type name.
func (e *EnumType) FullName() string {
	return qualify(e.Namespace, e.Name)
}

// Member looks up an enum member by name.
func (e *EnumType) Member(name string) (EnumMember, bool) {
	for _, m := range e.Members {
		if m.Name == name {
			return m, true
		}
	}
	return EnumMember{}, false
}

// TypeDefinition names a primitive type with fixed facets.
type TypeDefinition struct {
	Namespace      string
	Name           string
	UnderlyingType string
	Facets         edm.Facets
}

// FullName returns the namespace qualified type name.
func (d *TypeDefinition) FullName() string {
	return qualify(d.Namespace, d.Name)
}

// Parameter is a function parameter.
type Parameter struct {
	Name     string
	Type     TypeRef
	Nullable bool
}

// Function is a bound or unbound function.
type Function struct {
	Namespace  string
	Name       string
	IsBound    bool
	Parameters []Parameter
	ReturnType TypeRef
}

// FullName returns the namespace qualified function name.
func (f *Function) FullName() string {
	return qualify(f.Namespace, f.Name)
}

// EntitySet is a named collection of entities of one entity type.
type EntitySet struct {
	Name       string
	EntityType string
}

// Model is a read-only entity data model. It is safe for concurrent use.
type Model struct {
	namespace  string
	structured map[string]*StructuredType
	enums      map[string]*EnumType
	typeDefs   map[string]*TypeDefinition
	functions  map[string][]*Function
	methods    map[string]*CustomAggregationMethod
	entitySets map[string]*EntitySet
	setOrder   []string

	memberCache sync.Map
}

// Namespace returns the default schema namespace.
func (m *Model) Namespace() string {
	return m.namespace
}

// StructuredType looks up an entity or complex type by qualified name.
// Unqualified names are resolved in the default namespace.
func (m *Model) StructuredType(name string) (*StructuredType, bool) {
	t, ok := m.structured[m.qualified(name)]
	return t, ok
}

// EnumType looks up an enum type.
func (m *Model) EnumType(name string) (*EnumType, bool) {
	e, ok := m.enums[m.qualified(name)]
	return e, ok
}

// TypeDefinition looks up a type definition.
func (m *Model) TypeDefinition(name string) (*TypeDefinition, bool) {
	d, ok := m.typeDefs[m.qualified(name)]
	return d, ok
}

// EntitySet looks up an entity set by name.
func (m *Model) EntitySet(name string) (*EntitySet, bool) {
	s, ok := m.entitySets[name]
	return s, ok
}

// EntitySets returns all entity sets in declaration order.
func (m *Model) EntitySets() []*EntitySet {
	sets := make([]*EntitySet, 0, len(m.setOrder))
	for _, name := range m.setOrder {
		sets = append(sets, m.entitySets[name])
	}
	return sets
}

// Functions returns the overloads of a function by qualified name.
func (m *Model) Functions(name string) []*Function {
	return m.functions[m.qualified(name)]
}

// CustomAggregationMethod looks up a custom aggregation method by qualified name.
func (m *Model) CustomAggregationMethod(name string) (*CustomAggregationMethod, bool) {
	method, ok := m.methods[name]
	return method, ok
}

// Kind classifies a type name.
func (m *Model) Kind(name string) TypeKind {
	if edm.IsPrimitive(name) {
		return KindPrimitive
	}
	q := m.qualified(name)
	if t, ok := m.structured[q]; ok {
		if t.IsEntity {
			return KindEntity
		}
		return KindComplex
	}
	if _, ok := m.enums[q]; ok {
		return KindEnum
	}
	if _, ok := m.typeDefs[q]; ok {
		return KindTypeDefinition
	}
	return KindUnknown
}

// IsStructured reports whether name refers to an entity or complex type.
func (m *Model) IsStructured(name string) bool {
	k := m.Kind(name)
	return k == KindEntity || k == KindComplex
}

// PrimitiveOf returns the primitive type behind a primitive type, enum or type
// definition. Enums map to their underlying integer type.
func (m *Model) PrimitiveOf(name string) string {
	switch m.Kind(name) {
	case KindPrimitive:
		return name
	case KindEnum:
		e, _ := m.EnumType(name)
		return e.UnderlyingType
	case KindTypeDefinition:
		d, _ := m.TypeDefinition(name)
		return d.UnderlyingType
	}
	return ""
}

// IsDerivedFrom reports whether derived equals base or inherits from it.
func (m *Model) IsDerivedFrom(derived, base string) bool {
	base = m.qualified(base)
	for name := m.qualified(derived); name != ""; {
		if name == base {
			return true
		}
		t, ok := m.structured[name]
		if !ok {
			return false
		}
		name = t.BaseType
	}
	return false
}

// AllProperties returns the structural properties of a type including the
// inherited ones, base type properties first.
func (m *Model) AllProperties(typeName string) []*Property {
	var chain []*StructuredType
	for name := m.qualified(typeName); name != ""; {
		t, ok := m.structured[name]
		if !ok {
			break
		}
		chain = append(chain, t)
		name = t.BaseType
	}
	var props []*Property
	for i := len(chain) - 1; i >= 0; i-- {
		props = append(props, chain[i].Properties...)
	}
	return props
}

// AllNavigationProperties returns the navigation properties of a type
// including the inherited ones.
func (m *Model) AllNavigationProperties(typeName string) []*NavigationProperty {
	var navs []*NavigationProperty
	var chain []*StructuredType
	for name := m.qualified(typeName); name != ""; {
		t, ok := m.structured[name]
		if !ok {
			break
		}
		chain = append(chain, t)
		name = t.BaseType
	}
	for i := len(chain) - 1; i >= 0; i-- {
		navs = append(navs, chain[i].NavigationProperties...)
	}
	return navs
}

// Member is the result of a member lookup: exactly one of the fields is set.
type Member struct {
	Property   *Property
	Navigation *NavigationProperty
}

type memberEntry struct {
	typeName string
	name     string
	member   Member
	found    bool
}

// FindMember resolves a structural or navigation property of a type,
// following the base type chain. Results are cached.
func (m *Model) FindMember(typeName, name string) (Member, bool) {
	typeName = m.qualified(typeName)
	key := xxhash.Sum64String(typeName + "/" + name)
	if cached, ok := m.memberCache.Load(key); ok {
		entry := cached.(*memberEntry)
		if entry.typeName == typeName && entry.name == name {
			return entry.member, entry.found
		}
		return m.lookupMember(typeName, name)
	}

	member, found := m.lookupMember(typeName, name)
	m.memberCache.Store(key, &memberEntry{typeName: typeName, name: name, member: member, found: found})
	return member, found
}

func (m *Model) lookupMember(typeName, name string) (Member, bool) {
	for current := typeName; current != ""; {
		t, ok := m.structured[current]
		if !ok {
			break
		}
		for _, p := range t.Properties {
			if p.Name == name {
				return Member{Property: p}, true
			}
		}
		for _, n := range t.NavigationProperties {
			if n.Name == name {
				return Member{Navigation: n}, true
			}
		}
		current = t.BaseType
	}
	return Member{}, false
}

// CustomAggregate resolves a custom aggregate declared on a type or one of
// its base types.
func (m *Model) CustomAggregate(typeName, name string) (*CustomAggregate, bool) {
	for current := m.qualified(typeName); current != ""; {
		t, ok := m.structured[current]
		if !ok {
			break
		}
		for _, a := range t.CustomAggregates {
			if a.Name == name {
				return a, true
			}
		}
		current = t.BaseType
	}
	return nil, false
}

func (m *Model) qualified(name string) string {
	if name == "" || strings.Contains(name, ".") {
		return name
	}
	return qualify(m.namespace, name)
}

func qualify(namespace, name string) string {
	if namespace == "" || strings.Contains(name, ".") {
		return name
	}
	return fmt.Sprintf("%s.%s", namespace, name)
}
