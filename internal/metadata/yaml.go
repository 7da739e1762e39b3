package metadata

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nlstn/go-odata-query/internal/edm"
)

// modelFile is the YAML document layout of a model description.
type modelFile struct {
	Namespace                string              `yaml:"namespace"`
	EntityTypes              []structuredFile    `yaml:"entityTypes"`
	ComplexTypes             []structuredFile    `yaml:"complexTypes"`
	EnumTypes                []enumFile          `yaml:"enumTypes"`
	TypeDefinitions          []typeDefFile       `yaml:"typeDefinitions"`
	Functions                []functionFile      `yaml:"functions"`
	CustomAggregationMethods []aggregationMethod `yaml:"customAggregationMethods"`
	EntitySets               []entitySetFile     `yaml:"entitySets"`
}

type structuredFile struct {
	Name                 string               `yaml:"name"`
	BaseType             string               `yaml:"baseType"`
	Abstract             bool                 `yaml:"abstract"`
	OpenType             bool                 `yaml:"openType"`
	Key                  []string             `yaml:"key"`
	Properties           []propertyFile       `yaml:"properties"`
	NavigationProperties []navigationFile     `yaml:"navigationProperties"`
	CustomAggregates     []customAggregateRef `yaml:"customAggregates"`
}

type propertyFile struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Nullable   bool   `yaml:"nullable"`
	MaxLength  *int   `yaml:"maxLength"`
	Precision  *int   `yaml:"precision"`
	Scale      string `yaml:"scale"`
	SRID       *int   `yaml:"srid"`
	Unicode    *bool  `yaml:"unicode"`
	Searchable bool   `yaml:"searchable"`
}

type navigationFile struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

type customAggregateRef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type enumFile struct {
	Name           string `yaml:"name"`
	UnderlyingType string `yaml:"underlyingType"`
	Flags          bool   `yaml:"flags"`
	Members        []struct {
		Name  string `yaml:"name"`
		Value int64  `yaml:"value"`
	} `yaml:"members"`
}

type typeDefFile struct {
	Name           string `yaml:"name"`
	UnderlyingType string `yaml:"underlyingType"`
	MaxLength      *int   `yaml:"maxLength"`
	Precision      *int   `yaml:"precision"`
	Scale          string `yaml:"scale"`
}

type functionFile struct {
	Name       string `yaml:"name"`
	Bound      bool   `yaml:"bound"`
	Parameters []struct {
		Name     string `yaml:"name"`
		Type     string `yaml:"type"`
		Nullable bool   `yaml:"nullable"`
	} `yaml:"parameters"`
	ReturnType string `yaml:"returnType"`
}

type aggregationMethod struct {
	Name       string `yaml:"name"`
	ResultType string `yaml:"resultType"`
}

type entitySetFile struct {
	Name       string `yaml:"name"`
	EntityType string `yaml:"entityType"`
}

// LoadFile reads a YAML model description from disk.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return Load(f)
}

// Load reads a YAML model description. Type references inside the document
// may be qualified or relative to its namespace; collections are written as
// Collection(Type).
func Load(r io.Reader) (*Model, error) {
	var doc modelFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if doc.Namespace == "" {
		return nil, fmt.Errorf("decode model: namespace is required")
	}

	b := NewBuilder(doc.Namespace)
	for _, t := range doc.EntityTypes {
		st, err := t.toStructured(true)
		if err != nil {
			return nil, err
		}
		b.AddStructuredType(st)
	}
	for _, t := range doc.ComplexTypes {
		st, err := t.toStructured(false)
		if err != nil {
			return nil, err
		}
		b.AddStructuredType(st)
	}
	for _, e := range doc.EnumTypes {
		enum := &EnumType{Name: e.Name, UnderlyingType: e.UnderlyingType, IsFlags: e.Flags}
		for _, m := range e.Members {
			enum.Members = append(enum.Members, EnumMember{Name: m.Name, Value: m.Value})
		}
		b.AddEnumType(enum)
	}
	for _, d := range doc.TypeDefinitions {
		facets, err := fileFacets(d.MaxLength, d.Precision, d.Scale, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("type definition %s: %w", d.Name, err)
		}
		b.AddTypeDefinition(&TypeDefinition{Name: d.Name, UnderlyingType: d.UnderlyingType, Facets: facets})
	}
	for _, f := range doc.Functions {
		fn := &Function{Name: f.Name, IsBound: f.Bound, ReturnType: ParseTypeRef(f.ReturnType)}
		for _, p := range f.Parameters {
			fn.Parameters = append(fn.Parameters, Parameter{Name: p.Name, Type: ParseTypeRef(p.Type), Nullable: p.Nullable})
		}
		b.AddFunction(fn)
	}
	for _, m := range doc.CustomAggregationMethods {
		b.AddCustomAggregationMethod(&CustomAggregationMethod{Name: m.Name, ResultType: m.ResultType})
	}
	for _, s := range doc.EntitySets {
		b.AddEntitySet(s.Name, s.EntityType)
	}
	return b.Build()
}

func (t structuredFile) toStructured(isEntity bool) (*StructuredType, error) {
	st := &StructuredType{
		Name:     t.Name,
		IsEntity: isEntity,
		BaseType: t.BaseType,
		Abstract: t.Abstract,
		OpenType: t.OpenType,
		Keys:     t.Key,
	}
	for _, p := range t.Properties {
		ref := ParseTypeRef(p.Type)
		facets, err := fileFacets(p.MaxLength, p.Precision, p.Scale, p.SRID, p.Unicode)
		if err != nil {
			return nil, fmt.Errorf("type %s, property %s: %w", t.Name, p.Name, err)
		}
		facets.Nullable = p.Nullable
		st.Properties = append(st.Properties, &Property{
			Name:       p.Name,
			Type:       ref.Name,
			Collection: ref.Collection,
			Nullable:   p.Nullable,
			Facets:     facets,
			Searchable: p.Searchable,
		})
	}
	for _, n := range t.NavigationProperties {
		ref := ParseTypeRef(n.Type)
		st.NavigationProperties = append(st.NavigationProperties, &NavigationProperty{
			Name:       n.Name,
			Target:     ref.Name,
			Collection: ref.Collection,
			Nullable:   n.Nullable,
		})
	}
	for _, a := range t.CustomAggregates {
		st.CustomAggregates = append(st.CustomAggregates, &CustomAggregate{Name: a.Name, Type: a.Type})
	}
	return st, nil
}

func fileFacets(maxLength, precision *int, scale string, srid *int, unicode *bool) (edm.Facets, error) {
	facets := edm.Facets{MaxLength: maxLength, Precision: precision, SRID: srid, Unicode: unicode}
	if scale == "" {
		return facets, nil
	}
	_, parsed, err := edm.ParseTypeFromTag("scale=" + scale)
	if err != nil {
		return edm.Facets{}, err
	}
	facets.Scale = parsed.Scale
	facets.ScaleVariable = parsed.ScaleVariable
	return facets, nil
}
