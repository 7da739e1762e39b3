package query

import (
	"fmt"

	"github.com/nlstn/go-odata-query/internal/edm"
	"github.com/nlstn/go-odata-query/internal/metadata"
)

// parseConcat parses concat(seq, seq, ...). Every sequence starts from the
// same input type.
func (ap *applyParser) parseConcat(t *TransientType) (Transformation, error) {
	pos := ap.ts.Pos()
	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}

	c := &ConcatTransformation{}
	var results []*TransientType
	for {
		seq, result, err := ap.parseSequence(t)
		if err != nil {
			return nil, err
		}
		c.Sequences = append(c.Sequences, seq)
		results = append(results, result)
		if !ap.ts.Next(TokenComma) {
			break
		}
	}
	if err := ap.ts.Require(TokenRParen); err != nil {
		return nil, err
	}
	if len(c.Sequences) < 2 {
		return nil, ap.ctx.semantic(pos, CodeArgumentCount, errConcatNeedsTwo.Error(), []string{"concat"}, nil)
	}

	merged, err := ap.mergeTypes(pos, t, results)
	if err != nil {
		return nil, err
	}
	c.result = merged
	return c, nil
}

// mergeTypes unions the properties of the sequence results by name. Numeric
// properties are promoted to the wider type, a property missing from any
// sequence becomes nullable.
func (ap *applyParser) mergeTypes(pos int, input *TransientType, results []*TransientType) (*TransientType, error) {
	type slot struct {
		prop     Property
		typ      metadata.TypeRef
		nullable bool
		changed  bool
		count    int
	}

	var order []string
	slots := make(map[string]*slot)
	for _, r := range results {
		for _, p := range r.Properties() {
			name := p.PropertyName()
			s, ok := slots[name]
			if !ok {
				slots[name] = &slot{prop: p, typ: p.PropertyType(), nullable: p.IsNullable(), count: 1}
				order = append(order, name)
				continue
			}
			s.count++
			if p.IsNullable() && !s.nullable {
				s.nullable = true
				s.changed = true
			}
			merged, err := ap.mergeType(pos, name, s.typ, p.PropertyType())
			if err != nil {
				return nil, err
			}
			if merged != s.typ {
				s.typ = merged
				s.changed = true
			}
		}
	}

	props := make([]Property, 0, len(order))
	keep := make(map[string]bool, len(order))
	for _, name := range order {
		s := slots[name]
		keep[name] = true
		if s.count < len(results) && !s.nullable {
			s.nullable = true
			s.changed = true
		}
		if !s.changed {
			props = append(props, s.prop)
			continue
		}
		dp := &DynamicProperty{Name: name, Type: s.typ, Nullable: s.nullable}
		switch v := s.prop.(type) {
		case *SchemaProperty:
			if v.Navigation != nil {
				props = append(props, s.prop)
				continue
			}
			dp.Facets = v.Property.Facets
		case *DynamicProperty:
			dp.Facets = v.Facets
		}
		props = append(props, dp)
	}

	return input.RetainOnly(keep).WithProperties(props...), nil
}

// mergeType combines two declarations of the same property
func (ap *applyParser) mergeType(pos int, name string, a, b metadata.TypeRef) (metadata.TypeRef, error) {
	if a == b || b.IsUntyped() {
		return a, nil
	}
	if a.IsUntyped() {
		return b, nil
	}
	if a.Collection == b.Collection {
		pa, pb := ap.ctx.primitiveOf(a.Element()), ap.ctx.primitiveOf(b.Element())
		if edm.IsNumeric(pa) && edm.IsNumeric(pb) {
			return metadata.TypeRef{Name: edm.PromoteNumeric(pa, pb), Collection: a.Collection}, nil
		}
	}
	return metadata.TypeRef{}, ap.ctx.semantic(pos, CodeTypeMismatch,
		fmt.Sprintf("concat sequences define property '%s' with incompatible types %s and %s", name, a, b),
		[]string{name}, typeNames(a, b))
}
