package query

import (
	"fmt"
	"strings"

	"github.com/nlstn/go-odata-query/internal/metadata"
)

// parseMemberPath parses a path such as Category/Name, Sales/$count,
// Tags/any(t: t eq 'x') or Ns.Derived/Prop.
func (p *parser) parseMemberPath() (Node, error) {
	first := p.ts.Peek()
	if err := p.ts.Require(TokenWord); err != nil {
		return nil, err
	}

	seg, err := p.resolveFirstSegment(first)
	if err != nil {
		return nil, err
	}
	segments := []*Segment{seg}
	current := seg.Type

	for p.navigable(current) && p.ts.PeekAt(0).Type == TokenSlash && p.ts.PeekAt(1).Type == TokenWord {
		p.ts.Next(TokenSlash)
		t := p.ts.Peek()
		p.ts.Next(TokenWord)

		switch {
		case t.Value == "$count":
			if !current.Collection {
				return nil, p.ctx.semantic(t.Pos, CodeNotCollection,
					fmt.Sprintf("$count requires a collection, got %s", current), nil, typeNames(current))
			}
			segments = append(segments, &Segment{Kind: SegCount, Name: t.Value, Type: int64Type})
			return &MemberExpr{Segments: segments, EdmType: int64Type}, nil

		case (t.Value == "any" || t.Value == "all") && p.ts.Peek().Type == TokenLParen:
			if !current.Collection {
				return nil, p.ctx.semantic(t.Pos, CodeNotCollection,
					fmt.Sprintf("lambda operator '%s' requires a collection, got %s", t.Value, current),
					nil, typeNames(current))
			}
			lambdaSeg, err := p.parseLambda(t, current)
			if err != nil {
				return nil, err
			}
			segments = append(segments, lambdaSeg)
			return &MemberExpr{Segments: segments, EdmType: booleanType}, nil
		}

		next, err := p.resolveSegment(t, current)
		if err != nil {
			return nil, err
		}
		segments = append(segments, next)
		current = next.Type
	}

	return &MemberExpr{Segments: segments, EdmType: current}, nil
}

// navigable reports whether a path may continue after a value of type t.
func (p *parser) navigable(t metadata.TypeRef) bool {
	return t.Collection || p.ctx.isStructured(t)
}

// resolveFirstSegment resolves the head of a path: a lambda variable, $it,
// $root, a cross-joined entity set or a property of the current type.
func (p *parser) resolveFirstSegment(t *Token) (*Segment, error) {
	name := t.Value

	if v, ok := p.ctx.lookupVariable(name); ok {
		return &Segment{Kind: SegLambdaVariable, Name: name, Type: v.typ}, nil
	}

	switch name {
	case "$it", "$this":
		if p.ctx.Type == nil {
			return nil, p.ctx.semantic(t.Pos, CodeUnknownProperty, name+" is not available here", []string{name}, nil)
		}
		return &Segment{Kind: SegIt, Name: name, Type: metadata.TypeRef{Name: p.ctx.Type.BaseName()}}, nil
	case "$root":
		return p.parseRoot(t)
	}

	if len(p.ctx.CrossJoin) > 0 {
		for _, setName := range p.ctx.CrossJoin {
			if setName != name {
				continue
			}
			set, ok := p.ctx.Model.EntitySet(name)
			if !ok {
				break
			}
			return &Segment{Kind: SegEntitySet, Name: name, Type: metadata.TypeRef{Name: set.EntityType}}, nil
		}
		return nil, p.ctx.semantic(t.Pos, CodeUnknownProperty,
			fmt.Sprintf("'%s' is not one of the cross-joined entity sets %s", name, strings.Join(p.ctx.CrossJoin, ", ")),
			[]string{name}, nil)
	}

	if p.ctx.Type == nil {
		return nil, p.ctx.semantic(t.Pos, CodeUnknownProperty, fmt.Sprintf("property '%s' not found", name),
			[]string{name}, nil)
	}

	if prop, ok := p.ctx.Type.Property(name); ok {
		return p.segmentFor(prop), nil
	}
	if strings.Contains(name, ".") || p.ctx.Type.Base().OpenType {
		return p.resolveSegment(t, metadata.TypeRef{Name: p.ctx.Type.BaseName()})
	}
	return nil, p.ctx.semantic(t.Pos, CodeUnknownProperty,
		fmt.Sprintf("property '%s' not found on type '%s'", name, p.ctx.Type.BaseName()),
		[]string{name}, []string{p.ctx.Type.BaseName()})
}

// parseRoot parses $root/EntitySet
func (p *parser) parseRoot(t *Token) (*Segment, error) {
	if err := p.ts.Require(TokenSlash); err != nil {
		return nil, err
	}
	setName, err := p.ts.RequireWord()
	if err != nil {
		return nil, err
	}
	set, ok := p.ctx.Model.EntitySet(setName)
	if !ok {
		return nil, p.ctx.semantic(t.Pos, CodeUnknownProperty, fmt.Sprintf("entity set '%s' not found", setName),
			[]string{setName}, nil)
	}
	return &Segment{
		Kind: SegEntitySet,
		Name: setName,
		Type: metadata.TypeRef{Name: set.EntityType, Collection: true},
	}, nil
}

// segmentFor converts a visible property of the transient type to a segment.
func (p *parser) segmentFor(prop Property) *Segment {
	switch v := prop.(type) {
	case *SchemaProperty:
		if v.Navigation != nil {
			return navigationSegment(v.Navigation)
		}
		return p.propertySegment(v.Property)
	case *DynamicProperty:
		return &Segment{Kind: SegDynamicProperty, Name: v.Name, Type: v.Type}
	}
	return nil
}

func navigationSegment(n *metadata.NavigationProperty) *Segment {
	kind := SegNavigationToOne
	if n.Collection {
		kind = SegNavigationToMany
	}
	return &Segment{Kind: kind, Name: n.Name, Type: n.TypeRef(), Navigation: n}
}

func (p *parser) propertySegment(prop *metadata.Property) *Segment {
	seg := &Segment{Name: prop.Name, Type: prop.TypeRef(), Property: prop}
	structured := p.ctx.Model.IsStructured(prop.Type)
	switch {
	case structured && prop.Collection:
		seg.Kind = SegComplexCollection
	case structured:
		seg.Kind = SegComplexProperty
	case prop.Collection:
		seg.Kind = SegPrimitiveCollection
	default:
		seg.Kind = SegPrimitiveProperty
	}
	return seg
}

// resolveSegment resolves a property or type cast on the structured type
// reached so far.
func (p *parser) resolveSegment(t *Token, current metadata.TypeRef) (*Segment, error) {
	name := t.Value
	model := p.ctx.Model

	if strings.Contains(name, ".") {
		if !model.IsStructured(name) && model.Kind(name) == metadata.KindUnknown {
			return nil, p.ctx.semantic(t.Pos, CodeUnknownType, fmt.Sprintf("unknown type '%s'", name), []string{name}, nil)
		}
		if !model.IsStructured(current.Name) || !model.IsDerivedFrom(name, current.Name) {
			return nil, p.ctx.semantic(t.Pos, CodeTypeMismatch,
				fmt.Sprintf("type '%s' is not derived from '%s'", name, current.Name),
				[]string{name}, []string{name, current.Name})
		}
		st, _ := model.StructuredType(name)
		return &Segment{
			Kind: SegTypeCast,
			Name: name,
			Type: metadata.TypeRef{Name: st.FullName(), Collection: current.Collection},
		}, nil
	}

	if !model.IsStructured(current.Name) {
		return nil, p.ctx.semantic(t.Pos, CodeNotStructured,
			fmt.Sprintf("'%s' cannot be applied to a value of type %s", name, current), []string{name}, typeNames(current))
	}
	if current.Collection && !p.ctx.allowCollection {
		return nil, p.ctx.semantic(t.Pos, CodeNotSingleValued,
			fmt.Sprintf("property '%s' cannot be accessed on the collection %s, use any or all", name, current),
			[]string{name}, typeNames(current))
	}

	member, ok := model.FindMember(current.Name, name)
	if !ok {
		if st, isStructured := model.StructuredType(current.Name); isStructured && st.OpenType {
			return &Segment{Kind: SegDynamicProperty, Name: name, Type: metadata.TypeRef{Collection: current.Collection}}, nil
		}
		return nil, p.ctx.semantic(t.Pos, CodeUnknownProperty,
			fmt.Sprintf("property '%s' not found on type '%s'", name, current.Name),
			[]string{name}, []string{current.Name})
	}

	var seg *Segment
	if member.Navigation != nil {
		seg = navigationSegment(member.Navigation)
	} else {
		seg = p.propertySegment(member.Property)
	}
	if current.Collection {
		seg.Type.Collection = true
	}
	return seg, nil
}

// parseLambda parses the body of any(...) or all(...) after its keyword.
func (p *parser) parseLambda(op *Token, collection metadata.TypeRef) (*Segment, error) {
	kind := SegAny
	if op.Value == "all" {
		kind = SegAll
	}
	seg := &Segment{Kind: kind, Name: op.Value, Type: booleanType, Lambda: &Lambda{}}

	if err := p.ts.Require(TokenLParen); err != nil {
		return nil, err
	}
	if kind == SegAny && p.ts.Next(TokenRParen) {
		return seg, nil
	}

	varTok := p.ts.Peek()
	variable, err := p.ts.RequireWord()
	if err != nil {
		return nil, err
	}
	if _, exists := p.ctx.lookupVariable(variable); exists {
		return nil, p.ctx.semantic(varTok.Pos, CodeDuplicateVariable,
			fmt.Sprintf("lambda variable '%s' is already defined", variable), []string{variable}, nil)
	}
	if err := p.ts.Require(TokenColon); err != nil {
		return nil, err
	}
	if err := p.ctx.enter(p.ts); err != nil {
		return nil, err
	}
	defer p.ctx.leave()

	inner := *p.ctx
	inner.variables = append(append([]lambdaVariable(nil), p.ctx.variables...), lambdaVariable{name: variable, typ: collection.Element()})
	inner.allowCollection = false

	predPos := p.ts.Pos()
	predicate, err := p.with(&inner).parseOr()
	if err != nil {
		return nil, err
	}
	if t := predicate.ResultType(); !inner.isBoolean(t) {
		return nil, p.ctx.semantic(predPos, CodeResultType, errLambdaNotBoolean.Error(), nil, typeNames(t))
	}
	if err := p.ts.Require(TokenRParen); err != nil {
		return nil, err
	}

	seg.Lambda = &Lambda{Variable: variable, Predicate: predicate}
	return seg, nil
}

// singleValuedPath reports whether every segment of a member path is single-valued.
func singleValuedPath(m *MemberExpr) bool {
	for _, s := range m.Segments {
		if s.Type.Collection {
			return false
		}
	}
	return true
}
