package query

import (
	"fmt"
	"strings"
)

// parseGroupBy parses groupby((path, ...)[, pipeline]). Grouped root
// properties are protected while the nested pipeline is parsed; afterwards
// only grouped and produced properties remain.
func (ap *applyParser) parseGroupBy(t *TransientType) (Transformation, error) {
	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}
	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}

	g := &GroupByTransformation{}
	seen := make(map[string]bool)
	var roots []string
	addPath := func(path *MemberExpr) {
		root := path.Segments[0].Name
		for _, r := range roots {
			if r == root {
				return
			}
		}
		roots = append(roots, root)
	}

	for {
		if ap.ts.NextKeyword("rollup") {
			rollup, err := ap.parseRollup(t, seen)
			if err != nil {
				return nil, err
			}
			for _, p := range rollup.Paths {
				addPath(p)
			}
			g.Rollups = append(g.Rollups, rollup)
		} else {
			path, err := ap.parseGroupingPath(t, seen)
			if err != nil {
				return nil, err
			}
			addPath(path)
			g.Properties = append(g.Properties, path)
		}
		if !ap.ts.Next(TokenComma) {
			break
		}
	}
	if err := ap.ts.Require(TokenRParen); err != nil {
		return nil, err
	}

	result := t
	if ap.ts.Next(TokenComma) {
		pipeline, nested, err := ap.parseSequence(t.Protect(roots...))
		if err != nil {
			return nil, err
		}
		g.Pipeline = pipeline
		result = nested
	}
	if err := ap.ts.Require(TokenRParen); err != nil {
		return nil, err
	}

	keep := make(map[string]bool, len(roots))
	for _, r := range roots {
		keep[r] = true
	}
	if len(g.Pipeline) > 0 {
		before := make(map[string]bool)
		for _, name := range t.DynamicNames() {
			before[name] = true
		}
		narrowed := aggregates(g.Pipeline)
		for _, name := range result.PropertyNames() {
			if narrowed || !before[name] && isDynamic(result, name) {
				keep[name] = true
			}
		}
	}
	// an enclosing groupby keeps its own grouping properties protected
	g.result = result.RetainOnly(keep).Unprotect(roots...).Protect(t.ProtectedNames()...)
	return g, nil
}

// aggregates reports whether a nested pipeline already reduced the type to
// grouped and aggregated properties.
func aggregates(pipeline []Transformation) bool {
	for _, step := range pipeline {
		switch step.(type) {
		case *AggregateTransformation, *GroupByTransformation:
			return true
		}
	}
	return false
}

func isDynamic(t *TransientType, name string) bool {
	p, ok := t.Property(name)
	if !ok {
		return false
	}
	_, dynamic := p.(*DynamicProperty)
	return dynamic
}

// parseRollup parses rollup($all|path, path, ...) after its keyword
func (ap *applyParser) parseRollup(t *TransientType, seen map[string]bool) (*Rollup, error) {
	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}
	rollup := &Rollup{}
	if ap.ts.NextKeyword("$all") {
		rollup.All = true
	} else {
		path, err := ap.parseGroupingPath(t, seen)
		if err != nil {
			return nil, err
		}
		rollup.Paths = append(rollup.Paths, path)
	}
	for ap.ts.Next(TokenComma) {
		path, err := ap.parseGroupingPath(t, seen)
		if err != nil {
			return nil, err
		}
		rollup.Paths = append(rollup.Paths, path)
	}
	if err := ap.ts.Require(TokenRParen); err != nil {
		return nil, err
	}
	if len(rollup.Paths) == 0 {
		return nil, ap.ctx.semantic(ap.ts.Pos(), CodeArgumentCount, "rollup requires at least one property path", nil, nil)
	}
	return rollup, nil
}

// parseGroupingPath parses a single-valued property path used for grouping
// and rejects paths that were already grouped.
func (ap *applyParser) parseGroupingPath(t *TransientType, seen map[string]bool) (*MemberExpr, error) {
	pos := ap.ts.Pos()
	node, err := ap.expr(t).parseMemberPath()
	if err != nil {
		return nil, err
	}
	path := node.(*MemberExpr)
	for _, s := range path.Segments {
		if s.Kind == SegCount || s.Kind == SegAny || s.Kind == SegAll {
			return nil, ap.ctx.semantic(pos, CodeNotSingleValued, errGroupingNotSingle.Error(), path.Names(), nil)
		}
	}
	if !singleValuedPath(path) {
		return nil, ap.ctx.semantic(pos, CodeNotSingleValued, errGroupingNotSingle.Error(), path.Names(), nil)
	}

	key := strings.Join(path.Names(), "/")
	if seen[key] {
		return nil, ap.ctx.semantic(pos, CodeDuplicateGrouping,
			fmt.Sprintf("property path '%s' is grouped more than once", key), path.Names(), nil)
	}
	for other := range seen {
		if strings.HasPrefix(key, other+"/") || strings.HasPrefix(other, key+"/") {
			return nil, ap.ctx.semantic(pos, CodeDuplicateGrouping,
				fmt.Sprintf("property paths '%s' and '%s' are ambiguous", other, key), []string{other, key}, nil)
		}
	}
	seen[key] = true
	return path, nil
}
