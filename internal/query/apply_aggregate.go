package query

import (
	"fmt"

	"github.com/nlstn/go-odata-query/internal/metadata"
)

// parseAggregate parses aggregate(item, ...). Only the new aliases and the
// protected properties remain visible afterwards.
func (ap *applyParser) parseAggregate(t *TransientType) (Transformation, error) {
	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}

	var exprs []*AggregateExpression
	var props []Property
	seen := make(map[string]bool)
	for {
		aliasPos := ap.ts.Pos()
		expr, err := ap.parseAggregateItem(t, t)
		if err != nil {
			return nil, err
		}
		if err := ap.checkAlias(t, seen, expr.Alias, aliasPos); err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		props = append(props, &DynamicProperty{Name: expr.Alias, Type: expr.EdmType, Nullable: true})
		if !ap.ts.Next(TokenComma) {
			break
		}
	}
	if err := ap.ts.Require(TokenRParen); err != nil {
		return nil, err
	}

	return &AggregateTransformation{
		transformationResult: transformationResult{t.WithProperties(props...).RetainOnly(seen)},
		Expressions:          exprs,
	}, nil
}

// parseAggregateItem tries the "expr with method as alias" form first and
// falls back to custom aggregates, $count and nested navigation items. When
// both fail the error of the first form is returned.
func (ap *applyParser) parseAggregateItem(t, outer *TransientType) (*AggregateExpression, error) {
	mark := ap.ts.Mark()
	expr, err := ap.parseAggregateWith(t, outer)
	if err == nil {
		return expr, nil
	}

	ap.ts.Reset(mark)
	fallback, fallbackErr := ap.parseAggregateFallback(t, outer)
	if fallbackErr != nil {
		return nil, err
	}
	return fallback, nil
}

// parseAggregateWith parses commonExpr with method as alias [from path [with method]]*
func (ap *applyParser) parseAggregateWith(t, outer *TransientType) (*AggregateExpression, error) {
	pos := ap.ts.Pos()
	p := &parser{ts: ap.ts, ctx: ap.ctx.withType(t).withCollections()}
	operand, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	if err := ap.ts.RequireKeyword("with"); err != nil {
		return nil, err
	}
	method, resultType, err := ap.parseAggregationMethod(pos, operand.ResultType().Element())
	if err != nil {
		return nil, err
	}
	expr := &AggregateExpression{Expr: operand, Method: method, EdmType: resultType}

	if err := ap.ts.RequireKeyword("as"); err != nil {
		return nil, err
	}
	alias, err := ap.ts.RequireWord()
	if err != nil {
		return nil, err
	}
	expr.Alias = alias

	for ap.ts.NextKeyword("from") {
		fromPos := ap.ts.Pos()
		node, err := ap.expr(outer).parseMemberPath()
		if err != nil {
			return nil, err
		}
		path := node.(*MemberExpr)
		if !singleValuedPath(path) {
			return nil, ap.ctx.semantic(fromPos, CodeNotSingleValued, errGroupingNotSingle.Error(), path.Names(), nil)
		}
		from := FromClause{Path: path}
		if ap.ts.NextKeyword("with") {
			method, _, err := ap.parseAggregationMethod(fromPos, expr.EdmType)
			if err != nil {
				return nil, err
			}
			from.Method = method
		}
		expr.From = append(expr.From, from)
	}

	return expr, nil
}

// parseAggregationMethod parses the method after "with" and returns the
// result type for an operand of type operand.
func (ap *applyParser) parseAggregationMethod(pos int, operand metadata.TypeRef) (AggregationMethod, metadata.TypeRef, error) {
	methodPos := ap.ts.Pos()
	name, err := ap.ts.RequireWord()
	if err != nil {
		return "", metadata.TypeRef{}, err
	}
	method := AggregationMethod(name)

	switch method {
	case AggregationSum, AggregationAvg:
		if !ap.ctx.isNumeric(operand) {
			return "", metadata.TypeRef{}, ap.ctx.semantic(pos, CodeArgumentType,
				fmt.Sprintf("%s: %s is not defined for %s", errAggregateMethodInput, name, operand),
				[]string{name}, typeNames(operand))
		}
		return method, decimalType, nil
	case AggregationMin, AggregationMax:
		if !ap.ctx.isSingleValuedScalar(operand) {
			return "", metadata.TypeRef{}, ap.ctx.semantic(pos, CodeArgumentType,
				fmt.Sprintf("%s: %s is not defined for %s", errAggregateMethodInput, name, operand),
				[]string{name}, typeNames(operand))
		}
		return method, operand, nil
	case AggregationCountDistinct:
		return method, decimalType, nil
	}

	custom, ok := ap.ctx.Model.CustomAggregationMethod(name)
	if !ok {
		return "", metadata.TypeRef{}, ap.ctx.semantic(methodPos, CodeUnknownAggregate,
			fmt.Sprintf("unknown aggregation method '%s'", name), []string{name}, nil)
	}
	if custom.ResultType == "" {
		return method, operand, nil
	}
	return method, metadata.ParseTypeRef(custom.ResultType), nil
}

// parseAggregateFallback parses
// pathPrefix? (customAggregate [as alias] | navPath '(' item ')' | $count as alias)
func (ap *applyParser) parseAggregateFallback(t, outer *TransientType) (*AggregateExpression, error) {
	model := ap.ctx.Model
	current := t.BaseName()
	var prefix []string

	for ap.ts.Peek().Type == TokenWord && ap.ts.PeekAt(1).Type == TokenSlash {
		tok := ap.ts.Peek()
		member, ok := model.FindMember(current, tok.Value)
		if !ok {
			return nil, ap.ctx.semantic(tok.Pos, CodeUnknownProperty,
				fmt.Sprintf("property '%s' not found on type '%s'", tok.Value, current),
				[]string{tok.Value}, []string{current})
		}
		switch {
		case member.Navigation != nil:
			current = member.Navigation.Target
		case model.IsStructured(member.Property.Type):
			current = member.Property.Type
		default:
			return nil, ap.ctx.semantic(tok.Pos, CodeNotStructured,
				fmt.Sprintf("'%s' is not a navigation or complex property", tok.Value), []string{tok.Value}, nil)
		}
		prefix = append(prefix, tok.Value)
		ap.ts.Next(TokenWord)
		ap.ts.Next(TokenSlash)
	}

	tok := ap.ts.Peek()
	if ap.ts.NextKeyword(string(AggregationCount)) {
		if err := ap.ts.RequireKeyword("as"); err != nil {
			return nil, err
		}
		alias, err := ap.ts.RequireWord()
		if err != nil {
			return nil, err
		}
		return &AggregateExpression{Prefix: prefix, Method: AggregationCount, Alias: alias, EdmType: decimalType}, nil
	}

	name, err := ap.ts.RequireWord()
	if err != nil {
		return nil, err
	}

	if ap.ts.Peek().Type == TokenLParen {
		member, ok := model.FindMember(current, name)
		if !ok || member.Navigation == nil {
			return nil, ap.ctx.semantic(tok.Pos, CodeUnknownProperty,
				fmt.Sprintf("navigation property '%s' not found on type '%s'", name, current),
				[]string{name}, []string{current})
		}
		ap.ts.Next(TokenLParen)
		target, _ := model.StructuredType(member.Navigation.Target)
		nested, err := ap.parseAggregateItem(NewTransientType(model, target), outer)
		if err != nil {
			return nil, err
		}
		if err := ap.ts.Require(TokenRParen); err != nil {
			return nil, err
		}
		nested.Prefix = append(append(append([]string(nil), prefix...), name), nested.Prefix...)
		return nested, nil
	}

	custom, ok := model.CustomAggregate(current, name)
	if !ok {
		return nil, ap.ctx.semantic(tok.Pos, CodeUnknownAggregate,
			fmt.Sprintf("'%s' is not a custom aggregate of type '%s'", name, current),
			[]string{name}, []string{current})
	}
	expr := &AggregateExpression{
		Prefix:          prefix,
		CustomAggregate: custom.Name,
		Alias:           custom.Name,
		EdmType:         metadata.ParseTypeRef(custom.Type),
	}
	if ap.ts.NextKeyword("as") {
		alias, err := ap.ts.RequireWord()
		if err != nil {
			return nil, err
		}
		expr.Alias = alias
	}
	return expr, nil
}
