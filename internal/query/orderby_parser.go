package query

import (
	"strings"
)

// OrderByItem is one sort criterion of $orderby or the orderby transformation.
type OrderByItem struct {
	Expr       Node
	Descending bool
}

// ParseOrderBy parses a $orderby value: expressions separated by commas,
// each optionally followed by asc or desc.
func ParseOrderBy(orderByStr string, ctx *ParseContext) ([]OrderByItem, error) {
	ctx = ctx.withOption(OptionOrderBy)
	if strings.TrimSpace(orderByStr) == "" {
		return nil, &SyntaxError{Option: OptionOrderBy, Message: errEmptyExpression.Error()}
	}

	ts, err := NewTokenStream(OptionOrderBy, orderByStr)
	if err != nil {
		return nil, err
	}
	items, err := parseOrderByItems(ts, ctx)
	if err != nil {
		return nil, err
	}
	if err := ts.Require(TokenEOF); err != nil {
		return nil, err
	}
	return items, nil
}

// parseOrderByItems parses a comma separated list of sort criteria and stops
// at the first token that cannot continue it.
func parseOrderByItems(ts *TokenStream, ctx *ParseContext) ([]OrderByItem, error) {
	p := &parser{ts: ts, ctx: ctx}
	var result []OrderByItem

	for {
		pos := ts.Pos()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t := expr.ResultType(); !t.IsUntyped() && !ctx.isSingleValuedScalar(t) {
			return nil, ctx.semantic(pos, CodeResultType, errOrderByNotPrimitive.Error(), nil, typeNames(t))
		}

		item := OrderByItem{Expr: expr}
		switch {
		case ts.NextKeyword("desc"):
			item.Descending = true
		case ts.NextKeyword("asc"):
		}
		result = append(result, item)

		if !ts.Next(TokenComma) {
			return result, nil
		}
	}
}
