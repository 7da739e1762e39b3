package query

import (
	"strings"
)

// ParseFilter parses a $filter value. The expression must consume the whole
// input and evaluate to Edm.Boolean or null.
func ParseFilter(filterStr string, ctx *ParseContext) (Node, error) {
	ctx = ctx.withOption(OptionFilter)
	if strings.TrimSpace(filterStr) == "" {
		return nil, &SyntaxError{Option: OptionFilter, Message: errEmptyExpression.Error()}
	}

	ts, err := NewTokenStream(OptionFilter, filterStr)
	if err != nil {
		return nil, err
	}
	return parseBooleanExpression(ts, ctx, true)
}

// parseBooleanExpression parses a boolean common expression. When toEOF is
// set the whole stream must be consumed.
func parseBooleanExpression(ts *TokenStream, ctx *ParseContext, toEOF bool) (Node, error) {
	pos := ts.Pos()
	expr, err := (&parser{ts: ts, ctx: ctx}).parseOr()
	if err != nil {
		return nil, err
	}
	if toEOF {
		if err := ts.Require(TokenEOF); err != nil {
			return nil, err
		}
	}
	if t := expr.ResultType(); !ctx.isBoolean(t) {
		return nil, ctx.semantic(pos, CodeResultType, errFilterNotBoolean.Error(), nil, typeNames(t))
	}
	return expr, nil
}
