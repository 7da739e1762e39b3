package cqn

import (
	"github.com/nlstn/go-odata-query/internal/query"
)

// TranslateSearch converts a $search expression into flat infix tokens over
// {val} terms.
func TranslateSearch(expr *query.SearchExpr) []Node {
	if expr == nil {
		return nil
	}
	return Tokens(convertSearch(expr))
}

func convertSearch(e *query.SearchExpr) Node {
	switch e.Op {
	case query.SearchAnd:
		tokens := searchOperand(e.Left)
		tokens = append(tokens, Op("and"))
		return &Xpr{Tokens: append(tokens, searchOperand(e.Right)...)}
	case query.SearchOr:
		tokens := Tokens(convertSearch(e.Left))
		tokens = append(tokens, Op("or"))
		return &Xpr{Tokens: append(tokens, Tokens(convertSearch(e.Right))...)}
	case query.SearchNot:
		return &Xpr{Tokens: []Node{Op("not"), convertSearch(e.Left)}}
	}
	return &Val{Value: e.Term}
}

// searchOperand nests or expressions below and.
func searchOperand(e *query.SearchExpr) []Node {
	n := convertSearch(e)
	if e.Op == query.SearchOr {
		return []Node{n}
	}
	return Tokens(n)
}
