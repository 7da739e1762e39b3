package cqn

import (
	"strings"

	"github.com/nlstn/go-odata-query/internal/edm"
	"github.com/nlstn/go-odata-query/internal/query"
)

// aggregateFunctions maps the standard aggregation methods to storage functions.
var aggregateFunctions = map[query.AggregationMethod]string{
	query.AggregationSum:           "sum",
	query.AggregationAvg:           "avg",
	query.AggregationMin:           "min",
	query.AggregationMax:           "max",
	query.AggregationCountDistinct: "countdistinct",
}

// applyTranslator accumulates the result of an $apply pipeline. Once
// grouped is set, filters apply to aggregated rows. Once limited is set,
// only steps that keep the limited row set exact are accepted.
type applyTranslator struct {
	result   *ApplyResult
	grouped  bool
	limited  bool
	computed []Column
}

// TranslateApply converts parsed $apply transformations into the query AST.
// Filters before the first aggregation become Filter, later ones Having.
// topcount and bottomcount become OrderBy and Limit outside a groupby and a
// BottomTop directive inside one. Steps that would have to run after a top,
// skip or topcount are rejected unless the flat result stays exact.
func TranslateApply(transformations []query.Transformation) (*ApplyResult, error) {
	a := &applyTranslator{result: &ApplyResult{}}
	if err := a.translate(transformations, false); err != nil {
		return nil, err
	}
	if len(a.computed) > 0 {
		if a.grouped {
			return nil, notSupported("compute combined with aggregation")
		}
		a.result.Columns = append([]Column{{Expr: Op("*")}}, a.computed...)
	}
	return a.result, nil
}

func (a *applyTranslator) translate(seq []query.Transformation, inGroupBy bool) error {
	for _, t := range seq {
		if err := a.checkOrder(t, inGroupBy); err != nil {
			return err
		}
		switch tr := t.(type) {
		case *query.IdentityTransformation:

		case *query.FilterTransformation:
			cond, err := Translate(tr.Predicate)
			if err != nil {
				return err
			}
			if a.grouped {
				a.result.Having = conjoin(a.result.Having, cond)
			} else {
				a.result.Filter = conjoin(a.result.Filter, cond)
			}

		case *query.SearchTransformation:
			if a.grouped {
				return notSupported("search after aggregation")
			}
			a.result.Search = conjoin(a.result.Search, &Xpr{Tokens: TranslateSearch(tr.Expr)})

		case *query.ComputeTransformation:
			if a.grouped {
				return notSupported("compute after aggregation")
			}
			for _, e := range tr.Expressions {
				expr, err := Translate(e.Expr)
				if err != nil {
					return err
				}
				a.computed = append(a.computed, Column{Expr: expr, As: e.Alias})
			}

		case *query.GroupByTransformation:
			if a.grouped {
				return notSupported("grouping of aggregated data")
			}
			if len(tr.Rollups) > 0 {
				return notSupported("rollup")
			}
			for _, path := range tr.Properties {
				ref, err := groupingRef(path)
				if err != nil {
					return err
				}
				a.result.GroupBy = append(a.result.GroupBy, ref)
				a.result.Columns = append(a.result.Columns, Column{Expr: ref})
			}
			// aggregated rows carry no order
			a.result.OrderBy = nil
			if err := a.translate(tr.Pipeline, true); err != nil {
				return err
			}
			a.grouped = true

		case *query.AggregateTransformation:
			if a.grouped {
				return notSupported("aggregation of aggregated data")
			}
			for _, expr := range tr.Expressions {
				col, err := aggregateColumn(expr)
				if err != nil {
					return err
				}
				a.result.Aggregations = append(a.result.Aggregations, col)
				a.result.Columns = append(a.result.Columns, col)
			}
			a.result.OrderBy = nil
			a.grouped = true

		case *query.BottomTopTransformation:
			if err := a.translateBottomTop(tr, inGroupBy); err != nil {
				return err
			}

		case *query.OrderByTransformation:
			items, err := TranslateOrderBy(tr.Items)
			if err != nil {
				return err
			}
			a.sortFirst(items...)

		case *query.SkipTransformation:
			limit := a.limit()
			if limit.Top != nil {
				top := *limit.Top - tr.Count
				if top < 0 {
					top = 0
				}
				limit.Top = &top
			}
			skip := tr.Count
			if limit.Skip != nil {
				skip += *limit.Skip
			}
			limit.Skip = &skip
			a.limited = true

		case *query.TopTransformation:
			limit := a.limit()
			top := tr.Count
			if limit.Top != nil && *limit.Top < top {
				top = *limit.Top
			}
			limit.Top = &top
			a.limited = true

		case *query.ConcatTransformation:
			return notSupported("concat")
		case *query.ExpandTransformation:
			return notSupported("expand transformation")
		case *query.CustomFunctionTransformation:
			return notSupported("custom function '%s'", tr.Function.FullName())
		default:
			return notSupported("transformation %s", t.Type())
		}
	}
	return nil
}

// checkOrder rejects steps whose effect depends on running after a limit or
// per group. Inside a groupby row limits and sorting apply per group, which
// the flat result cannot express. After a top, skip or topcount only further
// top, skip, compute and identity steps keep the result exact.
func (a *applyTranslator) checkOrder(t query.Transformation, inGroupBy bool) error {
	switch t.(type) {
	case *query.IdentityTransformation, *query.ComputeTransformation:
		return nil
	case *query.TopTransformation, *query.SkipTransformation, *query.OrderByTransformation:
		if inGroupBy {
			return notSupported("%s inside groupby", t.Type())
		}
		if _, isOrderBy := t.(*query.OrderByTransformation); !isOrderBy {
			return nil
		}
	}
	if a.limited {
		return notSupported("%s after top, skip or topcount", t.Type())
	}
	return nil
}

// sortFirst puts the given sort items ahead of the current ones, which stay
// as tie-breakers.
func (a *applyTranslator) sortFirst(items ...OrderBy) {
	a.result.OrderBy = append(items, a.result.OrderBy...)
}

func (a *applyTranslator) limit() *Limit {
	if a.result.Limit == nil {
		a.result.Limit = &Limit{}
	}
	return a.result.Limit
}

func (a *applyTranslator) translateBottomTop(tr *query.BottomTopTransformation, inGroupBy bool) error {
	if !tr.Method.IsCount() {
		return notSupported("%s", tr.Method)
	}
	n, err := Translate(tr.N)
	if err != nil {
		return err
	}
	value, err := Translate(tr.Value)
	if err != nil {
		return err
	}

	if inGroupBy {
		if a.result.BottomTop != nil {
			return notSupported("more than one top or bottom directive per grouping")
		}
		a.result.BottomTop = &BottomTop{Method: string(tr.Method), N: n, Value: value}
		return nil
	}

	lit, ok := tr.N.(*query.LiteralExpr)
	if !ok {
		return notSupported("%s with a computed count", tr.Method)
	}
	count, ok := lit.Value.(int64)
	if !ok {
		return notSupported("%s with a non-integer count", tr.Method)
	}
	a.sortFirst(OrderBy{Expr: value, Descending: tr.Method.IsTop()})
	a.limit().Top = &count
	a.limited = true
	return nil
}

// groupingRef flattens a grouping path to a dotted name.
func groupingRef(path *query.MemberExpr) (*Ref, error) {
	names := make([]string, 0, len(path.Segments))
	for _, seg := range path.Segments {
		if !seg.Kind.IsProperty() {
			return nil, notSupported("grouping by '%s'", strings.Join(path.Names(), "/"))
		}
		names = append(names, seg.Name)
	}
	return NewRef(strings.Join(names, ".")), nil
}

// aggregateColumn converts one aggregate expression. sum, average and
// countdistinct are cast to Edm.Decimal.
func aggregateColumn(expr *query.AggregateExpression) (Column, error) {
	if len(expr.From) > 0 {
		return Column{}, notSupported("aggregate with from")
	}
	if expr.CustomAggregate != "" {
		return Column{Expr: NewRef(append(append([]string(nil), expr.Prefix...), expr.CustomAggregate)...), As: expr.Alias}, nil
	}

	if expr.Method == query.AggregationCount {
		arg := Node(&Val{Value: 1})
		if len(expr.Prefix) > 0 {
			arg = NewRef(expr.Prefix...)
		}
		return Column{Expr: &Func{Name: "count", Args: []Node{arg}}, As: expr.Alias}, nil
	}

	name, ok := aggregateFunctions[expr.Method]
	if !ok {
		return Column{}, notSupported("custom aggregation method '%s'", expr.Method)
	}
	arg, err := (&converter{prefix: expr.Prefix}).convert(expr.Expr)
	if err != nil {
		return Column{}, err
	}

	col := Column{Expr: &Func{Name: name, Args: []Node{arg}}, As: expr.Alias}
	switch expr.Method {
	case query.AggregationSum, query.AggregationAvg, query.AggregationCountDistinct:
		col.Cast = edm.Decimal
	}
	return col, nil
}

// conjoin appends cond to an existing condition with and. Multi-token
// operands are nested so that or keeps its grouping.
func conjoin(existing []Node, cond Node) []Node {
	next := Tokens(cond)
	if len(existing) == 0 {
		return next
	}
	return []Node{nest(existing), Op("and"), nest(next)}
}

func nest(tokens []Node) Node {
	if len(tokens) == 1 {
		return tokens[0]
	}
	return &Xpr{Tokens: tokens}
}
