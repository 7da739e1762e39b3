package cqn

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nlstn/go-odata-query/internal/query"
)

// operators maps the translatable binary operators to their query AST tokens.
var operators = map[query.BinaryOp]Op{
	query.OpOr:    "or",
	query.OpAnd:   "and",
	query.OpEq:    "=",
	query.OpNe:    "!=",
	query.OpGt:    ">",
	query.OpGe:    ">=",
	query.OpLt:    "<",
	query.OpLe:    "<=",
	query.OpIn:    "in",
	query.OpAdd:   "+",
	query.OpSub:   "-",
	query.OpMul:   "*",
	query.OpDiv:   "/",
	query.OpDivBy: "/",
	query.OpMod:   "%",
}

// supportedMethods lists the methods storage understands under their OData name.
var supportedMethods = map[string]bool{
	"contains":   true,
	"startswith": true,
	"endswith":   true,
	"length":     true,
	"indexof":    true,
	"substring":  true,
	"tolower":    true,
	"toupper":    true,
	"trim":       true,
	"concat":     true,
	"year":       true,
	"month":      true,
	"day":        true,
	"hour":       true,
	"minute":     true,
	"second":     true,
	"date":       true,
	"time":       true,
	"now":        true,
	"round":      true,
	"floor":      true,
	"ceiling":    true,
}

func notSupported(format string, args ...interface{}) error {
	return &query.NotSupportedError{Feature: fmt.Sprintf(format, args...)}
}

// converter holds the state of one translation. variable is the lambda
// variable in scope, prefix is prepended to every member path.
type converter struct {
	variable string
	prefix   []string
}

// Translate converts a parsed expression into the query AST. Binary and
// unary expressions become an *Xpr holding the flat infix token list.
func Translate(node query.Node) (Node, error) {
	return (&converter{}).convert(node)
}

// TranslateOrderBy converts sort criteria.
func TranslateOrderBy(items []query.OrderByItem) ([]OrderBy, error) {
	c := &converter{}
	result := make([]OrderBy, 0, len(items))
	for _, item := range items {
		expr, err := c.convert(item.Expr)
		if err != nil {
			return nil, err
		}
		result = append(result, OrderBy{Expr: expr, Descending: item.Descending})
	}
	return result, nil
}

func (c *converter) convert(node query.Node) (Node, error) {
	switch n := node.(type) {
	case *query.BinaryExpr:
		return c.convertBinary(n)
	case *query.UnaryExpr:
		return c.convertUnary(n)
	case *query.LiteralExpr:
		return convertLiteral(n), nil
	case *query.MemberExpr:
		return c.convertMember(n)
	case *query.MethodCallExpr:
		return c.convertMethod(n)
	case *query.AliasExpr:
		return c.convert(n.Value)
	case *query.ListExpr:
		list := &List{Items: make([]Node, 0, len(n.Items))}
		for _, item := range n.Items {
			converted, err := c.convert(item)
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, converted)
		}
		return list, nil
	}
	return nil, notSupported("expression %T", node)
}

// precedence of a parsed node; operands bind tighter than any operator
func precedence(node query.Node) int {
	switch n := node.(type) {
	case *query.BinaryExpr:
		return n.Op.Precedence()
	case *query.UnaryExpr:
		return n.Op.Precedence()
	case *query.AliasExpr:
		return precedence(n.Value)
	}
	return math.MaxInt
}

// operand converts a child of a binary expression. Children binding weaker
// than the parent, and right children binding equally, are nested in an xpr.
func (c *converter) operand(child query.Node, parent query.BinaryOp, right bool) ([]Node, error) {
	converted, err := c.convert(child)
	if err != nil {
		return nil, err
	}
	p := precedence(child)
	if p < parent.Precedence() || right && p == parent.Precedence() {
		return []Node{converted}, nil
	}
	return Tokens(converted), nil
}

func (c *converter) convertBinary(n *query.BinaryExpr) (Node, error) {
	op, ok := operators[n.Op]
	if !ok {
		return nil, notSupported("operator '%s'", n.Op)
	}

	if n.Op == query.OpEq || n.Op == query.OpNe {
		if operand, isNull := nullComparison(n); isNull {
			tokens, err := c.operand(operand, n.Op, false)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Op("is"))
			if n.Op == query.OpNe {
				tokens = append(tokens, Op("not"))
			}
			return &Xpr{Tokens: append(tokens, Op("null"))}, nil
		}
	}

	if n.Op == query.OpIn {
		if _, isList := n.Right.(*query.ListExpr); !isList {
			return nil, notSupported("'in' with a collection-valued operand")
		}
	}

	left, err := c.operand(n.Left, n.Op, false)
	if err != nil {
		return nil, err
	}
	right, err := c.operand(n.Right, n.Op, true)
	if err != nil {
		return nil, err
	}
	tokens := make([]Node, 0, len(left)+len(right)+1)
	tokens = append(tokens, left...)
	tokens = append(tokens, op)
	tokens = append(tokens, right...)
	return &Xpr{Tokens: tokens}, nil
}

// nullComparison returns the non-null operand of x eq null or null eq x.
func nullComparison(n *query.BinaryExpr) (query.Node, bool) {
	if isNullLiteral(n.Right) {
		return n.Left, true
	}
	if isNullLiteral(n.Left) {
		return n.Right, true
	}
	return nil, false
}

func isNullLiteral(node query.Node) bool {
	if alias, ok := node.(*query.AliasExpr); ok {
		node = alias.Value
	}
	lit, ok := node.(*query.LiteralExpr)
	return ok && lit.IsNull()
}

func (c *converter) convertUnary(n *query.UnaryExpr) (Node, error) {
	operand, err := c.convert(n.Operand)
	if err != nil {
		return nil, err
	}
	op := Op("not")
	if n.Op == query.OpNegate {
		op = "-"
	}
	return &Xpr{Tokens: []Node{op, operand}}, nil
}

// convertLiteral maps literal values to JSON friendly values. Decimals keep
// their exact digits, non-finite doubles and temporal values keep their text.
func convertLiteral(n *query.LiteralExpr) *Val {
	switch v := n.Value.(type) {
	case decimal.Decimal:
		return &Val{Value: json.Number(v.String())}
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return &Val{Value: n.Text}
		}
	case uuid.UUID:
		return &Val{Value: v.String()}
	case query.EnumValue:
		return &Val{Value: v.Value}
	}
	return &Val{Value: n.Value}
}

func (c *converter) convertMember(n *query.MemberExpr) (Node, error) {
	steps := make([]Step, 0, len(c.prefix)+len(n.Segments))
	for _, p := range c.prefix {
		steps = append(steps, Step{ID: p})
	}

	var prev *query.Segment
	for _, seg := range n.Segments {
		switch seg.Kind {
		case query.SegIt:
			if c.variable != "" {
				return nil, notSupported("$it inside a lambda expression")
			}
		case query.SegLambdaVariable:
			if seg.Name != c.variable {
				return nil, notSupported("reference to the outer lambda variable '%s'", seg.Name)
			}
		case query.SegTypeCast:
			return nil, notSupported("type cast segment '%s'", seg.Name)
		case query.SegCount:
			return &Func{Name: "count", Args: []Node{&Ref{Steps: steps}}}, nil
		case query.SegAny, query.SegAll:
			return c.convertLambda(steps, prev, seg)
		default:
			steps = append(steps, Step{ID: seg.Name})
		}
		prev = seg
	}

	if len(steps) == 0 {
		return nil, notSupported("reference to '%s' without a property", n.Segments[0].Name)
	}
	return &Ref{Steps: steps}, nil
}

// convertLambda turns any into exists over the navigation and all into
// not exists with the negated condition. The lambda variable is dropped
// from the paths of the condition.
func (c *converter) convertLambda(steps []Step, nav, seg *query.Segment) (Node, error) {
	if nav == nil || nav.Kind != query.SegNavigationToMany {
		return nil, notSupported("lambda operator '%s' over a collection that is not a navigation property", seg.Name)
	}

	var where []Node
	if seg.Lambda.Predicate != nil {
		inner := &converter{variable: seg.Lambda.Variable}
		predicate, err := inner.convert(seg.Lambda.Predicate)
		if err != nil {
			return nil, err
		}
		where = Tokens(predicate)
	}

	last := len(steps) - 1
	if seg.Kind == query.SegAny {
		steps[last].Where = where
		return &Xpr{Tokens: []Node{Op("exists"), &Ref{Steps: steps}}}, nil
	}
	steps[last].Where = []Node{Op("not"), &Xpr{Tokens: where}}
	return &Xpr{Tokens: []Node{Op("not"), Op("exists"), &Ref{Steps: steps}}}, nil
}

func (c *converter) convertMethod(n *query.MethodCallExpr) (Node, error) {
	if !supportedMethods[n.Method] {
		return nil, notSupported("method '%s'", n.Method)
	}
	f := &Func{Name: n.Method, Args: make([]Node, 0, len(n.Args))}
	for _, arg := range n.Args {
		converted, err := c.convert(arg)
		if err != nil {
			return nil, err
		}
		f.Args = append(f.Args, converted)
	}
	return f, nil
}
