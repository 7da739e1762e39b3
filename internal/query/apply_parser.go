package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nlstn/go-odata-query/internal/metadata"
)

// transformation keywords in the order they are reported as expected
var applyKeywords = []string{
	"aggregate", "bottomcount", "bottompercent", "bottomsum", "compute", "concat", "expand",
	"filter", "groupby", "identity", "orderby", "search", "skip", "top", "topcount",
	"toppercent", "topsum",
}

// applyParser parses $apply transformations from a token stream
type applyParser struct {
	ts  *TokenStream
	ctx *ParseContext
}

// ParseApply parses an $apply value into its transformations and returns
// the type of the data after the last one.
func ParseApply(applyStr string, ctx *ParseContext) ([]Transformation, *TransientType, error) {
	ctx = ctx.withOption(OptionApply)
	if strings.TrimSpace(applyStr) == "" {
		return nil, nil, &SyntaxError{Option: OptionApply, Message: errEmptyExpression.Error()}
	}
	if ctx.Type == nil {
		return nil, nil, ctx.notSupported("$apply without a structured type")
	}

	ts, err := NewTokenStream(OptionApply, applyStr)
	if err != nil {
		return nil, nil, err
	}
	return ParseApplyStream(ts, ctx)
}

// ParseApplyStream parses transformations separated by '/' until the end of ts.
func ParseApplyStream(ts *TokenStream, ctx *ParseContext) ([]Transformation, *TransientType, error) {
	if ctx.option == "" {
		ctx = ctx.withOption(ts.Option())
	}
	ap := &applyParser{ts: ts, ctx: ctx}
	seq, result, err := ap.parseSequence(ctx.Type)
	if err != nil {
		return nil, nil, err
	}
	if err := ts.Require(TokenEOF); err != nil {
		return nil, nil, err
	}
	return seq, result, nil
}

// expr returns an expression parser evaluated against t
func (ap *applyParser) expr(t *TransientType) *parser {
	return &parser{ts: ap.ts, ctx: ap.ctx.withType(t)}
}

// parseSequence parses transformations separated by '/', each against the
// result of its predecessor.
func (ap *applyParser) parseSequence(t *TransientType) ([]Transformation, *TransientType, error) {
	var seq []Transformation
	for {
		tr, err := ap.parseTransformation(t)
		if err != nil {
			return nil, nil, err
		}
		seq = append(seq, tr)
		t = tr.ResultType()
		if !ap.ts.Next(TokenSlash) {
			return seq, t, nil
		}
	}
}

// parseTransformation dispatches on the transformation keyword
func (ap *applyParser) parseTransformation(t *TransientType) (Transformation, error) {
	tok := ap.ts.Peek()
	if tok.Type == TokenWord {
		if method, ok := bottomTopMethods[tok.Value]; ok {
			ap.ts.Next(TokenWord)
			return ap.parseBottomTop(t, method)
		}

		switch tok.Value {
		case "aggregate":
			ap.ts.Next(TokenWord)
			return ap.parseAggregate(t)
		case "groupby":
			ap.ts.Next(TokenWord)
			return ap.parseGroupBy(t)
		case "concat":
			ap.ts.Next(TokenWord)
			return ap.parseConcat(t)
		case "filter":
			ap.ts.Next(TokenWord)
			return ap.parseFilter(t)
		case "compute":
			ap.ts.Next(TokenWord)
			return ap.parseCompute(t)
		case "search":
			ap.ts.Next(TokenWord)
			return ap.parseSearch(t)
		case "orderby":
			ap.ts.Next(TokenWord)
			return ap.parseOrderBy(t)
		case "skip", "top":
			ap.ts.Next(TokenWord)
			return ap.parseSkipTop(t, tok.Value)
		case "expand":
			ap.ts.Next(TokenWord)
			return ap.parseExpand(t)
		case "identity":
			ap.ts.Next(TokenWord)
			return &IdentityTransformation{transformationResult{t}}, nil
		}

		if strings.Contains(tok.Value, ".") && ap.ts.PeekAt(1).Type == TokenLParen {
			ap.ts.Next(TokenWord)
			return ap.parseCustomFunction(t, tok)
		}
	}

	for _, kw := range applyKeywords {
		ap.ts.NextKeyword(kw)
	}
	return nil, ap.ts.SyntaxError()
}

// parseFilter parses filter(boolCommonExpr)
func (ap *applyParser) parseFilter(t *TransientType) (Transformation, error) {
	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}
	predicate, err := parseBooleanExpression(ap.ts, ap.ctx.withType(t), false)
	if err != nil {
		return nil, err
	}
	if err := ap.ts.Require(TokenRParen); err != nil {
		return nil, err
	}
	return &FilterTransformation{transformationResult: transformationResult{t}, Predicate: predicate}, nil
}

// parseSearch parses search(searchExpr) with the $search grammar
func (ap *applyParser) parseSearch(t *TransientType) (Transformation, error) {
	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}
	raw, err := ap.ts.RawUntilClose()
	if err != nil {
		return nil, err
	}
	expr, err := parseSearch(ap.ctx.option, raw)
	if err != nil {
		return nil, err
	}
	if err := ap.ts.Require(TokenRParen); err != nil {
		return nil, err
	}
	return &SearchTransformation{transformationResult: transformationResult{t}, Expr: expr}, nil
}

// parseOrderBy parses orderby(expr [asc|desc], ...)
func (ap *applyParser) parseOrderBy(t *TransientType) (Transformation, error) {
	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}
	items, err := parseOrderByItems(ap.ts, ap.ctx.withType(t))
	if err != nil {
		return nil, err
	}
	if err := ap.ts.Require(TokenRParen); err != nil {
		return nil, err
	}
	return &OrderByTransformation{transformationResult: transformationResult{t}, Items: items}, nil
}

// parseSkipTop parses skip(n) and top(n)
func (ap *applyParser) parseSkipTop(t *TransientType, name string) (Transformation, error) {
	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}
	tok := ap.ts.Peek()
	if err := ap.ts.Require(TokenInteger); err != nil {
		return nil, err
	}
	n, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil || n < 0 {
		return nil, ap.ctx.semantic(tok.Pos, CodeInvalidArgument, errSkipTopNonNegative.Error(), []string{name}, nil)
	}
	if err := ap.ts.Require(TokenRParen); err != nil {
		return nil, err
	}
	if name == "skip" {
		return &SkipTransformation{transformationResult: transformationResult{t}, Count: n}, nil
	}
	return &TopTransformation{transformationResult: transformationResult{t}, Count: n}, nil
}

// parseCompute parses compute(expr as alias, ...)
func (ap *applyParser) parseCompute(t *TransientType) (Transformation, error) {
	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}

	var exprs []*ComputeExpression
	var props []Property
	seen := make(map[string]bool)
	for {
		pos := ap.ts.Pos()
		expr, err := ap.expr(t).parseOr()
		if err != nil {
			return nil, err
		}
		if rt := expr.ResultType(); !rt.IsUntyped() && !ap.ctx.isSingleValuedScalar(rt) {
			return nil, ap.ctx.semantic(pos, CodeResultType, errComputeNotPrimitive.Error(), nil, typeNames(rt))
		}
		if err := ap.ts.RequireKeyword("as"); err != nil {
			return nil, err
		}
		aliasPos := ap.ts.Pos()
		alias, err := ap.ts.RequireWord()
		if err != nil {
			return nil, err
		}
		if err := ap.checkAlias(t, seen, alias, aliasPos); err != nil {
			return nil, err
		}

		exprs = append(exprs, &ComputeExpression{Expr: expr, Alias: alias})
		props = append(props, &DynamicProperty{Name: alias, Type: expr.ResultType(), Nullable: true})
		if !ap.ts.Next(TokenComma) {
			break
		}
	}
	if err := ap.ts.Require(TokenRParen); err != nil {
		return nil, err
	}

	return &ComputeTransformation{
		transformationResult: transformationResult{t.WithProperties(props...)},
		Expressions:          exprs,
	}, nil
}

// checkAlias rejects aliases that collide with a visible property or an
// alias introduced earlier in the same transformation.
func (ap *applyParser) checkAlias(t *TransientType, seen map[string]bool, alias string, pos int) error {
	if _, exists := t.Property(alias); exists || seen[alias] {
		return ap.ctx.semantic(pos, CodeDuplicateAlias,
			fmt.Sprintf("alias '%s' collides with an existing property", alias), []string{alias}, nil)
	}
	seen[alias] = true
	return nil
}

// parseBottomTop parses topcount(n, value) and its siblings
func (ap *applyParser) parseBottomTop(t *TransientType, method BottomTopMethod) (Transformation, error) {
	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}

	nPos := ap.ts.Pos()
	n, err := ap.expr(t).parseAdditive()
	if err != nil {
		return nil, err
	}
	nt := n.ResultType()
	if method.IsCount() && !ap.ctx.isIntegral(nt) {
		return nil, ap.ctx.semantic(nPos, CodeArgumentType, errBottomTopCountInt.Error(),
			[]string{string(method)}, typeNames(nt))
	}
	if !method.IsCount() && !ap.ctx.isNumeric(nt) {
		return nil, ap.ctx.semantic(nPos, CodeArgumentType, errBottomTopNumeric.Error(),
			[]string{string(method)}, typeNames(nt))
	}

	if err := ap.ts.Require(TokenComma); err != nil {
		return nil, err
	}
	valuePos := ap.ts.Pos()
	value, err := ap.expr(t).parseAdditive()
	if err != nil {
		return nil, err
	}
	if vt := value.ResultType(); !ap.ctx.isNumeric(vt) {
		return nil, ap.ctx.semantic(valuePos, CodeArgumentType, errBottomTopNumeric.Error(),
			[]string{string(method)}, typeNames(vt))
	}
	if err := ap.ts.Require(TokenRParen); err != nil {
		return nil, err
	}

	return &BottomTopTransformation{
		transformationResult: transformationResult{t},
		Method:               method,
		N:                    n,
		Value:                value,
	}, nil
}

// parseExpand parses expand(navPath[, filter(...)][, expand(...)]*)
func (ap *applyParser) parseExpand(t *TransientType) (Transformation, error) {
	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}
	pos := ap.ts.Pos()
	node, err := ap.expr(t).parseMemberPath()
	if err != nil {
		return nil, err
	}
	path := node.(*MemberExpr)
	last := path.Last()
	if last.Kind != SegNavigationToOne && last.Kind != SegNavigationToMany {
		return nil, ap.ctx.semantic(pos, CodeInvalidArgument,
			fmt.Sprintf("'%s' is not a navigation property", strings.Join(path.Names(), "/")), path.Names(), nil)
	}

	target, _ := ap.ctx.Model.StructuredType(last.Navigation.Target)
	targetType := NewTransientType(ap.ctx.Model, target)
	expand := &ExpandTransformation{transformationResult: transformationResult{t}, Path: path}

	for ap.ts.Next(TokenComma) {
		switch {
		case ap.ts.NextKeyword("filter"):
			if expand.Filter != nil {
				return nil, ap.ctx.semantic(ap.ts.Pos(), CodeInvalidArgument, "expand allows a single filter", nil, nil)
			}
			if err := ap.ts.Require(TokenLParen); err != nil {
				return nil, err
			}
			predicate, err := parseBooleanExpression(ap.ts, ap.ctx.withType(targetType), false)
			if err != nil {
				return nil, err
			}
			if err := ap.ts.Require(TokenRParen); err != nil {
				return nil, err
			}
			expand.Filter = predicate
		case ap.ts.NextKeyword("expand"):
			nested, err := ap.parseExpand(targetType)
			if err != nil {
				return nil, err
			}
			expand.Expands = append(expand.Expands, nested.(*ExpandTransformation))
		default:
			return nil, ap.ts.SyntaxError()
		}
	}

	if err := ap.ts.Require(TokenRParen); err != nil {
		return nil, err
	}
	return expand, nil
}

// parseCustomFunction parses a bound function call used as a transformation
func (ap *applyParser) parseCustomFunction(t *TransientType, name *Token) (Transformation, error) {
	model := ap.ctx.Model
	overloads := model.Functions(name.Value)
	if len(overloads) == 0 {
		return nil, ap.ctx.semantic(name.Pos, CodeUnknownFunction,
			fmt.Sprintf("function '%s' not found", name.Value), []string{name.Value}, nil)
	}

	if err := ap.ts.Require(TokenLParen); err != nil {
		return nil, err
	}
	var args []FunctionArgument
	seen := make(map[string]bool)
	if !ap.ts.Next(TokenRParen) {
		for {
			paramPos := ap.ts.Pos()
			paramName, err := ap.ts.RequireWord()
			if err != nil {
				return nil, err
			}
			if seen[paramName] {
				return nil, ap.ctx.semantic(paramPos, CodeDuplicateParameter,
					fmt.Sprintf("parameter '%s' is given more than once", paramName), []string{paramName}, nil)
			}
			seen[paramName] = true
			if err := ap.ts.Require(TokenEquals); err != nil {
				return nil, err
			}
			value, err := ap.expr(t).parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, FunctionArgument{Name: paramName, Value: value})
			if !ap.ts.Next(TokenComma) {
				break
			}
		}
		if err := ap.ts.Require(TokenRParen); err != nil {
			return nil, err
		}
	}

	fn := ap.matchFunction(overloads, t, args)
	if fn == nil {
		return nil, ap.ctx.semantic(name.Pos, CodeUnknownFunction,
			fmt.Sprintf("no overload of '%s' is bound to Collection(%s) with parameters (%s)",
				name.Value, t.BaseName(), strings.Join(argNames(args), ", ")),
			[]string{name.Value}, nil)
	}

	for _, arg := range args {
		for _, param := range fn.Parameters[1:] {
			if param.Name == arg.Name && !ap.ctx.assignable(arg.Value.ResultType(), param.Type) {
				return nil, ap.ctx.semantic(name.Pos, CodeArgumentType,
					fmt.Sprintf("parameter '%s' of '%s' expects %s, got %s",
						param.Name, name.Value, param.Type, arg.Value.ResultType()),
					[]string{param.Name}, typeNames(param.Type, arg.Value.ResultType()))
			}
		}
	}

	returnType, _ := model.StructuredType(fn.ReturnType.Name)
	return &CustomFunctionTransformation{
		transformationResult: transformationResult{t.WithBase(returnType)},
		Function:             fn,
		Arguments:            args,
	}, nil
}

// matchFunction picks the bound overload whose binding parameter accepts a
// collection of t and whose other parameter names equal the argument names.
// Binding and return types must be structured collections.
func (ap *applyParser) matchFunction(overloads []*metadata.Function, t *TransientType, args []FunctionArgument) *metadata.Function {
	model := ap.ctx.Model
	for _, fn := range overloads {
		if !fn.IsBound || len(fn.Parameters) == 0 || len(fn.Parameters)-1 != len(args) {
			continue
		}
		binding := fn.Parameters[0].Type
		if !binding.Collection || !model.IsStructured(binding.Name) || !model.IsDerivedFrom(t.BaseName(), binding.Name) {
			continue
		}
		if !fn.ReturnType.Collection || !model.IsStructured(fn.ReturnType.Name) {
			continue
		}
		names := make(map[string]bool, len(args))
		for _, p := range fn.Parameters[1:] {
			names[p.Name] = true
		}
		matched := true
		for _, a := range args {
			if !names[a.Name] {
				matched = false
				break
			}
		}
		if matched {
			return fn
		}
	}
	return nil
}

func argNames(args []FunctionArgument) []string {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Name
	}
	return names
}
