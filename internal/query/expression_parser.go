package query

import (
	"fmt"

	"github.com/nlstn/go-odata-query/internal/metadata"
)

// parser parses common expressions from a token stream against a context
type parser struct {
	ts  *TokenStream
	ctx *ParseContext
}

// ParseExpression parses a common expression starting at the current
// position of ts. Parsing stops at the first token that cannot continue the
// expression; the caller decides what may follow.
func ParseExpression(ts *TokenStream, ctx *ParseContext) (Node, error) {
	if ctx.option == "" {
		ctx = ctx.withOption(ts.Option())
	}
	p := &parser{ts: ts, ctx: ctx}
	return p.parseOr()
}

func (p *parser) with(ctx *ParseContext) *parser {
	return &parser{ts: p.ts, ctx: ctx}
}

// parseOr handles OR expressions (lowest precedence)
func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for {
		pos := p.ts.Pos()
		if !p.ts.NextKeyword(string(OpOr)) {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		if err := p.checkLogical(pos, OpOr, left, right); err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpOr, Left: left, Right: right, EdmType: booleanType}
	}
}

// parseAnd handles AND expressions
func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for {
		pos := p.ts.Pos()
		if !p.ts.NextKeyword(string(OpAnd)) {
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		if err := p.checkLogical(pos, OpAnd, left, right); err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpAnd, Left: left, Right: right, EdmType: booleanType}
	}
}

func (p *parser) checkLogical(pos int, op BinaryOp, left, right Node) error {
	lt, rt := left.ResultType(), right.ResultType()
	if !p.ctx.isBoolean(lt) || !p.ctx.isBoolean(rt) {
		return p.ctx.mismatch(pos, string(op), lt, rt)
	}
	return nil
}

// parseNot handles the logical negation
func (p *parser) parseNot() (Node, error) {
	pos := p.ts.Pos()
	if !p.ts.NextKeyword(string(OpNot)) {
		return p.parseComparison()
	}
	if err := p.ctx.enter(p.ts); err != nil {
		return nil, err
	}
	defer p.ctx.leave()

	operand, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if t := operand.ResultType(); !p.ctx.isBoolean(t) {
		return nil, p.ctx.semantic(pos, CodeTypeMismatch,
			fmt.Sprintf("operator 'not' is not defined for operand type %s", t), nil, typeNames(t))
	}
	return &UnaryExpr{Op: OpNot, Operand: operand, EdmType: booleanType}, nil
}

var comparisonOps = []BinaryOp{OpEq, OpNe, OpGt, OpGe, OpLt, OpLe, OpHas, OpIn}

// parseComparison handles eq ne gt ge lt le has in
func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	pos := p.ts.Pos()
	var op BinaryOp
	for _, candidate := range comparisonOps {
		if p.ts.NextKeyword(string(candidate)) {
			op = candidate
			break
		}
	}

	switch op {
	case "":
		return left, nil
	case OpIn:
		right, err := p.parseInOperand(left)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: OpIn, Left: left, Right: right, EdmType: booleanType}, nil
	case OpHas:
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if err := p.ctx.checkHas(pos, left, right); err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: OpHas, Left: left, Right: right, EdmType: booleanType}, nil
	}

	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if err := p.ctx.checkComparison(pos, op, left, right); err != nil {
		return nil, err
	}
	return &BinaryExpr{Op: op, Left: left, Right: right, EdmType: booleanType}, nil
}

// parseInOperand parses the right side of 'in': a parenthesized list or a
// collection-valued path or alias.
func (p *parser) parseInOperand(left Node) (Node, error) {
	lt := left.ResultType()
	if lt.Collection {
		return nil, p.ctx.semantic(p.ts.Pos(), CodeNotSingleValued,
			"left operand of 'in' must be single-valued", nil, typeNames(lt))
	}

	pos := p.ts.Pos()
	if !p.ts.Next(TokenLParen) {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		rt := right.ResultType()
		if !rt.Collection {
			return nil, p.ctx.semantic(pos, CodeNotCollection,
				"right operand of 'in' must be a collection", nil, typeNames(rt))
		}
		if err := p.ctx.checkComparison(pos, OpEq, left, &LiteralExpr{EdmType: rt.Element()}); err != nil {
			return nil, err
		}
		return right, nil
	}

	list := &ListExpr{EdmType: metadata.TypeRef{Name: lt.Name, Collection: true}}
	for {
		itemPos := p.ts.Pos()
		item, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if err := p.ctx.checkComparison(itemPos, OpEq, left, item); err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
		if p.ctx.MaxInListSize > 0 && len(list.Items) > p.ctx.MaxInListSize {
			return nil, p.ctx.semantic(itemPos, CodeLimitExceeded, errInListTooLarge.Error(), nil, nil)
		}
		if !p.ts.Next(TokenComma) {
			break
		}
	}
	if err := p.ts.Require(TokenRParen); err != nil {
		return nil, err
	}
	if lt.IsUntyped() && len(list.Items) > 0 {
		list.EdmType = metadata.TypeRef{Name: list.Items[0].ResultType().Name, Collection: true}
	}
	return list, nil
}

// parseAdditive handles add and sub
func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		pos := p.ts.Pos()
		var op BinaryOp
		switch {
		case p.ts.NextKeyword(string(OpAdd)):
			op = OpAdd
		case p.ts.NextKeyword(string(OpSub)):
			op = OpSub
		default:
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		resultType, err := p.ctx.arithmeticResult(pos, op, left, right)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, EdmType: resultType}
	}
}

// parseMultiplicative handles mul, div, divby and mod
func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		pos := p.ts.Pos()
		var op BinaryOp
		switch {
		case p.ts.NextKeyword(string(OpMul)):
			op = OpMul
		case p.ts.NextKeyword(string(OpDiv)):
			op = OpDiv
		case p.ts.NextKeyword(string(OpDivBy)):
			op = OpDivBy
		case p.ts.NextKeyword(string(OpMod)):
			op = OpMod
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		resultType, err := p.ctx.arithmeticResult(pos, op, left, right)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, EdmType: resultType}
	}
}

// parseUnary handles the arithmetic negation
func (p *parser) parseUnary() (Node, error) {
	pos := p.ts.Pos()
	if !p.ts.Next(TokenMinus) {
		return p.parsePrimary()
	}
	if err := p.ctx.enter(p.ts); err != nil {
		return nil, err
	}
	defer p.ctx.leave()

	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	t := operand.ResultType()
	if !t.IsUntyped() && !p.ctx.isNumeric(t) && p.ctx.primitiveOf(t) != durationType.Name {
		return nil, p.ctx.semantic(pos, CodeTypeMismatch,
			fmt.Sprintf("operator '-' is not defined for operand type %s", t), nil, typeNames(t))
	}
	return &UnaryExpr{Op: OpNegate, Operand: operand, EdmType: t}, nil
}
