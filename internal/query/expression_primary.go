package query

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nlstn/go-odata-query/internal/edm"
	"github.com/nlstn/go-odata-query/internal/metadata"
)

var spatialLiteralRegex = regexp.MustCompile(`(?i)^\s*(?:SRID=(\d+)\s*;\s*)?(Point|LineString|Polygon|MultiPoint|MultiLineString|MultiPolygon|Collection)\s*\(`)

// parsePrimary parses literals, parenthesized expressions, aliases, method
// calls and member paths.
func (p *parser) parsePrimary() (Node, error) {
	t := p.ts.Peek()

	switch t.Type {
	case TokenLParen:
		p.ts.Next(TokenLParen)
		if err := p.ctx.enter(p.ts); err != nil {
			return nil, err
		}
		defer p.ctx.leave()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.ts.Require(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil
	case TokenAlias:
		p.ts.Next(TokenAlias)
		return p.parseAlias(t)
	case TokenWord:
		return p.parseWord(t)
	case TokenString, TokenInteger, TokenDecimal, TokenDouble, TokenDate, TokenDateTimeOffset,
		TokenTimeOfDay, TokenGuid, TokenDuration, TokenBinary, TokenGeography, TokenGeometry, TokenEnum:
		p.ts.Next(t.Type)
		return p.parseLiteral(t)
	}

	for _, kind := range []TokenType{TokenLParen, TokenWord, TokenString, TokenAlias, TokenMinus} {
		p.ts.Next(kind)
	}
	return nil, p.ts.SyntaxError()
}

// parseWord handles keyword literals, method calls and member paths
func (p *parser) parseWord(t *Token) (Node, error) {
	switch t.Value {
	case "true", "false":
		p.ts.Next(TokenWord)
		return &LiteralExpr{Value: t.Value == "true", Text: t.Value, EdmType: booleanType}, nil
	case "null":
		p.ts.Next(TokenWord)
		return &LiteralExpr{Text: t.Value}, nil
	case "INF", "NaN":
		p.ts.Next(TokenWord)
		v := math.Inf(1)
		if t.Value == "NaN" {
			v = math.NaN()
		}
		return &LiteralExpr{Value: v, Text: t.Value, EdmType: doubleType}, nil
	}

	if p.ts.PeekAt(1).Type == TokenLParen {
		if IsBuiltinMethod(t.Value) {
			return p.parseMethodCall()
		}
		if _, isVar := p.ctx.lookupVariable(t.Value); !isVar {
			return nil, p.ctx.notSupported(fmt.Sprintf("method '%s'", t.Value))
		}
	}

	return p.parseMemberPath()
}

// parseMethodCall parses a built-in method call like contains(Name,'x')
func (p *parser) parseMethodCall() (Node, error) {
	pos := p.ts.Pos()
	name, _ := p.ts.RequireWord()
	if err := p.ts.Require(TokenLParen); err != nil {
		return nil, err
	}
	if err := p.ctx.enter(p.ts); err != nil {
		return nil, err
	}
	defer p.ctx.leave()

	var args []Node
	if !p.ts.Next(TokenRParen) {
		for {
			arg, err := p.parseArgument(name)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.ts.Next(TokenComma) {
				break
			}
		}
		if err := p.ts.Require(TokenRParen); err != nil {
			return nil, err
		}
	}

	resultType, err := p.ctx.resolveMethod(pos, name, args)
	if err != nil {
		return nil, err
	}
	return &MethodCallExpr{Method: name, Args: args, EdmType: resultType}, nil
}

// parseArgument parses a method argument. cast and isof take a qualified
// type name as their last argument.
func (p *parser) parseArgument(method string) (Node, error) {
	t := p.ts.Peek()
	next := p.ts.PeekAt(1).Type
	if (method == "cast" || method == "isof") && t.Type == TokenWord && strings.Contains(t.Value, ".") &&
		(next == TokenRParen || next == TokenComma) {
		p.ts.Next(TokenWord)
		ref := metadata.ParseTypeRef(t.Value)
		if p.ctx.Model.Kind(ref.Name) == metadata.KindUnknown {
			return nil, p.ctx.semantic(t.Pos, CodeUnknownType, fmt.Sprintf("unknown type '%s'", t.Value),
				[]string{t.Value}, nil)
		}
		return &TypeNameExpr{Name: t.Value}, nil
	}
	return p.parseOr()
}

// parseAlias resolves a parameter alias and parses its value in the current context
func (p *parser) parseAlias(t *Token) (Node, error) {
	name := t.Value
	raw, ok := p.ctx.Aliases[name]
	if !ok {
		return nil, p.ctx.semantic(t.Pos, CodeUnresolvedAlias,
			fmt.Sprintf("parameter alias '@%s' is not defined", name), []string{name}, nil)
	}
	for _, active := range p.ctx.aliasStack {
		if active == name {
			return nil, p.ctx.semantic(t.Pos, CodeAliasCycle,
				fmt.Sprintf("parameter alias '@%s' refers to itself", name), []string{name}, nil)
		}
	}

	sub, err := NewTokenStream(p.ctx.option, raw)
	if err != nil {
		return nil, err
	}
	ctx := *p.ctx
	ctx.aliasStack = append(append([]string(nil), p.ctx.aliasStack...), name)
	value, err := (&parser{ts: sub, ctx: &ctx}).parseOr()
	if err != nil {
		return nil, err
	}
	if err := sub.Require(TokenEOF); err != nil {
		return nil, err
	}
	return &AliasExpr{Name: name, Value: value}, nil
}

// parseLiteral types and validates a literal token
func (p *parser) parseLiteral(t *Token) (Node, error) {
	lit := &LiteralExpr{Text: t.Value}

	switch t.Type {
	case TokenString:
		lit.Value = t.Value
		lit.EdmType = stringType

	case TokenInteger:
		n, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return nil, &edm.ValueError{TypeName: edm.Int64, Value: t.Value, Expected: "an integer in the Edm.Int64 range"}
		}
		lit.Value = n
		lit.EdmType = int64Type
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			lit.EdmType = int32Type
		}

	case TokenDecimal:
		d, err := decimal.NewFromString(t.Value)
		if err != nil {
			return nil, &edm.ValueError{TypeName: edm.Decimal, Value: t.Value}
		}
		lit.Value = d
		lit.EdmType = decimalType

	case TokenDouble:
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return nil, &edm.ValueError{TypeName: edm.Double, Value: t.Value, Expected: "a finite double"}
		}
		lit.Value = f
		lit.EdmType = doubleType

	case TokenDate:
		if err := edm.ValidateDate(t.Value); err != nil {
			return nil, err
		}
		lit.Value = t.Value
		lit.EdmType = dateType

	case TokenDateTimeOffset:
		if err := edm.ValidateDateTimeOffset(t.Value, edm.Facets{}); err != nil {
			return nil, err
		}
		lit.Value = t.Value
		lit.EdmType = dateTimeOffsetType

	case TokenTimeOfDay:
		if err := edm.ValidateTimeOfDay(t.Value, edm.Facets{}); err != nil {
			return nil, err
		}
		lit.Value = t.Value
		lit.EdmType = timeOfDayType

	case TokenGuid:
		if err := edm.ValidateGuid(t.Value); err != nil {
			return nil, err
		}
		lit.Value = uuid.MustParse(t.Value)
		lit.EdmType = metadata.TypeRef{Name: edm.Guid}

	case TokenDuration:
		if err := edm.ValidateDuration(t.Value, edm.Facets{}); err != nil {
			return nil, err
		}
		lit.Value = t.Value
		lit.EdmType = durationType

	case TokenBinary:
		if err := edm.ValidateBinary(t.Value, edm.Facets{}); err != nil {
			return nil, err
		}
		lit.Value = t.Value
		lit.EdmType = metadata.TypeRef{Name: edm.Binary}

	case TokenGeography, TokenGeometry:
		typeName, err := spatialLiteralType(t)
		if err != nil {
			return nil, err
		}
		lit.Value = t.Value
		lit.EdmType = metadata.TypeRef{Name: typeName}

	case TokenEnum:
		return p.parseEnumLiteral(t)
	}

	return lit, nil
}

func spatialLiteralType(t *Token) (string, error) {
	family := edm.Geography
	if t.Type == TokenGeometry {
		family = edm.Geometry
	}
	m := spatialLiteralRegex.FindStringSubmatch(t.Value)
	if m == nil {
		return "", &edm.ValueError{TypeName: family, Value: t.Value, Expected: "well-known text like SRID=4326;POINT(1 2)"}
	}
	kind := strings.ToLower(m[2])
	for _, candidate := range []string{"Point", "LineString", "Polygon", "MultiPoint", "MultiLineString", "MultiPolygon", "Collection"} {
		if strings.ToLower(candidate) == kind {
			return family + candidate, nil
		}
	}
	return family, nil
}

// parseEnumLiteral resolves Ns.Enum'Member[,Member]' literals
func (p *parser) parseEnumLiteral(t *Token) (Node, error) {
	enum, ok := p.ctx.Model.EnumType(t.Prefix)
	if !ok {
		return nil, p.ctx.semantic(t.Pos, CodeUnknownType, fmt.Sprintf("unknown enum type '%s'", t.Prefix),
			[]string{t.Prefix}, nil)
	}

	parts := strings.Split(t.Value, ",")
	if len(parts) > 1 && !enum.IsFlags {
		return nil, p.ctx.semantic(t.Pos, CodeUnknownEnumMember,
			fmt.Sprintf("enum type '%s' does not allow combined members", enum.FullName()), parts, nil)
	}

	value := EnumValue{}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if member, ok := enum.Member(part); ok {
			value.Members = append(value.Members, member.Name)
			value.Value |= member.Value
			continue
		}
		if n, err := strconv.ParseInt(part, 10, 64); err == nil {
			value.Members = append(value.Members, part)
			value.Value |= n
			continue
		}
		return nil, p.ctx.semantic(t.Pos, CodeUnknownEnumMember,
			fmt.Sprintf("'%s' is not a member of enum type '%s'", part, enum.FullName()), []string{part}, nil)
	}

	return &LiteralExpr{
		Value:   value,
		Text:    t.Prefix + "'" + t.Value + "'",
		EdmType: metadata.TypeRef{Name: enum.FullName()},
	}, nil
}
