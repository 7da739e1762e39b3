package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nlstn/go-odata-query/internal/edm"
	"github.com/nlstn/go-odata-query/internal/metadata"
)

var (
	booleanType        = metadata.TypeRef{Name: edm.Boolean}
	stringType         = metadata.TypeRef{Name: edm.String}
	int32Type          = metadata.TypeRef{Name: edm.Int32}
	int64Type          = metadata.TypeRef{Name: edm.Int64}
	decimalType        = metadata.TypeRef{Name: edm.Decimal}
	doubleType         = metadata.TypeRef{Name: edm.Double}
	dateType           = metadata.TypeRef{Name: edm.Date}
	dateTimeOffsetType = metadata.TypeRef{Name: edm.DateTimeOffset}
	timeOfDayType      = metadata.TypeRef{Name: edm.TimeOfDay}
	durationType       = metadata.TypeRef{Name: edm.Duration}
)

// primitiveOf maps a single-valued type to its primitive type. Enums map to
// their own name so they stay distinguishable; type definitions map to
// their underlying type.
func (c *ParseContext) primitiveOf(t metadata.TypeRef) string {
	if t.Collection || t.IsUntyped() {
		return ""
	}
	switch c.Model.Kind(t.Name) {
	case metadata.KindPrimitive:
		return t.Name
	case metadata.KindTypeDefinition:
		return c.Model.PrimitiveOf(t.Name)
	}
	return ""
}

func (c *ParseContext) isEnum(t metadata.TypeRef) bool {
	return !t.Collection && !t.IsUntyped() && c.Model.Kind(t.Name) == metadata.KindEnum
}

func (c *ParseContext) isStructured(t metadata.TypeRef) bool {
	return !t.IsUntyped() && c.Model.IsStructured(t.Name)
}

// isBoolean accepts Edm.Boolean and the untyped null.
func (c *ParseContext) isBoolean(t metadata.TypeRef) bool {
	return t.IsUntyped() || c.primitiveOf(t) == edm.Boolean
}

func (c *ParseContext) isNumeric(t metadata.TypeRef) bool {
	return edm.IsNumeric(c.primitiveOf(t))
}

func (c *ParseContext) isIntegral(t metadata.TypeRef) bool {
	return edm.IsIntegral(c.primitiveOf(t))
}

// isSingleValuedScalar accepts primitive, enum and type definition values.
func (c *ParseContext) isSingleValuedScalar(t metadata.TypeRef) bool {
	return c.primitiveOf(t) != "" || c.isEnum(t)
}

func (c *ParseContext) mismatch(pos int, op string, left, right metadata.TypeRef) *SemanticError {
	return c.semantic(pos, CodeTypeMismatch,
		fmt.Sprintf("operator '%s' is not defined for operand types %s and %s", op, left, right),
		nil, typeNames(left, right))
}

// checkComparison validates the operands of eq ne gt ge lt le.
func (c *ParseContext) checkComparison(pos int, op BinaryOp, left, right Node) error {
	lt, rt := left.ResultType(), right.ResultType()
	if lt.Collection || rt.Collection {
		return c.mismatch(pos, string(op), lt, rt)
	}
	if lt.IsUntyped() || rt.IsUntyped() {
		if op == OpEq || op == OpNe {
			return nil
		}
		if lt.IsUntyped() && rt.IsUntyped() {
			return c.mismatch(pos, string(op), lt, rt)
		}
		return nil
	}

	if c.isStructured(lt) || c.isStructured(rt) {
		return c.mismatch(pos, string(op), lt, rt)
	}

	if c.isEnum(lt) || c.isEnum(rt) {
		if lt.Name == rt.Name {
			return nil
		}
		if c.isEnum(lt) && isStringLiteral(right) {
			return c.checkEnumMembers(pos, lt, right)
		}
		if c.isEnum(rt) && isStringLiteral(left) {
			return c.checkEnumMembers(pos, rt, left)
		}
		return c.mismatch(pos, string(op), lt, rt)
	}

	lp, rp := c.primitiveOf(lt), c.primitiveOf(rt)
	if !edm.Compatible(lp, rp) {
		return c.mismatch(pos, string(op), lt, rt)
	}
	if op != OpEq && op != OpNe && (edm.IsGeo(lp) || lp == edm.Stream) {
		return c.mismatch(pos, string(op), lt, rt)
	}
	return nil
}

func isStringLiteral(n Node) bool {
	if lit, ok := n.(*LiteralExpr); ok {
		_, isString := lit.Value.(string)
		return isString && lit.EdmType.Name == edm.String
	}
	if alias, ok := n.(*AliasExpr); ok {
		return isStringLiteral(alias.Value)
	}
	return false
}

// arithmeticResult validates arithmetic operands and returns the result type.
func (c *ParseContext) arithmeticResult(pos int, op BinaryOp, left, right Node) (metadata.TypeRef, error) {
	lt, rt := left.ResultType(), right.ResultType()
	if lt.Collection || rt.Collection {
		return metadata.TypeRef{}, c.mismatch(pos, string(op), lt, rt)
	}
	lp, rp := c.primitiveOf(lt), c.primitiveOf(rt)

	switch {
	case lt.IsUntyped() && rt.IsUntyped():
		return metadata.TypeRef{}, nil
	case lt.IsUntyped():
		if edm.IsNumeric(rp) || rp == edm.Duration {
			return metadata.TypeRef{Name: rp}, nil
		}
	case rt.IsUntyped():
		if edm.IsNumeric(lp) || (op == OpAdd || op == OpSub) && edm.IsTemporal(lp) {
			return metadata.TypeRef{Name: lp}, nil
		}
	case edm.IsNumeric(lp) && edm.IsNumeric(rp):
		if op == OpDivBy {
			if lp == edm.Double || rp == edm.Double || lp == edm.Single || rp == edm.Single {
				return doubleType, nil
			}
			return decimalType, nil
		}
		return metadata.TypeRef{Name: edm.PromoteNumeric(lp, rp)}, nil
	case op == OpAdd || op == OpSub:
		switch {
		case (lp == edm.DateTimeOffset || lp == edm.Date) && rp == edm.Duration:
			return metadata.TypeRef{Name: lp}, nil
		case lp == edm.Duration && rp == edm.Duration:
			return durationType, nil
		case op == OpSub && lp == rp && (lp == edm.DateTimeOffset || lp == edm.Date):
			return durationType, nil
		case op == OpAdd && lp == edm.Duration && (rp == edm.DateTimeOffset || rp == edm.Date):
			return metadata.TypeRef{Name: rp}, nil
		}
	case (op == OpMul || op == OpDiv) && lp == edm.Duration && edm.IsNumeric(rp):
		return durationType, nil
	}
	return metadata.TypeRef{}, c.mismatch(pos, string(op), lt, rt)
}

// checkHas validates enum flag tests.
func (c *ParseContext) checkHas(pos int, left, right Node) error {
	lt, rt := left.ResultType(), right.ResultType()
	if !c.isEnum(lt) {
		return c.mismatch(pos, string(OpHas), lt, rt)
	}
	if rt.Name == lt.Name && !rt.Collection {
		return nil
	}
	if isStringLiteral(right) {
		return c.checkEnumMembers(pos, lt, right)
	}
	return c.mismatch(pos, string(OpHas), lt, rt)
}

// checkEnumMembers resolves a string literal compared with an enum against
// the enum's members. Flags enums accept comma separated members.
func (c *ParseContext) checkEnumMembers(pos int, enumRef metadata.TypeRef, lit Node) error {
	enum, ok := c.Model.EnumType(enumRef.Name)
	if !ok {
		return nil
	}
	for alias, isAlias := lit.(*AliasExpr); isAlias; alias, isAlias = lit.(*AliasExpr) {
		lit = alias.Value
	}
	text := lit.(*LiteralExpr).Value.(string)

	parts := strings.Split(text, ",")
	if len(parts) > 1 && !enum.IsFlags {
		return c.semantic(pos, CodeUnknownEnumMember,
			fmt.Sprintf("enum type '%s' does not allow combined members", enum.FullName()), parts, nil)
	}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if _, ok := enum.Member(part); ok {
			continue
		}
		if _, err := strconv.ParseInt(part, 10, 64); err == nil {
			continue
		}
		return c.semantic(pos, CodeUnknownEnumMember,
			fmt.Sprintf("'%s' is not a member of enum type '%s'", part, enum.FullName()), []string{part}, nil)
	}
	return nil
}

// assignable reports whether a value of type from may be passed where to is expected.
func (c *ParseContext) assignable(from, to metadata.TypeRef) bool {
	if from.IsUntyped() {
		return true
	}
	if from.Collection != to.Collection {
		return false
	}
	if from.Name == to.Name {
		return true
	}
	if c.isStructured(from) && c.isStructured(to) {
		return c.Model.IsDerivedFrom(from.Name, to.Name)
	}
	fp, tp := c.primitiveOf(from.Element()), c.primitiveOf(to.Element())
	if edm.IsNumeric(fp) && edm.IsNumeric(tp) {
		return edm.PromoteNumeric(fp, tp) == tp
	}
	return fp != "" && fp == tp
}
