package query

import (
	"github.com/nlstn/go-odata-query/internal/metadata"
)

// Node is a typed expression tree node. The set of implementations is closed.
type Node interface {
	// ResultType is the EDM type the node evaluates to; the zero value
	// stands for the untyped null.
	ResultType() metadata.TypeRef
	exprNode()
}

// BinaryOp is an infix operator.
type BinaryOp string

const (
	OpOr    BinaryOp = "or"
	OpAnd   BinaryOp = "and"
	OpEq    BinaryOp = "eq"
	OpNe    BinaryOp = "ne"
	OpGt    BinaryOp = "gt"
	OpGe    BinaryOp = "ge"
	OpLt    BinaryOp = "lt"
	OpLe    BinaryOp = "le"
	OpHas   BinaryOp = "has"
	OpIn    BinaryOp = "in"
	OpAdd   BinaryOp = "add"
	OpSub   BinaryOp = "sub"
	OpMul   BinaryOp = "mul"
	OpDiv   BinaryOp = "div"
	OpDivBy BinaryOp = "divby"
	OpMod   BinaryOp = "mod"
)

// Precedence returns the binding strength of the operator; higher binds tighter.
func (op BinaryOp) Precedence() int {
	switch op {
	case OpOr:
		return 1
	case OpAnd:
		return 2
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe, OpHas, OpIn:
		return 4
	case OpAdd, OpSub:
		return 5
	case OpMul, OpDiv, OpDivBy, OpMod:
		return 6
	}
	return 0
}

// IsComparison reports whether op compares its operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
		return true
	}
	return false
}

// IsArithmetic reports whether op is an arithmetic operator.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpDivBy, OpMod:
		return true
	}
	return false
}

// UnaryOp is a prefix operator.
type UnaryOp string

const (
	OpNot    UnaryOp = "not"
	OpNegate UnaryOp = "-"
)

// Precedence returns the binding strength of the operator.
func (op UnaryOp) Precedence() int {
	if op == OpNot {
		return 3
	}
	return 7
}

// BinaryExpr represents a binary expression (e.g., A and B, X add Y)
type BinaryExpr struct {
	Op      BinaryOp
	Left    Node
	Right   Node
	EdmType metadata.TypeRef
}

func (e *BinaryExpr) ResultType() metadata.TypeRef { return e.EdmType }
func (e *BinaryExpr) exprNode()                    {}

// UnaryExpr represents a unary expression (e.g., not X, -Y)
type UnaryExpr struct {
	Op      UnaryOp
	Operand Node
	EdmType metadata.TypeRef
}

func (e *UnaryExpr) ResultType() metadata.TypeRef { return e.EdmType }
func (e *UnaryExpr) exprNode()                    {}

// LiteralExpr represents a literal value. Value holds the Go representation:
// string, int64, decimal.Decimal, float64, bool, uuid.UUID, EnumValue or nil.
// Temporal, duration, binary and spatial literals keep their text.
type LiteralExpr struct {
	Value   interface{}
	Text    string
	EdmType metadata.TypeRef
}

func (e *LiteralExpr) ResultType() metadata.TypeRef { return e.EdmType }
func (e *LiteralExpr) exprNode()                    {}

// IsNull reports whether the literal is null.
func (e *LiteralExpr) IsNull() bool {
	return e.Value == nil && e.EdmType.IsUntyped()
}

// EnumValue is the value of an enum literal.
type EnumValue struct {
	Members []string
	Value   int64
}

// TypeNameExpr is a type name argument of cast and isof.
type TypeNameExpr struct {
	Name string
}

func (e *TypeNameExpr) ResultType() metadata.TypeRef { return metadata.TypeRef{} }
func (e *TypeNameExpr) exprNode()                    {}

// MemberExpr is a path of segments starting at the current instance, a
// lambda variable, $it, $root or a cross-joined entity set.
type MemberExpr struct {
	Segments []*Segment
	EdmType  metadata.TypeRef
}

func (e *MemberExpr) ResultType() metadata.TypeRef { return e.EdmType }
func (e *MemberExpr) exprNode()                    {}

// Last returns the final segment of the path.
func (e *MemberExpr) Last() *Segment {
	return e.Segments[len(e.Segments)-1]
}

// Names returns the segment names of the path.
func (e *MemberExpr) Names() []string {
	names := make([]string, 0, len(e.Segments))
	for _, s := range e.Segments {
		names = append(names, s.Name)
	}
	return names
}

// MethodCallExpr represents a built-in method call (e.g., contains(Name,'x'))
type MethodCallExpr struct {
	Method  string
	Args    []Node
	EdmType metadata.TypeRef
}

func (e *MethodCallExpr) ResultType() metadata.TypeRef { return e.EdmType }
func (e *MethodCallExpr) exprNode()                    {}

// AliasExpr is a resolved parameter alias.
type AliasExpr struct {
	Name  string
	Value Node
}

func (e *AliasExpr) ResultType() metadata.TypeRef { return e.Value.ResultType() }
func (e *AliasExpr) exprNode()                    {}

// ListExpr is the parenthesized right operand of 'in'.
type ListExpr struct {
	Items   []Node
	EdmType metadata.TypeRef
}

func (e *ListExpr) ResultType() metadata.TypeRef { return e.EdmType }
func (e *ListExpr) exprNode()                    {}

// SegmentKind classifies a path segment.
type SegmentKind int

const (
	SegPrimitiveProperty SegmentKind = iota
	SegPrimitiveCollection
	SegComplexProperty
	SegComplexCollection
	SegNavigationToOne
	SegNavigationToMany
	SegTypeCast
	SegCount
	SegAny
	SegAll
	SegLambdaVariable
	SegIt
	SegRoot
	SegEntitySet
	SegDynamicProperty
)

var segmentKindNames = [...]string{
	"PrimitiveProperty", "PrimitiveCollection", "ComplexProperty", "ComplexCollection",
	"NavigationToOne", "NavigationToMany", "TypeCast", "Count", "Any", "All",
	"LambdaVariable", "It", "Root", "EntitySet", "DynamicProperty",
}

func (k SegmentKind) String() string {
	if int(k) < len(segmentKindNames) {
		return segmentKindNames[k]
	}
	return "Unknown"
}

// IsProperty reports whether the segment addresses a property of its parent.
func (k SegmentKind) IsProperty() bool {
	switch k {
	case SegPrimitiveProperty, SegPrimitiveCollection, SegComplexProperty, SegComplexCollection,
		SegNavigationToOne, SegNavigationToMany, SegDynamicProperty:
		return true
	}
	return false
}

// Segment is one step of a member path. Type is the type reached after the step.
type Segment struct {
	Kind       SegmentKind
	Name       string
	Type       metadata.TypeRef
	Property   *metadata.Property
	Navigation *metadata.NavigationProperty
	Lambda     *Lambda
}

// Lambda is the body of an any or all segment. Variable is empty and
// Predicate nil for the parameterless any().
type Lambda struct {
	Variable  string
	Predicate Node
}
