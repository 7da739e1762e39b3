package odata

import "github.com/nlstn/go-odata-query/internal/query"

// Expression is a node of a parsed $filter, $orderby or $compute expression.
//
// The concrete node types are BinaryExpr, UnaryExpr, LiteralExpr, MemberExpr,
// MethodCallExpr, AliasExpr and ListExpr. Every node reports its EDM result
// type, so callers can inspect a parsed tree without consulting the model:
//
//	expr, err := parser.ParseFilter(ctx, odata.Target{Type: "Products"}, "Price gt 5")
//	if err != nil {
//	    return err
//	}
//	if bin, ok := expr.(*odata.BinaryExpr); ok {
//	    fmt.Println(bin.Op, bin.Left.ResultType())
//	}
type Expression = query.Node

// BinaryExpr re-exports the binary operator node for external consumers.
type BinaryExpr = query.BinaryExpr

// UnaryExpr re-exports the unary operator node for external consumers.
type UnaryExpr = query.UnaryExpr

// LiteralExpr re-exports the literal node for external consumers.
type LiteralExpr = query.LiteralExpr

// MemberExpr re-exports the property path node for external consumers.
type MemberExpr = query.MemberExpr

// MethodCallExpr re-exports the built-in and custom function call node for external consumers.
type MethodCallExpr = query.MethodCallExpr

// AliasExpr re-exports the parameter alias node for external consumers.
type AliasExpr = query.AliasExpr

// ListExpr re-exports the value list node of 'in' for external consumers.
type ListExpr = query.ListExpr

// Segment re-exports one resolved step of a member path.
type Segment = query.Segment

// OrderByItem re-exports the parsed $orderby item type for external consumers.
type OrderByItem = query.OrderByItem

// SearchExpression re-exports the parsed $search expression type for external consumers.
type SearchExpression = query.SearchExpr

// Transformation re-exports the parsed $apply transformation interface.
type Transformation = query.Transformation

// TransientType re-exports the type of the data flowing between $apply transformations.
type TransientType = query.TransientType

// AggregateTransformation re-exports the aggregate transformation for external consumers.
type AggregateTransformation = query.AggregateTransformation

// GroupByTransformation re-exports the groupby transformation for external consumers.
type GroupByTransformation = query.GroupByTransformation

// FilterTransformation re-exports the filter transformation for external consumers.
type FilterTransformation = query.FilterTransformation

// ComputeTransformation re-exports the compute transformation for external consumers.
type ComputeTransformation = query.ComputeTransformation

// BottomTopTransformation re-exports the topcount/bottomcount family for external consumers.
type BottomTopTransformation = query.BottomTopTransformation
