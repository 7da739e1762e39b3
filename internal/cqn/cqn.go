package cqn

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is an element of the query AST. Expressions are flat infix token
// lists mixing operator keywords (Op) with operands (Ref, Val, Func, Xpr, List).
type Node interface {
	cqnNode()
}

// Op is an operator or keyword token such as "=", "and", "is", "null" or "exists".
type Op string

func (Op) cqnNode() {}

// Step is one element of a reference. Where is set for the filtered
// navigation step of an exists sub-query.
type Step struct {
	ID    string
	Where []Node
}

// MarshalJSON writes plain steps as strings and filtered steps as {id, where}.
func (s Step) MarshalJSON() ([]byte, error) {
	if s.Where == nil {
		return json.Marshal(s.ID)
	}
	return json.Marshal(struct {
		ID    string `json:"id"`
		Where []Node `json:"where"`
	}{s.ID, s.Where})
}

// Ref is a path reference {ref:[...]}.
type Ref struct {
	Steps []Step
}

func (*Ref) cqnNode() {}

// NewRef builds a reference from plain step names.
func NewRef(names ...string) *Ref {
	r := &Ref{Steps: make([]Step, len(names))}
	for i, n := range names {
		r.Steps[i] = Step{ID: n}
	}
	return r
}

// Names returns the ids of the steps.
func (r *Ref) Names() []string {
	names := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		names[i] = s.ID
	}
	return names
}

// plain reports whether no step carries a filter.
func (r *Ref) plain() bool {
	for _, s := range r.Steps {
		if s.Where != nil {
			return false
		}
	}
	return len(r.Steps) > 0
}

func (r *Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]Step{"ref": r.Steps})
}

// Val is a literal {val:...}.
type Val struct {
	Value interface{}
}

func (*Val) cqnNode() {}

func (v *Val) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"val": v.Value})
}

// Func is a function call {func, args}.
type Func struct {
	Name string
	Args []Node
}

func (*Func) cqnNode() {}

func (f *Func) MarshalJSON() ([]byte, error) {
	args := f.Args
	if args == nil {
		args = []Node{}
	}
	return json.Marshal(struct {
		Func string `json:"func"`
		Args []Node `json:"args"`
	}{f.Name, args})
}

// Xpr is a nested expression {xpr:[...]}.
type Xpr struct {
	Tokens []Node
}

func (*Xpr) cqnNode() {}

func (x *Xpr) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]Node{"xpr": x.Tokens})
}

// List is the value list of an in operator {list:[...]}.
type List struct {
	Items []Node
}

func (*List) cqnNode() {}

func (l *List) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]Node{"list": l.Items})
}

// Tokens returns the flat token list of n: the tokens of an Xpr, otherwise n itself.
func Tokens(n Node) []Node {
	if x, ok := n.(*Xpr); ok {
		return x.Tokens
	}
	return []Node{n}
}

// Column is an entry of a projection: an expression with an optional alias
// and an optional result type cast.
type Column struct {
	Expr Node
	As   string
	Cast string
}

// MarshalJSON merges the alias and cast into the JSON object of the expression.
// Op expressions such as "*" are written as plain strings.
func (c Column) MarshalJSON() ([]byte, error) {
	if op, ok := c.Expr.(Op); ok {
		return json.Marshal(string(op))
	}
	raw, err := json.Marshal(c.Expr)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("column expression must encode as an object: %w", err)
	}
	if c.As != "" {
		obj["as"], _ = json.Marshal(c.As)
	}
	if c.Cast != "" {
		obj["cast"], _ = json.Marshal(map[string]string{"type": c.Cast})
	}
	return json.Marshal(obj)
}

// OrderBy is a sort criterion.
type OrderBy struct {
	Expr       Node
	Descending bool
}

// MarshalJSON writes a plain path as {"Path.Name":"asc|desc"} and any other
// expression as its object with a sort member.
func (o OrderBy) MarshalJSON() ([]byte, error) {
	sort := "asc"
	if o.Descending {
		sort = "desc"
	}
	if ref, ok := o.Expr.(*Ref); ok && ref.plain() {
		return json.Marshal(map[string]string{strings.Join(ref.Names(), "."): sort})
	}
	raw, err := json.Marshal(o.Expr)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("order by expression must encode as an object: %w", err)
	}
	obj["sort"], _ = json.Marshal(sort)
	return json.Marshal(obj)
}

// Limit restricts the number of rows returned.
type Limit struct {
	Top  *int64 `json:"top,omitempty"`
	Skip *int64 `json:"skip,omitempty"`
}

// BottomTop is a per-group top/bottom directive passed to storage unchanged.
type BottomTop struct {
	Method string
	N      Node
	Value  Node
}

func (b *BottomTop) MarshalJSON() ([]byte, error) {
	return json.Marshal(&Func{Name: b.Method, Args: []Node{b.N, b.Value}})
}

// ApplyResult is the translation of an $apply pipeline.
type ApplyResult struct {
	GroupBy      []*Ref     `json:"groupBy,omitempty"`
	Aggregations []Column   `json:"aggregations,omitempty"`
	Columns      []Column   `json:"columns,omitempty"`
	Filter       []Node     `json:"filter,omitempty"`
	Having       []Node     `json:"having,omitempty"`
	Search       []Node     `json:"search,omitempty"`
	OrderBy      []OrderBy  `json:"orderBy,omitempty"`
	Limit        *Limit     `json:"limit,omitempty"`
	BottomTop    *BottomTop `json:"bottomTop,omitempty"`
}
