// Package codec converts filter expressions to and from a tagged wire form
// that is encoded as JSON or MessagePack.
package codec

import (
	"errors"
	"fmt"

	"github.com/nlstn/go-filterql/internal/query"
)

// Node types.
const (
	TypeField      = "field"
	TypeLiteral    = "literal"
	TypeComparison = "comparison"
	TypeLogical    = "logical"
	TypeCall       = "call"
)

// maxNodeDepth bounds decoding of nested nodes.
const maxNodeDepth = query.DefaultMaxDepth

// ErrInvalidNode is returned when a wire node cannot be turned into an expression.
var ErrInvalidNode = errors.New("invalid expression node")

// NodeError reports a malformed wire node. Path locates the node, e.g.
// "left.args[0]".
type NodeError struct {
	Path   string
	Reason string
}

func (e *NodeError) Error() string {
	if e.Path == "" {
		return "invalid node: " + e.Reason
	}
	return fmt.Sprintf("invalid node at %s: %s", e.Path, e.Reason)
}

func (e *NodeError) Unwrap() error { return ErrInvalidNode }

// Node is the wire form of an expression.
//
//	{"type":"comparison","op":">","left":{"type":"field","name":"age"},
//	 "right":{"type":"literal","value":{"kind":"number","number":"18"}}}
type Node struct {
	Type  string  `json:"type" msgpack:"type" yaml:"type"`
	Name  string  `json:"name,omitempty" msgpack:"name,omitempty" yaml:"name,omitempty"`
	Op    string  `json:"op,omitempty" msgpack:"op,omitempty" yaml:"op,omitempty"`
	Left  *Node   `json:"left,omitempty" msgpack:"left,omitempty" yaml:"left,omitempty"`
	Right *Node   `json:"right,omitempty" msgpack:"right,omitempty" yaml:"right,omitempty"`
	Args  []*Node `json:"args,omitempty" msgpack:"args,omitempty" yaml:"args,omitempty"`
	Value *Value  `json:"value,omitempty" msgpack:"value,omitempty" yaml:"value,omitempty"`
}

// Value is the wire form of a literal. Numbers travel as text so integers
// and decimals keep their representation and precision.
type Value struct {
	Kind   string  `json:"kind" msgpack:"kind" yaml:"kind"`
	String string  `json:"string,omitempty" msgpack:"string,omitempty" yaml:"string,omitempty"`
	Number string  `json:"number,omitempty" msgpack:"number,omitempty" yaml:"number,omitempty"`
	Bool   bool    `json:"bool,omitempty" msgpack:"bool,omitempty" yaml:"bool,omitempty"`
	Items  []Value `json:"items,omitempty" msgpack:"items,omitempty" yaml:"items,omitempty"`
}

// FromExpression converts an expression to its wire form.
func FromExpression(expr query.Expression) (*Node, error) {
	if err := query.Validate(expr); err != nil {
		return nil, err
	}
	return fromExpr(expr), nil
}

func fromExpr(expr query.Expression) *Node {
	switch e := expr.(type) {
	case *query.FieldRef:
		return &Node{Type: TypeField, Name: e.Name}
	case *query.Literal:
		v := FromValue(e.Value)
		return &Node{Type: TypeLiteral, Value: &v}
	case *query.Comparison:
		return &Node{Type: TypeComparison, Op: e.Op.String(), Left: fromExpr(e.Left), Right: fromExpr(e.Right)}
	case *query.Logical:
		n := &Node{Type: TypeLogical, Op: e.Op.String(), Left: fromExpr(e.Left)}
		if e.Right != nil {
			n.Right = fromExpr(e.Right)
		}
		return n
	case *query.FunctionCall:
		n := &Node{Type: TypeCall, Name: e.Name}
		for _, arg := range e.Args {
			n.Args = append(n.Args, fromExpr(arg))
		}
		return n
	}
	return nil
}

// FromValue converts a literal value to its wire form.
func FromValue(v query.Value) Value {
	out := Value{Kind: v.Kind().String()}
	switch v.Kind() {
	case query.KindString:
		out.String, _ = v.Str()
	case query.KindNumber:
		n, _ := v.Num()
		out.Number = n.String()
	case query.KindBool:
		out.Bool, _ = v.Bool()
	case query.KindList:
		items, _ := v.List()
		out.Items = make([]Value, len(items))
		for i, item := range items {
			out.Items[i] = FromValue(item)
		}
	}
	return out
}

// Expression converts the wire form back into an expression. The result
// is validated, so it always renders to text that parses back to it.
func (n *Node) Expression() (query.Expression, error) {
	expr, err := n.toExpr("", 0)
	if err != nil {
		return nil, err
	}
	if err := query.Validate(expr); err != nil {
		return nil, err
	}
	return expr, nil
}

func childPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func (n *Node) toExpr(path string, depth int) (query.Expression, error) {
	if n == nil {
		return nil, &NodeError{Path: path, Reason: "missing node"}
	}
	if depth > maxNodeDepth {
		return nil, &NodeError{Path: path, Reason: fmt.Sprintf("nesting exceeds %d levels", maxNodeDepth)}
	}

	switch n.Type {
	case TypeField:
		return query.NewField(n.Name), nil
	case TypeLiteral:
		if n.Value == nil {
			return nil, &NodeError{Path: path, Reason: "literal without value"}
		}
		v, err := n.Value.toValue(childPath(path, "value"))
		if err != nil {
			return nil, err
		}
		return query.NewLiteral(v), nil
	case TypeComparison:
		op, ok := lookupCompareOp(n.Op)
		if !ok {
			return nil, &NodeError{Path: path, Reason: fmt.Sprintf("unknown comparison operator %q", n.Op)}
		}
		left, err := n.Left.toExpr(childPath(path, "left"), depth+1)
		if err != nil {
			return nil, err
		}
		right, err := n.Right.toExpr(childPath(path, "right"), depth+1)
		if err != nil {
			return nil, err
		}
		return query.NewComparison(left, op, right), nil
	case TypeLogical:
		op, ok := lookupLogicalOp(n.Op)
		if !ok {
			return nil, &NodeError{Path: path, Reason: fmt.Sprintf("unknown logical operator %q", n.Op)}
		}
		left, err := n.Left.toExpr(childPath(path, "left"), depth+1)
		if err != nil {
			return nil, err
		}
		if op.Unary() {
			if n.Right != nil {
				return nil, &NodeError{Path: childPath(path, "right"), Reason: "NOT takes a single operand"}
			}
			return query.NewNot(left), nil
		}
		right, err := n.Right.toExpr(childPath(path, "right"), depth+1)
		if err != nil {
			return nil, err
		}
		return &query.Logical{Left: left, Op: op, Right: right}, nil
	case TypeCall:
		args := make([]query.Expression, len(n.Args))
		for i, arg := range n.Args {
			expr, err := arg.toExpr(childPath(path, fmt.Sprintf("args[%d]", i)), depth+1)
			if err != nil {
				return nil, err
			}
			args[i] = expr
		}
		return query.NewFunctionCall(n.Name, args...), nil
	case "":
		return nil, &NodeError{Path: path, Reason: "missing node type"}
	}
	return nil, &NodeError{Path: path, Reason: fmt.Sprintf("unknown node type %q", n.Type)}
}

// Operators are accepted by their rendering ("NOT IN") or their name ("NotIn").
func lookupCompareOp(s string) (query.CompareOp, bool) {
	if op, ok := query.LookupCompareOp(s); ok {
		return op, true
	}
	return query.CompareOpByName(s)
}

func lookupLogicalOp(s string) (query.LogicalOp, bool) {
	if op, ok := query.LookupLogicalOp(s); ok {
		return op, true
	}
	return query.LogicalOpByName(s)
}

// Value converts the wire form back into a literal value.
func (v Value) Value() (query.Value, error) {
	return v.toValue("")
}

func (v Value) toValue(path string) (query.Value, error) {
	kind, ok := query.ParseValueKind(v.Kind)
	if !ok {
		return query.Value{}, &NodeError{Path: path, Reason: fmt.Sprintf("unknown value kind %q", v.Kind)}
	}

	switch kind {
	case query.KindString:
		return query.StringValue(v.String), nil
	case query.KindNumber:
		n, err := query.ParseNumber(v.Number)
		if err != nil {
			return query.Value{}, &NodeError{Path: path, Reason: err.Error()}
		}
		return query.NumberValue(n), nil
	case query.KindBool:
		return query.BoolValue(v.Bool), nil
	case query.KindList:
		items := make([]query.Value, len(v.Items))
		for i, item := range v.Items {
			iv, err := item.toValue(childPath(path, fmt.Sprintf("items[%d]", i)))
			if err != nil {
				return query.Value{}, err
			}
			items[i] = iv
		}
		return query.ListValue(items...), nil
	}
	return query.NullValue(), nil
}
