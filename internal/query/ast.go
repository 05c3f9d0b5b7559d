package query

// Expression is a node of the filter AST. The set of node types is closed:
// *FieldRef, *Literal, *Comparison, *Logical and *FunctionCall.
//
// Parentheses are not represented; grouping is expressed by the tree shape
// and restored by Render where needed.
type Expression interface {
	exprNode()
}

// FieldRef represents a reference to a named field (e.g. age, user.name)
type FieldRef struct {
	Name string
}

func (e *FieldRef) exprNode() {}

// Literal represents a literal value
type Literal struct {
	Value Value
}

func (e *Literal) exprNode() {}

// Comparison represents a binary comparison (e.g. age > 18)
type Comparison struct {
	Left  Expression
	Op    CompareOp
	Right Expression
}

func (e *Comparison) exprNode() {}

// Logical represents AND, OR and NOT. Right is nil for NOT.
type Logical struct {
	Left  Expression
	Op    LogicalOp
	Right Expression
}

func (e *Logical) exprNode() {}

// FunctionCall represents a function call (e.g. lower(name))
type FunctionCall struct {
	Name string
	Args []Expression
}

func (e *FunctionCall) exprNode() {}

// NewField returns a field reference.
func NewField(name string) *FieldRef {
	return &FieldRef{Name: name}
}

// NewLiteral returns a literal node.
func NewLiteral(v Value) *Literal {
	return &Literal{Value: v}
}

// NewComparison returns a comparison node.
func NewComparison(left Expression, op CompareOp, right Expression) *Comparison {
	return &Comparison{Left: left, Op: op, Right: right}
}

// NewAnd joins operands left-associatively with AND.
func NewAnd(first Expression, rest ...Expression) Expression {
	return foldLogical(And, first, rest)
}

// NewOr joins operands left-associatively with OR.
func NewOr(first Expression, rest ...Expression) Expression {
	return foldLogical(Or, first, rest)
}

func foldLogical(op LogicalOp, first Expression, rest []Expression) Expression {
	left := first
	for _, right := range rest {
		left = &Logical{Left: left, Op: op, Right: right}
	}
	return left
}

// NewNot negates an expression.
func NewNot(operand Expression) *Logical {
	return &Logical{Left: operand, Op: Not}
}

// NewFunctionCall returns a function call node. The argument slice is copied.
func NewFunctionCall(name string, args ...Expression) *FunctionCall {
	copied := make([]Expression, len(args))
	copy(copied, args)
	return &FunctionCall{Name: name, Args: copied}
}

// Walk visits expr and its descendants depth-first, left to right. Returning
// false from fn skips the node's children.
func Walk(expr Expression, fn func(Expression) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	switch e := expr.(type) {
	case *Comparison:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case *Logical:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case *FunctionCall:
		for _, arg := range e.Args {
			Walk(arg, fn)
		}
	}
}
