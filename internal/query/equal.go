package query

// ExprEqual reports whether a and b are structurally equal. Numbers compare by
// representation and value, so 1 and 1.0 differ while 1.5 and 1.50 match.
// A nil and an empty argument list are equal.
func ExprEqual(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch x := a.(type) {
	case *FieldRef:
		y, ok := b.(*FieldRef)
		return ok && x != nil && y != nil && x.Name == y.Name
	case *Literal:
		y, ok := b.(*Literal)
		return ok && x != nil && y != nil && x.Value.Equal(y.Value)
	case *Comparison:
		y, ok := b.(*Comparison)
		return ok && x != nil && y != nil && x.Op == y.Op &&
			ExprEqual(x.Left, y.Left) && ExprEqual(x.Right, y.Right)
	case *Logical:
		y, ok := b.(*Logical)
		return ok && x != nil && y != nil && x.Op == y.Op &&
			ExprEqual(x.Left, y.Left) && ExprEqual(x.Right, y.Right)
	case *FunctionCall:
		y, ok := b.(*FunctionCall)
		if !ok || x == nil || y == nil || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !ExprEqual(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy of expr. Values are immutable and are shared.
func Clone(expr Expression) Expression {
	switch x := expr.(type) {
	case *FieldRef:
		if x != nil {
			return &FieldRef{Name: x.Name}
		}
	case *Literal:
		if x != nil {
			return &Literal{Value: x.Value}
		}
	case *Comparison:
		if x != nil {
			return &Comparison{Left: Clone(x.Left), Op: x.Op, Right: Clone(x.Right)}
		}
	case *Logical:
		if x != nil {
			return &Logical{Left: Clone(x.Left), Op: x.Op, Right: Clone(x.Right)}
		}
	case *FunctionCall:
		if x != nil {
			var args []Expression
			if x.Args != nil {
				args = make([]Expression, len(x.Args))
				for i, arg := range x.Args {
					args[i] = Clone(arg)
				}
			}
			return &FunctionCall{Name: x.Name, Args: args}
		}
	}
	return expr
}
