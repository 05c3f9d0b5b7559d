package query

import "fmt"

// Validate checks that a directly built expression is well formed: Render
// produces text that parses back to an equal tree. Parsed expressions
// always validate.
func Validate(expr Expression) error {
	return validateNode(expr, "")
}

func childPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func invalid(path, format string, args ...any) error {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func validateNode(expr Expression, path string) error {
	switch e := expr.(type) {
	case nil:
		return invalid(path, "missing expression")
	case *FieldRef:
		if e == nil {
			return invalid(path, "nil field reference")
		}
		if !IsIdentifier(e.Name) {
			return invalid(path, "field name %q is not a valid identifier", e.Name)
		}
	case *Literal:
		if e == nil {
			return invalid(path, "nil literal")
		}
		if e.Value.Kind() == KindList {
			return invalid(path, "list literal is only allowed on the right of IN or NOT IN")
		}
	case *FunctionCall:
		if e == nil {
			return invalid(path, "nil function call")
		}
		if !IsIdentifier(e.Name) {
			return invalid(path, "function name %q is not a valid identifier", e.Name)
		}
		for i, arg := range e.Args {
			if err := validateNode(arg, childPath(path, fmt.Sprintf("args[%d]", i))); err != nil {
				return err
			}
		}
	case *Comparison:
		if e == nil {
			return invalid(path, "nil comparison")
		}
		return validateComparison(e, path)
	case *Logical:
		if e == nil {
			return invalid(path, "nil logical expression")
		}
		return validateLogical(e, path)
	default:
		return invalid(path, "unsupported node type %T", expr)
	}
	return nil
}

func validateComparison(e *Comparison, path string) error {
	if !e.Op.Valid() {
		return invalid(path, "unknown comparison operator %d", int(e.Op))
	}
	if err := validateNode(e.Left, childPath(path, "left")); err != nil {
		return err
	}

	rightPath := childPath(path, "right")
	switch {
	case e.Op.TakesList():
		lit, ok := e.Right.(*Literal)
		if !ok || lit == nil || lit.Value.Kind() != KindList {
			return invalid(rightPath, "%s requires a list literal", e.Op)
		}
		items, _ := lit.Value.List()
		if len(items) == 0 {
			return invalid(rightPath, "%s requires at least one value", e.Op)
		}
		for i, item := range items {
			if item.Kind() == KindList {
				return invalid(childPath(rightPath, fmt.Sprintf("[%d]", i)), "nested lists are not allowed")
			}
		}
		return nil
	case e.Op.TakesState():
		lit, ok := e.Right.(*Literal)
		if !ok || lit == nil || (lit.Value.Kind() != KindNull && lit.Value.Kind() != KindBool) {
			return invalid(rightPath, "%s requires NULL, TRUE or FALSE", e.Op)
		}
		return nil
	}
	return validateNode(e.Right, rightPath)
}

func validateLogical(e *Logical, path string) error {
	if !e.Op.Valid() {
		return invalid(path, "unknown logical operator %d", int(e.Op))
	}
	if err := validateNode(e.Left, childPath(path, "left")); err != nil {
		return err
	}
	if e.Op.Unary() {
		if e.Right != nil {
			return invalid(childPath(path, "right"), "NOT takes a single operand")
		}
		return nil
	}
	return validateNode(e.Right, childPath(path, "right"))
}
