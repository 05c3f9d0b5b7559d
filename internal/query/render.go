package query

import "strings"

// Binding strengths used when deciding where Render needs parentheses.
// Higher binds tighter.
const (
	precOr = iota + 1
	precAnd
	precNot
	precComparison
	precOperand
)

func precedenceOf(expr Expression) int {
	switch e := expr.(type) {
	case *Logical:
		switch e.Op {
		case Or:
			return precOr
		case And:
			return precAnd
		}
		return precNot
	case *Comparison:
		return precComparison
	}
	return precOperand
}

// Render returns the canonical text of expr. Keywords are upper-case,
// strings are double-quoted and only the parentheses needed to rebuild the
// same tree are emitted, so parsing the result yields an equal expression
// for every expression that passes Validate.
func Render(expr Expression) string {
	var b strings.Builder
	writeExpr(&b, expr, 0)
	return b.String()
}

// writeExpr renders expr, wrapping it in parentheses when it binds looser
// than minPrec.
func writeExpr(b *strings.Builder, expr Expression, minPrec int) {
	if expr == nil {
		return
	}
	wrap := precedenceOf(expr) < minPrec
	if wrap {
		b.WriteByte('(')
	}

	switch e := expr.(type) {
	case *FieldRef:
		b.WriteString(e.Name)
	case *Literal:
		writeValue(b, e.Value)
	case *FunctionCall:
		b.WriteString(e.Name)
		b.WriteByte('(')
		for i, arg := range e.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, arg, 0)
		}
		b.WriteByte(')')
	case *Comparison:
		// Comparisons do not chain, so nested comparisons on either side
		// are always grouped.
		writeExpr(b, e.Left, precOperand)
		b.WriteByte(' ')
		b.WriteString(e.Op.String())
		b.WriteByte(' ')
		writeExpr(b, e.Right, precOperand)
	case *Logical:
		if e.Op == Not {
			b.WriteString("NOT ")
			writeExpr(b, e.Left, precNot)
			break
		}
		prec := precedenceOf(e)
		// Left associative: a right operand of equal strength needs parens.
		writeExpr(b, e.Left, prec)
		b.WriteByte(' ')
		b.WriteString(e.Op.String())
		b.WriteByte(' ')
		writeExpr(b, e.Right, prec+1)
	}

	if wrap {
		b.WriteByte(')')
	}
}
