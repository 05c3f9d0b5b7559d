package query

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		expr Expression
		want string
	}{
		{
			name: "comparison",
			expr: NewComparison(NewField("age"), GreaterThan, NewLiteral(IntValue(18))),
			want: "age > 18",
		},
		{
			name: "OR under AND is grouped",
			expr: NewAnd(NewOr(NewField("a"), NewField("b")), NewField("c")),
			want: "(a OR b) AND c",
		},
		{
			name: "AND under OR is not grouped",
			expr: NewOr(NewField("a"), NewAnd(NewField("b"), NewField("c"))),
			want: "a OR b AND c",
		},
		{
			name: "right nested same operator is grouped",
			expr: &Logical{Left: NewField("a"), Op: And, Right: &Logical{Left: NewField("b"), Op: And, Right: NewField("c")}},
			want: "a AND (b AND c)",
		},
		{
			name: "left nested same operator is flat",
			expr: NewAnd(NewField("a"), NewField("b"), NewField("c")),
			want: "a AND b AND c",
		},
		{
			name: "NOT over binary logical",
			expr: NewNot(NewOr(NewField("a"), NewField("b"))),
			want: "NOT (a OR b)",
		},
		{
			name: "NOT over comparison",
			expr: NewNot(NewComparison(NewField("a"), Equal, NewLiteral(NullValue()))),
			want: "NOT a = NULL",
		},
		{
			name: "nested comparison operand",
			expr: NewComparison(NewComparison(NewField("a"), LessThan, NewField("b")), Equal, NewLiteral(BoolValue(false))),
			want: "(a < b) = FALSE",
		},
		{
			name: "NOT as comparison operand",
			expr: NewComparison(NewField("a"), Equal, NewNot(NewField("b"))),
			want: "a = (NOT b)",
		},
		{
			name: "list operand",
			expr: NewComparison(NewField("s"), NotIn, NewLiteral(ListValue(StringValue("a"), IntValue(2), NullValue()))),
			want: `s NOT IN ("a", 2, NULL)`,
		},
		{
			name: "IS NOT",
			expr: NewComparison(NewField("x"), IsNot, NewLiteral(BoolValue(true))),
			want: "x IS NOT TRUE",
		},
		{
			name: "function call",
			expr: NewFunctionCall("concat", NewField("a"), NewLiteral(StringValue(`q"\`)), NewOr(NewField("b"), NewField("c"))),
			want: `concat(a, "q\"\\", b OR c)`,
		},
		{
			name: "zero argument call",
			expr: NewFunctionCall("now"),
			want: "now()",
		},
		{
			name: "decimals keep a point",
			expr: NewComparison(NewField("x"), Equal, NewLiteral(DecimalValue(decimal.NewFromInt(3)))),
			want: "x = 3.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.expr); got != tt.want {
				t.Errorf("Render() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRenderCanonicalizesInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a<>1", "a != 1"},
		{"x is not null", "x IS NOT NULL"},
		{"name contains 'it\\'s'", `name CONTAINS "it's"`},
		{"((a = 1) and (b = 2)) or c", "a = 1 AND b = 2 OR c"},
		{"x = +1.50", "x = 1.5"},
		{"status not in ('a','b')", `status NOT IN ("a", "b")`},
		{"not(not(a))", "NOT NOT a"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Render(mustParse(t, tt.input)); got != tt.want {
				t.Errorf("Render() = %s, want %s", got, tt.want)
			}
		})
	}
}

// exprGen builds random valid expressions for round trip checks.
type exprGen struct {
	rnd *rand.Rand
}

var genFieldNames = []string{"a", "age", "user.name", "_x", "Größe"}

func (g *exprGen) scalar() Value {
	switch g.rnd.Intn(6) {
	case 0:
		runes := []string{"", "x", `q"uote`, `back\slash`, "it's", "line\nbreak", "ü"}
		return StringValue(runes[g.rnd.Intn(len(runes))])
	case 1:
		return IntValue(g.rnd.Int63n(2000) - 1000)
	case 2:
		return DecimalValue(decimal.New(g.rnd.Int63n(20000)-10000, -int32(g.rnd.Intn(4))))
	case 3:
		return BoolValue(g.rnd.Intn(2) == 0)
	case 4:
		return NullValue()
	}
	return IntValue(0)
}

func (g *exprGen) operand(depth int) Expression {
	switch n := g.rnd.Intn(4); {
	case n == 0:
		return NewField(genFieldNames[g.rnd.Intn(len(genFieldNames))])
	case n == 1 || depth <= 0:
		return NewLiteral(g.scalar())
	case n == 2:
		args := make([]Expression, g.rnd.Intn(3))
		for i := range args {
			args[i] = g.expr(depth - 1)
		}
		return NewFunctionCall("fn", args...)
	}
	return g.expr(depth - 1)
}

func (g *exprGen) comparison(depth int) Expression {
	ops := CompareOps()
	op := ops[g.rnd.Intn(len(ops))]
	left := g.operand(depth)
	switch {
	case op.TakesList():
		items := make([]Value, 1+g.rnd.Intn(3))
		for i := range items {
			items[i] = g.scalar()
		}
		return NewComparison(left, op, NewLiteral(ListValue(items...)))
	case op.TakesState():
		states := []Value{NullValue(), BoolValue(true), BoolValue(false)}
		return NewComparison(left, op, NewLiteral(states[g.rnd.Intn(len(states))]))
	}
	return NewComparison(left, op, g.operand(depth))
}

func (g *exprGen) expr(depth int) Expression {
	if depth <= 0 {
		return g.comparison(0)
	}
	switch g.rnd.Intn(5) {
	case 0:
		return &Logical{Left: g.expr(depth - 1), Op: And, Right: g.expr(depth - 1)}
	case 1:
		return &Logical{Left: g.expr(depth - 1), Op: Or, Right: g.expr(depth - 1)}
	case 2:
		return NewNot(g.expr(depth - 1))
	case 3:
		return g.operand(depth)
	}
	return g.comparison(depth)
}

func TestRenderRoundTrip(t *testing.T) {
	g := &exprGen{rnd: rand.New(rand.NewSource(42))}

	for i := 0; i < 500; i++ {
		expr := g.expr(4)
		if err := Validate(expr); err != nil {
			t.Fatalf("generated invalid expression: %v", err)
		}
		text := Render(expr)
		parsed, err := ParseExpression(text, ParserOptions{})
		if err != nil {
			t.Fatalf("ParseExpression(%q) error = %v", text, err)
		}
		if !ExprEqual(parsed, expr) {
			t.Fatalf("round trip mismatch:\n text: %s\n got:  %s", text, Render(parsed))
		}
		if again := Render(parsed); again != text {
			t.Fatalf("rendering is not stable: %s != %s", again, text)
		}
	}
}

func TestExprEqual(t *testing.T) {
	a := NewComparison(NewField("x"), Equal, NewLiteral(DecimalValue(decimal.RequireFromString("1.50"))))
	b := NewComparison(NewField("x"), Equal, NewLiteral(DecimalValue(decimal.RequireFromString("1.5"))))
	if !ExprEqual(a, b) {
		t.Error("decimals should compare by value")
	}

	c := NewComparison(NewField("x"), Equal, NewLiteral(IntValue(1)))
	d := NewComparison(NewField("x"), Equal, NewLiteral(DecimalValue(decimal.NewFromInt(1))))
	if ExprEqual(c, d) {
		t.Error("integer and decimal literals should differ")
	}

	if !ExprEqual(&FunctionCall{Name: "f"}, NewFunctionCall("f")) {
		t.Error("nil and empty argument lists should be equal")
	}
	if ExprEqual(NewField("a"), nil) || !ExprEqual(nil, nil) {
		t.Error("nil handling")
	}
	if ExprEqual(NewNot(NewField("a")), NewAnd(NewField("a"), NewField("a"))) {
		t.Error("different operators should differ")
	}
	if ExprEqual(NewField("a"), NewLiteral(StringValue("a"))) {
		t.Error("different node kinds should differ")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		expr Expression
		path string
	}{
		{"nil", nil, ""},
		{"keyword field", NewField("and"), ""},
		{"empty field", NewField(""), ""},
		{"list outside IN", NewComparison(NewField("a"), Equal, NewLiteral(ListValue(IntValue(1)))), "right"},
		{"IN with scalar", NewComparison(NewField("a"), In, NewLiteral(IntValue(1))), "right"},
		{"IN with empty list", NewComparison(NewField("a"), In, NewLiteral(ListValue())), "right"},
		{"IN with nested list", NewComparison(NewField("a"), In, NewLiteral(ListValue(ListValue(IntValue(1))))), "right.[0]"},
		{"IS with string", NewComparison(NewField("a"), Is, NewLiteral(StringValue("x"))), "right"},
		{"NOT with right operand", &Logical{Left: NewField("a"), Op: Not, Right: NewField("b")}, "right"},
		{"AND without right operand", &Logical{Left: NewField("a"), Op: And}, "right"},
		{"unknown compare op", &Comparison{Left: NewField("a"), Op: CompareOp(99), Right: NewField("b")}, ""},
		{"unknown logical op", &Logical{Left: NewField("a"), Op: LogicalOp(99), Right: NewField("b")}, ""},
		{"bad function name", NewFunctionCall("not a name"), ""},
		{"nested bad arg", NewAnd(NewField("a"), NewFunctionCall("f", NewField("ok"), NewField("1x"))), "right.args[1]"},
		{"typed nil", (*FieldRef)(nil), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.expr)
			if err == nil {
				t.Fatal("expected error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Path != tt.path {
				t.Errorf("path = %q, want %q (%v)", verr.Path, tt.path, err)
			}
			if !errors.Is(err, ErrInvalidExpression) {
				t.Error("expected ErrInvalidExpression")
			}
		})
	}

	if err := Validate(mustParse(t, `a IN (1, 2) AND NOT f(b, "x") OR c IS NULL`)); err != nil {
		t.Errorf("parsed expression should validate: %v", err)
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	expr := mustParse(t, "f(a) = 1 AND NOT b")
	var visited []string
	Walk(expr, func(e Expression) bool {
		switch n := e.(type) {
		case *FieldRef:
			visited = append(visited, n.Name)
		case *FunctionCall:
			visited = append(visited, n.Name+"()")
			return false
		}
		return true
	})
	if got := strings.Join(visited, ","); got != "f(),b" {
		t.Errorf("visited = %s", got)
	}
}

func TestClone(t *testing.T) {
	expr := mustParse(t, `a IN (1, 2) AND NOT f(b, "x") OR g() = c`)
	clone := Clone(expr)
	if !ExprEqual(expr, clone) {
		t.Fatalf("clone differs: %s", Render(clone))
	}

	Walk(clone, func(e Expression) bool {
		switch n := e.(type) {
		case *FieldRef:
			n.Name = "changed"
		case *FunctionCall:
			n.Name = "h"
		}
		return true
	})
	if got := Render(expr); got != `a IN (1, 2) AND NOT f(b, "x") OR g() = c` {
		t.Errorf("original changed through its clone: %s", got)
	}

	if Clone(nil) != nil {
		t.Error("Clone(nil) should be nil")
	}
	if zero := Clone(&FunctionCall{Name: "now"}).(*FunctionCall); zero.Args != nil {
		t.Error("nil argument list should stay nil")
	}
}
