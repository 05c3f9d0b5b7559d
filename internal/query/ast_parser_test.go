package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func mustParse(t *testing.T, input string) Expression {
	t.Helper()
	expr, err := ParseExpression(input, ParserOptions{})
	if err != nil {
		t.Fatalf("ParseExpression(%q) error = %v", input, err)
	}
	return expr
}

func parseError(t *testing.T, input string, opts ParserOptions) *ParseError {
	t.Helper()
	_, err := ParseExpression(input, opts)
	if err == nil {
		t.Fatalf("ParseExpression(%q) expected error", input)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrParse) || errors.Is(err, ErrLex) {
		t.Fatalf("parse errors must match ErrParse only: %v", err)
	}
	return perr
}

func TestASTParser_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Expression
	}{
		{
			name:  "AND binds tighter than OR",
			input: "a OR b AND c",
			want:  NewOr(NewField("a"), NewAnd(NewField("b"), NewField("c"))),
		},
		{
			name:  "AND then OR",
			input: "a AND b OR c",
			want:  NewOr(NewAnd(NewField("a"), NewField("b")), NewField("c")),
		},
		{
			name:  "OR is left associative",
			input: "a OR b OR c",
			want:  &Logical{Left: &Logical{Left: NewField("a"), Op: Or, Right: NewField("b")}, Op: Or, Right: NewField("c")},
		},
		{
			name:  "grouping overrides precedence",
			input: "(a OR b) AND c",
			want:  NewAnd(NewOr(NewField("a"), NewField("b")), NewField("c")),
		},
		{
			name:  "NOT binds tighter than AND",
			input: "NOT a AND b",
			want:  NewAnd(NewNot(NewField("a")), NewField("b")),
		},
		{
			name:  "NOT applies to a comparison",
			input: "NOT age > 18",
			want:  NewNot(NewComparison(NewField("age"), GreaterThan, NewLiteral(IntValue(18)))),
		},
		{
			name:  "double negation",
			input: "not not a",
			want:  NewNot(NewNot(NewField("a"))),
		},
		{
			name:  "redundant parentheses collapse",
			input: "((age = 1))",
			want:  NewComparison(NewField("age"), Equal, NewLiteral(IntValue(1))),
		},
		{
			name:  "grouped comparison as operand",
			input: "(a = 1) = TRUE",
			want:  NewComparison(NewComparison(NewField("a"), Equal, NewLiteral(IntValue(1))), Equal, NewLiteral(BoolValue(true))),
		},
		{
			name:  "AND of two comparisons",
			input: `age > 18 AND name CONTAINS "foo"`,
			want: NewAnd(
				NewComparison(NewField("age"), GreaterThan, NewLiteral(IntValue(18))),
				NewComparison(NewField("name"), Contains, NewLiteral(StringValue("foo"))),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.input)
			if !ExprEqual(got, tt.want) {
				t.Errorf("got %s, want %s", Render(got), Render(tt.want))
			}
		})
	}
}

func TestASTParser_OperatorCoverage(t *testing.T) {
	for _, op := range CompareOps() {
		if op.TakesList() || op.TakesState() {
			continue
		}
		t.Run(op.Name(), func(t *testing.T) {
			got := mustParse(t, "field "+op.String()+" 1")
			want := NewComparison(NewField("field"), op, NewLiteral(IntValue(1)))
			if !ExprEqual(got, want) {
				t.Errorf("got %s, want %s", Render(got), Render(want))
			}
		})
	}
}

func TestASTParser_ListAndStateOperators(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Expression
	}{
		{
			name:  "IN list",
			input: `status IN ("a", "b")`,
			want:  NewComparison(NewField("status"), In, NewLiteral(ListValue(StringValue("a"), StringValue("b")))),
		},
		{
			name:  "NOT IN list",
			input: `status not in (1, 2.5, null, true)`,
			want: NewComparison(NewField("status"), NotIn, NewLiteral(ListValue(
				IntValue(1), DecimalValue(decimal.RequireFromString("2.5")), NullValue(), BoolValue(true),
			))),
		},
		{
			name:  "single element list",
			input: "id IN (7)",
			want:  NewComparison(NewField("id"), In, NewLiteral(ListValue(IntValue(7)))),
		},
		{
			name:  "IS NULL",
			input: "deleted_at IS NULL",
			want:  NewComparison(NewField("deleted_at"), Is, NewLiteral(NullValue())),
		},
		{
			name:  "IS NOT NULL",
			input: "x IS NOT NULL",
			want:  NewComparison(NewField("x"), IsNot, NewLiteral(NullValue())),
		},
		{
			name:  "IS NOT TRUE",
			input: "flag is not true",
			want:  NewComparison(NewField("flag"), IsNot, NewLiteral(BoolValue(true))),
		},
		{
			name:  "NOT before IS",
			input: "NOT x IS FALSE",
			want:  NewNot(NewComparison(NewField("x"), Is, NewLiteral(BoolValue(false)))),
		},
		{
			name:  "angle bracket alias",
			input: "a <> 1",
			want:  NewComparison(NewField("a"), NotEqual, NewLiteral(IntValue(1))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.input)
			if !ExprEqual(got, tt.want) {
				t.Errorf("got %s, want %s", Render(got), Render(tt.want))
			}
		})
	}
}

func TestASTParser_FunctionCalls(t *testing.T) {
	got := mustParse(t, `f(a, 1, "x")`)
	want := NewFunctionCall("f", NewField("a"), NewLiteral(IntValue(1)), NewLiteral(StringValue("x")))
	if !ExprEqual(got, want) {
		t.Errorf("got %s, want %s", Render(got), Render(want))
	}

	empty := mustParse(t, "f()")
	call, ok := empty.(*FunctionCall)
	if !ok {
		t.Fatalf("expected *FunctionCall, got %T", empty)
	}
	if call.Name != "f" || len(call.Args) != 0 {
		t.Errorf("got %s with %d args", call.Name, len(call.Args))
	}

	nested := mustParse(t, "SUM(price) > AVG(lower(x), a = 1 OR b)")
	cmp, ok := nested.(*Comparison)
	if !ok {
		t.Fatalf("expected *Comparison, got %T", nested)
	}
	avg, ok := cmp.Right.(*FunctionCall)
	if !ok || avg.Name != "AVG" || len(avg.Args) != 2 {
		t.Fatalf("unexpected right operand %s", Render(cmp.Right))
	}
	if _, ok := avg.Args[1].(*Logical); !ok {
		t.Errorf("expected a logical argument, got %T", avg.Args[1])
	}
}

func TestASTParser_Literals(t *testing.T) {
	tests := []struct {
		input string
		want  Value
	}{
		{`x = "text"`, StringValue("text")},
		{`x = 'text'`, StringValue("text")},
		{"x = 42", IntValue(42)},
		{"x = -42", IntValue(-42)},
		{"x = +42", IntValue(42)},
		{"x = 3.25", DecimalValue(decimal.RequireFromString("3.25"))},
		{"x = 99999999999999999999", DecimalValue(decimal.RequireFromString("99999999999999999999"))},
		{"x = TRUE", BoolValue(true)},
		{"x = false", BoolValue(false)},
		{"x = null", NullValue()},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr := mustParse(t, tt.input)
			cmp := expr.(*Comparison)
			lit, ok := cmp.Right.(*Literal)
			if !ok {
				t.Fatalf("expected literal, got %T", cmp.Right)
			}
			if !lit.Value.Equal(tt.want) {
				t.Errorf("got %s (%v), want %s (%v)", lit.Value, lit.Value.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestASTParser_ChainedComparison(t *testing.T) {
	tests := []struct {
		input string
		pos   int
		found string
	}{
		{"a < b < c", 6, "<"},
		{"a = 1 = 2", 6, "="},
		{"a IN (1) NOT IN (2)", 9, "NOT IN"},
		{"x IS NULL IS NULL", 10, "IS"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			perr := parseError(t, tt.input, ParserOptions{})
			if perr.Kind != ChainedComparison {
				t.Fatalf("kind = %v, want %v", perr.Kind, ChainedComparison)
			}
			if perr.Pos != tt.pos || perr.Found != tt.found {
				t.Errorf("got pos %d found %q, want pos %d found %q", perr.Pos, perr.Found, tt.pos, tt.found)
			}
		})
	}
}

func TestASTParser_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     ParseErrorKind
		pos      int
		expected []string
	}{
		{
			name:     "missing right operand",
			input:    "age >",
			kind:     UnexpectedEOF,
			pos:      5,
			expected: operandExpected,
		},
		{
			name:     "empty input",
			input:    "",
			kind:     UnexpectedEOF,
			pos:      0,
			expected: operandExpected,
		},
		{
			name:     "unclosed group",
			input:    "(a = 1",
			kind:     UnexpectedEOF,
			pos:      6,
			expected: []string{"AND", "OR", "')'"},
		},
		{
			name:     "unclosed function",
			input:    "f(a",
			kind:     UnexpectedEOF,
			pos:      3,
			expected: []string{"comparison operator", "AND", "OR", "','", "')'"},
		},
		{
			name:     "trailing comma",
			input:    "f(a,)",
			kind:     UnexpectedToken,
			pos:      4,
			expected: operandExpected,
		},
		{
			name:     "trailing tokens",
			input:    "a = 1 b",
			kind:     UnexpectedToken,
			pos:      6,
			expected: []string{"AND", "OR", "end of input"},
		},
		{
			name:     "two operands",
			input:    "a b",
			kind:     UnexpectedToken,
			pos:      2,
			expected: []string{"comparison operator", "AND", "OR", "end of input"},
		},
		{
			name:     "stray closing paren",
			input:    "a = 1)",
			kind:     UnexpectedToken,
			pos:      5,
			expected: []string{"AND", "OR", "end of input"},
		},
		{
			name:     "operator without left operand",
			input:    "= 1",
			kind:     UnexpectedToken,
			pos:      0,
			expected: operandExpected,
		},
		{
			name:     "dangling AND",
			input:    "a = 1 AND",
			kind:     UnexpectedEOF,
			pos:      9,
			expected: operandExpected,
		},
		{
			name:     "empty NOT IN list",
			input:    "a NOT IN ( )",
			kind:     InvalidOperand,
			pos:      11,
			expected: literalExpected,
		},
		{
			name:     "IN without list",
			input:    "a IN 1",
			kind:     UnexpectedToken,
			pos:      5,
			expected: []string{"'('"},
		},
		{
			name:     "empty IN list",
			input:    "a IN ()",
			kind:     InvalidOperand,
			pos:      6,
			expected: literalExpected,
		},
		{
			name:     "field in IN list",
			input:    "a IN (1, b)",
			kind:     UnexpectedToken,
			pos:      9,
			expected: literalExpected,
		},
		{
			name:     "unclosed IN list",
			input:    "a IN (1 2)",
			kind:     UnexpectedToken,
			pos:      8,
			expected: []string{"','", "')'"},
		},
		{
			name:     "IS with a field",
			input:    "a IS b",
			kind:     InvalidOperand,
			pos:      5,
			expected: stateExpected,
		},
		{
			name:     "IS NOT at end",
			input:    "a IS NOT",
			kind:     UnexpectedEOF,
			pos:      8,
			expected: stateExpected,
		},
		{
			name:     "NOT as right operand",
			input:    "a = NOT b",
			kind:     UnexpectedToken,
			pos:      4,
			expected: operandExpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := parseError(t, tt.input, ParserOptions{})
			if perr.Kind != tt.kind {
				t.Errorf("kind = %v, want %v (%v)", perr.Kind, tt.kind, perr)
			}
			if perr.Pos != tt.pos {
				t.Errorf("pos = %d, want %d (%v)", perr.Pos, tt.pos, perr)
			}
			if strings.Join(perr.Expected, "|") != strings.Join(tt.expected, "|") {
				t.Errorf("expected = %v, want %v", perr.Expected, tt.expected)
			}
		})
	}
}

func TestASTParser_ErrorMessages(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"age >", "unexpected end of input at position 5, expected identifier, string, number, TRUE, FALSE, NULL or '('"},
		{"a < b < c", "chained comparison operator < at position 6: combine comparisons with AND"},
		{"a = 1 b", `unexpected identifier "b" at position 6, expected AND, OR or end of input`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseExpression(tt.input, ParserOptions{})
			if err == nil || err.Error() != tt.want {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestASTParser_LexErrorsPassThrough(t *testing.T) {
	_, err := ParseExpression(`name = "abc`, ParserOptions{})
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *LexError, got %T", err)
	}
	if lexErr.Pos != 7 {
		t.Errorf("pos = %d, want 7", lexErr.Pos)
	}
}

func TestASTParser_MaxDepth(t *testing.T) {
	nested := strings.Repeat("(", 5) + "a = 1" + strings.Repeat(")", 5)

	if _, err := ParseExpression(nested, ParserOptions{MaxDepth: 5}); err != nil {
		t.Fatalf("depth 5 should parse at limit 5: %v", err)
	}

	perr := parseError(t, nested, ParserOptions{MaxDepth: 4})
	if perr.Kind != MaxDepthExceeded {
		t.Errorf("kind = %v, want %v", perr.Kind, MaxDepthExceeded)
	}
	if !errors.Is(perr, ErrMaxDepthExceeded) {
		t.Error("expected ErrMaxDepthExceeded")
	}

	nots := strings.Repeat("NOT ", 10) + "a"
	if perr := parseError(t, nots, ParserOptions{MaxDepth: 9}); perr.Kind != MaxDepthExceeded {
		t.Errorf("NOT chain: kind = %v, want %v", perr.Kind, MaxDepthExceeded)
	}

	calls := "f(f(f(a)))"
	if perr := parseError(t, calls, ParserOptions{MaxDepth: 2}); perr.Kind != MaxDepthExceeded {
		t.Errorf("calls: kind = %v, want %v", perr.Kind, MaxDepthExceeded)
	}

	deep := strings.Repeat("(", DefaultMaxDepth+1) + "a" + strings.Repeat(")", DefaultMaxDepth+1)
	if perr := parseError(t, deep, ParserOptions{}); perr.Kind != MaxDepthExceeded {
		t.Errorf("default limit: kind = %v, want %v", perr.Kind, MaxDepthExceeded)
	}
}

func TestASTParser_StrictFunctions(t *testing.T) {
	strict := ParserOptions{StrictFunctions: true}

	if _, err := ParseExpression("sum(price) > 10 AND lower(name) = 'x'", strict); err != nil {
		t.Fatalf("known functions should parse: %v", err)
	}
	if _, err := ParseExpression("concat(a, b, c) = 'abc'", strict); err != nil {
		t.Fatalf("variadic function should parse: %v", err)
	}

	perr := parseError(t, "a = 1 AND bogus(a)", strict)
	if perr.Kind != UnknownFunction || perr.Pos != 10 || perr.Found != "bogus" {
		t.Errorf("got %v", perr)
	}

	perr = parseError(t, "SUM(a, b)", strict)
	if perr.Kind != FunctionArity || perr.Pos != 0 {
		t.Errorf("got %v", perr)
	}
	if want := "function SUM at position 0: expects exactly 1 argument, got 2"; perr.Error() != want {
		t.Errorf("message = %q, want %q", perr.Error(), want)
	}

	if _, err := ParseExpression("bogus(a)", ParserOptions{}); err != nil {
		t.Errorf("lenient mode should accept unknown functions: %v", err)
	}

	custom, err := DefaultFunctions().Extend(FunctionSpec{Name: "distance", MinArgs: 2, MaxArgs: 2})
	if err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
	if _, err := ParseExpression("DISTANCE(a, b) < 5", ParserOptions{StrictFunctions: true, Functions: custom}); err != nil {
		t.Errorf("custom catalog: %v", err)
	}
}

func TestASTParser_FoldIdentifiers(t *testing.T) {
	expr, err := ParseExpression("User.Age > 1 AND LOWER(Name) = 'x'", ParserOptions{FoldIdentifiers: true})
	if err != nil {
		t.Fatalf("ParseExpression() error = %v", err)
	}
	md := Extract(expr)
	if got := strings.Join(md.Fields(), ","); got != "name,user.age" {
		t.Errorf("fields = %s", got)
	}
	if !md.HasFunction("LOWER") {
		t.Error("function names are not folded")
	}
}

func TestParseTokens(t *testing.T) {
	tokens, err := Tokenize("a = 1 OR b")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	expr, err := ParseTokens(tokens, ParserOptions{})
	if err != nil {
		t.Fatalf("ParseTokens() error = %v", err)
	}
	if Render(expr) != "a = 1 OR b" {
		t.Errorf("got %s", Render(expr))
	}

	// A stream without the end marker behaves as if it were present.
	expr, err = ParseTokens(tokens[:len(tokens)-1], ParserOptions{})
	if err != nil || Render(expr) != "a = 1 OR b" {
		t.Errorf("got %v, %v", expr, err)
	}

	_, err = ParseTokens(tokens[:2], ParserOptions{})
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Kind != UnexpectedEOF || perr.Pos != 3 {
		t.Errorf("got %v", err)
	}
}

func TestParseWithStats(t *testing.T) {
	_, stats, err := ParseWithStats("NOT (a = 1 AND f(b))", ParserOptions{})
	if err != nil {
		t.Fatalf("ParseWithStats() error = %v", err)
	}
	if stats.Tokens != 11 {
		t.Errorf("tokens = %d, want 11", stats.Tokens)
	}
	if stats.Depth != 3 {
		t.Errorf("depth = %d, want 3", stats.Depth)
	}
}
