package sqlfilter

import (
	"fmt"
	"strings"

	"github.com/nlstn/go-filterql/internal/query"
)

// sqlFunction renders a scalar function from its translated arguments.
type sqlFunction func(args []string) string

func callFunction(name string) sqlFunction {
	return func(args []string) string {
		return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
	}
}

// sqlFunctions are the scalar functions with a portable SQL form, keyed by
// lower-case name. Arity is checked against the built-in catalog.
var sqlFunctions = map[string]sqlFunction{
	"lower":    callFunction("LOWER"),
	"upper":    callFunction("UPPER"),
	"length":   callFunction("LENGTH"),
	"trim":     callFunction("TRIM"),
	"abs":      callFunction("ABS"),
	"round":    callFunction("ROUND"),
	"coalesce": callFunction("COALESCE"),
	"concat": func(args []string) string {
		return "(" + strings.Join(args, " || ") + ")"
	},
	"now": func([]string) string {
		return "CURRENT_TIMESTAMP"
	},
}

type translator struct {
	opts    Options
	allowed map[string]bool
	args    []any
}

func newTranslator(opts Options) *translator {
	t := &translator{opts: opts}
	if len(opts.AllowedFields) > 0 {
		t.allowed = make(map[string]bool, len(opts.AllowedFields))
		for _, f := range opts.AllowedFields {
			t.allowed[f] = true
		}
	}
	if t.opts.Functions == nil {
		t.opts.Functions = query.DefaultFunctions()
	}
	return t
}

func (t *translator) bind(v any) string {
	t.args = append(t.args, v)
	return "?"
}

// condition translates a boolean expression.
func (t *translator) condition(expr query.Expression) (string, error) {
	switch e := expr.(type) {
	case *query.Logical:
		return t.logical(e)
	case *query.Comparison:
		return t.comparison(e)
	}
	return t.operand(expr)
}

func (t *translator) logical(e *query.Logical) (string, error) {
	left, err := t.condition(e.Left)
	if err != nil {
		return "", err
	}
	if e.Op == query.Not {
		return fmt.Sprintf("NOT (%s)", left), nil
	}
	right, err := t.condition(e.Right)
	if err != nil {
		return "", err
	}
	switch e.Op {
	case query.And:
		return fmt.Sprintf("(%s) AND (%s)", left, right), nil
	case query.Or:
		return fmt.Sprintf("(%s) OR (%s)", left, right), nil
	}
	return "", unsupported("logical operator %s", e.Op)
}

func isNull(expr query.Expression) bool {
	lit, ok := expr.(*query.Literal)
	return ok && lit.Value.IsNull()
}

func (t *translator) comparison(e *query.Comparison) (string, error) {
	switch e.Op {
	case query.Equal, query.NotEqual:
		// Comparing with NULL in SQL is never true; use IS [NOT] NULL.
		suffix := "IS NULL"
		if e.Op == query.NotEqual {
			suffix = "IS NOT NULL"
		}
		if isNull(e.Right) {
			return t.suffixed(e.Left, suffix)
		}
		if isNull(e.Left) {
			return t.suffixed(e.Right, suffix)
		}
	case query.Is, query.IsNot:
		return t.isComparison(e)
	case query.Contains:
		return t.like(e, true, true)
	case query.StartsWith:
		return t.like(e, false, true)
	case query.EndsWith:
		return t.like(e, true, false)
	case query.In, query.NotIn:
		return t.in(e)
	}

	left, err := t.operand(e.Left)
	if err != nil {
		return "", err
	}
	right, err := t.operand(e.Right)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", left, e.Op, right), nil
}

func (t *translator) suffixed(expr query.Expression, suffix string) (string, error) {
	sql, err := t.operand(expr)
	if err != nil {
		return "", err
	}
	return sql + " " + suffix, nil
}

func (t *translator) isComparison(e *query.Comparison) (string, error) {
	lit := e.Right.(*query.Literal)
	keyword := "IS"
	if e.Op == query.IsNot {
		keyword = "IS NOT"
	}
	state := "NULL"
	if b, ok := lit.Value.Bool(); ok {
		state = "FALSE"
		if b {
			state = "TRUE"
		}
	}
	return t.suffixed(e.Left, keyword+" "+state)
}

func (t *translator) like(e *query.Comparison, prefix, suffix bool) (string, error) {
	lit, ok := e.Right.(*query.Literal)
	if !ok {
		return "", unsupported("%s needs a literal pattern", e.Op)
	}
	var text string
	switch lit.Value.Kind() {
	case query.KindString:
		text, _ = lit.Value.Str()
	case query.KindNumber:
		n, _ := lit.Value.Num()
		text = n.String()
	default:
		return "", unsupported("%s needs a string pattern, got %s", e.Op, lit.Value.Kind())
	}

	left, err := t.operand(e.Left)
	if err != nil {
		return "", err
	}
	placeholder := t.bind(likePattern(text, prefix, suffix))
	return fmt.Sprintf("%s LIKE %s %s", left, placeholder, likeEscapeClause), nil
}

func (t *translator) in(e *query.Comparison) (string, error) {
	left, err := t.operand(e.Left)
	if err != nil {
		return "", err
	}
	items, _ := e.Right.(*query.Literal).Value.List()
	placeholders := make([]string, len(items))
	for i, item := range items {
		placeholders[i] = t.bind(item.Interface())
	}
	keyword := "IN"
	if e.Op == query.NotIn {
		keyword = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", left, keyword, strings.Join(placeholders, ", ")), nil
}

// operand translates a value-producing expression.
func (t *translator) operand(expr query.Expression) (string, error) {
	switch e := expr.(type) {
	case *query.FieldRef:
		return t.column(e.Name)
	case *query.Literal:
		if e.Value.IsNull() {
			return "NULL", nil
		}
		if e.Value.Kind() == query.KindList {
			return "", unsupported("list literal outside IN")
		}
		return t.bind(e.Value.Interface()), nil
	case *query.FunctionCall:
		return t.function(e)
	case *query.Comparison, *query.Logical:
		sql, err := t.condition(expr)
		if err != nil {
			return "", err
		}
		return "(" + sql + ")", nil
	}
	return "", unsupported("node %T", expr)
}

func (t *translator) column(field string) (string, error) {
	if t.allowed != nil && !t.allowed[field] {
		return "", fmt.Errorf("%w: %s", ErrFieldNotAllowed, field)
	}
	if col, ok := t.opts.Columns[field]; ok {
		return quoteColumn(col), nil
	}
	return quoteColumn(defaultColumn(field)), nil
}

func (t *translator) function(e *query.FunctionCall) (string, error) {
	name := strings.ToLower(e.Name)
	spec, ok := t.opts.Functions.Lookup(name)
	if !ok {
		spec, ok = query.DefaultFunctions().Lookup(name)
	}
	if ok && spec.Aggregate {
		return "", fmt.Errorf("%w: %s", ErrAggregateFunction, e.Name)
	}
	render, ok := sqlFunctions[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFunction, e.Name)
	}
	if spec, ok := query.DefaultFunctions().Lookup(name); ok && !spec.AcceptsArgs(len(e.Args)) {
		return "", fmt.Errorf("%w: %s expects %s, got %d", ErrUnsupportedFunction, e.Name, spec.ArityText(), len(e.Args))
	}

	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		sql, err := t.operand(arg)
		if err != nil {
			return "", err
		}
		args[i] = sql
	}
	return render(args), nil
}
