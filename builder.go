package filterql

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/nlstn/go-filterql/internal/query"
)

// Field returns a field reference.
func Field(name string) *FieldRef {
	return query.NewField(name)
}

// Lit returns a literal holding v. It accepts nil, strings, booleans, Go
// integer and float types, decimal.Decimal, Value and slices of those (for
// IN lists). Lit panics on any other type; use ValueOf to get an error.
func Lit(v any) *Literal {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return query.NewLiteral(val)
}

// ValueOf converts a Go value to a Value. See Lit for the accepted types.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return query.NullValue(), nil
	case Value:
		return x, nil
	case string:
		return query.StringValue(x), nil
	case bool:
		return query.BoolValue(x), nil
	case int:
		return query.IntValue(int64(x)), nil
	case int8:
		return query.IntValue(int64(x)), nil
	case int16:
		return query.IntValue(int64(x)), nil
	case int32:
		return query.IntValue(int64(x)), nil
	case int64:
		return query.IntValue(x), nil
	case uint8:
		return query.IntValue(int64(x)), nil
	case uint16:
		return query.IntValue(int64(x)), nil
	case uint32:
		return query.IntValue(int64(x)), nil
	case uint:
		return uintValue(uint64(x)), nil
	case uint64:
		return uintValue(x), nil
	case float32:
		return floatValue(float64(x))
	case float64:
		return floatValue(x)
	case decimal.Decimal:
		return query.DecimalValue(x), nil
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			iv, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = iv
		}
		return query.ListValue(items...), nil
	case []string:
		items := make([]Value, len(x))
		for i, s := range x {
			items[i] = query.StringValue(s)
		}
		return query.ListValue(items...), nil
	case []int:
		items := make([]Value, len(x))
		for i, n := range x {
			items[i] = query.IntValue(int64(n))
		}
		return query.ListValue(items...), nil
	}
	return Value{}, fmt.Errorf("filterql: unsupported literal type %T", v)
}

func uintValue(u uint64) Value {
	if u > math.MaxInt64 {
		return query.DecimalValue(decimal.NewFromUint64(u))
	}
	return query.IntValue(int64(u))
}

func floatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("filterql: %v has no literal form", f)
	}
	return query.DecimalValue(decimal.NewFromFloat(f)), nil
}

// Compare returns a comparison node.
func Compare(left Expression, op CompareOp, right Expression) *Comparison {
	return query.NewComparison(left, op, right)
}

// And joins expressions with AND, left-associatively.
func And(first Expression, rest ...Expression) Expression {
	return query.NewAnd(first, rest...)
}

// Or joins expressions with OR, left-associatively.
func Or(first Expression, rest ...Expression) Expression {
	return query.NewOr(first, rest...)
}

// Not negates an expression.
func Not(operand Expression) *Logical {
	return query.NewNot(operand)
}

// Call returns a function call node.
func Call(name string, args ...Expression) *FunctionCall {
	return query.NewFunctionCall(name, args...)
}
