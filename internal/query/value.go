package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

var valueKindNames = [...]string{
	KindNull:   "null",
	KindString: "string",
	KindNumber: "number",
	KindBool:   "boolean",
	KindList:   "list",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "unknown"
}

// ParseValueKind resolves the names returned by ValueKind.String.
func ParseValueKind(name string) (ValueKind, bool) {
	for k, n := range valueKindNames {
		if n == name {
			return ValueKind(k), true
		}
	}
	return 0, false
}

// Number is a signed 64-bit integer or an arbitrary precision decimal.
type Number struct {
	isInt bool
	i     int64
	dec   decimal.Decimal
}

// IntNumber returns an integer Number.
func IntNumber(i int64) Number {
	return Number{isInt: true, i: i}
}

// DecimalNumber returns a decimal Number.
func DecimalNumber(d decimal.Decimal) Number {
	return Number{dec: d}
}

// ParseNumber converts number literal text. Integers that overflow int64
// are kept as decimals.
func ParseNumber(text string) (Number, error) {
	text = strings.TrimPrefix(text, "+")
	if !strings.Contains(text, ".") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return IntNumber(i), nil
		}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return Number{}, fmt.Errorf("cannot parse %q as number: %w", text, err)
	}
	return DecimalNumber(d), nil
}

// IsInt reports whether n holds an integer.
func (n Number) IsInt() bool { return n.isInt }

// Int returns the integer value; ok is false for decimals.
func (n Number) Int() (int64, bool) { return n.i, n.isInt }

// Decimal returns n as a decimal regardless of its representation.
func (n Number) Decimal() decimal.Decimal {
	if n.isInt {
		return decimal.NewFromInt(n.i)
	}
	return n.dec
}

// Interface returns int64 for integers and decimal.Decimal otherwise.
func (n Number) Interface() any {
	if n.isInt {
		return n.i
	}
	return n.dec
}

// Equal compares representation and value.
func (n Number) Equal(o Number) bool {
	if n.isInt != o.isInt {
		return false
	}
	if n.isInt {
		return n.i == o.i
	}
	return n.dec.Equal(o.dec)
}

// String renders the number so that it lexes back to the same
// representation: decimals always carry a decimal point.
func (n Number) String() string {
	if n.isInt {
		return strconv.FormatInt(n.i, 10)
	}
	s := n.dec.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Value is a literal: string, number, boolean, null or a list of literals.
// The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	num  Number
	b    bool
	list []Value
}

// StringValue returns a string literal.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// IntValue returns an integer literal.
func IntValue(i int64) Value { return Value{kind: KindNumber, num: IntNumber(i)} }

// DecimalValue returns a decimal literal.
func DecimalValue(d decimal.Decimal) Value { return Value{kind: KindNumber, num: DecimalNumber(d)} }

// NumberValue wraps a Number.
func NumberValue(n Number) Value { return Value{kind: KindNumber, num: n} }

// BoolValue returns a boolean literal.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// NullValue returns the null literal.
func NullValue() Value { return Value{} }

// ListValue returns a list literal. The elements are copied.
func ListValue(items ...Value) Value {
	list := make([]Value, len(items))
	copy(list, items)
	return Value{kind: KindList, list: list}
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is the null literal.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string content; ok is false for other kinds.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the number; ok is false for other kinds.
func (v Value) Num() (Number, bool) { return v.num, v.kind == KindNumber }

// Bool returns the boolean; ok is false for other kinds.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// List returns a copy of the list elements; ok is false for other kinds.
func (v Value) List() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	out := make([]Value, len(v.list))
	copy(out, v.list)
	return out, true
}

// Len returns the number of list elements, or 0 for scalars.
func (v Value) Len() int { return len(v.list) }

// Interface converts v to plain Go values: string, int64,
// decimal.Decimal, bool, nil or []any.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.Interface()
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	}
	return nil
}

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num.Equal(o.num)
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
	}
	return true
}

// String renders v in canonical filter syntax.
func (v Value) String() string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func writeValue(b *strings.Builder, v Value) {
	switch v.kind {
	case KindString:
		writeQuoted(b, v.str)
	case KindNumber:
		b.WriteString(v.num.String())
	case KindBool:
		if v.b {
			b.WriteString("TRUE")
		} else {
			b.WriteString("FALSE")
		}
	case KindList:
		b.WriteByte('(')
		for i, item := range v.list {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, item)
		}
		b.WriteByte(')')
	default:
		b.WriteString("NULL")
	}
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
}

// valueFromToken converts a literal token.
func valueFromToken(tok *Token) (Value, error) {
	switch tok.Type {
	case TokenString:
		return StringValue(tok.Value), nil
	case TokenNumber:
		n, err := ParseNumber(tok.Value)
		if err != nil {
			return Value{}, err
		}
		return NumberValue(n), nil
	case TokenBoolean:
		return BoolValue(tok.Value == "true"), nil
	case TokenNull:
		return NullValue(), nil
	}
	return Value{}, fmt.Errorf("token %s is not a literal", tok.Type)
}
