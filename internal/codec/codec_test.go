package codec

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/go-filterql/internal/query"
)

func mustParse(t *testing.T, input string) query.Expression {
	t.Helper()
	expr, err := query.ParseExpression(input, query.ParserOptions{})
	require.NoError(t, err)
	return expr
}

var roundTripInputs = []string{
	"age > 18",
	`name CONTAINS "it's" AND NOT deleted`,
	`status NOT IN ("a", 2, 3.50, NULL, TRUE)`,
	"x IS NOT NULL OR y IS FALSE",
	"lower(name) = 'bob' AND now() >= created",
	"big = 99999999999999999999",
	"price = 3.0",
}

func TestJSONRoundTrip(t *testing.T) {
	for _, input := range roundTripInputs {
		t.Run(input, func(t *testing.T) {
			expr := mustParse(t, input)
			data, err := EncodeJSON(expr)
			require.NoError(t, err)

			decoded, err := DecodeJSON(data)
			require.NoError(t, err)
			assert.True(t, query.ExprEqual(expr, decoded), "decoded %s", query.Render(decoded))
			assert.Equal(t, query.Render(expr), query.Render(decoded))
		})
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	for _, input := range roundTripInputs {
		t.Run(input, func(t *testing.T) {
			expr := mustParse(t, input)
			data, err := EncodeMsgpack(expr)
			require.NoError(t, err)

			decoded, err := DecodeMsgpack(data)
			require.NoError(t, err)
			assert.True(t, query.ExprEqual(expr, decoded), "decoded %s", query.Render(decoded))
		})
	}
}

func TestJSONShape(t *testing.T) {
	data, err := EncodeJSON(mustParse(t, "age > 18"))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "comparison",
		"op": ">",
		"left": {"type": "field", "name": "age"},
		"right": {"type": "literal", "value": {"kind": "number", "number": "18"}}
	}`, string(data))
}

func TestDecodeAcceptsOperatorNames(t *testing.T) {
	expr, err := DecodeJSON([]byte(`{
		"type": "logical", "op": "And",
		"left": {"type": "comparison", "op": "<>", "left": {"type": "field", "name": "a"},
			"right": {"type": "literal", "value": {"kind": "string", "string": "x"}}},
		"right": {"type": "comparison", "op": "NotIn", "left": {"type": "field", "name": "b"},
			"right": {"type": "literal", "value": {"kind": "list", "items": [{"kind": "null"}]}}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, `a != "x" AND b NOT IN (NULL)`, query.Render(expr))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		path string
	}{
		{"missing type", `{}`, ""},
		{"unknown type", `{"type":"group"}`, ""},
		{"unknown comparison op", `{"type":"comparison","op":"~","left":{"type":"field","name":"a"},"right":{"type":"field","name":"b"}}`, ""},
		{"unknown logical op", `{"type":"logical","op":"XOR","left":{"type":"field","name":"a"}}`, ""},
		{"missing right", `{"type":"comparison","op":"=","left":{"type":"field","name":"a"}}`, "right"},
		{"literal without value", `{"type":"literal"}`, ""},
		{"unknown value kind", `{"type":"literal","value":{"kind":"date"}}`, "value"},
		{"bad number", `{"type":"call","name":"f","args":[{"type":"literal","value":{"kind":"number","number":"1x"}}]}`, "args[0].value"},
		{"not with two operands", `{"type":"logical","op":"NOT","left":{"type":"field","name":"a"},"right":{"type":"field","name":"b"}}`, "right"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tt.data))
			require.Error(t, err)

			var nodeErr *NodeError
			require.True(t, errors.As(err, &nodeErr), "got %T: %v", err, err)
			assert.Equal(t, tt.path, nodeErr.Path)
			assert.ErrorIs(t, err, ErrInvalidNode)
		})
	}
}

func TestDecodeRunsValidation(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"type":"comparison","op":"IN","left":{"type":"field","name":"a"},
		"right":{"type":"literal","value":{"kind":"list"}}}`))
	assert.ErrorIs(t, err, query.ErrInvalidExpression)

	_, err = DecodeJSON([]byte(`{"type":"field","name":"and"}`))
	assert.ErrorIs(t, err, query.ErrInvalidExpression)
}

func TestDecodeRejectsDeepNesting(t *testing.T) {
	node := &Node{Type: TypeField, Name: "a"}
	for i := 0; i <= maxNodeDepth+1; i++ {
		node = &Node{Type: TypeLogical, Op: "NOT", Left: node}
	}
	data, err := json.Marshal(node)
	require.NoError(t, err)

	_, err = DecodeJSON(data)
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestDecodeEmptyInput(t *testing.T) {
	_, err := DecodeJSON(nil)
	assert.Error(t, err)
	_, err = DecodeMsgpack(nil)
	assert.Error(t, err)
	_, err = DecodeJSON([]byte("{"))
	assert.Error(t, err)
}

func TestEncodeRejectsInvalidExpression(t *testing.T) {
	_, err := EncodeJSON(query.NewComparison(query.NewField("a"), query.In, query.NewLiteral(query.IntValue(1))))
	assert.ErrorIs(t, err, query.ErrInvalidExpression)

	_, err = EncodeMsgpack(nil)
	assert.ErrorIs(t, err, query.ErrInvalidExpression)
}

func TestValueRoundTrip(t *testing.T) {
	values := []query.Value{
		query.NullValue(),
		query.StringValue(""),
		query.IntValue(-7),
		query.BoolValue(false),
		query.ListValue(query.StringValue("x"), query.IntValue(1)),
	}
	for _, v := range values {
		got, err := FromValue(v).Value()
		require.NoError(t, err)
		assert.True(t, v.Equal(got), "%s != %s", v, got)
	}
}
