package codec

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/nlstn/go-filterql/internal/query"
)

// EncodeJSON serializes an expression as a JSON wire node.
func EncodeJSON(expr query.Expression) ([]byte, error) {
	node, err := FromExpression(expr)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return data, nil
}

// DecodeJSON deserializes a JSON wire node.
func DecodeJSON(data []byte) (query.Expression, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON data")
	}
	var node Node
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return node.Expression()
}

// EncodeMsgpack serializes an expression as a MessagePack wire node.
func EncodeMsgpack(expr query.Expression) ([]byte, error) {
	node, err := FromExpression(expr)
	if err != nil {
		return nil, err
	}
	data, err := msgpack.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	return data, nil
}

// DecodeMsgpack deserializes a MessagePack wire node.
func DecodeMsgpack(data []byte) (query.Expression, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty MessagePack data")
	}
	var node Node
	if err := msgpack.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	return node.Expression()
}
