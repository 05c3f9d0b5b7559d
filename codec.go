package filterql

import (
	"github.com/nlstn/go-filterql/internal/codec"
)

// Node is the JSON and MessagePack form of an expression:
//
//	{"type":"comparison","op":">","left":{"type":"field","name":"age"},
//	 "right":{"type":"literal","value":{"kind":"number","number":"18"}}}
type Node = codec.Node

// ToNode converts a valid expression to its wire form.
func ToNode(expr Expression) (*Node, error) {
	return codec.FromExpression(expr)
}

// EncodeJSON serializes expr as JSON.
func EncodeJSON(expr Expression) ([]byte, error) {
	return codec.EncodeJSON(expr)
}

// DecodeJSON deserializes and validates a JSON tree.
func DecodeJSON(data []byte) (Expression, error) {
	return codec.DecodeJSON(data)
}

// EncodeMsgpack serializes expr as MessagePack.
func EncodeMsgpack(expr Expression) ([]byte, error) {
	return codec.EncodeMsgpack(expr)
}

// DecodeMsgpack deserializes and validates a MessagePack tree.
func DecodeMsgpack(data []byte) (Expression, error) {
	return codec.DecodeMsgpack(data)
}
