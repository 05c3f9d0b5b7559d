package filterql

import (
	"errors"
	"net/http"

	"github.com/nlstn/go-filterql/internal/codec"
	"github.com/nlstn/go-filterql/internal/query"
)

// Sentinel errors for use with errors.Is. Every *LexError matches ErrLex
// and exactly one lexical kind sentinel; every *ParseError matches ErrParse
// and exactly one grammar kind sentinel.
var (
	ErrLex   = query.ErrLex
	ErrParse = query.ErrParse

	ErrUnterminatedString  = query.ErrUnterminatedString
	ErrMalformedNumber     = query.ErrMalformedNumber
	ErrUnexpectedCharacter = query.ErrUnexpectedCharacter

	ErrUnexpectedToken   = query.ErrUnexpectedToken
	ErrUnexpectedEOF     = query.ErrUnexpectedEOF
	ErrChainedComparison = query.ErrChainedComparison
	ErrMaxDepthExceeded  = query.ErrMaxDepthExceeded
	ErrUnknownFunction   = query.ErrUnknownFunction
	ErrFunctionArity     = query.ErrFunctionArity
	ErrInvalidOperand    = query.ErrInvalidOperand

	// ErrInvalidExpression matches errors reported by Validate.
	ErrInvalidExpression = query.ErrInvalidExpression

	// ErrInvalidNode indicates a malformed JSON or MessagePack tree.
	ErrInvalidNode = codec.ErrInvalidNode

	// ErrInputTooLong indicates the input exceeds the Parser's length limit.
	// Maps to HTTP 413 Request Entity Too Large.
	ErrInputTooLong = errors.New("filterql: input exceeds maximum length")
)

// ErrorCode is a stable machine-readable error classification.
type ErrorCode string

const (
	ErrorCodeUnterminatedString  ErrorCode = "UNTERMINATED_STRING"
	ErrorCodeMalformedNumber     ErrorCode = "MALFORMED_NUMBER"
	ErrorCodeUnexpectedCharacter ErrorCode = "UNEXPECTED_CHARACTER"

	ErrorCodeUnexpectedToken   ErrorCode = "UNEXPECTED_TOKEN"
	ErrorCodeUnexpectedEnd     ErrorCode = "UNEXPECTED_END"
	ErrorCodeChainedComparison ErrorCode = "CHAINED_COMPARISON"
	ErrorCodeMaxDepthExceeded  ErrorCode = "MAX_DEPTH_EXCEEDED"
	ErrorCodeUnknownFunction   ErrorCode = "UNKNOWN_FUNCTION"
	ErrorCodeFunctionArity     ErrorCode = "FUNCTION_ARITY"
	ErrorCodeInvalidOperand    ErrorCode = "INVALID_OPERAND"

	ErrorCodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"
	ErrorCodeInvalidNode       ErrorCode = "INVALID_NODE"
	ErrorCodeInputTooLong      ErrorCode = "INPUT_TOO_LONG"

	// ErrorCodeInternal covers anything else.
	ErrorCodeInternal ErrorCode = "INTERNAL"
)

// Code classifies err. Lexical and grammar errors use their kind's code.
func Code(err error) ErrorCode {
	var lexErr *LexError
	if errors.As(err, &lexErr) {
		return ErrorCode(lexErr.Kind.String())
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ErrorCode(parseErr.Kind.String())
	}
	switch {
	case errors.Is(err, ErrInvalidNode):
		return ErrorCodeInvalidNode
	case errors.Is(err, ErrInvalidExpression):
		return ErrorCodeInvalidExpression
	case errors.Is(err, ErrInputTooLong):
		return ErrorCodeInputTooLong
	}
	return ErrorCodeInternal
}

// MapErrorToHTTPStatus returns the HTTP status code for an error returned
// by this package.
//
// Example usage:
//
//	status := filterql.MapErrorToHTTPStatus(err)
//	w.WriteHeader(status)
func MapErrorToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, ErrLex), errors.Is(err, ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidNode), errors.Is(err, ErrInvalidExpression):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInputTooLong):
		return http.StatusRequestEntityTooLarge
	}

	return http.StatusInternalServerError
}

// ErrorDetail is the serializable description of an error.
type ErrorDetail struct {
	Code    ErrorCode `json:"code" yaml:"code"`
	Message string    `json:"message" yaml:"message"`
	// Position is the byte offset of the error in the input, if known.
	Position *int     `json:"position,omitempty" yaml:"position,omitempty"`
	Expected []string `json:"expected,omitempty" yaml:"expected,omitempty"`
	// Path locates the offending node of a tree.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Describe converts err into an ErrorDetail.
func Describe(err error) ErrorDetail {
	detail := ErrorDetail{Code: Code(err), Message: err.Error()}
	if pos, ok := ErrorPosition(err); ok {
		detail.Position = &pos
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		detail.Expected = parseErr.Expected
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		detail.Path = validationErr.Path
	}
	var nodeErr *codec.NodeError
	if errors.As(err, &nodeErr) {
		detail.Path = nodeErr.Path
	}
	return detail
}

// ErrorPosition returns the byte offset carried by a lexical or grammar error.
func ErrorPosition(err error) (int, bool) {
	return query.ErrorPosition(err)
}

// IsSyntaxError reports whether err is a lexical or grammar error.
func IsSyntaxError(err error) bool {
	return errors.Is(err, ErrLex) || errors.Is(err, ErrParse)
}
