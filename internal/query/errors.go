package query

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every LexError and ParseError unwraps to exactly one
// kind sentinel, and every kind sentinel matches ErrLex or ErrParse.
var (
	// ErrLex matches any lexical error.
	ErrLex = errors.New("lex error")
	// ErrParse matches any grammar error.
	ErrParse = errors.New("parse error")
	// ErrInvalidExpression matches errors reported by Validate.
	ErrInvalidExpression = errors.New("invalid expression")

	ErrUnterminatedString  = newKindError("unterminated string literal", ErrLex)
	ErrMalformedNumber     = newKindError("malformed number", ErrLex)
	ErrUnexpectedCharacter = newKindError("unrecognized character", ErrLex)

	ErrUnexpectedToken   = newKindError("unexpected token", ErrParse)
	ErrUnexpectedEOF     = newKindError("unexpected end of input", ErrParse)
	ErrChainedComparison = newKindError("chained comparison", ErrParse)
	ErrMaxDepthExceeded  = newKindError("maximum nesting depth exceeded", ErrParse)
	ErrUnknownFunction   = newKindError("unknown function", ErrParse)
	ErrFunctionArity     = newKindError("wrong number of function arguments", ErrParse)
	ErrInvalidOperand    = newKindError("invalid operand", ErrParse)
)

// kindError is a sentinel that also matches its parent family.
type kindError struct {
	msg    string
	parent error
}

func newKindError(msg string, parent error) error {
	return &kindError{msg: msg, parent: parent}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.parent }

// LexErrorKind classifies lexical failures.
type LexErrorKind int

const (
	UnterminatedString LexErrorKind = iota + 1
	MalformedNumber
	UnexpectedCharacter
)

func (k LexErrorKind) sentinel() error {
	switch k {
	case UnterminatedString:
		return ErrUnterminatedString
	case MalformedNumber:
		return ErrMalformedNumber
	default:
		return ErrUnexpectedCharacter
	}
}

// String returns a stable machine-readable code for the kind.
func (k LexErrorKind) String() string {
	switch k {
	case UnterminatedString:
		return "UNTERMINATED_STRING"
	case MalformedNumber:
		return "MALFORMED_NUMBER"
	case UnexpectedCharacter:
		return "UNEXPECTED_CHARACTER"
	}
	return "LEX_ERROR"
}

// LexError reports malformed token-level input.
type LexError struct {
	// Pos is the byte offset where the offending token starts.
	Pos  int
	Kind LexErrorKind
	// Text is the offending input fragment.
	Text string
}

func (e *LexError) Error() string {
	switch e.Kind {
	case UnexpectedCharacter:
		return fmt.Sprintf("unrecognized character %q at position %d", e.Text, e.Pos)
	case MalformedNumber:
		return fmt.Sprintf("malformed number %q at position %d", e.Text, e.Pos)
	default:
		return fmt.Sprintf("unterminated string literal starting at position %d", e.Pos)
	}
}

func (e *LexError) Unwrap() error { return e.Kind.sentinel() }

// Position returns the byte offset of the error.
func (e *LexError) Position() int { return e.Pos }

// ParseErrorKind classifies grammar failures.
type ParseErrorKind int

const (
	UnexpectedToken ParseErrorKind = iota + 1
	UnexpectedEOF
	ChainedComparison
	MaxDepthExceeded
	UnknownFunction
	FunctionArity
	InvalidOperand
)

func (k ParseErrorKind) sentinel() error {
	switch k {
	case UnexpectedEOF:
		return ErrUnexpectedEOF
	case ChainedComparison:
		return ErrChainedComparison
	case MaxDepthExceeded:
		return ErrMaxDepthExceeded
	case UnknownFunction:
		return ErrUnknownFunction
	case FunctionArity:
		return ErrFunctionArity
	case InvalidOperand:
		return ErrInvalidOperand
	default:
		return ErrUnexpectedToken
	}
}

// String returns a stable machine-readable code for the kind.
func (k ParseErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "UNEXPECTED_TOKEN"
	case UnexpectedEOF:
		return "UNEXPECTED_END"
	case ChainedComparison:
		return "CHAINED_COMPARISON"
	case MaxDepthExceeded:
		return "MAX_DEPTH_EXCEEDED"
	case UnknownFunction:
		return "UNKNOWN_FUNCTION"
	case FunctionArity:
		return "FUNCTION_ARITY"
	case InvalidOperand:
		return "INVALID_OPERAND"
	}
	return "PARSE_ERROR"
}

// ParseError reports a structural violation of the grammar.
type ParseError struct {
	Pos  int
	Kind ParseErrorKind
	// Expected lists the token descriptions acceptable at Pos, if known.
	Expected []string
	// Found describes the token actually present at Pos.
	Found string
	// Detail carries extra context, e.g. the function name for arity errors.
	Detail string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case UnexpectedEOF:
		b.WriteString("unexpected end of input")
	case ChainedComparison:
		fmt.Fprintf(&b, "chained comparison operator %s", e.Found)
	case MaxDepthExceeded:
		b.WriteString("expression nested too deeply")
	case UnknownFunction:
		fmt.Fprintf(&b, "unknown function %s", e.Found)
	case FunctionArity:
		fmt.Fprintf(&b, "function %s", e.Found)
	default:
		fmt.Fprintf(&b, "unexpected %s", e.Found)
	}
	fmt.Fprintf(&b, " at position %d", e.Pos)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Expected) > 0 {
		b.WriteString(", expected ")
		b.WriteString(joinExpected(e.Expected))
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Kind.sentinel() }

// Position returns the byte offset of the error.
func (e *ParseError) Position() int { return e.Pos }

func joinExpected(expected []string) string {
	switch len(expected) {
	case 1:
		return expected[0]
	case 2:
		return expected[0] + " or " + expected[1]
	}
	return strings.Join(expected[:len(expected)-1], ", ") + " or " + expected[len(expected)-1]
}

// ValidationError reports a directly built tree that can not be rendered
// and parsed back.
type ValidationError struct {
	// Path locates the offending node, e.g. "left.args[1]".
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "invalid expression: " + e.Reason
	}
	return fmt.Sprintf("invalid expression at %s: %s", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidExpression }

// Positioned is implemented by errors that carry a source position.
type Positioned interface {
	error
	Position() int
}

// ErrorPosition extracts the source position from err, if any.
func ErrorPosition(err error) (int, bool) {
	var p Positioned
	if errors.As(err, &p) {
		return p.Position(), true
	}
	return 0, false
}
