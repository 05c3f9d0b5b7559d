// Package filterql parses filter expressions such as
//
//	age > 18 AND (status IN ("active", "trial") OR NOT banned)
//
// into a typed syntax tree, extracts the fields, operators and functions a
// filter uses, and renders trees back to canonical text.
//
// The package-level functions use default options. Create a Parser with New
// to configure limits, a function catalog, a result cache, logging and
// OpenTelemetry instrumentation.
package filterql

import (
	"io"

	"github.com/nlstn/go-filterql/internal/query"
)

// Syntax tree.
type (
	// Expression is a node of a parsed filter.
	Expression = query.Expression
	// FieldRef names a record field, e.g. "user.age".
	FieldRef = query.FieldRef
	// Literal holds a constant value.
	Literal = query.Literal
	// Comparison applies a comparison operator to two operands.
	Comparison = query.Comparison
	// Logical combines expressions with AND or OR, or negates one with NOT
	// (Right is nil for NOT).
	Logical = query.Logical
	// FunctionCall applies a named function to arguments.
	FunctionCall = query.FunctionCall

	Value     = query.Value
	ValueKind = query.ValueKind
	Number    = query.Number

	CompareOp = query.CompareOp
	LogicalOp = query.LogicalOp

	Token     = query.Token
	TokenType = query.TokenType

	// QueryMetadata summarizes the fields, operators and functions of a filter.
	QueryMetadata = query.QueryMetadata
	FunctionRef   = query.FunctionRef
	ParseStats    = query.ParseStats

	FunctionSpec    = query.FunctionSpec
	FunctionCatalog = query.FunctionCatalog

	LexError        = query.LexError
	LexErrorKind    = query.LexErrorKind
	ParseError      = query.ParseError
	ParseErrorKind  = query.ParseErrorKind
	ValidationError = query.ValidationError
)

// Comparison operators.
const (
	OpEqual          = query.Equal
	OpNotEqual       = query.NotEqual
	OpLessThan       = query.LessThan
	OpLessOrEqual    = query.LessOrEqual
	OpGreaterThan    = query.GreaterThan
	OpGreaterOrEqual = query.GreaterOrEqual
	OpContains       = query.Contains
	OpStartsWith     = query.StartsWith
	OpEndsWith       = query.EndsWith
	OpIn             = query.In
	OpNotIn          = query.NotIn
	OpIs             = query.Is
	OpIsNot          = query.IsNot
)

// Logical operators.
const (
	OpAnd = query.And
	OpOr  = query.Or
	OpNot = query.Not
)

// Value kinds.
const (
	KindNull   = query.KindNull
	KindString = query.KindString
	KindNumber = query.KindNumber
	KindBool   = query.KindBool
	KindList   = query.KindList
)

// Token types.
const (
	TokenEOF        = query.TokenEOF
	TokenIdentifier = query.TokenIdentifier
	TokenString     = query.TokenString
	TokenNumber     = query.TokenNumber
	TokenBoolean    = query.TokenBoolean
	TokenNull       = query.TokenNull
	TokenOperator   = query.TokenOperator
	TokenLogical    = query.TokenLogical
	TokenNot        = query.TokenNot
	TokenLParen     = query.TokenLParen
	TokenRParen     = query.TokenRParen
	TokenComma      = query.TokenComma
)

// Error kinds.
const (
	UnterminatedString  = query.UnterminatedString
	MalformedNumber     = query.MalformedNumber
	UnexpectedCharacter = query.UnexpectedCharacter

	UnexpectedToken   = query.UnexpectedToken
	UnexpectedEOF     = query.UnexpectedEOF
	ChainedComparison = query.ChainedComparison
	MaxDepthExceeded  = query.MaxDepthExceeded
	UnknownFunction   = query.UnknownFunction
	FunctionArity     = query.FunctionArity
	InvalidOperand    = query.InvalidOperand
)

// DefaultMaxDepth is the nesting limit used when none is configured.
const DefaultMaxDepth = query.DefaultMaxDepth

// Unbounded marks a variadic FunctionSpec.MaxArgs.
const Unbounded = query.Unbounded

// Result is a parsed filter with its metadata.
type Result struct {
	Expr     Expression
	Metadata QueryMetadata
	Stats    ParseStats
	// Cached is set when the result came from the Parser's cache.
	Cached bool
}

// Canonical returns the canonical rendering of the filter.
func (r *Result) Canonical() string {
	return Render(r.Expr)
}

// Tokenize splits input into tokens. The last token is always TokenEOF.
func Tokenize(input string) ([]Token, error) {
	return query.Tokenize(input)
}

// Parse parses input with default options.
func Parse(input string) (Expression, error) {
	return query.ParseExpression(input, query.ParserOptions{})
}

// ParseWithMetadata parses input with default options and extracts its metadata.
func ParseWithMetadata(input string) (*Result, error) {
	expr, stats, err := query.ParseWithStats(input, query.ParserOptions{})
	if err != nil {
		return nil, err
	}
	return &Result{Expr: expr, Metadata: query.Extract(expr), Stats: stats}, nil
}

// Extract collects the fields, operators and functions used by expr.
func Extract(expr Expression) QueryMetadata {
	return query.Extract(expr)
}

// Render returns the canonical text of expr. For any parsed expression,
// parsing the rendering yields an equal tree.
func Render(expr Expression) string {
	return query.Render(expr)
}

// Equal reports whether two trees are structurally equal.
func Equal(a, b Expression) bool {
	return query.ExprEqual(a, b)
}

// Validate checks that a hand-built tree renders to parseable text.
func Validate(expr Expression) error {
	return query.Validate(expr)
}

// IsIdentifier reports whether name can be used as a field or function name.
func IsIdentifier(name string) bool {
	return query.IsIdentifier(name)
}

// DefaultFunctions returns the built-in function catalog.
func DefaultFunctions() *FunctionCatalog {
	return query.DefaultFunctions()
}

// NewFunctionCatalog builds a catalog from specs.
func NewFunctionCatalog(specs ...FunctionSpec) (*FunctionCatalog, error) {
	return query.NewFunctionCatalog(specs...)
}

// LoadFunctionCatalog reads a YAML function catalog and returns the
// built-in functions extended with it. See FunctionSpec for the fields.
func LoadFunctionCatalog(r io.Reader) (*FunctionCatalog, error) {
	return query.LoadFunctionCatalog(r, query.DefaultFunctions())
}
