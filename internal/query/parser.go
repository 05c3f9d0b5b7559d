package query

// DefaultMaxDepth bounds the nesting of groups, NOT operators and function
// arguments when ParserOptions.MaxDepth is not set.
const DefaultMaxDepth = 256

// ParserOptions configures a parse.
type ParserOptions struct {
	// MaxDepth is the nesting limit. Zero or less selects DefaultMaxDepth.
	MaxDepth int
	// Functions is consulted when StrictFunctions is set. Nil selects the
	// default catalog.
	Functions *FunctionCatalog
	// StrictFunctions rejects unknown function names and wrong argument
	// counts.
	StrictFunctions bool
	// FoldIdentifiers lower-cases field names.
	FoldIdentifiers bool
}

func (o ParserOptions) withDefaults() ParserOptions {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Functions == nil {
		o.Functions = DefaultFunctions()
	}
	return o
}

// ParseTokens parses a token sequence produced by Tokenize.
func ParseTokens(tokens []Token, opts ParserOptions) (Expression, error) {
	ptrs := make([]*Token, len(tokens))
	for i := range tokens {
		ptrs[i] = &tokens[i]
	}
	return NewASTParser(ptrs, opts).Parse()
}

// ParseStats describes the work done by a parse.
type ParseStats struct {
	// Tokens is the number of tokens, excluding the end of input marker.
	Tokens int
	// Depth is the deepest nesting reached.
	Depth int
}

// ParseExpression tokenizes and parses input. On failure the error is a
// *LexError or *ParseError and no expression is returned.
func ParseExpression(input string, opts ParserOptions) (Expression, error) {
	expr, _, err := ParseWithStats(input, opts)
	return expr, err
}

// ParseWithStats is ParseExpression that also reports ParseStats, which
// are filled in as far as the parse got when it fails.
func ParseWithStats(input string, opts ParserOptions) (Expression, ParseStats, error) {
	tokens, err := NewTokenizer(input).TokenizeAll()
	if err != nil {
		return nil, ParseStats{}, err
	}
	p := NewASTParser(tokens, opts)
	expr, err := p.Parse()
	stats := ParseStats{Tokens: len(tokens) - 1, Depth: p.maxDepth}
	if err != nil {
		return nil, stats, err
	}
	return expr, stats, nil
}
