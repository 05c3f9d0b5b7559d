package query

import (
	"strconv"
	"strings"
)

// Token descriptions used in ParseError.Expected.
var (
	operandExpected    = []string{"identifier", "string", "number", "TRUE", "FALSE", "NULL", "'('"}
	literalExpected    = []string{"string", "number", "TRUE", "FALSE", "NULL"}
	stateExpected      = []string{"NULL", "TRUE", "FALSE"}
	afterExprExpected  = []string{"AND", "OR", "end of input"}
	afterOperandExpect = []string{"comparison operator", "AND", "OR", "end of input"}
)

// ASTParser parses a token stream into an Expression
type ASTParser struct {
	tokens  []*Token
	current int
	opts    ParserOptions
	depth   int
	// maxDepth is the deepest nesting seen so far.
	maxDepth int
	// bareOperand is set when the last comparison level produced a lone
	// operand, so a comparison operator would still have been acceptable.
	bareOperand bool
}

// NewASTParser creates a new AST parser. The token slice must end with a
// TokenEOF token; a missing one is treated as present after the last token.
func NewASTParser(tokens []*Token, opts ParserOptions) *ASTParser {
	return &ASTParser{
		tokens:  tokens,
		current: 0,
		opts:    opts.withDefaults(),
	}
}

// currentToken returns the current token
func (p *ASTParser) currentToken() *Token {
	return p.peekAt(0)
}

// peekAt returns the token n positions after the current one.
func (p *ASTParser) peekAt(n int) *Token {
	i := p.current + n
	if i < len(p.tokens) {
		return p.tokens[i]
	}
	end := 0
	if len(p.tokens) > 0 {
		last := p.tokens[len(p.tokens)-1]
		end = last.Pos + last.Len
	}
	return &Token{Type: TokenEOF, Pos: end}
}

// advance moves to the next token
func (p *ASTParser) advance() *Token {
	token := p.currentToken()
	if p.current < len(p.tokens) {
		p.current++
	}
	return token
}

// expect checks if the current token matches the expected type and advances
func (p *ASTParser) expect(tokenType TokenType, expected ...string) (*Token, error) {
	token := p.currentToken()
	if token.Type != tokenType {
		if len(expected) == 0 {
			expected = []string{tokenType.String()}
		}
		return nil, p.unexpected(expected...)
	}
	return p.advance(), nil
}

// unexpected builds a ParseError for the current token.
func (p *ASTParser) unexpected(expected ...string) *ParseError {
	token := p.currentToken()
	kind := UnexpectedToken
	if token.Type == TokenEOF {
		kind = UnexpectedEOF
	}
	return &ParseError{
		Pos:      token.Pos,
		Kind:     kind,
		Expected: append([]string(nil), expected...),
		Found:    token.describe(),
	}
}

// enter increments the nesting depth and fails once the limit is passed.
func (p *ASTParser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		p.maxDepth = p.depth
	}
	if p.depth > p.opts.MaxDepth {
		return &ParseError{
			Pos:    p.currentToken().Pos,
			Kind:   MaxDepthExceeded,
			Found:  p.currentToken().describe(),
			Detail: "limit is " + strconv.Itoa(p.opts.MaxDepth),
		}
	}
	return nil
}

func (p *ASTParser) leave() {
	p.depth--
}

// Parse parses the tokens into an AST
func (p *ASTParser) Parse() (Expression, error) {
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	// Verify all tokens were consumed (except EOF)
	if p.currentToken().Type != TokenEOF {
		return nil, p.unexpected(p.followSet()...)
	}

	return node, nil
}

// followSet lists what may follow a complete sub-expression.
func (p *ASTParser) followSet(extra ...string) []string {
	base := afterExprExpected
	if p.bareOperand {
		base = afterOperandExpect
	}
	if len(extra) == 0 {
		return base
	}
	// Inside a group the closing paren replaces end of input.
	out := make([]string, 0, len(base)+len(extra))
	for _, s := range base {
		if s != "end of input" {
			out = append(out, s)
		}
	}
	return append(out, extra...)
}

// parseOr handles OR expressions (lowest precedence)
func (p *ASTParser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.isLogical(Or) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Left: left, Op: Or, Right: right}
	}

	return left, nil
}

// parseAnd handles AND expressions
func (p *ASTParser) parseAnd() (Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.isLogical(And) {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Logical{Left: left, Op: And, Right: right}
	}

	return left, nil
}

func (p *ASTParser) isLogical(op LogicalOp) bool {
	token := p.currentToken()
	return token.Type == TokenLogical && ops.logicalByText[token.Value] == op
}

// parseNot handles NOT expressions. A NOT in prefix position is always the
// logical operator; NOT IN only occurs after a left operand.
func (p *ASTParser) parseNot() (Expression, error) {
	if p.currentToken().Type != TokenNot {
		return p.parseComparison()
	}

	p.advance()
	if err := p.enter(); err != nil {
		return nil, err
	}
	operand, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	p.leave()
	return NewNot(operand), nil
}

// parseOperand handles literals, field references, function calls and
// parenthesized sub-expressions.
func (p *ASTParser) parseOperand() (Expression, error) {
	token := p.currentToken()

	switch token.Type {
	case TokenString, TokenNumber, TokenBoolean, TokenNull:
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return lit, nil
	case TokenIdentifier:
		if p.peekAt(1).Type == TokenLParen {
			return p.parseFunctionCall()
		}
		p.advance()
		name := token.Value
		if p.opts.FoldIdentifiers {
			name = strings.ToLower(name)
		}
		return &FieldRef{Name: name}, nil
	case TokenLParen:
		return p.parseGroup()
	}

	return nil, p.unexpected(operandExpected...)
}

// parseGroup handles '(' expr ')'. The parentheses leave no trace in the
// tree.
func (p *ASTParser) parseGroup() (Expression, error) {
	p.advance()
	if err := p.enter(); err != nil {
		return nil, err
	}
	inner, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen, p.followSet("')'")...); err != nil {
		return nil, err
	}
	p.leave()
	return inner, nil
}

// parseLiteral converts the current scalar literal token.
func (p *ASTParser) parseLiteral() (*Literal, error) {
	token := p.currentToken()
	switch token.Type {
	case TokenString, TokenNumber, TokenBoolean, TokenNull:
	default:
		return nil, p.unexpected(literalExpected...)
	}
	v, err := valueFromToken(token)
	if err != nil {
		return nil, &LexError{Pos: token.Pos, Kind: MalformedNumber, Text: token.Value}
	}
	p.advance()
	return &Literal{Value: v}, nil
}
