package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdentifier
	TokenString
	TokenNumber
	TokenBoolean
	TokenNull
	TokenOperator
	TokenLogical
	TokenNot
	TokenLParen
	TokenRParen
	TokenComma
)

var tokenTypeNames = map[TokenType]string{
	TokenEOF:        "end of input",
	TokenIdentifier: "identifier",
	TokenString:     "string",
	TokenNumber:     "number",
	TokenBoolean:    "boolean",
	TokenNull:       "null",
	TokenOperator:   "operator",
	TokenLogical:    "logical operator",
	TokenNot:        "NOT",
	TokenLParen:     "'('",
	TokenRParen:     "')'",
	TokenComma:      "','",
}

// String returns a human readable description used in diagnostics.
func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a single token in the filter expression
type Token struct {
	Type TokenType
	// Value is the unescaped content for strings, the upper-cased keyword for
	// operators and the raw text otherwise.
	Value string
	// Pos is the byte offset of the token in the input.
	Pos int
	// Len is the length of the token's source text in bytes.
	Len int
}

// describe renders the token for error messages.
func (t Token) describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return fmt.Sprintf("string %q", t.Value)
	case TokenIdentifier:
		return fmt.Sprintf("identifier %q", t.Value)
	case TokenNumber:
		return "number " + t.Value
	}
	return fmt.Sprintf("%q", t.Value)
}

// Tokenizer splits a filter expression into tokens.
type Tokenizer struct {
	input string
	pos   int
	ch    rune
	width int
}

// NewTokenizer creates a new tokenizer
func NewTokenizer(input string) *Tokenizer {
	t := &Tokenizer{input: input}
	t.decode()
	return t
}

// decode loads the rune at t.pos.
func (t *Tokenizer) decode() {
	if t.pos >= len(t.input) {
		t.ch, t.width = 0, 0
		return
	}
	t.ch, t.width = utf8.DecodeRuneInString(t.input[t.pos:])
}

// advance moves to the next character
func (t *Tokenizer) advance() {
	t.pos += t.width
	t.decode()
}

// peek looks ahead without advancing
func (t *Tokenizer) peek() rune {
	next := t.pos + t.width
	if next >= len(t.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(t.input[next:])
	return r
}

func (t *Tokenizer) atEOF() bool {
	return t.pos >= len(t.input)
}

// skipWhitespace skips whitespace characters
func (t *Tokenizer) skipWhitespace() {
	for t.ch == ' ' || t.ch == '\t' || t.ch == '\n' || t.ch == '\r' {
		t.advance()
	}
}

func isWordStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isWordPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// readString reads a quoted string. Backslash escapes either quote
// character and itself; any other escaped rune is kept with its backslash.
func (t *Tokenizer) readString() (*Token, error) {
	start := t.pos
	quote := t.ch
	t.advance()

	var result strings.Builder
	for {
		if t.atEOF() {
			return nil, &LexError{Pos: start, Kind: UnterminatedString, Text: t.input[start:]}
		}
		switch t.ch {
		case quote:
			t.advance()
			return &Token{Type: TokenString, Value: result.String(), Pos: start, Len: t.pos - start}, nil
		case '\\':
			next := t.peek()
			switch next {
			case '\'', '"', '\\':
				t.advance()
				result.WriteRune(next)
			case 0:
				return nil, &LexError{Pos: start, Kind: UnterminatedString, Text: t.input[start:]}
			default:
				result.WriteRune('\\')
			}
		default:
			result.WriteString(t.input[t.pos : t.pos+t.width])
		}
		t.advance()
	}
}

// readNumber reads an optionally signed integer or decimal.
func (t *Tokenizer) readNumber() (*Token, error) {
	start := t.pos
	if t.ch == '-' || t.ch == '+' {
		t.advance()
	}
	for isDigit(t.ch) {
		t.advance()
	}

	if t.ch == '.' {
		t.advance()
		if !isDigit(t.ch) {
			return nil, t.malformedNumber(start)
		}
		for isDigit(t.ch) {
			t.advance()
		}
		if t.ch == '.' {
			return nil, t.malformedNumber(start)
		}
	}

	if isWordPart(t.ch) {
		return nil, t.malformedNumber(start)
	}

	value := t.input[start:t.pos]
	// A leading '+' is accepted but not part of the canonical value.
	value = strings.TrimPrefix(value, "+")
	return &Token{Type: TokenNumber, Value: value, Pos: start, Len: t.pos - start}, nil
}

// malformedNumber consumes the rest of the offending run so the reported
// fragment covers what the user typed.
func (t *Tokenizer) malformedNumber(start int) error {
	for isWordPart(t.ch) || t.ch == '.' {
		t.advance()
	}
	return &LexError{Pos: start, Kind: MalformedNumber, Text: t.input[start:t.pos]}
}

// readIdentifier reads an identifier or keyword. Dot separated segments
// form one qualified identifier.
func (t *Tokenizer) readIdentifier() string {
	start := t.pos
	for {
		for isWordPart(t.ch) {
			t.advance()
		}
		if t.ch == '.' && isWordStart(t.peek()) {
			t.advance()
			continue
		}
		break
	}
	return t.input[start:t.pos]
}

// NextToken returns the next token
func (t *Tokenizer) NextToken() (*Token, error) {
	t.skipWhitespace()

	if t.atEOF() {
		return &Token{Type: TokenEOF, Pos: len(t.input)}, nil
	}

	pos := t.pos

	if t.ch == '\'' || t.ch == '"' {
		return t.readString()
	}

	if isDigit(t.ch) || ((t.ch == '-' || t.ch == '+') && isDigit(t.peek())) {
		return t.readNumber()
	}

	if token := t.tokenizeSpecialChar(pos); token != nil {
		return token, nil
	}

	if isWordStart(t.ch) {
		return t.tokenizeIdentifierOrKeyword(pos), nil
	}

	text := string(t.ch)
	if t.ch == utf8.RuneError && t.width <= 1 {
		text = t.input[pos : pos+1]
	}
	return nil, &LexError{Pos: pos, Kind: UnexpectedCharacter, Text: text}
}

// tokenizeSpecialChar tokenizes punctuation and symbolic operators,
// preferring the longest symbol from the operator table.
func (t *Tokenizer) tokenizeSpecialChar(pos int) *Token {
	switch t.ch {
	case '(':
		t.advance()
		return &Token{Type: TokenLParen, Value: "(", Pos: pos, Len: 1}
	case ')':
		t.advance()
		return &Token{Type: TokenRParen, Value: ")", Pos: pos, Len: 1}
	case ',':
		t.advance()
		return &Token{Type: TokenComma, Value: ",", Pos: pos, Len: 1}
	}

	rest := t.input[pos:]
	for _, sym := range ops.symbols {
		if strings.HasPrefix(rest, sym) {
			for t.pos < pos+len(sym) {
				t.advance()
			}
			return &Token{Type: TokenOperator, Value: sym, Pos: pos, Len: len(sym)}
		}
	}
	return nil
}

// tokenizeIdentifierOrKeyword tokenizes identifiers and keywords
func (t *Tokenizer) tokenizeIdentifierOrKeyword(pos int) *Token {
	value := t.readIdentifier()
	length := t.pos - pos

	if !strings.Contains(value, ".") {
		if token := classifyKeyword(strings.ToUpper(value), pos, length); token != nil {
			return token
		}
	}

	return &Token{Type: TokenIdentifier, Value: value, Pos: pos, Len: length}
}

// classifyKeyword classifies a keyword and returns the appropriate token
func classifyKeyword(upper string, pos, length int) *Token {
	if op, ok := ops.logicalByText[upper]; ok {
		if op == Not {
			return &Token{Type: TokenNot, Value: upper, Pos: pos, Len: length}
		}
		return &Token{Type: TokenLogical, Value: upper, Pos: pos, Len: length}
	}
	switch upper {
	case "TRUE", "FALSE":
		return &Token{Type: TokenBoolean, Value: strings.ToLower(upper), Pos: pos, Len: length}
	case "NULL":
		return &Token{Type: TokenNull, Value: "null", Pos: pos, Len: length}
	}
	if ops.keywords[upper] {
		return &Token{Type: TokenOperator, Value: upper, Pos: pos, Len: length}
	}
	return nil
}

// IsKeyword reports whether word is reserved and can not be used as a
// field or function name.
func IsKeyword(word string) bool {
	return classifyKeyword(strings.ToUpper(word), 0, 0) != nil
}

// IsIdentifier reports whether name lexes as a single identifier token.
func IsIdentifier(name string) bool {
	if name == "" || !isWordStart(firstRune(name)) {
		return false
	}
	t := NewTokenizer(name)
	tok, err := t.NextToken()
	return err == nil && tok.Type == TokenIdentifier && t.atEOF()
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

// TokenizeAll returns all tokens from the input, ending with TokenEOF.
func (t *Tokenizer) TokenizeAll() ([]*Token, error) {
	var tokens []*Token

	for {
		token, err := t.NextToken()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, token)

		if token.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}

// Tokenize lexes input into a token sequence terminated by TokenEOF.
func Tokenize(input string) ([]Token, error) {
	tokens, err := NewTokenizer(input).TokenizeAll()
	if err != nil {
		return nil, err
	}
	out := make([]Token, len(tokens))
	for i, tok := range tokens {
		out[i] = *tok
	}
	return out, nil
}
