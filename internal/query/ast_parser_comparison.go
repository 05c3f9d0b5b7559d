package query

import (
	"fmt"
	"strings"
)

// parseComparison handles operand (CompareOp operand)?. Comparisons do not
// chain: a second operator after the right operand is an error.
func (p *ASTParser) parseComparison() (Expression, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	op, width, ok := p.matchCompareOp()
	if !ok {
		p.bareOperand = true
		return left, nil
	}
	for i := 0; i < width; i++ {
		p.advance()
	}

	var right Expression
	switch {
	case op.TakesList():
		right, err = p.parseListOperand()
	case op.TakesState():
		right, err = p.parseStateOperand()
	default:
		right, err = p.parseOperand()
	}
	if err != nil {
		return nil, err
	}

	if next, nextWidth, chained := p.matchCompareOp(); chained {
		token := p.currentToken()
		return nil, &ParseError{
			Pos:    token.Pos,
			Kind:   ChainedComparison,
			Found:  p.operatorText(next, nextWidth),
			Detail: "combine comparisons with AND",
		}
	}

	p.bareOperand = false
	return &Comparison{Left: left, Op: op, Right: right}, nil
}

// matchCompareOp looks for a comparison operator at the cursor, trying the
// longest multi-token operators (NOT IN, IS NOT) first. It reports the
// number of tokens the operator spans.
func (p *ASTParser) matchCompareOp() (CompareOp, int, bool) {
	for n := ops.maxTokens; n >= 1; n-- {
		words := make([]string, 0, n)
		for i := 0; i < n; i++ {
			token := p.peekAt(i)
			if token.Type != TokenOperator && token.Type != TokenNot {
				break
			}
			words = append(words, token.Value)
		}
		if len(words) != n {
			continue
		}
		if op, ok := ops.compareByText[strings.Join(words, " ")]; ok {
			return op, n, true
		}
	}
	return 0, 0, false
}

// operatorText returns the source spelling of the n operator tokens at the
// cursor, e.g. "<" or "NOT IN".
func (p *ASTParser) operatorText(op CompareOp, n int) string {
	words := make([]string, 0, n)
	for i := 0; i < n; i++ {
		words = append(words, p.peekAt(i).Value)
	}
	if len(words) == 0 {
		return op.String()
	}
	return strings.Join(words, " ")
}

// parseListOperand handles the '(' literal (',' literal)* ')' operand of IN
// and NOT IN.
func (p *ASTParser) parseListOperand() (Expression, error) {
	if _, err := p.expect(TokenLParen, "'('"); err != nil {
		return nil, err
	}
	if p.currentToken().Type == TokenRParen {
		err := p.unexpected(literalExpected...)
		err.Kind = InvalidOperand
		err.Detail = "an IN list needs at least one value"
		return nil, err
	}

	var items []Value
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		items = append(items, lit.Value)

		if p.currentToken().Type == TokenComma {
			p.advance()
			continue
		}
		if _, err := p.expect(TokenRParen, "','", "')'"); err != nil {
			return nil, err
		}
		break
	}

	return &Literal{Value: Value{kind: KindList, list: items}}, nil
}

// parseStateOperand handles the NULL, TRUE or FALSE operand of IS and
// IS NOT.
func (p *ASTParser) parseStateOperand() (Expression, error) {
	token := p.currentToken()
	if token.Type != TokenNull && token.Type != TokenBoolean {
		err := p.unexpected(stateExpected...)
		if token.Type != TokenEOF {
			err.Kind = InvalidOperand
		}
		return nil, err
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return lit, nil
}

// parseFunctionCall handles identifier '(' (expr (',' expr)*)? ')'.
func (p *ASTParser) parseFunctionCall() (Expression, error) {
	nameToken := p.advance()

	var spec FunctionSpec
	if p.opts.StrictFunctions {
		var known bool
		spec, known = p.opts.Functions.Lookup(nameToken.Value)
		if !known {
			return nil, &ParseError{
				Pos:   nameToken.Pos,
				Kind:  UnknownFunction,
				Found: nameToken.Value,
			}
		}
	}

	// Opening paren, guaranteed by the caller's lookahead.
	p.advance()
	if err := p.enter(); err != nil {
		return nil, err
	}

	args := []Expression{}
	if p.currentToken().Type == TokenRParen {
		p.advance()
	} else {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.currentToken().Type == TokenComma {
				p.advance()
				continue
			}
			if _, err := p.expect(TokenRParen, p.followSet("','", "')'")...); err != nil {
				return nil, err
			}
			break
		}
	}
	p.leave()

	if p.opts.StrictFunctions && !spec.AcceptsArgs(len(args)) {
		return nil, &ParseError{
			Pos:    nameToken.Pos,
			Kind:   FunctionArity,
			Found:  nameToken.Value,
			Detail: fmt.Sprintf("expects %s, got %d", spec.ArityText(), len(args)),
		}
	}

	return &FunctionCall{Name: nameToken.Value, Args: args}, nil
}
