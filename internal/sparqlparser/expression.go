package sparqlparser

import (
	"fmt"
	"strings"

	"github.com/loomdb/loomdb/pkg/rdf"
)

// parseFilter parses the expression following a FILTER keyword into a
// real expression tree, so FILTER actually evaluates at execution time.
func (p *Parser) parseFilter() (*Filter, error) {
	p.skipWhitespace()
	expr, err := p.parseUnaryOrPrimaryAwareExpression()
	if err != nil {
		return nil, fmt.Errorf("sparqlparser: FILTER: %w", err)
	}
	return &Filter{Expression: expr}, nil
}

// parseUnaryOrPrimaryAwareExpression exists only so parseFilter's error
// wrapping reads naturally; it simply dispatches to the top of the
// precedence ladder.
func (p *Parser) parseUnaryOrPrimaryAwareExpression() (Expression, error) {
	return p.parseExpression()
}

// parseExpression is the top of the precedence ladder: logical OR binds
// loosest, then logical AND, then comparison, then additive, then
// multiplicative, then unary, then primary.
func (p *Parser) parseExpression() (Expression, error) {
	return p.parseOrExpression()
}

func (p *Parser) parseOrExpression() (Expression, error) {
	left, err := p.parseAndExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if !strings.HasPrefix(p.input[p.pos:], "||") {
			return left, nil
		}
		p.pos += 2
		right, err := p.parseAndExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: OpOr, Right: right}
	}
}

func (p *Parser) parseAndExpression() (Expression, error) {
	left, err := p.parseComparisonExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if !strings.HasPrefix(p.input[p.pos:], "&&") {
			return left, nil
		}
		p.pos += 2
		right, err := p.parseComparisonExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: OpAnd, Right: right}
	}
}

func (p *Parser) parseComparisonExpression() (Expression, error) {
	left, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	op, ok := p.matchComparisonOperator()
	if !ok {
		return left, nil
	}
	right, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}
	return &BinaryExpression{Left: left, Operator: op, Right: right}, nil
}

func (p *Parser) matchComparisonOperator() (Operator, bool) {
	rest := p.input[p.pos:]
	switch {
	case strings.HasPrefix(rest, "!="):
		p.pos += 2
		return OpNotEqual, true
	case strings.HasPrefix(rest, "<="):
		p.pos += 2
		return OpLessThanOrEqual, true
	case strings.HasPrefix(rest, ">="):
		p.pos += 2
		return OpGreaterThanOrEqual, true
	case strings.HasPrefix(rest, "="):
		p.pos++
		return OpEqual, true
	case strings.HasPrefix(rest, "<"):
		p.pos++
		return OpLessThan, true
	case strings.HasPrefix(rest, ">"):
		p.pos++
		return OpGreaterThan, true
	default:
		return 0, false
	}
}

func (p *Parser) parseAdditiveExpression() (Expression, error) {
	left, err := p.parseMultiplicativeExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		switch p.peek() {
		case '+':
			p.advance()
			right, err := p.parseMultiplicativeExpression()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpression{Left: left, Operator: OpAdd, Right: right}
		case '-':
			p.advance()
			right, err := p.parseMultiplicativeExpression()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpression{Left: left, Operator: OpSubtract, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseMultiplicativeExpression() (Expression, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		switch p.peek() {
		case '*':
			p.advance()
			right, err := p.parseUnaryExpression()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpression{Left: left, Operator: OpMultiply, Right: right}
		case '/':
			p.advance()
			right, err := p.parseUnaryExpression()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpression{Left: left, Operator: OpDivide, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseUnaryExpression() (Expression, error) {
	p.skipWhitespace()
	switch {
	case p.peek() == '!':
		p.advance()
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: OpNot, Operand: operand}, nil
	case p.peek() == '-':
		p.advance()
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: OpNegate, Operand: operand}, nil
	case p.peek() == '+':
		p.advance()
		return p.parseUnaryExpression()
	default:
		return p.parsePrimaryExpression()
	}
}

func (p *Parser) parsePrimaryExpression() (Expression, error) {
	p.skipWhitespace()
	switch ch := p.peek(); {
	case ch == '(':
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("sparqlparser: expected ')' at offset %d", p.pos)
		}
		p.advance()
		return expr, nil
	case ch == '?' || ch == '$':
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &VariableExpression{Variable: v}, nil
	case ch == '"' || ch == '\'':
		lit, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		return &LiteralExpression{Term: lit}, nil
	case ch >= '0' && ch <= '9':
		lit, err := p.parseNumericLiteral()
		if err != nil {
			return nil, err
		}
		return &LiteralExpression{Term: lit}, nil
	case p.matchKeywordNoAdvanceCheck("true"):
		p.advanceN(4)
		return &LiteralExpression{Term: rdf.NewBooleanLiteral(true)}, nil
	case p.matchKeywordNoAdvanceCheck("false"):
		p.advanceN(5)
		return &LiteralExpression{Term: rdf.NewBooleanLiteral(false)}, nil
	default:
		return p.parseFunctionCallOrIRI()
	}
}

func (p *Parser) parseFunctionCallOrIRI() (Expression, error) {
	start := p.pos
	name := p.readWhile(func(ch byte) bool {
		return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_'
	})
	p.skipWhitespace()
	if name != "" && p.peek() == '(' {
		p.advance()
		var args []Expression
		p.skipWhitespace()
		if p.peek() != ')' {
			for {
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				p.skipWhitespace()
				if p.peek() == ',' {
					p.advance()
					continue
				}
				break
			}
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("sparqlparser: expected ')' closing %s(...) at offset %d", name, p.pos)
		}
		p.advance()
		return &FunctionCallExpression{Function: strings.ToUpper(name), Arguments: args}, nil
	}
	p.pos = start
	term, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("sparqlparser: expected expression at offset %d", start)
	}
	if term.IsVariable() {
		return &VariableExpression{Variable: term.Variable}, nil
	}
	return &LiteralExpression{Term: term.Term}, nil
}
