package builtin

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"toolchat/internal/ports"
	"toolchat/internal/tools"
)

// NewCalculator creates the calculate tool, a four-function evaluator with
// parentheses, unary minus, and exponent support.
func NewCalculator() ports.Tool {
	def := ports.ToolDefinition{
		Name:        "calculate",
		Description: "Evaluates an arithmetic expression, e.g. (2 + 3) * 4 / 1.5.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"expression": {
					Type:        "string",
					Description: "Arithmetic expression using + - * / ^ and parentheses.",
				},
			},
			Required: []string{"expression"},
		},
	}
	meta := ports.ToolMetadata{Name: def.Name, Module: "core"}

	return tools.NewTool(def, meta, func(ctx context.Context, args map[string]any) (string, error) {
		expr := strings.TrimSpace(tools.StringArg(args, "expression"))
		if expr == "" {
			return "", fmt.Errorf("expression is empty")
		}
		value, err := evalExpression(expr)
		if err != nil {
			return "", err
		}
		if math.IsInf(value, 0) || math.IsNaN(value) {
			return "", fmt.Errorf("expression has no finite result")
		}
		return formatNumber(value), nil
	})
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Recursive-descent evaluator. Grammar, lowest precedence first:
//
//	expr   = term (('+'|'-') term)*
//	term   = power (('*'|'/'|'%') power)*
//	power  = unary ('^' power)?
//	unary  = '-' unary | atom
//	atom   = number | '(' expr ')'
type exprParser struct {
	input []rune
	pos   int
}

func evalExpression(input string) (float64, error) {
	p := &exprParser{input: []rune(input)}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
	}
	return value, nil
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case '%':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if p.peek() == '^' {
		p.pos++
		// Right associative.
		exp, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parseUnary() (float64, error) {
	if p.peek() == '-' {
		p.pos++
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -value, nil
	}
	return p.parseAtom()
}

func (p *exprParser) parseAtom() (float64, error) {
	if p.peek() == '(' {
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return value, nil
	}

	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		if p.pos < len(p.input) {
			return 0, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
		}
		return 0, fmt.Errorf("unexpected end of expression")
	}
	value, err := strconv.ParseFloat(string(p.input[start:p.pos]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", string(p.input[start:p.pos]))
	}
	return value, nil
}

// peek skips whitespace and returns the next rune without consuming it.
func (p *exprParser) peek() rune {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}
