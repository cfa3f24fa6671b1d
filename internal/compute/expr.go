package compute

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
)

var (
	decimalComma = regexp.MustCompile(`(\d),(\d)`)
	exprStrip    = regexp.MustCompile(`[^0-9.+\-*/() ]`)
)

// SanitizeExpression reduces free text to the restricted grammar: digits,
// ".", "+", "-", "*", "/", parentheses and spaces.
func SanitizeExpression(query string) string {
	s := strings.NewReplacer("×", "*", "÷", "/").Replace(query)
	s = decimalComma.ReplaceAllString(s, "$1.$2")
	s = exprStrip.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Evaluate parses and evaluates a restricted arithmetic expression:
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = ("+" | "-") factor | number | "(" expr ")"
func Evaluate(expr string) (float64, error) {
	p := &exprParser{src: expr}
	p.skipSpace()
	if p.done() {
		return 0, apperr.Computation("expression", "hesaplanacak bir ifade bulunamadı")
	}

	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if !p.done() {
		return 0, p.errorf("beklenmeyen karakter %q", p.src[p.pos])
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperr.Computation("expression", "sonuç tanımsız")
	}
	return v, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) done() bool { return p.pos >= len(p.src) }

func (p *exprParser) skipSpace() {
	for !p.done() && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) errorf(format string, args ...any) error {
	return apperr.Computation("expression", fmt.Sprintf("ifade çözümlenemedi (konum %d): ", p.pos)+fmt.Sprintf(format, args...))
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, errDivideByZero
		}
		left /= right
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	switch c := p.peek(); {
	case c == '+' || c == '-':
		p.pos++
		v, err := p.parseFactor()
		if c == '-' {
			v = -v
		}
		return v, err
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, p.errorf("kapanmamış parantez")
		}
		p.pos++
		return v, nil
	case c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case c == 0:
		return 0, p.errorf("ifade eksik")
	default:
		return 0, p.errorf("beklenmeyen karakter %q", c)
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for !p.done() && (p.src[p.pos] == '.' || (p.src[p.pos] >= '0' && p.src[p.pos] <= '9')) {
		p.pos++
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, p.errorf("geçersiz sayı %q", p.src[start:p.pos])
	}
	return v, nil
}
