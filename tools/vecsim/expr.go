package vecsim

import (
	"fmt"
	"strconv"
	"strings"
)

// evalExpr evaluates the constant expressions the assembler accepts in
// immediates and displacements: integers, #define names, unary minus,
// + and - and parentheses.
func evalExpr(src string, defines map[string]string) (int64, error) {
	p := exprParser{src: strings.TrimSpace(src), defines: defines}
	v, err := p.sum()
	if err != nil {
		return 0, err
	}

	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, fmt.Errorf("expression %q: unexpected %q", src, p.src[p.pos:])
	}
	return v, nil
}

type exprParser struct {
	src     string
	pos     int
	defines map[string]string

	// depth guards against #define cycles.
	depth int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) sum() (int64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return v, nil
		}

		op := p.src[p.pos]
		if op != '+' && op != '-' {
			return v, nil
		}
		p.pos++

		rhs, err := p.unary()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			v += rhs
		} else {
			v -= rhs
		}
	}
}

func (p *exprParser) unary() (int64, error) {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
		v, err := p.unary()
		return -v, err
	}
	return p.primary()
}

func (p *exprParser) primary() (int64, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0, fmt.Errorf("expression %q: unexpected end", p.src)
	}

	if p.src[p.pos] == '(' {
		p.pos++
		v, err := p.sum()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return 0, fmt.Errorf("expression %q: missing )", p.src)
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	tok := p.src[start:p.pos]
	if tok == "" {
		return 0, fmt.Errorf("expression %q: unexpected %q", p.src, p.src[p.pos:])
	}

	if tok[0] >= '0' && tok[0] <= '9' {
		v, err := strconv.ParseInt(tok, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("expression %q: %w", p.src, err)
		}
		return v, nil
	}

	def, ok := p.defines[tok]
	if !ok {
		return 0, fmt.Errorf("expression %q: undefined name %q", p.src, tok)
	}
	if p.depth > 16 {
		return 0, fmt.Errorf("expression %q: recursive definition of %q", p.src, tok)
	}

	sub := exprParser{src: strings.TrimSpace(def), defines: p.defines, depth: p.depth + 1}
	v, err := sub.sum()
	if err != nil {
		return 0, err
	}
	sub.skipSpace()
	if sub.pos != len(sub.src) {
		return 0, fmt.Errorf("definition of %q: unexpected %q", tok, sub.src[sub.pos:])
	}
	return v, nil
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
