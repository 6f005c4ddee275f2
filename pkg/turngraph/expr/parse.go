package expr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// SyntaxError reports an expression that does not parse.
type SyntaxError struct {
	Src string
	Pos int
	Msg string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("expr %q: %s at offset %d", e.Src, e.Msg, e.Pos)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == '\'' || r == '"':
			start := i
			var b strings.Builder
			i++
			for ; i < len(rs) && rs[i] != r; i++ {
				if rs[i] == '\\' && i+1 < len(rs) {
					i++
				}
				b.WriteRune(rs[i])
			}
			if i >= len(rs) {
				return nil, &SyntaxError{Src: src, Pos: start, Msg: "unterminated string"}
			}
			i++
			toks = append(toks, token{tokString, b.String(), start})
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			i++
			for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.') {
				i++
			}
			toks = append(toks, token{tokNumber, string(rs[start:i]), start})
		case r == '=' || r == '!' || r == '<' || r == '>':
			start := i
			i++
			if i < len(rs) && rs[i] == '=' {
				i++
			}
			op := string(rs[start:i])
			if op == "=" {
				return nil, &SyntaxError{Src: src, Pos: start, Msg: "use == for equality"}
			}
			toks = append(toks, token{tokOp, op, start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_' || rs[i] == '.') {
				i++
			}
			toks = append(toks, token{tokWord, string(rs[start:i]), start})
		default:
			return nil, &SyntaxError{Src: src, Pos: i, Msg: fmt.Sprintf("unexpected %q", r)}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(rs)}), nil
}

var wordOps = map[string]bool{"contains": true, "in": true, "matches": true}

type parser struct {
	src    string
	toks   []token
	pos    int
	custom map[string]BinaryOp
	idents map[string]bool
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Src: p.src, Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) isWord(word string) bool {
	t := p.peek()
	return t.kind == tokWord && t.text == word
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isWord("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isWord("and") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if t := p.peek(); p.isWord("not") || (t.kind == tokOp && t.text == "!") {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	var op string
	var custom BinaryOp
	switch {
	case t.kind == tokOp && t.text != "!":
		op = t.text
	case t.kind == tokWord && wordOps[t.text]:
		op = t.text
	case t.kind == tokWord && p.custom[t.text] != nil:
		op, custom = t.text, p.custom[t.text]
	case t.kind == tokWord && t.text != "and" && t.text != "or":
		return nil, p.errorf(t, "unknown operator %q", t.text)
	default:
		return left, nil
	}
	p.next()

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	cmp := compareNode{op: op, left: left, right: right, custom: custom}
	if op == "matches" {
		if lit, ok := right.(literalNode); ok {
			re, err := regexp.Compile(printed(lit.v))
			if err != nil {
				return nil, p.errorf(t, "bad pattern: %v", err)
			}
			cmp.re = re
		}
	}
	return cmp, nil
}

func (p *parser) parseOperand() (node, error) {
	t := p.next()
	switch t.kind {
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, p.errorf(t, "missing )")
		}
		return inner, nil
	case tokString:
		return literalNode{t.text}, nil
	case tokNumber:
		if i, err := strconv.ParseInt(t.text, 10, 64); err == nil {
			return literalNode{i}, nil
		}
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "bad number %q", t.text)
		}
		return literalNode{f}, nil
	case tokWord:
		switch t.text {
		case "true":
			return literalNode{true}, nil
		case "false":
			return literalNode{false}, nil
		case "null", "nil":
			return literalNode{nil}, nil
		case "and", "or", "not", "contains", "in", "matches":
			return nil, p.errorf(t, "unexpected %q", t.text)
		case "len", "empty":
			if p.peek().kind == tokLParen {
				p.next()
				arg, err := p.parseOperand()
				if err != nil {
					return nil, err
				}
				if p.next().kind != tokRParen {
					return nil, p.errorf(t, "missing ) after %s", t.text)
				}
				return callNode{fn: t.text, arg: arg}, nil
			}
		}
		p.idents[t.text] = true
		return identNode{t.text}, nil
	case tokEOF:
		return nil, p.errorf(t, "unexpected end of expression")
	default:
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
}
