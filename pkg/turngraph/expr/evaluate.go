package expr

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
)

// BinaryOp is a function that compares two values and returns a boolean result.
type BinaryOp func(left, right any) bool

// Evaluator compiles expressions with optional custom operators.
type Evaluator struct {
	customOps map[string]BinaryOp
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCustomOperator registers a custom binary operator.
// The operator name should not conflict with built-in operators or keywords.
func WithCustomOperator(name string, fn BinaryOp) Option {
	return func(e *Evaluator) {
		if e.customOps == nil {
			e.customOps = make(map[string]BinaryOp)
		}
		e.customOps[name] = fn
	}
}

// New creates a new Evaluator with the given options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Program is a compiled expression. It is safe for concurrent use.
type Program struct {
	src    string
	root   node
	idents []string
}

// Compile parses src. An empty expression is a syntax error.
func (e *Evaluator) Compile(src string) (*Program, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks, custom: e.customOps, idents: make(map[string]bool)}
	if p.peek().kind == tokEOF {
		return nil, &SyntaxError{Src: src, Msg: "empty expression"}
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
	return &Program{src: src, root: root, idents: slices.Sorted(maps.Keys(p.idents))}, nil
}

// Evaluate compiles and evaluates src in one call.
func (e *Evaluator) Evaluate(src string, vars Vars) (bool, error) {
	prog, err := e.Compile(src)
	if err != nil {
		return false, err
	}
	return prog.Eval(vars)
}

// Compile parses src with the default evaluator.
func Compile(src string) (*Program, error) {
	return New().Compile(src)
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Program {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Eval is a convenience function that evaluates an expression against a
// map using the default evaluator.
func Eval(src string, vars map[string]any) (bool, error) {
	return New().Evaluate(src, Map(vars))
}

// String returns the source text.
func (p *Program) String() string { return p.src }

// Identifiers returns the sorted identifiers the expression reads.
func (p *Program) Identifiers() []string { return slices.Clone(p.idents) }

// Eval evaluates the program. A nil vars resolves every identifier to null.
func (p *Program) Eval(vars Vars) (bool, error) {
	v, err := p.root.eval(vars)
	if err != nil {
		return false, fmt.Errorf("expr %q: %w", p.src, err)
	}
	return IsTruthy(v), nil
}

type node interface {
	eval(vars Vars) (any, error)
}

type literalNode struct{ v any }

func (n literalNode) eval(Vars) (any, error) { return n.v, nil }

type identNode struct{ name string }

func (n identNode) eval(vars Vars) (any, error) {
	if vars == nil {
		return nil, nil
	}
	v, _ := vars.Lookup(n.name)
	return v, nil
}

type notNode struct{ x node }

func (n notNode) eval(vars Vars) (any, error) {
	v, err := n.x.eval(vars)
	if err != nil {
		return nil, err
	}
	return !IsTruthy(v), nil
}

type andNode struct{ l, r node }

func (n andNode) eval(vars Vars) (any, error) {
	l, err := n.l.eval(vars)
	if err != nil || !IsTruthy(l) {
		return false, err
	}
	r, err := n.r.eval(vars)
	if err != nil {
		return nil, err
	}
	return IsTruthy(r), nil
}

type orNode struct{ l, r node }

func (n orNode) eval(vars Vars) (any, error) {
	l, err := n.l.eval(vars)
	if err != nil {
		return nil, err
	}
	if IsTruthy(l) {
		return true, nil
	}
	r, err := n.r.eval(vars)
	if err != nil {
		return nil, err
	}
	return IsTruthy(r), nil
}

type callNode struct {
	fn  string
	arg node
}

func (n callNode) eval(vars Vars) (any, error) {
	v, err := n.arg.eval(vars)
	if err != nil {
		return nil, err
	}
	if n.fn == "empty" {
		return !IsTruthy(v), nil
	}
	return int64(length(v)), nil
}

type compareNode struct {
	op          string
	left, right node
	custom      BinaryOp
	re          *regexp.Regexp
}

func (n compareNode) eval(vars Vars) (any, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return nil, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return nil, err
	}
	if n.custom != nil {
		return n.custom(l, r), nil
	}
	switch n.op {
	case "==":
		return equals(l, r), nil
	case "!=":
		return !equals(l, r), nil
	case "<":
		return ToFloat64(l) < ToFloat64(r), nil
	case ">":
		return ToFloat64(l) > ToFloat64(r), nil
	case "<=":
		return ToFloat64(l) <= ToFloat64(r), nil
	case ">=":
		return ToFloat64(l) >= ToFloat64(r), nil
	case "contains":
		return contains(l, r), nil
	case "in":
		return contains(r, l), nil
	case "matches":
		re := n.re
		if re == nil {
			if re, err = regexp.Compile(printed(r)); err != nil {
				return nil, fmt.Errorf("bad pattern: %w", err)
			}
		}
		if l == nil {
			return false, nil
		}
		return re.MatchString(printed(l)), nil
	default:
		return nil, fmt.Errorf("unknown operator: %s", n.op)
	}
}
