package constraint

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/format"
	"cuelang.org/go/cue/literal"
	"cuelang.org/go/cue/parser"
	"cuelang.org/go/cue/token"
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/quantity"
)

type valueKind int

const (
	numKind valueKind = iota
	boolKind
)

// typ is the static type of a sub-expression. Untyped numbers are bare
// literals; they adopt the unit of the operand they meet.
type typ struct {
	kind    valueKind
	unit    quantity.Unit
	untyped bool
}

func (t typ) String() string {
	switch {
	case t.kind == boolKind:
		return "bool"
	case t.untyped:
		return "number"
	default:
		return "number[" + t.unit.String() + "]"
	}
}

// compiler turns one parsed rule into a node tree, collecting references.
type compiler struct {
	rule  string
	scope Scope
	refs  []Ref
	seen  map[Ref]bool
}

func malformed(rule, msg string, args ...any) *ir.Error {
	return ir.Errorf(ir.ErrCodeMalformedConstraint, msg, args...).WithDetail("rule", rule)
}

// parseRule parses rule text as a CUE expression.
func parseRule(rule string) (ast.Expr, error) {
	if strings.TrimSpace(rule) == "" {
		return nil, malformed(rule, "empty rule")
	}
	x, err := parser.ParseExpr("rule", rule)
	if err != nil {
		return nil, malformed(rule, "syntax error: %v", err)
	}
	return x, nil
}

func (c *compiler) addRef(r Ref) {
	if c.seen == nil {
		c.seen = make(map[Ref]bool)
	}
	if !c.seen[r] {
		c.seen[r] = true
		c.refs = append(c.refs, r)
	}
}

func source(x ast.Node) string {
	b, err := format.Node(x)
	if err != nil {
		return fmt.Sprintf("%T", x)
	}
	return strings.TrimSpace(string(b))
}

func (c *compiler) compile(x ast.Expr) (node, typ, error) {
	switch x := x.(type) {
	case *ast.ParenExpr:
		return c.compile(x.X)

	case *ast.BasicLit:
		switch x.Kind {
		case token.INT, token.FLOAT:
			var info literal.NumInfo
			if err := literal.ParseNum(x.Value, &info); err != nil {
				return nil, typ{}, malformed(c.rule, "bad number %q: %v", x.Value, err)
			}
			d := new(apd.Decimal)
			if err := info.Decimal(d); err != nil {
				return nil, typ{}, malformed(c.rule, "bad number %q: %v", x.Value, err)
			}
			return &numLit{d: d}, typ{kind: numKind, untyped: true}, nil
		case token.TRUE, token.FALSE:
			return &boolLit{b: x.Kind == token.TRUE}, typ{kind: boolKind}, nil
		case token.STRING:
			return nil, typ{}, malformed(c.rule, "string %s is only allowed as the range of within()", x.Value)
		default:
			return nil, typ{}, malformed(c.rule, "unsupported literal %s", x.Value)
		}

	case *ast.Ident:
		return c.ref(Ref{Param: x.Name})

	case *ast.SelectorExpr:
		role, ok := x.X.(*ast.Ident)
		if !ok {
			return nil, typ{}, malformed(c.rule, "only role.param selectors are supported, got %s", source(x))
		}
		name, _, err := ast.LabelName(x.Sel)
		if err != nil {
			return nil, typ{}, malformed(c.rule, "bad selector %s: %v", source(x), err)
		}
		return c.ref(Ref{Role: role.Name, Param: name})

	case *ast.UnaryExpr:
		return c.unary(x)

	case *ast.BinaryExpr:
		return c.binary(x)

	case *ast.CallExpr:
		return c.call(x)

	default:
		return nil, typ{}, malformed(c.rule, "unsupported expression %s", source(x))
	}
}

func (c *compiler) ref(r Ref) (node, typ, error) {
	unit, ok := c.scope[r]
	if !ok {
		if r.Role != "" && !c.hasRole(r.Role) {
			return nil, typ{}, malformed(c.rule, "unknown role %q", r.Role)
		}
		return nil, typ{}, malformed(c.rule, "unknown parameter %q", r.String())
	}
	c.addRef(r)
	return &refNode{ref: r, unit: unit}, typ{kind: numKind, unit: unit}, nil
}

func (c *compiler) hasRole(role string) bool {
	for r := range c.scope {
		if r.Role == role {
			return true
		}
	}
	return false
}

func (c *compiler) unary(x *ast.UnaryExpr) (node, typ, error) {
	inner, t, err := c.compile(x.X)
	if err != nil {
		return nil, typ{}, err
	}
	switch x.Op {
	case token.SUB:
		if t.kind != numKind {
			return nil, typ{}, malformed(c.rule, "cannot negate %s", t)
		}
		return &negNode{x: inner}, t, nil
	case token.ADD:
		if t.kind != numKind {
			return nil, typ{}, malformed(c.rule, "unary + on %s", t)
		}
		return inner, t, nil
	case token.NOT:
		if t.kind != boolKind {
			return nil, typ{}, malformed(c.rule, "cannot apply ! to %s", t)
		}
		return &notNode{x: inner, src: source(x)}, t, nil
	default:
		return nil, typ{}, malformed(c.rule, "unsupported unary operator %s", x.Op)
	}
}

// unify checks that two numeric operands share a unit, letting untyped
// literals adopt the other side's unit.
func (c *compiler) unify(op string, a, b typ) (typ, error) {
	if a.kind != numKind || b.kind != numKind {
		return typ{}, malformed(c.rule, "operator %s needs numbers, got %s and %s", op, a, b)
	}
	switch {
	case a.untyped && b.untyped:
		return a, nil
	case a.untyped:
		return b, nil
	case b.untyped:
		return a, nil
	case a.unit != b.unit:
		return typ{}, ir.Errorf(ir.ErrCodeUnitMismatch, "operator %s mixes %s and %s", op, a.unit, b.unit).
			WithDetail("rule", c.rule)
	default:
		return a, nil
	}
}

func (c *compiler) binary(x *ast.BinaryExpr) (node, typ, error) {
	l, lt, err := c.compile(x.X)
	if err != nil {
		return nil, typ{}, err
	}
	r, rt, err := c.compile(x.Y)
	if err != nil {
		return nil, typ{}, err
	}
	op := x.Op.String()

	switch x.Op {
	case token.ADD, token.SUB:
		t, err := c.unify(op, lt, rt)
		if err != nil {
			return nil, typ{}, err
		}
		return &arithNode{op: x.Op, l: l, r: r}, t, nil

	case token.MUL, token.QUO:
		if lt.kind != numKind || rt.kind != numKind {
			return nil, typ{}, malformed(c.rule, "operator %s needs numbers, got %s and %s", op, lt, rt)
		}
		var unit quantity.Unit
		if x.Op == token.MUL {
			unit = lt.unit.Mul(rt.unit)
		} else {
			unit = lt.unit.Quo(rt.unit)
		}
		t := typ{kind: numKind, unit: unit, untyped: lt.untyped && rt.untyped}
		return &arithNode{op: x.Op, l: l, r: r}, t, nil

	case token.LSS, token.LEQ, token.GTR, token.GEQ, token.EQL, token.NEQ:
		t, err := c.unify(op, lt, rt)
		if err != nil {
			return nil, typ{}, err
		}
		return &cmpNode{op: x.Op, l: l, r: r, unit: t.unit, src: source(x)}, typ{kind: boolKind}, nil

	case token.LAND, token.LOR:
		if lt.kind != boolKind || rt.kind != boolKind {
			return nil, typ{}, malformed(c.rule, "operator %s needs predicates, got %s and %s", op, lt, rt)
		}
		return &logicNode{and: x.Op == token.LAND, l: l, r: r, src: source(x)}, typ{kind: boolKind}, nil

	default:
		return nil, typ{}, malformed(c.rule, "unsupported operator %s", op)
	}
}

func (c *compiler) call(x *ast.CallExpr) (node, typ, error) {
	fn, ok := x.Fun.(*ast.Ident)
	if !ok {
		return nil, typ{}, malformed(c.rule, "unsupported call %s", source(x))
	}
	name := fn.Name

	if name == "within" {
		return c.within(x)
	}

	args := make([]node, len(x.Args))
	types := make([]typ, len(x.Args))
	for i, a := range x.Args {
		n, t, err := c.compile(a)
		if err != nil {
			return nil, typ{}, err
		}
		if t.kind != numKind {
			return nil, typ{}, malformed(c.rule, "%s() needs numbers, got %s", name, t)
		}
		args[i], types[i] = n, t
	}

	switch name {
	case "pow2", "integer":
		if len(args) != 1 {
			return nil, typ{}, malformed(c.rule, "%s() takes one argument", name)
		}
		return &predNode{fn: name, x: args[0], unit: types[0].unit, src: source(x)}, typ{kind: boolKind}, nil

	case "abs":
		if len(args) != 1 {
			return nil, typ{}, malformed(c.rule, "abs() takes one argument")
		}
		return &absNode{x: args[0]}, types[0], nil

	case "sum", "min", "max":
		if len(args) == 0 {
			return nil, typ{}, malformed(c.rule, "%s() needs at least one argument", name)
		}
		t := types[0]
		for _, at := range types[1:] {
			var err error
			if t, err = c.unify(name+"()", t, at); err != nil {
				return nil, typ{}, err
			}
		}
		return &foldNode{fn: name, xs: args}, t, nil

	default:
		return nil, typ{}, malformed(c.rule, "unknown function %s()", name)
	}
}

// within(x, "[lo, hi]") checks x against an interval in x's unit.
func (c *compiler) within(x *ast.CallExpr) (node, typ, error) {
	if len(x.Args) != 2 {
		return nil, typ{}, malformed(c.rule, "within() takes a value and a range string")
	}
	n, t, err := c.compile(x.Args[0])
	if err != nil {
		return nil, typ{}, err
	}
	if t.kind != numKind {
		return nil, typ{}, malformed(c.rule, "within() needs a number, got %s", t)
	}
	lit, ok := x.Args[1].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return nil, typ{}, malformed(c.rule, "within() range must be a string literal")
	}
	text, err := literal.Unquote(lit.Value)
	if err != nil {
		return nil, typ{}, malformed(c.rule, "bad range string %s: %v", lit.Value, err)
	}
	rng, err := quantity.ParseRange(text, t.unit)
	if err != nil {
		return nil, typ{}, malformed(c.rule, "bad range %q: %v", text, err)
	}
	return &withinNode{x: n, rng: rng, src: source(x)}, typ{kind: boolKind}, nil
}
