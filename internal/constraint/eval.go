package constraint

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/blockgen/internal/quantity"
)

// Sums, differences and products are exact. Only quotients are bounded
// to quantity.Precision digits, and a rounded quotient fails the rule.
var (
	exact  = apd.BaseContext.WithPrecision(0)
	quoCtx = apd.BaseContext.WithPrecision(quantity.Precision)
)

// errUnbound is returned when evaluation reaches a reference the env
// cannot resolve.
type errUnbound struct{ ref Ref }

func (e errUnbound) Error() string { return "unbound parameter " + e.ref.String() }

var (
	errDivZero         = errors.New("division by zero")
	errInexactQuotient = errors.New("inexact quotient")
)

// result holds a numeric or boolean evaluation result.
type result struct {
	num *apd.Decimal
	b   bool
}

type node interface {
	eval(env Env) (result, error)
}

// predicate nodes can explain why they evaluated false.
type predicate interface {
	node
	blame(env Env) (expected, actual string)
}

type numLit struct{ d *apd.Decimal }

func (n *numLit) eval(Env) (result, error) { return result{num: n.d}, nil }

type boolLit struct{ b bool }

func (n *boolLit) eval(Env) (result, error) { return result{b: n.b}, nil }

type refNode struct {
	ref  Ref
	unit quantity.Unit
}

func (n *refNode) eval(env Env) (result, error) {
	v, ok := env(n.ref)
	if !ok {
		return result{}, errUnbound{ref: n.ref}
	}
	return result{num: v.Decimal()}, nil
}

type negNode struct{ x node }

func (n *negNode) eval(env Env) (result, error) {
	r, err := n.x.eval(env)
	if err != nil {
		return result{}, err
	}
	return result{num: new(apd.Decimal).Neg(r.num)}, nil
}

type absNode struct{ x node }

func (n *absNode) eval(env Env) (result, error) {
	r, err := n.x.eval(env)
	if err != nil {
		return result{}, err
	}
	return result{num: new(apd.Decimal).Abs(r.num)}, nil
}

type arithNode struct {
	op   token.Token
	l, r node
}

func (n *arithNode) eval(env Env) (result, error) {
	l, err := n.l.eval(env)
	if err != nil {
		return result{}, err
	}
	r, err := n.r.eval(env)
	if err != nil {
		return result{}, err
	}
	d := new(apd.Decimal)
	switch n.op {
	case token.ADD:
		_, err = exact.Add(d, l.num, r.num)
	case token.SUB:
		_, err = exact.Sub(d, l.num, r.num)
	case token.MUL:
		_, err = exact.Mul(d, l.num, r.num)
	case token.QUO:
		if r.num.IsZero() {
			return result{}, errDivZero
		}
		var cond apd.Condition
		cond, err = quoCtx.Quo(d, l.num, r.num)
		if err == nil && cond.Inexact() {
			return result{}, errInexactQuotient
		}
	default:
		err = fmt.Errorf("unsupported operator %s", n.op)
	}
	if err != nil {
		return result{}, err
	}
	return result{num: d}, nil
}

type foldNode struct {
	fn string
	xs []node
}

func (n *foldNode) eval(env Env) (result, error) {
	var acc *apd.Decimal
	for _, x := range n.xs {
		r, err := x.eval(env)
		if err != nil {
			return result{}, err
		}
		switch {
		case acc == nil:
			acc = new(apd.Decimal).Set(r.num)
		case n.fn == "sum":
			if _, err := exact.Add(acc, acc, r.num); err != nil {
				return result{}, err
			}
		case n.fn == "min" && r.num.Cmp(acc) < 0, n.fn == "max" && r.num.Cmp(acc) > 0:
			acc.Set(r.num)
		}
	}
	return result{num: acc}, nil
}

type cmpNode struct {
	op   token.Token
	l, r node
	unit quantity.Unit
	src  string
}

func (n *cmpNode) sides(env Env) (l, r *apd.Decimal, err error) {
	lr, err := n.l.eval(env)
	if err != nil {
		return nil, nil, err
	}
	rr, err := n.r.eval(env)
	if err != nil {
		return nil, nil, err
	}
	return lr.num, rr.num, nil
}

func (n *cmpNode) eval(env Env) (result, error) {
	l, r, err := n.sides(env)
	if err != nil {
		return result{}, err
	}
	c := l.Cmp(r)
	var ok bool
	switch n.op {
	case token.LSS:
		ok = c < 0
	case token.LEQ:
		ok = c <= 0
	case token.GTR:
		ok = c > 0
	case token.GEQ:
		ok = c >= 0
	case token.EQL:
		ok = c == 0
	case token.NEQ:
		ok = c != 0
	}
	return result{b: ok}, nil
}

func (n *cmpNode) blame(env Env) (string, string) {
	l, r, err := n.sides(env)
	if err != nil {
		return n.src, err.Error()
	}
	return n.src, render(l, n.unit) + " vs " + render(r, n.unit)
}

type logicNode struct {
	and  bool
	l, r node
	src  string
}

func (n *logicNode) eval(env Env) (result, error) {
	l, err := n.l.eval(env)
	if err != nil {
		return result{}, err
	}
	if n.and && !l.b {
		return result{b: false}, nil
	}
	if !n.and && l.b {
		return result{b: true}, nil
	}
	return n.r.eval(env)
}

// blame descends into the first false conjunct of an &&; a failed || is
// reported as a whole.
func (n *logicNode) blame(env Env) (string, string) {
	if !n.and {
		return n.src, "no alternative holds"
	}
	for _, side := range []node{n.l, n.r} {
		r, err := side.eval(env)
		if err != nil {
			return n.src, err.Error()
		}
		if !r.b {
			if p, ok := side.(predicate); ok {
				return p.blame(env)
			}
			return n.src, "false"
		}
	}
	return n.src, "true"
}

type notNode struct {
	x   node
	src string
}

func (n *notNode) eval(env Env) (result, error) {
	r, err := n.x.eval(env)
	if err != nil {
		return result{}, err
	}
	return result{b: !r.b}, nil
}

func (n *notNode) blame(Env) (string, string) {
	return n.src, "negated predicate holds"
}

// predNode implements pow2(x) and integer(x).
type predNode struct {
	fn   string
	x    node
	unit quantity.Unit
	src  string
}

func (n *predNode) eval(env Env) (result, error) {
	r, err := n.x.eval(env)
	if err != nil {
		return result{}, err
	}
	if n.fn == "pow2" {
		return result{b: quantity.IsPowerOfTwo(r.num)}, nil
	}
	return result{b: quantity.IsInteger(r.num)}, nil
}

func (n *predNode) blame(env Env) (string, string) {
	r, err := n.x.eval(env)
	if err != nil {
		return n.src, err.Error()
	}
	return n.src, render(r.num, n.unit)
}

type withinNode struct {
	x   node
	rng quantity.Range
	src string
}

func (n *withinNode) eval(env Env) (result, error) {
	r, err := n.x.eval(env)
	if err != nil {
		return result{}, err
	}
	return result{b: n.rng.Contains(r.num)}, nil
}

func (n *withinNode) blame(env Env) (string, string) {
	r, err := n.x.eval(env)
	if err != nil {
		return n.src, err.Error()
	}
	return n.src, render(r.num, n.rng.Unit)
}

func render(d *apd.Decimal, unit quantity.Unit) string {
	return quantity.New(d, unit).String()
}
