package constraint

import (
	"errors"
	"slices"

	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/quantity"
)

// Constraint is a compiled, named predicate over parameters.
type Constraint struct {
	Name        string
	Rule        string
	Description string

	root predicate
	refs []Ref
}

// Compile parses and type-checks a rule against scope. Syntax errors,
// unknown references, non-boolean rules and unit mismatches are all
// SchemaErrors.
func Compile(spec ir.ConstraintSpec, scope Scope) (*Constraint, error) {
	if spec.Name == "" {
		return nil, malformed(spec.Rule, "constraint has no name")
	}
	x, err := parseRule(spec.Rule)
	if err != nil {
		return nil, withName(err, spec.Name)
	}
	c := &compiler{rule: spec.Rule, scope: scope}
	n, t, err := c.compile(x)
	if err != nil {
		return nil, withName(err, spec.Name)
	}
	p, ok := n.(predicate)
	if !ok || t.kind != boolKind {
		return nil, withName(malformed(spec.Rule, "rule must be a comparison or predicate, got %s", t), spec.Name)
	}
	return &Constraint{
		Name:        spec.Name,
		Rule:        spec.Rule,
		Description: spec.Description,
		root:        p,
		refs:        c.refs,
	}, nil
}

func withName(err error, name string) error {
	if e, ok := ir.AsError(err); ok {
		e.WithDetail("constraint", name)
	}
	return err
}

// Refs returns the references the rule reads, in source order.
func (c *Constraint) Refs() []Ref {
	return slices.Clone(c.refs)
}

// Roles returns the distinct roles the rule reads, in source order.
func (c *Constraint) Roles() []string {
	var roles []string
	for _, r := range c.refs {
		if r.Role != "" && !slices.Contains(roles, r.Role) {
			roles = append(roles, r.Role)
		}
	}
	return roles
}

// Status is the outcome of one check.
type Status int

const (
	Pass Status = iota
	Fail
	Skipped
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	default:
		return "skipped"
	}
}

// Outcome is the result of checking one constraint.
type Outcome struct {
	Status   Status
	Missing  []Ref
	Expected string
	Actual   string
}

// Check evaluates the rule. A rule that reads an unbound reference is
// skipped rather than failed. Arithmetic errors such as division by zero
// fail the constraint.
func (c *Constraint) Check(env Env) Outcome {
	var missing []Ref
	for _, r := range c.refs {
		if _, ok := env(r); !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return Outcome{Status: Skipped, Missing: missing}
	}

	res, err := c.root.eval(env)
	if err != nil {
		var ub errUnbound
		if errors.As(err, &ub) {
			return Outcome{Status: Skipped, Missing: []Ref{ub.ref}}
		}
		return Outcome{Status: Fail, Expected: c.Rule, Actual: err.Error()}
	}
	if res.b {
		return Outcome{Status: Pass}
	}
	expected, actual := c.root.blame(env)
	return Outcome{Status: Fail, Expected: expected, Actual: actual}
}

// Expr is a compiled numeric expression, used for derived quantities.
type Expr struct {
	Name   string
	Source string

	root node
	unit quantity.Unit
	refs []Ref
}

// CompileExpr parses and type-checks a numeric expression. An expression of
// only literals is dimensionless.
func CompileExpr(spec ir.DerivedSpec, scope Scope) (*Expr, error) {
	x, err := parseRule(spec.Expr)
	if err != nil {
		return nil, withName(err, spec.Name)
	}
	c := &compiler{rule: spec.Expr, scope: scope}
	n, t, err := c.compile(x)
	if err != nil {
		return nil, withName(err, spec.Name)
	}
	if t.kind != numKind {
		return nil, withName(malformed(spec.Expr, "derived value must be numeric"), spec.Name)
	}
	return &Expr{Name: spec.Name, Source: spec.Expr, root: n, unit: t.unit, refs: c.refs}, nil
}

// Unit returns the expression's result unit.
func (x *Expr) Unit() quantity.Unit {
	return x.unit
}

// Refs returns the references the expression reads.
func (x *Expr) Refs() []Ref {
	return slices.Clone(x.refs)
}

// Eval computes the value. ok is false when a reference is unbound.
func (x *Expr) Eval(env Env) (v quantity.Value, ok bool, err error) {
	res, err := x.root.eval(env)
	if err != nil {
		var ub errUnbound
		if errors.As(err, &ub) {
			return quantity.Value{}, false, nil
		}
		return quantity.Value{}, false, err
	}
	return quantity.New(res.num, x.unit), true, nil
}
