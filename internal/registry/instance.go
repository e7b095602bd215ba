package registry

import (
	"github.com/roach88/blockgen/internal/constraint"
	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/quantity"
)

// Instance is an immutable binding of values to a kind's parameters.
type Instance struct {
	name   string
	kind   *Kind
	params map[string]quantity.Parameter
}

// Name returns the instance name.
func (i *Instance) Name() string { return i.name }

// Kind returns the instance's kind.
func (i *Instance) Kind() *Kind { return i.kind }

// Param returns a bound parameter. ok is false for an unbound optional.
func (i *Instance) Param(name string) (quantity.Parameter, bool) {
	p, ok := i.params[name]
	return p, ok
}

// Params returns bound parameters in declaration order.
func (i *Instance) Params() []quantity.Parameter {
	out := make([]quantity.Parameter, 0, len(i.params))
	for _, shape := range i.kind.params {
		if p, ok := i.params[shape.Name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Values returns the bound values keyed by parameter name.
func (i *Instance) Values() constraint.Values {
	v := make(constraint.Values, len(i.params))
	for name, p := range i.params {
		v[name] = p.Value
	}
	return v
}

// ToIR returns the instance's canonical object form. Values are canonical
// decimal strings with their unit alongside.
func (i *Instance) ToIR() ir.IRObject {
	params := make(ir.IRObject, len(i.params))
	for name, p := range i.params {
		params[name] = ir.IRObject{
			"value": ir.IRString(p.Value.Canonical()),
			"unit":  ir.IRString(p.Value.Unit()),
		}
	}
	return ir.IRObject{
		"name":   ir.IRString(i.name),
		"kind":   ir.IRString(i.kind.Name()),
		"params": params,
	}
}
