package constraint

import (
	"slices"

	"github.com/roach88/blockgen/internal/quantity"
)

// Ref names a parameter a rule reads. Role is empty for the rule owner's own
// parameters (a kind's params, or a composite's params and derived values);
// otherwise it names a composite role and Param is a parameter of that role's
// kind.
type Ref struct {
	Role  string
	Param string
}

func (r Ref) String() string {
	if r.Role == "" {
		return r.Param
	}
	return r.Role + "." + r.Param
}

// Scope declares the references a rule may use and their units.
type Scope map[Ref]quantity.Unit

// Own declares one of the owner's parameters.
func (s Scope) Own(param string, unit quantity.Unit) {
	s[Ref{Param: param}] = unit
}

// Role declares a parameter reachable as role.param.
func (s Scope) Role(role, param string, unit quantity.Unit) {
	s[Ref{Role: role, Param: param}] = unit
}

// Env resolves a reference to its bound value. ok is false for an unbound
// optional parameter or an unassigned role.
type Env func(Ref) (v quantity.Value, ok bool)

// Values is a parameter binding keyed by name.
type Values map[string]quantity.Value

// Names returns the bound names in sorted order.
func (v Values) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Env resolves own references against v.
func (v Values) Env() Env {
	return func(r Ref) (quantity.Value, bool) {
		if r.Role != "" {
			return quantity.Value{}, false
		}
		val, ok := v[r.Param]
		return val, ok
	}
}
