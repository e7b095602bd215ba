package ir

import "slices"

// Port directions as written in kind declarations.
const (
	DirInput  = "input"
	DirOutput = "output"
	DirInOut  = "inout"
)

// KindSpec declares a block kind: its port bundle, parameter shape and
// kind-level constraints. Composite kinds additionally declare roles
// (sub-instance slots), derived quantities and an optional fixed topology.
type KindSpec struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Composite   bool             `json:"composite,omitempty" yaml:"composite,omitempty"`
	Ports       []PortSpec       `json:"ports" yaml:"ports"`
	Params      []ParamSpec      `json:"params" yaml:"params"`
	Roles       []RoleSpec       `json:"roles,omitempty" yaml:"roles,omitempty"`
	Topology    []EdgeSpec       `json:"topology,omitempty" yaml:"topology,omitempty"`
	Derived     []DerivedSpec    `json:"derived,omitempty" yaml:"derived,omitempty"`
	Constraints []ConstraintSpec `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// PortSpec declares one port. Width 0 is a single signal; Width N > 0 is an
// array of N signals. Group names a power domain or bundle the port belongs to.
type PortSpec struct {
	Name  string `json:"name" yaml:"name"`
	Dir   string `json:"dir" yaml:"dir"`
	Width int    `json:"width,omitempty" yaml:"width,omitempty"`
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
}

// ParamSpec declares one parameter.
//
// Range uses interval notation with per-bound open/closed flags:
// "[0.1, 0.25]", "(0, 20G]", "(-inf, inf)". An empty Range is unbounded.
// Optional parameters without a Default stay unbound when not supplied.
type ParamSpec struct {
	Name        string `json:"name" yaml:"name"`
	Unit        string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Range       string `json:"range,omitempty" yaml:"range,omitempty"`
	Optional    bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// RoleSpec names a sub-instance slot of a composite and the kind it holds.
type RoleSpec struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
}

// EdgeSpec is one permitted connection of a fixed topology, written as
// endpoints: "role.port", "role.port[i]" or a bare boundary port name.
type EdgeSpec struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// DerivedSpec declares a quantity computed from bound parameters once
// instances are assembled, e.g. fout_max = fref * divider.div_max.
type DerivedSpec struct {
	Name string `json:"name" yaml:"name"`
	Expr string `json:"expr" yaml:"expr"`
}

// ConstraintSpec is a named declarative predicate. Rule is an expression
// over parameter references; it must evaluate to a boolean.
type ConstraintSpec struct {
	Name        string `json:"name" yaml:"name"`
	Rule        string `json:"rule" yaml:"rule"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// IsComposite reports whether the kind assembles sub-instances.
func (k *KindSpec) IsComposite() bool {
	return k.Composite || len(k.Roles) > 0
}

// Port returns the named port declaration.
func (k *KindSpec) Port(name string) (PortSpec, bool) {
	i := slices.IndexFunc(k.Ports, func(p PortSpec) bool { return p.Name == name })
	if i < 0 {
		return PortSpec{}, false
	}
	return k.Ports[i], true
}

// Param returns the named parameter declaration.
func (k *KindSpec) Param(name string) (ParamSpec, bool) {
	i := slices.IndexFunc(k.Params, func(p ParamSpec) bool { return p.Name == name })
	if i < 0 {
		return ParamSpec{}, false
	}
	return k.Params[i], true
}

// Role returns the named role declaration.
func (k *KindSpec) Role(name string) (RoleSpec, bool) {
	i := slices.IndexFunc(k.Roles, func(r RoleSpec) bool { return r.Name == name })
	if i < 0 {
		return RoleSpec{}, false
	}
	return k.Roles[i], true
}

// Clone returns a deep copy so registries never share slices with callers.
func (k KindSpec) Clone() KindSpec {
	k.Ports = slices.Clone(k.Ports)
	k.Params = slices.Clone(k.Params)
	k.Roles = slices.Clone(k.Roles)
	k.Topology = slices.Clone(k.Topology)
	k.Derived = slices.Clone(k.Derived)
	k.Constraints = slices.Clone(k.Constraints)
	return k
}

// RangeTable maps a block kind name to parameter range overrides.
// This is the external configuration surface for electrical tables.
type RangeTable map[string]KindRanges

// KindRanges maps a parameter name to its range in interval notation.
type KindRanges map[string]string

// Kinds returns the table's kind names in sorted order.
func (t RangeTable) Kinds() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Params returns the parameter names in sorted order.
func (r KindRanges) Params() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Merge overlays other onto t; entries in other win.
func (t RangeTable) Merge(other RangeTable) RangeTable {
	out := make(RangeTable, len(t)+len(other))
	for _, tbl := range []RangeTable{t, other} {
		for kind, ranges := range tbl {
			if out[kind] == nil {
				out[kind] = make(KindRanges, len(ranges))
			}
			for param, r := range ranges {
				out[kind][param] = r
			}
		}
	}
	return out
}

// ToIR converts the declaration to its canonical object form.
func (k KindSpec) ToIR() IRObject {
	ports := make(IRArray, len(k.Ports))
	for i, p := range k.Ports {
		ports[i] = IRObject{
			"name":  IRString(p.Name),
			"dir":   IRString(p.Dir),
			"width": IRInt(p.Width),
			"group": IRString(p.Group),
		}
	}
	params := make(IRArray, len(k.Params))
	for i, p := range k.Params {
		params[i] = IRObject{
			"name":     IRString(p.Name),
			"unit":     IRString(p.Unit),
			"range":    IRString(p.Range),
			"optional": IRBool(p.Optional),
			"default":  IRString(p.Default),
		}
	}
	roles := make(IRArray, len(k.Roles))
	for i, r := range k.Roles {
		roles[i] = IRObject{"name": IRString(r.Name), "kind": IRString(r.Kind)}
	}
	edges := make(IRArray, len(k.Topology))
	for i, e := range k.Topology {
		edges[i] = IRObject{"from": IRString(e.From), "to": IRString(e.To)}
	}
	derived := make(IRArray, len(k.Derived))
	for i, d := range k.Derived {
		derived[i] = IRObject{"name": IRString(d.Name), "expr": IRString(d.Expr)}
	}
	constraints := make(IRArray, len(k.Constraints))
	for i, c := range k.Constraints {
		constraints[i] = IRObject{"name": IRString(c.Name), "rule": IRString(c.Rule)}
	}
	return IRObject{
		"name":        IRString(k.Name),
		"composite":   IRBool(k.Composite),
		"ports":       ports,
		"params":      params,
		"roles":       roles,
		"topology":    edges,
		"derived":     derived,
		"constraints": constraints,
	}
}
