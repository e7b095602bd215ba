package registry

import (
	"slices"

	"github.com/roach88/blockgen/internal/constraint"
	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/port"
	"github.com/roach88/blockgen/internal/quantity"
)

// ParamShape is a compiled parameter declaration.
type ParamShape struct {
	Name        string
	Unit        quantity.Unit
	Range       quantity.Range
	Optional    bool
	Default     *quantity.Parameter
	Description string
}

// Edge is one permitted connection of a composite's fixed topology.
type Edge struct {
	From port.Endpoint
	To   port.Endpoint
}

func (e Edge) String() string {
	return e.From.String() + " -> " + e.To.String()
}

// Kind is a registered block kind. Kinds are immutable; ApplyRangeTable
// replaces them rather than editing in place.
type Kind struct {
	spec        ir.KindSpec
	hash        string
	ports       *port.Bundle
	params      []ParamShape
	constraints []*constraint.Constraint
	derived     []*constraint.Expr
	derivedDeps map[string][]string
	topology    []Edge
}

// Name returns the kind name.
func (k *Kind) Name() string { return k.spec.Name }

// Spec returns a copy of the declaration the kind was built from, with any
// range-table overrides applied.
func (k *Kind) Spec() ir.KindSpec { return k.spec.Clone() }

// Hash returns the content hash of the declaration.
func (k *Kind) Hash() string { return k.hash }

// Ports returns the kind's port bundle.
func (k *Kind) Ports() *port.Bundle { return k.ports }

// IsComposite reports whether the kind assembles sub-instances.
func (k *Kind) IsComposite() bool { return k.spec.IsComposite() }

// Params returns parameter shapes in declaration order.
func (k *Kind) Params() []ParamShape { return slices.Clone(k.params) }

// Param returns the named parameter shape.
func (k *Kind) Param(name string) (ParamShape, bool) {
	i := slices.IndexFunc(k.params, func(p ParamShape) bool { return p.Name == name })
	if i < 0 {
		return ParamShape{}, false
	}
	return k.params[i], true
}

// Constraints returns compiled constraints in declaration order.
func (k *Kind) Constraints() []*constraint.Constraint { return slices.Clone(k.constraints) }

// Derived returns compiled derived quantities in declaration order.
func (k *Kind) Derived() []*constraint.Expr { return slices.Clone(k.derived) }

// DerivedRoles maps each derived value to the roles it is computed from,
// following references through earlier derived values.
func (k *Kind) DerivedRoles() map[string][]string {
	out := make(map[string][]string, len(k.derivedDeps))
	for name, roles := range k.derivedDeps {
		out[name] = slices.Clone(roles)
	}
	return out
}

// Roles returns the composite's sub-instance slots in declaration order.
func (k *Kind) Roles() []ir.RoleSpec { return slices.Clone(k.spec.Roles) }

// Role returns the named role.
func (k *Kind) Role(name string) (ir.RoleSpec, bool) { return k.spec.Role(name) }

// Topology returns the fixed edge set. Empty means free wiring.
func (k *Kind) Topology() []Edge { return slices.Clone(k.topology) }

// HasTopology reports whether the composite restricts its wiring.
func (k *Kind) HasTopology() bool { return len(k.topology) > 0 }

// Permits reports whether from -> to is one of the topology edges.
func (k *Kind) Permits(from, to port.Endpoint) bool {
	return slices.Contains(k.topology, Edge{From: from, To: to})
}

// build compiles spec. lookup resolves role kinds, which must already be
// registered.
func build(spec ir.KindSpec, lookup func(string) (*Kind, bool)) (*Kind, error) {
	if !validName(spec.Name) {
		return nil, ir.Errorf(ir.ErrCodeInvalidKind, "invalid kind name %q", spec.Name)
	}
	k := &Kind{spec: spec.Clone()}
	fail := func(err error) (*Kind, error) {
		if e, ok := ir.AsError(err); ok && e.BlockKind == "" {
			e.WithKind(spec.Name)
		}
		return nil, err
	}

	ports, err := port.FromSpecs(spec.Ports)
	if err != nil {
		return fail(err)
	}
	k.ports = ports

	scope := constraint.Scope{}
	for _, ps := range spec.Params {
		if _, dup := scope[constraint.Ref{Param: ps.Name}]; dup {
			return fail(ir.Errorf(ir.ErrCodeDuplicateParameter, "parameter %q declared twice", ps.Name).WithParameter(ps.Name))
		}
		shape, err := compileParam(ps)
		if err != nil {
			return fail(err)
		}
		k.params = append(k.params, shape)
		scope.Own(shape.Name, shape.Unit)
	}

	if spec.IsComposite() {
		if err := k.compileComposite(scope, lookup); err != nil {
			return fail(err)
		}
	} else if len(spec.Derived) > 0 || len(spec.Topology) > 0 {
		return fail(ir.Errorf(ir.ErrCodeInvalidKind, "only composite kinds declare derived values or topology"))
	}

	seen := make(map[string]bool, len(spec.Constraints))
	for _, cs := range spec.Constraints {
		if seen[cs.Name] {
			return fail(ir.Errorf(ir.ErrCodeMalformedConstraint, "constraint %q declared twice", cs.Name).
				WithDetail("constraint", cs.Name))
		}
		seen[cs.Name] = true
		c, err := constraint.Compile(cs, scope)
		if err != nil {
			return fail(err)
		}
		k.constraints = append(k.constraints, c)
	}

	if k.hash, err = ir.KindHash(k.spec); err != nil {
		return fail(err)
	}
	return k, nil
}

func compileParam(ps ir.ParamSpec) (ParamShape, error) {
	if !validName(ps.Name) {
		return ParamShape{}, ir.Errorf(ir.ErrCodeInvalidKind, "invalid parameter name %q", ps.Name)
	}
	unit, err := quantity.ParseUnit(ps.Unit)
	if err != nil {
		if e, ok := ir.AsError(err); ok {
			e.WithParameter(ps.Name)
		}
		return ParamShape{}, err
	}
	rng, err := quantity.ParseRange(ps.Range, unit)
	if err != nil {
		if e, ok := ir.AsError(err); ok {
			e.WithParameter(ps.Name)
		}
		return ParamShape{}, err
	}
	shape := ParamShape{
		Name:        ps.Name,
		Unit:        unit,
		Range:       rng,
		Optional:    ps.Optional,
		Description: ps.Description,
	}
	if ps.Default != "" {
		def, err := quantity.ParseParameter(ps.Name, ps.Default, rng)
		if err != nil {
			return ParamShape{}, ir.Errorf(ir.ErrCodeInvalidValue, "default %q: %v", ps.Default, err).
				WithParameter(ps.Name)
		}
		shape.Default = &def
	}
	return shape, nil
}

func (k *Kind) compileComposite(scope constraint.Scope, lookup func(string) (*Kind, bool)) error {
	wiring := port.NewWiring(k.ports)
	for _, role := range k.spec.Roles {
		sub, ok := lookup(role.Kind)
		if !ok {
			return ir.Errorf(ir.ErrCodeUnknownKind, "role %q needs kind %q, which is not registered", role.Name, role.Kind).
				WithDetail("role", role.Name)
		}
		if err := wiring.AddInstance(role.Name, sub.ports); err != nil {
			return ir.Errorf(ir.ErrCodeInvalidKind, "role %q: %v", role.Name, err)
		}
		for _, p := range sub.params {
			scope.Role(role.Name, p.Name, p.Unit)
		}
	}

	k.derivedDeps = make(map[string][]string, len(k.spec.Derived))
	for _, ds := range k.spec.Derived {
		if _, dup := scope[constraint.Ref{Param: ds.Name}]; dup {
			return ir.Errorf(ir.ErrCodeDuplicateParameter, "derived %q shadows a parameter", ds.Name).WithParameter(ds.Name)
		}
		x, err := constraint.CompileExpr(ds, scope)
		if err != nil {
			return err
		}
		k.derived = append(k.derived, x)
		k.derivedDeps[ds.Name] = k.rolesOf(x.Refs())
		scope.Own(ds.Name, x.Unit())
	}

	// Edges are replayed on a scratch wiring so that direction, width and
	// double-drive errors in the declaration surface at registration.
	for _, es := range k.spec.Topology {
		from, err := port.ParseEndpoint(es.From)
		if err != nil {
			return ir.Errorf(ir.ErrCodeInvalidKind, "topology edge %s -> %s: %v", es.From, es.To, err)
		}
		to, err := port.ParseEndpoint(es.To)
		if err != nil {
			return ir.Errorf(ir.ErrCodeInvalidKind, "topology edge %s -> %s: %v", es.From, es.To, err)
		}
		if _, err := wiring.Connect(from, to); err != nil {
			e := ir.Errorf(ir.ErrCodeInvalidKind, "topology edge %s -> %s: %v", es.From, es.To, err)
			if cause, ok := ir.AsError(err); ok {
				e.WithDetail("cause", string(cause.Code))
			}
			return e
		}
		k.topology = append(k.topology, Edge{From: from, To: to})
	}
	return nil
}

func (k *Kind) rolesOf(refs []constraint.Ref) []string {
	var roles []string
	add := func(role string) {
		if !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}
	for _, r := range refs {
		if r.Role != "" {
			add(r.Role)
			continue
		}
		for _, role := range k.derivedDeps[r.Param] {
			add(role)
		}
	}
	return roles
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
