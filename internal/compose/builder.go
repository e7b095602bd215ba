package compose

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/blockgen/internal/constraint"
	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/port"
	"github.com/roach88/blockgen/internal/quantity"
	"github.com/roach88/blockgen/internal/registry"
)

// Builder assembles one composite design.
//
// Lifecycle: NewBuilder (Empty) -> Begin (Assembling) -> AddInstance /
// Connect / WireCanonical -> Finalize (Validated or Rejected). Mutations
// outside Assembling fail with InvalidState. Finalize is idempotent once
// terminal.
//
// A Builder is single-threaded; build concurrent designs with separate
// builders.
type Builder struct {
	reg    *registry.Registry
	kind   *registry.Kind
	name   string
	logger *slog.Logger
	engine *constraint.Engine

	state     State
	self      *registry.Instance
	instances []*registry.Instance
	byName    map[string]*registry.Instance
	wiring    *port.Wiring
	result    *Result
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger for state transitions and evaluation.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder starts an empty design of a composite kind.
func NewBuilder(reg *registry.Registry, kind, name string, opts ...Option) (*Builder, error) {
	k, ok := reg.Kind(kind)
	if !ok {
		return nil, ir.Errorf(ir.ErrCodeUnknownKind, "unknown kind %q", kind).WithKind(kind)
	}
	if !k.IsComposite() {
		return nil, ir.Errorf(ir.ErrCodeInvalidKind, "kind %s is not a composite", kind).WithKind(kind)
	}
	b := &Builder{
		reg:    reg,
		kind:   k,
		name:   name,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		byName: make(map[string]*registry.Instance),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("design", name, "kind", kind)
	b.engine = constraint.NewEngine(b.logger)
	return b, nil
}

// State returns the current lifecycle state.
func (b *Builder) State() State { return b.state }

// Name returns the design name.
func (b *Builder) Name() string { return b.name }

// Kind returns the composite kind.
func (b *Builder) Kind() *registry.Kind { return b.kind }

func (b *Builder) transition(to State) {
	b.logger.Info("design state changed", "from", b.state, "to", to)
	b.state = to
}

func (b *Builder) require(op string, want State) error {
	if b.state != want {
		return ir.Errorf(ir.ErrCodeInvalidState, "%s needs state %s, builder is %s", op, want, b.state).
			WithKind(b.kind.Name())
	}
	return nil
}

// Begin binds the composite's own parameters and opens the design for
// assembly.
func (b *Builder) Begin(params map[string]string) error {
	if err := b.require("begin", Empty); err != nil {
		return err
	}
	self, err := b.reg.Instantiate(b.kind.Name(), b.name, params)
	if err != nil {
		return err
	}
	b.self = self
	b.wiring = port.NewWiring(b.kind.Ports())
	b.transition(Assembling)
	return nil
}

// AddInstance instantiates a sub-block. When the composite declares roles,
// name must be one of them and kind must match the role's kind.
func (b *Builder) AddInstance(kind, name string, values map[string]string) (*registry.Instance, error) {
	if err := b.require("add instance", Assembling); err != nil {
		return nil, err
	}
	if roles := b.kind.Roles(); len(roles) > 0 {
		role, ok := b.kind.Role(name)
		if !ok {
			return nil, ir.Errorf(ir.ErrCodeTopologyViolation, "%s has no role %q", b.kind.Name(), name).
				WithKind(kind).WithInstance(name)
		}
		if role.Kind != kind {
			return nil, ir.Errorf(ir.ErrCodeTopologyViolation, "role %q holds a %s, not a %s", name, role.Kind, kind).
				WithKind(kind).WithInstance(name)
		}
	}
	if _, dup := b.byName[name]; dup {
		return nil, ir.Errorf(ir.ErrCodeDuplicateInstance, "instance %q already added", name).
			WithKind(kind).WithInstance(name)
	}
	inst, err := b.reg.Instantiate(kind, name, values)
	if err != nil {
		return nil, err
	}
	if err := b.wiring.AddInstance(name, inst.Kind().Ports()); err != nil {
		return nil, err
	}
	b.instances = append(b.instances, inst)
	b.byName[name] = inst
	b.logger.Debug("instance added", "instance", name, "instance_kind", kind)
	return inst, nil
}

// Connect wires from -> to, given in endpoint syntax ("vco.out",
// "driver.pu_ctl[3]", "ref").
func (b *Builder) Connect(from, to string) (port.Connection, error) {
	if err := b.require("connect", Assembling); err != nil {
		return port.Connection{}, err
	}
	src, err := port.ParseEndpoint(from)
	if err != nil {
		return port.Connection{}, err
	}
	dst, err := port.ParseEndpoint(to)
	if err != nil {
		return port.Connection{}, err
	}
	return b.ConnectEndpoints(src, dst)
}

// ConnectEndpoints wires from -> to. Composites with a fixed topology accept
// only the declared edges.
func (b *Builder) ConnectEndpoints(from, to port.Endpoint) (port.Connection, error) {
	if err := b.require("connect", Assembling); err != nil {
		return port.Connection{}, err
	}
	if b.kind.HasTopology() && !b.kind.Permits(from, to) {
		return port.Connection{}, ir.Errorf(ir.ErrCodeTopologyViolation,
			"%s -> %s is not part of the %s topology", from, to, b.kind.Name()).
			WithKind(b.kind.Name()).WithPort(from.String())
	}
	c, err := b.wiring.Connect(from, to)
	if err != nil {
		return port.Connection{}, err
	}
	b.logger.Debug("connected", "from", from.String(), "to", to.String(), "width", c.Width)
	return c, nil
}

// WireCanonical connects every topology edge not yet present, in
// declaration order. All roles must have been added.
func (b *Builder) WireCanonical() error {
	if err := b.require("wire canonical", Assembling); err != nil {
		return err
	}
	if !b.kind.HasTopology() {
		return ir.Errorf(ir.ErrCodeInvalidKind, "%s declares no topology", b.kind.Name()).WithKind(b.kind.Name())
	}
	for _, e := range b.kind.Topology() {
		if b.wiring.Has(e.From, e.To) {
			continue
		}
		if _, err := b.ConnectEndpoints(e.From, e.To); err != nil {
			return fmt.Errorf("canonical edge %s: %w", e, err)
		}
	}
	return nil
}

// Finalize validates the design. Zero violations yield Validated and a
// frozen Design; otherwise the builder is Rejected and the partial graph is
// dropped. Once terminal, Finalize returns the cached result without
// re-running validation.
func (b *Builder) Finalize() (*Result, error) {
	if b.result != nil {
		return b.result, nil
	}
	if err := b.require("finalize", Assembling); err != nil {
		return nil, err
	}

	var report ir.Report
	b.checkStructure(&report)

	derived := b.derive(&report)

	values := b.self.Values()
	for _, d := range derived {
		values[d.Name] = d.Value
	}
	roles := make(map[string]string, len(b.instances))
	if len(b.kind.Roles()) > 0 {
		for _, inst := range b.instances {
			roles[inst.Name()] = inst.Name()
		}
	}
	subjects := make([]constraint.Subject, len(b.instances))
	for i, inst := range b.instances {
		subjects[i] = constraint.Subject{
			Instance:    inst.Name(),
			Kind:        inst.Kind().Name(),
			Constraints: inst.Kind().Constraints(),
			Values:      inst.Values(),
		}
	}
	eval := b.engine.Evaluate(subjects, &constraint.Composite{
		Name:         b.name,
		Constraints:  b.kind.Constraints(),
		Values:       values,
		Roles:        roles,
		DerivedRoles: b.kind.DerivedRoles(),
		Connected:    b.wiring.Connected,
	})
	report.Violations = append(report.Violations, eval.Violations...)
	report.Skipped = append(report.Skipped, eval.Skipped...)

	res := &Result{Name: b.name, Report: report}
	if report.OK() {
		design, err := freeze(b.name, b.kind, b.self, b.instances, b.wiring.Connections(), derived)
		if err != nil {
			return nil, err
		}
		res.State = Validated
		res.Design = design
		b.logger.Info("design validated", "fingerprint", design.Fingerprint(), "skipped", len(report.Skipped))
	} else {
		res.State = Rejected
		b.logger.Info("design rejected", "violations", len(report.Violations), "constraints", report.Names())
	}

	// The graph is never retained for further mutation; a Validated
	// design owns its own copies.
	b.instances = nil
	b.byName = nil
	b.wiring = nil
	b.transition(res.State)
	b.result = res
	return res, nil
}

// checkStructure reports missing roles and missing topology edges.
func (b *Builder) checkStructure(report *ir.Report) {
	for _, role := range b.kind.Roles() {
		if _, ok := b.byName[role.Name]; ok {
			continue
		}
		report.Add(ir.Violation{
			Constraint: "role_present",
			Pass:       ir.PassStructure,
			Instances:  []string{role.Name},
			Expected:   fmt.Sprintf("%s instance %q", role.Kind, role.Name),
			Actual:     "missing",
			Message:    fmt.Sprintf("%s: role %s is not filled", b.name, role.Name),
		})
	}
	for _, e := range b.kind.Topology() {
		if b.wiring.Has(e.From, e.To) {
			continue
		}
		var instances []string
		for _, ep := range []port.Endpoint{e.From, e.To} {
			if !ep.IsBoundary() {
				instances = append(instances, ep.Instance)
			}
		}
		report.Add(ir.Violation{
			Constraint: "edge_present",
			Pass:       ir.PassStructure,
			Instances:  instances,
			Expected:   e.String(),
			Actual:     "unconnected",
			Message:    fmt.Sprintf("%s: topology edge %s is not wired", b.name, e),
		})
	}
}

// derive computes the composite's derived values in declaration order.
// Values whose inputs are unbound are left out and recorded as skipped.
func (b *Builder) derive(report *ir.Report) []Derived {
	own := b.self.Values()
	var out []Derived
	env := func(r constraint.Ref) (quantity.Value, bool) {
		if r.Role == "" {
			v, ok := own[r.Param]
			return v, ok
		}
		inst, ok := b.byName[r.Role]
		if !ok {
			return quantity.Value{}, false
		}
		p, ok := inst.Param(r.Param)
		return p.Value, ok
	}
	for _, x := range b.kind.Derived() {
		v, ok, err := x.Eval(env)
		if err != nil {
			report.Add(ir.Violation{
				Constraint: x.Name,
				Pass:       ir.PassCross,
				Instances:  b.kind.DerivedRoles()[x.Name],
				Expected:   x.Source,
				Actual:     err.Error(),
				Message:    fmt.Sprintf("%s: derived value %s cannot be computed", b.name, x.Name),
			})
			continue
		}
		if !ok {
			report.Skip(ir.Skip{Constraint: x.Name, Reason: "inputs unbound"})
			continue
		}
		own[x.Name] = v
		out = append(out, Derived{Name: x.Name, Value: v})
	}
	return out
}
