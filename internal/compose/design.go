package compose

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/port"
	"github.com/roach88/blockgen/internal/quantity"
	"github.com/roach88/blockgen/internal/registry"
)

// Derived is a computed composite quantity such as fout_max.
type Derived struct {
	Name  string
	Value quantity.Value
}

// Design is a validated, frozen composite. It has no mutators; concurrent
// readers need no locking.
type Design struct {
	name        string
	kind        string
	self        *registry.Instance
	instances   []*registry.Instance
	connections []port.Connection
	derived     []Derived
	fingerprint string
}

func freeze(name string, kind *registry.Kind, self *registry.Instance, instances []*registry.Instance,
	conns []port.Connection, derived []Derived) (*Design, error) {
	d := &Design{
		name:        name,
		kind:        kind.Name(),
		self:        self,
		instances:   slices.Clone(instances),
		connections: slices.Clone(conns),
		derived:     slices.Clone(derived),
	}
	fp, err := ir.DesignFingerprint(d.ToIR())
	if err != nil {
		return nil, err
	}
	d.fingerprint = fp
	return d, nil
}

// Name returns the design name.
func (d *Design) Name() string { return d.name }

// Kind returns the composite kind name.
func (d *Design) Kind() string { return d.kind }

// Fingerprint returns the content hash of the design's canonical form.
func (d *Design) Fingerprint() string { return d.fingerprint }

// Params returns the composite's own bound parameters.
func (d *Design) Params() []quantity.Parameter { return d.self.Params() }

// Instances returns sub-instances in insertion order.
func (d *Design) Instances() []*registry.Instance { return slices.Clone(d.instances) }

// Instance looks up a sub-instance by name.
func (d *Design) Instance(name string) (*registry.Instance, bool) {
	i := slices.IndexFunc(d.instances, func(inst *registry.Instance) bool { return inst.Name() == name })
	if i < 0 {
		return nil, false
	}
	return d.instances[i], true
}

// Connections returns the wiring in connection order.
func (d *Design) Connections() []port.Connection { return slices.Clone(d.connections) }

// Derived returns computed quantities in declaration order.
func (d *Design) Derived() []Derived { return slices.Clone(d.derived) }

// DerivedValue looks up a computed quantity.
func (d *Design) DerivedValue(name string) (quantity.Value, bool) {
	for _, dv := range d.derived {
		if dv.Name == name {
			return dv.Value, true
		}
	}
	return quantity.Value{}, false
}

// ToIR returns the canonical object form. Instances are ordered by name and
// connections by endpoints, so the form does not depend on the order the
// design was assembled in.
func (d *Design) ToIR() ir.IRObject {
	insts := slices.Clone(d.instances)
	slices.SortFunc(insts, func(a, b *registry.Instance) int { return cmp.Compare(a.Name(), b.Name()) })
	instArr := make(ir.IRArray, len(insts))
	for i, inst := range insts {
		instArr[i] = inst.ToIR()
	}

	conns := slices.Clone(d.connections)
	slices.SortFunc(conns, func(a, b port.Connection) int {
		return cmp.Or(
			cmp.Compare(a.From.String(), b.From.String()),
			cmp.Compare(a.To.String(), b.To.String()),
		)
	})
	connArr := make(ir.IRArray, len(conns))
	for i, c := range conns {
		connArr[i] = ir.IRObject{
			"from":  ir.IRString(c.From.String()),
			"to":    ir.IRString(c.To.String()),
			"width": ir.IRInt(c.Width),
		}
	}

	derived := make(ir.IRObject, len(d.derived))
	for _, dv := range d.derived {
		derived[dv.Name] = ir.IRObject{
			"value": ir.IRString(dv.Value.Canonical()),
			"unit":  ir.IRString(dv.Value.Unit()),
		}
	}

	self := d.self.ToIR()
	return ir.IRObject{
		"ir_version":  ir.IRString(ir.IRVersion),
		"name":        ir.IRString(d.name),
		"kind":        ir.IRString(d.kind),
		"params":      self["params"],
		"instances":   instArr,
		"connections": connArr,
		"derived":     derived,
	}
}

// Result is the outcome of Finalize.
type Result struct {
	Name   string
	State  State
	Design *Design
	Report ir.Report
}

// Err returns nil for a validated design and a *ir.ViolationError
// otherwise.
func (r *Result) Err() error {
	if r.State == Validated {
		return nil
	}
	return &ir.ViolationError{Design: r.Name, Report: r.Report}
}

// ToIR returns the canonical object form used for reports and goldens.
func (r *Result) ToIR() ir.IRObject {
	obj := ir.IRObject{
		"name":   ir.IRString(r.Name),
		"state":  ir.IRString(r.State.String()),
		"report": r.Report.ToIR(),
	}
	if r.Design != nil {
		obj["fingerprint"] = ir.IRString(r.Design.Fingerprint())
		derived := make(ir.IRObject, len(r.Design.derived))
		for _, dv := range r.Design.derived {
			derived[dv.Name] = ir.IRString(dv.Value.String())
		}
		obj["derived"] = derived
		obj["connections"] = ir.IRInt(len(r.Design.connections))
	}
	return obj
}

// Summary is a one-line description for logs and CLI output.
func (r *Result) Summary() string {
	if r.State == Validated {
		return r.Name + ": validated (" + strconv.Itoa(len(r.Design.connections)) + " connections)"
	}
	return r.Name + ": rejected (" + strconv.Itoa(len(r.Report.Violations)) + " violations)"
}
