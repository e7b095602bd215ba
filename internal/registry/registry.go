package registry

import (
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/quantity"
)

// Registry holds the block kinds known to one caller. There is no process
// global; every design session, test or sweep point owns its own.
//
// A Registry is not safe for concurrent mutation. Once populated it may be
// read from several goroutines.
type Registry struct {
	kinds  map[string]*Kind
	order  []string
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for registration events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		kinds:  make(map[string]*Kind),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register compiles and adds a kind. Every problem with the declaration,
// including malformed constraint rules, is a SchemaError raised here and
// never later.
func (r *Registry) Register(spec ir.KindSpec) (*Kind, error) {
	if prev, dup := r.kinds[spec.Name]; dup {
		r.logger.Debug("duplicate kind registration", "kind", spec.Name, "hash", prev.hash)
		return nil, ir.Errorf(ir.ErrCodeDuplicateKind, "kind %q already registered", spec.Name).WithKind(spec.Name)
	}
	k, err := build(spec, r.Kind)
	if err != nil {
		return nil, err
	}
	r.kinds[k.Name()] = k
	r.order = append(r.order, k.Name())
	r.logger.Debug("kind registered",
		"kind", k.Name(),
		"composite", k.IsComposite(),
		"params", len(k.params),
		"constraints", len(k.constraints),
		"hash", k.hash)
	return k, nil
}

// MustRegister registers kinds known to be valid, panicking otherwise.
func (r *Registry) MustRegister(specs ...ir.KindSpec) {
	for _, s := range specs {
		if _, err := r.Register(s); err != nil {
			panic(err)
		}
	}
}

// Kind looks up a registered kind.
func (r *Registry) Kind(name string) (*Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Kinds returns registered kinds in registration order.
func (r *Registry) Kinds() []*Kind {
	out := make([]*Kind, len(r.order))
	for i, name := range r.order {
		out[i] = r.kinds[name]
	}
	return out
}

// Len returns the number of registered kinds.
func (r *Registry) Len() int { return len(r.order) }

// Instantiate binds values to a kind's parameters. Values are parameter
// text such as "4GHz" or "50u"; a bare number adopts the parameter's unit.
// Parameters not supplied take their default; optional parameters without
// a default stay unbound. Every parameter problem is reported, joined.
func (r *Registry) Instantiate(kind, name string, values map[string]string) (*Instance, error) {
	k, ok := r.kinds[kind]
	if !ok {
		return nil, ir.Errorf(ir.ErrCodeUnknownKind, "unknown kind %q", kind).WithKind(kind).WithInstance(name)
	}
	if !validName(name) {
		return nil, ir.Errorf(ir.ErrCodeInvalidValue, "invalid instance name %q", name).WithKind(kind)
	}

	var errs []*ir.Error
	note := func(err error) {
		e, ok := ir.AsError(err)
		if !ok {
			e = ir.Errorf(ir.ErrCodeInvalidValue, "%v", err)
		}
		errs = append(errs, e.WithKind(kind).WithInstance(name))
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if _, ok := k.Param(key); !ok {
			note(ir.Errorf(ir.ErrCodeUnknownParameter, "kind %s has no parameter %q", kind, key).WithParameter(key))
		}
	}

	inst := &Instance{name: name, kind: k, params: make(map[string]quantity.Parameter, len(k.params))}
	for _, shape := range k.params {
		text, supplied := values[shape.Name]
		switch {
		case supplied:
			p, err := quantity.ParseParameter(shape.Name, text, shape.Range)
			if err != nil {
				note(err)
				continue
			}
			inst.params[shape.Name] = p
		case shape.Default != nil:
			inst.params[shape.Name] = *shape.Default
		case !shape.Optional:
			note(ir.Errorf(ir.ErrCodeMissingParameter, "parameter %q is required", shape.Name).WithParameter(shape.Name))
		}
	}
	if err := ir.Join(errs); err != nil {
		return nil, err
	}
	return inst, nil
}

// ApplyRangeTable overrides declared ranges from a configuration table.
// The table is applied atomically: on any error no kind changes. Defaults
// must still lie within the new ranges.
func (r *Registry) ApplyRangeTable(table ir.RangeTable) error {
	var errs []*ir.Error
	note := func(err error) {
		if e, ok := ir.AsError(err); ok {
			errs = append(errs, e)
			return
		}
		errs = append(errs, ir.Errorf(ir.ErrCodeInvalidRange, "%v", err))
	}

	// Rebuilt kinds are staged so later composites resolve their role
	// kinds against the overridden ranges.
	staged := make(map[string]*Kind)
	lookup := func(name string) (*Kind, bool) {
		if k, ok := staged[name]; ok {
			return k, true
		}
		return r.Kind(name)
	}

	for _, kindName := range table.Kinds() {
		k, ok := r.kinds[kindName]
		if !ok {
			note(ir.Errorf(ir.ErrCodeUnknownKind, "range table names unknown kind %q", kindName).WithKind(kindName))
			continue
		}
		spec := k.Spec()
		overrides := table[kindName]
		for _, param := range overrides.Params() {
			i := slices.IndexFunc(spec.Params, func(p ir.ParamSpec) bool { return p.Name == param })
			if i < 0 {
				note(ir.Errorf(ir.ErrCodeUnknownParameter, "kind %s has no parameter %q", kindName, param).
					WithKind(kindName).WithParameter(param))
				continue
			}
			spec.Params[i].Range = overrides[param]
		}
		rebuilt, err := build(spec, lookup)
		if err != nil {
			note(err)
			continue
		}
		staged[kindName] = rebuilt
	}

	if err := ir.Join(errs); err != nil {
		return err
	}
	for name, k := range staged {
		r.kinds[name] = k
		r.logger.Debug("range table applied", "kind", name, "hash", k.hash)
	}
	return nil
}
