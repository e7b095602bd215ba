package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/blockgen/internal/ir"
)

// CompileKind parses a CUE value into a KindSpec.
//
// The CUE value should be the kind struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`kind: Vco: { port: ..., param: ... }`)
//	spec, err := CompileKind(v.LookupPath(cue.ParsePath("kind.Vco")))
//
// Ports, parameters, roles, derived values and constraints keep their CUE
// declaration order.
func CompileKind(v cue.Value) (*ir.KindSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.KindSpec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	var err error
	if spec.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}

	if c := v.LookupPath(cue.ParsePath("composite")); c.Exists() {
		if spec.Composite, err = c.Bool(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	if spec.Ports, err = parsePorts(v); err != nil {
		return nil, err
	}
	if spec.Params, err = parseParams(v); err != nil {
		return nil, err
	}
	if spec.Roles, err = parseRoles(v); err != nil {
		return nil, err
	}
	if spec.Derived, err = parseDerived(v); err != nil {
		return nil, err
	}
	if spec.Topology, err = parseTopology(v); err != nil {
		return nil, err
	}
	if spec.Constraints, err = parseConstraints(v); err != nil {
		return nil, err
	}

	if len(spec.Ports) == 0 {
		return nil, &CompileError{
			Field:   "port",
			Message: "at least one port is required",
			Pos:     v.Pos(),
		}
	}

	return spec, nil
}

// CompileKinds compiles every field of a `kind` struct, in declaration
// order.
func CompileKinds(v cue.Value) ([]ir.KindSpec, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var specs []ir.KindSpec
	for iter.Next() {
		spec, err := CompileKind(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}

// parsePorts reads `port: name: {dir, width?, group?}`.
func parsePorts(v cue.Value) ([]ir.PortSpec, error) {
	var ports []ir.PortSpec
	err := eachField(v, "port", func(name string, pv cue.Value) error {
		p := ir.PortSpec{Name: name}
		dir, err := requiredString(pv, "dir", "port."+name+".dir")
		if err != nil {
			return err
		}
		p.Dir = dir
		if w := pv.LookupPath(cue.ParsePath("width")); w.Exists() {
			n, err := w.Int64()
			if err != nil {
				return formatCUEError(err)
			}
			p.Width = int(n)
		}
		if p.Group, err = optionalString(pv, "group"); err != nil {
			return err
		}
		ports = append(ports, p)
		return nil
	})
	return ports, err
}

// parseParams reads `param: name: {unit?, range?, optional?, default?,
// description?}`. A default may be a string ("10pF") or a CUE number.
func parseParams(v cue.Value) ([]ir.ParamSpec, error) {
	var params []ir.ParamSpec
	err := eachField(v, "param", func(name string, pv cue.Value) error {
		p := ir.ParamSpec{Name: name}
		var err error
		if p.Unit, err = optionalString(pv, "unit"); err != nil {
			return err
		}
		if p.Range, err = optionalString(pv, "range"); err != nil {
			return err
		}
		if p.Description, err = optionalString(pv, "description"); err != nil {
			return err
		}
		if o := pv.LookupPath(cue.ParsePath("optional")); o.Exists() {
			if p.Optional, err = o.Bool(); err != nil {
				return formatCUEError(err)
			}
		}
		if d := pv.LookupPath(cue.ParsePath("default")); d.Exists() {
			if p.Default, err = scalarText(d, "param."+name+".default"); err != nil {
				return err
			}
		}
		params = append(params, p)
		return nil
	})
	return params, err
}

// parseRoles reads `role: name: "Kind"`.
func parseRoles(v cue.Value) ([]ir.RoleSpec, error) {
	var roles []ir.RoleSpec
	err := eachField(v, "role", func(name string, rv cue.Value) error {
		kind, err := rv.String()
		if err != nil {
			return &CompileError{
				Field:   "role." + name,
				Message: "role must name a kind",
				Pos:     rv.Pos(),
			}
		}
		roles = append(roles, ir.RoleSpec{Name: name, Kind: kind})
		return nil
	})
	return roles, err
}

// parseDerived reads `derived: name: "expr"`.
func parseDerived(v cue.Value) ([]ir.DerivedSpec, error) {
	var derived []ir.DerivedSpec
	err := eachField(v, "derived", func(name string, dv cue.Value) error {
		expr, err := dv.String()
		if err != nil {
			return &CompileError{
				Field:   "derived." + name,
				Message: "derived value must be an expression string",
				Pos:     dv.Pos(),
			}
		}
		derived = append(derived, ir.DerivedSpec{Name: name, Expr: expr})
		return nil
	})
	return derived, err
}

// parseConstraints reads `constraint: name: "rule"` or
// `constraint: name: {rule, description?}`.
func parseConstraints(v cue.Value) ([]ir.ConstraintSpec, error) {
	var constraints []ir.ConstraintSpec
	err := eachField(v, "constraint", func(name string, cv cue.Value) error {
		c := ir.ConstraintSpec{Name: name}
		if rule, err := cv.String(); err == nil {
			c.Rule = rule
			constraints = append(constraints, c)
			return nil
		}
		rule, err := requiredString(cv, "rule", "constraint."+name+".rule")
		if err != nil {
			return err
		}
		c.Rule = rule
		if c.Description, err = optionalString(cv, "description"); err != nil {
			return err
		}
		constraints = append(constraints, c)
		return nil
	})
	return constraints, err
}

// parseTopology reads `topology: [...]` where each edge is either
// ["from", "to"] or {from: "...", to: "..."}.
func parseTopology(v cue.Value) ([]ir.EdgeSpec, error) {
	tv := v.LookupPath(cue.ParsePath("topology"))
	if !tv.Exists() {
		return nil, nil
	}
	iter, err := tv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var edges []ir.EdgeSpec
	for i := 0; iter.Next(); i++ {
		ev := iter.Value()
		field := fmt.Sprintf("topology[%d]", i)

		var pair []string
		if err := ev.Decode(&pair); err == nil {
			if len(pair) != 2 {
				return nil, &CompileError{Field: field, Message: "edge must be [from, to]", Pos: ev.Pos()}
			}
			edges = append(edges, ir.EdgeSpec{From: pair[0], To: pair[1]})
			continue
		}

		from, err := requiredString(ev, "from", field+".from")
		if err != nil {
			return nil, err
		}
		to, err := requiredString(ev, "to", field+".to")
		if err != nil {
			return nil, err
		}
		edges = append(edges, ir.EdgeSpec{From: from, To: to})
	}
	return edges, nil
}

func eachField(v cue.Value, path string, fn func(string, cue.Value) error) error {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return nil
	}
	iter, err := fv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func optionalString(v cue.Value, path string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return "", nil
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requiredString(v cue.Value, path, field string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return "", &CompileError{Field: field, Message: "field is required", Pos: v.Pos()}
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// scalarText renders a string or number exactly as written. Numbers go
// through CUE's decimal JSON encoding, never through float64.
func scalarText(v cue.Value, field string) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return "", formatCUEError(err)
		}
		return s, nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		b, err := v.MarshalJSON()
		if err != nil {
			return "", formatCUEError(err)
		}
		return strings.TrimSpace(string(b)), nil
	default:
		return "", &CompileError{
			Field:   field,
			Message: fmt.Sprintf("expected a string or number, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
