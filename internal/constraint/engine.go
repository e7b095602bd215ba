package constraint

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/quantity"
)

// Subject is one block instance under evaluation.
type Subject struct {
	Instance    string
	Kind        string
	Constraints []*Constraint
	Values      Values
}

// Composite carries the cross-block side of an evaluation: the composite's
// own bound values (params and derived), its constraints, which instance
// fills each role, and the wiring graph.
type Composite struct {
	Name        string
	Constraints []*Constraint
	Values      Values
	Roles       map[string]string

	// DerivedRoles lists, per derived value, the roles it is computed
	// from. A constraint reading a derived value involves those roles too.
	DerivedRoles map[string][]string

	// Connected reports whether instances share a component of the wiring
	// graph. Nil means no wiring information, so nothing is connected.
	Connected func(instances ...string) bool
}

// Engine runs the two evaluation passes.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an engine. A nil logger discards output.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{logger: logger}
}

// Evaluate checks every constraint and reports every violation.
//
// Pass 1 runs each subject's kind constraints, subjects in the given order
// and constraints in declaration order. Pass 2 runs the composite's
// constraints in declaration order, and only over subjects that passed pass 1
// and are connected in the wiring graph. Violations never stop evaluation.
func (e *Engine) Evaluate(subjects []Subject, comp *Composite) ir.Report {
	var report ir.Report
	failed := make(map[string]bool)

	for _, s := range subjects {
		env := s.Values.Env()
		for _, c := range s.Constraints {
			out := c.Check(env)
			switch out.Status {
			case Fail:
				failed[s.Instance] = true
				report.Add(ir.Violation{
					Constraint: c.Name,
					Pass:       ir.PassLocal,
					Instances:  []string{s.Instance},
					Parameters: refNames(c.refs),
					Expected:   out.Expected,
					Actual:     out.Actual,
					Message:    message(c, s.Instance),
				})
			case Skipped:
				report.Skip(ir.Skip{
					Constraint: c.Name,
					Instances:  []string{s.Instance},
					Reason:     "unbound " + strings.Join(refNames(out.Missing), ", "),
				})
			}
			e.logger.Debug("constraint checked",
				"pass", ir.PassLocal, "instance", s.Instance, "constraint", c.Name, "status", out.Status)
		}
	}

	if comp == nil {
		return report
	}

	byInstance := make(map[string]Values, len(subjects))
	for _, s := range subjects {
		byInstance[s.Instance] = s.Values
	}
	env := func(r Ref) (quantity.Value, bool) {
		if r.Role == "" {
			v, ok := comp.Values[r.Param]
			return v, ok
		}
		inst, ok := comp.Roles[r.Role]
		if !ok {
			return quantity.Value{}, false
		}
		v, ok := byInstance[inst][r.Param]
		return v, ok
	}

	for _, c := range comp.Constraints {
		participants, unassigned := e.participants(c, comp)
		if len(unassigned) > 0 {
			report.Skip(ir.Skip{
				Constraint: c.Name,
				Instances:  participants,
				Reason:     "unassigned role " + strings.Join(unassigned, ", "),
			})
			continue
		}
		if bad := failedAmong(participants, failed); len(bad) > 0 {
			report.Skip(ir.Skip{
				Constraint: c.Name,
				Instances:  participants,
				Reason:     "local constraints failed on " + strings.Join(bad, ", "),
			})
			continue
		}
		if len(participants) > 1 && (comp.Connected == nil || !comp.Connected(participants...)) {
			report.Add(ir.Violation{
				Constraint: c.Name,
				Pass:       ir.PassCross,
				Instances:  participants,
				Parameters: refNames(c.refs),
				Expected:   "instances connected",
				Actual:     "no wiring path between " + strings.Join(participants, ", "),
				Message:    fmt.Sprintf("%s relates instances that are not wired together", c.Name),
			})
			continue
		}

		out := c.Check(env)
		switch out.Status {
		case Fail:
			report.Add(ir.Violation{
				Constraint: c.Name,
				Pass:       ir.PassCross,
				Instances:  participants,
				Parameters: refNames(c.refs),
				Expected:   out.Expected,
				Actual:     out.Actual,
				Message:    message(c, comp.Name),
			})
		case Skipped:
			report.Skip(ir.Skip{
				Constraint: c.Name,
				Instances:  participants,
				Reason:     "unbound " + strings.Join(refNames(out.Missing), ", "),
			})
		}
		e.logger.Debug("constraint checked",
			"pass", ir.PassCross, "composite", comp.Name, "constraint", c.Name, "status", out.Status)
	}
	return report
}

// participants maps the rule's roles to instances, in role order of first
// reference. Derived values expand to the roles they are computed from.
func (e *Engine) participants(c *Constraint, comp *Composite) (instances, unassigned []string) {
	var roles []string
	add := func(role string) {
		if !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}
	for _, r := range c.refs {
		if r.Role != "" {
			add(r.Role)
			continue
		}
		for _, role := range comp.DerivedRoles[r.Param] {
			add(role)
		}
	}
	for _, role := range roles {
		inst, ok := comp.Roles[role]
		if !ok {
			unassigned = append(unassigned, role)
			continue
		}
		instances = append(instances, inst)
	}
	return instances, unassigned
}

func failedAmong(instances []string, failed map[string]bool) []string {
	var out []string
	for _, inst := range instances {
		if failed[inst] {
			out = append(out, inst)
		}
	}
	return out
}

func refNames(refs []Ref) []string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.String()
	}
	return names
}

func message(c *Constraint, subject string) string {
	if c.Description != "" {
		return fmt.Sprintf("%s: %s", subject, c.Description)
	}
	return fmt.Sprintf("%s: %s does not hold", subject, c.Rule)
}
