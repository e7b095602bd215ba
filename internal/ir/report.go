package ir

import (
	"errors"
	"fmt"
	"strings"
)

// Pass identifies which evaluation pass produced a report entry.
type Pass string

const (
	PassStructure Pass = "structure"
	PassLocal     Pass = "local"
	PassCross     Pass = "cross"
)

// Violation is one failed constraint.
type Violation struct {
	Constraint string   `json:"constraint"`
	Pass       Pass     `json:"pass"`
	Instances  []string `json:"instances"`
	Parameters []string `json:"parameters,omitempty"`
	Expected   string   `json:"expected,omitempty"`
	Actual     string   `json:"actual,omitempty"`
	Message    string   `json:"message"`
}

// Skip records a constraint that was not evaluated and why.
type Skip struct {
	Constraint string   `json:"constraint"`
	Instances  []string `json:"instances"`
	Reason     string   `json:"reason"`
}

// Report is the structured result of constraint evaluation.
// Violations appear in evaluation order: local constraints per instance in
// instance order, then cross-block constraints in declaration order.
type Report struct {
	Violations []Violation `json:"violations"`
	Skipped    []Skip      `json:"skipped,omitempty"`
}

// OK reports whether no constraint was violated.
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// Add appends a violation.
func (r *Report) Add(v Violation) {
	r.Violations = append(r.Violations, v)
}

// Skip appends a skip record.
func (r *Report) Skip(s Skip) {
	r.Skipped = append(r.Skipped, s)
}

// Names returns violated constraint names in report order.
func (r *Report) Names() []string {
	names := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		names[i] = v.Constraint
	}
	return names
}

// ToIR converts the report to its canonical object form.
func (r *Report) ToIR() IRObject {
	violations := make(IRArray, len(r.Violations))
	for i, v := range r.Violations {
		obj := IRObject{
			"constraint": IRString(v.Constraint),
			"pass":       IRString(v.Pass),
			"instances":  stringsToIR(v.Instances),
			"message":    IRString(v.Message),
		}
		if len(v.Parameters) > 0 {
			obj["parameters"] = stringsToIR(v.Parameters)
		}
		if v.Expected != "" {
			obj["expected"] = IRString(v.Expected)
		}
		if v.Actual != "" {
			obj["actual"] = IRString(v.Actual)
		}
		violations[i] = obj
	}
	skipped := make(IRArray, len(r.Skipped))
	for i, s := range r.Skipped {
		skipped[i] = IRObject{
			"constraint": IRString(s.Constraint),
			"instances":  stringsToIR(s.Instances),
			"reason":     IRString(s.Reason),
		}
	}
	return IRObject{
		"violations": violations,
		"skipped":    skipped,
	}
}

func stringsToIR(ss []string) IRArray {
	arr := make(IRArray, len(ss))
	for i, s := range ss {
		arr[i] = IRString(s)
	}
	return arr
}

// ViolationError wraps a failing report for callers that want an error.
type ViolationError struct {
	Design string
	Report Report
}

// Error implements the error interface.
func (e *ViolationError) Error() string {
	return fmt.Sprintf("CONSTRAINT_VIOLATION: design %q failed %d constraint(s): %s",
		e.Design, len(e.Report.Violations), strings.Join(e.Report.Names(), ", "))
}

// IsConstraintViolation reports whether err wraps a ViolationError.
func IsConstraintViolation(err error) bool {
	var ve *ViolationError
	return errors.As(err, &ve)
}
