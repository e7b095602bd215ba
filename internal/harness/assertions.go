package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/blockgen/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		if event.Error != "" {
			fmt.Fprintf(&buf, "  [%d] %s %s: %s\n", i+1, event.Op, event.Target, event.Error)
		} else {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", i+1, event.Op, event.Target)
		}
	}
	return buf.String()
}

// assertViolation checks that a violation of the named constraint matches
// every field the assertion sets.
func assertViolation(result *Result, a Assertion) error {
	var report ir.Report
	if result.Outcome != nil {
		report = result.Outcome.Report
	}
	for _, v := range report.Violations {
		if v.Constraint != a.Constraint {
			continue
		}
		if matchViolation(v, a) {
			return nil
		}
		return &AssertionError{
			Type:     AssertViolation,
			Expected: describeViolation(a),
			Actual:   fmt.Sprintf("pass=%s instances=%v expected=%q actual=%q", v.Pass, v.Instances, v.Expected, v.Actual),
			Trace:    result.Trace,
		}
	}
	return &AssertionError{
		Type:     AssertViolation,
		Expected: describeViolation(a),
		Actual:   fmt.Sprintf("violations %v", report.Names()),
		Trace:    result.Trace,
	}
}

func matchViolation(v ir.Violation, a Assertion) bool {
	if a.Pass != "" && string(v.Pass) != a.Pass {
		return false
	}
	if len(a.Instances) > 0 && !slices.Equal(v.Instances, a.Instances) {
		return false
	}
	if a.Expected != "" && v.Expected != a.Expected {
		return false
	}
	if a.Actual != "" && v.Actual != a.Actual {
		return false
	}
	return true
}

func describeViolation(a Assertion) string {
	parts := []string{"constraint " + a.Constraint}
	if a.Pass != "" {
		parts = append(parts, "pass="+a.Pass)
	}
	if len(a.Instances) > 0 {
		parts = append(parts, fmt.Sprintf("instances=%v", a.Instances))
	}
	if a.Expected != "" {
		parts = append(parts, fmt.Sprintf("expected=%q", a.Expected))
	}
	if a.Actual != "" {
		parts = append(parts, fmt.Sprintf("actual=%q", a.Actual))
	}
	return strings.Join(parts, " ")
}

// assertSkipped checks that the named constraint was skipped.
func assertSkipped(result *Result, a Assertion) error {
	var skipped []string
	if result.Outcome != nil {
		for _, s := range result.Outcome.Report.Skipped {
			if s.Constraint == a.Constraint {
				return nil
			}
			skipped = append(skipped, s.Constraint)
		}
	}
	return &AssertionError{
		Type:     AssertSkipped,
		Expected: "constraint " + a.Constraint + " skipped",
		Actual:   fmt.Sprintf("skipped %v", skipped),
		Trace:    result.Trace,
	}
}

// assertDerived checks a derived value of a validated design by its
// printed form.
func assertDerived(result *Result, a Assertion) error {
	actual := "no validated design"
	if result.Outcome != nil && result.Outcome.Design != nil {
		v, ok := result.Outcome.Design.DerivedValue(a.Name)
		switch {
		case !ok:
			actual = "not derived"
		case v.String() == a.Value:
			return nil
		default:
			actual = v.String()
		}
	}
	return &AssertionError{
		Type:     AssertDerived,
		Expected: fmt.Sprintf("%s = %s", a.Name, a.Value),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertConnections checks the connection count of a validated design.
func assertConnections(result *Result, a Assertion) error {
	actual := "no validated design"
	if result.Outcome != nil && result.Outcome.Design != nil {
		n := len(result.Outcome.Design.Connections())
		if n == a.Count {
			return nil
		}
		actual = fmt.Sprintf("%d connections", n)
	}
	return &AssertionError{
		Type:     AssertConnections,
		Expected: fmt.Sprintf("%d connections", a.Count),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertStepError checks that a step on the target failed with the code.
func assertStepError(result *Result, a Assertion) error {
	var seen []string
	for _, event := range result.Trace {
		if event.Target != a.Target {
			continue
		}
		if event.Error == a.Code {
			return nil
		}
		seen = append(seen, fmt.Sprintf("%s=%q", event.Op, event.Error))
	}
	return &AssertionError{
		Type:     AssertStepError,
		Expected: fmt.Sprintf("step on %s fails with %s", a.Target, a.Code),
		Actual:   fmt.Sprintf("steps %v", seen),
		Trace:    result.Trace,
	}
}

// EvaluateAssertions runs all assertions against a scenario result.
// Returns a list of error messages for failed assertions (empty if all
// pass).
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertViolation:
			err = assertViolation(result, assertion)
		case AssertSkipped:
			err = assertSkipped(result, assertion)
		case AssertDerived:
			err = assertDerived(result, assertion)
		case AssertConnections:
			err = assertConnections(result, assertion)
		case AssertStepError:
			err = assertStepError(result, assertion)
		default:
			err = fmt.Errorf("unknown assertion type: %s", assertion.Type)
		}

		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}

	return errors
}
