package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/blockgen/internal/ir"
)

// Snapshot is the golden form of a scenario run: the builder calls and the
// outcome, without messages or fingerprints so that wording changes do not
// churn the goldens.
func Snapshot(name string, result *Result) ir.IRObject {
	trace := make(ir.IRArray, len(result.Trace))
	for i, event := range result.Trace {
		obj := ir.IRObject{
			"op":     ir.IRString(event.Op),
			"target": ir.IRString(event.Target),
		}
		if event.Error != "" {
			obj["error"] = ir.IRString(event.Error)
		}
		trace[i] = obj
	}

	snap := ir.IRObject{
		"scenario": ir.IRString(name),
		"state":    ir.IRString(result.State),
		"trace":    trace,
	}
	if result.Outcome == nil {
		return snap
	}

	report := result.Outcome.Report
	violations := make(ir.IRArray, len(report.Violations))
	for i, v := range report.Violations {
		obj := ir.IRObject{
			"constraint": ir.IRString(v.Constraint),
			"pass":       ir.IRString(v.Pass),
			"instances":  stringArray(v.Instances),
		}
		if v.Expected != "" {
			obj["expected"] = ir.IRString(v.Expected)
		}
		if v.Actual != "" {
			obj["actual"] = ir.IRString(v.Actual)
		}
		violations[i] = obj
	}
	skipped := make([]string, len(report.Skipped))
	for i, s := range report.Skipped {
		skipped[i] = s.Constraint
	}
	outcome := ir.IRObject{
		"violations": violations,
		"skipped":    stringArray(skipped),
	}
	if d := result.Outcome.Design; d != nil {
		derived := ir.IRObject{}
		for _, dv := range d.Derived() {
			derived[dv.Name] = ir.IRString(dv.Value.String())
		}
		outcome["derived"] = derived
		outcome["connections"] = ir.IRInt(len(d.Connections()))
	}
	snap["outcome"] = outcome
	return snap
}

func stringArray(ss []string) ir.IRArray {
	arr := make(ir.IRArray, len(ss))
	for i, s := range ss {
		arr[i] = ir.IRString(s)
	}
	return arr
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's snapshot against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := ir.MarshalCanonical(Snapshot(name, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
