// Package harness runs design scenarios: a composite to assemble, step by
// step, and the outcome it must reach.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: pll_vco_too_slow
//	description: "a 6GHz VCO cannot reach the 8GHz output"
//	kind: Pll
//	design: pll
//	ranges:
//	  - ../ranges/narrow.yaml
//	params: { fref: "2GHz" }
//	instances:
//	  - kind: Vco
//	    name: vco
//	    params: { fmin: "4GHz", fmax: "6GHz" }
//	connections:
//	  - from: vco.out
//	    to: pfd.b
//	    expect_error: TOPOLOGY_VIOLATION
//	wiring: canonical
//	expect:
//	  state: rejected
//	  violations: [pll_vco_covers_fout_max]
//	assertions:
//	  - type: violation
//	    constraint: pll_vco_covers_fout_max
//	    actual: "8GHz vs 6GHz"
//
// # Assertion Types
//
//   - violation: a violation exists, matching pass, instances, expected and
//     actual where given
//   - skipped: a constraint was skipped for a missing optional value
//   - derived: a derived value of the validated design, by printed form
//   - connections: the validated design's connection count
//   - step_error: a step failed with the given error code
//
// # Determinism
//
// Each run gets a fresh registry, so scenarios never share registration
// state. Golden snapshots hold the step trace and the outcome in canonical
// JSON without messages or fingerprints.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/pll_reference.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
