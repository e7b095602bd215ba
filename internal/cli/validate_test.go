package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScenarioDir(t *testing.T) {
	out, _, err := execute(t, "validate", scenarioDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ pll_reference (validated)")
	assert.Contains(t, out, "✓ pll_vco_too_slow (rejected)")
	assert.Contains(t, out, "✓ pll_ref_out_of_range (empty)")
	assert.Contains(t, out, "✓ pll_narrow_vco (assembling)")
	assert.Contains(t, out, "Summary: 6 passed, 0 failed, 6 total")
}

func TestValidateJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate",
		filepath.Join(scenarioDir, "pll_reference.yaml"),
		filepath.Join(scenarioDir, "pll_divider_three.yaml"))
	require.NoError(t, err)

	var result ValidateResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Passed)
	require.Len(t, result.Scenarios, 2)

	ref := result.Scenarios[0]
	assert.Equal(t, "pll_reference", ref.Name)
	assert.Equal(t, "validated", ref.State)
	assert.Equal(t, "pll: validated (15 connections)", ref.Summary)

	div := result.Scenarios[1]
	assert.Equal(t, "rejected", div.State)
	assert.Equal(t, "pll: rejected (2 violations)", div.Summary)
}

// The reference scenario expects 8GHz to fit the VCO; a narrowed range
// table rejects it at instantiation instead.
func TestValidateConfigOverridesRanges(t *testing.T) {
	out, _, err := execute(t, "validate",
		"--config", filepath.Join(rangesDir, "narrow.yaml"),
		filepath.Join(scenarioDir, "pll_reference.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "1 scenario(s) failed", err.Error())

	assert.Contains(t, out, "✗ pll_reference")
	assert.Contains(t, out, "assembly stopped with OUT_OF_RANGE")
	assert.Contains(t, out, "Summary: 0 passed, 1 failed, 1 total")
}

func TestValidateFailureJSON(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join(scenarioDir, "pll_vco_too_slow.yaml"))
	require.NoError(t, err)
	wrong := strings.Replace(string(data), "state: rejected", "state: validated", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(wrong), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\nkind: Pll\nexpect: {state: validated}\nbogus: 1\n"), 0o644))

	out, _, err := execute(t, "--format", "json", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidateResult
	resp := decode(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_SCENARIO_FAILED", resp.Error.Code)
	assert.Equal(t, "2 scenario(s) failed", resp.Error.Message)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Scenarios, 2)

	// bad.yaml sorts first and never loads.
	assert.Equal(t, "bad.yaml", result.Scenarios[0].Name)
	assert.Contains(t, result.Scenarios[0].Errors[0], "failed to load scenario")

	assert.Equal(t, "pll_vco_too_slow", result.Scenarios[1].Name)
	assert.Equal(t, "rejected", result.Scenarios[1].State)
	assert.Contains(t, result.Scenarios[1].Errors, "expected state validated, got rejected")
}

func TestValidateCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{"missing path", []string{"validate", "/nonexistent/pll.yaml"}, "scenario path not found"},
		{"empty dir", []string{"validate", t.TempDir()}, "no scenario files found"},
		{"update without golden", []string{"validate", "--update", scenarioDir}, "--update requires --golden"},
		{"missing library", []string{"validate", "--library", "/nonexistent/blocks", scenarioDir}, "library directory not found"},
		{"missing config", []string{"validate", "--config", "/nonexistent/ranges.yaml", scenarioDir}, "loading range tables"},
		{"no args", []string{"validate"}, "requires at least 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out+err.Error(), tt.contains)
		})
	}
}

func TestValidateGolden(t *testing.T) {
	scenario := filepath.Join(scenarioDir, "pll_vco_too_slow.yaml")
	golden := filepath.Join(t.TempDir(), "golden")

	_, _, err := execute(t, "validate", "--golden", golden, scenario)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = execute(t, "validate", "--golden", golden, "--update", scenario)
	require.NoError(t, err)
	written, err := os.ReadFile(filepath.Join(golden, "pll_vco_too_slow.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(written), `"scenario":"pll_vco_too_slow"`)
	assert.Contains(t, string(written), `"constraint":"pll_vco_covers_fout_max"`)

	_, _, err = execute(t, "validate", "--golden", golden, scenario)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(golden, "pll_vco_too_slow.golden"), []byte(`{"scenario":"other"}`), 0o644))
	out, _, err := execute(t, "validate", "--golden", golden, scenario)
	require.Error(t, err)
	assert.Contains(t, out, "outcome does not match")
}

// The harness package keeps its own snapshots; the CLI renders the same
// bytes.
func TestValidateAgainstHarnessGoldens(t *testing.T) {
	_, _, err := execute(t, "validate",
		"--golden", "../harness/testdata/golden",
		filepath.Join(scenarioDir, "pll_reference.yaml"),
		filepath.Join(scenarioDir, "pll_feedback_shortcut.yaml"))
	require.NoError(t, err)
}

func TestValidateWithLibrary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clock_tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: clock_tree
kind: ClockTree
instances:
  - kind: Repeater
    name: buf
    params: {t_delay: "50ps", max_frequency: "10GHz"}
  - kind: Vco
    name: src
    params: {fmin: "4GHz", fmax: "8GHz"}
expect:
  state: validated
assertions:
  - type: connections
    count: 2
`), 0o644))

	out, _, err := execute(t, "validate", "--library", blocksDir, path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ clock_tree (validated)")

	out, _, err = execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "UNKNOWN_KIND")
}
