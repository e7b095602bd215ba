package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blockgen/internal/store"
)

func TestSweepText(t *testing.T) {
	out, _, err := execute(t, "sweep", sweepFile, "--parallel", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Sweep vco_fmax (run ")
	assert.Contains(t, out, "  [0] vco.fmax=8GHz validated\n")
	assert.Contains(t, out, "  [1] vco.fmax=200GHz error: OUT_OF_RANGE\n")
	assert.Contains(t, out, "  [2] divider.div_max=4 vco.fmax=6GHz rejected: pll_vco_covers_fout_max\n")
	assert.Contains(t, out, "2 validated, 3 rejected, 1 error")
}

func TestSweepJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "sweep", sweepFile)
	require.NoError(t, err)

	var result SweepResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "vco_fmax", result.Name)
	assert.Len(t, result.BaseHash, 64)
	assert.Zero(t, result.Seq)
	assert.Equal(t, map[string]int{"validated": 2, "rejected": 3, "error": 1}, result.States)
	require.Len(t, result.Points, 6)
	for i, p := range result.Points {
		assert.Equal(t, i, p.Index)
	}
	assert.Len(t, result.Points[0].Fingerprint, 64)
	assert.Equal(t, "OUT_OF_RANGE", result.Points[1].Error)
	assert.Equal(t, []string{"pll_vco_covers_fout_max"}, result.Points[2].Violations)
}

// A range table applies to every point: the 8GHz and 9GHz points now fail
// to instantiate.
func TestSweepWithConfig(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "--config", filepath.Join(rangesDir, "narrow.yaml"), "sweep", sweepFile)
	require.NoError(t, err)

	var result SweepResult
	decode(t, out, &result)
	assert.Equal(t, []string{"error", "error", "rejected", "error", "rejected", "error"}, pointStates(result.Points))
}

func TestSweepPersistsAndReports(t *testing.T) {
	db := filepath.Join(t.TempDir(), "sweeps.db")

	out, _, err := execute(t, "--format", "json", "sweep", sweepFile, "--db", db)
	require.NoError(t, err)
	var swept SweepResult
	decode(t, out, &swept)
	assert.Equal(t, int64(1), swept.Seq)

	out, _, err = execute(t, "--format", "json", "report", "--db", db)
	require.NoError(t, err)
	var report ReportResult
	resp := decode(t, out, &report)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, swept.RunID, report.Run.ID)
	assert.Equal(t, "Pll", report.Run.Kind)
	assert.Equal(t, 6, report.Run.Points)
	assert.Equal(t, swept.States, report.States)
	assert.Contains(t, report.Constraints, store.ConstraintCount{Constraint: "div_max_pow2", Points: 2})
	assert.Empty(t, report.Tampered)
	require.Len(t, report.Points, 6)
	for i := range report.Points {
		assert.Equal(t, swept.Points[i].State, report.Points[i].State)
		assert.Equal(t, swept.Points[i].Fingerprint, report.Points[i].Fingerprint)
		assert.Equal(t, swept.Points[i].Overrides, report.Points[i].Overrides)
		assert.Equal(t, swept.Points[i].Violations, report.Points[i].Violations)
	}
}

func TestSweepCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{"missing file", []string{"sweep", "/nonexistent/sweep.yaml"}, "loading sweep"},
		{"scenario is not a sweep", []string{"sweep", filepath.Join(scenarioDir, "pll_reference.yaml")}, "failed to parse YAML"},
		{"unopenable db", []string{"sweep", sweepFile, "--db", filepath.Join(t.TempDir(), "missing", "dir", "x.db")}, "opening database"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, tt.contains)
		})
	}
}

func TestFormatOverrides(t *testing.T) {
	assert.Equal(t, "(base)", formatOverrides(nil))
	assert.Equal(t, "divider.div_max=8 fref=1GHz", formatOverrides(map[string]string{"fref": "1GHz", "divider.div_max": "8"}))
}

func pointStates(points []SweepPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.State
	}
	return out
}
