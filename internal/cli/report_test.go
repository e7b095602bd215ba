package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blockgen/internal/store"
)

// sweptDB runs the sample sweep twice into a fresh database.
func sweptDB(t *testing.T) (string, []string) {
	t.Helper()
	db := filepath.Join(t.TempDir(), "sweeps.db")
	var ids []string
	for range 2 {
		out, _, err := execute(t, "--format", "json", "sweep", sweepFile, "--db", db)
		require.NoError(t, err)
		var result SweepResult
		decode(t, out, &result)
		ids = append(ids, result.RunID)
	}
	return db, ids
}

func TestReportText(t *testing.T) {
	db, ids := sweptDB(t)

	out, _, err := execute(t, "report", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Run "+ids[1]+" (seq 2)")
	assert.Contains(t, out, "  sweep vco_fmax over Pll, 6 points\n")
	assert.Contains(t, out, "  2 validated, 3 rejected, 1 error\n")
	assert.Contains(t, out, "Constraints:\n")
	assert.Contains(t, out, "  [2] divider.div_max=4 vco.fmax=6GHz rejected: pll_vco_covers_fout_max\n")
	assert.NotContains(t, out, "✗")
}

func TestReportSelectsRun(t *testing.T) {
	db, ids := sweptDB(t)

	out, _, err := execute(t, "--format", "json", "report", "--db", db, "--run", ids[0])
	require.NoError(t, err)
	var report ReportResult
	decode(t, out, &report)
	assert.Equal(t, ids[0], report.Run.ID)
	assert.Equal(t, int64(1), report.Run.Seq)
}

func TestReportList(t *testing.T) {
	db, ids := sweptDB(t)

	out, _, err := execute(t, "--format", "json", "report", "--db", db, "--list")
	require.NoError(t, err)
	var runs []RunSummary
	decode(t, out, &runs)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[0], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, runs[0].BaseHash, runs[1].BaseHash)

	out, _, err = execute(t, "report", "--db", db, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "1  "+ids[0]+"  vco_fmax (Pll, 6 points)")
}

func TestReportWhere(t *testing.T) {
	db, _ := sweptDB(t)

	report := func(where ...string) ReportResult {
		t.Helper()
		args := []string{"--format", "json", "report", "--db", db}
		for _, w := range where {
			args = append(args, "--where", w)
		}
		out, _, err := execute(t, args...)
		require.NoError(t, err)
		var result ReportResult
		decode(t, out, &result)
		return result
	}

	rejected := report("state=rejected")
	require.Len(t, rejected.Points, 3)
	for _, p := range rejected.Points {
		assert.Equal(t, "rejected", p.State)
	}
	// Counts still describe the whole run.
	assert.Equal(t, map[string]int{"validated": 2, "rejected": 3, "error": 1}, rejected.States)

	pow2 := report("violation=div_max_pow2")
	require.Len(t, pow2.Points, 2)
	for _, p := range pow2.Points {
		assert.Contains(t, p.Violations, "div_max_pow2")
	}

	one := report("violation=pll_vco_covers_fout_max", "point=2")
	require.Len(t, one.Points, 1)
	assert.Equal(t, 2, one.Points[0].Index)

	assert.Empty(t, report("state=validated", "point=2").Points)

	out, _, err := execute(t, "report", "--db", db, "--where", "colour=red")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E010]: invalid filter")
	assert.Contains(t, out, `unknown key "colour"`)
}

func TestReportDetectsTampering(t *testing.T) {
	db, ids := sweptDB(t)

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		`UPDATE outcomes SET result = '{"state":"validated"}' WHERE run_id = ? AND point = 2`, ids[1])
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, "report", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ point 2: stored outcome does not match its hash")

	out, _, err = execute(t, "--format", "json", "report", "--db", db)
	require.Error(t, err)
	var report ReportResult
	resp := decode(t, out, &report)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TAMPERED", resp.Error.Code)
	assert.Equal(t, []int{2}, report.Tampered)

	// The untouched run still verifies.
	_, _, err = execute(t, "report", "--db", db, "--run", ids[0])
	require.NoError(t, err)
}

func TestReportCommandErrors(t *testing.T) {
	db, _ := sweptDB(t)
	empty := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(empty)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{"missing db", []string{"report", "--db", filepath.Join(t.TempDir(), "none.db")}, "database not found"},
		{"unknown run", []string{"report", "--db", db, "--run", "nope"}, "run not found"},
		{"no runs", []string{"report", "--db", empty}, "run not found"},
		{"stray argument", []string{"report", "--db", db, "extra"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out+err.Error(), tt.contains)
		})
	}

	out, _, err := execute(t, "report", "--db", empty, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")
}
