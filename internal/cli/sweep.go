package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/blockgen/internal/store"
	"github.com/roach88/blockgen/internal/sweep"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	DB       string // SQLite path; empty means do not persist
	Parallel int    // points assembled at once; 0 means GOMAXPROCS
}

// SweepResult is the printable form of a finished sweep.
type SweepResult struct {
	RunID    string         `json:"run_id"`
	Seq      int64          `json:"seq,omitempty"`
	Name     string         `json:"name"`
	BaseHash string         `json:"base_hash"`
	States   map[string]int `json:"states"`
	Points   []SweepPoint   `json:"points"`
}

// SweepPoint is one point of a SweepResult.
type SweepPoint struct {
	Index       int               `json:"index"`
	Overrides   map[string]string `json:"overrides"`
	State       string            `json:"state"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Error       string            `json:"error,omitempty"`
	Violations  []string          `json:"violations,omitempty"`
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep <sweep.yaml>",
		Short: "Run a scenario against many parameter sets",
		Long: `Run a base scenario once per override set of a sweep file.

Points run in parallel, each with its own registry and builder, and are
reported in point order. Rejected or unassemblable points are results,
not command failures. With --db the run is appended to a SQLite store
for later 'report' queries.

Examples:
  blockgen sweep testdata/sweeps/vco_fmax.yaml
  blockgen sweep vco_fmax.yaml --db sweeps.db --parallel 8`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "points assembled at once (default GOMAXPROCS)")

	return cmd
}

func runSweep(opts *SweepOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	spec, err := sweep.LoadSpec(path)
	if err != nil {
		return f.CommandError(ErrCodeLoadFailed, "loading sweep", err)
	}
	env, err := loadEnvironment(opts.RootOptions, f)
	if err != nil {
		return err
	}

	runnerOpts := []sweep.Option{
		sweep.WithLogger(env.logger),
		sweep.WithHarnessOptions(env.harnessOptions()...),
	}
	if opts.Parallel > 0 {
		runnerOpts = append(runnerOpts, sweep.WithParallelism(opts.Parallel))
	}
	if opts.DB != "" {
		st, err := store.Open(opts.DB, store.WithLogger(env.logger))
		if err != nil {
			return f.CommandError(ErrCodeStore, "opening database", err)
		}
		defer st.Close()
		runnerOpts = append(runnerOpts, sweep.WithStore(st))
	}

	report, err := sweep.NewRunner(runnerOpts...).RunSpec(cmd.Context(), spec)
	if err != nil {
		return f.CommandError(errorCode(err), "running sweep", err)
	}

	result := sweepResult(report)
	return f.Emit(result, func(w io.Writer) { writeSweepText(w, result) })
}

func sweepResult(report *sweep.Report) SweepResult {
	result := SweepResult{
		RunID:    report.Run.ID,
		Seq:      report.Run.Seq,
		Name:     report.Run.Name,
		BaseHash: report.Run.BaseHash,
		States:   report.Counts(),
		Points:   make([]SweepPoint, len(report.Points)),
	}
	for i, p := range report.Points {
		sp := SweepPoint{
			Index:       p.Index,
			Overrides:   p.Overrides,
			State:       p.State,
			Fingerprint: p.Fingerprint,
			Error:       p.Error,
		}
		for _, v := range p.Violations {
			sp.Violations = append(sp.Violations, v.Constraint)
		}
		result.Points[i] = sp
	}
	return result
}

func writeSweepText(w io.Writer, result SweepResult) {
	fmt.Fprintf(w, "Sweep %s (run %s)\n", result.Name, result.RunID)
	for _, p := range result.Points {
		line := fmt.Sprintf("  [%d] %s %s", p.Index, formatOverrides(p.Overrides), p.State)
		switch {
		case p.Error != "":
			line += ": " + p.Error
		case len(p.Violations) > 0:
			line += ": " + strings.Join(p.Violations, ", ")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\n%s\n", formatStates(result.States))
}

// formatOverrides renders overrides as "a=1 b=2" in key order.
func formatOverrides(overrides map[string]string) string {
	if len(overrides) == 0 {
		return "(base)"
	}
	parts := make([]string, 0, len(overrides))
	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		parts = append(parts, k+"="+overrides[k])
	}
	return strings.Join(parts, " ")
}

// formatStates renders state counts in a fixed order.
func formatStates(states map[string]int) string {
	return fmt.Sprintf("%d validated, %d rejected, %d error",
		states[store.StateValidated], states[store.StateRejected], states[store.StateError])
}
