package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/blockgen/internal/queryir"
	"github.com/roach88/blockgen/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - latest run when empty
	List     bool   // list runs instead of reporting one
	Where    []string
}

// RunSummary is one stored run.
type RunSummary struct {
	ID          string `json:"id"`
	Seq         int64  `json:"seq"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Points      int    `json:"points"`
	BaseHash    string `json:"base_hash"`
	ToolVersion string `json:"tool_version"`
	IRVersion   string `json:"ir_version"`
}

// ReportResult is the report for one stored run.
type ReportResult struct {
	Run         RunSummary              `json:"run"`
	States      map[string]int          `json:"states"`
	Constraints []store.ConstraintCount `json:"constraints"`
	Points      []SweepPoint            `json:"points"`
	Tampered    []int                   `json:"tampered,omitempty"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report a stored sweep run",
		Long: `Report a sweep run from the store.

Shows per-state point counts, how many points each constraint rejected,
and every point's outcome. Each stored outcome is re-hashed; rows whose
content no longer matches their hash are reported as tampered.

Exit codes:
  0 - Report produced, all outcomes intact
  1 - One or more stored outcomes were modified
  2 - Command error (database or run not found, etc.)

Examples:
  blockgen report --db sweeps.db
  blockgen report --db sweeps.db --run 0190b6c2-...
  blockgen report --db sweeps.db --list
  blockgen report --db sweeps.db --where state=rejected
  blockgen report --db sweeps.db --where violation=div_max_pow2

--where filters the listed points by key=value; repeated filters must all
hold. Keys: point, state, design, fingerprint, violation. Counts and the
tamper check always cover the whole run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (default: latest run)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list stored runs")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "only list points matching key=value (repeatable)")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	filter, err := queryir.Parse(opts.Where)
	if err != nil {
		return f.CommandError(ErrCodeFilter, "invalid filter", err)
	}

	// Opening would create an empty database.
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		return f.CommandError(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return f.CommandError(ErrCodeStore, "opening database", err)
	}
	defer st.Close()

	if opts.List {
		return listRuns(ctx, st, f)
	}

	var run store.Run
	if opts.RunID != "" {
		run, err = st.ReadRun(ctx, opts.RunID)
	} else {
		run, err = st.LatestRun(ctx)
	}
	if errors.Is(err, store.ErrNotFound) {
		return f.CommandError(ErrCodeNotFound, "run not found", err)
	}
	if err != nil {
		return f.CommandError(ErrCodeStore, "reading run", err)
	}

	result, err := buildReport(ctx, st, queryir.Query{RunID: run.ID, Filter: filter}, run)
	if err != nil {
		return f.CommandError(ErrCodeStore, "reading outcomes", err)
	}

	text := func(w io.Writer) { writeReportText(w, result) }
	if len(result.Tampered) > 0 {
		return f.Fail(ExitFailure, "E_TAMPERED", fmt.Sprintf("%d stored outcome(s) do not match their hash", len(result.Tampered)), result, text)
	}
	return f.Emit(result, text)
}

func listRuns(ctx context.Context, st *store.Store, f *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return f.CommandError(ErrCodeStore, "listing runs", err)
	}
	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = runSummary(r)
	}
	return f.Emit(summaries, func(w io.Writer) {
		if len(summaries) == 0 {
			fmt.Fprintln(w, "No runs found in database.")
			return
		}
		for _, r := range summaries {
			fmt.Fprintf(w, "%d  %s  %s (%s, %d points)\n", r.Seq, r.ID, r.Name, r.Kind, r.Points)
		}
	})
}

func buildReport(ctx context.Context, st *store.Store, q queryir.Query, run store.Run) (ReportResult, error) {
	result := ReportResult{Run: runSummary(run)}

	var err error
	if result.States, err = st.StateCounts(ctx, run.ID); err != nil {
		return result, err
	}
	if result.Constraints, err = st.ConstraintCounts(ctx, run.ID); err != nil {
		return result, err
	}
	outcomes, err := st.QueryOutcomes(ctx, q)
	if err != nil {
		return result, err
	}
	result.Points = make([]SweepPoint, len(outcomes))
	for i, o := range outcomes {
		p := SweepPoint{
			Index:       o.Point,
			Overrides:   o.Overrides,
			State:       o.State,
			Fingerprint: o.Fingerprint,
		}
		for _, v := range o.Violations {
			p.Violations = append(p.Violations, v.Constraint)
		}
		result.Points[i] = p
	}
	if result.Tampered, err = st.Verify(ctx, run.ID); err != nil {
		return result, err
	}
	return result, nil
}

func runSummary(r store.Run) RunSummary {
	return RunSummary{
		ID:          r.ID,
		Seq:         r.Seq,
		Name:        r.Name,
		Kind:        r.Kind,
		Points:      r.Points,
		BaseHash:    r.BaseHash,
		ToolVersion: r.ToolVersion,
		IRVersion:   r.IRVersion,
	}
}

func writeReportText(w io.Writer, result ReportResult) {
	r := result.Run
	fmt.Fprintf(w, "Run %s (seq %d)\n", r.ID, r.Seq)
	fmt.Fprintf(w, "  sweep %s over %s, %d points\n", r.Name, r.Kind, r.Points)
	fmt.Fprintf(w, "  %s\n", formatStates(result.States))

	if len(result.Constraints) > 0 {
		fmt.Fprintln(w, "Constraints:")
		for _, c := range result.Constraints {
			fmt.Fprintf(w, "  %-32s %d point(s)\n", c.Constraint, c.Points)
		}
	}

	fmt.Fprintln(w, "Points:")
	for _, p := range result.Points {
		line := fmt.Sprintf("  [%d] %s %s", p.Index, formatOverrides(p.Overrides), p.State)
		if len(p.Violations) > 0 {
			line += ": " + strings.Join(p.Violations, ", ")
		}
		fmt.Fprintln(w, line)
	}

	for _, point := range result.Tampered {
		fmt.Fprintf(w, "✗ point %d: stored outcome does not match its hash\n", point)
	}
}
