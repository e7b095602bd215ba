// Package sweep runs one base scenario against many parameter override
// sets.
//
// Every point is assembled with its own registry and builder; nothing is
// shared between points except the read-only base scenario. Points run
// with bounded parallelism and are reported in point order regardless of
// completion order. A run can be persisted to a store.
package sweep

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/blockgen/internal/compose"
	"github.com/roach88/blockgen/internal/harness"
	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/store"
)

// Point is the outcome of one override set.
type Point struct {
	Index     int
	Overrides map[string]string

	// State is validated, rejected, or error when assembly stopped before
	// finalize (for example a value outside its range).
	State       string
	Fingerprint string
	Error       string // error code when State is error
	Violations  []ir.Violation

	// Outcome is the finalize result; nil when State is error.
	Outcome *compose.Result
}

// ToIR returns the canonical object stored for the point.
func (p Point) ToIR(design string) ir.IRObject {
	if p.Outcome != nil {
		return p.Outcome.ToIR()
	}
	return ir.IRObject{
		"name":  ir.IRString(design),
		"state": ir.IRString(p.State),
		"error": ir.IRString(p.Error),
	}
}

// Report is a finished sweep.
type Report struct {
	Run    store.Run
	Points []Point
}

// Counts returns how many points ended in each state.
func (r *Report) Counts() map[string]int {
	counts := map[string]int{}
	for _, p := range r.Points {
		counts[p.State]++
	}
	return counts
}

// Runner executes sweeps.
type Runner struct {
	parallel int
	ids      IDGenerator
	store    *store.Store
	logger   *slog.Logger
	opts     []harness.Option
}

// Option configures a Runner.
type Option func(*Runner)

// WithParallelism bounds the number of points assembled at once. Values
// below one mean one.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		r.parallel = max(n, 1)
	}
}

// WithIDGenerator replaces the UUIDv7 run ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runner) {
		if g != nil {
			r.ids = g
		}
	}
}

// WithStore persists each run and its points.
func WithStore(s *store.Store) Option {
	return func(r *Runner) {
		r.store = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithHarnessOptions passes options (extra kinds, range tables) to every
// point's scenario run.
func WithHarnessOptions(opts ...harness.Option) Option {
	return func(r *Runner) {
		r.opts = append(r.opts, opts...)
	}
}

// NewRunner creates a Runner. Defaults: GOMAXPROCS workers, UUIDv7 IDs,
// no store, discarded logs.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		parallel: runtime.GOMAXPROCS(0),
		ids:      UUIDv7Generator{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunSpec loads the sweep's base scenario and runs every expanded point.
func (r *Runner) RunSpec(ctx context.Context, spec *Spec) (*Report, error) {
	base, err := harness.LoadScenario(spec.Scenario)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", spec.Name, err)
	}
	return r.Run(ctx, spec.Name, base, spec.Expand())
}

// Run assembles base once per override set.
//
// A point that fails to assemble is recorded with State error; it does not
// fail the sweep. The returned error covers invalid override keys, setup
// failures, cancellation and store writes.
func (r *Runner) Run(ctx context.Context, name string, base *harness.Scenario, points []map[string]string) (*Report, error) {
	baseHash, err := ir.ScenarioHash(base.ToIR())
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", name, err)
	}
	run := store.Run{
		ID:          r.ids.Generate(),
		Name:        name,
		Kind:        base.Kind,
		Points:      len(points),
		BaseHash:    baseHash,
		ToolVersion: ir.ToolVersion,
		IRVersion:   ir.IRVersion,
	}
	logger := r.logger.With("sweep", name, "run", run.ID)
	logger.Info("sweep started", "points", len(points), "parallel", r.parallel)

	results := make([]Point, len(points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i, overrides := range points {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := r.runPoint(base, i, overrides)
			if err != nil {
				return fmt.Errorf("point %d: %w", i, err)
			}
			logger.Debug("point finished", "point", i, "state", p.State)
			results[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sweep %s: %w", name, err)
	}

	if r.store != nil {
		if run, err = r.persist(ctx, run, base.DesignName(), results); err != nil {
			return nil, fmt.Errorf("sweep %s: %w", name, err)
		}
	}

	report := &Report{Run: run, Points: results}
	logger.Info("sweep finished", "states", report.Counts())
	return report, nil
}

func (r *Runner) runPoint(base *harness.Scenario, index int, overrides map[string]string) (Point, error) {
	s, err := base.WithOverrides(overrides)
	if err != nil {
		return Point{}, err
	}
	res, err := harness.Run(s, r.opts...)
	if err != nil {
		return Point{}, err
	}

	p := Point{Index: index, Overrides: overrides}
	if res.Outcome == nil {
		p.State = store.StateError
		for _, event := range res.Trace {
			if event.Error != "" {
				p.Error = event.Error
			}
		}
		return p, nil
	}
	p.Outcome = res.Outcome
	p.State = res.Outcome.State.String()
	p.Violations = res.Outcome.Report.Violations
	if res.Outcome.Design != nil {
		p.Fingerprint = res.Outcome.Design.Fingerprint()
	}
	return p, nil
}

func (r *Runner) persist(ctx context.Context, run store.Run, design string, points []Point) (store.Run, error) {
	stored, err := r.store.WriteRun(ctx, run)
	if err != nil {
		return store.Run{}, err
	}
	outcomes := make([]store.Outcome, len(points))
	for i, p := range points {
		outcomes[i] = store.Outcome{
			RunID:       stored.ID,
			Point:       p.Index,
			Design:      design,
			State:       p.State,
			Fingerprint: p.Fingerprint,
			Overrides:   p.Overrides,
			Violations:  p.Violations,
			Result:      p.ToIR(design),
		}
	}
	if err := r.store.WriteOutcomes(ctx, outcomes); err != nil {
		return store.Run{}, err
	}
	return stored, nil
}
