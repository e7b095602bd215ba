package harness

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/blockgen/internal/catalog"
	"github.com/roach88/blockgen/internal/compose"
	"github.com/roach88/blockgen/internal/config"
	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/registry"
)

// Harness executes one scenario against a fresh registry.
type Harness struct {
	kinds  []ir.KindSpec
	tables []ir.RangeTable
	logger *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger passed to the registry and builder.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithKinds registers extra kinds (from a CUE library) after the catalog,
// in the given order.
func WithKinds(specs ...ir.KindSpec) Option {
	return func(h *Harness) {
		h.kinds = append(h.kinds, specs...)
	}
}

// WithRangeTables applies tables after the scenario's own range files.
func WithRangeTables(tables ...ir.RangeTable) Option {
	return func(h *Harness) {
		h.tables = append(h.tables, tables...)
	}
}

// Run executes a scenario and returns the result.
//
// Every run builds its own registry: the catalog, then extra kinds, then
// range tables. The steps run in order: begin, instances, connections,
// canonical wiring, finalize. A step that fails without an expect_error
// stops assembly; the builder state at that point is the final state.
//
// The returned error covers setup problems only (unreadable range tables,
// kinds that fail to register, an unknown composite kind). Outcome
// mismatches are reported in Result.Errors.
func Run(s *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	logger := h.logger.With("scenario", s.Name)

	reg, err := h.registry(s, logger)
	if err != nil {
		return nil, err
	}

	b, err := compose.NewBuilder(reg, s.Kind, s.DesignName(), compose.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result := NewResult()
	stopped := ""
	if code := h.assemble(b, s, result); code != "" {
		stopped = code
	} else if res, err := b.Finalize(); err != nil {
		result.AddTrace(OpFinalize, s.DesignName(), errorCode(err))
		stopped = errorCode(err)
	} else {
		result.AddTrace(OpFinalize, s.DesignName(), "")
		result.Outcome = res
	}
	result.State = b.State().String()

	checkExpect(s, result, stopped)
	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}

	logger.Info("scenario finished",
		"state", result.State,
		"pass", result.Pass,
		"errors", len(result.Errors),
	)
	return result, nil
}

// registry builds a fresh registry for one run.
func (h *Harness) registry(s *Scenario, logger *slog.Logger) (*registry.Registry, error) {
	reg, err := catalog.NewRegistry(logger)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	for _, spec := range h.kinds {
		if _, err := reg.Register(spec); err != nil {
			return nil, fmt.Errorf("register %s: %w", spec.Name, err)
		}
	}

	tables := slices.Clone(h.tables)
	if len(s.Ranges) > 0 {
		fromFiles, err := config.LoadRangeTables(s.Ranges...)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		tables = append([]ir.RangeTable{fromFiles}, tables...)
	}
	for _, t := range tables {
		if err := reg.ApplyRangeTable(t); err != nil {
			return nil, fmt.Errorf("scenario %s: apply range table: %w", s.Name, err)
		}
	}
	return reg, nil
}

// assemble runs every step before finalize. It returns the error code that
// stopped assembly, or "" if all steps ran.
func (h *Harness) assemble(b *compose.Builder, s *Scenario, result *Result) string {
	if code, stop := step(result, OpBegin, s.DesignName(), "", b.Begin(s.Params)); stop {
		return code
	}

	for _, inst := range s.Instances {
		_, err := b.AddInstance(inst.Kind, inst.Name, inst.Params)
		if code, stop := step(result, OpInstance, inst.Name, inst.ExpectError, err); stop {
			return code
		}
	}

	for _, c := range s.Connections {
		_, err := b.Connect(c.From, c.To)
		if code, stop := step(result, OpConnect, c.From+" -> "+c.To, c.ExpectError, err); stop {
			return code
		}
	}

	if s.Wiring != WiringExplicit {
		if code, stop := step(result, OpWire, s.DesignName(), "", b.WireCanonical()); stop {
			return code
		}
	}
	return ""
}

// step records one builder call. A step with an expected error never stops
// assembly; a mismatch is reported instead.
func step(result *Result, op, target, expect string, err error) (string, bool) {
	code := errorCode(err)
	result.AddTrace(op, target, code)

	if expect != "" {
		switch {
		case err == nil:
			result.AddError(fmt.Sprintf("%s %s: expected error %s, step succeeded", op, target, expect))
		case code != expect:
			result.AddError(fmt.Sprintf("%s %s: expected error %s, got %v", op, target, expect, err))
		}
		return "", false
	}
	if err != nil {
		return code, true
	}
	return "", false
}

// checkExpect compares the final state with the expect clause.
func checkExpect(s *Scenario, result *Result, stopped string) {
	want := s.Expect

	if stopped != want.Error {
		switch {
		case want.Error == "":
			result.AddError(fmt.Sprintf("assembly stopped with %s", stopped))
		case stopped == "":
			result.AddError(fmt.Sprintf("expected assembly to stop with %s, all steps succeeded", want.Error))
		default:
			result.AddError(fmt.Sprintf("expected assembly to stop with %s, got %s", want.Error, stopped))
		}
	}

	if result.State != want.State {
		result.AddError(fmt.Sprintf("expected state %s, got %s", want.State, result.State))
	}

	if result.Outcome == nil {
		return
	}
	got := result.Outcome.Report.Names()
	if want.State == compose.Rejected.String() && len(want.Violations) > 0 && !slices.Equal(got, want.Violations) {
		result.AddError(fmt.Sprintf("expected violations %v, got %v", want.Violations, got))
	}
}

// errorCode returns the code of a structured error, "" for nil, and
// "ERROR" for anything else.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := ir.AsError(err); ok {
		return string(e.Code)
	}
	return "ERROR"
}
