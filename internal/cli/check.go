package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/blockgen/internal/catalog"
	"github.com/roach88/blockgen/internal/compiler"
	"github.com/roach88/blockgen/internal/ir"
)

// CheckResult holds the lint result of a kind library.
type CheckResult struct {
	Valid  bool                       `json:"valid"`
	Kinds  []string                   `json:"kinds"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <cue-dir>",
		Short: "Lint a CUE kind library",
		Long: `Compile and lint the CUE kind declarations in a directory.

Every kind under 'kind' is compiled and schema-checked, composites are
checked for role cycles, and the library is registered on top of the
built-in catalog so constraint and derived expressions are type-checked.
A 'ranges' table in the library is applied last. All problems are
reported, not only the first.

Exit codes:
  0 - Library is valid
  1 - Lint errors
  2 - Command error (directory missing, CUE does not load)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
}

func runCheck(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	loaded, err := LoadLibrary(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return f.CommandError(loadErr.Code, loadErr.Message, nil)
		}
		return f.CommandError(ErrCodeLoadFailed, "loading library", err)
	}
	f.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	result := checkLibrary(loaded.CUEValue, newLogger(opts, f.GetErrWriter()), f)
	if !result.Valid {
		return f.Fail(ExitFailure, "E_LINT_FAILED", fmt.Sprintf("%d problem(s) found", len(result.Errors)), result, func(w io.Writer) {
			for _, e := range result.Errors {
				fmt.Fprintf(w, "✗ %s\n", e.Error())
			}
			fmt.Fprintf(w, "\n%d problem(s) found\n", len(result.Errors))
		})
	}
	return f.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %d kind(s) valid\n", len(result.Kinds))
		for _, k := range result.Kinds {
			fmt.Fprintf(w, "  %s\n", k)
		}
	})
}

// checkLibrary runs every stage it can and collects all problems. A stage
// only runs when the stages it depends on found nothing.
func checkLibrary(value cue.Value, logger *slog.Logger, f *OutputFormatter) CheckResult {
	result := CheckResult{Kinds: []string{}}
	var specs []ir.KindSpec

	if kinds := value.LookupPath(cue.ParsePath("kind")); kinds.Exists() {
		iter, err := kinds.Fields()
		if err != nil {
			result.Errors = append(result.Errors, compileProblem("kind", err))
		} else {
			for iter.Next() {
				f.VerboseLog("Checking kind: %s", iter.Label())
				spec, err := compiler.CompileKind(iter.Value())
				if err != nil {
					result.Errors = append(result.Errors, compileProblem("kind."+iter.Label(), err))
					continue
				}
				result.Errors = append(result.Errors, compiler.Validate(spec)...)
				specs = append(specs, *spec)
			}
		}
	}

	var table ir.RangeTable
	if ranges := value.LookupPath(cue.ParsePath("ranges")); ranges.Exists() {
		t, err := compiler.CompileRangeTable(ranges)
		if err != nil {
			result.Errors = append(result.Errors, compileProblem("ranges", err))
		} else {
			result.Errors = append(result.Errors, compiler.Validate(t)...)
			table = t
		}
	}

	if len(specs) == 0 && table == nil && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, compiler.ValidationError{
			Field:   "library",
			Message: "no kinds or ranges found",
			Code:    ErrCodeNoFiles,
		})
	}
	if len(result.Errors) > 0 {
		return result
	}

	ordered, err := compiler.OrderKinds(specs)
	if err != nil {
		result.Errors = append(result.Errors, compileProblem("kind", err))
		return result
	}

	reg, err := catalog.NewRegistry(logger)
	if err != nil {
		result.Errors = append(result.Errors, registryProblems("catalog", err)...)
		return result
	}
	for _, spec := range ordered {
		if _, err := reg.Register(spec); err != nil {
			result.Errors = append(result.Errors, registryProblems("kind."+spec.Name, err)...)
			continue
		}
		result.Kinds = append(result.Kinds, spec.Name)
	}
	if table != nil && len(result.Errors) == 0 {
		if err := reg.ApplyRangeTable(table); err != nil {
			result.Errors = append(result.Errors, registryProblems("ranges", err)...)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// compileProblem converts a compiler error into a lint entry.
func compileProblem(field string, err error) compiler.ValidationError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return compiler.ValidationError{
			Field:   compileErr.Field,
			Message: compileErr.Message,
			Code:    ErrCodeCompile,
			Line:    lineOf(compileErr.Pos),
		}
	}
	var cycleErr *compiler.CycleError
	if errors.As(err, &cycleErr) {
		return compiler.ValidationError{
			Field:   field,
			Message: err.Error(),
			Code:    compiler.ErrRoleCycle,
		}
	}
	return compiler.ValidationError{Field: field, Message: err.Error(), Code: ErrCodeCompile}
}

// registryProblems expands a registration error into one lint entry per
// collected ir error.
func registryProblems(field string, err error) []compiler.ValidationError {
	var multi *ir.MultiError
	if errors.As(err, &multi) {
		out := make([]compiler.ValidationError, len(multi.Errors))
		for i, e := range multi.Errors {
			out[i] = compiler.ValidationError{Field: field, Message: e.Message, Code: string(e.Code)}
		}
		return out
	}
	if e, ok := ir.AsError(err); ok {
		return []compiler.ValidationError{{Field: field, Message: e.Message, Code: string(e.Code)}}
	}
	return []compiler.ValidationError{{Field: field, Message: err.Error(), Code: ErrCodeGeneric}}
}

func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}
