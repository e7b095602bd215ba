package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/blockgen/internal/harness"
	"github.com/roach88/blockgen/internal/ir"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Golden string // directory of <scenario>.golden snapshots
	Update bool   // rewrite golden files instead of comparing
}

// ScenarioResult holds the result of a single scenario.
type ScenarioResult struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Pass    bool     `json:"pass"`
	State   string   `json:"state,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ValidateResult holds the overall result.
type ValidateResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml|dir>...",
		Short: "Assemble design scenarios and check their expectations",
		Long: `Assemble each design scenario and check its expected outcome.

A directory argument runs every .yaml/.yml scenario directly inside it.
With --golden, each scenario's outcome snapshot is also compared against
<dir>/<scenario>.golden; --update rewrites the snapshots instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  blockgen validate testdata/scenarios
  blockgen validate pll.yaml --config ranges/n7.yaml
  blockgen validate scenarios --golden scenarios/golden --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden outcome snapshots")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.Update && opts.Golden == "" {
		return f.CommandError(ErrCodeGeneric, "--update requires --golden", nil)
	}

	paths, err := scenarioPaths(args)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return f.CommandError(loadErr.Code, loadErr.Message, nil)
		}
		return f.CommandError(ErrCodeScanError, "finding scenarios", err)
	}
	env, err := loadEnvironment(opts.RootOptions, f)
	if err != nil {
		return err
	}

	result := ValidateResult{Scenarios: make([]ScenarioResult, 0, len(paths)), Total: len(paths)}
	for _, path := range paths {
		f.VerboseLog("Running scenario %s", path)
		sr := validateScenario(opts, env, path)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	text := func(w io.Writer) { writeValidateText(w, result) }
	if result.Failed > 0 {
		return f.Fail(ExitFailure, "E_SCENARIO_FAILED", fmt.Sprintf("%d scenario(s) failed", result.Failed), result, text)
	}
	return f.Emit(result, text)
}

// scenarioPaths expands directory arguments; file arguments are kept in
// order.
func scenarioPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenario path not found: %s", arg)}
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := harness.FindScenarios(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: "no scenario files found"}
	}
	return paths, nil
}

func validateScenario(opts *ValidateOptions, env *environment, path string) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(path), Path: path}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.Run(scenario, env.harnessOptions()...)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
		return sr
	}
	sr.State = result.State
	if result.Outcome != nil {
		sr.Summary = result.Outcome.Summary()
	}
	sr.Errors = result.Errors

	if opts.Golden != "" {
		if err := checkGolden(opts, scenario.Name, result); err != nil {
			sr.Errors = append(sr.Errors, err.Error())
		}
	}
	sr.Pass = len(sr.Errors) == 0
	return sr
}

// checkGolden compares (or with --update, writes) the canonical outcome
// snapshot of one scenario.
func checkGolden(opts *ValidateOptions, name string, result *harness.Result) error {
	current, err := ir.MarshalCanonical(harness.Snapshot(name, result))
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	path := filepath.Join(opts.Golden, name+".golden")

	if opts.Update {
		if err := os.MkdirAll(opts.Golden, 0o755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, current, 0o644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}

	golden, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("golden file missing: %s (run with --update to create)", path)
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(bytes.TrimSpace(golden), current) {
		return fmt.Errorf("outcome does not match %s (run with --update to regenerate)", path)
	}
	return nil
}

func writeValidateText(w io.Writer, result ValidateResult) {
	for _, sr := range result.Scenarios {
		if sr.Pass {
			fmt.Fprintf(w, "✓ %s (%s)\n", sr.Name, sr.State)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
