package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/blockgen/internal/catalog"
	"github.com/roach88/blockgen/internal/compiler"
	"github.com/roach88/blockgen/internal/config"
	"github.com/roach88/blockgen/internal/harness"
	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/registry"
)

// LoadResult is a loaded, not yet compiled, CUE kind library.
type LoadResult struct {
	CUEValue  cue.Value
	FileCount int
}

// LoadError represents an error that occurred while loading files.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants shared by all commands. Domain failures use the ir
// codes (OUT_OF_RANGE, TOPOLOGY_VIOLATION, ...) instead.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE or scenario files found
	ErrCodeLoadFailed  = "E004" // CUE load or file parse failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeCompile     = "E008" // CUE kind does not compile to a declaration
	ErrCodeStore       = "E009" // Database open/read error
	ErrCodeFilter      = "E010" // Malformed report filter
)

// LoadLibrary loads the CUE package in dir.
func LoadLibrary(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("library directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing library directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return &LoadResult{CUEValue: value, FileCount: len(cueFiles)}, nil
}

// FindCUEFiles returns the .cue files directly in dir. Subdirectories are
// separate CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// environment is what every design-building command shares: kinds from
// --library and range tables from the library and --config, in that order.
type environment struct {
	kinds  []ir.KindSpec
	tables []ir.RangeTable
	logger *slog.Logger
}

// loadEnvironment reads --library and --config. Failures are command
// errors.
func loadEnvironment(opts *RootOptions, f *OutputFormatter) (*environment, error) {
	env := &environment{logger: newLogger(opts, f.GetErrWriter())}

	if opts.Library != "" {
		loaded, err := LoadLibrary(opts.Library)
		if err != nil {
			var loadErr *LoadError
			if errors.As(err, &loadErr) {
				return nil, f.CommandError(loadErr.Code, loadErr.Message, nil)
			}
			return nil, f.CommandError(ErrCodeLoadFailed, "loading library", err)
		}
		lib, err := compiler.CompileLibrary(loaded.CUEValue)
		if err != nil {
			return nil, f.CommandError(ErrCodeCompile, "compiling library", err)
		}
		env.kinds = lib.Kinds
		if len(lib.Ranges) > 0 {
			env.tables = append(env.tables, lib.Ranges)
		}
		f.VerboseLog("Loaded %d kind(s) from %s", len(lib.Kinds), opts.Library)
	}

	if len(opts.Config) > 0 {
		table, err := config.LoadRangeTables(opts.Config...)
		if err != nil {
			return nil, f.CommandError(ErrCodeLoadFailed, "loading range tables", err)
		}
		env.tables = append(env.tables, table)
		f.VerboseLog("Loaded range tables: %v", opts.Config)
	}
	return env, nil
}

// registry returns a fresh registry: catalog kinds, library kinds, then
// range tables.
func (e *environment) registry() (*registry.Registry, error) {
	reg, err := catalog.NewRegistry(e.logger)
	if err != nil {
		return nil, err
	}
	for _, spec := range e.kinds {
		if _, err := reg.Register(spec); err != nil {
			return nil, err
		}
	}
	for _, t := range e.tables {
		if err := reg.ApplyRangeTable(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (e *environment) harnessOptions() []harness.Option {
	return []harness.Option{
		harness.WithLogger(e.logger),
		harness.WithKinds(e.kinds...),
		harness.WithRangeTables(e.tables...),
	}
}

// errorCode returns the ir code of err, or ErrCodeGeneric.
func errorCode(err error) string {
	if e, ok := ir.AsError(err); ok {
		return string(e.Code)
	}
	return ErrCodeGeneric
}
