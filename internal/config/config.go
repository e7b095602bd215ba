// Package config decodes electrical range tables from files.
//
// A range table maps block kind -> parameter -> range in interval
// notation. The same table can be written in three formats, chosen by file
// extension:
//
//	# ranges.yaml
//	ranges:
//	  Vco:
//	    fmax: "(0, 6G]"
//
//	// ranges.cue
//	ranges: Vco: fmax: "(0, 6G]"
//
//	# ranges.hcl
//	kind "Vco" {
//	  fmax = "(0, 6G]"
//	  fmin = [1e9, 6e9]   # closed range, numbers taken verbatim from source
//	}
//
// Decoding is strict: unknown top-level keys and malformed ranges are
// errors. Units are checked when the table is applied to a registry.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/blockgen/internal/compiler"
	"github.com/roach88/blockgen/internal/ir"
)

// Supported range table extensions.
const (
	ExtYAML = ".yaml"
	ExtYML  = ".yml"
	ExtCUE  = ".cue"
	ExtHCL  = ".hcl"
)

// LoadRangeTable reads one range table file.
func LoadRangeTable(path string) (ir.RangeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading range table: %w", err)
	}
	table, err := ParseRangeTable(path, data)
	if err != nil {
		return nil, err
	}
	return table, nil
}

// LoadRangeTables reads several files and merges them in order; later
// files override earlier ones parameter by parameter.
func LoadRangeTables(paths ...string) (ir.RangeTable, error) {
	merged := ir.RangeTable{}
	for _, p := range paths {
		t, err := LoadRangeTable(p)
		if err != nil {
			return nil, err
		}
		merged = merged.Merge(t)
	}
	return merged, nil
}

// ParseRangeTable decodes data in the format implied by filename's
// extension and lints the result.
func ParseRangeTable(filename string, data []byte) (ir.RangeTable, error) {
	var (
		table ir.RangeTable
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ExtYAML, ExtYML:
		table, err = parseYAML(data)
	case ExtCUE:
		table, err = parseCUE(filename, data)
	case ExtHCL:
		table, err = parseHCL(filename, data)
	default:
		return nil, fmt.Errorf("%s: unsupported range table format %q (want .yaml, .yml, .cue or .hcl)", filename, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if table == nil {
		table = ir.RangeTable{}
	}

	if lint := compiler.Validate(table); len(lint) > 0 {
		errs := make([]error, len(lint))
		for i, e := range lint {
			errs[i] = e
		}
		return nil, fmt.Errorf("%s: %w", filename, errors.Join(errs...))
	}
	return table, nil
}

// trimBOM drops a UTF-8 byte order mark some editors prepend.
func trimBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
}
