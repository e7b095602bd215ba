package config

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/blockgen/internal/compiler"
	"github.com/roach88/blockgen/internal/ir"
)

// parseCUE reads the `ranges` field of a single CUE file. Kind libraries
// loaded by the check command carry the same field.
func parseCUE(filename string, data []byte) (ir.RangeTable, error) {
	v := cuecontext.New().CompileBytes(trimBOM(data), cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, err
	}
	rv := v.LookupPath(cue.ParsePath("ranges"))
	if !rv.Exists() {
		return ir.RangeTable{}, nil
	}
	return compiler.CompileRangeTable(rv)
}
