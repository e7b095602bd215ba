package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/blockgen/internal/ir"
)

// Library is everything a CUE kind library declares: kind specs under
// `kind` and range overrides under `ranges`.
type Library struct {
	Kinds  []ir.KindSpec
	Ranges ir.RangeTable
}

// CompileLibrary compiles the `kind` and `ranges` fields of a loaded CUE
// value. Kinds are returned in dependency order (see OrderKinds).
func CompileLibrary(v cue.Value) (*Library, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	kinds, err := CompileKinds(v.LookupPath(cue.ParsePath("kind")))
	if err != nil {
		return nil, err
	}
	ordered, err := OrderKinds(kinds)
	if err != nil {
		return nil, err
	}
	lib := &Library{Kinds: ordered}
	if rv := v.LookupPath(cue.ParsePath("ranges")); rv.Exists() {
		if lib.Ranges, err = CompileRangeTable(rv); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// CompileRangeTable parses a CUE value of the form
//
//	Vco: fmax: "(0, 6G]"
//	Driver: slew: "[0.12, 0.2]"
//
// into a RangeTable. Each range must be a string in interval notation.
func CompileRangeTable(v cue.Value) (ir.RangeTable, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	table := make(ir.RangeTable)
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		kind := iter.Label()
		params, err := iter.Value().Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		ranges := make(ir.KindRanges)
		for params.Next() {
			rv := params.Value()
			r, err := rv.String()
			if err != nil {
				return nil, &CompileError{
					Field:   kind + "." + params.Label(),
					Message: "range must be a string in interval notation",
					Pos:     rv.Pos(),
				}
			}
			ranges[params.Label()] = r
		}
		table[kind] = ranges
	}
	return table, nil
}
