package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blockgen/internal/ir"
)

func TestCompileKindBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		kind: Vco: {
			description: "voltage-controlled oscillator"
			port: {
				tune: dir: "input"
				out: dir: "output"
				vdd: {dir: "inout", group: "pwr"}
			}
			param: {
				fmin: {unit: "Hz", range: "(0, 100G]"}
				fmax: {unit: "Hz", range: "(0, 100G]"}
				jitter: {unit: "s", range: "[0, 1n]", default: "0"}
				tr: {unit: "s", range: "(0, 1n]", optional: true}
			}
			constraint: vco_fmax_ge_fmin: "fmax >= fmin"
		}
	`)

	require.NoError(t, v.Err())
	spec, err := CompileKind(v.LookupPath(cue.ParsePath("kind.Vco")))
	require.NoError(t, err)

	assert.Equal(t, "Vco", spec.Name)
	assert.Equal(t, "voltage-controlled oscillator", spec.Description)
	assert.False(t, spec.IsComposite())
	assert.Equal(t, []ir.PortSpec{
		{Name: "tune", Dir: ir.DirInput},
		{Name: "out", Dir: ir.DirOutput},
		{Name: "vdd", Dir: ir.DirInOut, Group: "pwr"},
	}, spec.Ports)
	require.Len(t, spec.Params, 4)
	assert.Equal(t, ir.ParamSpec{Name: "jitter", Unit: "s", Range: "[0, 1n]", Default: "0"}, spec.Params[2])
	assert.True(t, spec.Params[3].Optional)
	assert.Equal(t, []ir.ConstraintSpec{{Name: "vco_fmax_ge_fmin", Rule: "fmax >= fmin"}}, spec.Constraints)
	assert.Empty(t, Validate(spec))
}

func TestCompileKindComposite(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		kind: Tree: {
			composite: true
			port: {
				ref: dir: "input"
				out: dir: "output"
			}
			param: fref: {unit: "Hz", range: "(0, 100G]"}
			role: {
				src: "Vco"
				div: "Divider"
			}
			derived: fout: "fref * div.div_max"
			topology: [
				["src.out", "div.clk_in"],
				{from: "src.out", to: "out"},
			]
			constraint: fits: {
				rule: "fout <= src.fmax"
				description: "VCO reaches the output frequency"
			}
		}
	`)

	require.NoError(t, v.Err())
	spec, err := CompileKind(v.LookupPath(cue.ParsePath("kind.Tree")))
	require.NoError(t, err)

	assert.True(t, spec.IsComposite())
	assert.Equal(t, []ir.RoleSpec{{Name: "src", Kind: "Vco"}, {Name: "div", Kind: "Divider"}}, spec.Roles)
	assert.Equal(t, []ir.DerivedSpec{{Name: "fout", Expr: "fref * div.div_max"}}, spec.Derived)
	assert.Equal(t, []ir.EdgeSpec{
		{From: "src.out", To: "div.clk_in"},
		{From: "src.out", To: "out"},
	}, spec.Topology)
	assert.Equal(t, "VCO reaches the output frequency", spec.Constraints[0].Description)
	assert.Empty(t, Validate(spec))
}

func TestCompileKindNumericDefault(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		kind: Driver: {
			port: dout: dir: "output"
			param: {
				banks: {range: "[1, 16]", default: 2}
				slew: {unit: "UI", range: "[0.1, 0.25]", default: 0.125}
			}
		}
	`)

	require.NoError(t, v.Err())
	spec, err := CompileKind(v.LookupPath(cue.ParsePath("kind.Driver")))
	require.NoError(t, err)
	assert.Equal(t, "2", spec.Params[0].Default)
	assert.Equal(t, "0.125", spec.Params[1].Default)
}

func TestCompileKindErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "no ports",
			src:     `kind: K: { param: x: range: "[0, 1]" }`,
			wantErr: "at least one port",
		},
		{
			name:    "port without direction",
			src:     `kind: K: { port: a: width: 2 }`,
			wantErr: "port.a.dir",
		},
		{
			name:    "role not a string",
			src:     `kind: K: { port: a: dir: "input", role: r: 3 }`,
			wantErr: "role must name a kind",
		},
		{
			name:    "constraint without rule",
			src:     `kind: K: { port: a: dir: "input", constraint: c: description: "x" }`,
			wantErr: "constraint.c.rule",
		},
		{
			name:    "short edge",
			src:     `kind: K: { port: a: dir: "input", topology: [["a"]] }`,
			wantErr: "edge must be [from, to]",
		},
		{
			name:    "boolean default",
			src:     `kind: K: { port: a: dir: "input", param: x: default: true }`,
			wantErr: "expected a string or number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := cuecontext.New()
			v := ctx.CompileString(tt.src)
			require.NoError(t, v.Err())

			_, err := CompileKind(v.LookupPath(cue.ParsePath("kind.K")))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var ce *CompileError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestCompileKindCUEError(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		kind: K: {
			port: a: dir: "input"
			port: a: dir: "output"
		}
	`)

	_, err := CompileKind(v.LookupPath(cue.ParsePath("kind.K")))
	require.Error(t, err)
}

func TestCompileRangeTable(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		ranges: {
			Vco: {
				fmin: "(0, 6G]"
				fmax: "(0, 6G]"
			}
			Driver: slew: "[0.12, 0.2]"
		}
	`)

	require.NoError(t, v.Err())
	table, err := CompileRangeTable(v.LookupPath(cue.ParsePath("ranges")))
	require.NoError(t, err)

	assert.Equal(t, ir.RangeTable{
		"Vco":    {"fmin": "(0, 6G]", "fmax": "(0, 6G]"},
		"Driver": {"slew": "[0.12, 0.2]"},
	}, table)

	bad := ctx.CompileString(`ranges: Vco: fmax: 6`)
	_, err = CompileRangeTable(bad.LookupPath(cue.ParsePath("ranges")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Vco.fmax")
}

func TestCompileLibraryFromDir(t *testing.T) {
	insts := load.Instances([]string{"."}, &load.Config{Dir: "../../testdata/blocks"})
	require.Len(t, insts, 1)
	require.NoError(t, insts[0].Err)

	v := cuecontext.New().BuildInstance(insts[0])
	require.NoError(t, v.Err())

	lib, err := CompileLibrary(v)
	require.NoError(t, err)

	require.Len(t, lib.Kinds, 2)
	assert.Equal(t, "Repeater", lib.Kinds[0].Name)
	assert.Equal(t, "ClockTree", lib.Kinds[1].Name)
	assert.Equal(t, "1", lib.Kinds[0].Params[2].Default)
	assert.Equal(t, ir.RangeTable{
		"Repeater": {"t_delay": "(0, 500p]"},
		"Vco":      {"fmax": "(0, 20G]"},
	}, lib.Ranges)

	for _, k := range lib.Kinds {
		assert.Empty(t, Validate(k), k.Name)
	}
}
