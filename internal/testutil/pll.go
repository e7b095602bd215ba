// Package testutil provides fixtures shared by package tests: the reference
// PLL design and deterministic ID generation.
package testutil

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/blockgen/internal/catalog"
	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/registry"
)

// Block is one sub-instance of a fixture design.
type Block struct {
	Kind   string
	Name   string
	Values map[string]string
}

// PllParams returns the reference PLL's composite parameters: a 2GHz
// reference.
func PllParams() map[string]string {
	return map[string]string{"fref": "2GHz"}
}

// PllBlocks returns the reference PLL's sub-blocks: a 4-8GHz VCO, a
// 50uA charge pump with a 1kOhm/10pF/1pF filter, a 2GHz PFD and a
// divide-by-4. Together with PllParams they validate with fout = 8GHz.
func PllBlocks() []Block {
	return []Block{
		{Kind: catalog.KindPfd, Name: catalog.RolePfd, Values: map[string]string{
			"max_frequency": "2GHz",
		}},
		{Kind: catalog.KindChargePump, Name: catalog.RoleChargePump, Values: map[string]string{
			"i_pump": "50µA",
			"r1":     "1kΩ",
			"c1":     "10pF",
			"c2":     "1pF",
		}},
		{Kind: catalog.KindVco, Name: catalog.RoleVco, Values: map[string]string{
			"fmin": "4GHz",
			"fmax": "8GHz",
		}},
		{Kind: catalog.KindDivider, Name: catalog.RoleDivider, Values: map[string]string{
			"div_min": "4",
			"div_max": "4",
		}},
	}
}

// WithValue returns a copy of blocks with one parameter of one block
// replaced (or added).
func WithValue(blocks []Block, block, param, value string) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		b.Values = maps.Clone(b.Values)
		if b.Name == block {
			b.Values[param] = value
		}
		out[i] = b
	}
	return out
}

// Registry returns a fresh catalog registry with tables applied.
func Registry(t testing.TB, tables ...ir.RangeTable) *registry.Registry {
	t.Helper()
	reg, err := catalog.NewRegistry(nil, tables...)
	require.NoError(t, err)
	return reg
}
