// Package catalog holds the built-in block kinds: the PLL family (Vco,
// ChargePump, Dff, Pfd, Divider and the Pll composite) and the transceiver
// front-end blocks (DelayCell, Buffer, Driver, Comparator).
//
// Ranges here are deliberately wide and process-independent. Technology
// limits arrive through range tables.
package catalog

import (
	"log/slog"

	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/registry"
)

// Specs returns every built-in kind in registration order. Composite kinds
// follow the kinds their roles need.
func Specs() []ir.KindSpec {
	return []ir.KindSpec{
		Vco(),
		ChargePump(),
		Dff(),
		Pfd(),
		Divider(),
		Pll(),
		DelayCell(),
		Buffer(),
		Driver(),
		Comparator(),
	}
}

// NewRegistry returns a fresh registry seeded with the built-in kinds, with
// the given range tables applied in order.
func NewRegistry(logger *slog.Logger, tables ...ir.RangeTable) (*registry.Registry, error) {
	reg := registry.New(registry.WithLogger(logger))
	for _, spec := range Specs() {
		if _, err := reg.Register(spec); err != nil {
			return nil, err
		}
	}
	for _, t := range tables {
		if err := reg.ApplyRangeTable(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
