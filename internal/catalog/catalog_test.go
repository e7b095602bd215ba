package catalog

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/registry"
)

// minimal in-range values for every required parameter.
var valid = map[string]map[string]string{
	KindVco:        {"fmin": "4GHz", "fmax": "8GHz"},
	KindChargePump: {"i_pump": "50uA", "r1": "1kOhm", "c1": "10pF", "c2": "1pF"},
	KindDff:        {},
	KindPfd:        {"max_frequency": "2GHz"},
	KindDivider:    {"div_min": "4", "div_max": "4"},
	KindPll:        {"fref": "2GHz"},
	KindDelayCell:  {"delay_min": "10ps", "delay_max": "40ps"},
	KindBuffer:     {"t_delay": "20ps"},
	KindDriver:     {"slew": "0.2UI"},
	KindComparator: {"t_decision": "50ps", "max_frequency": "10GHz"},
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := NewRegistry(nil)
	require.NoError(t, err)
	return reg
}

func TestSpecsRegister(t *testing.T) {
	reg := newRegistry(t)

	var names []string
	for _, s := range Specs() {
		names = append(names, s.Name)
	}
	assert.Equal(t, names, reg.Kinds())
	assert.Len(t, valid, reg.Len())

	pll, ok := reg.Kind(KindPll)
	require.True(t, ok)
	assert.True(t, pll.IsComposite())
	assert.Len(t, pll.Topology(), len(PllTopology()))
	assert.Equal(t, []string{"fout_min", "fout_max"}, []string{pll.Derived()[0].Name, pll.Derived()[1].Name})
}

func TestValidInstances(t *testing.T) {
	reg := newRegistry(t)
	for kind, values := range valid {
		t.Run(kind, func(t *testing.T) {
			inst, err := reg.Instantiate(kind, "x", values)
			require.NoError(t, err)
			assert.Len(t, inst.Values(), countBound(t, reg, kind, values))
		})
	}
}

// countBound is the number of parameters an instance holds: every supplied
// value plus defaults.
func countBound(t *testing.T, reg *registry.Registry, kind string, values map[string]string) int {
	t.Helper()
	k, ok := reg.Kind(kind)
	require.True(t, ok)
	n := 0
	for _, p := range k.Params() {
		if _, given := values[p.Name]; given || p.Default != nil {
			n++
		}
	}
	return n
}

func TestRangeBoundaries(t *testing.T) {
	tests := []struct {
		kind, param, value string
		ok                 bool
	}{
		{KindVco, "fmax", "100GHz", true},
		{KindVco, "fmax", "100.001GHz", false},
		{KindVco, "fmin", "0.001Hz", true},
		{KindVco, "fmin", "0Hz", false},
		{KindVco, "jitter", "0s", true},
		{KindVco, "jitter", "1ns", true},
		{KindVco, "jitter", "1.001ns", false},
		{KindChargePump, "i_pump", "1mA", true},
		{KindChargePump, "i_pump", "1.001mA", false},
		{KindChargePump, "r1", "1MOhm", true},
		{KindChargePump, "r1", "1000001Ohm", false},
		{KindChargePump, "c1", "1uF", true},
		{KindChargePump, "c1", "1001nF", false},
		{KindDff, "t_setup", "0s", true},
		{KindDff, "t_setup", "-1ps", false},
		{KindPfd, "max_frequency", "0Hz", false},
		{KindDivider, "div_min", "0", false},
		{KindDivider, "div_min", "1", true},
		{KindDivider, "div_max", "65536", true},
		{KindDivider, "div_max", "65537", false},
		{KindPll, "fref", "100GHz", true},
		{KindPll, "fref", "100000000001Hz", false},
		{KindDelayCell, "delay_max", "1us", true},
		{KindDelayCell, "delay_max", "1.001us", false},
		{KindBuffer, "t_delay", "1ns", true},
		{KindBuffer, "t_delay", "1.001ns", false},
		{KindBuffer, "stages", "8", true},
		{KindBuffer, "stages", "9", false},
		{KindDriver, "slew", "0.1UI", true},
		{KindDriver, "slew", "0.09UI", false},
		{KindDriver, "slew", "0.25UI", true},
		{KindDriver, "slew", "0.26UI", false},
		{KindDriver, "r_out", "24Ohm", false},
		{KindDriver, "r_out", "25Ohm", true},
		{KindDriver, "r_out", "60Ohm", true},
		{KindDriver, "r_out", "61Ohm", false},
		{KindDriver, "crosstalk", "0.04", true},
		{KindDriver, "crosstalk", "0.05", false},
		{KindDriver, "num_segments", "16", true},
		{KindDriver, "num_segments", "17", false},
		{KindComparator, "v_offset", "50mV", true},
		{KindComparator, "v_offset", "51mV", false},
		{KindComparator, "t_decision", "0s", false},
	}

	reg := newRegistry(t)
	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.param+"="+tt.value, func(t *testing.T) {
			values := maps.Clone(valid[tt.kind])
			values[tt.param] = tt.value

			_, err := reg.Instantiate(tt.kind, "x", values)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, ir.IsRangeError(err), "got %v", err)
			assert.True(t, ir.IsCode(err, ir.ErrCodeOutOfRange))
		})
	}
}

func TestUnitMismatchRejected(t *testing.T) {
	reg := newRegistry(t)
	values := maps.Clone(valid[KindVco])
	values["fmax"] = "8V"

	_, err := reg.Instantiate(KindVco, "vco", values)
	assert.True(t, ir.IsCode(err, ir.ErrCodeUnitMismatch))
}

func TestDriverArrays(t *testing.T) {
	reg := newRegistry(t)
	driver, ok := reg.Kind(KindDriver)
	require.True(t, ok)

	pu, ok := driver.Ports().Port("pu_ctl")
	require.True(t, ok)
	assert.Equal(t, DriverSegments, pu.Width)

	inst, err := reg.Instantiate(KindDriver, "tx", valid[KindDriver])
	require.NoError(t, err)
	n, ok := inst.Param("num_segments")
	require.True(t, ok)
	assert.Equal(t, "16", n.Value.String())
}

func TestRangeTableNarrowsCatalog(t *testing.T) {
	table := ir.RangeTable{
		KindVco: {"fmax": "(0, 6G]"},
	}
	reg, err := NewRegistry(nil, table)
	require.NoError(t, err)

	_, err = reg.Instantiate(KindVco, "vco", valid[KindVco])
	assert.True(t, ir.IsRangeError(err))

	_, err = NewRegistry(nil, ir.RangeTable{"Serdes": {"x": "[0, 1]"}})
	assert.True(t, ir.IsCode(err, ir.ErrCodeUnknownKind))
}
