package port

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blockgen/internal/ir"
)

func mustBundle(t *testing.T, specs ...ir.PortSpec) *Bundle {
	t.Helper()
	b, err := FromSpecs(specs)
	require.NoError(t, err)
	return b
}

func vcoBundle(t *testing.T) *Bundle {
	return mustBundle(t,
		ir.PortSpec{Name: "tune", Dir: ir.DirInput},
		ir.PortSpec{Name: "out", Dir: ir.DirOutput},
		ir.PortSpec{Name: "vdd", Dir: ir.DirInOut, Group: "pwr"},
		ir.PortSpec{Name: "vss", Dir: ir.DirInOut, Group: "pwr"},
	)
}

func driverBundle(t *testing.T) *Bundle {
	return mustBundle(t,
		ir.PortSpec{Name: "din", Dir: ir.DirInput},
		ir.PortSpec{Name: "dout", Dir: ir.DirOutput},
		ir.PortSpec{Name: "pu_ctl", Dir: ir.DirInput, Width: 16},
		ir.PortSpec{Name: "pd_ctlb", Dir: ir.DirInput, Width: 16},
	)
}

func controlBundle(t *testing.T) *Bundle {
	return mustBundle(t,
		ir.PortSpec{Name: "code", Dir: ir.DirOutput, Width: 16},
		ir.PortSpec{Name: "narrow", Dir: ir.DirOutput, Width: 8},
		ir.PortSpec{Name: "en", Dir: ir.DirOutput},
		ir.PortSpec{Name: "sense", Dir: ir.DirInput},
	)
}

func TestBundle(t *testing.T) {
	b := vcoBundle(t)
	assert.Equal(t, 4, b.Len())

	p, ok := b.Port("out")
	require.True(t, ok)
	assert.Equal(t, Output, p.Dir)
	assert.Equal(t, 1, p.Bits())

	pwr := b.Group("pwr")
	require.Len(t, pwr, 2)
	assert.Equal(t, "vdd", pwr[0].Name)

	// Ports returns a copy.
	ports := b.Ports()
	ports[0].Name = "changed"
	p, _ = b.Port("tune")
	assert.Equal(t, "tune", p.Name)
}

func TestBundleErrors(t *testing.T) {
	_, err := NewBundle(Port{Name: "a"}, Port{Name: "a", Dir: Output})
	assert.True(t, ir.IsCode(err, ir.ErrCodeDuplicatePort))

	_, err = NewBundle(Port{Name: "x", Width: -1})
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidKind))

	_, err = NewBundle(Port{Name: "1bad"})
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidKind))

	_, err = FromSpecs([]ir.PortSpec{{Name: "a", Dir: "sideways"}})
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidKind))
	assert.True(t, ir.IsSchemaError(err))
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		input string
		want  Endpoint
	}{
		{"vco.out", At("vco", "out")},
		{"drv.pu_ctl[3]", At("drv", "pu_ctl").Elem(3)},
		{"ref", Boundary("ref")},
		{"bus[0]", Boundary("bus").Elem(0)},
		{" pfd.q_a ", At("pfd", "q_a")},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEndpoint(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "vco.", ".out", "a.b.c", "x[", "x[-1]", "x[a]", "x[1]y", "9a.out"} {
		_, err := ParseEndpoint(bad)
		assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidEndpoint), "input %q got %v", bad, err)
	}

	assert.Equal(t, "drv.pu_ctl[3]", At("drv", "pu_ctl").Elem(3).String())
	assert.Equal(t, "ref", Boundary("ref").String())
}

func TestConnectDirections(t *testing.T) {
	boundary := mustBundle(t,
		ir.PortSpec{Name: "ref", Dir: ir.DirInput},
		ir.PortSpec{Name: "out", Dir: ir.DirOutput},
	)
	w := NewWiring(boundary)
	require.NoError(t, w.AddInstance("vco", vcoBundle(t)))
	require.NoError(t, w.AddInstance("vco2", vcoBundle(t)))

	// Boundary input drives inward; boundary output is driven from inside.
	_, err := w.Connect(Boundary("ref"), At("vco", "tune"))
	require.NoError(t, err)
	_, err = w.Connect(At("vco", "out"), Boundary("out"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		from, to Endpoint
	}{
		{"input as source", At("vco2", "tune"), At("vco", "tune")},
		{"output as sink", At("vco", "out"), At("vco2", "out")},
		{"boundary output as source", Boundary("out"), At("vco2", "tune")},
		{"boundary input as sink", At("vco2", "out"), Boundary("ref")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.Connect(tt.from, tt.to)
			require.Error(t, err)
			assert.True(t, ir.IsCode(err, ir.ErrCodeDirectionMismatch), "got %v", err)
		})
	}
}

func TestConnectWidths(t *testing.T) {
	w := NewWiring(nil)
	require.NoError(t, w.AddInstance("ctl", controlBundle(t)))
	require.NoError(t, w.AddInstance("drv", driverBundle(t)))

	c, err := w.Connect(At("ctl", "code"), At("drv", "pu_ctl"))
	require.NoError(t, err)
	assert.Equal(t, 16, c.Width)

	_, err = w.Connect(At("ctl", "narrow"), At("drv", "pd_ctlb"))
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeWidthMismatch))

	// Scalar to array element is width 1 on both sides.
	_, err = w.Connect(At("ctl", "en"), At("drv", "pd_ctlb").Elem(0))
	require.NoError(t, err)

	// Array elements pair with each other and with scalars.
	_, err = w.Connect(At("ctl", "en"), At("drv", "din"))
	require.NoError(t, err)
	_, err = w.Connect(At("ctl", "narrow").Elem(7), At("drv", "pd_ctlb").Elem(15))
	require.NoError(t, err)

	_, err = w.Connect(At("ctl", "narrow").Elem(8), At("drv", "pd_ctlb").Elem(1))
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidEndpoint))
	_, err = w.Connect(At("ctl", "en").Elem(0), At("drv", "pd_ctlb").Elem(1))
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidEndpoint))
}

func TestConnectSingleDriver(t *testing.T) {
	w := NewWiring(nil)
	require.NoError(t, w.AddInstance("ctl", controlBundle(t)))
	require.NoError(t, w.AddInstance("alt", controlBundle(t)))
	require.NoError(t, w.AddInstance("drv", driverBundle(t)))

	_, err := w.Connect(At("ctl", "en"), At("drv", "din"))
	require.NoError(t, err)

	_, err = w.Connect(At("alt", "en"), At("drv", "din"))
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodePortAlreadyDriven))
	e, _ := ir.AsError(err)
	assert.Equal(t, "ctl.en", e.Details["driver"])

	// Element drive then whole-array drive overlaps on bit 5.
	_, err = w.Connect(At("ctl", "en"), At("drv", "pu_ctl").Elem(5))
	require.NoError(t, err)
	_, err = w.Connect(At("alt", "code"), At("drv", "pu_ctl"))
	assert.True(t, ir.IsCode(err, ir.ErrCodePortAlreadyDriven))

	// Fan-out from one source is fine.
	_, err = w.Connect(At("ctl", "en"), At("drv", "pu_ctl").Elem(6))
	require.NoError(t, err)

	driver, ok := w.DriverOf(At("drv", "pu_ctl").Elem(5))
	require.True(t, ok)
	assert.Equal(t, At("ctl", "en"), driver)

	// A failed connect records nothing.
	assert.Len(t, w.Connections(), 3)
}

func TestConnectUnknowns(t *testing.T) {
	w := NewWiring(nil)
	require.NoError(t, w.AddInstance("vco", vcoBundle(t)))

	_, err := w.Connect(At("ghost", "out"), At("vco", "tune"))
	assert.True(t, ir.IsCode(err, ir.ErrCodeUnknownInstance))

	_, err = w.Connect(At("vco", "nope"), At("vco", "tune"))
	assert.True(t, ir.IsCode(err, ir.ErrCodeUnknownPort))

	_, err = w.Connect(At("vco", "vdd"), At("vco", "vdd"))
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidEndpoint))

	err = w.AddInstance("vco", vcoBundle(t))
	assert.True(t, ir.IsCode(err, ir.ErrCodeDuplicateInstance))
}

func TestConnectedAndUndriven(t *testing.T) {
	boundary := mustBundle(t, ir.PortSpec{Name: "vdd", Dir: ir.DirInOut})
	w := NewWiring(boundary)
	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, w.AddInstance(n, vcoBundle(t)))
	}
	_, err := w.Connect(At("a", "out"), At("b", "tune"))
	require.NoError(t, err)
	// Shared boundary nets do not join instances.
	_, err = w.Connect(Boundary("vdd"), At("a", "vdd"))
	require.NoError(t, err)
	_, err = w.Connect(Boundary("vdd"), At("c", "vdd"))
	require.NoError(t, err)

	assert.True(t, w.Connected("a", "b"))
	assert.True(t, w.Connected("b", "a"))
	assert.False(t, w.Connected("a", "c"))
	assert.True(t, w.Connected("c"))

	assert.Equal(t, []Endpoint{At("a", "tune"), At("c", "tune")}, w.Undriven())
	assert.True(t, w.Has(At("a", "out"), At("b", "tune")))
	assert.False(t, w.Has(At("b", "out"), At("a", "tune")))
	assert.Equal(t, []string{"a", "b", "c"}, w.Instances())
}
