package catalog

import "github.com/roach88/blockgen/internal/ir"

// Kind names of the transceiver front-end blocks.
const (
	KindDelayCell  = "DelayCell"
	KindBuffer     = "Buffer"
	KindDriver     = "Driver"
	KindComparator = "Comparator"
)

// DriverSegments is the width of the driver's pull-up and pull-down
// control arrays.
const DriverSegments = 16

// DelayCell is a current-starved inverter, the stage of a ring VCO. The
// tune voltage sets the delay between delay_min and delay_max.
func DelayCell() ir.KindSpec {
	return ir.KindSpec{
		Name:        KindDelayCell,
		Description: "current-starved inverter delay stage",
		Ports: ports(
			ir.PortSpec{Name: "tune", Dir: ir.DirInput},
			ir.PortSpec{Name: "input", Dir: ir.DirInput},
			ir.PortSpec{Name: "output", Dir: ir.DirOutput},
		),
		Params: []ir.ParamSpec{
			{Name: "delay_min", Unit: "s", Range: "(0, 1u]"},
			{Name: "delay_max", Unit: "s", Range: "(0, 1u]"},
			{Name: "tr", Unit: "s", Range: "(0, 1n]", Optional: true},
			{Name: "tf", Unit: "s", Range: "(0, 1n]", Optional: true},
		},
		Constraints: []ir.ConstraintSpec{
			{Name: "delay_order", Rule: "delay_min <= delay_max"},
		},
	}
}

// Buffer is a chain of inverters that restores a single-ended edge. An odd
// number of stages inverts the signal.
func Buffer() ir.KindSpec {
	return ir.KindSpec{
		Name:        KindBuffer,
		Description: "inverter-chain buffer",
		Ports: ports(
			ir.PortSpec{Name: "din", Dir: ir.DirInput},
			ir.PortSpec{Name: "dout", Dir: ir.DirOutput},
		),
		Params: []ir.ParamSpec{
			{Name: "stages", Range: "[1, 8]", Default: "2", Description: "inverters in the chain"},
			{Name: "t_delay", Unit: "s", Range: "(0, 1n]", Description: "din to dout propagation delay"},
			{Name: "max_frequency", Unit: "Hz", Range: "(0, 100G]", Optional: true},
		},
		Constraints: []ir.ConstraintSpec{
			{Name: "buffer_whole_stages", Rule: "integer(stages)"},
			{
				Name:        "buffer_delay_within_period",
				Rule:        "max_frequency * t_delay < 1",
				Description: "an edge leaves before the next one arrives",
			},
		},
	}
}

// Driver is a segmented voltage-mode output driver. Each segment has its
// own pull-up enable and active-low pull-down enable.
func Driver() ir.KindSpec {
	return ir.KindSpec{
		Name:        KindDriver,
		Description: "segmented voltage-mode transmit driver",
		Ports: ports(
			ir.PortSpec{Name: "din", Dir: ir.DirInput},
			ir.PortSpec{Name: "dout", Dir: ir.DirOutput},
			ir.PortSpec{Name: "pu_ctl", Dir: ir.DirInput, Width: DriverSegments},
			ir.PortSpec{Name: "pd_ctlb", Dir: ir.DirInput, Width: DriverSegments},
		),
		Params: []ir.ParamSpec{
			{Name: "num_segments", Range: "[1, 16]", Default: "16"},
			{Name: "banks", Range: "[1, 16]", Default: "1"},
			{Name: "r_out", Unit: "Ohm", Range: "[25, 60]", Optional: true, Description: "output impedance"},
			{Name: "slew", Unit: "UI", Range: "[0.1, 0.25]", Description: "20-80% edge time"},
			{Name: "crosstalk", Range: "[0, 0.05)", Optional: true, Description: "aggressor to victim amplitude ratio"},
		},
		Constraints: []ir.ConstraintSpec{
			{Name: "driver_whole_segments", Rule: "integer(num_segments) && integer(banks)"},
			{Name: "driver_banks_le_segments", Rule: "banks <= num_segments"},
		},
	}
}

// Comparator is a clocked StrongARM latch with differential input and
// output.
func Comparator() ir.KindSpec {
	return ir.KindSpec{
		Name:        KindComparator,
		Description: "clocked StrongARM comparator",
		Ports: ports(
			ir.PortSpec{Name: "input", Dir: ir.DirInput, Width: 2},
			ir.PortSpec{Name: "output", Dir: ir.DirOutput, Width: 2},
			ir.PortSpec{Name: "clock", Dir: ir.DirInput},
		),
		Params: []ir.ParamSpec{
			{Name: "v_offset", Unit: "V", Range: "[0, 50m]", Optional: true},
			{Name: "t_decision", Unit: "s", Range: "(0, 1n]"},
			{Name: "max_frequency", Unit: "Hz", Range: "(0, 100G]"},
		},
		Constraints: []ir.ConstraintSpec{
			{
				Name:        "comparator_decides_in_period",
				Rule:        "max_frequency * t_decision < 1",
				Description: "regeneration completes within one clock period",
			},
		},
	}
}
