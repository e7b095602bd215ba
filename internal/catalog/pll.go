package catalog

import "github.com/roach88/blockgen/internal/ir"

// Kind names of the PLL family.
const (
	KindVco        = "Vco"
	KindChargePump = "ChargePump"
	KindDff        = "Dff"
	KindPfd        = "Pfd"
	KindDivider    = "Divider"
	KindPll        = "Pll"
)

// Role names of the Pll composite.
const (
	RolePfd        = "pfd"
	RoleChargePump = "charge_pump"
	RoleVco        = "vco"
	RoleDivider    = "divider"
)

func power() []ir.PortSpec {
	return []ir.PortSpec{
		{Name: "vdd", Dir: ir.DirInOut, Group: "pwr"},
		{Name: "vss", Dir: ir.DirInOut, Group: "pwr"},
	}
}

func ports(ps ...ir.PortSpec) []ir.PortSpec {
	return append(ps, power()...)
}

// Vco is a voltage-controlled oscillator tuned by a single control voltage.
func Vco() ir.KindSpec {
	return ir.KindSpec{
		Name:        KindVco,
		Description: "voltage-controlled oscillator",
		Ports: ports(
			ir.PortSpec{Name: "tune", Dir: ir.DirInput},
			ir.PortSpec{Name: "out", Dir: ir.DirOutput},
		),
		Params: []ir.ParamSpec{
			{Name: "fmin", Unit: "Hz", Range: "(0, 100G]", Description: "lowest reachable frequency"},
			{Name: "fmax", Unit: "Hz", Range: "(0, 100G]", Description: "highest reachable frequency"},
			{Name: "jitter", Unit: "s", Range: "[0, 1n]", Default: "0"},
			{Name: "maxcap", Unit: "F", Range: "[0, 1n]", Optional: true, Description: "largest output load"},
			{Name: "tr", Unit: "s", Range: "(0, 1n]", Optional: true},
			{Name: "tf", Unit: "s", Range: "(0, 1n]", Optional: true},
		},
		Constraints: []ir.ConstraintSpec{
			{Name: "vco_fmax_ge_fmin", Rule: "fmax >= fmin", Description: "tuning range is not inverted"},
			{Name: "vco_edges_within_period", Rule: "fmax * (tr + tf) < 1", Description: "rise and fall fit in one period"},
		},
	}
}

// ChargePump converts PFD up/down pulses into a control voltage. The loop
// filter components are carried as parameters; the filter itself is a
// pass-through.
func ChargePump() ir.KindSpec {
	return ir.KindSpec{
		Name:        KindChargePump,
		Description: "charge pump with passive loop filter",
		Ports: ports(
			ir.PortSpec{Name: "up", Dir: ir.DirInput},
			ir.PortSpec{Name: "down", Dir: ir.DirInput},
			ir.PortSpec{Name: "vcont", Dir: ir.DirOutput},
		),
		Params: []ir.ParamSpec{
			{Name: "i_pump", Unit: "A", Range: "(0, 1m]", Description: "pump current"},
			{Name: "r1", Unit: "Ohm", Range: "(0, 1M]"},
			{Name: "c1", Unit: "F", Range: "(0, 1u]"},
			{Name: "c2", Unit: "F", Range: "(0, 1u]"},
		},
		Constraints: []ir.ConstraintSpec{
			{Name: "cp_c2_lt_c1", Rule: "c2 < c1", Description: "ripple capacitor is smaller than the main capacitor"},
		},
	}
}

// Dff is a resettable D flip-flop, the building block of the PFD.
func Dff() ir.KindSpec {
	return ir.KindSpec{
		Name:        KindDff,
		Description: "D flip-flop with reset",
		Ports: ports(
			ir.PortSpec{Name: "d", Dir: ir.DirInput},
			ir.PortSpec{Name: "clk", Dir: ir.DirInput},
			ir.PortSpec{Name: "rst", Dir: ir.DirInput},
			ir.PortSpec{Name: "q", Dir: ir.DirOutput},
			ir.PortSpec{Name: "qb", Dir: ir.DirOutput},
		),
		Params: []ir.ParamSpec{
			{Name: "t_setup", Unit: "s", Range: "[0, 1u]", Default: "0"},
			{Name: "t_hold", Unit: "s", Range: "[0, 1u]", Default: "0"},
			{Name: "t_clk_q", Unit: "s", Range: "[0, 1u]", Default: "0"},
			{Name: "max_frequency", Unit: "Hz", Range: "(0, 100G]", Optional: true},
		},
		Constraints: []ir.ConstraintSpec{
			{
				Name:        "dff_timing_closure",
				Rule:        "max_frequency * (t_setup + t_clk_q) <= 1",
				Description: "setup plus clock-to-q fits in one period",
			},
		},
	}
}

// Pfd is a phase-frequency detector comparing a against b.
func Pfd() ir.KindSpec {
	return ir.KindSpec{
		Name:        KindPfd,
		Description: "phase-frequency detector",
		Ports: ports(
			ir.PortSpec{Name: "a", Dir: ir.DirInput},
			ir.PortSpec{Name: "b", Dir: ir.DirInput},
			ir.PortSpec{Name: "q_a", Dir: ir.DirOutput},
			ir.PortSpec{Name: "q_b", Dir: ir.DirOutput},
		),
		Params: []ir.ParamSpec{
			{Name: "max_frequency", Unit: "Hz", Range: "(0, 100G]"},
			{Name: "jitter", Unit: "s", Range: "[0, 1n]", Default: "0"},
		},
	}
}

// Divider divides its input clock by a ratio between div_min and div_max.
func Divider() ir.KindSpec {
	return ir.KindSpec{
		Name:        KindDivider,
		Description: "programmable feedback divider",
		Ports: ports(
			ir.PortSpec{Name: "clk_in", Dir: ir.DirInput},
			ir.PortSpec{Name: "clk_out", Dir: ir.DirOutput},
		),
		Params: []ir.ParamSpec{
			{Name: "div_min", Range: "[1, 65536]"},
			{Name: "div_max", Range: "[1, 65536]"},
		},
		Constraints: []ir.ConstraintSpec{
			{Name: "div_min_pow2", Rule: "pow2(div_min)", Description: "minimum ratio is a power of two"},
			{Name: "div_max_pow2", Rule: "pow2(div_max)", Description: "maximum ratio is a power of two"},
			{Name: "div_min_le_max", Rule: "div_min <= div_max"},
		},
	}
}

// PllTopology is the fixed wiring of the Pll composite: the feedback loop,
// the reference input, the output export and power distribution.
func PllTopology() []ir.EdgeSpec {
	edges := []ir.EdgeSpec{
		{From: "ref", To: "pfd.a"},
		{From: "pfd.q_a", To: "charge_pump.up"},
		{From: "pfd.q_b", To: "charge_pump.down"},
		{From: "charge_pump.vcont", To: "vco.tune"},
		{From: "vco.out", To: "divider.clk_in"},
		{From: "divider.clk_out", To: "pfd.b"},
		{From: "vco.out", To: "out"},
	}
	for _, role := range []string{RolePfd, RoleChargePump, RoleVco, RoleDivider} {
		edges = append(edges,
			ir.EdgeSpec{From: "vdd", To: role + ".vdd"},
			ir.EdgeSpec{From: "vss", To: role + ".vss"},
		)
	}
	return edges
}

// Pll is an integer-N frequency synthesizer composed of the four loop
// blocks. Its output range is fref times the divider range.
func Pll() ir.KindSpec {
	return ir.KindSpec{
		Name:        KindPll,
		Description: "integer-N phase-locked loop",
		Composite:   true,
		Ports: ports(
			ir.PortSpec{Name: "ref", Dir: ir.DirInput},
			ir.PortSpec{Name: "out", Dir: ir.DirOutput},
		),
		Params: []ir.ParamSpec{
			{Name: "fref", Unit: "Hz", Range: "(0, 100G]", Description: "reference frequency"},
			{Name: "jitter_budget", Unit: "s", Range: "(0, 1n]", Optional: true},
		},
		Roles: []ir.RoleSpec{
			{Name: RolePfd, Kind: KindPfd},
			{Name: RoleChargePump, Kind: KindChargePump},
			{Name: RoleVco, Kind: KindVco},
			{Name: RoleDivider, Kind: KindDivider},
		},
		Topology: PllTopology(),
		Derived: []ir.DerivedSpec{
			{Name: "fout_min", Expr: "fref * divider.div_min"},
			{Name: "fout_max", Expr: "fref * divider.div_max"},
		},
		Constraints: []ir.ConstraintSpec{
			{
				Name:        "pll_ref_within_pfd",
				Rule:        "fref <= pfd.max_frequency",
				Description: "reference rate is within the PFD's operating range",
			},
			{
				Name:        "pll_vco_covers_fout_max",
				Rule:        "fout_max <= vco.fmax",
				Description: "highest target output frequency is reachable by the VCO",
			},
			{
				Name:        "pll_vco_covers_fout_min",
				Rule:        "fout_min >= vco.fmin",
				Description: "lowest target output frequency is reachable by the VCO",
			},
			{
				Name:        "pll_jitter_budget",
				Rule:        "vco.jitter + pfd.jitter <= jitter_budget",
				Description: "summed jitter contributions fit the global budget",
			},
		},
	}
}
