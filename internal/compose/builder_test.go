package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blockgen/internal/catalog"
	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/registry"
	"github.com/roach88/blockgen/internal/testutil"
)

func assemble(t *testing.T, reg *registry.Registry, params map[string]string, blocks []testutil.Block) *Builder {
	t.Helper()
	b, err := NewBuilder(reg, catalog.KindPll, "pll")
	require.NoError(t, err)
	require.NoError(t, b.Begin(params))
	for _, blk := range blocks {
		_, err := b.AddInstance(blk.Kind, blk.Name, blk.Values)
		require.NoError(t, err, blk.Name)
	}
	return b
}

func finalizeCanonical(t *testing.T, params map[string]string, blocks []testutil.Block) *Result {
	t.Helper()
	b := assemble(t, testutil.Registry(t), params, blocks)
	require.NoError(t, b.WireCanonical())
	res, err := b.Finalize()
	require.NoError(t, err)
	return res
}

func skippedNames(r ir.Report) []string {
	names := make([]string, len(r.Skipped))
	for i, s := range r.Skipped {
		names[i] = s.Constraint
	}
	return names
}

func TestReferencePllValidates(t *testing.T) {
	res := finalizeCanonical(t, testutil.PllParams(), testutil.PllBlocks())

	require.Equal(t, Validated, res.State, "%v", res.Report.Violations)
	require.NoError(t, res.Err())
	require.NotNil(t, res.Design)

	fout, ok := res.Design.DerivedValue("fout_max")
	require.True(t, ok)
	assert.Equal(t, "8GHz", fout.String())
	fmin, _ := res.Design.DerivedValue("fout_min")
	assert.Equal(t, "8GHz", fmin.String())

	assert.Len(t, res.Design.Connections(), len(catalog.PllTopology()))
	assert.Len(t, res.Design.Instances(), 4)
	assert.Len(t, res.Design.Fingerprint(), 64)
	assert.Equal(t, []string{"vco_edges_within_period", "pll_jitter_budget"}, skippedNames(res.Report))
}

func TestVcoTooSlowRejects(t *testing.T) {
	blocks := testutil.WithValue(testutil.PllBlocks(), "vco", "fmax", "6GHz")
	res := finalizeCanonical(t, testutil.PllParams(), blocks)

	require.Equal(t, Rejected, res.State)
	assert.Nil(t, res.Design)
	assert.Equal(t, []string{"pll_vco_covers_fout_max"}, res.Report.Names())

	v := res.Report.Violations[0]
	assert.Equal(t, ir.PassCross, v.Pass)
	assert.Equal(t, []string{"divider", "vco"}, v.Instances)
	assert.Equal(t, "fout_max <= vco.fmax", v.Expected)
	assert.Equal(t, "8GHz vs 6GHz", v.Actual)

	err := res.Err()
	assert.True(t, ir.IsConstraintViolation(err))
	assert.Contains(t, err.Error(), "pll_vco_covers_fout_max")
}

func TestDividerPowerOfTwo(t *testing.T) {
	for _, tt := range []struct {
		ratio, fref string
	}{
		{"4", "2GHz"},
		{"8", "1GHz"},
		{"16", "500MHz"},
	} {
		t.Run(tt.ratio, func(t *testing.T) {
			blocks := testutil.WithValue(testutil.PllBlocks(), "divider", "div_min", tt.ratio)
			blocks = testutil.WithValue(blocks, "divider", "div_max", tt.ratio)
			res := finalizeCanonical(t, map[string]string{"fref": tt.fref}, blocks)
			assert.Equal(t, Validated, res.State, "%v", res.Report.Violations)
		})
	}

	blocks := testutil.WithValue(testutil.PllBlocks(), "divider", "div_min", "3")
	blocks = testutil.WithValue(blocks, "divider", "div_max", "3")
	res := finalizeCanonical(t, testutil.PllParams(), blocks)
	require.Equal(t, Rejected, res.State)
	assert.Equal(t, []string{"div_min_pow2", "div_max_pow2"}, res.Report.Names())
	for _, v := range res.Report.Violations {
		assert.Equal(t, ir.PassLocal, v.Pass)
		assert.Equal(t, "3", v.Actual)
	}
	assert.Contains(t, skippedNames(res.Report), "pll_vco_covers_fout_max")
}

func TestIndependentViolationsAllReported(t *testing.T) {
	blocks := testutil.WithValue(testutil.PllBlocks(), "vco", "fmax", "3GHz")
	blocks = testutil.WithValue(blocks, "charge_pump", "c2", "20pF")
	res := finalizeCanonical(t, testutil.PllParams(), blocks)

	require.Equal(t, Rejected, res.State)
	assert.Equal(t, []string{"cp_c2_lt_c1", "vco_fmax_ge_fmin"}, res.Report.Names())
}

// A local failure in a block outside a cross rule's participants does not
// hide that rule's violation.
func TestLocalAndCrossViolationsReportedTogether(t *testing.T) {
	blocks := testutil.WithValue(testutil.PllBlocks(), "vco", "fmax", "6GHz")
	blocks = testutil.WithValue(blocks, "charge_pump", "c2", "20pF")
	res := finalizeCanonical(t, testutil.PllParams(), blocks)

	require.Equal(t, Rejected, res.State)
	assert.Equal(t, []string{"cp_c2_lt_c1", "pll_vco_covers_fout_max"}, res.Report.Names())
	require.Len(t, res.Report.Violations, 2)
	assert.Equal(t, ir.PassLocal, res.Report.Violations[0].Pass)
	assert.Equal(t, []string{"charge_pump"}, res.Report.Violations[0].Instances)
	assert.Equal(t, ir.PassCross, res.Report.Violations[1].Pass)
}

// fout_max lands exactly on vco.fmax with more digits than division keeps.
func TestExactMarginValidates(t *testing.T) {
	params := map[string]string{"fref": "2.000000000000000000000000000000001GHz"}
	blocks := testutil.WithValue(testutil.PllBlocks(), "pfd", "max_frequency", "4GHz")
	blocks = testutil.WithValue(blocks, "divider", "div_min", "16")
	blocks = testutil.WithValue(blocks, "divider", "div_max", "16")
	blocks = testutil.WithValue(blocks, "vco", "fmax", "32.000000000000000000000000000000016GHz")

	res := finalizeCanonical(t, params, blocks)
	require.Equal(t, Validated, res.State, "%v", res.Report.Violations)
	fout, ok := res.Design.DerivedValue("fout_max")
	require.True(t, ok)
	assert.Equal(t, "32000000000.000000000000000000000016", fout.Canonical())

	// One part in 10^35 over the VCO still rejects.
	blocks = testutil.WithValue(blocks, "vco", "fmax", "32.000000000000000000000000000000015GHz")
	res = finalizeCanonical(t, params, blocks)
	require.Equal(t, Rejected, res.State)
	assert.Equal(t, []string{"pll_vco_covers_fout_max"}, res.Report.Names())
}

func TestFinalizeIsIdempotent(t *testing.T) {
	for _, blocks := range [][]testutil.Block{
		testutil.PllBlocks(),
		testutil.WithValue(testutil.PllBlocks(), "vco", "fmax", "6GHz"),
	} {
		b := assemble(t, testutil.Registry(t), testutil.PllParams(), blocks)
		require.NoError(t, b.WireCanonical())

		first, err := b.Finalize()
		require.NoError(t, err)
		second, err := b.Finalize()
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, first.State, b.State())
	}
}

func TestTerminalBuilderRejectsMutation(t *testing.T) {
	b := assemble(t, testutil.Registry(t), testutil.PllParams(), testutil.PllBlocks())
	require.NoError(t, b.WireCanonical())
	_, err := b.Finalize()
	require.NoError(t, err)

	_, err = b.AddInstance(catalog.KindVco, "vco", nil)
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidState))
	_, err = b.Connect("vco.out", "divider.clk_in")
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidState))
	assert.True(t, ir.IsCode(b.WireCanonical(), ir.ErrCodeInvalidState))
	assert.True(t, ir.IsCode(b.Begin(nil), ir.ErrCodeInvalidState))
}

func TestEmptyBuilder(t *testing.T) {
	b, err := NewBuilder(testutil.Registry(t), catalog.KindPll, "pll")
	require.NoError(t, err)
	assert.Equal(t, Empty, b.State())

	_, err = b.AddInstance(catalog.KindVco, "vco", nil)
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidState))
	_, err = b.Finalize()
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidState))

	err = b.Begin(map[string]string{"fref": "200GHz"})
	assert.True(t, ir.IsRangeError(err))
	assert.Equal(t, Empty, b.State())
}

func TestNewBuilderErrors(t *testing.T) {
	reg := testutil.Registry(t)
	_, err := NewBuilder(reg, "Serdes", "s")
	assert.True(t, ir.IsCode(err, ir.ErrCodeUnknownKind))
	_, err = NewBuilder(reg, catalog.KindVco, "v")
	assert.True(t, ir.IsCode(err, ir.ErrCodeInvalidKind))
}

func TestTopologyEnforced(t *testing.T) {
	b := assemble(t, testutil.Registry(t), testutil.PllParams(), testutil.PllBlocks())

	_, err := b.Connect("vco.out", "probe")
	assert.True(t, ir.IsCode(err, ir.ErrCodeTopologyViolation))
	assert.True(t, ir.IsWiringError(err))

	_, err = b.Connect("vco.out", "pfd.b")
	assert.True(t, ir.IsCode(err, ir.ErrCodeTopologyViolation))

	_, err = b.Connect("vco.out", "divider.clk_in")
	require.NoError(t, err)
	_, err = b.Connect("vco.out", "divider.clk_in")
	assert.True(t, ir.IsCode(err, ir.ErrCodePortAlreadyDriven))

	require.NoError(t, b.WireCanonical(), "already-wired edges are skipped")
	res, err := b.Finalize()
	require.NoError(t, err)
	assert.Equal(t, Validated, res.State)
}

func TestRolesEnforced(t *testing.T) {
	b, err := NewBuilder(testutil.Registry(t), catalog.KindPll, "pll")
	require.NoError(t, err)
	require.NoError(t, b.Begin(testutil.PllParams()))

	_, err = b.AddInstance(catalog.KindVco, "osc", map[string]string{"fmin": "4GHz", "fmax": "8GHz"})
	assert.True(t, ir.IsCode(err, ir.ErrCodeTopologyViolation))

	_, err = b.AddInstance(catalog.KindPfd, "vco", map[string]string{"max_frequency": "2GHz"})
	assert.True(t, ir.IsCode(err, ir.ErrCodeTopologyViolation))

	_, err = b.AddInstance(catalog.KindVco, "vco", map[string]string{"fmin": "4GHz", "fmax": "8GHz"})
	require.NoError(t, err)
	_, err = b.AddInstance(catalog.KindVco, "vco", map[string]string{"fmin": "4GHz", "fmax": "8GHz"})
	assert.True(t, ir.IsCode(err, ir.ErrCodeDuplicateInstance))

	_, err = b.AddInstance(catalog.KindDivider, "divider", map[string]string{"div_min": "4"})
	assert.True(t, ir.IsCode(err, ir.ErrCodeMissingParameter))
}

func TestStructureCheck(t *testing.T) {
	var blocks []testutil.Block
	for _, blk := range testutil.PllBlocks() {
		if blk.Name != "charge_pump" {
			blocks = append(blocks, blk)
		}
	}
	b := assemble(t, testutil.Registry(t), testutil.PllParams(), blocks)
	_, err := b.Connect("ref", "pfd.a")
	require.NoError(t, err)

	res, err := b.Finalize()
	require.NoError(t, err)
	require.Equal(t, Rejected, res.State)

	var structural []ir.Violation
	for _, v := range res.Report.Violations {
		if v.Pass == ir.PassStructure {
			structural = append(structural, v)
		}
	}
	require.NotEmpty(t, structural)
	assert.Equal(t, "role_present", structural[0].Constraint)
	assert.Equal(t, []string{"charge_pump"}, structural[0].Instances)
	assert.Equal(t, "edge_present", structural[1].Constraint)
	assert.Equal(t, "pfd.q_a -> charge_pump.up", structural[1].Expected)
	assert.Len(t, structural, 1+len(catalog.PllTopology())-1)
}

func TestFingerprintIgnoresAssemblyOrder(t *testing.T) {
	forward := finalizeCanonical(t, testutil.PllParams(), testutil.PllBlocks())
	require.Equal(t, Validated, forward.State)

	blocks := testutil.PllBlocks()
	reversed := make([]testutil.Block, 0, len(blocks))
	for i := len(blocks) - 1; i >= 0; i-- {
		reversed = append(reversed, blocks[i])
	}
	b := assemble(t, testutil.Registry(t), testutil.PllParams(), reversed)
	topo := catalog.PllTopology()
	for i := len(topo) - 1; i >= 0; i-- {
		_, err := b.Connect(topo[i].From, topo[i].To)
		require.NoError(t, err)
	}
	backward, err := b.Finalize()
	require.NoError(t, err)
	require.Equal(t, Validated, backward.State)

	assert.Equal(t, forward.Design.Fingerprint(), backward.Design.Fingerprint())

	changed := finalizeCanonical(t, testutil.PllParams(), testutil.WithValue(testutil.PllBlocks(), "vco", "fmin", "5GHz"))
	require.Equal(t, Validated, changed.State)
	assert.NotEqual(t, forward.Design.Fingerprint(), changed.Design.Fingerprint())
}

func TestResultToIR(t *testing.T) {
	res := finalizeCanonical(t, testutil.PllParams(), testutil.PllBlocks())
	obj := res.ToIR()
	assert.Equal(t, ir.IRString("validated"), obj["state"])
	assert.Equal(t, ir.IRObject{"fout_min": ir.IRString("8GHz"), "fout_max": ir.IRString("8GHz")}, obj["derived"])
	assert.Equal(t, "pll: validated (15 connections)", res.Summary())

	_, err := ir.MarshalCanonical(res.Design.ToIR())
	require.NoError(t, err)
}
