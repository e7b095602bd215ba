package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/quantity"
)

func vcoScope() Scope {
	s := Scope{}
	s.Own("fmin", quantity.Hertz)
	s.Own("fmax", quantity.Hertz)
	s.Own("jitter", quantity.Second)
	return s
}

func dividerScope() Scope {
	s := Scope{}
	s.Own("div_min", quantity.Dimensionless)
	s.Own("div_max", quantity.Dimensionless)
	return s
}

func values(kv ...string) Values {
	v := Values{}
	for i := 0; i < len(kv); i += 2 {
		v[kv[i]] = quantity.MustParse(kv[i+1])
	}
	return v
}

func mustCompile(t *testing.T, name, rule string, scope Scope) *Constraint {
	t.Helper()
	c, err := Compile(ir.ConstraintSpec{Name: name, Rule: rule}, scope)
	require.NoError(t, err)
	return c
}

func TestCompileErrors(t *testing.T) {
	scope := vcoScope()
	scope.Role("vco", "fmax", quantity.Hertz)

	tests := []struct {
		name string
		rule string
		code ir.Code
	}{
		{"empty", "  ", ir.ErrCodeMalformedConstraint},
		{"syntax", "fmax >=", ir.ErrCodeMalformedConstraint},
		{"unknown parameter", "fmax >= fmn", ir.ErrCodeMalformedConstraint},
		{"unknown role", "pll.fmax >= fmin", ir.ErrCodeMalformedConstraint},
		{"unknown role param", "vco.fmin >= fmin", ir.ErrCodeMalformedConstraint},
		{"not a predicate", "fmax + fmin", ir.ErrCodeMalformedConstraint},
		{"bare literal", "true", ir.ErrCodeMalformedConstraint},
		{"unit mismatch compare", "fmax >= jitter", ir.ErrCodeUnitMismatch},
		{"unit mismatch add", "fmax + jitter > 0", ir.ErrCodeUnitMismatch},
		{"unit mismatch in sum", "sum(fmax, jitter) > 0", ir.ErrCodeUnitMismatch},
		{"string operand", `fmax >= "4GHz"`, ir.ErrCodeMalformedConstraint},
		{"unknown function", "sqrt(fmax) > 1", ir.ErrCodeMalformedConstraint},
		{"pow2 arity", "pow2(fmin, fmax)", ir.ErrCodeMalformedConstraint},
		{"within needs string", "within(fmax, 5)", ir.ErrCodeMalformedConstraint},
		{"within bad range", `within(fmax, "[2, 1]")`, ir.ErrCodeMalformedConstraint},
		{"bool arithmetic", "(fmax > fmin) + 1 > 0", ir.ErrCodeMalformedConstraint},
		{"and on numbers", "fmax && fmin", ir.ErrCodeMalformedConstraint},
		{"unary bound", "<=fmax", ir.ErrCodeMalformedConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(ir.ConstraintSpec{Name: "c", Rule: tt.rule}, scope)
			require.Error(t, err)
			assert.True(t, ir.IsCode(err, tt.code), "got %v", err)
			assert.True(t, ir.IsSchemaError(err))
		})
	}

	_, err := Compile(ir.ConstraintSpec{Rule: "fmax >= fmin"}, scope)
	assert.True(t, ir.IsCode(err, ir.ErrCodeMalformedConstraint))
}

func TestCheckComparison(t *testing.T) {
	c := mustCompile(t, "fmax_ge_fmin", "fmax >= fmin", vcoScope())
	assert.Equal(t, []Ref{{Param: "fmax"}, {Param: "fmin"}}, c.Refs())

	out := c.Check(values("fmin", "4GHz", "fmax", "8GHz").Env())
	assert.Equal(t, Pass, out.Status)

	out = c.Check(values("fmin", "4GHz", "fmax", "4GHz").Env())
	assert.Equal(t, Pass, out.Status, "closed comparison admits equality")

	out = c.Check(values("fmin", "4GHz", "fmax", "3GHz").Env())
	assert.Equal(t, Fail, out.Status)
	assert.Equal(t, "fmax >= fmin", out.Expected)
	assert.Equal(t, "3GHz vs 4GHz", out.Actual)
}

func TestCheckStrictBoundary(t *testing.T) {
	c := mustCompile(t, "fmax_gt_fmin", "fmax > fmin", vcoScope())
	assert.Equal(t, Fail, c.Check(values("fmin", "4GHz", "fmax", "4GHz").Env()).Status)
	assert.Equal(t, Pass, c.Check(values("fmin", "4GHz", "fmax", "4.000000001GHz").Env()).Status)
}

func TestCheckPowerOfTwo(t *testing.T) {
	c := mustCompile(t, "div_pow2", "pow2(div_min) && pow2(div_max)", dividerScope())

	for _, n := range []string{"4", "8", "16"} {
		out := c.Check(values("div_min", n, "div_max", n).Env())
		assert.Equal(t, Pass, out.Status, n)
	}

	out := c.Check(values("div_min", "4", "div_max", "3").Env())
	assert.Equal(t, Fail, out.Status)
	assert.Equal(t, "pow2(div_max)", out.Expected)
	assert.Equal(t, "3", out.Actual)
}

func TestCheckConjunctionBlame(t *testing.T) {
	c := mustCompile(t, "div_order", "integer(div_min) && div_min <= div_max", dividerScope())
	out := c.Check(values("div_min", "8", "div_max", "4").Env())
	assert.Equal(t, Fail, out.Status)
	assert.Equal(t, "div_min <= div_max", out.Expected)
	assert.Equal(t, "8 vs 4", out.Actual)
}

func TestCheckUntypedLiterals(t *testing.T) {
	// CUE multipliers on bare literals; the literal adopts Hz.
	c := mustCompile(t, "below_20g", "fmax <= 20G", vcoScope())
	assert.Equal(t, Pass, c.Check(values("fmax", "8GHz").Env()).Status)
	assert.Equal(t, Fail, c.Check(values("fmax", "21GHz").Env()).Status)

	// Hz * s is dimensionless and compares against a bare 1.
	s := Scope{}
	s.Own("max_frequency", quantity.Hertz)
	s.Own("t_setup", quantity.Second)
	s.Own("t_clk_q", quantity.Second)
	timing := mustCompile(t, "timing_closure", "max_frequency * (t_setup + t_clk_q) <= 1", s)
	assert.Equal(t, Pass, timing.Check(values("max_frequency", "2GHz", "t_setup", "100ps", "t_clk_q", "200ps").Env()).Status)

	out := timing.Check(values("max_frequency", "5GHz", "t_setup", "100ps", "t_clk_q", "200ps").Env())
	assert.Equal(t, Fail, out.Status)
	assert.Equal(t, "1.5 vs 1", out.Actual)
}

func TestCheckSkipsUnbound(t *testing.T) {
	s := vcoScope()
	s.Own("budget", quantity.Second)
	c := mustCompile(t, "jitter_budget", "jitter <= budget", s)

	out := c.Check(values("jitter", "1ps").Env())
	assert.Equal(t, Skipped, out.Status)
	assert.Equal(t, []Ref{{Param: "budget"}}, out.Missing)
}

func TestCheckDivisionByZero(t *testing.T) {
	s := vcoScope()
	s.Own("n", quantity.Dimensionless)
	c := mustCompile(t, "per_step", "fmax / n >= 1G", s)

	out := c.Check(values("fmax", "8GHz", "n", "0").Env())
	assert.Equal(t, Fail, out.Status)
	assert.Equal(t, "division by zero", out.Actual)

	assert.Equal(t, Pass, c.Check(values("fmax", "8GHz", "n", "4").Env()).Status)
}

func TestCheckFunctions(t *testing.T) {
	s := Scope{}
	s.Own("slew", quantity.UI)
	s.Own("a", quantity.Second)
	s.Own("b", quantity.Second)
	s.Own("c", quantity.Second)

	within := mustCompile(t, "slew_window", `within(slew, "(0.1, 0.25]")`, s)
	assert.Equal(t, Pass, within.Check(values("slew", "0.25").Env()).Status)
	out := within.Check(values("slew", "0.1").Env())
	assert.Equal(t, Fail, out.Status)
	assert.Equal(t, "0.1UI", out.Actual)

	env := values("a", "3ps", "b", "-5ps", "c", "1ps").Env()
	assert.Equal(t, Pass, mustCompile(t, "sum", "sum(a, b, c) + c == 0", s).Check(env).Status)
	assert.Equal(t, Pass, mustCompile(t, "min", "min(a, b, c) == b", s).Check(env).Status)
	assert.Equal(t, Pass, mustCompile(t, "max", "max(a, b, c) == a", s).Check(env).Status)
	assert.Equal(t, Pass, mustCompile(t, "abs", "abs(b) > a", s).Check(env).Status)
	assert.Equal(t, Pass, mustCompile(t, "neg", "-b > 0", s).Check(env).Status)
	assert.Equal(t, Pass, mustCompile(t, "not", "!(a < c)", s).Check(env).Status)
	assert.Equal(t, Pass, mustCompile(t, "or", "a < c || a > b", s).Check(env).Status)
}

func TestCompileExpr(t *testing.T) {
	s := Scope{}
	s.Own("fref", quantity.Hertz)
	s.Role("divider", "div_max", quantity.Dimensionless)

	x, err := CompileExpr(ir.DerivedSpec{Name: "fout_max", Expr: "fref * divider.div_max"}, s)
	require.NoError(t, err)
	assert.Equal(t, quantity.Hertz, x.Unit())

	env := func(r Ref) (quantity.Value, bool) {
		switch r {
		case Ref{Param: "fref"}:
			return quantity.MustParse("2GHz"), true
		case Ref{Role: "divider", Param: "div_max"}:
			return quantity.MustParse("4"), true
		}
		return quantity.Value{}, false
	}
	v, ok, err := x.Eval(env)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "8GHz", v.String())

	_, ok, err = x.Eval(Values{}.Env())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CompileExpr(ir.DerivedSpec{Name: "bad", Expr: "fref > 1"}, s)
	assert.True(t, ir.IsCode(err, ir.ErrCodeMalformedConstraint))
}

// Operands wider than the division precision must not round: fout_max
// equals vco.fmax exactly here.
func TestCheckExactBeyondDivisionPrecision(t *testing.T) {
	s := Scope{}
	s.Own("fref", quantity.Hertz)
	s.Own("fmax", quantity.Hertz)
	s.Own("n", quantity.Dimensionless)
	s.Own("a", quantity.Dimensionless)
	s.Own("b", quantity.Dimensionless)

	env := values(
		"fref", "2.000000000000000000000000000000001GHz",
		"fmax", "32.000000000000000000000000000000016GHz",
		"n", "16",
		"a", "1000000000000000000000000000000000",
		"b", "0.1",
	).Env()

	assert.Equal(t, Pass, mustCompile(t, "covers", "fref * n <= fmax", s).Check(env).Status)
	assert.Equal(t, Pass, mustCompile(t, "exact_product", "fref * n == fmax", s).Check(env).Status)
	assert.Equal(t, Pass, mustCompile(t, "exact_sum", "sum(a, b) > a", s).Check(env).Status)
	assert.Equal(t, Pass, mustCompile(t, "exact_add", "a + b - a == b", s).Check(env).Status)

	x, err := CompileExpr(ir.DerivedSpec{Name: "fout_max", Expr: "fref * n"}, s)
	require.NoError(t, err)
	v, ok, err := x.Eval(env)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "32000000000.000000000000000000000016", v.Canonical())
}

func TestCheckInexactQuotient(t *testing.T) {
	s := vcoScope()
	s.Own("n", quantity.Dimensionless)
	c := mustCompile(t, "per_step", "fmax / n >= 1G", s)

	out := c.Check(values("fmax", "10GHz", "n", "3").Env())
	assert.Equal(t, Fail, out.Status)
	assert.Equal(t, "inexact quotient", out.Actual)

	assert.Equal(t, Pass, c.Check(values("fmax", "9GHz", "n", "3").Env()).Status)

	x, err := CompileExpr(ir.DerivedSpec{Name: "step", Expr: "fmax / n"}, s)
	require.NoError(t, err)
	_, _, err = x.Eval(values("fmax", "10GHz", "n", "3").Env())
	assert.EqualError(t, err, "inexact quotient")
}
