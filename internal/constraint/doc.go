// Package constraint compiles and evaluates declarative parameter rules.
//
// Rules are written in CUE expression syntax and parsed with the CUE
// parser, then type-checked against a Scope so that unknown references and
// unit mismatches surface at registration rather than at validation:
//
//	fmax >= fmin
//	pow2(div_min) && pow2(div_max)
//	fref * divider.div_max <= vco.fmax
//	vco.jitter + pfd.jitter <= jitter_budget
//	within(slew, "[0.1, 0.25]")
//
// Bare identifiers are the owner's parameters; role.param reaches a
// sub-instance of a composite. Numeric literals are unit-less and adopt the
// unit of the operand they meet; CUE multipliers such as 4G are accepted.
// Functions: pow2, integer, abs, sum, min, max, within.
//
// Evaluation is exact decimal arithmetic. Engine.Evaluate runs the local
// pass over instances, then the cross-block pass over the composite, and
// returns every violation found.
package constraint
