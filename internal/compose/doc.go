// Package compose assembles block instances into a composite design and
// validates it.
//
// A Builder walks Empty -> Assembling -> Validated or Rejected. While
// assembling it enforces the composite's roles and fixed topology; Finalize
// checks structure (every role filled, every topology edge wired) and then
// runs the constraint engine's local and cross-block passes. A Validated
// result carries a frozen Design with derived quantities and a content
// fingerprint. A Rejected result carries the full violation report and the
// partial graph is discarded.
package compose
