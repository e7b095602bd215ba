// Package ir provides the declarative intermediate representation for blockgen.
//
// This package holds the shapes every other package agrees on: block kind
// declarations, range tables, the error taxonomy, constraint violation
// reports and the canonical JSON form used for design fingerprints. ir
// imports nothing internal, so it stays the foundational layer with no
// circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere. Numeric parameter values travel as decimal
//     strings ("4e9", "50u", "0.25") and are parsed into exact decimals by
//     the quantity package.
//   - Declaration order is significant: ports, params, roles and constraints
//     are slices, never maps.
//   - All JSON tags use snake_case.
package ir
