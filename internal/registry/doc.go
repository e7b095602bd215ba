// Package registry compiles block kind declarations and binds parameter
// values into instances.
//
// Register is where every schema problem surfaces: duplicate ports or
// parameters, bad units and ranges, unknown role kinds, malformed topology
// edges and constraint rules that do not parse or type-check. Instantiate
// then only has to deal with values: unknown, missing, mistyped or
// out-of-range parameters.
package registry
