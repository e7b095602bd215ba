// Package quantity implements the parameter and unit model: exact decimal
// values tagged with units, interval ranges with open or closed bounds, and
// range-checked parameters.
//
// Decimals come from cockroachdb/apd. Floats are never used, so boundary
// checks are exact at any precision the input carries.
package quantity
