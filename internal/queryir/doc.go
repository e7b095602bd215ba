// Package queryir describes filters over stored sweep outcomes.
//
// A Query selects the points of one run; its Filter is a small predicate
// tree that a backend compiles to its own query language. The store's
// SQLite backend lives in querysql.
//
// Predicate is a sealed interface using the marker method pattern, so
// backends can switch exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Violated:
//	case And:
//	}
//
// Literal values use ir.IRValue, never floats, so filters encode
// canonically and compare exactly.
package queryir
