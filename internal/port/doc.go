// Package port implements the port bundle model: typed ports with
// directions and widths, read-only bundles, textual endpoints, and the
// per-composite connection set that enforces one driver per sink bit.
package port
