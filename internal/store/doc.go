// Package store provides SQLite-backed durable storage for sweep runs.
//
// The store is append-only:
//   - Runs: one row per sweep, identified by a UUIDv7 (or a test sequence ID)
//   - Outcomes: one row per sweep point, holding the canonical JSON of the
//     finalize result and its content hash
//   - Violations: one row per failed constraint of a rejected point
//
// # Ordering
//
// Runs are ordered by a logical seq assigned on insert, never by wall time.
// Outcomes are ordered by point index and violations by (point, idx), so
// every read returns the same rows in the same order.
//
// # Integrity
//
// Each outcome stores ir.OutcomeHash of its result object. Verify recomputes
// the hash from the stored JSON to detect rows edited outside the store.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
