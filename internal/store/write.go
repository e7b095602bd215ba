package store

import (
	"context"
	"database/sql"
	"fmt"
)

// WriteRun inserts a run record and returns it with its assigned seq.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing the same run ID
// twice returns the stored record unchanged.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Logical clock: one past the highest seq so far.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, name, kind, points, base_hash, tool_version, ir_version)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Name,
		run.Kind,
		run.Points,
		run.BaseHash,
		run.ToolVersion,
		run.IRVersion,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	stored, err := scanRun(tx.QueryRowContext(ctx, runColumns+` WHERE id = ?`, run.ID))
	if err != nil {
		return Run{}, fmt.Errorf("write run: read back: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return stored, nil
}

// WriteOutcome inserts one sweep point and its violations atomically.
// Returns inserted=false if the (run, point) pair already exists; the
// stored row is left untouched.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteOutcome(ctx context.Context, o Outcome) (inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write outcome: begin tx: %w", err)
	}
	defer tx.Rollback()

	inserted, err = writeOutcome(ctx, tx, o)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write outcome: commit: %w", err)
	}
	return inserted, nil
}

// WriteOutcomes inserts a batch of points in one transaction.
func (s *Store) WriteOutcomes(ctx context.Context, outcomes []Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write outcomes: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, o := range outcomes {
		if _, err := writeOutcome(ctx, tx, o); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write outcomes: commit: %w", err)
	}
	return nil
}

func writeOutcome(ctx context.Context, tx *sql.Tx, o Outcome) (bool, error) {
	overridesJSON, err := marshalOverrides(o.Overrides)
	if err != nil {
		return false, fmt.Errorf("write outcome %d: %w", o.Point, err)
	}
	resultJSON, resultHash, err := marshalResult(o.Result)
	if err != nil {
		return false, fmt.Errorf("write outcome %d: %w", o.Point, err)
	}

	var fingerprint any
	if o.Fingerprint != "" {
		fingerprint = o.Fingerprint
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO outcomes
		(run_id, point, design, state, fingerprint, overrides, result, result_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, point) DO NOTHING
	`,
		o.RunID,
		o.Point,
		o.Design,
		o.State,
		fingerprint,
		overridesJSON,
		resultJSON,
		resultHash,
	)
	if err != nil {
		return false, fmt.Errorf("write outcome %d: %w", o.Point, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write outcome %d: rows affected: %w", o.Point, err)
	}
	if n == 0 {
		return false, nil
	}

	for idx, v := range o.Violations {
		instances, err := marshalInstances(v.Instances)
		if err != nil {
			return false, fmt.Errorf("write outcome %d: %w", o.Point, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO violations
			(run_id, point, idx, constraint_name, pass, instances, expected, actual, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			o.RunID,
			o.Point,
			idx,
			v.Constraint,
			string(v.Pass),
			instances,
			v.Expected,
			v.Actual,
			v.Message,
		)
		if err != nil {
			return false, fmt.Errorf("write outcome %d: violation %d: %w", o.Point, idx, err)
		}
	}
	return true, nil
}
