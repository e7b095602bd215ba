package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/queryir"
	"github.com/roach88/blockgen/internal/querysql"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

const runColumns = `
	SELECT id, seq, name, kind, points, base_hash, tool_version, ir_version
	FROM runs`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Seq, &r.Name, &r.Kind, &r.Points, &r.BaseHash, &r.ToolVersion, &r.IRVersion)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

// ReadRun returns one run by ID.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, runColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	return r, nil
}

// LatestRun returns the run with the highest seq.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, runColumns+` ORDER BY seq DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run: %w", ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read latest run: %w", err)
	}
	return r, nil
}

// ListRuns returns every run ordered by seq.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, runColumns+` ORDER BY seq ASC, id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadOutcomes returns a run's points ordered by point index, each with its
// violations in report order.
func (s *Store) ReadOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	return s.QueryOutcomes(ctx, queryir.Query{RunID: runID})
}

// QueryOutcomes returns the points of q.RunID matching q.Filter, ordered by
// point index, each with all of its violations.
func (s *Store) QueryOutcomes(ctx context.Context, q queryir.Query) ([]Outcome, error) {
	query, params, err := querysql.Compile(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []Outcome{}
	for rows.Next() {
		var (
			o         Outcome
			overrides string
		)
		err := rows.Scan(&o.RunID, &o.Point, &o.Design, &o.State, &o.Fingerprint, &overrides, &o.ResultJSON, &o.ResultHash)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if o.Overrides, err = unmarshalOverrides(overrides); err != nil {
			return nil, fmt.Errorf("outcome %d: %w", o.Point, err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	rows.Close()

	violations, err := s.ReadViolations(ctx, q.RunID)
	if err != nil {
		return nil, err
	}
	byPoint := make(map[int]int, len(outcomes))
	for i, o := range outcomes {
		byPoint[o.Point] = i
	}
	for _, v := range violations {
		if i, ok := byPoint[v.Point]; ok {
			outcomes[i].Violations = append(outcomes[i].Violations, v.Violation)
		}
	}
	return outcomes, nil
}

// PointViolation is a stored violation with the point it belongs to.
type PointViolation struct {
	Point int
	ir.Violation
}

// ReadViolations returns a run's violations ordered by (point, idx).
func (s *Store) ReadViolations(ctx context.Context, runID string) ([]PointViolation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT point, constraint_name, pass, instances, expected, actual, message
		FROM violations
		WHERE run_id = ?
		ORDER BY point ASC, idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	violations := []PointViolation{}
	for rows.Next() {
		var (
			pv        PointViolation
			pass      string
			instances string
		)
		err := rows.Scan(&pv.Point, &pv.Constraint, &pass, &instances, &pv.Expected, &pv.Actual, &pv.Message)
		if err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		pv.Pass = ir.Pass(pass)
		if pv.Instances, err = unmarshalInstances(instances); err != nil {
			return nil, fmt.Errorf("violation at point %d: %w", pv.Point, err)
		}
		violations = append(violations, pv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violations: %w", err)
	}
	return violations, nil
}

// ConstraintCount is how many points of a run failed one constraint.
type ConstraintCount struct {
	Constraint string `json:"constraint"`
	Points     int    `json:"points"`
}

// ConstraintCounts returns the constraints that failed in a run, most
// frequent first, ties broken by name.
func (s *Store) ConstraintCounts(ctx context.Context, runID string) ([]ConstraintCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT constraint_name, COUNT(DISTINCT point) AS n
		FROM violations
		WHERE run_id = ?
		GROUP BY constraint_name
		ORDER BY n DESC, constraint_name COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query constraint counts: %w", err)
	}
	defer rows.Close()

	counts := []ConstraintCount{}
	for rows.Next() {
		var c ConstraintCount
		if err := rows.Scan(&c.Constraint, &c.Points); err != nil {
			return nil, fmt.Errorf("scan constraint count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate constraint counts: %w", err)
	}
	return counts, nil
}

// StateCounts returns how many points of a run ended in each state.
func (s *Store) StateCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state, COUNT(*) FROM outcomes WHERE run_id = ? GROUP BY state
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query state counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan state count: %w", err)
		}
		counts[state] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state counts: %w", err)
	}
	return counts, nil
}

// Verify recomputes each stored outcome's hash from its JSON and returns
// the points whose hash no longer matches.
func (s *Store) Verify(ctx context.Context, runID string) ([]int, error) {
	outcomes, err := s.ReadOutcomes(ctx, runID)
	if err != nil {
		return nil, err
	}
	var mismatched []int
	for _, o := range outcomes {
		if ir.OutcomeHashJSON([]byte(o.ResultJSON)) != o.ResultHash {
			mismatched = append(mismatched, o.Point)
		}
	}
	return mismatched, nil
}
