// Package querysql compiles outcome filters to parameterized SQLite queries.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/queryir"
)

// OutcomeColumns is the column list every compiled query selects, in scan
// order.
const OutcomeColumns = "o.run_id, o.point, o.design, o.state, COALESCE(o.fingerprint, ''), o.overrides, o.result, o.result_hash"

// columns maps filter fields to outcome columns. Field names never reach
// the SQL text unchecked.
var columns = map[queryir.Field]string{
	queryir.FieldPoint:       "o.point",
	queryir.FieldState:       "o.state",
	queryir.FieldDesign:      "o.design",
	queryir.FieldFingerprint: "o.fingerprint",
}

// Compile converts q to SQL and its parameters.
//
// Values are always bound as parameters. Every query orders by point so
// results are deterministic.
func Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	where := "o.run_id = ?"
	params := []any{q.RunID}
	if q.Filter != nil {
		filterSQL, filterParams, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where += " AND " + filterSQL
		params = append(params, filterParams...)
	}

	sql := fmt.Sprintf("SELECT %s FROM outcomes o WHERE %s ORDER BY %s",
		OutcomeColumns, where, stableOrderKey())
	return sql, params, nil
}

// stableOrderKey is the ORDER BY clause shared by every outcome query.
func stableOrderKey() string {
	return "o.point ASC"
}

func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return compileEquals(pred)
	case *queryir.Equals:
		return compileEquals(*pred)
	case queryir.Violated:
		return compileViolated(pred)
	case *queryir.Violated:
		return compileViolated(*pred)
	case queryir.And:
		return compileAnd(pred)
	case *queryir.And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq queryir.Equals) (string, []any, error) {
	column, ok := columns[eq.Field]
	if !ok {
		return "", nil, fmt.Errorf("unknown field %q", eq.Field)
	}
	param, err := irValueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %q: %w", eq.Field, err)
	}
	return column + " = ?", []any{param}, nil
}

func compileViolated(v queryir.Violated) (string, []any, error) {
	sql := `EXISTS (SELECT 1 FROM violations v WHERE v.run_id = o.run_id AND v.point = o.point AND v.constraint_name = ?)`
	return sql, []any{v.Constraint}, nil
}

func compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, predParams, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, predParams...)
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

// irValueToParam converts a scalar IRValue to a driver parameter.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
