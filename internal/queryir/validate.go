package queryir

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/blockgen/internal/ir"
)

// Validate reports every problem in q, or nil when backends can compile it.
func Validate(q Query) error {
	var errs []error
	if q.RunID == "" {
		errs = append(errs, errors.New("query has no run id"))
	}
	if q.Filter != nil {
		errs = validatePredicate(q.Filter, errs)
	}
	return errors.Join(errs...)
}

func validatePredicate(p Predicate, errs []error) []error {
	switch pred := p.(type) {
	case Equals:
		return validateEquals(pred, errs)
	case *Equals:
		return validateEquals(*pred, errs)
	case Violated:
		return validateViolated(pred, errs)
	case *Violated:
		return validateViolated(*pred, errs)
	case And:
		for _, sub := range pred.Predicates {
			errs = validatePredicate(sub, errs)
		}
		return errs
	case *And:
		for _, sub := range pred.Predicates {
			errs = validatePredicate(sub, errs)
		}
		return errs
	case nil:
		return append(errs, errors.New("nil predicate"))
	default:
		return append(errs, fmt.Errorf("unsupported predicate %T", p))
	}
}

func validateEquals(e Equals, errs []error) []error {
	if !slices.Contains(Fields, e.Field) {
		return append(errs, fmt.Errorf("unknown field %q", e.Field))
	}
	switch v := e.Value.(type) {
	case ir.IRInt:
		if e.Field != FieldPoint {
			errs = append(errs, fmt.Errorf("field %q compares strings, got %d", e.Field, int64(v)))
		}
	case ir.IRString:
		if e.Field == FieldPoint {
			errs = append(errs, fmt.Errorf("field %q compares integers, got %q", e.Field, string(v)))
		}
	case nil:
		errs = append(errs, fmt.Errorf("field %q has no value", e.Field))
	default:
		errs = append(errs, fmt.Errorf("field %q: unsupported value %T", e.Field, e.Value))
	}
	return errs
}

func validateViolated(v Violated, errs []error) []error {
	if v.Constraint == "" {
		return append(errs, errors.New("violation filter has no constraint name"))
	}
	return errs
}

// Parse builds a filter from key=value terms, all of which must hold.
// Keys are the outcome fields plus "violation", which matches points that
// violated the named constraint.
func Parse(terms []string) (Predicate, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	and := And{Predicates: make([]Predicate, 0, len(terms))}
	var errs []error
	for _, term := range terms {
		key, value, ok := strings.Cut(term, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			errs = append(errs, fmt.Errorf("filter %q: want key=value", term))
			continue
		}
		switch Field(key) {
		case FieldPoint:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("filter %q: point must be an integer", term))
				continue
			}
			and.Predicates = append(and.Predicates, Equals{Field: FieldPoint, Value: ir.IRInt(n)})
		case FieldState, FieldDesign, FieldFingerprint:
			and.Predicates = append(and.Predicates, Equals{Field: Field(key), Value: ir.IRString(value)})
		default:
			if key == "violation" {
				and.Predicates = append(and.Predicates, Violated{Constraint: value})
				continue
			}
			errs = append(errs, fmt.Errorf("filter %q: unknown key %q", term, key))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(and.Predicates) == 1 {
		return and.Predicates[0], nil
	}
	return and, nil
}
