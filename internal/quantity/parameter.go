package quantity

import (
	"github.com/roach88/blockgen/internal/ir"
)

// Parameter is a named, range-checked value. A constructed Parameter always
// lies inside its range.
type Parameter struct {
	Name  string
	Value Value
	Range Range
}

// NewParameter validates v against r. A bare number adopts the range's unit;
// a value tagged with another unit is a UnitMismatch; a value outside r is
// OutOfRange.
func NewParameter(name string, v Value, r Range) (Parameter, error) {
	if v.unit == Dimensionless && r.Unit != Dimensionless {
		v = v.WithUnit(r.Unit)
	}
	if v.unit != r.Unit {
		return Parameter{}, mismatch("assign", v.unit, r.Unit).WithParameter(name)
	}
	if !r.Contains(v.dec()) {
		return Parameter{}, ir.Errorf(ir.ErrCodeOutOfRange, "%s outside %s", v, r).
			WithParameter(name).
			WithDetail("value", v.Canonical()).
			WithDetail("range", r.Canonical())
	}
	return Parameter{Name: name, Value: v, Range: r}, nil
}

// ParseParameter parses text and validates it against r.
func ParseParameter(name, text string, r Range) (Parameter, error) {
	v, err := Parse(text)
	if err != nil {
		if e, ok := ir.AsError(err); ok {
			e.WithParameter(name)
		}
		return Parameter{}, err
	}
	return NewParameter(name, v, r)
}

// String renders "name=value".
func (p Parameter) String() string {
	return p.Name + "=" + p.Value.String()
}
