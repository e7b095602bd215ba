package quantity

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/blockgen/internal/ir"
)

// Precision is the number of significant digits kept by division.
// Addition, subtraction and multiplication of parsed inputs stay exact.
const Precision = 34

var (
	exact   = apd.BaseContext.WithPrecision(0)
	rounded = apd.BaseContext.WithPrecision(Precision)
)

// Value is an exact decimal with a unit tag. Values are immutable: every
// operation allocates a new decimal.
type Value struct {
	d    *apd.Decimal
	unit Unit
}

// New wraps a decimal. The decimal is copied.
func New(d *apd.Decimal, unit Unit) Value {
	return Value{d: new(apd.Decimal).Set(d), unit: unit}
}

// FromInt64 builds an integer value.
func FromInt64(n int64, unit Unit) Value {
	return Value{d: apd.New(n, 0), unit: unit}
}

func (v Value) dec() *apd.Decimal {
	if v.d == nil {
		return apd.New(0, 0)
	}
	return v.d
}

// Decimal returns a copy of the underlying decimal.
func (v Value) Decimal() *apd.Decimal {
	return new(apd.Decimal).Set(v.dec())
}

// Unit returns the unit tag.
func (v Value) Unit() Unit {
	return v.unit
}

// WithUnit returns the same magnitude tagged with u.
func (v Value) WithUnit(u Unit) Value {
	return Value{d: v.d, unit: u}
}

// Sign returns -1, 0 or +1.
func (v Value) Sign() int {
	return v.dec().Sign()
}

// IsZero reports whether v is zero.
func (v Value) IsZero() bool {
	return v.dec().IsZero()
}

func mismatch(op string, a, b Unit) *ir.Error {
	return ir.Errorf(ir.ErrCodeUnitMismatch, "cannot %s %s and %s", op, a, b).
		WithDetail("left", a.String()).
		WithDetail("right", b.String())
}

// Cmp compares v and o, which must share a unit.
func (v Value) Cmp(o Value) (int, error) {
	if v.unit != o.unit {
		return 0, mismatch("compare", v.unit, o.unit)
	}
	return v.dec().Cmp(o.dec()), nil
}

// Equal reports whether v and o have the same unit and magnitude.
func (v Value) Equal(o Value) bool {
	return v.unit == o.unit && v.dec().Cmp(o.dec()) == 0
}

// Add returns v + o. Units must match.
func (v Value) Add(o Value) (Value, error) {
	if v.unit != o.unit {
		return Value{}, mismatch("add", v.unit, o.unit)
	}
	d := new(apd.Decimal)
	if _, err := exact.Add(d, v.dec(), o.dec()); err != nil {
		return Value{}, err
	}
	return Value{d: d, unit: v.unit}, nil
}

// Sub returns v - o. Units must match.
func (v Value) Sub(o Value) (Value, error) {
	if v.unit != o.unit {
		return Value{}, mismatch("subtract", v.unit, o.unit)
	}
	d := new(apd.Decimal)
	if _, err := exact.Sub(d, v.dec(), o.dec()); err != nil {
		return Value{}, err
	}
	return Value{d: d, unit: v.unit}, nil
}

// Mul returns v * o with the product unit.
func (v Value) Mul(o Value) (Value, error) {
	d := new(apd.Decimal)
	if _, err := exact.Mul(d, v.dec(), o.dec()); err != nil {
		return Value{}, err
	}
	return Value{d: d, unit: v.unit.Mul(o.unit)}, nil
}

// Scale multiplies by a dimensionless factor, keeping the unit.
func (v Value) Scale(factor *apd.Decimal) (Value, error) {
	d := new(apd.Decimal)
	if _, err := exact.Mul(d, v.dec(), factor); err != nil {
		return Value{}, err
	}
	return Value{d: d, unit: v.unit}, nil
}

// Quo returns v / o with the quotient unit. The boolean reports whether the
// quotient is exact at Precision digits.
func (v Value) Quo(o Value) (Value, bool, error) {
	if o.IsZero() {
		return Value{}, false, ir.Errorf(ir.ErrCodeInvalidValue, "division by zero")
	}
	d := new(apd.Decimal)
	cond, err := rounded.Quo(d, v.dec(), o.dec())
	if err != nil {
		return Value{}, false, err
	}
	return Value{d: d, unit: v.unit.Quo(o.unit)}, !cond.Inexact(), nil
}

// Ratio divides two values of the same unit and returns a dimensionless result.
func (v Value) Ratio(o Value) (Value, bool, error) {
	if v.unit != o.unit {
		return Value{}, false, mismatch("divide", v.unit, o.unit)
	}
	return v.Quo(o)
}

// Neg returns -v.
func (v Value) Neg() Value {
	return Value{d: new(apd.Decimal).Neg(v.dec()), unit: v.unit}
}

// Abs returns |v|.
func (v Value) Abs() Value {
	return Value{d: new(apd.Decimal).Abs(v.dec()), unit: v.unit}
}

// IsInteger reports whether v has no fractional part.
func (v Value) IsInteger() bool {
	return IsInteger(v.dec())
}

// IsPowerOfTwo reports whether v is a positive integer power of two.
func (v Value) IsPowerOfTwo() bool {
	return IsPowerOfTwo(v.dec())
}

// IsInteger reports whether d has no fractional part.
func IsInteger(d *apd.Decimal) bool {
	if d.Form != apd.Finite {
		return false
	}
	r, _ := new(apd.Decimal).Reduce(d)
	return r.Exponent >= 0
}

// IsPowerOfTwo reports whether d is 1, 2, 4, 8, ...
func IsPowerOfTwo(d *apd.Decimal) bool {
	if d.Sign() <= 0 || !IsInteger(d) {
		return false
	}
	n, ok := new(big.Int).SetString(Canonical(d), 10)
	if !ok {
		return false
	}
	return n.And(n, new(big.Int).Sub(n, big.NewInt(1))).Sign() == 0
}
