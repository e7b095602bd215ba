package quantity

import (
	"github.com/cockroachdb/apd/v3"
)

var prefixSymbols = map[int32]string{
	-15: "f",
	-12: "p",
	-9:  "n",
	-6:  "u",
	-3:  "m",
	0:   "",
	3:   "k",
	6:   "M",
	9:   "G",
	12:  "T",
}

// Canonical renders d in plain notation with trailing zeros removed:
// 8e9 -> "8000000000", 1.50 -> "1.5", 10e-12 -> "0.00000000001".
// This is the form used for hashing, storage and golden files.
func Canonical(d *apd.Decimal) string {
	r, _ := new(apd.Decimal).Reduce(d)
	return r.Text('f')
}

// Canonical renders the magnitude without unit.
func (v Value) Canonical() string {
	return Canonical(v.dec())
}

// String renders v in engineering notation with an SI prefix when the unit
// is a base unit: "8GHz", "50uA", "1kOhm". Dimensionless, UI and compound
// values are rendered plainly ("0.25UI").
func (v Value) String() string {
	d := v.dec()
	if !v.unit.IsBase() || v.unit == UI || d.IsZero() {
		if v.unit == Dimensionless {
			return Canonical(d)
		}
		return Canonical(d) + string(v.unit)
	}
	r, _ := new(apd.Decimal).Reduce(d)
	// Adjusted exponent: position of the most significant digit.
	adj := int32(r.NumDigits()) + r.Exponent - 1
	eng := floorDiv3(adj) * 3
	if eng < -15 {
		eng = -15
	}
	if eng > 12 {
		eng = 12
	}
	scaled := new(apd.Decimal).Set(r)
	scaled.Exponent -= eng
	return Canonical(scaled) + prefixSymbols[eng] + string(v.unit)
}

func floorDiv3(n int32) int32 {
	if n >= 0 {
		return n / 3
	}
	return -((-n + 2) / 3)
}
