package quantity

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/blockgen/internal/ir"
)

// Unit is a canonical unit tag. Base tags are V, Ohm, UI, Hz, F, s and A;
// the empty Unit is dimensionless. Products and quotients of base units are
// written as "A*s", "V/Ohm" or "F/s^2". Hz is s^-1, so Hz*s is dimensionless.
type Unit string

// Base units.
const (
	Dimensionless Unit = ""
	Volt          Unit = "V"
	Ohm           Unit = "Ohm"
	UI            Unit = "UI"
	Hertz         Unit = "Hz"
	Farad         Unit = "F"
	Second        Unit = "s"
	Ampere        Unit = "A"
)

var unitAliases = map[string]Unit{
	"":    Dimensionless,
	"V":   Volt,
	"Ohm": Ohm,
	"ohm": Ohm,
	"Ω":   Ohm,
	"UI":  UI,
	"Hz":  Hertz,
	"F":   Farad,
	"s":   Second,
	"A":   Ampere,
}

// dims maps a base symbol to its exponent. Hz is folded into s^-1.
type dims map[string]int

// ParseUnit parses a unit tag, accepting aliases and compound forms.
func ParseUnit(s string) (Unit, error) {
	s = strings.TrimSpace(s)
	if u, ok := unitAliases[s]; ok {
		return u, nil
	}
	d, err := parseDims(s)
	if err != nil {
		return "", err
	}
	return d.unit(), nil
}

// MustUnit is ParseUnit for declarations known to be valid.
func MustUnit(s string) Unit {
	u, err := ParseUnit(s)
	if err != nil {
		panic(err)
	}
	return u
}

func parseDims(s string) (dims, error) {
	d := dims{}
	parts := strings.Split(s, "/")
	for i, part := range parts {
		sign := 1
		if i > 0 {
			sign = -1
		}
		for _, factor := range strings.Split(part, "*") {
			factor = strings.TrimSpace(factor)
			if factor == "" || factor == "1" {
				if len(parts) == 1 && factor == "" {
					return nil, ir.Errorf(ir.ErrCodeInvalidValue, "empty unit factor in %q", s)
				}
				continue
			}
			sym, exp := factor, 1
			if idx := strings.IndexByte(factor, '^'); idx >= 0 {
				n, err := strconv.Atoi(factor[idx+1:])
				if err != nil || n == 0 {
					return nil, ir.Errorf(ir.ErrCodeInvalidValue, "bad exponent in unit %q", s)
				}
				sym, exp = factor[:idx], n
			}
			base, ok := unitAliases[sym]
			if !ok || base == Dimensionless {
				return nil, ir.Errorf(ir.ErrCodeInvalidValue, "unknown unit %q", sym)
			}
			d.add(base, sign*exp)
		}
	}
	return d, nil
}

func (u Unit) dims() dims {
	if base, ok := unitAliases[string(u)]; ok {
		d := dims{}
		if base != Dimensionless {
			d.add(base, 1)
		}
		return d
	}
	d, err := parseDims(string(u))
	if err != nil {
		// Units are canonicalized on construction; a bad tag here is a bug.
		panic(fmt.Sprintf("quantity: invalid unit %q", string(u)))
	}
	return d
}

func (d dims) add(base Unit, exp int) {
	if base == Hertz {
		base, exp = Second, -exp
	}
	d[string(base)] += exp
	if d[string(base)] == 0 {
		delete(d, string(base))
	}
}

// unit renders dims canonically: sorted numerator factors, then "/" and
// sorted denominator factors. s^-1 alone is rendered as Hz.
func (d dims) unit() Unit {
	if len(d) == 0 {
		return Dimensionless
	}
	if len(d) == 1 && d["s"] == -1 {
		return Hertz
	}
	syms := make([]string, 0, len(d))
	for sym := range d {
		syms = append(syms, sym)
	}
	slices.Sort(syms)
	var num, den []string
	for _, sym := range syms {
		exp := d[sym]
		switch {
		case exp == 1:
			num = append(num, sym)
		case exp > 1:
			num = append(num, fmt.Sprintf("%s^%d", sym, exp))
		case exp == -1:
			den = append(den, sym)
		default:
			den = append(den, fmt.Sprintf("%s^%d", sym, -exp))
		}
	}
	out := strings.Join(num, "*")
	if out == "" {
		out = "1"
	}
	if len(den) > 0 {
		out += "/" + strings.Join(den, "*")
	}
	return Unit(out)
}

// Mul returns the unit of a product.
func (u Unit) Mul(o Unit) Unit {
	d := u.dims()
	for sym, exp := range o.dims() {
		d.add(Unit(sym), exp)
	}
	return d.unit()
}

// Quo returns the unit of a quotient.
func (u Unit) Quo(o Unit) Unit {
	d := u.dims()
	for sym, exp := range o.dims() {
		d.add(Unit(sym), -exp)
	}
	return d.unit()
}

// IsBase reports whether u is a single base unit that takes SI prefixes.
func (u Unit) IsBase() bool {
	_, ok := unitAliases[string(u)]
	return ok && u != Dimensionless
}

// String returns the tag, or "1" for dimensionless.
func (u Unit) String() string {
	if u == Dimensionless {
		return "1"
	}
	return string(u)
}
