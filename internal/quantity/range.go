package quantity

import (
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/blockgen/internal/ir"
)

// Bound is one end of a Range. A nil Value means unbounded on that side.
// Closed bounds include their value; open bounds exclude it.
type Bound struct {
	Value  *apd.Decimal
	Closed bool
}

// Infinite reports whether the bound is unbounded.
func (b Bound) Infinite() bool {
	return b.Value == nil
}

// Range is an interval over values of one unit.
type Range struct {
	Lo   Bound
	Hi   Bound
	Unit Unit
}

// Unbounded returns (-inf, inf) in unit.
func Unbounded(unit Unit) Range {
	return Range{Unit: unit}
}

// Closed returns [lo, hi].
func Closed(lo, hi *apd.Decimal, unit Unit) Range {
	return Range{
		Lo:   Bound{Value: lo, Closed: true},
		Hi:   Bound{Value: hi, Closed: true},
		Unit: unit,
	}
}

// ParseRange parses interval notation. Each finite endpoint accepts anything
// Parse accepts; a tagged endpoint must carry unit. Infinite endpoints are
// written inf / -inf and must be open.
//
//	"[0.1, 0.25]"   closed both sides
//	"(0, 20GHz]"    open below, closed above
//	"[1, inf)"      unbounded above
//
// An empty string yields Unbounded(unit).
func ParseRange(s string, unit Unit) (Range, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return Unbounded(unit), nil
	}
	invalid := func(msg string) (Range, error) {
		return Range{}, ir.Errorf(ir.ErrCodeInvalidRange, "%s: %q", msg, s)
	}
	if len(text) < 2 {
		return invalid("range too short")
	}
	lbr, rbr := text[0], text[len(text)-1]
	if lbr != '[' && lbr != '(' {
		return invalid("range must start with [ or (")
	}
	if rbr != ']' && rbr != ')' {
		return invalid("range must end with ] or )")
	}
	parts := strings.Split(text[1:len(text)-1], ",")
	if len(parts) != 2 {
		return invalid("range needs exactly two endpoints")
	}

	r := Range{Unit: unit}
	var err error
	if r.Lo, err = parseBound(parts[0], lbr == '[', unit, "-inf"); err != nil {
		return Range{}, err
	}
	if r.Hi, err = parseBound(parts[1], rbr == ']', unit, "inf"); err != nil {
		return Range{}, err
	}
	if !r.Lo.Infinite() && !r.Hi.Infinite() {
		switch c := r.Lo.Value.Cmp(r.Hi.Value); {
		case c > 0:
			return invalid("lower bound above upper bound")
		case c == 0 && !(r.Lo.Closed && r.Hi.Closed):
			return invalid("empty range")
		}
	}
	return r, nil
}

// MustRange is ParseRange for declarations known to be valid.
func MustRange(s string, unit Unit) Range {
	r, err := ParseRange(s, unit)
	if err != nil {
		panic(err)
	}
	return r
}

func parseBound(text string, closed bool, unit Unit, infinity string) (Bound, error) {
	text = strings.TrimSpace(text)
	switch text {
	case "inf", "+inf", "-inf":
		if text == "-inf" && infinity == "inf" || text != "-inf" && infinity == "-inf" {
			return Bound{}, ir.Errorf(ir.ErrCodeInvalidRange, "infinite bound on wrong side: %q", text)
		}
		if closed {
			return Bound{}, ir.Errorf(ir.ErrCodeInvalidRange, "infinite bound must be open: %q", text)
		}
		return Bound{}, nil
	}
	v, err := ParseAs(text, unit)
	if err != nil {
		if ir.IsCode(err, ir.ErrCodeUnitMismatch) {
			return Bound{}, err
		}
		return Bound{}, ir.Errorf(ir.ErrCodeInvalidRange, "bad bound %q", text)
	}
	return Bound{Value: v.dec(), Closed: closed}, nil
}

// Contains reports whether d lies inside the range.
func (r Range) Contains(d *apd.Decimal) bool {
	if !r.Lo.Infinite() {
		c := d.Cmp(r.Lo.Value)
		if c < 0 || c == 0 && !r.Lo.Closed {
			return false
		}
	}
	if !r.Hi.Infinite() {
		c := d.Cmp(r.Hi.Value)
		if c > 0 || c == 0 && !r.Hi.Closed {
			return false
		}
	}
	return true
}

// ContainsValue checks unit and bounds.
func (r Range) ContainsValue(v Value) (bool, error) {
	if v.unit != r.Unit {
		return false, mismatch("range-check", v.unit, r.Unit)
	}
	return r.Contains(v.dec()), nil
}

// IsUnbounded reports whether both sides are infinite.
func (r Range) IsUnbounded() bool {
	return r.Lo.Infinite() && r.Hi.Infinite()
}

// String renders the range with SI prefixes, e.g. "(0Hz, 20GHz]".
func (r Range) String() string {
	return r.render(func(d *apd.Decimal) string { return New(d, r.Unit).String() })
}

// Canonical renders the range with plain decimals, e.g. "(0, 20000000000]".
func (r Range) Canonical() string {
	return r.render(Canonical)
}

func (r Range) render(num func(*apd.Decimal) string) string {
	var b strings.Builder
	if r.Lo.Closed {
		b.WriteByte('[')
	} else {
		b.WriteByte('(')
	}
	if r.Lo.Infinite() {
		b.WriteString("-inf")
	} else {
		b.WriteString(num(r.Lo.Value))
	}
	b.WriteString(", ")
	if r.Hi.Infinite() {
		b.WriteString("inf")
	} else {
		b.WriteString(num(r.Hi.Value))
	}
	if r.Hi.Closed {
		b.WriteByte(']')
	} else {
		b.WriteByte(')')
	}
	return b.String()
}
