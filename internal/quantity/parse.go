package quantity

import (
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/blockgen/internal/ir"
)

// siPrefixes maps SI prefix symbols to powers of ten.
var siPrefixes = map[rune]int32{
	'f': -15,
	'p': -12,
	'n': -9,
	'u': -6,
	'µ': -6,
	'm': -3,
	'k': 3,
	'K': 3,
	'M': 6,
	'G': 9,
	'T': 12,

	// Greek small letter mu, often typed instead of the micro sign.
	'\u03bc': -6,
}

// Parse reads a decimal with an optional SI prefix and unit tag:
// "4GHz", "50uA", "10 pF", "1kOhm", "0.25UI", "2.5e9Hz", "16".
// A bare prefix without a unit scales a dimensionless number ("4G").
func Parse(s string) (Value, error) {
	text := strings.TrimSpace(s)
	numEnd := scanNumber(text)
	if numEnd == 0 {
		return Value{}, ir.Errorf(ir.ErrCodeInvalidValue, "not a number: %q", s)
	}
	d, _, err := apd.NewFromString(text[:numEnd])
	if err != nil {
		return Value{}, ir.Errorf(ir.ErrCodeInvalidValue, "not a number: %q", s)
	}
	suffix := strings.TrimSpace(text[numEnd:])

	if u, ok := unitAliases[suffix]; ok {
		return Value{d: d, unit: u}, nil
	}
	r, size := utf8.DecodeRuneInString(suffix)
	exp, ok := siPrefixes[r]
	if !ok {
		u, err := ParseUnit(suffix)
		if err != nil {
			return Value{}, ir.Errorf(ir.ErrCodeInvalidValue, "unknown unit in %q", s)
		}
		return Value{d: d, unit: u}, nil
	}
	u, ok := unitAliases[suffix[size:]]
	if !ok {
		return Value{}, ir.Errorf(ir.ErrCodeInvalidValue, "unknown unit in %q", s)
	}
	d.Exponent += exp
	return Value{d: d, unit: u}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Value {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseAs parses s and tags a bare number with unit. A value carrying a
// different unit is a UnitMismatch.
func ParseAs(s string, unit Unit) (Value, error) {
	v, err := Parse(s)
	if err != nil {
		return Value{}, err
	}
	if v.unit == Dimensionless {
		return v.WithUnit(unit), nil
	}
	if v.unit != unit {
		return Value{}, mismatch("assign", v.unit, unit)
	}
	return v, nil
}

// scanNumber returns the length of the leading decimal literal:
// optional sign, digits with at most one point, optional exponent.
func scanNumber(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	// An exponent needs at least one digit after e/E and an optional sign.
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
