package port

import (
	"strconv"
	"strings"

	"github.com/roach88/blockgen/internal/ir"
)

// Whole marks an endpoint that addresses an entire port rather than one element.
const Whole = -1

// Endpoint addresses a port of an instance, one element of an array port,
// or a boundary port of the enclosing composite (Instance == "").
type Endpoint struct {
	Instance string
	Port     string
	Index    int
}

// At builds an endpoint for a whole port.
func At(instance, port string) Endpoint {
	return Endpoint{Instance: instance, Port: port, Index: Whole}
}

// Boundary builds an endpoint for a composite boundary port.
func Boundary(port string) Endpoint {
	return Endpoint{Port: port, Index: Whole}
}

// Elem returns e narrowed to element i.
func (e Endpoint) Elem(i int) Endpoint {
	e.Index = i
	return e
}

// IsBoundary reports whether e refers to the enclosing composite.
func (e Endpoint) IsBoundary() bool {
	return e.Instance == ""
}

func (e Endpoint) String() string {
	var b strings.Builder
	if e.Instance != "" {
		b.WriteString(e.Instance)
		b.WriteByte('.')
	}
	b.WriteString(e.Port)
	if e.Index != Whole {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(e.Index))
		b.WriteByte(']')
	}
	return b.String()
}

// ParseEndpoint reads "inst.port", "inst.port[3]", "port" or "port[3]".
func ParseEndpoint(s string) (Endpoint, error) {
	bad := func() (Endpoint, error) {
		return Endpoint{}, ir.Errorf(ir.ErrCodeInvalidEndpoint, "malformed endpoint %q", s).WithPort(s)
	}
	text := strings.TrimSpace(s)
	e := Endpoint{Index: Whole}
	if open := strings.IndexByte(text, '['); open >= 0 {
		if !strings.HasSuffix(text, "]") {
			return bad()
		}
		n, err := strconv.Atoi(text[open+1 : len(text)-1])
		if err != nil || n < 0 {
			return bad()
		}
		e.Index = n
		text = text[:open]
	}
	inst, name, dotted := strings.Cut(text, ".")
	if !dotted {
		inst, name = "", text
	}
	if dotted && !isIdent(inst) || !isIdent(name) {
		return bad()
	}
	e.Instance, e.Port = inst, name
	return e, nil
}

// MustEndpoint is ParseEndpoint for literals known to be valid.
func MustEndpoint(s string) Endpoint {
	e, err := ParseEndpoint(s)
	if err != nil {
		panic(err)
	}
	return e
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
