package port

import (
	"slices"

	"github.com/roach88/blockgen/internal/ir"
)

// Bundle is an ordered, read-only set of uniquely named ports.
type Bundle struct {
	ports []Port
	index map[string]int
}

// NewBundle builds a bundle, rejecting duplicate names and negative widths.
func NewBundle(ports ...Port) (*Bundle, error) {
	b := &Bundle{
		ports: make([]Port, 0, len(ports)),
		index: make(map[string]int, len(ports)),
	}
	for _, p := range ports {
		if p.Name == "" || !isIdent(p.Name) {
			return nil, ir.Errorf(ir.ErrCodeInvalidKind, "invalid port name %q", p.Name)
		}
		if p.Width < 0 {
			return nil, ir.Errorf(ir.ErrCodeInvalidKind, "negative width %d", p.Width).WithPort(p.Name)
		}
		if _, dup := b.index[p.Name]; dup {
			return nil, ir.Errorf(ir.ErrCodeDuplicatePort, "port %q declared twice", p.Name).WithPort(p.Name)
		}
		b.index[p.Name] = len(b.ports)
		b.ports = append(b.ports, p)
	}
	return b, nil
}

// FromSpecs builds a bundle from declarations.
func FromSpecs(specs []ir.PortSpec) (*Bundle, error) {
	ports := make([]Port, len(specs))
	for i, s := range specs {
		dir, err := ParseDirection(s.Dir)
		if err != nil {
			if e, ok := ir.AsError(err); ok {
				e.WithPort(s.Name)
			}
			return nil, err
		}
		ports[i] = Port{Name: s.Name, Dir: dir, Width: s.Width, Group: s.Group}
	}
	return NewBundle(ports...)
}

// Port looks up a port by name.
func (b *Bundle) Port(name string) (Port, bool) {
	i, ok := b.index[name]
	if !ok {
		return Port{}, false
	}
	return b.ports[i], true
}

// Ports returns the ports in declaration order.
func (b *Bundle) Ports() []Port {
	return slices.Clone(b.ports)
}

// Len returns the number of ports.
func (b *Bundle) Len() int {
	return len(b.ports)
}

// Group returns the ports of a group in declaration order.
func (b *Bundle) Group(name string) []Port {
	var out []Port
	for _, p := range b.ports {
		if p.Group == name {
			out = append(out, p)
		}
	}
	return out
}
