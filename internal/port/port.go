package port

import (
	"fmt"

	"github.com/roach88/blockgen/internal/ir"
)

// Direction is the signal direction of a port as seen from inside its block.
type Direction int

const (
	Input Direction = iota
	Output
	InOut
)

// ParseDirection maps declaration text to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case ir.DirInput, "in":
		return Input, nil
	case ir.DirOutput, "out":
		return Output, nil
	case ir.DirInOut:
		return InOut, nil
	default:
		return 0, ir.Errorf(ir.ErrCodeInvalidKind, "unknown port direction %q", s)
	}
}

func (d Direction) String() string {
	switch d {
	case Input:
		return ir.DirInput
	case Output:
		return ir.DirOutput
	case InOut:
		return ir.DirInOut
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Drives reports whether a block port with this direction can source a net.
func (d Direction) Drives() bool {
	return d == Output || d == InOut
}

// Sinks reports whether a block port with this direction can be driven.
func (d Direction) Sinks() bool {
	return d == Input || d == InOut
}

// Flip returns the direction as seen from inside a composite: a composite's
// input boundary port drives its internal net.
func (d Direction) Flip() Direction {
	switch d {
	case Input:
		return Output
	case Output:
		return Input
	default:
		return d
	}
}

// Port is one entry of a bundle. Width 0 is a single signal; Width N is an
// array of N signals addressed as name[0] .. name[N-1].
type Port struct {
	Name  string
	Dir   Direction
	Width int
	Group string
}

// Bits returns the number of signals the port carries.
func (p Port) Bits() int {
	if p.Width == 0 {
		return 1
	}
	return p.Width
}

// IsArray reports whether the port is indexable.
func (p Port) IsArray() bool {
	return p.Width > 0
}

func (p Port) String() string {
	if p.IsArray() {
		return fmt.Sprintf("%s %s[%d]", p.Dir, p.Name, p.Width)
	}
	return fmt.Sprintf("%s %s", p.Dir, p.Name)
}
