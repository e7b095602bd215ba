package compose

// State is the lifecycle position of a Builder.
type State int

const (
	Empty State = iota
	Assembling
	Validated
	Rejected
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Assembling:
		return "assembling"
	case Validated:
		return "validated"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Validated || s == Rejected
}
