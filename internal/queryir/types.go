package queryir

import "github.com/roach88/blockgen/internal/ir"

// Field names an outcome column a filter may compare.
type Field string

const (
	FieldPoint       Field = "point"
	FieldState       Field = "state"
	FieldDesign      Field = "design"
	FieldFingerprint Field = "fingerprint"
)

// Fields lists every filterable field.
var Fields = []Field{FieldPoint, FieldState, FieldDesign, FieldFingerprint}

// Query selects the outcomes of one run that satisfy Filter.
// A nil Filter selects every point.
type Query struct {
	RunID  string    `json:"run_id"`
	Filter Predicate `json:"filter,omitempty"`
}

// Predicate is a sealed filter node.
type Predicate interface {
	predicateNode()
}

// Equals matches outcomes whose Field equals Value.
type Equals struct {
	Field Field      `json:"field"`
	Value ir.IRValue `json:"value"`
}

func (Equals) predicateNode() {}

// Violated matches outcomes that violated the named constraint.
type Violated struct {
	Constraint string `json:"constraint"`
}

func (Violated) predicateNode() {}

// And matches outcomes satisfying every predicate. An empty And matches all.
type And struct {
	Predicates []Predicate `json:"predicates"`
}

func (And) predicateNode() {}
