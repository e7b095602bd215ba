package harness

import "github.com/roach88/blockgen/internal/compose"

// Step operations recorded in the trace.
const (
	OpBegin    = "begin"
	OpInstance = "instance"
	OpConnect  = "connect"
	OpWire     = "wire"
	OpFinalize = "finalize"
)

// TraceEvent records one builder call.
type TraceEvent struct {
	Op     string `json:"op"`
	Target string `json:"target"`          // instance name, "from -> to", or the design
	Error  string `json:"error,omitempty"` // error code, empty on success
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expect clause and all assertions hold.
	Pass bool `json:"pass"`

	// Trace contains every builder call in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the builder state after the last step.
	State string `json:"state"`

	// Outcome is the finalize result; nil when assembly stopped early.
	Outcome *compose.Result `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace records a builder call; code is empty on success.
func (r *Result) AddTrace(op, target, code string) {
	r.Trace = append(r.Trace, TraceEvent{Op: op, Target: target, Error: code})
}
