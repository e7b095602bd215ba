package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/port"
	"github.com/roach88/blockgen/internal/quantity"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// KindSpec errors (E101-E119)
	ErrInvalidKindName   = "E101" // kind name is not an identifier
	ErrKindNoPorts       = "E102" // at least one port required
	ErrInvalidDirection  = "E103" // port direction not input/output/inout
	ErrInvalidWidth      = "E104" // negative port width
	ErrDuplicateName     = "E105" // duplicate port/param/role/derived/constraint name
	ErrUnknownUnit       = "E106" // unit tag does not parse
	ErrInvalidRange      = "E107" // range is not interval notation
	ErrInvalidDefault    = "E108" // default does not parse or lies outside range
	ErrEmptyRule         = "E109" // constraint or derived expression empty
	ErrLeafComposition   = "E110" // derived or topology on a non-composite
	ErrInvalidEdge       = "E111" // topology endpoint does not parse
	ErrUnknownRole       = "E112" // topology endpoint names no role
	ErrInvalidIdentifier = "E113" // port/param/role name is not an identifier

	// Library errors (E120-E129)
	ErrRoleCycle       = "E120" // composites hold each other through roles
	ErrInvalidTableKey = "E121" // range table kind or parameter not an identifier
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate lints compiled IR before it reaches a registry.
// Returns all errors found (does not fail-fast).
// Supports KindSpec and RangeTable. Rule bodies are not compiled here;
// registration type-checks them against the resolved scope.
func Validate(v any) []ValidationError {
	switch ir := v.(type) {
	case *ir.KindSpec:
		return validateKindSpec(ir)
	case ir.KindSpec:
		return validateKindSpec(&ir)
	case ir.RangeTable:
		return validateRangeTable(ir)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// identPattern matches kind, port, parameter and role names.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateKindSpec validates a kind declaration.
func validateKindSpec(spec *ir.KindSpec) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	// E101: kind name
	if !identPattern.MatchString(spec.Name) {
		add("name", ErrInvalidKindName, "kind name %q is not an identifier", spec.Name)
	}

	// E102: ports
	if len(spec.Ports) == 0 {
		add("ports", ErrKindNoPorts, "at least one port is required")
	}

	portNames := make(map[string]bool)
	for i, p := range spec.Ports {
		field := fmt.Sprintf("ports[%d]", i)
		if !identPattern.MatchString(p.Name) {
			add(field+".name", ErrInvalidIdentifier, "port name %q is not an identifier", p.Name)
		}
		if portNames[p.Name] {
			add(field+".name", ErrDuplicateName, "duplicate port name: %q", p.Name)
		}
		portNames[p.Name] = true
		if !isValidDirection(p.Dir) {
			add(field+".dir", ErrInvalidDirection,
				"invalid direction %q, must be \"input\", \"output\", or \"inout\"", p.Dir)
		}
		if p.Width < 0 {
			add(field+".width", ErrInvalidWidth, "width %d of port %q is negative", p.Width, p.Name)
		}
	}

	// Parameters and derived values share one namespace.
	valueNames := make(map[string]bool)
	for i, p := range spec.Params {
		field := fmt.Sprintf("params[%d]", i)
		if !identPattern.MatchString(p.Name) {
			add(field+".name", ErrInvalidIdentifier, "parameter name %q is not an identifier", p.Name)
		}
		if valueNames[p.Name] {
			add(field+".name", ErrDuplicateName, "duplicate parameter name: %q", p.Name)
		}
		valueNames[p.Name] = true
		errs = append(errs, validateParam(field, p)...)
	}

	roleNames := make(map[string]bool)
	for i, r := range spec.Roles {
		field := fmt.Sprintf("roles[%d]", i)
		if !identPattern.MatchString(r.Name) {
			add(field+".name", ErrInvalidIdentifier, "role name %q is not an identifier", r.Name)
		}
		if roleNames[r.Name] {
			add(field+".name", ErrDuplicateName, "duplicate role name: %q", r.Name)
		}
		roleNames[r.Name] = true
		if !identPattern.MatchString(r.Kind) {
			add(field+".kind", ErrInvalidKindName, "role %q holds invalid kind name %q", r.Name, r.Kind)
		}
	}

	for i, d := range spec.Derived {
		field := fmt.Sprintf("derived[%d]", i)
		if valueNames[d.Name] {
			add(field+".name", ErrDuplicateName, "derived value %q shadows a parameter", d.Name)
		}
		valueNames[d.Name] = true
		if strings.TrimSpace(d.Expr) == "" {
			add(field+".expr", ErrEmptyRule, "derived value %q has no expression", d.Name)
		}
	}

	// E110: composition on a leaf kind
	if !spec.IsComposite() {
		if len(spec.Derived) > 0 {
			add("derived", ErrLeafComposition, "derived values need a composite kind")
		}
		if len(spec.Topology) > 0 {
			add("topology", ErrLeafComposition, "topology needs a composite kind")
		}
	}

	for i, e := range spec.Topology {
		errs = append(errs, validateEndpoint(fmt.Sprintf("topology[%d].from", i), e.From, roleNames, portNames)...)
		errs = append(errs, validateEndpoint(fmt.Sprintf("topology[%d].to", i), e.To, roleNames, portNames)...)
	}

	constraintNames := make(map[string]bool)
	for i, c := range spec.Constraints {
		field := fmt.Sprintf("constraints[%d]", i)
		if constraintNames[c.Name] {
			add(field+".name", ErrDuplicateName, "duplicate constraint name: %q", c.Name)
		}
		constraintNames[c.Name] = true
		if strings.TrimSpace(c.Rule) == "" {
			add(field+".rule", ErrEmptyRule, "constraint %q has no rule", c.Name)
		}
	}

	return errs
}

// validateParam checks unit, range and default of one parameter.
func validateParam(field string, p ir.ParamSpec) []ValidationError {
	var errs []ValidationError

	// E106: unit
	unit, err := quantity.ParseUnit(p.Unit)
	if err != nil {
		return append(errs, ValidationError{
			Field:   field + ".unit",
			Message: fmt.Sprintf("unknown unit %q for parameter %q", p.Unit, p.Name),
			Code:    ErrUnknownUnit,
		})
	}

	// E107: range
	r, err := quantity.ParseRange(p.Range, unit)
	if err != nil {
		return append(errs, ValidationError{
			Field:   field + ".range",
			Message: fmt.Sprintf("invalid range %q for parameter %q: %v", p.Range, p.Name, err),
			Code:    ErrInvalidRange,
		})
	}

	// E108: default
	if p.Default != "" {
		if _, err := quantity.ParseParameter(p.Name, p.Default, r); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".default",
				Message: fmt.Sprintf("default %q for parameter %q: %v", p.Default, p.Name, err),
				Code:    ErrInvalidDefault,
			})
		}
	}

	return errs
}

// validateEndpoint checks that a topology endpoint parses and names a
// declared role or boundary port.
func validateEndpoint(field, text string, roles, ports map[string]bool) []ValidationError {
	ep, err := port.ParseEndpoint(text)
	if err != nil {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("invalid endpoint %q: %v", text, err),
			Code:    ErrInvalidEdge,
		}}
	}
	if ep.IsBoundary() {
		if !ports[ep.Port] {
			return []ValidationError{{
				Field:   field,
				Message: fmt.Sprintf("endpoint %q names no boundary port", text),
				Code:    ErrInvalidEdge,
			}}
		}
		return nil
	}
	if !roles[ep.Instance] {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("endpoint %q names no role", text),
			Code:    ErrUnknownRole,
		}}
	}
	return nil
}

// validateRangeTable checks table keys and range syntax. Units are checked
// when the table is applied to a registry, where each parameter's unit is
// known.
func validateRangeTable(table ir.RangeTable) []ValidationError {
	var errs []ValidationError
	for _, kind := range table.Kinds() {
		if !identPattern.MatchString(kind) {
			errs = append(errs, ValidationError{
				Field:   kind,
				Message: fmt.Sprintf("kind name %q is not an identifier", kind),
				Code:    ErrInvalidTableKey,
			})
		}
		for _, param := range table[kind].Params() {
			field := kind + "." + param
			if !identPattern.MatchString(param) {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("parameter name %q is not an identifier", param),
					Code:    ErrInvalidTableKey,
				})
			}
			if _, err := quantity.ParseRange(table[kind][param], quantity.Dimensionless); err != nil && !ir.IsCode(err, ir.ErrCodeUnitMismatch) {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("invalid range %q: %v", table[kind][param], err),
					Code:    ErrInvalidRange,
				})
			}
		}
	}
	return errs
}

// isValidDirection checks a port direction.
func isValidDirection(dir string) bool {
	return dir == ir.DirInput || dir == ir.DirOutput || dir == ir.DirInOut
}
