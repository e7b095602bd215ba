package ir

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Class is the top-level error taxonomy.
type Class string

const (
	// SchemaError: a kind or rule is malformed, or a referenced kind or
	// parameter does not exist.
	SchemaError Class = "SchemaError"

	// WiringError: a connection or composite structure is illegal.
	WiringError Class = "WiringError"

	// RangeError: a parameter value is outside its declared range.
	RangeError Class = "RangeError"
)

// Code identifies a specific error condition.
type Code string

const (
	ErrCodeDuplicateKind       Code = "DUPLICATE_KIND"
	ErrCodeUnknownKind         Code = "UNKNOWN_KIND"
	ErrCodeUnknownParameter    Code = "UNKNOWN_PARAMETER"
	ErrCodeMissingParameter    Code = "MISSING_PARAMETER"
	ErrCodeDuplicateParameter  Code = "DUPLICATE_PARAMETER"
	ErrCodeDuplicatePort       Code = "DUPLICATE_PORT"
	ErrCodeInvalidRange        Code = "INVALID_RANGE"
	ErrCodeInvalidValue        Code = "INVALID_VALUE"
	ErrCodeUnitMismatch        Code = "UNIT_MISMATCH"
	ErrCodeMalformedConstraint Code = "MALFORMED_CONSTRAINT"
	ErrCodeInvalidKind         Code = "INVALID_KIND"

	ErrCodeDuplicateInstance  Code = "DUPLICATE_INSTANCE"
	ErrCodeUnknownInstance    Code = "UNKNOWN_INSTANCE"
	ErrCodeUnknownPort        Code = "UNKNOWN_PORT"
	ErrCodeDirectionMismatch  Code = "DIRECTION_MISMATCH"
	ErrCodeWidthMismatch      Code = "WIDTH_MISMATCH"
	ErrCodePortAlreadyDriven  Code = "PORT_ALREADY_DRIVEN"
	ErrCodeTopologyViolation  Code = "TOPOLOGY_VIOLATION"
	ErrCodeInvalidState       Code = "INVALID_STATE"
	ErrCodeInvalidEndpoint    Code = "INVALID_ENDPOINT"
	ErrCodeOutOfRange         Code = "OUT_OF_RANGE"
	ErrCodeConstraintViolated Code = "CONSTRAINT_VIOLATED"
)

var codeClasses = map[Code]Class{
	ErrCodeDuplicateKind:       SchemaError,
	ErrCodeUnknownKind:         SchemaError,
	ErrCodeUnknownParameter:    SchemaError,
	ErrCodeMissingParameter:    SchemaError,
	ErrCodeDuplicateParameter:  SchemaError,
	ErrCodeDuplicatePort:       SchemaError,
	ErrCodeInvalidRange:        SchemaError,
	ErrCodeInvalidValue:        SchemaError,
	ErrCodeUnitMismatch:        SchemaError,
	ErrCodeMalformedConstraint: SchemaError,
	ErrCodeInvalidKind:         SchemaError,

	ErrCodeDuplicateInstance: WiringError,
	ErrCodeUnknownInstance:   WiringError,
	ErrCodeUnknownPort:       WiringError,
	ErrCodeDirectionMismatch: WiringError,
	ErrCodeWidthMismatch:     WiringError,
	ErrCodePortAlreadyDriven: WiringError,
	ErrCodeTopologyViolation: WiringError,
	ErrCodeInvalidState:      WiringError,
	ErrCodeInvalidEndpoint:   WiringError,

	ErrCodeOutOfRange: RangeError,
}

// Class returns the taxonomy class of a code.
func (c Code) Class() Class {
	return codeClasses[c]
}

// Error is the structured error raised by registration, instantiation,
// wiring and parameter construction. Constraint violations are not errors;
// they are collected into a Report.
type Error struct {
	// Code identifies the error condition.
	Code Code

	// Message is a human-readable description.
	Message string

	// BlockKind is the block kind involved, if any.
	BlockKind string

	// Instance is the instance involved, if any.
	Instance string

	// Parameter is the parameter involved, if any.
	Parameter string

	// Port is the port or endpoint involved, if any.
	Port string

	// Details carries extra context such as expected and actual values.
	Details map[string]string
}

// Class returns the taxonomy class of the error.
func (e *Error) Class() Class {
	return e.Code.Class()
}

// Error implements the error interface.
func (e *Error) Error() string {
	var subject []string
	if e.BlockKind != "" {
		subject = append(subject, "kind="+e.BlockKind)
	}
	if e.Instance != "" {
		subject = append(subject, "instance="+e.Instance)
	}
	if e.Parameter != "" {
		subject = append(subject, "param="+e.Parameter)
	}
	if e.Port != "" {
		subject = append(subject, "port="+e.Port)
	}
	if len(subject) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(subject, ", "))
}

// Errorf builds an Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithKind sets BlockKind and returns e.
func (e *Error) WithKind(kind string) *Error {
	e.BlockKind = kind
	return e
}

// WithInstance sets Instance and returns e.
func (e *Error) WithInstance(name string) *Error {
	e.Instance = name
	return e
}

// WithParameter sets Parameter and returns e.
func (e *Error) WithParameter(name string) *Error {
	e.Parameter = name
	return e
}

// WithPort sets Port and returns e.
func (e *Error) WithPort(name string) *Error {
	e.Port = name
	return e
}

// WithDetail adds a detail entry and returns e.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// AsError extracts an *Error from err, following wrapped errors.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// ClassOf returns the taxonomy class of err, or "" if err is not an *Error.
func ClassOf(err error) Class {
	if e, ok := AsError(err); ok {
		return e.Class()
	}
	return ""
}

// IsSchemaError reports whether err is a SchemaError.
func IsSchemaError(err error) bool { return ClassOf(err) == SchemaError }

// IsWiringError reports whether err is a WiringError.
func IsWiringError(err error) bool { return ClassOf(err) == WiringError }

// IsRangeError reports whether err is a RangeError.
func IsRangeError(err error) bool { return ClassOf(err) == RangeError }

// MultiError collects several schema problems found in one pass.
type MultiError struct {
	Errors []*Error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// As lets errors.As reach the first collected error.
func (m *MultiError) As(target any) bool {
	if len(m.Errors) == 0 {
		return false
	}
	if t, ok := target.(**Error); ok {
		*t = m.Errors[0]
		return true
	}
	return false
}

// Codes returns the collected codes in order.
func (m *MultiError) Codes() []Code {
	codes := make([]Code, len(m.Errors))
	for i, e := range m.Errors {
		codes[i] = e.Code
	}
	return codes
}

// Join returns nil for no errors, the error itself for one, and a
// MultiError otherwise.
func Join(errs []*Error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &MultiError{Errors: slices.Clone(errs)}
	}
}
