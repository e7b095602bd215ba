package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/blockgen/internal/ir"
)

// Run is one stored sweep.
type Run struct {
	ID          string
	Seq         int64 // assigned by WriteRun
	Name        string
	Kind        string
	Points      int
	BaseHash    string
	ToolVersion string
	IRVersion   string
}

// Outcome states beyond the builder's validated/rejected: a point whose
// parameters could not even be bound is stored as StateError.
const (
	StateValidated = "validated"
	StateRejected  = "rejected"
	StateError     = "error"
)

// Outcome is one stored sweep point.
type Outcome struct {
	RunID       string
	Point       int
	Design      string
	State       string
	Fingerprint string            // empty unless validated
	Overrides   map[string]string // "instance.param" -> value text
	Violations  []ir.Violation

	// Result is the canonical result object on write. On read it is nil and
	// ResultJSON holds the stored bytes.
	Result     ir.IRObject
	ResultJSON string
	ResultHash string
}

// marshalOverrides converts overrides to canonical JSON TEXT for storage.
func marshalOverrides(overrides map[string]string) (string, error) {
	obj := make(ir.IRObject, len(overrides))
	for k, v := range overrides {
		obj[k] = ir.IRString(v)
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal overrides: %w", err)
	}
	return string(data), nil
}

// unmarshalOverrides reverses marshalOverrides.
func unmarshalOverrides(text string) (map[string]string, error) {
	overrides := map[string]string{}
	if err := json.Unmarshal([]byte(text), &overrides); err != nil {
		return nil, fmt.Errorf("unmarshal overrides: %w", err)
	}
	return overrides, nil
}

// marshalResult converts a result object to canonical JSON TEXT and its
// content hash.
func marshalResult(result ir.IRObject) (string, string, error) {
	data, err := ir.MarshalCanonical(result)
	if err != nil {
		return "", "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), ir.OutcomeHashJSON(data), nil
}

// marshalInstances stores a violation's instance list as a JSON array.
func marshalInstances(instances []string) (string, error) {
	arr := make(ir.IRArray, len(instances))
	for i, s := range instances {
		arr[i] = ir.IRString(s)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal instances: %w", err)
	}
	return string(data), nil
}

func unmarshalInstances(text string) ([]string, error) {
	instances := []string{}
	if err := json.Unmarshal([]byte(text), &instances); err != nil {
		return nil, fmt.Errorf("unmarshal instances: %w", err)
	}
	return instances, nil
}
