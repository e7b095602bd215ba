package harness

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blockgen/internal/ir"
)

// Scenario defines one design to assemble and the outcome it must reach.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Kind is the composite kind to build.
	Kind string `yaml:"kind"`

	// Design names the composite instance. Defaults to Name.
	Design string `yaml:"design,omitempty"`

	// Ranges lists range-table files applied to the registry before
	// assembly. Paths are relative to the scenario file.
	Ranges []string `yaml:"ranges,omitempty"`

	// Params binds the composite's own parameters.
	Params map[string]string `yaml:"params"`

	// Instances are added in order.
	Instances []InstanceStep `yaml:"instances"`

	// Wiring is "canonical" (connect every topology edge after the explicit
	// connections, the default) or "explicit" (only the listed connections).
	Wiring string `yaml:"wiring,omitempty"`

	// Connections are made in order, before canonical wiring.
	Connections []ConnectionStep `yaml:"connections,omitempty"`

	// Expect is the required final outcome.
	Expect ExpectClause `yaml:"expect"`

	// Assertions check details of the outcome.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// InstanceStep adds one sub-block.
type InstanceStep struct {
	Kind   string            `yaml:"kind"`
	Name   string            `yaml:"name"`
	Params map[string]string `yaml:"params"`

	// ExpectError is the error code this step must fail with. The step is
	// then skipped and assembly continues.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ConnectionStep wires two endpoints ("vco.out", "ref").
type ConnectionStep struct {
	From        string `yaml:"from"`
	To          string `yaml:"to"`
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ExpectClause specifies the final outcome.
type ExpectClause struct {
	// State is the builder state after the last step: validated, rejected
	// or, when assembly stops early, empty or assembling.
	State string `yaml:"state"`

	// Error is the code of the error that stopped assembly, if any.
	Error string `yaml:"error,omitempty"`

	// Violations are the violated constraint names in report order.
	// Exact match when State is rejected.
	Violations []string `yaml:"violations,omitempty"`
}

// Wiring modes.
const (
	WiringCanonical = "canonical"
	WiringExplicit  = "explicit"
)

// Assertion checks one detail of the outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "violation": a violation of Constraint exists (subset match on the
	//   remaining fields)
	// - "skipped": Constraint was skipped
	// - "derived": derived value Name equals Value
	// - "connections": the validated design has Count connections
	// - "step_error": the step on Target failed with Code
	Type string `yaml:"type"`

	Constraint string   `yaml:"constraint,omitempty"`
	Pass       string   `yaml:"pass,omitempty"`
	Instances  []string `yaml:"instances,omitempty"`
	Expected   string   `yaml:"expected,omitempty"`
	Actual     string   `yaml:"actual,omitempty"`

	Name  string `yaml:"name,omitempty"`
	Value string `yaml:"value,omitempty"`

	Count int `yaml:"count,omitempty"`

	Target string `yaml:"target,omitempty"`
	Code   string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertViolation   = "violation"
	AssertSkipped     = "skipped"
	AssertDerived     = "derived"
	AssertConnections = "connections"
	AssertStepError   = "step_error"
)

// LoadScenario reads and parses a scenario YAML file. Range-table paths are
// resolved relative to the file's directory.
//
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving range-table paths against
// baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Strict field validation catches typos like "instance:" vs "instances:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, p := range scenario.Ranges {
		if !filepath.IsAbs(p) && baseDir != "" {
			scenario.Ranges[i] = filepath.Join(baseDir, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// DesignName returns the composite instance name.
func (s *Scenario) DesignName() string {
	if s.Design != "" {
		return s.Design
	}
	return s.Name
}

// Clone returns a deep copy.
func (s *Scenario) Clone() *Scenario {
	c := *s
	c.Ranges = append([]string(nil), s.Ranges...)
	c.Params = maps.Clone(s.Params)
	c.Instances = make([]InstanceStep, len(s.Instances))
	for i, step := range s.Instances {
		step.Params = maps.Clone(step.Params)
		c.Instances[i] = step
	}
	c.Connections = append([]ConnectionStep(nil), s.Connections...)
	c.Expect.Violations = append([]string(nil), s.Expect.Violations...)
	c.Assertions = append([]Assertion(nil), s.Assertions...)
	return &c
}

// WithOverrides returns a copy with parameter values replaced. Keys are
// "instance.param" for sub-blocks or a bare "param" for the composite.
func (s *Scenario) WithOverrides(overrides map[string]string) (*Scenario, error) {
	c := s.Clone()
	for _, key := range slices.Sorted(maps.Keys(overrides)) {
		value := overrides[key]
		inst, param, ok := strings.Cut(key, ".")
		if !ok {
			if c.Params == nil {
				c.Params = map[string]string{}
			}
			c.Params[key] = value
			continue
		}
		found := false
		for i := range c.Instances {
			if c.Instances[i].Name != inst {
				continue
			}
			if c.Instances[i].Params == nil {
				c.Instances[i].Params = map[string]string{}
			}
			c.Instances[i].Params[param] = value
			found = true
		}
		if !found {
			return nil, ir.Errorf(ir.ErrCodeUnknownInstance, "override %q names no instance of scenario %s", key, s.Name).
				WithInstance(inst).WithParameter(param)
		}
	}
	return c, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Kind == "" {
		return fmt.Errorf("kind is required")
	}

	switch s.Wiring {
	case "", WiringCanonical, WiringExplicit:
	default:
		return fmt.Errorf("wiring must be %q or %q, got %q", WiringCanonical, WiringExplicit, s.Wiring)
	}

	for _, p := range s.Ranges {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("range table not found: %s", p)
		}
	}

	for i, step := range s.Instances {
		if step.Kind == "" {
			return fmt.Errorf("instances[%d]: kind is required", i)
		}
		if step.Name == "" {
			return fmt.Errorf("instances[%d]: name is required", i)
		}
	}
	for i, step := range s.Connections {
		if step.From == "" || step.To == "" {
			return fmt.Errorf("connections[%d]: from and to are required", i)
		}
	}

	switch s.Expect.State {
	case "validated", "rejected", "empty", "assembling":
	case "":
		return fmt.Errorf("expect.state is required")
	default:
		return fmt.Errorf("expect.state: unknown state %q", s.Expect.State)
	}
	if s.Expect.State == "validated" && len(s.Expect.Violations) > 0 {
		return fmt.Errorf("expect.violations must be empty for a validated design")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertViolation, AssertSkipped:
		if a.Constraint == "" {
			return fmt.Errorf("assertions[%d]: constraint is required for %s", index, a.Type)
		}
	case AssertDerived:
		if a.Name == "" || a.Value == "" {
			return fmt.Errorf("assertions[%d]: name and value are required for derived", index)
		}
	case AssertConnections:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for connections", index)
		}
	case AssertStepError:
		if a.Target == "" || a.Code == "" {
			return fmt.Errorf("assertions[%d]: target and code are required for step_error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// ToIR returns the design-relevant part of the scenario in canonical form:
// kind, design name, parameter values, instances, connections and wiring
// mode. Descriptions, expectations and file paths are left out.
func (s *Scenario) ToIR() ir.IRObject {
	instances := make(ir.IRArray, len(s.Instances))
	for i, step := range s.Instances {
		instances[i] = ir.IRObject{
			"kind":   ir.IRString(step.Kind),
			"name":   ir.IRString(step.Name),
			"params": stringMap(step.Params),
		}
	}
	connections := make(ir.IRArray, len(s.Connections))
	for i, c := range s.Connections {
		connections[i] = ir.IRObject{
			"from": ir.IRString(c.From),
			"to":   ir.IRString(c.To),
		}
	}
	wiring := s.Wiring
	if wiring == "" {
		wiring = WiringCanonical
	}
	return ir.IRObject{
		"kind":        ir.IRString(s.Kind),
		"design":      ir.IRString(s.DesignName()),
		"params":      stringMap(s.Params),
		"instances":   instances,
		"connections": connections,
		"wiring":      ir.IRString(wiring),
	}
}

func stringMap(m map[string]string) ir.IRObject {
	obj := make(ir.IRObject, len(m))
	for k, v := range m {
		obj[k] = ir.IRString(v)
	}
	return obj
}
