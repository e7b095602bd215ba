package sweep

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Spec is a sweep file: a base scenario and the override sets to run it
// with.
//
//	name: vco_fmax
//	scenario: ../scenarios/pll_reference.yaml
//	points:
//	  - { vco.fmax: "8GHz" }
//	grid:
//	  vco.fmax: ["6GHz", "8GHz"]
//	  divider.div_max: ["4", "8"]
//
// Points run first, in file order, then the grid's cartesian product.
type Spec struct {
	Name     string              `yaml:"name"`
	Scenario string              `yaml:"scenario"`
	Points   []map[string]string `yaml:"points,omitempty"`
	Grid     map[string][]string `yaml:"grid,omitempty"`
}

// LoadSpec reads a sweep file. The scenario path is resolved relative to
// the file's directory.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sweep file: %w", err)
	}

	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if spec.Scenario != "" && !filepath.IsAbs(spec.Scenario) {
		spec.Scenario = filepath.Join(filepath.Dir(path), spec.Scenario)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid sweep: %w", err)
	}
	return &spec, nil
}

func (s *Spec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Scenario == "" {
		return fmt.Errorf("scenario is required")
	}
	if len(s.Points) == 0 && len(s.Grid) == 0 {
		return fmt.Errorf("points or grid is required")
	}
	for key, values := range s.Grid {
		if len(values) == 0 {
			return fmt.Errorf("grid.%s: at least one value is required", key)
		}
	}
	return nil
}

// Expand returns every override set: the explicit points, then the grid
// product with keys in sorted order and the last key varying fastest.
func (s *Spec) Expand() []map[string]string {
	out := make([]map[string]string, 0, len(s.Points))
	for _, p := range s.Points {
		out = append(out, maps.Clone(p))
	}
	if len(s.Grid) == 0 {
		return out
	}

	keys := slices.Sorted(maps.Keys(s.Grid))
	product := []map[string]string{{}}
	for _, key := range keys {
		next := make([]map[string]string, 0, len(product)*len(s.Grid[key]))
		for _, partial := range product {
			for _, v := range s.Grid[key] {
				p := maps.Clone(partial)
				p[key] = v
				next = append(next, p)
			}
		}
		product = next
	}
	return append(out, product...)
}
