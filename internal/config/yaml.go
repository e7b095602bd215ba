package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blockgen/internal/ir"
)

type yamlFile struct {
	Ranges map[string]map[string]yaml.Node `yaml:"ranges"`
}

func parseYAML(data []byte) (ir.RangeTable, error) {
	var f yamlFile
	decoder := yaml.NewDecoder(bytes.NewReader(trimBOM(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return ir.RangeTable{}, nil
		}
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	table := make(ir.RangeTable, len(f.Ranges))
	for kind, params := range f.Ranges {
		ranges := make(ir.KindRanges, len(params))
		for param, node := range params {
			// Unquoted [lo, hi] parses as a YAML sequence; only strings count.
			if node.Kind != yaml.ScalarNode || node.Tag != "!!str" {
				return nil, fmt.Errorf("line %d: %s.%s: range must be a quoted string such as \"(0, 6G]\"",
					node.Line, kind, param)
			}
			ranges[param] = node.Value
		}
		table[kind] = ranges
	}
	return table, nil
}
