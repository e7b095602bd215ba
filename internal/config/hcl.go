package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/roach88/blockgen/internal/ir"
)

// hclRangeFile is the top-level structure of an HCL range table.
type hclRangeFile struct {
	Kinds []*hclKindBlock `hcl:"kind,block"`
}

// hclKindBlock holds one kind's parameter ranges as attributes.
type hclKindBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

func parseHCL(filename string, data []byte) (ir.RangeTable, error) {
	src := trimBOM(data)
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing HCL: %w", diags)
	}

	var parsed hclRangeFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("decoding HCL: %w", diags)
	}

	table := make(ir.RangeTable, len(parsed.Kinds))
	for _, block := range parsed.Kinds {
		attrs, diags := block.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("kind %q: %w", block.Name, diags)
		}
		ranges := table[block.Name]
		if ranges == nil {
			ranges = make(ir.KindRanges, len(attrs))
		}
		for name, attr := range attrs {
			r, err := hclRange(attr, src)
			if err != nil {
				return nil, fmt.Errorf("%s: kind %q: %s: %w", attr.Range, block.Name, name, err)
			}
			ranges[name] = r
		}
		table[block.Name] = ranges
	}
	return table, nil
}

// hclRange turns an attribute into interval notation. A string is taken as
// written. A two-element tuple [lo, hi] is a closed range; numeric elements
// are copied from the source text so no precision is lost to big.Float.
func hclRange(attr *hcl.Attribute, src []byte) (string, error) {
	if tuple, ok := attr.Expr.(*hclsyntax.TupleConsExpr); ok {
		if len(tuple.Exprs) != 2 {
			return "", fmt.Errorf("range tuple needs exactly two elements, got %d", len(tuple.Exprs))
		}
		lo, err := hclBound(tuple.Exprs[0], src)
		if err != nil {
			return "", err
		}
		hi, err := hclBound(tuple.Exprs[1], src)
		if err != nil {
			return "", err
		}
		return "[" + lo + ", " + hi + "]", nil
	}

	v, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if !v.Type().Equals(cty.String) || v.IsNull() || !v.IsKnown() {
		return "", fmt.Errorf("range must be a string or [lo, hi], got %s", v.Type().FriendlyName())
	}
	return v.AsString(), nil
}

func hclBound(expr hclsyntax.Expression, src []byte) (string, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	switch v.Type() {
	case cty.Number:
		return strings.TrimSpace(string(expr.Range().SliceBytes(src))), nil
	case cty.String:
		return v.AsString(), nil
	default:
		return "", fmt.Errorf("range bound must be a number or string, got %s", v.Type().FriendlyName())
	}
}
