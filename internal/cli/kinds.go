package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/blockgen/internal/ir"
	"github.com/roach88/blockgen/internal/registry"
)

// KindInfo describes one registered kind.
type KindInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Composite   bool        `json:"composite,omitempty"`
	Hash        string      `json:"hash"`
	Ports       []PortInfo  `json:"ports"`
	Params      []ParamInfo `json:"params"`
	Roles       []RoleInfo  `json:"roles,omitempty"`
	Derived     []string    `json:"derived,omitempty"`
	Constraints []string    `json:"constraints,omitempty"`
}

// PortInfo describes one port.
type PortInfo struct {
	Name  string `json:"name"`
	Dir   string `json:"dir"`
	Width int    `json:"width,omitempty"`
	Group string `json:"group,omitempty"`
}

// ParamInfo describes one parameter with any range-table override applied.
type ParamInfo struct {
	Name     string `json:"name"`
	Unit     string `json:"unit,omitempty"`
	Range    string `json:"range,omitempty"`
	Default  string `json:"default,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// RoleInfo describes one composite role.
type RoleInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// NewKindsCommand creates the kinds command.
func NewKindsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds [kind...]",
		Short: "List registered block kinds",
		Long: `List the block kinds available to designs.

Shows the built-in catalog plus any kinds from --library, with ranges
after every --config table is applied. Name kinds to show only those.

Examples:
  blockgen kinds
  blockgen kinds Pll Vco --format json
  blockgen kinds --config ranges/n7.yaml Vco`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKinds(rootOpts, args, cmd)
		},
	}
}

func runKinds(opts *RootOptions, names []string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	env, err := loadEnvironment(opts, f)
	if err != nil {
		return err
	}
	reg, err := env.registry()
	if err != nil {
		return f.CommandError(errorCode(err), "building registry", err)
	}

	var kinds []*registry.Kind
	if len(names) == 0 {
		kinds = reg.Kinds()
	}
	for _, name := range names {
		k, ok := reg.Kind(name)
		if !ok {
			return f.CommandError(string(ir.ErrCodeUnknownKind), fmt.Sprintf("unknown kind %q", name), nil)
		}
		kinds = append(kinds, k)
	}

	infos := make([]KindInfo, len(kinds))
	for i, k := range kinds {
		infos[i] = kindInfo(k)
	}
	return f.Emit(infos, func(w io.Writer) {
		for _, info := range infos {
			writeKindText(w, info)
		}
	})
}

func kindInfo(k *registry.Kind) KindInfo {
	spec := k.Spec()
	info := KindInfo{
		Name:        spec.Name,
		Description: spec.Description,
		Composite:   k.IsComposite(),
		Hash:        k.Hash(),
		Ports:       make([]PortInfo, len(spec.Ports)),
		Params:      make([]ParamInfo, len(spec.Params)),
	}
	for i, p := range spec.Ports {
		info.Ports[i] = PortInfo{Name: p.Name, Dir: p.Dir, Width: p.Width, Group: p.Group}
	}
	for i, p := range spec.Params {
		info.Params[i] = ParamInfo{Name: p.Name, Unit: p.Unit, Range: p.Range, Default: p.Default, Optional: p.Optional}
	}
	for _, r := range spec.Roles {
		info.Roles = append(info.Roles, RoleInfo{Name: r.Name, Kind: r.Kind})
	}
	for _, d := range spec.Derived {
		info.Derived = append(info.Derived, d.Name+" = "+d.Expr)
	}
	for _, c := range spec.Constraints {
		info.Constraints = append(info.Constraints, c.Name)
	}
	return info
}

func writeKindText(w io.Writer, info KindInfo) {
	header := info.Name
	if info.Composite {
		header += " (composite)"
	}
	if info.Description != "" {
		header += " - " + info.Description
	}
	fmt.Fprintln(w, header)

	ports := make([]string, len(info.Ports))
	for i, p := range info.Ports {
		ports[i] = p.Name + ":" + p.Dir
		if p.Width > 0 {
			ports[i] += fmt.Sprintf("[%d]", p.Width)
		}
	}
	fmt.Fprintf(w, "  ports: %s\n", strings.Join(ports, " "))

	for _, p := range info.Params {
		line := "  param " + p.Name
		if p.Unit != "" {
			line += " [" + p.Unit + "]"
		}
		if p.Range != "" {
			line += " " + p.Range
		}
		if p.Default != "" {
			line += " default " + p.Default
		}
		if p.Optional {
			line += " optional"
		}
		fmt.Fprintln(w, line)
	}
	for _, r := range info.Roles {
		fmt.Fprintf(w, "  role %s: %s\n", r.Name, r.Kind)
	}
	for _, d := range info.Derived {
		fmt.Fprintf(w, "  derived %s\n", d)
	}
	if len(info.Constraints) > 0 {
		fmt.Fprintf(w, "  constraints: %s\n", strings.Join(info.Constraints, " "))
	}
}
