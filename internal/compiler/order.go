package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/blockgen/internal/ir"
)

// CycleError reports composite kinds that contain each other through
// their roles. Such a library can never be registered.
type CycleError struct {
	Path []string `json:"path"` // e.g. ["Outer", "Inner", "Outer"]
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("[%s] role cycle: %s", ErrRoleCycle, strings.Join(e.Path, " -> "))
}

// OrderKinds returns specs reordered so every composite follows the kinds
// its roles hold. Role kinds that are not part of specs (for example
// built-in catalog kinds) impose no ordering.
//
// The algorithm:
//  1. Build the kind -> role kind graph restricted to specs
//  2. Run Tarjan's algorithm, visiting kinds in declaration order
//  3. Emit components as they complete, which puts dependencies first
//
// Any component with more than one kind, or a kind that holds itself, is a
// cycle and fails with *CycleError. Repeated names are kept, after the
// ordered kinds.
func OrderKinds(specs []ir.KindSpec) ([]ir.KindSpec, error) {
	byName := make(map[string]ir.KindSpec, len(specs))
	var names []string
	var dups []ir.KindSpec
	for _, s := range specs {
		if _, dup := byName[s.Name]; dup {
			dups = append(dups, s)
			continue
		}
		names = append(names, s.Name)
		byName[s.Name] = s
	}

	graph := make(dependencyGraph, len(names))
	for _, name := range names {
		graph[name] = []string{}
		for _, r := range byName[name].Roles {
			if _, local := byName[r.Kind]; local {
				graph[name] = append(graph[name], r.Kind)
			}
		}
	}

	sccs := tarjanSCC(names, graph)

	ordered := make([]ir.KindSpec, 0, len(specs))
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			return nil, &CycleError{Path: reconstructCyclePath(scc, graph)}
		}
		ordered = append(ordered, byName[scc[0]])
	}
	// Duplicates go last so registration reports them.
	return append(ordered, dups...), nil
}

// dependencyGraph maps kind -> kinds held by its roles.
type dependencyGraph map[string][]string

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Roots are visited in the given order so the result is deterministic.
func tarjanSCC(nodes []string, graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// reconstructCyclePath follows edges inside an SCC from its last-popped
// member back to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 1 {
		return []string{scc[0], scc[0]}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[len(scc)-1]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
