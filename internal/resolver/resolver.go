// Package resolver orders extension install sets. Given a catalog and a
// requested set of names it produces a deterministic sequence in which
// every dependency precedes its dependents, failing closed on unknown
// names and dependency cycles.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/devforge-labs/devforge/internal/catalog"
)

// MissingDependencyError reports a dependency name absent from the catalog.
type MissingDependencyError struct {
	Name       string // the missing extension
	RequiredBy string // who asked for it; empty for a directly requested name
}

func (e *MissingDependencyError) Error() string {
	if e.RequiredBy == "" {
		return fmt.Sprintf("extension %q not found in catalog", e.Name)
	}
	return fmt.Sprintf("extension %q (required by %q) not found in catalog", e.Name, e.RequiredBy)
}

// CyclicDependencyError reports a dependency cycle with its full trace.
type CyclicDependencyError struct {
	Cycle []string // e.g. ["a", "b", "a"]
}

func (e *CyclicDependencyError) Error() string {
	return "circular dependency detected: " + strings.Join(e.Cycle, " -> ")
}

// Resolver computes install order over a catalog.
type Resolver struct {
	catalog *catalog.Catalog
}

// New creates a resolver bound to a catalog.
func New(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Resolve expands the requested names into a full ordered install list.
// Each required extension appears exactly once and always after its
// dependencies. Independent branches are visited alphabetically so the
// result is identical across runs regardless of request or catalog order.
func (r *Resolver) Resolve(requested []string) ([]string, error) {
	names := append([]string(nil), requested...)
	sort.Strings(names)

	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var order []string
	var stack []string

	var visit func(name, requiredBy string) error
	visit = func(name, requiredBy string) error {
		if visiting[name] {
			return &CyclicDependencyError{Cycle: cycleTrace(stack, name)}
		}
		if visited[name] {
			return nil
		}

		ext, ok := r.catalog.Get(name)
		if !ok {
			return &MissingDependencyError{Name: name, RequiredBy: requiredBy}
		}

		visiting[name] = true
		stack = append(stack, name)

		deps := append([]string(nil), ext.Metadata.Dependencies...)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep, name); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(visiting, name)
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name, ""); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// cycleTrace slices the traversal stack from the first occurrence of the
// repeated node and closes the loop, giving a trace like a -> b -> a.
func cycleTrace(stack []string, repeat string) []string {
	start := 0
	for i, name := range stack {
		if name == repeat {
			start = i
			break
		}
	}
	trace := append([]string(nil), stack[start:]...)
	return append(trace, repeat)
}
