package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devforge-labs/devforge/internal/catalog"
)

// buildCatalog writes a throwaway catalog with the given name -> deps graph.
func buildCatalog(t *testing.T, graph map[string][]string) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	for name, deps := range graph {
		extDir := filepath.Join(dir, name)
		if err := os.MkdirAll(extDir, 0755); err != nil {
			t.Fatal(err)
		}
		doc := "metadata:\n  name: " + name + "\n  version: \"1.0.0\"\n  category: devops\n"
		if len(deps) > 0 {
			doc += "  dependencies: [" + strings.Join(deps, ", ") + "]\n"
		}
		doc += "install:\n  method: npm\n  npm:\n    packages: [" + name + "]\n"
		if err := os.WriteFile(filepath.Join(extDir, "extension.yaml"), []byte(doc), 0644); err != nil {
			t.Fatal(err)
		}
	}
	c, err := catalog.Load(dir)
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	return c
}

func indexOf(t *testing.T, order []string, name string) int {
	t.Helper()
	for i, n := range order {
		if n == name {
			return i
		}
	}
	t.Fatalf("%q not in order %v", name, order)
	return -1
}

func TestResolveDependencyBeforeDependent(t *testing.T) {
	c := buildCatalog(t, map[string][]string{
		"nodejs":          nil,
		"nodejs-devtools": {"nodejs"},
	})

	order, err := New(c).Resolve([]string{"nodejs-devtools"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []string{"nodejs", "nodejs-devtools"}
	if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
		t.Errorf("Resolve = %v, want %v", order, want)
	}
}

func TestResolveDiamondOnce(t *testing.T) {
	c := buildCatalog(t, map[string][]string{
		"base":  nil,
		"left":  {"base"},
		"right": {"base"},
		"top":   {"left", "right"},
	})

	order, err := New(c).Resolve([]string{"top"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(order) != 4 {
		t.Fatalf("len(order) = %d, want 4 (each exactly once): %v", len(order), order)
	}
	base := indexOf(t, order, "base")
	top := indexOf(t, order, "top")
	if base > indexOf(t, order, "left") || base > indexOf(t, order, "right") {
		t.Errorf("base must precede left and right: %v", order)
	}
	if top != 3 {
		t.Errorf("top must come last: %v", order)
	}
}

func TestResolveDeterministic(t *testing.T) {
	c := buildCatalog(t, map[string][]string{
		"zulu":    nil,
		"alpha":   nil,
		"mid":     {"zulu", "alpha"},
		"unrel-a": nil,
		"unrel-b": nil,
	})

	first, err := New(c).Resolve([]string{"unrel-b", "mid", "unrel-a"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// Same inputs in different request order must give the same sequence.
	for i := 0; i < 5; i++ {
		again, err := New(c).Resolve([]string{"mid", "unrel-a", "unrel-b"})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if strings.Join(again, ",") != strings.Join(first, ",") {
			t.Fatalf("order changed between runs: %v vs %v", first, again)
		}
	}

	// Independent branches resolve alphabetically.
	if indexOf(t, first, "alpha") > indexOf(t, first, "zulu") {
		t.Errorf("alphabetical tie-break violated: %v", first)
	}
}

func TestResolveCycle(t *testing.T) {
	c := buildCatalog(t, map[string][]string{
		"a": {"b"},
		"b": {"a"},
	})

	_, err := New(c).Resolve([]string{"a"})
	if err == nil {
		t.Fatal("Resolve succeeded on a cycle, want error")
	}

	var cycleErr *CyclicDependencyError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error = %v, want *CyclicDependencyError", err)
	}
	trace := strings.Join(cycleErr.Cycle, " -> ")
	if !strings.Contains(trace, "a") || !strings.Contains(trace, "b") {
		t.Errorf("cycle trace %q must name both a and b", trace)
	}
	if cycleErr.Cycle[0] != cycleErr.Cycle[len(cycleErr.Cycle)-1] {
		t.Errorf("cycle trace %v must close on the repeated node", cycleErr.Cycle)
	}
}

func TestResolveMissingDependency(t *testing.T) {
	c := buildCatalog(t, map[string][]string{
		"needy": {"ghost"},
	})

	_, err := New(c).Resolve([]string{"needy"})
	var missing *MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want *MissingDependencyError", err)
	}
	if missing.Name != "ghost" || missing.RequiredBy != "needy" {
		t.Errorf("missing = %+v, want ghost required by needy", missing)
	}
}

func TestResolveUnknownRequest(t *testing.T) {
	c := buildCatalog(t, map[string][]string{"real": nil})

	_, err := New(c).Resolve([]string{"fake"})
	var missing *MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want *MissingDependencyError", err)
	}
	if missing.RequiredBy != "" {
		t.Errorf("RequiredBy = %q, want empty for a direct request", missing.RequiredBy)
	}
}
