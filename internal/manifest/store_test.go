package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "manifest.json"), opts...)
}

func TestUpsertAndGet(t *testing.T) {
	s := newStore(t)

	if err := s.Upsert(Entry{Name: "nodejs", Version: "1.0.0", Active: true, Status: StatusActive}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	e, ok, err := s.Get("nodejs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected entry to exist")
	}
	if e.Version != "1.0.0" || !e.Active {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestUpsertReplacesPriorEntry(t *testing.T) {
	s := newStore(t)

	if err := s.Upsert(Entry{Name: "nodejs", Version: "1.0.0", Active: true, Status: StatusActive, Dependencies: []string{"base"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(Entry{Name: "nodejs", Version: "2.0.0", Active: true, Status: StatusActive}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	m, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(m.Extensions) != 1 {
		t.Fatalf("expected one entry, got %d", len(m.Extensions))
	}
	if m.Extensions[0].Version != "2.0.0" {
		t.Errorf("version = %q, want 2.0.0", m.Extensions[0].Version)
	}
	if len(m.Extensions[0].Dependencies) != 0 {
		t.Errorf("upgrade did not replace dependency list: %v", m.Extensions[0].Dependencies)
	}
}

func TestRemoveProtectedLeavesFileUnchanged(t *testing.T) {
	s := newStore(t)

	if err := s.Upsert(Entry{Name: "base", Protected: true, Active: true, Status: StatusActive}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	before, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	err = s.Remove("base")
	var perr *ProtectedError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtectedError, got %v", err)
	}
	if perr.Name != "base" {
		t.Errorf("ProtectedError.Name = %q", perr.Name)
	}

	after, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if string(before) != string(after) {
		t.Error("manifest changed after refused removal")
	}
}

func TestRemoveWithActiveDependents(t *testing.T) {
	s := newStore(t)

	if err := s.Upsert(Entry{Name: "nodejs", Active: true, Status: StatusActive}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(Entry{Name: "nodejs-devtools", Active: true, Status: StatusActive, Dependencies: []string{"nodejs"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	err := s.Remove("nodejs")
	var derr *DependentsError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DependentsError, got %v", err)
	}
	if len(derr.Dependents) != 1 || derr.Dependents[0] != "nodejs-devtools" {
		t.Errorf("dependents = %v", derr.Dependents)
	}

	// Removing the dependent first unblocks the dependency.
	if err := s.Remove("nodejs-devtools"); err != nil {
		t.Fatalf("remove dependent: %v", err)
	}
	if err := s.Remove("nodejs"); err != nil {
		t.Fatalf("remove: %v", err)
	}
}

func TestDeactivateKeepsRecord(t *testing.T) {
	s := newStore(t)

	if err := s.Upsert(Entry{Name: "golang", Active: true, Status: StatusActive}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Deactivate("golang"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	e, ok, err := s.Get("golang")
	if err != nil || !ok {
		t.Fatalf("get after deactivate: %v ok=%v", err, ok)
	}
	if e.Active || e.Status != StatusRemoved {
		t.Errorf("entry after deactivate: %+v", e)
	}

	active, err := s.ListActive()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active entries, got %v", active)
	}
}

func TestListActiveSorted(t *testing.T) {
	s := newStore(t)
	for _, name := range []string{"zig", "golang", "nodejs"} {
		if err := s.Upsert(Entry{Name: name, Active: true, Status: StatusActive}); err != nil {
			t.Fatalf("upsert %s: %v", name, err)
		}
	}

	active, err := s.ListActive()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"golang", "nodejs", "zig"}
	for i, e := range active {
		if e.Name != want[i] {
			t.Fatalf("order = %v", active)
		}
	}
}

func TestMissingFileYieldsEmptyManifest(t *testing.T) {
	s := newStore(t)
	m, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if m.Version != SchemaVersion || len(m.Extensions) != 0 {
		t.Errorf("unexpected empty manifest: %+v", m)
	}
}

func TestFailedEntryRecorded(t *testing.T) {
	s := newStore(t)
	if err := s.Upsert(Entry{Name: "rust", Status: StatusFailed}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	e, ok, _ := s.Get("rust")
	if !ok || e.Status != StatusFailed || e.Active {
		t.Errorf("failed entry: %+v ok=%v", e, ok)
	}
}

func TestInconsistentEntries(t *testing.T) {
	m := &Manifest{
		Version: SchemaVersion,
		Extensions: []Entry{
			{Name: "a", Active: true, Status: StatusActive, Dependencies: []string{"gone"}},
			{Name: "b", Active: true, Status: StatusActive},
		},
	}
	bad := m.Inconsistent()
	if len(bad) != 1 || bad[0] != "a" {
		t.Errorf("inconsistent = %v", bad)
	}
}

func TestMissingDependencies(t *testing.T) {
	m := &Manifest{
		Version: SchemaVersion,
		Extensions: []Entry{
			{Name: "a", Active: true, Status: StatusActive, Dependencies: []string{"b", "c", "gone"}},
			{Name: "b", Active: true, Status: StatusActive},
			{Name: "c", Active: false, Status: StatusFailed},
		},
	}
	missing := m.MissingDependencies("a")
	if len(missing) != 2 || missing[0] != "c" || missing[1] != "gone" {
		t.Errorf("missing = %v", missing)
	}
	if m.MissingDependencies("b") != nil {
		t.Error("b has no dependencies")
	}
	if m.MissingDependencies("absent") != nil {
		t.Error("unknown entry reports dependencies")
	}
}

func TestConcurrentUpsertsSerialize(t *testing.T) {
	s := newStore(t, WithRetry(20, 5*time.Millisecond))

	done := make(chan error, 10)
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, name := range names {
		go func(name string) {
			done <- s.Upsert(Entry{Name: name, Active: true, Status: StatusActive})
		}(name)
	}
	for range names {
		if err := <-done; err != nil {
			t.Fatalf("concurrent upsert: %v", err)
		}
	}

	m, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(m.Extensions) != len(names) {
		t.Errorf("expected %d entries, got %d", len(names), len(m.Extensions))
	}
}
