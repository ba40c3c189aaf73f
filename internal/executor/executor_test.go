package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devforge-labs/devforge/internal/catalog"
	"github.com/devforge-labs/devforge/internal/extension"
	"github.com/devforge-labs/devforge/internal/manifest"
)

// fakeBackend records install steps and hooks instead of running them.
type fakeBackend struct {
	mu      sync.Mutex
	runs    []string
	hooks   []string
	failOn  map[string]error
	hookErr error
	delay   time.Duration
	active  int
	maxSeen int
}

func (f *fakeBackend) Run(ctx context.Context, ext *extension.Extension, step extension.InstallSpec, dir string) error {
	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.runs = append(f.runs, fmt.Sprintf("%s:%s", ext.Name(), step.Method))
	err := f.failOn[ext.Name()]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			f.done()
			return ctx.Err()
		}
	}
	f.done()
	return err
}

func (f *fakeBackend) done() {
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
}

func (f *fakeBackend) Hook(ctx context.Context, command, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = append(f.hooks, command)
	return f.hookErr
}

func (f *fakeBackend) installed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.runs...)
}

func writeExt(t *testing.T, dir, name string, deps ...string) {
	t.Helper()
	doc := fmt.Sprintf("metadata:\n  name: %s\n  version: 1.0.0\n  category: languages\n", name)
	if len(deps) > 0 {
		doc += "  dependencies:\n"
		for _, d := range deps {
			doc += fmt.Sprintf("    - %s\n", d)
		}
	}
	doc += fmt.Sprintf("install:\n  method: npm\n  npm:\n    packages:\n      - %s\n", name)
	extDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(extDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(extDir, "extension.yaml"), []byte(doc), 0o644))
}

func setup(t *testing.T, policy Policy, backend Backend, names map[string][]string) (*Executor, *manifest.Store) {
	t.Helper()
	dir := t.TempDir()
	for name, deps := range names {
		writeExt(t, dir, name, deps...)
	}
	cat, err := catalog.Load(dir)
	require.NoError(t, err)
	store := manifest.Open(filepath.Join(t.TempDir(), "manifest.json"))
	return New(cat, store, backend, policy), store
}

func TestSequentialInstall(t *testing.T) {
	fb := &fakeBackend{}
	exec, store := setup(t, Policy{}, fb, map[string][]string{
		"nodejs":          nil,
		"nodejs-devtools": {"nodejs"},
	})

	results, err := exec.Install(context.Background(), []string{"nodejs", "nodejs-devtools"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, ResultInstalled, res.Status, res.Name)
	}
	assert.Equal(t, []string{"nodejs:npm", "nodejs-devtools:npm"}, fb.installed())

	active, err := store.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "1.0.0", active[0].Version)
}

func TestAlreadyInstalledSkipped(t *testing.T) {
	fb := &fakeBackend{}
	exec, store := setup(t, Policy{}, fb, map[string][]string{"nodejs": nil})

	require.NoError(t, store.Upsert(manifest.Entry{
		Name: "nodejs", Version: "1.0.0", Active: true, Status: manifest.StatusActive,
	}))

	results, err := exec.Install(context.Background(), []string{"nodejs"})
	require.NoError(t, err)
	assert.Equal(t, ResultSkipped, results[0].Status)
	assert.Empty(t, fb.installed())
}

func TestUpgradeReinstalls(t *testing.T) {
	fb := &fakeBackend{}
	exec, store := setup(t, Policy{}, fb, map[string][]string{"nodejs": nil})

	// Older version on record; the catalog carries 1.0.0.
	require.NoError(t, store.Upsert(manifest.Entry{
		Name: "nodejs", Version: "0.9.0", Active: true, Status: manifest.StatusActive,
	}))

	results, err := exec.Install(context.Background(), []string{"nodejs"})
	require.NoError(t, err)
	assert.Equal(t, ResultInstalled, results[0].Status)

	e, ok, err := store.Get("nodejs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.0.0", e.Version)
}

func TestFailureRecordedAndDependentsSkipped(t *testing.T) {
	fb := &fakeBackend{failOn: map[string]error{"nodejs": errors.New("npm exploded")}}
	exec, store := setup(t, Policy{}, fb, map[string][]string{
		"nodejs":          nil,
		"nodejs-devtools": {"nodejs"},
		"golang":          nil,
	})

	results, err := exec.Install(context.Background(), []string{"golang", "nodejs", "nodejs-devtools"})
	require.Error(t, err)
	var ierr *InstallError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "nodejs", ierr.Name)

	byName := map[string]Result{}
	for _, res := range results {
		byName[res.Name] = res
	}
	assert.Equal(t, ResultInstalled, byName["golang"].Status)
	assert.Equal(t, ResultFailed, byName["nodejs"].Status)
	assert.Equal(t, ResultSkipped, byName["nodejs-devtools"].Status)
	assert.Contains(t, byName["nodejs-devtools"].Reason, "nodejs")

	e, ok, err := store.Get("nodejs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, manifest.StatusFailed, e.Status)
	assert.False(t, e.Active)
}

func TestFailFastAborts(t *testing.T) {
	fb := &fakeBackend{failOn: map[string]error{"golang": errors.New("boom")}}
	exec, _ := setup(t, Policy{FailFast: true}, fb, map[string][]string{
		"golang": nil,
		"nodejs": nil,
		"zig":    nil,
	})

	results, err := exec.Install(context.Background(), []string{"golang", "nodejs", "zig"})
	require.Error(t, err)

	assert.Equal(t, ResultFailed, results[0].Status)
	assert.Equal(t, ResultSkipped, results[1].Status)
	assert.Equal(t, "aborted", results[1].Reason)
	assert.Equal(t, ResultSkipped, results[2].Status)
}

func TestParallelRespectsDependencies(t *testing.T) {
	fb := &fakeBackend{delay: 10 * time.Millisecond}
	exec, _ := setup(t, Policy{Parallel: true}, fb, map[string][]string{
		"nodejs":          nil,
		"nodejs-devtools": {"nodejs"},
		"golang":          nil,
	})

	results, err := exec.Install(context.Background(), []string{"golang", "nodejs", "nodejs-devtools"})
	require.NoError(t, err)
	for _, res := range results {
		assert.Equal(t, ResultInstalled, res.Status, res.Name)
	}

	runs := fb.installed()
	depIdx, toolIdx := -1, -1
	for i, r := range runs {
		switch r {
		case "nodejs:npm":
			depIdx = i
		case "nodejs-devtools:npm":
			toolIdx = i
		}
	}
	require.GreaterOrEqual(t, depIdx, 0)
	require.GreaterOrEqual(t, toolIdx, 0)
	assert.Less(t, depIdx, toolIdx, "dependency must start before dependent")
}

func TestParallelOverlapsIndependents(t *testing.T) {
	fb := &fakeBackend{delay: 50 * time.Millisecond}
	exec, _ := setup(t, Policy{Parallel: true}, fb, map[string][]string{
		"golang": nil,
		"nodejs": nil,
		"zig":    nil,
	})

	_, err := exec.Install(context.Background(), []string{"golang", "nodejs", "zig"})
	require.NoError(t, err)

	fb.mu.Lock()
	maxSeen := fb.maxSeen
	fb.mu.Unlock()
	assert.GreaterOrEqual(t, maxSeen, 2, "independent extensions should overlap")
}

func TestParallelFailureSkipsDependents(t *testing.T) {
	fb := &fakeBackend{failOn: map[string]error{"nodejs": errors.New("boom")}}
	exec, _ := setup(t, Policy{Parallel: true}, fb, map[string][]string{
		"nodejs":          nil,
		"nodejs-devtools": {"nodejs"},
		"golang":          nil,
	})

	results, err := exec.Install(context.Background(), []string{"golang", "nodejs", "nodejs-devtools"})
	require.Error(t, err)

	byName := map[string]Result{}
	for _, res := range results {
		byName[res.Name] = res
	}
	assert.Equal(t, ResultInstalled, byName["golang"].Status)
	assert.Equal(t, ResultFailed, byName["nodejs"].Status)
	assert.Equal(t, ResultSkipped, byName["nodejs-devtools"].Status)
}

func TestTimeout(t *testing.T) {
	fb := &fakeBackend{delay: time.Second}
	exec, _ := setup(t, Policy{Timeout: 20 * time.Millisecond}, fb, map[string][]string{"nodejs": nil})

	results, err := exec.Install(context.Background(), []string{"nodejs"})
	require.Error(t, err)
	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "nodejs", terr.Name)
	assert.Equal(t, ResultFailed, results[0].Status)
}

func TestHookFailureIsWarning(t *testing.T) {
	dir := t.TempDir()
	doc := `metadata:
  name: nodejs
  version: 1.0.0
  category: languages
install:
  method: npm
  npm:
    packages:
      - nodejs
capabilities:
  hooks:
    pre-install:
      command: prepare.sh
    post-install:
      command: finish.sh
`
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nodejs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodejs", "extension.yaml"), []byte(doc), 0o644))

	cat, err := catalog.Load(dir)
	require.NoError(t, err)
	store := manifest.Open(filepath.Join(t.TempDir(), "manifest.json"))

	fb := &fakeBackend{hookErr: errors.New("hook broke")}
	exec := New(cat, store, fb, Policy{})

	results, err := exec.Install(context.Background(), []string{"nodejs"})
	require.NoError(t, err)
	assert.Equal(t, ResultInstalled, results[0].Status)
	assert.Len(t, results[0].Warnings, 2)
	assert.Equal(t, []string{"prepare.sh", "finish.sh"}, fb.hooks)
}
