package executor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devforge-labs/devforge/internal/catalog"
	"github.com/devforge-labs/devforge/internal/extension"
	"github.com/devforge-labs/devforge/internal/manifest"
)

// Policy controls how an install set is executed.
type Policy struct {
	Parallel bool
	FailFast bool
	Timeout  time.Duration // per extension; zero means no limit
}

// ResultStatus is the outcome of one extension.
type ResultStatus string

const (
	ResultInstalled ResultStatus = "installed"
	ResultSkipped   ResultStatus = "skipped"
	ResultFailed    ResultStatus = "failed"
)

// Result is the outcome of one extension in an install run.
type Result struct {
	Name     string
	Status   ResultStatus
	Reason   string // set for skips
	Err      error  // set for failures
	Duration time.Duration
	Warnings []string // non-fatal problems, e.g. hook failures
}

// Executor installs extensions in dependency order.
type Executor struct {
	catalog *catalog.Catalog
	store   *manifest.Store
	backend Backend
	policy  Policy
}

// New creates an executor over a catalog and manifest store.
func New(c *catalog.Catalog, store *manifest.Store, backend Backend, policy Policy) *Executor {
	return &Executor{catalog: c, store: store, backend: backend, policy: policy}
}

// Install runs the dependency-ordered name list. The returned results
// follow the input order and cover every name; the error is the first
// install failure, nil when everything installed or skipped.
func (e *Executor) Install(ctx context.Context, order []string) ([]Result, error) {
	var byName map[string]Result
	if e.policy.Parallel {
		byName = e.runParallel(ctx, order)
	} else {
		byName = e.runSequential(ctx, order)
	}

	results := make([]Result, 0, len(order))
	var firstErr error
	for _, name := range order {
		res := byName[name]
		results = append(results, res)
		if res.Status == ResultFailed && firstErr == nil {
			firstErr = res.Err
		}
	}
	return results, firstErr
}

func (e *Executor) runSequential(ctx context.Context, order []string) map[string]Result {
	byName := make(map[string]Result, len(order))
	failed := make(map[string]bool)
	aborted := false

	for _, name := range order {
		if aborted {
			byName[name] = Result{Name: name, Status: ResultSkipped, Reason: "aborted"}
			continue
		}
		if dep := e.failedDependency(name, failed); dep != "" {
			failed[name] = true
			byName[name] = Result{Name: name, Status: ResultSkipped, Reason: fmt.Sprintf("dependency %s failed", dep)}
			continue
		}
		res := e.installOne(ctx, name)
		byName[name] = res
		if res.Status == ResultFailed {
			failed[name] = true
			if e.policy.FailFast {
				aborted = true
			}
		}
	}
	return byName
}

func (e *Executor) runParallel(ctx context.Context, order []string) map[string]Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inSet := make(map[string]bool, len(order))
	for _, name := range order {
		inSet[name] = true
	}
	indeg := make(map[string]int, len(order))
	dependents := make(map[string][]string)
	for _, name := range order {
		for _, dep := range e.dependencies(name) {
			if !inSet[dep] {
				continue
			}
			indeg[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	results := make(chan Result, len(order))
	var g errgroup.Group
	start := func(name string) {
		g.Go(func() error {
			results <- e.installOne(ctx, name)
			return nil
		})
	}

	byName := make(map[string]Result, len(order))
	blocked := make(map[string]string) // name -> failed dependency
	aborted := false
	inFlight := 0

	for _, name := range order {
		if indeg[name] == 0 {
			start(name)
			inFlight++
		}
	}

	for inFlight > 0 {
		res := <-results
		inFlight--
		byName[res.Name] = res

		// A failFast abort stops scheduling new work but lets installs
		// that already started run to completion.
		if res.Status == ResultFailed {
			if e.policy.FailFast {
				aborted = true
			}
			e.blockDependents(res.Name, res.Name, dependents, byName, blocked)
			continue
		}
		if aborted {
			continue
		}
		for _, d := range dependents[res.Name] {
			if _, isBlocked := blocked[d]; isBlocked {
				continue
			}
			indeg[d]--
			if indeg[d] == 0 {
				start(d)
				inFlight++
			}
		}
	}
	g.Wait()

	for _, name := range order {
		if _, done := byName[name]; done {
			continue
		}
		if dep, isBlocked := blocked[name]; isBlocked {
			byName[name] = Result{Name: name, Status: ResultSkipped, Reason: fmt.Sprintf("dependency %s failed", dep)}
		} else {
			byName[name] = Result{Name: name, Status: ResultSkipped, Reason: "aborted"}
		}
	}
	return byName
}

// blockDependents marks the transitive dependents of a failed extension
// so they are never scheduled.
func (e *Executor) blockDependents(name, root string, dependents map[string][]string, byName map[string]Result, blocked map[string]string) {
	for _, d := range dependents[name] {
		if _, done := byName[d]; done {
			continue
		}
		if _, isBlocked := blocked[d]; isBlocked {
			continue
		}
		blocked[d] = root
		e.blockDependents(d, root, dependents, byName, blocked)
	}
}

func (e *Executor) installOne(ctx context.Context, name string) Result {
	started := time.Now()
	res := Result{Name: name}
	finish := func() Result {
		res.Duration = time.Since(started)
		return res
	}

	ext, ok := e.catalog.Get(name)
	if !ok {
		res.Status = ResultFailed
		res.Err = fmt.Errorf("extension %q not found in catalog", name)
		return finish()
	}

	if entry, found, err := e.store.Get(name); err == nil && found &&
		entry.Active && entry.Status == manifest.StatusActive &&
		entry.Version == ext.Metadata.Version {
		res.Status = ResultSkipped
		res.Reason = fmt.Sprintf("version %s already installed", entry.Version)
		return finish()
	}

	dir := e.catalog.ExtensionDir(name)

	if hook := preInstall(ext); hook != nil {
		if err := e.backend.Hook(ctx, hook.Command, dir); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("pre-install hook failed: %v", err))
		}
	}

	for _, step := range ext.Install.Steps() {
		if err := e.runStep(ctx, ext, step, dir); err != nil {
			res.Status = ResultFailed
			res.Err = err
			if werr := e.record(ext, manifest.StatusFailed); werr != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("record failure: %v", werr))
			}
			return finish()
		}
	}

	if hook := postInstall(ext); hook != nil {
		if err := e.backend.Hook(ctx, hook.Command, dir); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("post-install hook failed: %v", err))
		}
	}

	if err := e.record(ext, manifest.StatusActive); err != nil {
		res.Status = ResultFailed
		res.Err = err
		return finish()
	}
	res.Status = ResultInstalled
	return finish()
}

// runStep executes one single-method step under its deadline. A script
// step's own timeout takes precedence over the policy timeout.
func (e *Executor) runStep(ctx context.Context, ext *extension.Extension, step extension.InstallSpec, dir string) error {
	timeout := e.policy.Timeout
	if step.Method == extension.MethodScript && step.Script != nil && step.Script.Timeout > 0 {
		timeout = time.Duration(step.Script.Timeout) * time.Second
	}
	stepCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := e.backend.Run(stepCtx, ext, step, dir); err != nil {
		if stepCtx.Err() == context.DeadlineExceeded {
			return &TimeoutError{Name: ext.Name(), Timeout: timeout}
		}
		return &InstallError{Name: ext.Name(), Method: step.Method, Err: err}
	}
	return nil
}

func (e *Executor) record(ext *extension.Extension, status manifest.Status) error {
	return e.store.Upsert(manifest.Entry{
		Name:         ext.Name(),
		Version:      ext.Metadata.Version,
		Active:       status == manifest.StatusActive,
		Category:     ext.Metadata.Category,
		Dependencies: ext.Metadata.Dependencies,
		Status:       status,
	})
}

func (e *Executor) dependencies(name string) []string {
	ext, ok := e.catalog.Get(name)
	if !ok {
		return nil
	}
	return ext.Metadata.Dependencies
}

// failedDependency returns the first dependency of name that failed in
// this run, directly or through its own dependencies.
func (e *Executor) failedDependency(name string, failed map[string]bool) string {
	for _, dep := range e.dependencies(name) {
		if failed[dep] {
			return dep
		}
	}
	return ""
}

func preInstall(ext *extension.Extension) *extension.Hook {
	if ext.Capabilities == nil || ext.Capabilities.Hooks == nil {
		return nil
	}
	return ext.Capabilities.Hooks.PreInstall
}

func postInstall(ext *extension.Extension) *extension.Hook {
	if ext.Capabilities == nil || ext.Capabilities.Hooks == nil {
		return nil
	}
	return ext.Capabilities.Hooks.PostInstall
}
