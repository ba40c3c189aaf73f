package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	defaultStaleAfter = 5 * time.Minute
	defaultAttempts   = 5
	defaultBaseDelay  = 100 * time.Millisecond
)

// ProtectedError is returned when a mutation targets a protected entry.
type ProtectedError struct {
	Name string
}

func (e *ProtectedError) Error() string {
	return fmt.Sprintf("extension %q is protected and cannot be removed", e.Name)
}

// DependentsError is returned when removing or deactivating an entry that
// active entries still depend on.
type DependentsError struct {
	Name       string
	Dependents []string
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("extension %q is required by %v", e.Name, e.Dependents)
}

// Store mediates all reads and writes of the manifest file.
type Store struct {
	path     string
	lock     fileLock
	failFast bool
}

// Option adjusts Store behavior.
type Option func(*Store)

// WithStaleAfter overrides how old a lock timestamp must be before the
// lock is treated as abandoned.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Store) { s.lock.staleAfter = d }
}

// WithRetry overrides the lock retry schedule.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(s *Store) {
		s.lock.attempts = attempts
		s.lock.baseDelay = baseDelay
	}
}

// WithFailFast makes lock contention an immediate error instead of
// retrying.
func WithFailFast(on bool) Option {
	return func(s *Store) { s.failFast = on }
}

// WithClock substitutes the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.lock.now = now }
}

// Open returns a Store for the manifest at path. The file need not exist
// yet; the first mutation creates it.
func Open(path string, opts ...Option) *Store {
	s := &Store{
		path: path,
		lock: fileLock{
			path:       path + ".lock",
			staleAfter: defaultStaleAfter,
			attempts:   defaultAttempts,
			baseDelay:  defaultBaseDelay,
			now:        time.Now,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the manifest file location.
func (s *Store) Path() string { return s.path }

// Snapshot reads the manifest without taking the lock. Missing file
// yields an empty manifest.
func (s *Store) Snapshot() (*Manifest, error) {
	return s.read()
}

// Get returns the named entry from the current manifest.
func (s *Store) Get(name string) (Entry, bool, error) {
	m, err := s.read()
	if err != nil {
		return Entry{}, false, err
	}
	if i := m.find(name); i >= 0 {
		return m.Extensions[i], true, nil
	}
	return Entry{}, false, nil
}

// ListActive returns active entries sorted by name.
func (s *Store) ListActive() ([]Entry, error) {
	m, err := s.read()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range m.Extensions {
		if e.Active && e.Status == StatusActive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Upsert inserts or replaces the entry under the lock. Replacing keeps a
// single entry per name; an upgrade overwrites the prior record entirely.
func (s *Store) Upsert(entry Entry) error {
	return s.mutate(func(m *Manifest) error {
		if i := m.find(entry.Name); i >= 0 {
			m.Extensions[i] = entry
		} else {
			m.Extensions = append(m.Extensions, entry)
		}
		return nil
	})
}

// Deactivate marks the entry inactive without deleting its record.
// Entries that active extensions depend on cannot be deactivated.
func (s *Store) Deactivate(name string) error {
	return s.mutate(func(m *Manifest) error {
		i := m.find(name)
		if i < 0 {
			return fmt.Errorf("extension %q is not installed", name)
		}
		if deps := activeDependents(m, name); len(deps) > 0 {
			return &DependentsError{Name: name, Dependents: deps}
		}
		m.Extensions[i].Active = false
		m.Extensions[i].Status = StatusRemoved
		return nil
	})
}

// Remove deletes the entry. Protected entries are refused and the
// manifest file is left untouched.
func (s *Store) Remove(name string) error {
	return s.mutate(func(m *Manifest) error {
		i := m.find(name)
		if i < 0 {
			return fmt.Errorf("extension %q is not installed", name)
		}
		if m.Extensions[i].Protected {
			return &ProtectedError{Name: name}
		}
		if deps := activeDependents(m, name); len(deps) > 0 {
			return &DependentsError{Name: name, Dependents: deps}
		}
		m.Extensions = append(m.Extensions[:i], m.Extensions[i+1:]...)
		return nil
	})
}

// SetConfig replaces the persisted config block.
func (s *Store) SetConfig(cfg *Config) error {
	return s.mutate(func(m *Manifest) error {
		m.Config = cfg
		return nil
	})
}

// mutate runs fn against the current manifest under the advisory lock
// and writes the result back atomically. A failing fn leaves the file
// byte-for-byte unchanged.
func (s *Store) mutate(fn func(*Manifest) error) error {
	if err := s.lock.acquire(s.failFast); err != nil {
		return err
	}
	defer s.lock.release()

	m, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return s.write(m)
}

func (s *Store) read() (*Manifest, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Manifest{Version: SchemaVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", s.path, err)
	}
	if m.Version == "" {
		m.Version = SchemaVersion
	}
	return &m, nil
}

// write persists the manifest via temp file and rename. Writes that
// would not change the file contents are skipped.
func (s *Store) write(m *Manifest) error {
	sort.Slice(m.Extensions, func(i, j int) bool {
		return m.Extensions[i].Name < m.Extensions[j].Name
	})

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')

	if old, rerr := os.ReadFile(s.path); rerr == nil {
		if xxhash.Sum64(old) == xxhash.Sum64(data) {
			return nil
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// activeDependents lists active entries other than name that depend on it.
func activeDependents(m *Manifest, name string) []string {
	var out []string
	for _, e := range m.Extensions {
		if !e.Active || e.Status != StatusActive || e.Name == name {
			continue
		}
		for _, dep := range e.Dependencies {
			if dep == name {
				out = append(out, e.Name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
