package manifest

import "github.com/devforge-labs/devforge/internal/extension"

// SchemaVersion is written into every manifest this build produces.
const SchemaVersion = "1.0"

// Status is an entry's last-known lifecycle state.
type Status string

const (
	StatusActive  Status = "active"
	StatusFailed  Status = "failed"
	StatusRemoved Status = "removed"
)

// Entry records one installed extension.
type Entry struct {
	Name         string             `json:"name"`
	Version      string             `json:"version,omitempty"`
	Active       bool               `json:"active"`
	Protected    bool               `json:"protected"`
	Category     extension.Category `json:"category,omitempty"`
	Dependencies []string           `json:"dependencies,omitempty"`
	Status       Status             `json:"status"`
}

// Manifest is the on-disk document.
type Manifest struct {
	Version    string  `json:"version"`
	Extensions []Entry `json:"extensions"`
	Config     *Config `json:"config,omitempty"`
}

// Config carries persisted execution and validation policy.
type Config struct {
	Execution  *ExecutionConfig  `json:"execution,omitempty"`
	Validation *ValidationConfig `json:"validation,omitempty"`
}

// ExecutionConfig mirrors the executor policy knobs.
type ExecutionConfig struct {
	Parallel bool `json:"parallel"`
	FailFast bool `json:"failFast"`
	Timeout  int  `json:"timeout,omitempty"` // seconds
}

// ValidationConfig toggles optional validation passes.
type ValidationConfig struct {
	SchemaValidation bool `json:"schemaValidation"`
	DNSCheck         bool `json:"dnsCheck"`
	DependencyCheck  bool `json:"dependencyCheck"`
}

// find returns the index of the named entry, or -1.
func (m *Manifest) find(name string) int {
	for i := range m.Extensions {
		if m.Extensions[i].Name == name {
			return i
		}
	}
	return -1
}

// MissingDependencies returns the named entry's dependencies that are not
// present and active in this manifest.
func (m *Manifest) MissingDependencies(name string) []string {
	i := m.find(name)
	if i < 0 {
		return nil
	}
	var missing []string
	for _, dep := range m.Extensions[i].Dependencies {
		j := m.find(dep)
		if j < 0 || !m.Extensions[j].Active || m.Extensions[j].Status != StatusActive {
			missing = append(missing, dep)
		}
	}
	return missing
}

// Inconsistent returns names of active entries that reference a dependency
// which is not itself present and active. Such entries must be re-resolved
// before further writes.
func (m *Manifest) Inconsistent() []string {
	activeSet := make(map[string]bool, len(m.Extensions))
	for _, e := range m.Extensions {
		if e.Active && e.Status == StatusActive {
			activeSet[e.Name] = true
		}
	}

	var bad []string
	for _, e := range m.Extensions {
		if !e.Active || e.Status != StatusActive {
			continue
		}
		for _, dep := range e.Dependencies {
			if !activeSet[dep] {
				bad = append(bad, e.Name)
				break
			}
		}
	}
	return bad
}
