package catalog

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/devforge-labs/devforge/internal/extension"
)

// Index is a lightweight registry of catalog contents, cheap to load when
// only names and versions are needed (listing, search, staleness checks).
type Index struct {
	GeneratedAt time.Time    `yaml:"generated_at"`
	Entries     []IndexEntry `yaml:"entries"`
}

// IndexEntry summarizes one extension definition.
type IndexEntry struct {
	Name         string             `yaml:"name"`
	Version      string             `yaml:"version"`
	Category     extension.Category `yaml:"category"`
	Dependencies []string           `yaml:"dependencies,omitempty"`
}

// BuildIndex derives the registry index from a loaded catalog. Entries are
// ordered alphabetically so the serialized form is stable.
func BuildIndex(c *Catalog) *Index {
	idx := &Index{GeneratedAt: time.Now().UTC()}
	for _, name := range c.Names() {
		ext, _ := c.Get(name)
		idx.Entries = append(idx.Entries, IndexEntry{
			Name:         name,
			Version:      ext.Metadata.Version,
			Category:     ext.Metadata.Category,
			Dependencies: ext.Metadata.Dependencies,
		})
	}
	return idx
}

// WriteIndex serializes the index as YAML to path.
func WriteIndex(idx *Index, path string) error {
	data, err := yaml.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing index %s: %w", path, err)
	}
	return nil
}

// ReadIndex loads a previously written index file.
func ReadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", path, err)
	}
	var idx Index
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing index %s: %w", path, err)
	}
	return &idx, nil
}
