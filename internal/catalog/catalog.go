package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/devforge-labs/devforge/internal/extension"
)

// definitionGlob matches extension definition files relative to the catalog
// root: one directory per extension, each holding an extension.yaml.
const definitionGlob = "*/extension.yaml"

// Catalog is a loaded set of extension definitions keyed by name.
type Catalog struct {
	dir  string
	exts map[string]*extension.Extension
}

// LoadOption adjusts how definitions are parsed during Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	skipSchema bool
}

// WithoutSchemaValidation parses definitions without checking them
// against the embedded schema. Semantic checks still run.
func WithoutSchemaValidation() LoadOption {
	return func(o *loadOptions) { o.skipSchema = true }
}

// Load scans dir for extension definitions and parses each one. A
// definition that fails validation fails the whole load: a broken
// catalog entry must be caught before anything installs.
func Load(dir string, opts ...LoadOption) (*Catalog, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	parse := extension.Parse
	if o.skipSchema {
		parse = extension.ParseLax
	}

	matches, err := doublestar.Glob(os.DirFS(dir), definitionGlob)
	if err != nil {
		return nil, fmt.Errorf("scanning catalog %s: %w", dir, err)
	}

	c := &Catalog{dir: dir, exts: make(map[string]*extension.Extension, len(matches))}
	for _, rel := range matches {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading extension file %s: %w", path, err)
		}
		ext, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, ok := c.exts[ext.Name()]; ok {
			return nil, fmt.Errorf("duplicate extension %q in catalog (versions %s and %s)",
				ext.Name(), prev.Metadata.Version, ext.Metadata.Version)
		}
		c.exts[ext.Name()] = ext
	}
	return c, nil
}

// Dir returns the catalog root directory.
func (c *Catalog) Dir() string { return c.dir }

// ExtensionDir returns the directory holding an extension's definition and
// bundled resources (scripts, mise configs, context files).
func (c *Catalog) ExtensionDir(name string) string {
	return filepath.Join(c.dir, name)
}

// Get looks up an extension by name.
func (c *Catalog) Get(name string) (*extension.Extension, bool) {
	ext, ok := c.exts[name]
	return ext, ok
}

// Names returns all extension names in alphabetical order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.exts))
	for name := range c.exts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of extensions in the catalog.
func (c *Catalog) Len() int { return len(c.exts) }
