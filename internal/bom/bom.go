// Package bom builds bills of materials for installed extensions.
// Explicit declarations in an extension's bom block are used verbatim;
// otherwise entries are derived from the install spec. Every output
// format is a projection of the same aggregate model.
package bom

import (
	"sort"
	"time"

	"github.com/devforge-labs/devforge/internal/extension"
)

const (
	// DynamicVersion marks an entry whose version is discovered by
	// running the installed tool at generation time.
	DynamicVersion = "dynamic"
	// UnknownVersion is recorded when dynamic discovery finds nothing.
	UnknownVersion = "unknown"
)

// Entry is one piece of software in a bill of materials.
type Entry struct {
	Extension   string              `yaml:"extension" json:"extension"`
	Name        string              `yaml:"name" json:"name"`
	Version     string              `yaml:"version" json:"version"`
	Source      string              `yaml:"source" json:"source"`
	Type        string              `yaml:"type,omitempty" json:"type,omitempty"`
	License     string              `yaml:"license,omitempty" json:"license,omitempty"`
	Homepage    string              `yaml:"homepage,omitempty" json:"homepage,omitempty"`
	DownloadURL string              `yaml:"downloadUrl,omitempty" json:"downloadUrl,omitempty"`
	PURL        string              `yaml:"purl,omitempty" json:"purl,omitempty"`
	CPE         string              `yaml:"cpe,omitempty" json:"cpe,omitempty"`
	Checksum    *extension.Checksum `yaml:"checksum,omitempty" json:"checksum,omitempty"`
}

// ExtensionBOM is the bill of materials of a single extension.
type ExtensionBOM struct {
	Extension   string              `yaml:"extension" json:"extension"`
	GeneratedAt time.Time           `yaml:"generatedAt" json:"generatedAt"`
	Tools       []Entry             `yaml:"tools" json:"tools"`
	Files       []extension.BOMFile `yaml:"files,omitempty" json:"files,omitempty"`
}

// Report is the aggregate bill of materials across extensions.
type Report struct {
	GeneratedAt time.Time           `yaml:"generatedAt" json:"generatedAt"`
	Generator   string              `yaml:"generator" json:"generator"`
	Entries     []Entry             `yaml:"tools" json:"tools"`
	Files       []extension.BOMFile `yaml:"files,omitempty" json:"files,omitempty"`
}

// Aggregate merges per-extension BOMs, deduplicating on (name, source)
// with later entries winning. The result is sorted by name then source.
func Aggregate(generator string, boms []ExtensionBOM) *Report {
	type key struct{ name, source string }
	index := make(map[key]int)
	report := &Report{GeneratedAt: time.Now().UTC(), Generator: generator}

	for _, b := range boms {
		for _, e := range b.Tools {
			k := key{e.Name, e.Source}
			if i, seen := index[k]; seen {
				report.Entries[i] = e
				continue
			}
			index[k] = len(report.Entries)
			report.Entries = append(report.Entries, e)
		}
		report.Files = append(report.Files, b.Files...)
	}

	sort.Slice(report.Entries, func(i, j int) bool {
		a, b := report.Entries[i], report.Entries[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Source < b.Source
	})
	return report
}
