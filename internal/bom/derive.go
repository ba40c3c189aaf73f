package bom

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/devforge-labs/devforge/internal/extension"
)

// Derive builds an extension's bill of materials. An explicit bom block
// is used verbatim; otherwise entries come from the install spec. dir
// is the extension's catalog directory, needed to read mise config
// files. Warnings report steps that could not contribute entries.
func Derive(ext *extension.Extension, dir string) (ExtensionBOM, []string) {
	b := ExtensionBOM{Extension: ext.Name(), GeneratedAt: time.Now().UTC()}
	var warnings []string

	if ext.BOM != nil {
		b.Files = ext.BOM.Files
	}
	if ext.BOM != nil && len(ext.BOM.Tools) > 0 {
		for _, t := range ext.BOM.Tools {
			b.Tools = append(b.Tools, declaredEntry(ext.Name(), t))
		}
		return b, nil
	}

	// Hybrid installs contribute nothing unless a bom block is declared.
	if ext.Install.Method == extension.MethodHybrid {
		warnings = append(warnings, fmt.Sprintf("%s: no BOM declared and none derivable from install method %s", ext.Name(), ext.Install.Method))
		return b, warnings
	}

	for _, step := range ext.Install.Steps() {
		switch step.Method {
		case extension.MethodApt:
			for _, pkg := range step.Apt.Packages {
				b.Tools = append(b.Tools, Entry{
					Extension: ext.Name(), Name: pkg, Version: DynamicVersion,
					Source: "apt", Type: "system-package",
					PURL: fmt.Sprintf("pkg:deb/%s", pkg),
				})
			}
		case extension.MethodNpm:
			for _, pkg := range step.Npm.Packages {
				name, version := splitNpmPackage(pkg)
				e := Entry{
					Extension: ext.Name(), Name: name, Version: version,
					Source: "npm", Type: "library",
				}
				if version != DynamicVersion {
					e.PURL = fmt.Sprintf("pkg:npm/%s@%s", name, version)
				}
				b.Tools = append(b.Tools, e)
			}
		case extension.MethodBinary:
			for _, dl := range step.Binary.Downloads {
				version := dl.Version
				if version == "" {
					version = DynamicVersion
				}
				b.Tools = append(b.Tools, Entry{
					Extension: ext.Name(), Name: dl.Name, Version: version,
					Source: "binary", Type: "application", DownloadURL: dl.URL,
				})
			}
		case extension.MethodMise:
			entries, err := deriveMise(ext.Name(), step.Mise, dir)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", ext.Name(), err))
				continue
			}
			b.Tools = append(b.Tools, entries...)
		case extension.MethodScript:
			// Scripts install arbitrary software; nothing to derive.
		}
	}

	if len(b.Tools) == 0 {
		warnings = append(warnings, fmt.Sprintf("%s: no BOM declared and none derivable from install method %s", ext.Name(), ext.Install.Method))
	}
	return b, warnings
}

func declaredEntry(extName string, t extension.BOMTool) Entry {
	version := t.Version
	if version == "" {
		version = DynamicVersion
	}
	return Entry{
		Extension: extName, Name: t.Name, Version: version,
		Source: t.Source, Type: t.Type, License: t.License,
		Homepage: t.Homepage, DownloadURL: t.DownloadURL,
		PURL: t.PURL, CPE: t.CPE, Checksum: t.Checksum,
	}
}

// deriveMise reads the [tools] table of the extension's mise config.
func deriveMise(extName string, spec *extension.MiseSpec, dir string) ([]Entry, error) {
	cfg := spec.ConfigFile
	if cfg == "" {
		cfg = "mise.toml"
	}
	if !filepath.IsAbs(cfg) {
		cfg = filepath.Join(dir, cfg)
	}
	data, err := os.ReadFile(cfg)
	if err != nil {
		return nil, fmt.Errorf("read mise config: %w", err)
	}

	var doc struct {
		Tools map[string]any `toml:"tools"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse mise config %s: %w", cfg, err)
	}

	names := make([]string, 0, len(doc.Tools))
	for name := range doc.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var entries []Entry
	for _, name := range names {
		entries = append(entries, Entry{
			Extension: extName, Name: name,
			Version: miseToolVersion(doc.Tools[name]),
			Source:  "mise", Type: "runtime",
		})
	}
	return entries, nil
}

// miseToolVersion extracts a version from the three shapes mise allows:
// a bare string, a version list, or a table with a version key.
func miseToolVersion(v any) string {
	switch val := v.(type) {
	case string:
		return normalizeMiseVersion(val)
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return normalizeMiseVersion(s)
			}
		}
	case map[string]any:
		if s, ok := val["version"].(string); ok {
			return normalizeMiseVersion(s)
		}
	}
	return DynamicVersion
}

// normalizeMiseVersion maps mise's floating specifiers to the dynamic
// sentinel so they are resolved against the installed tool.
func normalizeMiseVersion(v string) string {
	if v == "" || v == "latest" || strings.HasPrefix(v, "ref:") {
		return DynamicVersion
	}
	return v
}

// splitNpmPackage splits "pkg@1.2.3" into name and version, handling
// scoped packages like "@scope/pkg@1.2.3".
func splitNpmPackage(pkg string) (string, string) {
	at := strings.LastIndex(pkg, "@")
	if at <= 0 { // 0 means a scoped package with no version
		return pkg, DynamicVersion
	}
	return pkg[:at], pkg[at+1:]
}
