package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

// writeExtension creates dir/<name>/extension.yaml with minimal valid content.
func writeExtension(t *testing.T, dir, name, version string, deps []string) {
	t.Helper()
	extDir := filepath.Join(dir, name)
	if err := os.MkdirAll(extDir, 0755); err != nil {
		t.Fatal(err)
	}
	doc := "metadata:\n  name: " + name + "\n  version: \"" + version + "\"\n  category: devops\n"
	if len(deps) > 0 {
		doc += "  dependencies:\n"
		for _, d := range deps {
			doc += "    - " + d + "\n"
		}
	}
	doc += "install:\n  method: npm\n  npm:\n    packages: [" + name + "]\n"
	if err := os.WriteFile(filepath.Join(extDir, "extension.yaml"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFindsDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "nodejs", "1.0.0", nil)
	writeExtension(t, dir, "nodejs-devtools", "1.1.0", []string{"nodejs"})

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	ext, ok := c.Get("nodejs-devtools")
	if !ok {
		t.Fatal("Get(nodejs-devtools) not found")
	}
	if len(ext.Metadata.Dependencies) != 1 || ext.Metadata.Dependencies[0] != "nodejs" {
		t.Errorf("Dependencies = %v, want [nodejs]", ext.Metadata.Dependencies)
	}
	if names := c.Names(); names[0] != "nodejs" || names[1] != "nodejs-devtools" {
		t.Errorf("Names() = %v, not alphabetical", names)
	}
}

func TestLoadFailsOnBrokenDefinition(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "good", "1.0.0", nil)

	brokenDir := filepath.Join(dir, "broken")
	if err := os.MkdirAll(brokenDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(brokenDir, "extension.yaml"), []byte("metadata:\n  name: broken\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("Load succeeded with a broken definition, want error")
	}
}

func TestLoadEmptyDir(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	doc := `profiles:
  web-dev:
    description: Node toolchain
    extensions: [nodejs, nodejs-devtools]
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}

	exts, err := p.Expand("web-dev")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(exts) != 2 || exts[0] != "nodejs" {
		t.Errorf("Expand = %v, want [nodejs nodejs-devtools]", exts)
	}

	if _, err := p.Expand("nope"); err == nil {
		t.Error("Expand(nope) succeeded, want error")
	}
}

func TestLoadProfilesMissingFile(t *testing.T) {
	p, err := LoadProfiles(filepath.Join(t.TempDir(), "profiles.yaml"))
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(p.Names()) != 0 {
		t.Errorf("Names() = %v, want empty", p.Names())
	}
}

func TestIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "terraform", "2.0.0", nil)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	idx := BuildIndex(c)
	if len(idx.Entries) != 1 || idx.Entries[0].Name != "terraform" {
		t.Fatalf("BuildIndex entries = %v", idx.Entries)
	}

	path := filepath.Join(t.TempDir(), "index.yaml")
	if err := WriteIndex(idx, path); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}
	loaded, err := ReadIndex(path)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if loaded.Entries[0].Version != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", loaded.Entries[0].Version)
	}
}

func TestLoadWithoutSchemaValidation(t *testing.T) {
	dir := t.TempDir()
	extDir := filepath.Join(dir, "legacy")
	if err := os.MkdirAll(extDir, 0755); err != nil {
		t.Fatal(err)
	}
	// The unknown top-level key fails schema validation.
	doc := `metadata:
  name: legacy
  version: "1.0.0"
  category: devops
install:
  method: npm
  npm:
    packages: [legacy]
notes: imported from an older catalog
`
	if err := os.WriteFile(filepath.Join(extDir, "extension.yaml"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("strict load accepted an off-schema definition")
	}

	c, err := Load(dir, WithoutSchemaValidation())
	if err != nil {
		t.Fatalf("lax load: %v", err)
	}
	if _, ok := c.Get("legacy"); !ok {
		t.Error("legacy extension not loaded")
	}
}
