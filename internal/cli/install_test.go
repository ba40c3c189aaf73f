package cli

import (
	"testing"

	"github.com/devforge-labs/devforge/internal/manifest"
)

func TestRepairWidensRequestWithInconsistentEntries(t *testing.T) {
	m := &manifest.Manifest{
		Version: manifest.SchemaVersion,
		Extensions: []manifest.Entry{
			{Name: "broken", Active: true, Status: manifest.StatusActive, Dependencies: []string{"gone"}},
			{Name: "healthy", Active: true, Status: manifest.StatusActive},
		},
	}

	names := mergeNames([]string{"healthy"}, m.Inconsistent())
	if len(names) != 2 || names[0] != "healthy" || names[1] != "broken" {
		t.Errorf("names = %v", names)
	}

	// An already-requested entry is not duplicated.
	names = mergeNames([]string{"broken"}, m.Inconsistent())
	if len(names) != 1 || names[0] != "broken" {
		t.Errorf("names = %v", names)
	}
}

func TestValidationConfigPrefersManifest(t *testing.T) {
	m := &manifest.Manifest{
		Config: &manifest.Config{
			Validation: &manifest.ValidationConfig{DNSCheck: true, DependencyCheck: false},
		},
	}
	vcfg := validationConfig(m)
	if !vcfg.DNSCheck || vcfg.DependencyCheck {
		t.Errorf("vcfg = %+v", vcfg)
	}
}

func TestDependencyChecksReportMissing(t *testing.T) {
	m := &manifest.Manifest{
		Extensions: []manifest.Entry{
			{Name: "a", Active: true, Status: manifest.StatusActive, Dependencies: []string{"b"}},
		},
	}
	checks := dependencyChecks(m, "a")
	if len(checks) != 1 || checks[0].OK {
		t.Fatalf("checks = %+v", checks)
	}
	if err := extraFailures("a", checks); err == nil {
		t.Error("failing dependency check did not produce an error")
	}
}
