package extension

import (
	"fmt"
	"os"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"go.yaml.in/yaml/v3"
)

// DefaultScriptTimeout bounds install scripts that do not declare one (seconds).
const DefaultScriptTimeout = 600

// DefaultValidateTimeout bounds validation commands per extension (seconds).
const DefaultValidateTimeout = 30

// DefaultVersionFlag is used by validation commands that do not declare one.
const DefaultVersionFlag = "--version"

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// Parse unmarshals raw extension.yaml bytes, validates them against the
// embedded schema, applies defaults, and runs semantic checks the schema
// cannot express.
func Parse(data []byte) (*Extension, error) {
	return parse(data, true)
}

// ParseLax parses without schema validation. Defaults and semantic
// checks still apply.
func ParseLax(data []byte) (*Extension, error) {
	return parse(data, false)
}

func parse(data []byte, schema bool) (*Extension, error) {
	if schema {
		if err := ValidateSchema(data); err != nil {
			return nil, err
		}
	}

	var ext Extension
	if err := yaml.Unmarshal(data, &ext); err != nil {
		return nil, fmt.Errorf("parsing extension document: %w", err)
	}

	applyDefaults(&ext)

	if err := check(&ext); err != nil {
		return nil, err
	}
	return &ext, nil
}

// ParseFile reads and parses an extension.yaml file.
func ParseFile(path string) (*Extension, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading extension file %s: %w", path, err)
	}
	ext, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ext, nil
}

func applyDefaults(ext *Extension) {
	if ext.Install.Script != nil && ext.Install.Script.Timeout == 0 {
		ext.Install.Script.Timeout = DefaultScriptTimeout
	}
	if v := ext.Validate; v != nil {
		if v.Timeout == 0 {
			v.Timeout = DefaultValidateTimeout
		}
		for i := range v.Commands {
			if v.Commands[i].VersionFlag == "" {
				v.Commands[i].VersionFlag = DefaultVersionFlag
			}
		}
		if v.Script != nil && v.Script.Timeout == 0 {
			v.Script.Timeout = DefaultValidateTimeout
		}
	}
}

// check enforces semantic invariants: name shape, semantic version, self
// dependency, and that each declared method has its sub-spec present.
func check(ext *Extension) error {
	name := ext.Metadata.Name
	if !namePattern.MatchString(name) {
		return &SchemaError{Issues: []SchemaIssue{{
			Path:    "/metadata/name",
			Message: fmt.Sprintf("name %q must be lowercase with hyphen separators", name),
		}}}
	}
	if _, err := semver.NewVersion(ext.Metadata.Version); err != nil {
		return &SchemaError{Issues: []SchemaIssue{{
			Path:    "/metadata/version",
			Message: fmt.Sprintf("version %q is not a semantic version", ext.Metadata.Version),
		}}}
	}
	for _, dep := range ext.Metadata.Dependencies {
		if dep == name {
			return &SchemaError{Issues: []SchemaIssue{{
				Path:    "/metadata/dependencies",
				Message: fmt.Sprintf("extension %q cannot depend on itself", name),
			}}}
		}
	}
	if err := checkInstall(ext.Install); err != nil {
		return err
	}
	return nil
}

func checkInstall(spec InstallSpec) error {
	missing := func(method Method) error {
		return &SchemaError{Issues: []SchemaIssue{{
			Path:    "/install",
			Message: fmt.Sprintf("install method %q declared but %s configuration is missing", method, method),
		}}}
	}

	switch spec.Method {
	case MethodMise:
		if spec.Mise == nil {
			return missing(MethodMise)
		}
	case MethodApt:
		if spec.Apt == nil {
			return missing(MethodApt)
		}
	case MethodNpm:
		if spec.Npm == nil {
			return missing(MethodNpm)
		}
	case MethodBinary:
		if spec.Binary == nil {
			return missing(MethodBinary)
		}
	case MethodScript:
		if spec.Script == nil {
			return missing(MethodScript)
		}
	case MethodHybrid:
		if len(spec.Steps()) == 0 {
			return &SchemaError{Issues: []SchemaIssue{{
				Path:    "/install",
				Message: "hybrid method declared but no installation sub-specs are present",
			}}}
		}
	default:
		return &SchemaError{Issues: []SchemaIssue{{
			Path:    "/install/method",
			Message: fmt.Sprintf("unknown install method %q", spec.Method),
		}}}
	}
	return nil
}
