package catalog

import (
	"fmt"
	"os"
	"sort"

	"go.yaml.in/yaml/v3"
)

// Profiles maps profile names to curated extension sets. Profiles live in a
// profiles.yaml next to the catalog's extension directories:
//
//	profiles:
//	  web-dev:
//	    description: Node toolchain for web work
//	    extensions: [nodejs, nodejs-devtools]
type Profiles struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile is one named extension set.
type Profile struct {
	Description string   `yaml:"description,omitempty"`
	Extensions  []string `yaml:"extensions"`
}

// LoadProfiles reads a profiles.yaml file. A missing file yields an empty
// profile set, not an error: profiles are optional.
func LoadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Profiles{Profiles: map[string]Profile{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profiles %s: %w", path, err)
	}

	var p Profiles
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profiles %s: %w", path, err)
	}
	if p.Profiles == nil {
		p.Profiles = map[string]Profile{}
	}
	return &p, nil
}

// Expand returns the extension names for a profile.
func (p *Profiles) Expand(name string) ([]string, error) {
	profile, ok := p.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return profile.Extensions, nil
}

// Names returns all profile names in alphabetical order.
func (p *Profiles) Names() []string {
	names := make([]string, 0, len(p.Profiles))
	for name := range p.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
