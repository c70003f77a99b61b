// Package manifest parses and validates naml.toml (spec.md §6.3): the
// [package]/[dependencies] table BurntSushi/toml decodes, plus semver
// constraint checking against an already-resolved dependency set. This
// module consumes only already-fetched ResolvedDependency tuples —
// cloning a git ref or walking a local path is the external package
// manager's job, not this compiler's.
package manifest

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Manifest is naml.toml's decoded shape.
type Manifest struct {
	Package struct {
		Name        string   `toml:"name"`
		Version     string   `toml:"version"`
		Description string   `toml:"description"`
		Authors     []string `toml:"authors"`
		License     string   `toml:"license"`
	} `toml:"package"`
	Dependencies map[string]Dependency `toml:"dependencies"`
}

// Dependency names where a package comes from; exactly one of
// Path/Git should be set (validated by Validate, not by the decoder —
// BurntSushi/toml has no cross-field constraint support).
type Dependency struct {
	Path   string `toml:"path,omitempty"`
	Git    string `toml:"git,omitempty"`
	Tag    string `toml:"tag,omitempty"`
	Branch string `toml:"branch,omitempty"`
	Rev    string `toml:"rev,omitempty"`
}

// Load decodes naml.toml from path.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest: read %s", path)
	}
	return Parse(b)
}

// Parse decodes raw TOML bytes into a Manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, errors.Wrap(err, "manifest: decode naml.toml")
	}
	return &m, nil
}

// Validate checks the package table is complete and every dependency
// names exactly one source.
func (m *Manifest) Validate() error {
	if m.Package.Name == "" {
		return errors.New("manifest: [package].name is required")
	}
	if m.Package.Version == "" {
		return errors.New("manifest: [package].version is required")
	}
	for name, dep := range m.Dependencies {
		if (dep.Path == "") == (dep.Git == "") {
			return errors.Errorf("manifest: dependency %q must set exactly one of path or git", name)
		}
		if dep.Git != "" && dep.Tag == "" && dep.Branch == "" && dep.Rev == "" {
			return errors.Errorf("manifest: git dependency %q needs one of tag, branch, or rev", name)
		}
	}
	return nil
}
