package manifest

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

// ResolvedDependency is what the external package manager hands back
// after actually fetching a Dependency: a concrete name/path/version
// tuple. The core compiler only ever consumes these, never a raw
// Dependency — it has no business resolving git refs itself.
type ResolvedDependency struct {
	Name    string
	Path    string
	Version string // a semver tag, e.g. "v1.2.3"
}

// CheckConstraint reports whether resolved's version satisfies a
// Cargo-style constraint string from naml.toml (`^1.2`, `~1.2.3`, or an
// exact `1.2.3`), using golang.org/x/mod/semver for the underlying
// comparisons — the one piece of real version-ordering logic this
// validation needs, and semver.Compare already gets it right for every
// edge case (pre-release ordering, numeric vs. lexical segments) a
// hand-rolled string comparison would not.
func CheckConstraint(constraint, resolved string) error {
	v := canonicalize(resolved)
	if !semver.IsValid(v) {
		return errors.Errorf("manifest: %q is not a valid semver version", resolved)
	}

	constraint = strings.TrimSpace(constraint)
	switch {
	case strings.HasPrefix(constraint, "^"):
		return checkCaret(canonicalize(constraint[1:]), v)
	case strings.HasPrefix(constraint, "~"):
		return checkTilde(canonicalize(constraint[1:]), v)
	default:
		want := canonicalize(constraint)
		if semver.Compare(v, want) != 0 {
			return errors.Errorf("manifest: version %s does not match exact constraint %s", resolved, constraint)
		}
		return nil
	}
}

// canonicalize prefixes a bare "1.2.3" with the "v" semver requires.
func canonicalize(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && v[0] != 'v' {
		v = "v" + v
	}
	return v
}

// checkCaret allows any version compatible with the leftmost nonzero
// component of want, Cargo's `^` rule.
func checkCaret(want, got string) error {
	if semver.Compare(got, want) < 0 {
		return errors.Errorf("manifest: version %s is older than required %s", got, want)
	}
	compatible := semver.Major(got) == semver.Major(want)
	switch {
	case semver.Major(want) != "v0":
	case semver.MajorMinor(want) != "v0.0":
		compatible = semver.MajorMinor(got) == semver.MajorMinor(want)
	default:
		compatible = semver.Compare(got, want) == 0
	}
	if !compatible {
		return errors.Errorf("manifest: version %s does not satisfy ^%s", got, strings.TrimPrefix(want, "v"))
	}
	return nil
}

// checkTilde allows patch-level updates only: same major.minor, >= want.
func checkTilde(want, got string) error {
	if semver.Compare(got, want) < 0 {
		return errors.Errorf("manifest: version %s is older than required %s", got, want)
	}
	if semver.MajorMinor(got) != semver.MajorMinor(want) {
		return errors.Errorf("manifest: version %s does not satisfy ~%s (minor version mismatch)", got, strings.TrimPrefix(want, "v"))
	}
	return nil
}

// ValidateResolved checks every dependency in m has a corresponding
// ResolvedDependency satisfying its declared constraint. resolved is
// keyed by dependency name.
func (m *Manifest) ValidateResolved(resolved map[string]ResolvedDependency) error {
	for name, dep := range m.Dependencies {
		r, ok := resolved[name]
		if !ok {
			return errors.Errorf("manifest: dependency %q has no resolved version", name)
		}
		constraint := dep.Tag
		if constraint == "" {
			continue // branch/rev dependencies carry no semver constraint to check
		}
		if err := CheckConstraint(constraint, r.Version); err != nil {
			return errors.Wrapf(err, "manifest: dependency %q", name)
		}
	}
	return nil
}
