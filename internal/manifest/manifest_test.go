package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleToml = `
[package]
name = "demo"
version = "0.1.0"
authors = ["a"]
license = "MIT"

[dependencies]
collections = { git = "https://example.com/collections", tag = "v1.3.0" }
util = { path = "../util" }
`

func TestParseAndValidate(t *testing.T) {
	m, err := Parse([]byte(sampleToml))
	require.NoError(t, err)
	require.Equal(t, "demo", m.Package.Name)
	require.Len(t, m.Dependencies, 2)
	require.NoError(t, m.Validate())
}

func TestValidateRejectsAmbiguousDependencySource(t *testing.T) {
	m := &Manifest{}
	m.Package.Name = "x"
	m.Package.Version = "0.1.0"
	m.Dependencies = map[string]Dependency{
		"bad": {Path: "../a", Git: "https://example.com/a"},
	}
	require.Error(t, m.Validate())
}

func TestValidateRejectsGitDependencyWithoutRef(t *testing.T) {
	m := &Manifest{}
	m.Package.Name = "x"
	m.Package.Version = "0.1.0"
	m.Dependencies = map[string]Dependency{
		"bad": {Git: "https://example.com/a"},
	}
	require.Error(t, m.Validate())
}

func TestCheckConstraintCaret(t *testing.T) {
	require.NoError(t, CheckConstraint("^1.2.0", "1.4.0"))
	require.Error(t, CheckConstraint("^1.2.0", "2.0.0"))
	require.Error(t, CheckConstraint("^1.2.0", "1.1.0"))
}

func TestCheckConstraintTilde(t *testing.T) {
	require.NoError(t, CheckConstraint("~1.2.0", "1.2.9"))
	require.Error(t, CheckConstraint("~1.2.0", "1.3.0"))
}

func TestCheckConstraintExact(t *testing.T) {
	require.NoError(t, CheckConstraint("1.2.0", "1.2.0"))
	require.Error(t, CheckConstraint("1.2.0", "1.2.1"))
}

func TestValidateResolvedReportsMissingDependency(t *testing.T) {
	m, err := Parse([]byte(sampleToml))
	require.NoError(t, err)
	err = m.ValidateResolved(map[string]ResolvedDependency{
		"util": {Name: "util", Path: "../util", Version: "0.0.0"},
	})
	require.Error(t, err)
}

func TestValidateResolvedAcceptsSatisfyingVersions(t *testing.T) {
	m, err := Parse([]byte(sampleToml))
	require.NoError(t, err)
	err = m.ValidateResolved(map[string]ResolvedDependency{
		"collections": {Name: "collections", Version: "1.5.2"},
		"util":        {Name: "util", Path: "../util", Version: "0.0.0"},
	})
	require.NoError(t, err)
}
