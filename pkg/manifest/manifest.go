// Package manifest parses Python dependency manifests into a uniform
// dependency record.
//
// Four formats are recognized: requirements.txt, pyproject.toml (PEP 621
// dependencies plus optional-dependency groups), Pipfile, and a static
// install_requires scan of setup.py. Each format keeps its own failure
// policy: requirements.txt aborts the whole file on one bad line,
// pyproject.toml aborts on a bad entry, and Pipfile degrades a bad entry
// to a bare unconstrained name.
package manifest

import "strings"

// ParseErrorName is the reserved dependency name for a sentinel record
// describing a manifest that could not be parsed. The error text is
// carried in the VersionSpec field.
const ParseErrorName = "__parse_error__"

// Dependency is one declared requirement from a manifest.
type Dependency struct {
	Name        string   `json:"name"`
	VersionSpec string   `json:"version_spec"`
	Extras      []string `json:"extras"`
	SourceFile  string   `json:"source_file"`
	IsDev       bool     `json:"is_dev_dependency"`
}

// ParseError builds the sentinel record for a manifest that failed to parse.
func ParseError(sourceFile string, err error) Dependency {
	return Dependency{
		Name:        ParseErrorName,
		VersionSpec: err.Error(),
		Extras:      []string{},
		SourceFile:  sourceFile,
	}
}

// IsParseError reports whether d is a sentinel parse-error record.
func (d Dependency) IsParseError() bool { return d.Name == ParseErrorName }

// Format identifies a manifest file format. Formats are attached at
// discovery time and dispatched through [Parsers]; nothing inspects
// filename suffixes after discovery.
type Format string

const (
	FormatRequirements Format = "requirements"
	FormatPyProject    Format = "pyproject"
	FormatPipfile      Format = "pipfile"
	FormatSetupPy      Format = "setup.py"
)

// Filename returns the manifest filename for the format.
func (f Format) Filename() string {
	switch f {
	case FormatRequirements:
		return "requirements.txt"
	case FormatPyProject:
		return "pyproject.toml"
	case FormatPipfile:
		return "Pipfile"
	case FormatSetupPy:
		return "setup.py"
	}
	return ""
}

// Formats lists the recognized formats in scan order.
func Formats() []Format {
	return []Format{FormatRequirements, FormatPyProject, FormatPipfile, FormatSetupPy}
}

// Parser turns one manifest file into an ordered list of dependencies.
type Parser interface {
	Parse(path string) ([]Dependency, error)
}

// Parsers returns the fixed format-to-parser dispatch map.
func Parsers() map[Format]Parser {
	return map[Format]Parser{
		FormatRequirements: &RequirementsTxt{},
		FormatPyProject:    &PyProject{},
		FormatPipfile:      &Pipfile{},
		FormatSetupPy:      &SetupPy{},
	}
}

// NormalizeName canonicalizes a package name per PEP 503: lowercase with
// runs of ".", "-", and "_" collapsed to a single hyphen.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	sep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r == '.' || r == '-' || r == '_' {
			sep = true
			continue
		}
		if sep && b.Len() > 0 {
			b.WriteByte('-')
		}
		sep = false
		b.WriteRune(r)
	}
	return b.String()
}
