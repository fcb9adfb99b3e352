package manifest

import (
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/pipsight/pipsight/pkg/errors"
)

// devGroups are the optional-dependency group names (case-insensitive)
// whose entries are classified as development-only.
var devGroups = map[string]bool{
	"dev":   true,
	"test":  true,
	"tests": true,
	"lint":  true,
	"doc":   true,
	"docs":  true,
	"build": true,
}

// PyProject parses PEP 621 pyproject.toml files: [project].dependencies as
// production plus [project.optional-dependencies] groups. A malformed
// entry aborts the file (unlike Pipfile's per-entry fallback).
type PyProject struct{}

type pyprojectFile struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

// Parse reads the file and returns production dependencies followed by
// optional groups in sorted group-name order.
func (p *PyProject) Parse(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "cannot read %s", path)
	}

	var doc pyprojectFile
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParsing, err, "failed to parse pyproject.toml")
	}

	var deps []Dependency
	for _, entry := range doc.Project.Dependencies {
		req, err := ParseRequirement(entry)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParsing, err, "invalid dependency %q", entry)
		}
		deps = append(deps, req.dependency(path, false))
	}

	groups := make([]string, 0, len(doc.Project.OptionalDependencies))
	for group := range doc.Project.OptionalDependencies {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	for _, group := range groups {
		dev := devGroups[strings.ToLower(group)]
		for _, entry := range doc.Project.OptionalDependencies[group] {
			req, err := ParseRequirement(entry)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeParsing, err, "invalid dependency %q in group %q", entry, group)
			}
			deps = append(deps, req.dependency(path, dev))
		}
	}

	return deps, nil
}
