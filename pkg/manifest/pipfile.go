package manifest

import (
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/pipsight/pipsight/pkg/errors"
)

// Pipfile parses Pipfiles (TOML): [packages] as production and
// [dev-packages] as development. Each entry value is either a bare
// constraint string ("*" meaning any version) or a table with a "version"
// key. Entries that fail requirement parsing degrade to the bare name
// unconstrained instead of failing the file.
type Pipfile struct{}

type pipfileDoc struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
}

// Parse reads the file and returns [packages] entries followed by
// [dev-packages] entries, each section in sorted name order.
func (p *Pipfile) Parse(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "cannot read %s", path)
	}

	var doc pipfileDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParsing, err, "failed to parse Pipfile")
	}

	var deps []Dependency
	deps = append(deps, parsePipfileSection(doc.Packages, path, false)...)
	deps = append(deps, parsePipfileSection(doc.DevPackages, path, true)...)
	return deps, nil
}

func parsePipfileSection(section map[string]any, path string, dev bool) []Dependency {
	names := make([]string, 0, len(section))
	for name := range section {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make([]Dependency, 0, len(names))
	for _, name := range names {
		version := pipfileVersion(section[name])
		req, err := ParseRequirement(name + version)
		if err != nil {
			// Lenient per-entry fallback: keep the bare name unconstrained.
			deps = append(deps, Dependency{
				Name:       NormalizeName(name),
				Extras:     []string{},
				SourceFile: path,
				IsDev:      dev,
			})
			continue
		}
		deps = append(deps, req.dependency(path, dev))
	}
	return deps
}

// pipfileVersion extracts the constraint from an entry value. The "*"
// sentinel normalizes to an empty constraint.
func pipfileVersion(value any) string {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "*" {
			return ""
		}
		return v
	case map[string]any:
		if ver, ok := v["version"].(string); ok {
			if strings.TrimSpace(ver) == "*" {
				return ""
			}
			return ver
		}
	}
	return ""
}
