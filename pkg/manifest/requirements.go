package manifest

import (
	"bufio"
	"os"
	"strings"

	"github.com/pipsight/pipsight/pkg/errors"
)

// RequirementsTxt parses plain requirements.txt files: one requirement per
// line, blank lines and "#" comments skipped. Any malformed remaining line
// fails the whole file.
type RequirementsTxt struct{}

// Parse reads the file and returns its dependencies in line order.
// All entries are production dependencies.
func (p *RequirementsTxt) Parse(path string) ([]Dependency, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "cannot read %s", path)
	}
	defer f.Close()

	var deps []Dependency
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		req, err := ParseRequirement(line)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParsing, err, "invalid requirement line %q", line)
		}
		deps = append(deps, req.dependency(path, false))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "cannot read %s", path)
	}

	return deps, nil
}
