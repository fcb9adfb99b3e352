package manifest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pipsight/pipsight/pkg/pep440"
)

// Requirement is a parsed PEP 508-style declaration:
// name[extra,extra]specifier, with any trailing environment marker
// (after ";") stripped.
type Requirement struct {
	Name        string   // PEP 503 normalized
	Extras      []string // sorted
	VersionSpec string   // canonical comma-joined clauses, "" when absent
}

var reqNameRe = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)`)

// ParseRequirement parses a single requirement expression. URL
// requirements (name @ https://...) are rejected; the tool surface only
// deals in registry versions.
func ParseRequirement(s string) (Requirement, error) {
	rest := strings.TrimSpace(s)
	if rest == "" {
		return Requirement{}, fmt.Errorf("empty requirement")
	}

	// Environment markers constrain where a dependency applies, not which
	// versions exist; they are dropped.
	if i := strings.Index(rest, ";"); i >= 0 {
		rest = strings.TrimSpace(rest[:i])
	}

	m := reqNameRe.FindString(rest)
	if m == "" {
		return Requirement{}, fmt.Errorf("invalid requirement %q: no package name", s)
	}
	req := Requirement{Name: NormalizeName(m), Extras: []string{}}
	rest = strings.TrimSpace(rest[len(m):])

	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return Requirement{}, fmt.Errorf("invalid requirement %q: unterminated extras", s)
		}
		for _, extra := range strings.Split(rest[1:end], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				continue
			}
			if !reqNameRe.MatchString(extra) {
				return Requirement{}, fmt.Errorf("invalid requirement %q: bad extra %q", s, extra)
			}
			req.Extras = append(req.Extras, extra)
		}
		sort.Strings(req.Extras)
		rest = strings.TrimSpace(rest[end+1:])
	}

	if strings.HasPrefix(rest, "@") {
		return Requirement{}, fmt.Errorf("invalid requirement %q: URL requirements are not supported", s)
	}

	// Specifiers may be parenthesized: "requests (>=2.0)".
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}

	if rest != "" {
		spec, err := pep440.ParseSpecifiers(rest)
		if err != nil {
			return Requirement{}, fmt.Errorf("invalid requirement %q: %w", s, err)
		}
		req.VersionSpec = canonicalSpec(spec.String())
	}

	return req, nil
}

// canonicalSpec strips per-clause whitespace: ">= 2.0, <3.0" -> ">=2.0,<3.0".
func canonicalSpec(raw string) string {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.TrimSpace(p), " ", "")
	}
	return strings.Join(parts, ",")
}

// dependency converts the requirement into a Dependency record.
func (r Requirement) dependency(sourceFile string, dev bool) Dependency {
	return Dependency{
		Name:        r.Name,
		VersionSpec: r.VersionSpec,
		Extras:      r.Extras,
		SourceFile:  sourceFile,
		IsDev:       dev,
	}
}
