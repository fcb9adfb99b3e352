package pep440

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// clause is a single specifier such as ">=2.0" or "==1.4.*".
type clause struct {
	op       string
	version  string
	wildcard bool
}

// Specifiers is a comma-separated set of version clauses, all of which
// must hold for a version to match (the intersection).
type Specifiers struct {
	raw     string
	clauses []clause
}

var clauseRe = regexp.MustCompile(`^(~=|===|==|!=|<=|>=|<|>)\s*(\S.*?)\s*$`)

// ParseSpecifiers parses a specifier set such as ">=2.0,<3.0". An empty or
// blank string yields an empty set that matches any final release.
func ParseSpecifiers(s string) (Specifiers, error) {
	set := Specifiers{raw: strings.TrimSpace(s)}
	if set.raw == "" {
		return set, nil
	}

	for _, part := range strings.Split(set.raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Specifiers{}, fmt.Errorf("invalid specifier %q: empty clause", s)
		}
		m := clauseRe.FindStringSubmatch(part)
		if m == nil {
			return Specifiers{}, fmt.Errorf("invalid specifier clause %q", part)
		}

		c := clause{op: m[1], version: m[2]}
		if strings.HasSuffix(c.version, ".*") {
			if c.op != "==" && c.op != "!=" {
				return Specifiers{}, fmt.Errorf("wildcard not allowed with operator %q", c.op)
			}
			c.wildcard = true
			c.version = strings.TrimSuffix(c.version, ".*")
		}

		switch c.op {
		case "===":
			// Arbitrary equality compares raw strings; nothing to validate.
		case "~=":
			v, err := Parse(c.version)
			if err != nil {
				return Specifiers{}, fmt.Errorf("invalid specifier clause %q: %w", part, err)
			}
			if len(v.release) < 2 {
				return Specifiers{}, fmt.Errorf("~= requires at least two release segments: %q", part)
			}
		default:
			if _, err := Parse(c.version); err != nil {
				return Specifiers{}, fmt.Errorf("invalid specifier clause %q: %w", part, err)
			}
		}

		set.clauses = append(set.clauses, c)
	}
	return set, nil
}

// Empty reports whether the set has no clauses.
func (s Specifiers) Empty() bool { return len(s.clauses) == 0 }

// String returns the specifier set as parsed.
func (s Specifiers) String() string { return s.raw }

// Check reports whether v satisfies every clause. Prereleases are rejected
// unless at least one clause itself names a prerelease version.
func (s Specifiers) Check(v Version) bool {
	if v.IsPrerelease() && !s.allowsPrereleases() {
		return false
	}
	return s.Match(v)
}

// Match reports whether v satisfies every clause, without the default
// prerelease gating applied by Check.
func (s Specifiers) Match(v Version) bool {
	for _, c := range s.clauses {
		if !matchClause(c, v) {
			return false
		}
	}
	return true
}

func (s Specifiers) allowsPrereleases() bool {
	for _, c := range s.clauses {
		if c.op == "===" {
			continue
		}
		if cv, err := Parse(c.version); err == nil && cv.IsPrerelease() {
			return true
		}
	}
	return false
}

func matchClause(c clause, v Version) bool {
	if c.op == "===" {
		return strings.TrimSpace(v.raw) == c.version
	}
	if c.wildcard {
		matched := prefixMatch(v, c.version)
		if c.op == "!=" {
			return !matched
		}
		return matched
	}

	cv, err := Parse(c.version)
	if err != nil {
		return false
	}

	switch c.op {
	case "==":
		return compareIgnoringLocal(v, cv) == 0
	case "!=":
		return compareIgnoringLocal(v, cv) != 0
	case ">=":
		return v.Compare(cv) >= 0
	case "<=":
		return v.Compare(cv) <= 0
	case ">":
		return v.Compare(cv) > 0
	case "<":
		return v.Compare(cv) < 0
	case "~=":
		// ~=X.Y.Z means >=X.Y.Z and ==X.Y.*
		if v.Compare(cv) < 0 {
			return false
		}
		prefix := make([]string, 0, len(cv.release)-1)
		for _, seg := range cv.release[:len(cv.release)-1] {
			prefix = append(prefix, strconv.Itoa(seg))
		}
		if cv.epoch > 0 {
			return prefixMatch(v, fmt.Sprintf("%d!%s", cv.epoch, strings.Join(prefix, ".")))
		}
		return prefixMatch(v, strings.Join(prefix, "."))
	}
	return false
}

// compareIgnoringLocal implements == semantics: the candidate's local
// segment is ignored unless the clause names one.
func compareIgnoringLocal(v, cv Version) int {
	if cv.local == "" {
		v.local = ""
	}
	return v.Compare(cv)
}

// prefixMatch reports whether v's release starts with the segments of the
// given version prefix (epoch must match exactly).
func prefixMatch(v Version, prefix string) bool {
	pv, err := Parse(prefix)
	if err != nil {
		return false
	}
	if v.epoch != pv.epoch {
		return false
	}

	release := v.release
	for len(release) < len(pv.release) {
		release = append(release, 0)
	}
	for i, seg := range pv.release {
		if release[i] != seg {
			return false
		}
	}
	return true
}
