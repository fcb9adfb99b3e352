// Package pep440 implements PEP 440 version parsing, ordering, and
// specifier matching for Python package versions.
//
// Only the parts of PEP 440 that package selection needs are implemented:
// epochs, release segments, pre/post/dev releases, local segments, and the
// standard specifier operators including wildcard and compatible-release
// forms. Prerelease gating follows the default behavior of Python's
// packaging library: a prerelease only satisfies a specifier set when one
// of its clauses itself names a prerelease.
package pep440

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// preRelease holds a pre-release marker (a, b, or rc) and its number.
type preRelease struct {
	phase string // "a", "b", or "rc"
	num   int
}

// Version is a parsed PEP 440 version. The original input string is
// preserved so callers can round-trip release-map keys exactly.
type Version struct {
	raw     string
	epoch   int
	release []int
	pre     *preRelease
	post    *int
	dev     *int
	local   string
}

var versionRe = regexp.MustCompile(`(?i)^v?` +
	`(?:(\d+)!)?` + // epoch
	`(\d+(?:\.\d+)*)` + // release
	`(?:[-_.]?(a|b|c|rc|alpha|beta|pre|preview)[-_.]?(\d+)?)?` + // pre
	`(?:-(\d+)|[-_.]?(post|rev|r)[-_.]?(\d+)?)?` + // post
	`(?:[-_.]?(dev)[-_.]?(\d+)?)?` + // dev
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`) // local

// Parse parses a version string. The input may carry surrounding
// whitespace and a leading "v", both of which are ignored for ordering
// but kept in the raw form.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	m := versionRe.FindStringSubmatch(trimmed)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	v := Version{raw: trimmed}

	if m[1] != "" {
		v.epoch, _ = strconv.Atoi(m[1])
	}
	for _, part := range strings.Split(m[2], ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
		v.release = append(v.release, n)
	}

	if m[3] != "" {
		num := 0
		if m[4] != "" {
			num, _ = strconv.Atoi(m[4])
		}
		v.pre = &preRelease{phase: normalizePhase(m[3]), num: num}
	}

	if m[5] != "" { // implicit post: 1.0-1
		n, _ := strconv.Atoi(m[5])
		v.post = &n
	} else if m[6] != "" {
		n := 0
		if m[7] != "" {
			n, _ = strconv.Atoi(m[7])
		}
		v.post = &n
	}

	if m[8] != "" {
		n := 0
		if m[9] != "" {
			n, _ = strconv.Atoi(m[9])
		}
		v.dev = &n
	}

	v.local = strings.ToLower(m[10])

	return v, nil
}

// MustParse parses a version string and panics on failure. For tests and
// literals only.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func normalizePhase(phase string) string {
	switch strings.ToLower(phase) {
	case "a", "alpha":
		return "a"
	case "b", "beta":
		return "b"
	default: // c, rc, pre, preview
		return "rc"
	}
}

// String returns the version exactly as parsed.
func (v Version) String() string { return v.raw }

// IsPrerelease reports whether the version carries a pre or dev marker.
func (v Version) IsPrerelease() bool { return v.pre != nil || v.dev != nil }

// Compare returns -1, 0, or 1 comparing v against o under PEP 440 ordering.
func (v Version) Compare(o Version) int {
	if c := cmpInt(v.epoch, o.epoch); c != 0 {
		return c
	}
	if c := cmpRelease(v.release, o.release); c != 0 {
		return c
	}
	if c := cmpPre(v, o); c != 0 {
		return c
	}
	if c := cmpOptional(v.post, o.post, -1); c != 0 {
		return c
	}
	if c := cmpOptional(v.dev, o.dev, 1); c != 0 {
		return c
	}
	return cmpLocal(v.local, o.local)
}

// LessThan reports whether v orders before o.
func (v Version) LessThan(o Version) bool { return v.Compare(o) < 0 }

// Equal reports whether v and o order identically.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpRelease compares release segments with trailing zeros ignored, so
// 1.0 == 1.0.0.
func cmpRelease(a, b []int) int {
	a = trimZeros(a)
	b = trimZeros(b)
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := cmpInt(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(a), len(b))
}

func trimZeros(segs []int) []int {
	end := len(segs)
	for end > 1 && segs[end-1] == 0 {
		end--
	}
	return segs[:end]
}

// cmpPre orders dev-only releases before pre-releases before finals at the
// same release number: 1.0.dev1 < 1.0a1 < 1.0.
func cmpPre(a, b Version) int {
	ra, pa := preRank(a)
	rb, pb := preRank(b)
	if c := cmpInt(ra, rb); c != 0 {
		return c
	}
	if pa == nil || pb == nil {
		return 0
	}
	if c := strings.Compare(pa.phase, pb.phase); c != 0 {
		return c
	}
	return cmpInt(pa.num, pb.num)
}

func preRank(v Version) (int, *preRelease) {
	switch {
	case v.pre == nil && v.post == nil && v.dev != nil:
		return -1, nil // bare dev release sorts below any pre-release
	case v.pre == nil:
		return 1, nil
	default:
		return 0, v.pre
	}
}

// cmpOptional compares optional numeric markers. absentRank places an
// absent marker relative to a present one: -1 for post (no post sorts
// first), +1 for dev (no dev sorts last).
func cmpOptional(a, b *int, absentRank int) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return absentRank
	}
	if b == nil {
		return -absentRank
	}
	return cmpInt(*a, *b)
}

// cmpLocal compares local version segments: absent sorts first, numeric
// segments compare numerically and outrank alphanumeric ones.
func cmpLocal(a, b string) int {
	if a == "" && b == "" {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}

	as := splitLocal(a)
	bs := splitLocal(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aErr := strconv.Atoi(as[i])
		bn, bErr := strconv.Atoi(bs[i])
		switch {
		case aErr == nil && bErr == nil:
			if c := cmpInt(an, bn); c != 0 {
				return c
			}
		case aErr == nil:
			return 1
		case bErr == nil:
			return -1
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	return cmpInt(len(as), len(bs))
}

func splitLocal(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
}

// SortDescending sorts versions from newest to oldest in place.
func SortDescending(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[j].LessThan(versions[i])
	})
}
