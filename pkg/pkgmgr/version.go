package pkgmgr

import (
	"github.com/pipsight/pipsight/pkg/pep440"
	"github.com/pipsight/pipsight/pkg/pypi"
)

// chooseVersion picks the version to present for a package: the highest
// parseable version that satisfies spec (when given) and is not fully
// yanked. A version with an empty file list counts as not yanked.
//
// When nothing qualifies, the highest parseable version is returned
// regardless of constraint and yank state; callers treat that as
// best-effort latest rather than an error. Returns "" only when no
// release key parses at all.
func chooseVersion(releases map[string][]pypi.ReleaseFile, spec *pep440.Specifiers) string {
	versions := parseVersions(releases)
	if len(versions) == 0 {
		return ""
	}
	pep440.SortDescending(versions)

	for _, v := range versions {
		if spec != nil && !spec.Check(v) {
			continue
		}
		if !fullyYanked(releases[v.String()]) {
			return v.String()
		}
	}
	return versions[0].String()
}

func parseVersions(releases map[string][]pypi.ReleaseFile) []pep440.Version {
	versions := make([]pep440.Version, 0, len(releases))
	for key := range releases {
		v, err := pep440.Parse(key)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	return versions
}

func fullyYanked(files []pypi.ReleaseFile) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !f.Yanked {
			return false
		}
	}
	return true
}
