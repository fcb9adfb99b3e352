// Package pkgmgr implements the package-facing operations: metadata
// resolution (local environment first, registry fallback), search,
// compatibility checking, and latest-version lookup.
package pkgmgr

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pipsight/pipsight/pkg/errors"
	"github.com/pipsight/pipsight/pkg/local"
	"github.com/pipsight/pipsight/pkg/manifest"
	"github.com/pipsight/pipsight/pkg/pep440"
	"github.com/pipsight/pipsight/pkg/pypi"
)

// conflictReason is the fixed reason string on every conflict record.
const conflictReason = "No version satisfies all constraints"

// repoURLKeys is the lookup order for a repository link in project_urls.
var repoURLKeys = []string{"Source", "Repository", "Code", "Homepage"}

// Registry is the subset of the PyPI client the manager needs.
type Registry interface {
	GetProject(ctx context.Context, name string) (*pypi.Project, error)
	GetRelease(ctx context.Context, name, version string) (*pypi.Project, error)
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Manager coordinates the local metadata source and the registry client.
type Manager struct {
	registry Registry
	local    local.Source
}

// New returns a manager. A nil localSrc disables the local-first path.
func New(registry Registry, localSrc local.Source) *Manager {
	return &Manager{registry: registry, local: localSrc}
}

// InstallHint renders the pip command that installs the package with the
// given constraint.
func InstallHint(name, versionSpec string) string {
	return "pip install " + name + versionSpec
}

// GetPackageInfo resolves metadata for a package, preferring the local
// environment. When a constraint is given, the local result is used only
// if the installed version parses and satisfies it; otherwise the
// registry is consulted and the chosen release's metadata wins.
func (m *Manager) GetPackageInfo(ctx context.Context, name, versionSpec string) (*PackageInfo, error) {
	var spec *pep440.Specifiers
	if versionSpec != "" {
		parsed, err := pep440.ParseSpecifiers(versionSpec)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSpec, err, "invalid version specifier %q", versionSpec)
		}
		spec = &parsed
	}

	if m.local != nil && m.local.IsInstalled(name) {
		if info, ok := m.localInfo(name, spec); ok {
			return info, nil
		}
	}

	return m.registryInfo(ctx, name, spec)
}

// localInfo builds a PackageInfo from the installed distribution. The
// second return is false when the local result must not be used: the
// metadata could not be read, or a constraint is present and the
// installed version does not parse or does not satisfy it.
func (m *Manager) localInfo(name string, spec *pep440.Specifiers) (*PackageInfo, bool) {
	md, err := m.local.Metadata(name)
	if err != nil {
		return nil, false
	}

	if spec != nil {
		v, err := pep440.Parse(md.Version)
		if err != nil || !spec.Check(v) {
			return nil, false
		}
	}

	return &PackageInfo{
		Name:                       md.Name,
		Version:                    md.Version,
		Description:                md.Summary,
		LongDescription:            md.Description,
		LongDescriptionContentType: md.DescriptionContentType,
		Author:                     md.Author,
		License:                    md.License,
		Homepage:                   md.HomePage,
		Repository:                 "",
		Keywords:                   md.Keywords,
		Dependencies:               parseRequiresDist(md.RequiresDist),
		PythonRequires:             md.RequiresPython,
		LastUpdated:                nil,
	}, true
}

func (m *Manager) registryInfo(ctx context.Context, name string, spec *pep440.Specifiers) (*PackageInfo, error) {
	project, err := m.registry.GetProject(ctx, name)
	if err != nil {
		return nil, err
	}

	info := project.Info
	urls := project.URLs

	chosen := chooseVersion(project.Releases, spec)
	if chosen != "" {
		release, err := m.registry.GetRelease(ctx, name, chosen)
		if err != nil {
			return nil, err
		}
		info = release.Info
		urls = release.URLs
	}

	repo := ""
	for _, key := range repoURLKeys {
		if u, ok := info.ProjectURL(key); ok {
			repo = u
			break
		}
	}

	homepage := info.HomePage
	if u, ok := info.ProjectURL("Homepage"); ok {
		homepage = u
	}

	version := info.Version
	if version == "" {
		version = chosen
	}

	return &PackageInfo{
		Name:                       orDefault(info.Name, name),
		Version:                    version,
		Description:                info.Summary,
		LongDescription:            info.Description,
		LongDescriptionContentType: info.DescriptionContentType,
		Author:                     orDefault(info.Author, info.Maintainer),
		License:                    info.License,
		Homepage:                   homepage,
		Repository:                 repo,
		Keywords:                   splitKeywords(info.Keywords),
		Dependencies:               parseRequiresDist(info.RequiresDist),
		PythonRequires:             info.RequiresPython,
		LastUpdated:                lastUpload(urls),
	}, nil
}

// SearchPackages scrapes the search page and enriches each hit via the
// JSON API. When the scrape yields nothing for a non-blank query, the
// query is retried as an exact package name.
func (m *Manager) SearchPackages(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	names, err := m.registry.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	results := []SearchResult{}
	for _, name := range names {
		project, err := m.registry.GetProject(ctx, name)
		if err != nil {
			continue
		}
		info := project.Info
		results = append(results, SearchResult{
			Name:        orDefault(info.Name, name),
			Description: info.Summary,
			Version:     info.Version,
			Author:      orDefault(info.Author, info.Maintainer),
		})
	}

	if len(results) == 0 && strings.TrimSpace(query) != "" {
		if info, err := m.GetPackageInfo(ctx, strings.TrimSpace(query), ""); err == nil {
			results = append(results, SearchResult{
				Name:        info.Name,
				Description: info.Description,
				Version:     info.Version,
				Author:      info.Author,
			})
		}
	}
	return results, nil
}

// CheckCompatibility reports, for every package named by the existing
// dependencies plus the candidate, whether any released version
// satisfies all collected constraints simultaneously. Packages that
// cannot be fetched are skipped, as are parse-error sentinels; absence
// of release data is never a conflict.
func (m *Manager) CheckCompatibility(ctx context.Context, existing []manifest.Dependency, name, versionSpec string) (*CompatibilityReport, error) {
	constraints := map[string][]string{}
	add := func(pkg, spec string) {
		for _, s := range constraints[pkg] {
			if s == spec {
				return
			}
		}
		constraints[pkg] = append(constraints[pkg], spec)
	}

	for _, d := range existing {
		if d.IsParseError() {
			continue
		}
		add(d.Name, d.VersionSpec)
	}
	add(manifest.NormalizeName(name), versionSpec)

	names := make([]string, 0, len(constraints))
	for pkg := range constraints {
		names = append(names, pkg)
	}
	sort.Strings(names)

	report := &CompatibilityReport{Conflicts: []Conflict{}}
	for _, pkg := range names {
		project, err := m.registry.GetProject(ctx, pkg)
		if err != nil {
			continue
		}

		specs := make([]pep440.Specifiers, 0, len(constraints[pkg]))
		for _, raw := range constraints[pkg] {
			s, err := pep440.ParseSpecifiers(raw)
			if err != nil {
				// Unparseable constraints cannot exclude anything.
				continue
			}
			specs = append(specs, s)
		}

		versions := parseVersions(project.Releases)
		if len(versions) == 0 {
			continue
		}
		pep440.SortDescending(versions)

		if !anySatisfiesAll(versions, specs) {
			report.Conflicts = append(report.Conflicts, Conflict{
				Package:     pkg,
				Reason:      conflictReason,
				Constraints: constraints[pkg],
			})
		}
	}
	return report, nil
}

func anySatisfiesAll(versions []pep440.Version, specs []pep440.Specifiers) bool {
	for _, v := range versions {
		ok := true
		for _, s := range specs {
			if s.Empty() {
				continue
			}
			if !s.Check(v) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// GetLatestVersion returns the highest non-yanked release. Prereleases
// are skipped unless allowPrerelease is set. When nothing qualifies the
// project's own version string is the fallback.
func (m *Manager) GetLatestVersion(ctx context.Context, name string, allowPrerelease bool) (*LatestVersion, error) {
	project, err := m.registry.GetProject(ctx, name)
	if err != nil {
		return nil, err
	}

	var versions []pep440.Version
	for key, files := range project.Releases {
		v, err := pep440.Parse(key)
		if err != nil {
			continue
		}
		if !allowPrerelease && v.IsPrerelease() {
			continue
		}
		if fullyYanked(files) {
			continue
		}
		versions = append(versions, v)
	}
	pep440.SortDescending(versions)

	latest := project.Info.Version
	if len(versions) > 0 {
		latest = versions[0].String()
	}

	isPre := false
	if v, err := pep440.Parse(latest); err == nil {
		isPre = v.IsPrerelease()
	}

	return &LatestVersion{
		Name:         orDefault(project.Info.Name, name),
		Version:      latest,
		IsPrerelease: isPre,
		Source:       "pypi",
	}, nil
}

// parseRequiresDist parses Requires-Dist entries leniently: entries that
// fail requirement parsing are dropped.
func parseRequiresDist(requires []string) []manifest.Dependency {
	deps := []manifest.Dependency{}
	for _, r := range requires {
		req, err := manifest.ParseRequirement(r)
		if err != nil {
			continue
		}
		deps = append(deps, manifest.Dependency{
			Name:        req.Name,
			VersionSpec: req.VersionSpec,
			Extras:      req.Extras,
		})
	}
	return deps
}

func splitKeywords(kw string) []string {
	out := []string{}
	for _, k := range strings.Split(kw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// lastUpload returns the newest parseable upload timestamp across the
// files, in UTC. Either timestamp field is accepted; malformed values
// are skipped.
func lastUpload(files []pypi.ReleaseFile) *time.Time {
	var latest *time.Time
	for _, f := range files {
		raw := f.UploadTimeISO8601
		if raw == "" {
			raw = f.UploadTime
		}
		if raw == "" {
			continue
		}
		ts, err := parseUploadTime(raw)
		if err != nil {
			continue
		}
		if latest == nil || ts.After(*latest) {
			utc := ts.UTC()
			latest = &utc
		}
	}
	return latest
}

func parseUploadTime(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	// upload_time omits the zone: "2023-05-22T15:12:44".
	return time.Parse("2006-01-02T15:04:05", raw)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
