package pkgmgr

import (
	"context"
	"testing"

	"github.com/pipsight/pipsight/pkg/errors"
	"github.com/pipsight/pipsight/pkg/local"
	"github.com/pipsight/pipsight/pkg/manifest"
	"github.com/pipsight/pipsight/pkg/pypi"
)

type fakeRegistry struct {
	projects    map[string]*pypi.Project
	releases    map[string]*pypi.Project
	searchNames []string
	searchErr   error
}

func (f *fakeRegistry) GetProject(ctx context.Context, name string) (*pypi.Project, error) {
	p, ok := f.projects[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "not found: %s", name)
	}
	return p, nil
}

func (f *fakeRegistry) GetRelease(ctx context.Context, name, version string) (*pypi.Project, error) {
	p, ok := f.releases[name+"@"+version]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "not found: %s %s", name, version)
	}
	return p, nil
}

func (f *fakeRegistry) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit > 0 && len(f.searchNames) > limit {
		return f.searchNames[:limit], nil
	}
	return f.searchNames, nil
}

type fakeLocal struct {
	metadata map[string]*local.Metadata
}

func (f *fakeLocal) IsInstalled(name string) bool {
	_, ok := f.metadata[manifest.NormalizeName(name)]
	return ok
}

func (f *fakeLocal) Metadata(name string) (*local.Metadata, error) {
	md, ok := f.metadata[manifest.NormalizeName(name)]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "package not installed: %s", name)
	}
	return md, nil
}

func requestsProject() *pypi.Project {
	return &pypi.Project{
		Info: pypi.Info{
			Name:         "requests",
			Version:      "2.31.0",
			Summary:      "Python HTTP for Humans.",
			Author:       "Kenneth Reitz",
			Keywords:     "http, client",
			RequiresDist: []string{"urllib3>=1.21.1", "not a requirement !!"},
			ProjectURLs:  map[string]any{"Source": "https://github.com/psf/requests"},
		},
		Releases: map[string][]pypi.ReleaseFile{
			"2.31.0": {{Yanked: false, UploadTimeISO8601: "2023-05-22T15:12:44Z"}},
			"2.30.0": {{Yanked: false, UploadTimeISO8601: "2023-05-03T10:00:00Z"}},
		},
		URLs: []pypi.ReleaseFile{{UploadTimeISO8601: "2023-05-22T15:12:44Z"}},
	}
}

func TestGetPackageInfo_LocalFirst(t *testing.T) {
	loc := &fakeLocal{metadata: map[string]*local.Metadata{
		"requests": {
			Name:         "requests",
			Version:      "2.30.0",
			Summary:      "installed copy",
			RequiresDist: []string{"urllib3 (>=1.21.1)"},
		},
	}}
	m := New(&fakeRegistry{}, loc)

	info, err := m.GetPackageInfo(context.Background(), "requests", "")
	if err != nil {
		t.Fatalf("GetPackageInfo failed: %v", err)
	}
	if info.Version != "2.30.0" || info.Description != "installed copy" {
		t.Errorf("expected local metadata, got %+v", info)
	}
	if len(info.Dependencies) != 1 || info.Dependencies[0].Name != "urllib3" {
		t.Errorf("dependencies = %+v", info.Dependencies)
	}
	if info.LastUpdated != nil {
		t.Error("local result carries no upload timestamp")
	}
}

func TestGetPackageInfo_LocalSatisfiesConstraint(t *testing.T) {
	loc := &fakeLocal{metadata: map[string]*local.Metadata{
		"requests": {Name: "requests", Version: "2.30.0"},
	}}
	m := New(&fakeRegistry{}, loc)

	info, err := m.GetPackageInfo(context.Background(), "requests", ">=2.0,<3.0")
	if err != nil {
		t.Fatalf("GetPackageInfo failed: %v", err)
	}
	if info.Version != "2.30.0" {
		t.Errorf("expected local version, got %q", info.Version)
	}
}

func TestGetPackageInfo_ConstraintFallsThroughToRegistry(t *testing.T) {
	loc := &fakeLocal{metadata: map[string]*local.Metadata{
		"requests": {Name: "requests", Version: "1.0.0"},
	}}
	reg := &fakeRegistry{
		projects: map[string]*pypi.Project{"requests": requestsProject()},
		releases: map[string]*pypi.Project{"requests@2.31.0": requestsProject()},
	}
	m := New(reg, loc)

	info, err := m.GetPackageInfo(context.Background(), "requests", ">=2.0")
	if err != nil {
		t.Fatalf("GetPackageInfo failed: %v", err)
	}
	if info.Version != "2.31.0" {
		t.Errorf("expected registry version, got %q", info.Version)
	}
	if info.Repository != "https://github.com/psf/requests" {
		t.Errorf("repository = %q", info.Repository)
	}
	if len(info.Keywords) != 2 {
		t.Errorf("keywords = %v", info.Keywords)
	}
	// One valid Requires-Dist entry, the malformed one dropped.
	if len(info.Dependencies) != 1 {
		t.Errorf("dependencies = %+v", info.Dependencies)
	}
	if info.LastUpdated == nil || info.LastUpdated.Year() != 2023 {
		t.Errorf("last updated = %v", info.LastUpdated)
	}
}

func TestGetPackageInfo_AuthorFallsBackToMaintainer(t *testing.T) {
	p := requestsProject()
	p.Info.Author = ""
	p.Info.Maintainer = "The PSF"
	reg := &fakeRegistry{
		projects: map[string]*pypi.Project{"requests": p},
		releases: map[string]*pypi.Project{"requests@2.31.0": p},
	}
	m := New(reg, nil)

	info, err := m.GetPackageInfo(context.Background(), "requests", "")
	if err != nil {
		t.Fatalf("GetPackageInfo failed: %v", err)
	}
	if info.Author != "The PSF" {
		t.Errorf("author = %q", info.Author)
	}
}

func TestGetPackageInfo_InvalidSpec(t *testing.T) {
	m := New(&fakeRegistry{}, nil)
	_, err := m.GetPackageInfo(context.Background(), "requests", ">>nonsense")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errors.ErrCodeInvalidSpec) {
		t.Errorf("expected INVALID_SPECIFIER, got %v", err)
	}
}

func TestGetPackageInfo_NotFound(t *testing.T) {
	m := New(&fakeRegistry{}, nil)
	_, err := m.GetPackageInfo(context.Background(), "no-such-package", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestCheckCompatibility_Conflict(t *testing.T) {
	reg := &fakeRegistry{projects: map[string]*pypi.Project{
		"django": {Releases: map[string][]pypi.ReleaseFile{
			"3.2.0": {}, "4.0.0": {}, "4.2.0": {},
		}},
	}}
	m := New(reg, nil)

	existing := []manifest.Dependency{{Name: "django", VersionSpec: ">=4.0"}}
	report, err := m.CheckCompatibility(context.Background(), existing, "django", "<4.0")
	if err != nil {
		t.Fatalf("CheckCompatibility failed: %v", err)
	}

	if len(report.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %+v", report.Conflicts)
	}
	c := report.Conflicts[0]
	if c.Package != "django" {
		t.Errorf("package = %q", c.Package)
	}
	if c.Reason != "No version satisfies all constraints" {
		t.Errorf("reason = %q", c.Reason)
	}
	if len(c.Constraints) != 2 {
		t.Errorf("constraints = %v", c.Constraints)
	}
}

func TestCheckCompatibility_Compatible(t *testing.T) {
	reg := &fakeRegistry{projects: map[string]*pypi.Project{
		"django": {Releases: map[string][]pypi.ReleaseFile{
			"3.2.0": {}, "4.0.0": {},
		}},
	}}
	m := New(reg, nil)

	existing := []manifest.Dependency{{Name: "django", VersionSpec: ">=3.0"}}
	report, err := m.CheckCompatibility(context.Background(), existing, "django", "<4.0")
	if err != nil {
		t.Fatalf("CheckCompatibility failed: %v", err)
	}
	if len(report.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %+v", report.Conflicts)
	}
}

func TestCheckCompatibility_FetchFailureSkipsPackage(t *testing.T) {
	m := New(&fakeRegistry{}, nil)

	existing := []manifest.Dependency{{Name: "ghost", VersionSpec: ">=99"}}
	report, err := m.CheckCompatibility(context.Background(), existing, "phantom", "<1")
	if err != nil {
		t.Fatalf("CheckCompatibility failed: %v", err)
	}
	if len(report.Conflicts) != 0 {
		t.Errorf("unfetchable packages must not conflict, got %+v", report.Conflicts)
	}
}

func TestCheckCompatibility_SentinelSkipped(t *testing.T) {
	reg := &fakeRegistry{projects: map[string]*pypi.Project{
		"flask": {Releases: map[string][]pypi.ReleaseFile{"2.0.0": {}}},
	}}
	m := New(reg, nil)

	existing := []manifest.Dependency{
		manifest.ParseError("/proj/requirements.txt", errors.New(errors.ErrCodeParsing, "bad line")),
	}
	report, err := m.CheckCompatibility(context.Background(), existing, "flask", "")
	if err != nil {
		t.Fatalf("CheckCompatibility failed: %v", err)
	}
	if len(report.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %+v", report.Conflicts)
	}
}

func TestGetLatestVersion(t *testing.T) {
	reg := &fakeRegistry{projects: map[string]*pypi.Project{
		"demo": {
			Info: pypi.Info{Name: "demo", Version: "1.5.0"},
			Releases: map[string][]pypi.ReleaseFile{
				"1.0.0":    {{Yanked: false}},
				"1.5.0":    {{Yanked: false}},
				"2.0.0rc1": {{Yanked: false}},
				"3.0.0":    {{Yanked: true}},
			},
		},
	}}
	m := New(reg, nil)

	latest, err := m.GetLatestVersion(context.Background(), "demo", false)
	if err != nil {
		t.Fatalf("GetLatestVersion failed: %v", err)
	}
	if latest.Version != "1.5.0" || latest.IsPrerelease {
		t.Errorf("latest = %+v", latest)
	}
	if latest.Source != "pypi" {
		t.Errorf("source = %q", latest.Source)
	}

	latest, err = m.GetLatestVersion(context.Background(), "demo", true)
	if err != nil {
		t.Fatalf("GetLatestVersion failed: %v", err)
	}
	if latest.Version != "2.0.0rc1" || !latest.IsPrerelease {
		t.Errorf("latest with prereleases = %+v", latest)
	}
}

func TestGetLatestVersion_FallbackToInfoVersion(t *testing.T) {
	reg := &fakeRegistry{projects: map[string]*pypi.Project{
		"demo": {
			Info:     pypi.Info{Name: "demo", Version: "0.9.0"},
			Releases: map[string][]pypi.ReleaseFile{"0.9.0": {{Yanked: true}}},
		},
	}}
	m := New(reg, nil)

	latest, err := m.GetLatestVersion(context.Background(), "demo", false)
	if err != nil {
		t.Fatalf("GetLatestVersion failed: %v", err)
	}
	if latest.Version != "0.9.0" {
		t.Errorf("fallback version = %q", latest.Version)
	}
}

func TestSearchPackages(t *testing.T) {
	reg := &fakeRegistry{
		searchNames: []string{"fastapi", "broken", "flask"},
		projects: map[string]*pypi.Project{
			"fastapi": {Info: pypi.Info{Name: "fastapi", Summary: "web framework", Version: "0.104.1", Author: "Sebastián Ramírez"}},
			"flask":   {Info: pypi.Info{Name: "flask", Summary: "micro framework", Version: "3.0.0"}},
		},
	}
	m := New(reg, nil)

	results, err := m.SearchPackages(context.Background(), "web framework", 10)
	if err != nil {
		t.Fatalf("SearchPackages failed: %v", err)
	}
	// "broken" cannot be enriched and is dropped.
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Name != "fastapi" || results[1].Name != "flask" {
		t.Errorf("unexpected order: %+v", results)
	}
}

func TestSearchPackages_ExactNameFallback(t *testing.T) {
	reg := &fakeRegistry{
		projects: map[string]*pypi.Project{"pytm": {
			Info:     pypi.Info{Name: "pytm", Summary: "threat modeling", Version: "1.3.0"},
			Releases: map[string][]pypi.ReleaseFile{"1.3.0": {}},
		}},
		releases: map[string]*pypi.Project{"pytm@1.3.0": {
			Info: pypi.Info{Name: "pytm", Summary: "threat modeling", Version: "1.3.0"},
		}},
	}
	m := New(reg, nil)

	results, err := m.SearchPackages(context.Background(), "pytm", 10)
	if err != nil {
		t.Fatalf("SearchPackages failed: %v", err)
	}
	if len(results) != 1 || results[0].Name != "pytm" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchPackages_NoFallbackForUnknownName(t *testing.T) {
	m := New(&fakeRegistry{}, nil)
	results, err := m.SearchPackages(context.Background(), "zzzz-does-not-exist", 10)
	if err != nil {
		t.Fatalf("SearchPackages failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v", results)
	}
}

func TestInstallHint(t *testing.T) {
	if got := InstallHint("requests", ">=2.0"); got != "pip install requests>=2.0" {
		t.Errorf("hint = %q", got)
	}
	if got := InstallHint("requests", ""); got != "pip install requests" {
		t.Errorf("hint = %q", got)
	}
}
