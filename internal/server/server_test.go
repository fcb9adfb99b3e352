package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pipsight/pipsight/pkg/errors"
	"github.com/pipsight/pipsight/pkg/pkgmgr"
	"github.com/pipsight/pipsight/pkg/project"
	"github.com/pipsight/pipsight/pkg/pypi"
)

type fakeRegistry struct {
	projects map[string]*pypi.Project
	releases map[string]*pypi.Project
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
	return nil, nil
}

func newTestServer(reg pkgmgr.Registry) *httptest.Server {
	s := New(project.NewAnalyzer(project.NewCache()), pkgmgr.New(reg, nil), nil)
	return httptest.NewServer(s.Router())
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeRegistry{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id header")
	}
}

func TestAnalyzeTool(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("requests>=2.28\n"), 0644); err != nil {
		t.Fatal(err)
	}

	srv := newTestServer(&fakeRegistry{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/tools/analyze_project_dependencies", map[string]string{"project_path": dir})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var info project.Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if len(info.Dependencies) != 1 || info.Dependencies[0].Name != "requests" {
		t.Errorf("unexpected analysis: %+v", info)
	}
}

func TestMetadataTool(t *testing.T) {
	p := &pypi.Project{
		Info:     pypi.Info{Name: "requests", Version: "2.31.0", Summary: "HTTP"},
		Releases: map[string][]pypi.ReleaseFile{"2.31.0": {}},
	}
	srv := newTestServer(&fakeRegistry{
		projects: map[string]*pypi.Project{"requests": p},
		releases: map[string]*pypi.Project{"requests@2.31.0": p},
	})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/tools/get_package_metadata", map[string]string{
		"package_name": "requests",
		"version_spec": ">=2.0",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["name"] != "requests" {
		t.Errorf("name = %v", out["name"])
	}
	if out["install_hint"] != "pip install requests>=2.0" {
		t.Errorf("install_hint = %v", out["install_hint"])
	}
}

func TestMetadataTool_InvalidName(t *testing.T) {
	srv := newTestServer(&fakeRegistry{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/tools/get_package_metadata", map[string]string{"package_name": "../etc/passwd"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMetadataTool_NotFound(t *testing.T) {
	srv := newTestServer(&fakeRegistry{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/tools/get_package_metadata", map[string]string{"package_name": "ghost"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}

	var out errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Code != errors.ErrCodeNotFound {
		t.Errorf("code = %q", out.Code)
	}
}

func TestCheckTool(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("django>=4.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	srv := newTestServer(&fakeRegistry{projects: map[string]*pypi.Project{
		"django": {Releases: map[string][]pypi.ReleaseFile{"3.2.0": {}, "4.2.0": {}}},
	}})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/tools/check_package_compatibility", map[string]string{
		"new_package":  "django",
		"version_spec": "<4.0",
		"project_path": dir,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var report pkgmgr.CompatibilityReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if len(report.Conflicts) != 1 || report.Conflicts[0].Package != "django" {
		t.Errorf("conflicts = %+v", report.Conflicts)
	}
}

func TestLatestTool(t *testing.T) {
	srv := newTestServer(&fakeRegistry{projects: map[string]*pypi.Project{
		"demo": {
			Info:     pypi.Info{Name: "demo"},
			Releases: map[string][]pypi.ReleaseFile{"1.0.0": {}, "2.0.0": {}},
		},
	}})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/tools/get_latest_version", map[string]any{"package_name": "demo"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var latest pkgmgr.LatestVersion
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		t.Fatal(err)
	}
	if latest.Version != "2.0.0" || latest.Source != "pypi" {
		t.Errorf("latest = %+v", latest)
	}
}

func TestSearchTool_EmptyBody(t *testing.T) {
	srv := newTestServer(&fakeRegistry{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/tools/search_packages", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
