package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func depNames(info Info) []string {
	names := make([]string, 0, len(info.Dependencies))
	for _, d := range info.Dependencies {
		names = append(names, d.Name)
	}
	return names
}

func TestAnalyze_AggregatesManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", "requests>=2.28\n")
	writeFile(t, dir, "pyproject.toml", `[project]
dependencies = ["click==8.1.0"]
`)

	a := NewAnalyzer(NewCache())
	info, err := a.Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(info.DependencyFiles) != 2 {
		t.Fatalf("expected 2 manifest files, got %v", info.DependencyFiles)
	}
	// Fixed scan order: requirements.txt before pyproject.toml.
	if filepath.Base(info.DependencyFiles[0]) != "requirements.txt" {
		t.Errorf("unexpected file order: %v", info.DependencyFiles)
	}

	names := depNames(info)
	if len(names) != 2 || names[0] != "requests" || names[1] != "click" {
		t.Errorf("unexpected dependencies: %v", names)
	}
}

func TestAnalyze_CacheHitSkipsReparse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "requirements.txt", "requests>=2.28\n")

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	a := NewAnalyzer(NewCache())
	if _, err := a.Analyze(dir); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	// Rewrite the file but restore its mtime: a cache hit must return the
	// previously parsed list without touching the parser again.
	writeFile(t, dir, "requirements.txt", "flask>=2.0\n")
	if err := os.Chtimes(path, fi.ModTime(), fi.ModTime()); err != nil {
		t.Fatal(err)
	}

	info, err := a.Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if names := depNames(info); len(names) != 1 || names[0] != "requests" {
		t.Errorf("expected cached result, got %v", names)
	}
}

func TestAnalyze_TouchInvalidates(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "requirements.txt", "requests>=2.28\n")

	a := NewAnalyzer(NewCache())
	if _, err := a.Analyze(dir); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	writeFile(t, dir, "requirements.txt", "flask>=2.0\n")
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	info, err := a.Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if names := depNames(info); len(names) != 1 || names[0] != "flask" {
		t.Errorf("expected fresh parse after touch, got %v", names)
	}
}

func TestAnalyze_FileSetChangeInvalidates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", "requests\n")

	a := NewAnalyzer(NewCache())
	if _, err := a.Analyze(dir); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	pipfile := writeFile(t, dir, "Pipfile", "[packages]\nflask = \"*\"\n")
	info, err := a.Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if names := depNames(info); len(names) != 2 {
		t.Errorf("expected both manifests after addition, got %v", names)
	}

	if err := os.Remove(pipfile); err != nil {
		t.Fatal(err)
	}
	info, err = a.Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if names := depNames(info); len(names) != 1 || names[0] != "requests" {
		t.Errorf("expected single manifest after removal, got %v", names)
	}
}

func TestAnalyze_BadManifestYieldsSentinel(t *testing.T) {
	dir := t.TempDir()
	badPath := writeFile(t, dir, "requirements.txt", "this is !! not valid\n")
	writeFile(t, dir, "pyproject.toml", `[project]
dependencies = ["click"]
`)

	a := NewAnalyzer(NewCache())
	info, err := a.Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze must not fail on a bad manifest: %v", err)
	}

	if len(info.Dependencies) != 2 {
		t.Fatalf("expected sentinel plus one dependency, got %v", depNames(info))
	}
	sentinel := info.Dependencies[0]
	if !sentinel.IsParseError() {
		t.Errorf("first record should be a parse-error sentinel, got %+v", sentinel)
	}
	if sentinel.SourceFile != badPath {
		t.Errorf("sentinel source = %q, want %q", sentinel.SourceFile, badPath)
	}
	if sentinel.VersionSpec == "" {
		t.Error("sentinel should carry the error text in its constraint field")
	}
	if info.Dependencies[1].Name != "click" {
		t.Errorf("remaining manifests should still be parsed, got %v", depNames(info))
	}
}

func TestAnalyze_EmptyDirectory(t *testing.T) {
	a := NewAnalyzer(NewCache())
	info, err := a.Analyze(t.TempDir())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(info.DependencyFiles) != 0 || len(info.Dependencies) != 0 {
		t.Errorf("expected empty analysis, got %+v", info)
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := NewCache()
	c.Put("/proj", Entry{Files: []string{"/proj/requirements.txt"}})
	if _, ok := c.Get("/proj"); !ok {
		t.Fatal("entry should be present")
	}
	c.Invalidate("/proj")
	if _, ok := c.Get("/proj"); ok {
		t.Fatal("entry should be gone")
	}
}
