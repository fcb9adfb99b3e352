package local

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pipsight/pipsight/pkg/errors"
)

const requestsMetadata = `Metadata-Version: 2.1
Name: requests
Version: 2.31.0
Summary: Python HTTP for Humans.
Home-page: https://requests.readthedocs.io
Author: Kenneth Reitz
License: Apache 2.0
Keywords: http, client
Requires-Python: >=3.7
Requires-Dist: charset-normalizer (<4,>=2)
Requires-Dist: urllib3 (<3,>=1.21.1)
Description-Content-Type: text/markdown

# Requests

Requests is a simple HTTP library.
`

func writeDistInfo(t *testing.T, root, dirName, metadata string) {
	t.Helper()
	dir := filepath.Join(root, dirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "METADATA"), []byte(metadata), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestEnvSource_IsInstalled(t *testing.T) {
	root := t.TempDir()
	writeDistInfo(t, root, "requests-2.31.0.dist-info", requestsMetadata)
	writeDistInfo(t, root, "charset_normalizer-3.2.0.dist-info", "Name: charset-normalizer\nVersion: 3.2.0\n\n")

	s := NewEnvSource(root)

	tests := []struct {
		name string
		want bool
	}{
		{"requests", true},
		{"Requests", true},
		{"charset-normalizer", true},
		{"Charset_Normalizer", true},
		{"flask", false},
	}
	for _, tt := range tests {
		if got := s.IsInstalled(tt.name); got != tt.want {
			t.Errorf("IsInstalled(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEnvSource_Metadata(t *testing.T) {
	root := t.TempDir()
	writeDistInfo(t, root, "requests-2.31.0.dist-info", requestsMetadata)

	md, err := NewEnvSource(root).Metadata("requests")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}

	if md.Name != "requests" || md.Version != "2.31.0" {
		t.Errorf("unexpected identity: %+v", md)
	}
	if md.Summary != "Python HTTP for Humans." {
		t.Errorf("summary = %q", md.Summary)
	}
	if md.HomePage != "https://requests.readthedocs.io" {
		t.Errorf("homepage = %q", md.HomePage)
	}
	if len(md.Keywords) != 2 || md.Keywords[0] != "http" || md.Keywords[1] != "client" {
		t.Errorf("keywords = %v", md.Keywords)
	}
	if len(md.RequiresDist) != 2 {
		t.Errorf("requires_dist = %v", md.RequiresDist)
	}
	if md.RequiresPython != ">=3.7" {
		t.Errorf("requires_python = %q", md.RequiresPython)
	}
	if md.DescriptionContentType != "text/markdown" {
		t.Errorf("content type = %q", md.DescriptionContentType)
	}
	if md.Description == "" || md.Description[0] != '#' {
		t.Errorf("long description should come from the body, got %q", md.Description)
	}
}

func TestEnvSource_AuthorEmailFallback(t *testing.T) {
	root := t.TempDir()
	writeDistInfo(t, root, "demo-1.0.dist-info", "Name: demo\nVersion: 1.0\nAuthor-email: Jane Doe <jane@example.com>\n\n")

	md, err := NewEnvSource(root).Metadata("demo")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if md.Author != "Jane Doe <jane@example.com>" {
		t.Errorf("author = %q", md.Author)
	}
}

func TestEnvSource_NotInstalled(t *testing.T) {
	s := NewEnvSource(t.TempDir())
	if s.IsInstalled("missing") {
		t.Error("nothing should be installed in an empty root")
	}
	_, err := s.Metadata("missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}
