// Package local reads metadata of packages installed in a Python
// environment, from the .dist-info directories that installers leave in
// site-packages.
package local

import (
	"bufio"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/pipsight/pipsight/pkg/errors"
	"github.com/pipsight/pipsight/pkg/manifest"
)

// Metadata is the parsed METADATA record of an installed distribution.
type Metadata struct {
	Name                   string
	Version                string
	Summary                string
	Description            string
	DescriptionContentType string
	Author                 string
	License                string
	HomePage               string
	Keywords               []string
	RequiresDist           []string
	RequiresPython         string
}

// Source answers whether a package is installed and with what metadata.
type Source interface {
	IsInstalled(name string) bool
	Metadata(name string) (*Metadata, error)
}

// EnvSource scans a fixed list of site-packages directories for
// .dist-info entries. Package names are matched after PEP 503
// normalization, so "Charset_Normalizer" finds charset_normalizer.
type EnvSource struct {
	roots []string
}

// NewEnvSource returns a source over the given site-packages roots.
// With no roots every lookup reports not installed.
func NewEnvSource(roots ...string) *EnvSource {
	return &EnvSource{roots: roots}
}

// IsInstalled reports whether a dist-info directory exists for the package.
func (s *EnvSource) IsInstalled(name string) bool {
	return s.metadataPath(name) != ""
}

// Metadata parses the package's METADATA file. The header block carries
// the named fields; the message body is the long description.
func (s *EnvSource) Metadata(name string) (*Metadata, error) {
	path := s.metadataPath(name)
	if path == "" {
		return nil, errors.New(errors.ErrCodeNotFound, "package not installed: %s", name)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "cannot read %s", path)
	}
	defer f.Close()

	// METADATA is an RFC 822 header block plus optional body (PEP 566).
	msg, err := mail.ReadMessage(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParsing, err, "malformed metadata in %s", path)
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "cannot read %s", path)
	}

	get := func(key string) string { return msg.Header.Get(key) }

	author := get("Author")
	if author == "" {
		author = get("Author-Email")
	}

	var keywords []string
	for _, k := range strings.Split(get("Keywords"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}

	return &Metadata{
		Name:                   orDefault(get("Name"), name),
		Version:                get("Version"),
		Summary:                get("Summary"),
		Description:            strings.TrimSpace(string(body)),
		DescriptionContentType: get("Description-Content-Type"),
		Author:                 author,
		License:                get("License"),
		HomePage:               get("Home-Page"),
		Keywords:               keywords,
		RequiresDist:           msg.Header["Requires-Dist"],
		RequiresPython:         get("Requires-Python"),
	}, nil
}

// metadataPath locates the METADATA file for the package, or "" when
// the package is not installed under any root.
func (s *EnvSource) metadataPath(name string) string {
	want := manifest.NormalizeName(name)
	for _, root := range s.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || !strings.HasSuffix(e.Name(), ".dist-info") {
				continue
			}
			stem := strings.TrimSuffix(e.Name(), ".dist-info")
			i := strings.LastIndex(stem, "-")
			if i <= 0 {
				continue
			}
			if manifest.NormalizeName(stem[:i]) != want {
				continue
			}
			path := filepath.Join(root, e.Name(), "METADATA")
			if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
				return path
			}
		}
	}
	return ""
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
