package pkgmgr

import (
	"time"

	"github.com/pipsight/pipsight/pkg/manifest"
)

// PackageInfo is the resolved metadata for one package, from the local
// environment or the registry.
type PackageInfo struct {
	Name                       string                `json:"name"`
	Version                    string                `json:"version"`
	Description                string                `json:"description"`
	LongDescription            string                `json:"long_description"`
	LongDescriptionContentType string                `json:"long_description_content_type"`
	Author                     string                `json:"author"`
	License                    string                `json:"license"`
	Homepage                   string                `json:"homepage"`
	Repository                 string                `json:"repository"`
	Keywords                   []string              `json:"keywords"`
	Dependencies               []manifest.Dependency `json:"dependencies"`
	PythonRequires             string                `json:"python_requires"`
	LastUpdated                *time.Time            `json:"last_updated"`
}

// SearchResult is one lightweight search hit.
type SearchResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Author      string `json:"author"`
}

// Conflict reports one package whose collected constraints admit no
// released version.
type Conflict struct {
	Package     string   `json:"package"`
	Reason      string   `json:"reason"`
	Constraints []string `json:"constraints"`
}

// CompatibilityReport is the result of a compatibility check.
type CompatibilityReport struct {
	Conflicts []Conflict `json:"conflicts"`
}

// LatestVersion is the result of a latest-version lookup.
type LatestVersion struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	IsPrerelease bool   `json:"is_prerelease"`
	Source       string `json:"source"`
}
