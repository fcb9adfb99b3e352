// Package project discovers and aggregates the dependency manifests of a
// Python project directory.
//
// Analysis results are cached per canonical project path. A cached result
// is reused only while the set of manifest files and every file's
// modification time are unchanged; touching, adding, or removing a
// manifest always forces a fresh parse.
package project

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pipsight/pipsight/pkg/errors"
	"github.com/pipsight/pipsight/pkg/manifest"
)

// Info is the result of analyzing one project directory.
type Info struct {
	ProjectPath     string                `json:"project_path"`
	DependencyFiles []string              `json:"dependency_files"`
	Dependencies    []manifest.Dependency `json:"dependencies"`
}

// Analyzer scans a directory for known manifest files and parses them.
// The cache is injected so callers control sharing and lifetime.
type Analyzer struct {
	cache   *Cache
	parsers map[manifest.Format]manifest.Parser
}

// NewAnalyzer returns an analyzer backed by the given cache.
func NewAnalyzer(cache *Cache) *Analyzer {
	return &Analyzer{
		cache:   cache,
		parsers: manifest.Parsers(),
	}
}

// Analyze scans dir (the process working directory when empty) and
// returns its aggregated dependencies. A manifest that fails to parse
// contributes a single sentinel error record instead of aborting the
// scan; the only error returned is an unresolvable directory path.
func (a *Analyzer) Analyze(dir string) (Info, error) {
	if dir == "" {
		dir = "."
	}
	key, err := filepath.Abs(dir)
	if err != nil {
		return Info{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "cannot resolve %s", dir)
	}
	if resolved, err := filepath.EvalSymlinks(key); err == nil {
		key = resolved
	}

	files, infos := a.scan(key)

	cached, ok := a.cache.Get(key)
	if ok && !needsRefresh(files, infos, cached) {
		return Info{ProjectPath: key, DependencyFiles: files, Dependencies: cached.Dependencies}, nil
	}

	deps := a.parseAll(files)
	a.cache.Put(key, Entry{Files: files, MTimes: modTimes(infos), Dependencies: deps})

	return Info{ProjectPath: key, DependencyFiles: files, Dependencies: deps}, nil
}

// scan probes for each known manifest filename in fixed format order.
func (a *Analyzer) scan(root string) ([]string, map[string]os.FileInfo) {
	files := []string{}
	infos := make(map[string]os.FileInfo)
	for _, format := range manifest.Formats() {
		path := filepath.Join(root, format.Filename())
		fi, err := os.Stat(path)
		if err != nil || fi.IsDir() {
			continue
		}
		files = append(files, path)
		infos[path] = fi
	}
	return files, infos
}

func (a *Analyzer) parseAll(files []string) []manifest.Dependency {
	deps := []manifest.Dependency{}
	for _, path := range files {
		parser := a.parserFor(path)
		if parser == nil {
			continue
		}
		parsed, err := parser.Parse(path)
		if err != nil {
			deps = append(deps, manifest.ParseError(path, err))
			continue
		}
		deps = append(deps, parsed...)
	}
	return deps
}

func (a *Analyzer) parserFor(path string) manifest.Parser {
	base := filepath.Base(path)
	for format, parser := range a.parsers {
		if format.Filename() == base {
			return parser
		}
	}
	return nil
}

func modTimes(infos map[string]os.FileInfo) map[string]time.Time {
	out := make(map[string]time.Time, len(infos))
	for f, fi := range infos {
		out[f] = fi.ModTime()
	}
	return out
}

// needsRefresh reports whether the cached entry is stale: the file set
// changed, or any mtime differs, checked over the union of current and
// previously recorded paths so removals count too.
func needsRefresh(files []string, infos map[string]os.FileInfo, cached Entry) bool {
	if len(files) != len(cached.Files) {
		return true
	}
	for i, f := range files {
		if cached.Files[i] != f {
			return true
		}
	}

	union := make(map[string]struct{}, len(infos)+len(cached.MTimes))
	for f := range infos {
		union[f] = struct{}{}
	}
	for f := range cached.MTimes {
		union[f] = struct{}{}
	}
	for f := range union {
		fi, haveNow := infos[f]
		prev, havePrev := cached.MTimes[f]
		if !haveNow || !havePrev || !fi.ModTime().Equal(prev) {
			return true
		}
	}
	return false
}
