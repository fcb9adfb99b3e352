// Package cli implements the pipsight command-line interface.
//
// Commands cover project analysis, package metadata lookup, PyPI search,
// compatibility checking, latest-version lookup, the HTTP tool server,
// and cache management. All commands support --verbose (-v) for
// debug-level logging and --json for machine-readable output.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pipsight/pipsight/pkg/buildinfo"
	"github.com/pipsight/pipsight/pkg/cache"
	"github.com/pipsight/pipsight/pkg/local"
	"github.com/pipsight/pipsight/pkg/pkgmgr"
	"github.com/pipsight/pipsight/pkg/project"
	"github.com/pipsight/pipsight/pkg/pypi"
)

const (
	// appName is the application name used for directories and display.
	appName = "pipsight"

	// defaultCacheTTL is how long registry responses stay cached.
	defaultCacheTTL = time.Hour
)

// Environment variables honored by the CLI.
const (
	envIndexURL  = "PIPSIGHT_INDEX_URL"
	envSearchURL = "PIPSIGHT_SEARCH_URL"
	envRedisAddr = "PIPSIGHT_REDIS_ADDR"
	envMongoURI  = "PIPSIGHT_MONGO_URI"
	envSitePkgs  = "PIPSIGHT_SITE_PACKAGES"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	jsonOut      bool
	verbose      bool
	noCache      bool
	cacheBackend string

	analyzerCache *project.Cache
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		analyzerCache: project.NewCache(),
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Pipsight inspects Python project dependencies and PyPI metadata",
		Long:         `Pipsight scans Python projects for dependency manifests, resolves package metadata from the local environment or PyPI, and checks version-constraint compatibility before you add a package.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.Logger.SetLevel(log.DebugLevel)
			}
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("%s %s\ncommit: %s\nbuilt: %s\n", appName, buildinfo.Version, buildinfo.Commit, buildinfo.Date))

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print machine-readable JSON")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable registry response caching")
	root.PersistentFlags().StringVar(&c.cacheBackend, "cache-backend", "file", "cache backend: file, redis, mongo, or none")

	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.latestCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

// newManager wires a package manager from the configured cache backend,
// index URL, and local site-packages roots. The returned closer releases
// the cache backend.
func (c *CLI) newManager(ctx context.Context) (*pkgmgr.Manager, func(), error) {
	backend, err := c.newCache(ctx)
	if err != nil {
		return nil, nil, err
	}

	client := pypi.NewClient(backend, defaultCacheTTL, nil)
	if u := os.Getenv(envIndexURL); u != "" {
		client.BaseURL = u
	}
	if u := os.Getenv(envSearchURL); u != "" {
		client.SearchURL = u
	}

	closer := func() {
		if err := backend.Close(); err != nil {
			c.Logger.Debug("closing cache backend", "err", err)
		}
	}
	return pkgmgr.New(client, c.newLocalSource()), closer, nil
}

// newAnalyzer returns a project analyzer sharing the CLI-wide cache so
// repeated commands in one process reuse results.
func (c *CLI) newAnalyzer() *project.Analyzer {
	return project.NewAnalyzer(c.analyzerCache)
}

func (c *CLI) newLocalSource() local.Source {
	roots := filepath.SplitList(os.Getenv(envSitePkgs))
	return local.NewEnvSource(roots...)
}

func (c *CLI) newCache(ctx context.Context) (cache.Cache, error) {
	if c.noCache || c.cacheBackend == "none" {
		return cache.NewNullCache(), nil
	}

	switch c.cacheBackend {
	case "file", "":
		dir, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	case "redis":
		addr := os.Getenv(envRedisAddr)
		if addr == "" {
			addr = "localhost:6379"
		}
		return cache.NewRedisCache(ctx, addr, appName+":")
	case "mongo":
		uri := os.Getenv(envMongoURI)
		if uri == "" {
			uri = "mongodb://localhost:27017"
		}
		return cache.NewMongoCache(ctx, uri, appName, "registry_cache")
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.cacheBackend)
	}
}

// cacheDir returns the cache directory using the XDG standard
// (~/.cache/pipsight/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
