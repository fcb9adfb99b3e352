package project

import (
	"sync"
	"time"

	"github.com/pipsight/pipsight/pkg/manifest"
)

// Entry is one cached analysis: the manifest files observed, their
// modification times, and the aggregated dependency list parsed from
// them. An entry is reusable only while the current scan finds exactly
// the same file set and every mtime still matches disk.
type Entry struct {
	Files        []string
	MTimes       map[string]time.Time
	Dependencies []manifest.Dependency
}

// Cache holds analysis results keyed by canonical project path. It has
// an explicit lifecycle: construct one, hand it to the analyzers that
// should share it. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewCache returns an empty analysis cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Get returns the entry for the canonical path, if present.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Put stores the entry for the canonical path, replacing any previous one.
func (c *Cache) Put(key string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// Invalidate drops the entry for the canonical path.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of cached projects.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
