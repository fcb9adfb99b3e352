// Package cache provides a byte-oriented cache with pluggable backends.
//
// Registry clients store serialized HTTP responses here so repeated tool
// calls do not hammer the package index. Four backends are available:
//
//   - FileCache: JSON files under a directory (default for the CLI)
//   - RedisCache: shared cache for multi-process deployments
//   - MongoCache: shared cache backed by a MongoDB collection
//   - NullCache: disables caching entirely
//
// All backends are safe for concurrent use.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
