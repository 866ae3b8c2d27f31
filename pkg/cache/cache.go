// Package cache provides a generic, thread-safe cache used to hold
// per-collection registry state in the Annalist core.
//
// The cache has no eviction policy: registry entries are discarded only by
// explicit flush, which is the invalidation model of the data engine.
// Statistics are always collected; Prometheus export is optional via
// functional options.
package cache

import (
	"github.com/gklyne/annalist-sub001/errors"
)

// Cache is a generic thread-safe cache keyed by string, parameterized by
// value type V.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found,
	// zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry
	// was created, false if an existing entry was updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// GetOrCreate returns the value for key, calling create under the
	// cache's write lock to populate it on a miss. Only one caller
	// populates; concurrent readers wait.
	GetOrCreate(key string, create func() (V, error)) (V, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns a slice of all keys currently in the cache.
	Keys() []string

	// Stats returns the cache statistics tracker.
	Stats() *Statistics
}

// EvictCallback is called when an entry is removed from the cache,
// receiving the key and value of the removed entry.
type EvictCallback[V any] func(key string, value V)

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapValidation(errors.ErrInvalidID, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
