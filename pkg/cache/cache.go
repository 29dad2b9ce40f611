// Package cache provides a small, generic, thread-safe LRU cache used to memoize
// compiled artifacts such as regular expressions and JSON schemas.
package cache

import (
	"github.com/c360/coredata/errors"
)

// Cache is a keyed store of compiled values.
type Cache[V any] interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (V, bool)

	// Set stores value under key. Returns true if a new entry was created.
	Set(key string, value V) (bool, error)

	// GetOrCompute returns the cached value for key, or calls compute, stores
	// its result and returns it. Errors from compute are not cached.
	GetOrCompute(key string, compute func() (V, error)) (V, error)

	Delete(key string) (bool, error)
	Clear()
	Size() int
	Stats() *Statistics
}

// NewLRU creates an LRU cache holding at most maxSize entries.
func NewLRU[V any](maxSize int) (Cache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "NewLRU", "max size must be positive")
	}
	return newLRUCache[V](maxSize), nil
}

func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
