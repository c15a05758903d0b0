package cache

import "time"

// Cache is the read cache behind market and portfolio queries.
type Cache interface {
	// Get returns (value, true) if the key is present.
	Get(key string) (interface{}, bool)

	// Set stores a value with a TTL. It may return false if the entry was dropped.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a single key.
	Delete(key string)

	// DeletePrefix removes every key starting with prefix and returns how many
	// tracked keys were dropped.
	DeletePrefix(prefix string) int

	// Clear removes all values.
	Clear()

	// Close releases resources.
	Close()
}
