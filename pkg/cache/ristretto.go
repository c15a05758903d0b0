package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/dgraph-io/ristretto/z"
	"go.uber.org/zap"
)

// RistrettoCache is a cache implementation using Ristretto. Ristretto cannot
// enumerate its keys, so the cache keeps its own key set for prefix deletes.
// Keys leave the set when Ristretto evicts, expires or rejects them.
type RistrettoCache struct {
	cache  *ristretto.Cache
	logger *zap.Logger

	mu     sync.Mutex
	keys   map[string]uint64
	byHash map[uint64]string
}

// RistrettoConfig holds configuration for Ristretto cache.
type RistrettoConfig struct {
	NumCounters int64 // Number of keys to track frequency (10x max items)
	MaxCost     int64 // Maximum number of items
	BufferItems int64 // Number of keys per Get buffer
	Logger      *zap.Logger
}

// NewRistrettoCache creates a new Ristretto-backed cache.
func NewRistrettoCache(cfg *RistrettoConfig) (*RistrettoCache, error) {
	rc := &RistrettoCache{
		logger: cfg.Logger,
		keys:   make(map[string]uint64),
		byHash: make(map[uint64]string),
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     true,
		// every item costs 1, so MaxCost is an item count
		IgnoreInternalCost: true,
		OnEvict: func(item *ristretto.Item) {
			CacheEvictionsTotal.Inc()
			rc.untrackHash(item.Key)
		},
		OnReject: func(item *ristretto.Item) {
			rc.untrackHash(item.Key)
		},
	})
	if err != nil {
		return nil, err
	}

	rc.cache = cache
	return rc, nil
}

func (r *RistrettoCache) track(key string) {
	hash, _ := z.KeyToHash(key)

	r.mu.Lock()
	r.keys[key] = hash
	r.byHash[hash] = key
	r.mu.Unlock()
}

func (r *RistrettoCache) untrack(key string) {
	r.mu.Lock()
	if hash, ok := r.keys[key]; ok {
		delete(r.byHash, hash)
		delete(r.keys, key)
	}
	r.mu.Unlock()
}

func (r *RistrettoCache) untrackHash(hash uint64) {
	r.mu.Lock()
	if key, ok := r.byHash[hash]; ok {
		delete(r.keys, key)
		delete(r.byHash, hash)
	}
	r.mu.Unlock()
}

// TrackedKeys returns the number of keys held for prefix deletes.
func (r *RistrettoCache) TrackedKeys() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

// Get retrieves a value from the cache.
func (r *RistrettoCache) Get(key string) (interface{}, bool) {
	start := time.Now()
	value, found := r.cache.Get(key)
	CacheOperationDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())

	if found {
		CacheHitsTotal.Inc()
		r.logger.Debug("cache-hit", zap.String("key", key))
	} else {
		CacheMissesTotal.Inc()
		r.logger.Debug("cache-miss", zap.String("key", key))
	}
	return value, found
}

// Set stores a value in the cache with a TTL.
func (r *RistrettoCache) Set(key string, value interface{}, ttl time.Duration) bool {
	start := time.Now()
	// tracked first: a rejection callback may run before SetWithTTL returns
	r.track(key)
	// Cost = 1 (we're counting items, not bytes)
	success := r.cache.SetWithTTL(key, value, 1, ttl)
	CacheOperationDuration.WithLabelValues("set").Observe(time.Since(start).Seconds())

	if !success {
		r.untrack(key)
		return false
	}

	CacheSetsTotal.Inc()
	r.logger.Debug("cache-set",
		zap.String("key", key),
		zap.Duration("ttl", ttl))
	return true
}

// Delete removes a value from the cache.
func (r *RistrettoCache) Delete(key string) {
	start := time.Now()
	r.cache.Del(key)
	CacheOperationDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())

	r.untrack(key)

	CacheDeletesTotal.Inc()
	r.logger.Debug("cache-delete", zap.String("key", key))
}

// DeletePrefix removes every tracked key that starts with prefix.
func (r *RistrettoCache) DeletePrefix(prefix string) int {
	r.mu.Lock()
	var matched []string
	for key, hash := range r.keys {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
			delete(r.keys, key)
			delete(r.byHash, hash)
		}
	}
	r.mu.Unlock()

	for _, key := range matched {
		r.cache.Del(key)
	}

	CacheDeletesTotal.Add(float64(len(matched)))
	r.logger.Debug("cache-delete-prefix",
		zap.String("prefix", prefix),
		zap.Int("keys", len(matched)))

	return len(matched)
}

// Clear removes all values from the cache.
func (r *RistrettoCache) Clear() {
	r.cache.Clear()

	r.mu.Lock()
	r.keys = make(map[string]uint64)
	r.byHash = make(map[uint64]string)
	r.mu.Unlock()

	r.logger.Info("cache-cleared")
}

// Close closes the cache and releases resources.
func (r *RistrettoCache) Close() {
	r.cache.Close()
	r.logger.Info("cache-closed")
}

// RecordHitRatio copies Ristretto's hit ratio into the gauge.
func (r *RistrettoCache) RecordHitRatio() {
	if r.cache.Metrics != nil {
		CacheHitRate.Set(r.cache.Metrics.Ratio())
	}
}

// RunStats records the hit ratio now and on every tick until ctx is done.
func (r *RistrettoCache) RunStats(ctx context.Context, interval time.Duration) error {
	r.RecordHitRatio()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.RecordHitRatio()
		}
	}
}

// Wait blocks until all pending writes have been applied.
func (r *RistrettoCache) Wait() {
	r.cache.Wait()
}
