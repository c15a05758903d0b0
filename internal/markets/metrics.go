package markets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// FetchDurationSeconds tracks upstream read latency by resource.
	FetchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polkamarkets_markets_fetch_duration_seconds",
		Help:    "Duration of upstream reads on a cache miss",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource"})

	// FetchErrorsTotal tracks failed upstream reads by resource.
	FetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polkamarkets_markets_fetch_errors_total",
		Help: "Total number of failed upstream reads",
	}, []string{"resource"})

	// ReadCacheHitsTotal tracks reads served from the cache.
	ReadCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polkamarkets_markets_cache_hits_total",
		Help: "Total number of reads served from cache",
	})

	// ReadCacheMissesTotal tracks reads that went upstream.
	ReadCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polkamarkets_markets_cache_misses_total",
		Help: "Total number of reads that missed the cache",
	})

	// InvalidationsTotal tracks cache invalidations by scope.
	InvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polkamarkets_markets_invalidations_total",
		Help: "Total number of cache invalidations",
	}, []string{"scope"})
)
