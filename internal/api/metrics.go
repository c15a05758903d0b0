package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// RequestDurationSeconds tracks REST API latency per endpoint.
	RequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polkamarkets_api_request_duration_seconds",
		Help:    "Duration of REST API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// RequestErrorsTotal tracks failed REST API requests per endpoint.
	RequestErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polkamarkets_api_request_errors_total",
		Help: "Total number of failed REST API requests",
	}, []string{"endpoint"})

	// MarketsFetchedTotal tracks markets returned by list requests.
	MarketsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polkamarkets_api_markets_fetched_total",
		Help: "Total number of markets returned by the API",
	})
)
