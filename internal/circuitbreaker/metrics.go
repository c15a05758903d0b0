package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// CircuitBreakerEnabled indicates whether the circuit breaker allows buys.
	CircuitBreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_circuit_breaker_enabled",
		Help: "Whether the circuit breaker allows buys (1=enabled, 0=disabled)",
	})

	// CircuitBreakerBalance tracks the last checked collateral balance.
	CircuitBreakerBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_circuit_breaker_balance",
		Help: "Last checked collateral balance in the wallet",
	})

	// CircuitBreakerDisableThreshold tracks the current threshold for disabling execution.
	CircuitBreakerDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_circuit_breaker_disable_threshold",
		Help: "Current collateral balance threshold for disabling execution",
	})

	// CircuitBreakerEnableThreshold tracks the current threshold for re-enabling execution.
	CircuitBreakerEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_circuit_breaker_enable_threshold",
		Help: "Current collateral balance threshold for re-enabling execution",
	})

	// CircuitBreakerAvgTradeSize tracks the rolling average buy value.
	CircuitBreakerAvgTradeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_circuit_breaker_avg_buy_size",
		Help: "Rolling average of recent confirmed buy values",
	})

	// CircuitBreakerStateChanges tracks the number of times the circuit breaker changed state.
	CircuitBreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polkamarkets_circuit_breaker_state_changes_total",
		Help: "Total number of circuit breaker state changes",
	})

	// CircuitBreakerCheckDuration tracks the time taken to check balance.
	CircuitBreakerCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polkamarkets_circuit_breaker_check_duration_seconds",
		Help:    "Time taken to read the collateral balance",
		Buckets: prometheus.DefBuckets,
	})
)
