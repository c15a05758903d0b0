package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// AttemptsTotal tracks finished attempts by kind and terminal state.
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polkamarkets_execution_attempts_total",
			Help: "Total number of trade and claim attempts by result",
		},
		[]string{"kind", "state"},
	)

	// AttemptsRejectedTotal tracks attempts refused before submission.
	AttemptsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polkamarkets_execution_attempts_rejected_total",
			Help: "Total number of attempts rejected before reaching the wallet",
		},
		[]string{"reason"},
	)

	// AttemptDurationSeconds tracks time from start to terminal state.
	AttemptDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polkamarkets_execution_attempt_duration_seconds",
		Help:    "Duration from attempt start to terminal state",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"kind"})

	// BundlePollsTotal tracks bundle status polls.
	BundlePollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polkamarkets_execution_bundle_polls_total",
		Help: "Total number of bundle status polls",
	})

	// BundlePollErrorsTotal tracks polls that failed and were retried on the next tick.
	BundlePollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polkamarkets_execution_bundle_poll_errors_total",
		Help: "Total number of failed bundle status polls",
	})

	// AttemptsInFlight is 1 while an attempt is between start and reset.
	AttemptsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_execution_attempts_in_flight",
		Help: "Number of attempts not yet reset to idle",
	})
)
