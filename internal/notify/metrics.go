package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// NotificationsTotal tracks notifications added to the feed by level.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polkamarkets_notifications_total",
			Help: "Total number of user notifications by level",
		},
		[]string{"level"},
	)
)
