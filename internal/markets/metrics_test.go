package markets

import (
	"testing"
)

// TestMetrics_Registration tests all metrics are initialized
func TestMetrics_Registration(t *testing.T) {
	if FetchDurationSeconds == nil {
		t.Error("FetchDurationSeconds not registered")
	}

	if FetchErrorsTotal == nil {
		t.Error("FetchErrorsTotal not registered")
	}

	if ReadCacheHitsTotal == nil {
		t.Error("ReadCacheHitsTotal not registered")
	}

	if ReadCacheMissesTotal == nil {
		t.Error("ReadCacheMissesTotal not registered")
	}

	if InvalidationsTotal == nil {
		t.Error("InvalidationsTotal not registered")
	}
}

// TestMetrics_Labels tests label values are accepted
func TestMetrics_Labels(t *testing.T) {
	for _, resource := range []string{"markets", "market", "portfolio", "events", "quote"} {
		FetchErrorsTotal.WithLabelValues(resource).Inc()
		FetchDurationSeconds.WithLabelValues(resource).Observe(0.05)
	}

	InvalidationsTotal.WithLabelValues("markets").Inc()
	InvalidationsTotal.WithLabelValues("account").Inc()
}
