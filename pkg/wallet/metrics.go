package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// NativeBalance tracks the gas token balance.
	NativeBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_wallet_native_balance",
		Help: "Current gas token balance in wallet (native units)",
	})

	// TokenBalance tracks the collateral token balance.
	TokenBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_wallet_token_balance",
		Help: "Current collateral token balance in wallet",
	})

	// TokenAllowance tracks the allowance granted to the prediction market.
	TokenAllowance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_wallet_token_allowance",
		Help: "Collateral allowance granted to the prediction market contract",
	})

	// ActivePositions tracks the number of open positions.
	ActivePositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_wallet_active_positions",
		Help: "Number of open positions",
	})

	// ClaimablePositions tracks positions with winnings or voided shares to claim.
	ClaimablePositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_wallet_claimable_positions",
		Help: "Number of positions with something to claim",
	})

	// OpenPositionValue tracks the portfolio's open value.
	OpenPositionValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_wallet_open_position_value",
		Help: "Current value of open positions",
	})

	// UpdateErrorsTotal tracks the number of failed update attempts.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polkamarkets_wallet_update_errors_total",
		Help: "Total number of failed wallet update attempts",
	})

	// UpdateDuration tracks the time taken to fetch wallet data.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polkamarkets_wallet_update_duration_seconds",
		Help:    "Time taken to fetch wallet data (seconds)",
		Buckets: prometheus.DefBuckets,
	})

	// LastUpdateTimestamp tracks the Unix timestamp of the last successful update.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polkamarkets_wallet_last_update_timestamp",
		Help: "Unix timestamp of last successful wallet update",
	})

	// BatchesSubmittedTotal tracks submitted batches by wallet mode.
	BatchesSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polkamarkets_wallet_batches_submitted_total",
		Help: "Total number of call batches submitted",
	}, []string{"mode"})

	// BatchSubmitErrorsTotal tracks failed submissions by wallet mode.
	BatchSubmitErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polkamarkets_wallet_batch_submit_errors_total",
		Help: "Total number of failed batch submissions",
	}, []string{"mode"})

	// StatusPollsTotal tracks bundle status results by normalized state.
	StatusPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polkamarkets_wallet_status_polls_total",
		Help: "Total number of bundle status reads by result",
	}, []string{"state"})
)
