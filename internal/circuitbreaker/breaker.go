// Package circuitbreaker pauses buys when the collateral balance runs low.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const tradeWindow = 20

// BalanceReader reads an ERC20 balance.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error)
}

// BalanceCircuitBreaker watches the account's collateral balance and disables
// buys when it drops below a threshold derived from recent buy sizes.
// Re-enabling requires the balance to clear a higher threshold.
type BalanceCircuitBreaker struct {
	enabled atomic.Bool

	checkInterval   time.Duration
	reader          BalanceReader
	token           common.Address
	decimals        int32
	account         common.Address
	logger          *zap.Logger
	tradeMultiplier decimal.Decimal
	minAbsolute     decimal.Decimal
	hysteresisRatio decimal.Decimal

	mu               sync.RWMutex
	lastBalance      decimal.Decimal
	lastCheck        time.Time
	recentTrades     []decimal.Decimal
	disableThreshold decimal.Decimal
	enableThreshold  decimal.Decimal
}

// Config holds circuit breaker configuration.
type Config struct {
	CheckInterval   time.Duration
	TradeMultiplier decimal.Decimal
	MinAbsolute     decimal.Decimal
	HysteresisRatio decimal.Decimal
	Reader          BalanceReader
	Token           common.Address
	TokenDecimals   uint8
	Account         common.Address
	Logger          *zap.Logger
}

// Status is a point-in-time view of the breaker.
type Status struct {
	Enabled          bool            `json:"enabled"`
	LastBalance      decimal.Decimal `json:"lastBalance"`
	LastCheck        time.Time       `json:"lastCheck"`
	DisableThreshold decimal.Decimal `json:"disableThreshold"`
	EnableThreshold  decimal.Decimal `json:"enableThreshold"`
	AvgTradeSize     decimal.Decimal `json:"avgTradeSize"`
	RecentTradeCount int             `json:"recentTradeCount"`
}

// New creates a circuit breaker. It starts enabled.
func New(cfg *Config) (*BalanceCircuitBreaker, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Reader == nil {
		return nil, errors.New("balance reader cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, errors.New("check interval must be positive")
	}
	if !cfg.TradeMultiplier.IsPositive() {
		return nil, errors.New("trade multiplier must be positive")
	}
	if !cfg.MinAbsolute.IsPositive() {
		return nil, errors.New("min absolute must be positive")
	}
	if cfg.HysteresisRatio.LessThan(decimal.NewFromInt(1)) {
		return nil, errors.New("hysteresis ratio must be >= 1.0")
	}

	b := &BalanceCircuitBreaker{
		checkInterval:    cfg.CheckInterval,
		reader:           cfg.Reader,
		token:            cfg.Token,
		decimals:         int32(cfg.TokenDecimals),
		account:          cfg.Account,
		logger:           cfg.Logger,
		tradeMultiplier:  cfg.TradeMultiplier,
		minAbsolute:      cfg.MinAbsolute,
		hysteresisRatio:  cfg.HysteresisRatio,
		recentTrades:     make([]decimal.Decimal, 0, tradeWindow),
		disableThreshold: cfg.MinAbsolute,
		enableThreshold:  cfg.MinAbsolute.Mul(cfg.HysteresisRatio),
	}
	b.enabled.Store(true)

	CircuitBreakerEnabled.Set(1)
	CircuitBreakerDisableThreshold.Set(b.disableThreshold.InexactFloat64())
	CircuitBreakerEnableThreshold.Set(b.enableThreshold.InexactFloat64())
	CircuitBreakerAvgTradeSize.Set(0)

	return b, nil
}

// IsEnabled reports whether buys may be submitted.
func (b *BalanceCircuitBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// RecordTrade adds a confirmed buy to the rolling window and recalculates
// thresholds.
func (b *BalanceCircuitBreaker) RecordTrade(value decimal.Decimal) {
	if !value.IsPositive() {
		b.logger.Warn("invalid-trade-size", zap.String("value", value.String()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.recentTrades = append(b.recentTrades, value)
	if len(b.recentTrades) > tradeWindow {
		b.recentTrades = b.recentTrades[1:]
	}

	avg := b.averageLocked()
	b.disableThreshold = decimal.Max(avg.Mul(b.tradeMultiplier), b.minAbsolute)
	b.enableThreshold = b.disableThreshold.Mul(b.hysteresisRatio)

	CircuitBreakerAvgTradeSize.Set(avg.InexactFloat64())
	CircuitBreakerDisableThreshold.Set(b.disableThreshold.InexactFloat64())
	CircuitBreakerEnableThreshold.Set(b.enableThreshold.InexactFloat64())

	b.logger.Debug("thresholds-updated",
		zap.String("avg-trade-size", avg.String()),
		zap.Int("trade-count", len(b.recentTrades)),
		zap.String("disable-threshold", b.disableThreshold.String()),
		zap.String("enable-threshold", b.enableThreshold.String()))
}

// CheckBalance reads the balance and flips the enabled state when a threshold
// is crossed.
func (b *BalanceCircuitBreaker) CheckBalance(ctx context.Context) error {
	start := time.Now()
	defer func() {
		CircuitBreakerCheckDuration.Observe(time.Since(start).Seconds())
	}()

	raw, err := b.reader.BalanceOf(ctx, b.token, b.account)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	balance := decimal.NewFromBigInt(raw, -b.decimals)

	b.mu.Lock()
	b.lastBalance = balance
	b.lastCheck = time.Now()
	disableThreshold := b.disableThreshold
	enableThreshold := b.enableThreshold
	b.mu.Unlock()

	CircuitBreakerBalance.Set(balance.InexactFloat64())

	enabled := b.enabled.Load()
	switch {
	case enabled && balance.LessThan(disableThreshold):
		b.enabled.Store(false)
		CircuitBreakerEnabled.Set(0)
		CircuitBreakerStateChanges.Inc()
		b.logger.Warn("circuit-breaker-disabled",
			zap.String("balance", balance.String()),
			zap.String("disable-threshold", disableThreshold.String()),
			zap.String("enable-threshold", enableThreshold.String()))
	case !enabled && balance.GreaterThanOrEqual(enableThreshold):
		b.enabled.Store(true)
		CircuitBreakerEnabled.Set(1)
		CircuitBreakerStateChanges.Inc()
		b.logger.Info("circuit-breaker-enabled",
			zap.String("balance", balance.String()),
			zap.String("disable-threshold", disableThreshold.String()),
			zap.String("enable-threshold", enableThreshold.String()))
	default:
		b.logger.Debug("balance-checked",
			zap.String("balance", balance.String()),
			zap.Bool("enabled", enabled))
	}

	return nil
}

// Run checks the balance immediately and then on every interval until ctx is
// cancelled.
func (b *BalanceCircuitBreaker) Run(ctx context.Context) error {
	b.logger.Info("circuit-breaker-started",
		zap.Duration("check-interval", b.checkInterval),
		zap.String("account", b.account.Hex()),
		zap.String("min-absolute", b.minAbsolute.String()))

	err := b.CheckBalance(ctx)
	if err != nil {
		b.logger.Error("initial-balance-check-failed", zap.Error(err))
	}

	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("circuit-breaker-stopped")
			return ctx.Err()
		case <-ticker.C:
			err = b.CheckBalance(ctx)
			if err != nil {
				b.logger.Error("balance-check-error", zap.Error(err))
			}
		}
	}
}

// Status returns the current breaker state.
func (b *BalanceCircuitBreaker) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Status{
		Enabled:          b.enabled.Load(),
		LastBalance:      b.lastBalance,
		LastCheck:        b.lastCheck,
		DisableThreshold: b.disableThreshold,
		EnableThreshold:  b.enableThreshold,
		AvgTradeSize:     b.averageLocked(),
		RecentTradeCount: len(b.recentTrades),
	}
}

func (b *BalanceCircuitBreaker) averageLocked() decimal.Decimal {
	if len(b.recentTrades) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(b.recentTrades[0], b.recentTrades[1:]...).
		Div(decimal.NewFromInt(int64(len(b.recentTrades))))
}
