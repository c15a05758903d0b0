package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PortfolioSource supplies the positions reported alongside balances.
type PortfolioSource interface {
	GetPortfolio(ctx context.Context, address string) (*types.Portfolio, error)
}

// Balances holds on-chain balances in raw units.
type Balances struct {
	Native    *big.Int // wei
	Token     *big.Int
	Allowance *big.Int // granted to the prediction market
}

// Tracker periodically reads wallet balances and updates Prometheus gauges.
type Tracker struct {
	reader        *Reader
	portfolio     PortfolioSource
	address       common.Address
	token         common.Address
	spender       common.Address
	tokenDecimals uint8
	pollInterval  time.Duration
	logger        *zap.Logger
}

// Config holds tracker configuration.
type Config struct {
	Reader        *Reader
	Portfolio     PortfolioSource // optional
	Address       common.Address
	Token         common.Address
	Spender       common.Address
	TokenDecimals uint8
	PollInterval  time.Duration
	Logger        *zap.Logger
}

// New creates a new wallet tracker.
func New(cfg *Config) (t *Tracker, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Reader == nil {
		return nil, errors.New("reader cannot be nil")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	tracker := &Tracker{
		reader:        cfg.Reader,
		portfolio:     cfg.Portfolio,
		address:       cfg.Address,
		token:         cfg.Token,
		spender:       cfg.Spender,
		tokenDecimals: cfg.TokenDecimals,
		pollInterval:  cfg.PollInterval,
		logger:        cfg.Logger,
	}

	return tracker, nil
}

// Run starts the tracker polling loop (blocking).
func (t *Tracker) Run(ctx context.Context) (err error) {
	t.logger.Info("wallet-tracker-starting",
		zap.Duration("poll-interval", t.pollInterval),
		zap.String("address", t.address.Hex()))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	pollErr := t.poll(ctx)
	if pollErr != nil {
		t.logger.Error("initial-poll-failed", zap.Error(pollErr))
		UpdateErrorsTotal.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("wallet-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			pollErr = t.poll(ctx)
			if pollErr != nil {
				t.logger.Error("poll-failed", zap.Error(pollErr))
				UpdateErrorsTotal.Inc()
			}
		}
	}
}

// Balances reads native, token and allowance balances once.
func (t *Tracker) Balances(ctx context.Context) (*Balances, error) {
	native, err := t.reader.NativeBalance(ctx, t.address)
	if err != nil {
		return nil, err
	}

	token, err := t.reader.BalanceOf(ctx, t.token, t.address)
	if err != nil {
		return nil, err
	}

	allowance, err := t.reader.Allowance(ctx, t.token, t.address, t.spender)
	if err != nil {
		return nil, err
	}

	return &Balances{Native: native, Token: token, Allowance: allowance}, nil
}

func (t *Tracker) poll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	balCtx, balCancel := context.WithTimeout(ctx, 15*time.Second)
	defer balCancel()

	balances, err := t.Balances(balCtx)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	var portfolio *types.Portfolio
	if t.portfolio != nil {
		posCtx, posCancel := context.WithTimeout(ctx, 15*time.Second)
		defer posCancel()

		portfolio, err = t.portfolio.GetPortfolio(posCtx, t.address.Hex())
		if err != nil {
			return fmt.Errorf("get portfolio: %w", err)
		}
	}

	t.updateMetrics(balances, portfolio)
	LastUpdateTimestamp.Set(float64(time.Now().Unix()))

	t.logger.Debug("poll-complete",
		zap.String("token-balance", balances.Token.String()),
		zap.Duration("duration", time.Since(start)))

	return nil
}

func (t *Tracker) updateMetrics(balances *Balances, portfolio *types.Portfolio) {
	NativeBalance.Set(toFloat(balances.Native, 18))
	TokenBalance.Set(toFloat(balances.Token, t.tokenDecimals))
	TokenAllowance.Set(toFloat(balances.Allowance, t.tokenDecimals))

	if portfolio == nil {
		return
	}

	claimable := 0
	for i := range portfolio.Positions {
		if _, ok := portfolio.Positions[i].Claimable(); ok {
			claimable++
		}
	}

	ActivePositions.Set(float64(len(portfolio.Positions)))
	ClaimablePositions.Set(float64(claimable))
	OpenPositionValue.Set(portfolio.OpenValue.InexactFloat64())
}

func toFloat(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).InexactFloat64()
}
