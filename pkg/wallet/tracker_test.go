package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePortfolio struct {
	portfolio *types.Portfolio
	err       error
}

func (f *fakePortfolio) GetPortfolio(context.Context, string) (*types.Portfolio, error) {
	return f.portfolio, f.err
}

func newTestReader(t *testing.T, chain *fakeChain) *Reader {
	t.Helper()
	r, err := NewReader(chain, zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	reader := newTestReader(t, newFakeChain())
	address := common.HexToAddress("0x1234567890123456789012345678901234567890")

	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "valid_config",
			cfg: &Config{
				Reader:       reader,
				Address:      address,
				PollInterval: 1 * time.Minute,
				Logger:       logger,
			},
			wantErr: false,
		},
		{
			name:    "nil_config",
			cfg:     nil,
			wantErr: true,
		},
		{
			name: "nil_logger",
			cfg: &Config{
				Reader:       reader,
				Address:      address,
				PollInterval: 1 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "nil_reader",
			cfg: &Config{
				Address:      address,
				PollInterval: 1 * time.Minute,
				Logger:       logger,
			},
			wantErr: true,
		},
		{
			name: "zero_poll_interval",
			cfg: &Config{
				Reader:  reader,
				Address: address,
				Logger:  logger,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && tracker.pollInterval != tt.cfg.PollInterval {
				t.Errorf("New() pollInterval = %v, want %v", tracker.pollInterval, tt.cfg.PollInterval)
			}
		})
	}
}

func TestTracker_Run_ContextCancellation(t *testing.T) {
	tracker, err := New(&Config{
		Reader:       newTestReader(t, newFakeChain()),
		PollInterval: 50 * time.Millisecond,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err = tracker.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTracker_Poll_UpdatesGauges(t *testing.T) {
	chain := newFakeChain()
	owner := common.HexToAddress("0x1234567890123456789012345678901234567890")
	chain.balances[owner] = big.NewInt(12_500_000)
	chain.allowance = big.NewInt(1_000_000)
	chain.native = big.NewInt(2e18)

	tracker, err := New(&Config{
		Reader: newTestReader(t, chain),
		Portfolio: &fakePortfolio{portfolio: &types.Portfolio{
			OpenValue: decimal.RequireFromString("33.5"),
			Positions: []types.Position{
				{MarketID: 1, WinningsToClaim: true},
				{MarketID: 2},
				{MarketID: 3, VoidedWinningsToClaim: true},
			},
		}},
		Address:       owner,
		TokenDecimals: 6,
		PollInterval:  time.Minute,
		Logger:        zap.NewNop(),
	})
	require.NoError(t, err)

	require.NoError(t, tracker.poll(context.Background()))

	assert.InDelta(t, 12.5, testutil.ToFloat64(TokenBalance), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(TokenAllowance), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(NativeBalance), 1e-9)
	assert.Equal(t, 3.0, testutil.ToFloat64(ActivePositions))
	assert.Equal(t, 2.0, testutil.ToFloat64(ClaimablePositions))
	assert.InDelta(t, 33.5, testutil.ToFloat64(OpenPositionValue), 1e-9)
}

func TestTracker_Poll_PortfolioError(t *testing.T) {
	tracker, err := New(&Config{
		Reader:       newTestReader(t, newFakeChain()),
		Portfolio:    &fakePortfolio{err: errors.New("api down")},
		PollInterval: time.Minute,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)

	err = tracker.poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get portfolio")
}

func TestToFloat(t *testing.T) {
	assert.Equal(t, 0.0, toFloat(nil, 6))
	assert.InDelta(t, 1.5, toFloat(big.NewInt(1_500_000), 6), 1e-12)
	assert.InDelta(t, 0.25, toFloat(big.NewInt(25e16), 18), 1e-12)
}
