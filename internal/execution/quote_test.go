package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyQuotedThreshold(t *testing.T) {
	slippage := decimal.RequireFromString("0.02")

	t.Run("buy-floor", func(t *testing.T) {
		q := &fakeQuoter{quote: &types.Quote{Shares: decimal.NewFromInt(100)}}
		p := buyParams()
		p.SharesThreshold = decimal.Zero

		require.NoError(t, ApplyQuotedThreshold(context.Background(), q, &p, slippage))
		assert.True(t, p.SharesThreshold.Equal(decimal.NewFromInt(98)), p.SharesThreshold.String())
		require.Len(t, q.reqs, 1)
		assert.Equal(t, uint64(7), q.reqs[0].MarketID)
		assert.Equal(t, types.ActionBuy, q.reqs[0].Action)
	})

	t.Run("sell-ceiling", func(t *testing.T) {
		q := &fakeQuoter{quote: &types.Quote{Shares: decimal.NewFromInt(100)}}
		p := buyParams()
		p.Action = types.ActionSell
		p.SharesThreshold = decimal.Zero

		require.NoError(t, ApplyQuotedThreshold(context.Background(), q, &p, slippage))
		assert.True(t, p.SharesThreshold.Equal(decimal.NewFromInt(102)), p.SharesThreshold.String())
	})

	t.Run("rounded-to-token-precision", func(t *testing.T) {
		shares := decimal.RequireFromString("10.33333333")

		q := &fakeQuoter{quote: &types.Quote{Shares: shares}}
		p := buyParams()
		require.NoError(t, ApplyQuotedThreshold(context.Background(), q, &p, slippage))
		// 10.33333333 * 0.98 = 10.1266666634
		assert.True(t, p.SharesThreshold.Equal(decimal.RequireFromString("10.126666")), p.SharesThreshold.String())
		require.NoError(t, p.Validate())

		q = &fakeQuoter{quote: &types.Quote{Shares: shares}}
		p = buyParams()
		p.Action = types.ActionSell
		require.NoError(t, ApplyQuotedThreshold(context.Background(), q, &p, slippage))
		// 10.33333333 * 1.02 = 10.5399999966
		assert.True(t, p.SharesThreshold.Equal(decimal.RequireFromString("10.54")), p.SharesThreshold.String())
		require.NoError(t, p.Validate())
	})

	t.Run("quote-error", func(t *testing.T) {
		q := &fakeQuoter{err: errors.New("boom")}
		p := buyParams()
		p.SharesThreshold = decimal.Zero

		err := ApplyQuotedThreshold(context.Background(), q, &p, slippage)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quote")
	})
}
