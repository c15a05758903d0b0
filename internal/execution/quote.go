package execution

import (
	"context"
	"fmt"

	"github.com/mselser95/polkamarkets-trader/internal/txbuilder"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/shopspring/decimal"
)

// Quoter estimates how many shares a trade moves.
type Quoter interface {
	Quote(ctx context.Context, req types.QuoteRequest) (*types.Quote, error)
}

// ApplyQuotedThreshold sets SharesThreshold from a fresh quote with slippage
// applied. Callers only use it when the user gave no threshold; an explicit
// zero is a valid bound. The result is rounded to the token precision, down
// for a buy floor and up for a sell ceiling.
func ApplyQuotedThreshold(ctx context.Context, q Quoter, p *types.TradeParams, slippage decimal.Decimal) error {
	quote, err := q.Quote(ctx, types.QuoteRequest{
		MarketID:  p.MarketID,
		OutcomeID: p.OutcomeID,
		Action:    p.Action,
		Value:     p.Value,
	})
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}

	threshold, err := txbuilder.SharesThreshold(p.Action, quote.Shares, slippage)
	if err != nil {
		return fmt.Errorf("apply slippage: %w", err)
	}

	places := int32(p.TokenDecimals)
	if p.Action == types.ActionBuy {
		p.SharesThreshold = threshold.RoundFloor(places)
	} else {
		p.SharesThreshold = threshold.RoundCeil(places)
	}
	return nil
}
