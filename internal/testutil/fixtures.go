package testutil

import (
	"time"

	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/shopspring/decimal"
)

// TestTokenAddress is the collateral token used by fixtures.
const TestTokenAddress = "0x1111111111111111111111111111111111111111"

// CreateTestMarket creates an open binary market with Yes and No outcomes.
func CreateTestMarket(id uint64, slug string, title string) *types.Market {
	return &types.Market{
		ID:          id,
		Slug:        slug,
		Title:       title,
		Description: "Test market: " + title,
		Category:    "Test",
		State:       types.MarketStateOpen,
		NetworkID:   11124,
		ExpiresAt:   time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
		Liquidity:   decimal.NewFromInt(1000),
		Volume:      decimal.NewFromInt(2500),
		Outcomes: []types.Outcome{
			{ID: 0, MarketID: id, Title: "Yes", Price: decimal.RequireFromString("0.52"), Shares: decimal.NewFromInt(480)},
			{ID: 1, MarketID: id, Title: "No", Price: decimal.RequireFromString("0.48"), Shares: decimal.NewFromInt(520)},
		},
		Token: types.Token{
			Address:  TestTokenAddress,
			Symbol:   "USDC",
			Name:     "USD Coin",
			Decimals: 6,
		},
	}
}

// CreateResolvedMarket creates a resolved market won by winner.
func CreateResolvedMarket(id uint64, slug string, winner int64) *types.Market {
	m := CreateTestMarket(id, slug, "Resolved "+slug)
	m.State = types.MarketStateResolved
	m.ResolvedOutcomeID = &winner
	return m
}

// CreateTestPosition creates a position in an open market.
func CreateTestPosition(market *types.Market, outcomeID uint64, shares string) types.Position {
	qty := decimal.RequireFromString(shares)
	price := decimal.Zero
	if o := market.OutcomeByID(outcomeID); o != nil {
		price = o.Price
	}

	return types.Position{
		MarketID:   market.ID,
		MarketSlug: market.Slug,
		OutcomeID:  outcomeID,
		Shares:     qty,
		Price:      price,
		Value:      qty.Mul(price),
		Cost:       qty.Mul(price),
	}
}

// CreateTestPortfolio aggregates positions into a portfolio.
func CreateTestPortfolio(address string, positions ...types.Position) *types.Portfolio {
	p := &types.Portfolio{
		Address:   address,
		Positions: positions,
	}
	for _, pos := range positions {
		p.OpenValue = p.OpenValue.Add(pos.Value)
		p.TotalCost = p.TotalCost.Add(pos.Cost)
	}
	return p
}
