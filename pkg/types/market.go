package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market states reported by the API.
const (
	MarketStateOpen     = "open"
	MarketStateClosed   = "closed"
	MarketStateResolved = "resolved"
	MarketStateVoided   = "voided"
)

// Market is a prediction market as returned by the REST API.
// JSON tags are camelCase because responses are re-keyed before decoding.
type Market struct {
	ID                uint64          `json:"id"`
	Slug              string          `json:"slug"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	State             string          `json:"state"`
	NetworkID         uint64          `json:"networkId"`
	ExpiresAt         time.Time       `json:"expiresAt"`
	Liquidity         decimal.Decimal `json:"liquidity"`
	Volume            decimal.Decimal `json:"volume"`
	ResolvedOutcomeID *int64          `json:"resolvedOutcomeId,omitempty"`
	Outcomes          []Outcome       `json:"outcomes"`
	Token             Token           `json:"token"`
	Voided            bool            `json:"voided"`
}

// Outcome is one possible resolution of a market.
type Outcome struct {
	ID       uint64          `json:"id"`
	MarketID uint64          `json:"marketId"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Shares   decimal.Decimal `json:"shares"`
}

// Token is the ERC-20 collateral a market trades in.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// OutcomeByID returns the outcome with the given id, or nil.
func (m *Market) OutcomeByID(id uint64) *Outcome {
	for i := range m.Outcomes {
		if m.Outcomes[i].ID == id {
			return &m.Outcomes[i]
		}
	}
	return nil
}

// Tradeable reports whether buy and sell calls can still succeed.
func (m *Market) Tradeable() bool {
	return m.State == MarketStateOpen
}

// MarketFilter narrows a market listing.
type MarketFilter struct {
	State    string `json:"state,omitempty"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Position is a holding of one outcome.
type Position struct {
	MarketID              uint64          `json:"marketId"`
	MarketSlug            string          `json:"marketSlug"`
	OutcomeID             uint64          `json:"outcomeId"`
	Shares                decimal.Decimal `json:"shares"`
	Price                 decimal.Decimal `json:"price"`
	Value                 decimal.Decimal `json:"value"`
	Cost                  decimal.Decimal `json:"cost"`
	WinningsToClaim       bool            `json:"winningsToClaim"`
	WinningsClaimed       bool            `json:"winningsClaimed"`
	VoidedWinningsToClaim bool            `json:"voidedWinningsToClaim"`
}

// Claimable reports which claim, if any, this position can make.
func (p *Position) Claimable() (ClaimAction, bool) {
	switch {
	case p.WinningsToClaim && !p.WinningsClaimed:
		return ActionClaimWinnings, true
	case p.VoidedWinningsToClaim:
		return ActionClaimVoided, true
	default:
		return "", false
	}
}

// Portfolio aggregates a user's positions.
type Portfolio struct {
	Address     string          `json:"address"`
	OpenValue   decimal.Decimal `json:"openValue"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	ClaimValue  decimal.Decimal `json:"claimValue"`
	Positions   []Position      `json:"positions"`
	RefreshedAt time.Time       `json:"refreshedAt,omitempty"`
}

// UserEvent is one entry in a user's trading history.
type UserEvent struct {
	Action          string          `json:"action"`
	MarketID        uint64          `json:"marketId"`
	MarketSlug      string          `json:"marketSlug"`
	OutcomeID       uint64          `json:"outcomeId"`
	Shares          decimal.Decimal `json:"shares"`
	Value           decimal.Decimal `json:"value"`
	TransactionHash string          `json:"transactionHash"`
	Timestamp       time.Time       `json:"timestamp"`
}

// QuoteRequest asks the API what a trade would return.
type QuoteRequest struct {
	MarketID  uint64          `json:"marketId"`
	OutcomeID uint64          `json:"outcomeId"`
	Action    TradeAction     `json:"action"`
	Value     decimal.Decimal `json:"value"`
	NetworkID uint64          `json:"networkId"`
}

// Quote is the API's estimate for a trade.
type Quote struct {
	Shares       decimal.Decimal `json:"shares"`
	PriceFrom    decimal.Decimal `json:"priceFrom"`
	PriceTo      decimal.Decimal `json:"priceTo"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	Fee          decimal.Decimal `json:"fee"`
}
