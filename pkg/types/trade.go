package types

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TradeAction is the direction of a trade.
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// ClaimAction selects which claim function is called.
type ClaimAction string

const (
	ActionClaimWinnings ClaimAction = "claim_winnings"
	ActionClaimVoided   ClaimAction = "claim_voided"
)

// TradeParams describes a single trade attempt in human units.
// SharesThreshold is the minimum shares received on a buy and the maximum
// shares given up on a sell.
type TradeParams struct {
	Action          TradeAction
	MarketID        uint64
	OutcomeID       uint64
	Value           decimal.Decimal
	SharesThreshold decimal.Decimal
	TokenAddress    common.Address
	TokenDecimals   uint8
	ReferralCode    string
}

// Validate rejects params that must never reach the network.
func (p *TradeParams) Validate() error {
	if p.Action != ActionBuy && p.Action != ActionSell {
		return &ValidationError{Field: "action", Err: fmt.Errorf("%w: %q", ErrUnknownAction, p.Action)}
	}

	if !p.Value.IsPositive() {
		return &ValidationError{Field: "value", Err: fmt.Errorf("%w: %s", ErrInvalidAmount, p.Value)}
	}

	if p.SharesThreshold.IsNegative() {
		return &ValidationError{Field: "sharesThreshold", Err: fmt.Errorf("%w: %s", ErrInvalidAmount, p.SharesThreshold)}
	}

	if !fitsDecimals(p.Value, p.TokenDecimals) {
		return &ValidationError{Field: "value", Err: fmt.Errorf("%w: %s has more than %d", ErrExcessPrecision, p.Value, p.TokenDecimals)}
	}

	if !fitsDecimals(p.SharesThreshold, p.TokenDecimals) {
		return &ValidationError{
			Field: "sharesThreshold",
			Err:   fmt.Errorf("%w: %s has more than %d", ErrExcessPrecision, p.SharesThreshold, p.TokenDecimals),
		}
	}

	if p.Action == ActionBuy && p.TokenAddress == (common.Address{}) {
		return &ValidationError{Field: "tokenAddress", Err: ErrMissingAddress}
	}

	return nil
}

// fitsDecimals reports whether v is exactly representable with the token's
// precision. A positive value that fits scales to at least one base unit.
func fitsDecimals(v decimal.Decimal, decimals uint8) bool {
	return v.Equal(v.Truncate(int32(decimals)))
}

// ClaimParams describes a claim attempt. OutcomeID is only read for voided claims.
type ClaimParams struct {
	Action    ClaimAction
	MarketID  uint64
	OutcomeID *uint64
}

// Validate rejects malformed claims.
func (p *ClaimParams) Validate() error {
	switch p.Action {
	case ActionClaimWinnings:
		return nil
	case ActionClaimVoided:
		if p.OutcomeID == nil {
			return &ValidationError{Field: "outcomeId", Err: ErrMissingOutcome}
		}
		return nil
	default:
		return &ValidationError{Field: "action", Err: fmt.Errorf("%w: %q", ErrUnknownAction, p.Action)}
	}
}

// AttemptRecord is the terminal summary of one trade or claim attempt.
type AttemptRecord struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"` // buy, sell, claim_winnings, claim_voided
	MarketID    uint64          `json:"marketId"`
	OutcomeID   *uint64         `json:"outcomeId,omitempty"`
	Value       decimal.Decimal `json:"value"`
	Account     common.Address  `json:"account"`
	BundleID    string          `json:"bundleId,omitempty"`
	TxHash      string          `json:"txHash,omitempty"`
	State       string          `json:"state"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt time.Time       `json:"completedAt,omitempty"`
}

// Duration returns the wall time between submission and the terminal state.
func (r *AttemptRecord) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
