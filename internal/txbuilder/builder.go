// Package txbuilder turns trade and claim intents into ordered contract call
// batches. Every function is pure: no I/O, no state.
package txbuilder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/shopspring/decimal"
)

// Contracts holds the per-network addresses the builder targets.
type Contracts struct {
	PredictionMarket common.Address
}

// BuyParams are the inputs of BuildBuyTransaction.
type BuyParams struct {
	MarketID         uint64
	OutcomeID        uint64
	Value            decimal.Decimal // collateral to spend
	MinShares        decimal.Decimal // slippage floor
	TokenAddress     common.Address
	TokenDecimals    uint8
	PredictionMarket common.Address
	ReferralCode     string
}

// SellParams are the inputs of BuildSellTransaction.
type SellParams struct {
	MarketID         uint64
	OutcomeID        uint64
	Value            decimal.Decimal // collateral to receive
	MaxShares        decimal.Decimal // slippage ceiling
	TokenDecimals    uint8
	PredictionMarket common.Address
	ReferralCode     string
}

// BuildBuyTransaction returns [approve, referralBuy]. The approval must come
// first: referralBuy reads the allowance it sets within the same batch.
func BuildBuyTransaction(p BuyParams) ([]types.Call, error) {
	value, err := ScaleAmount(p.Value, p.TokenDecimals)
	if err != nil {
		return nil, &types.ValidationError{Field: "value", Err: err}
	}

	minShares, err := ScaleAmount(p.MinShares, p.TokenDecimals)
	if err != nil {
		return nil, &types.ValidationError{Field: "minShares", Err: err}
	}

	approveData, err := erc20ABI.Pack("approve", p.PredictionMarket, value)
	if err != nil {
		return nil, fmt.Errorf("pack approve call: %w", err)
	}

	buyData, err := pmABI.Pack("referralBuy",
		new(big.Int).SetUint64(p.MarketID),
		new(big.Int).SetUint64(p.OutcomeID),
		minShares,
		value,
		p.ReferralCode,
	)
	if err != nil {
		return nil, fmt.Errorf("pack referralBuy call: %w", err)
	}

	return []types.Call{
		{To: p.TokenAddress, Data: approveData},
		{To: p.PredictionMarket, Data: buyData},
	}, nil
}

// BuildSellTransaction returns [referralSell]. Selling owned shares needs no
// ERC-20 allowance.
func BuildSellTransaction(p SellParams) ([]types.Call, error) {
	value, err := ScaleAmount(p.Value, p.TokenDecimals)
	if err != nil {
		return nil, &types.ValidationError{Field: "value", Err: err}
	}

	maxShares, err := scaleCeil(p.MaxShares, p.TokenDecimals)
	if err != nil {
		return nil, &types.ValidationError{Field: "maxShares", Err: err}
	}

	sellData, err := pmABI.Pack("referralSell",
		new(big.Int).SetUint64(p.MarketID),
		new(big.Int).SetUint64(p.OutcomeID),
		value,
		maxShares,
		p.ReferralCode,
	)
	if err != nil {
		return nil, fmt.Errorf("pack referralSell call: %w", err)
	}

	return []types.Call{{To: p.PredictionMarket, Data: sellData}}, nil
}

// BuildTradeTransaction validates p and dispatches on p.Action. Unlike the
// per-action builders it rejects amounts that would not scale exactly.
func BuildTradeTransaction(p types.TradeParams, c Contracts) ([]types.Call, error) {
	err := p.Validate()
	if err != nil {
		return nil, err
	}

	switch p.Action {
	case types.ActionBuy:
		return BuildBuyTransaction(BuyParams{
			MarketID:         p.MarketID,
			OutcomeID:        p.OutcomeID,
			Value:            p.Value,
			MinShares:        p.SharesThreshold,
			TokenAddress:     p.TokenAddress,
			TokenDecimals:    p.TokenDecimals,
			PredictionMarket: c.PredictionMarket,
			ReferralCode:     p.ReferralCode,
		})
	case types.ActionSell:
		return BuildSellTransaction(SellParams{
			MarketID:         p.MarketID,
			OutcomeID:        p.OutcomeID,
			Value:            p.Value,
			MaxShares:        p.SharesThreshold,
			TokenDecimals:    p.TokenDecimals,
			PredictionMarket: c.PredictionMarket,
			ReferralCode:     p.ReferralCode,
		})
	default:
		return nil, &types.ValidationError{
			Field: "action",
			Err:   fmt.Errorf("%w: %q", types.ErrUnknownAction, p.Action),
		}
	}
}

// BuildClaimWinningsTransaction returns [claimWinnings(marketId)].
func BuildClaimWinningsTransaction(marketID uint64, contract common.Address) ([]types.Call, error) {
	data, err := pmABI.Pack("claimWinnings", new(big.Int).SetUint64(marketID))
	if err != nil {
		return nil, fmt.Errorf("pack claimWinnings call: %w", err)
	}

	return []types.Call{{To: contract, Data: data}}, nil
}

// BuildClaimVoidedTransaction returns [claimVoidedOutcomeShares(marketId, outcomeId)].
func BuildClaimVoidedTransaction(marketID, outcomeID uint64, contract common.Address) ([]types.Call, error) {
	data, err := pmABI.Pack("claimVoidedOutcomeShares",
		new(big.Int).SetUint64(marketID),
		new(big.Int).SetUint64(outcomeID),
	)
	if err != nil {
		return nil, fmt.Errorf("pack claimVoidedOutcomeShares call: %w", err)
	}

	return []types.Call{{To: contract, Data: data}}, nil
}

// BuildClaimTransaction dispatches on p.Action.
func BuildClaimTransaction(p types.ClaimParams, c Contracts) ([]types.Call, error) {
	err := p.Validate()
	if err != nil {
		return nil, err
	}

	if p.Action == types.ActionClaimVoided {
		return BuildClaimVoidedTransaction(p.MarketID, *p.OutcomeID, c.PredictionMarket)
	}

	return BuildClaimWinningsTransaction(p.MarketID, c.PredictionMarket)
}
