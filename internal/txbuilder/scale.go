package txbuilder

import (
	"fmt"
	"math/big"

	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/shopspring/decimal"
)

// ScaleAmount converts a human amount into the token's fixed-point integer
// representation: v * 10^decimals. Digits past the token precision are truncated.
func ScaleAmount(v decimal.Decimal, decimals uint8) (*big.Int, error) {
	if v.IsNegative() {
		return nil, fmt.Errorf("%w: %s", types.ErrNegativeAmount, v)
	}

	return v.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// scaleCeil is ScaleAmount rounding up. Used for upper bounds so that the
// encoded ceiling is never tighter than the requested one.
func scaleCeil(v decimal.Decimal, decimals uint8) (*big.Int, error) {
	if v.IsNegative() {
		return nil, fmt.Errorf("%w: %s", types.ErrNegativeAmount, v)
	}

	return v.Shift(int32(decimals)).Ceil().BigInt(), nil
}

// UnscaleAmount is the inverse of ScaleAmount.
func UnscaleAmount(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// SharesThreshold applies slippage to a quoted share amount. Buys get a floor
// of shares*(1-slippage), sells a ceiling of shares*(1+slippage).
func SharesThreshold(action types.TradeAction, shares, slippage decimal.Decimal) (decimal.Decimal, error) {
	if shares.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: shares %s", types.ErrNegativeAmount, shares)
	}

	if slippage.IsNegative() || slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("slippage must be in [0, 1), got %s", slippage)
	}

	one := decimal.NewFromInt(1)

	switch action {
	case types.ActionBuy:
		return shares.Mul(one.Sub(slippage)), nil
	case types.ActionSell:
		return shares.Mul(one.Add(slippage)), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", types.ErrUnknownAction, action)
	}
}
