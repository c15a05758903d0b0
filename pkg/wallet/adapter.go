// Package wallet submits contract call batches and reads token state on chain.
package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
)

// Adapter is the narrow wallet surface the execution tracker depends on.
type Adapter interface {
	// SubmitBatch sends the calls in order and returns an opaque bundle id.
	SubmitBatch(ctx context.Context, calls []types.Call) (string, error)

	// GetBundleStatus returns the current normalized status of a bundle.
	GetBundleStatus(ctx context.Context, bundleID string) (*types.BundleStatus, error)

	// ReadBalance returns the raw ERC-20 balance of owner.
	ReadBalance(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error)

	// Account is the address that signs submitted batches.
	Account() common.Address
}
