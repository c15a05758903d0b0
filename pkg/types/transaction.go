package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Call is one contract call inside a batch.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int // optional native amount
}

// CallJSON is the wire form of a Call used by the HTTP API and the build command.
type CallJSON struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value,omitempty"`
}

// JSON converts the call to its hex wire form.
func (c Call) JSON() CallJSON {
	out := CallJSON{
		To:   c.To.Hex(),
		Data: hexutil.Encode(c.Data),
	}
	if c.Value != nil {
		out.Value = hexutil.EncodeBig(c.Value)
	}
	return out
}

// BundleState is the normalized status of a submitted batch.
type BundleState string

const (
	BundlePending BundleState = "pending"
	BundleSuccess BundleState = "success"
	BundleFailure BundleState = "failure"
)

// Terminal reports whether no further transitions are expected.
func (s BundleState) Terminal() bool {
	return s == BundleSuccess || s == BundleFailure
}

// Receipt is the subset of a transaction receipt the client keeps.
type Receipt struct {
	TransactionHash common.Hash
	BlockNumber     uint64
	GasUsed         uint64
	Status          uint64 // 1 success, 0 reverted
}

// BundleStatus is the last polled snapshot of a bundle.
type BundleStatus struct {
	ID       string
	Status   BundleState
	Receipts []Receipt
}

// LastTxHash returns the hash of the final receipt, if any.
func (b *BundleStatus) LastTxHash() (common.Hash, bool) {
	if b == nil || len(b.Receipts) == 0 {
		return common.Hash{}, false
	}
	return b.Receipts[len(b.Receipts)-1].TransactionHash, true
}
