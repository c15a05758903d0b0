package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// fakeChain answers ERC-20 reads and records sent transactions.
type fakeChain struct {
	mu sync.Mutex

	balances   map[common.Address]*big.Int
	allowance  *big.Int
	decimals   uint8
	native     *big.Int
	callErr    error
	nonce      uint64
	estimate   uint64
	estimateFn func(msg ethereum.CallMsg) (uint64, error)
	sendErrAt  int
	sent       []*ethtypes.Transaction
	receipts   map[common.Hash]*ethtypes.Receipt
	receiptErr error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balances:  make(map[common.Address]*big.Int),
		allowance: big.NewInt(0),
		decimals:  6,
		native:    big.NewInt(0),
		estimate:  50000,
		sendErrAt: -1,
		receipts:  make(map[common.Hash]*ethtypes.Receipt),
	}
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}

	method, err := erc20Read.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "balanceOf":
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		owner := args[0].(common.Address)
		balance, ok := f.balances[owner]
		if !ok {
			balance = big.NewInt(0)
		}
		return method.Outputs.Pack(balance)
	case "allowance":
		return method.Outputs.Pack(f.allowance)
	case "decimals":
		return method.Outputs.Pack(f.decimals)
	}

	return nil, errors.New("unexpected method " + method.Name)
}

func (f *fakeChain) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.native, nil
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeChain) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	if f.estimateFn != nil {
		return f.estimateFn(msg)
	}
	return f.estimate, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *ethtypes.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErrAt == len(f.sent) {
		return errors.New("nonce too low")
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeChain) mine(hash common.Hash, status uint64, block int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.receipts[hash] = &ethtypes.Receipt{
		TxHash:      hash,
		Status:      status,
		BlockNumber: big.NewInt(block),
		GasUsed:     42000,
	}
}
