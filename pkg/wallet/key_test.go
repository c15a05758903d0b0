package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testChainID = 11124

func newKeyWallet(t *testing.T, chain *fakeChain) (*KeyWallet, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	w, err := NewKeyWallet(&KeyConfig{
		Backend:     chain,
		PrivateKey:  hexutil.Encode(crypto.FromECDSA(key)),
		ChainID:     testChainID,
		FallbackGas: 300000,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)

	return w, key
}

func twoCalls() []types.Call {
	return []types.Call{
		{To: common.HexToAddress("0x1111111111111111111111111111111111111111"), Data: []byte{0x09, 0x5e, 0xa7, 0xb3}},
		{To: common.HexToAddress("0x2222222222222222222222222222222222222222"), Data: []byte{0x01, 0x02}},
	}
}

func TestNewKeyWallet_Validation(t *testing.T) {
	_, err := NewKeyWallet(nil)
	assert.Error(t, err)

	_, err = NewKeyWallet(&KeyConfig{Backend: newFakeChain(), PrivateKey: "not-hex", Logger: zap.NewNop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse private key")
}

func TestKeyWallet_Account(t *testing.T) {
	w, key := newKeyWallet(t, newFakeChain())
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), w.Account())
}

func TestKeyWallet_SubmitBatch_SendsInOrder(t *testing.T) {
	chain := newFakeChain()
	chain.nonce = 9
	w, _ := newKeyWallet(t, chain)

	id, err := w.SubmitBatch(context.Background(), twoCalls())
	require.NoError(t, err)
	require.Len(t, chain.sent, 2)

	signer := ethtypes.NewEIP155Signer(big.NewInt(testChainID))
	for i, tx := range chain.sent {
		assert.Equal(t, uint64(9+i), tx.Nonce())

		from, err := ethtypes.Sender(signer, tx)
		require.NoError(t, err)
		assert.Equal(t, w.Account(), from)
	}

	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), *chain.sent[0].To())
	assert.Equal(t, uint64(60000), chain.sent[0].Gas(), "estimate plus 20%")

	expected := crypto.Keccak256Hash(append(chain.sent[0].Hash().Bytes(), chain.sent[1].Hash().Bytes()...)).Hex()
	assert.Equal(t, expected, id)
}

func TestKeyWallet_SubmitBatch_FallbackGas(t *testing.T) {
	chain := newFakeChain()
	chain.estimateFn = func(msg ethereum.CallMsg) (uint64, error) {
		if *msg.To == common.HexToAddress("0x2222222222222222222222222222222222222222") {
			return 0, errors.New("execution reverted: insufficient allowance")
		}
		return 50000, nil
	}
	w, _ := newKeyWallet(t, chain)

	_, err := w.SubmitBatch(context.Background(), twoCalls())
	require.NoError(t, err)
	assert.Equal(t, uint64(300000), chain.sent[1].Gas())
}

func TestKeyWallet_SubmitBatch_SendError(t *testing.T) {
	chain := newFakeChain()
	chain.sendErrAt = 1
	w, _ := newKeyWallet(t, chain)

	_, err := w.SubmitBatch(context.Background(), twoCalls())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send call 1")
}

func TestKeyWallet_GetBundleStatus(t *testing.T) {
	chain := newFakeChain()
	w, _ := newKeyWallet(t, chain)
	ctx := context.Background()

	id, err := w.SubmitBatch(ctx, twoCalls())
	require.NoError(t, err)

	status, err := w.GetBundleStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.BundlePending, status.Status)

	w.mu.Lock()
	assert.Len(t, w.bundles, 1, "pending bundle is kept")
	w.mu.Unlock()

	chain.mine(chain.sent[0].Hash(), ethtypes.ReceiptStatusSuccessful, 100)
	status, err = w.GetBundleStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.BundlePending, status.Status, "second tx not mined yet")

	chain.mine(chain.sent[1].Hash(), ethtypes.ReceiptStatusSuccessful, 101)
	status, err = w.GetBundleStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.BundleSuccess, status.Status)
	require.Len(t, status.Receipts, 2)

	last, ok := status.LastTxHash()
	require.True(t, ok)
	assert.Equal(t, chain.sent[1].Hash(), last)
	assert.Equal(t, uint64(101), status.Receipts[1].BlockNumber)

	w.mu.Lock()
	assert.Empty(t, w.bundles, "finished bundle is dropped")
	w.mu.Unlock()

	_, err = w.GetBundleStatus(ctx, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown bundle")
}

func TestKeyWallet_GetBundleStatus_Reverted(t *testing.T) {
	chain := newFakeChain()
	w, _ := newKeyWallet(t, chain)
	ctx := context.Background()

	id, err := w.SubmitBatch(ctx, twoCalls())
	require.NoError(t, err)

	chain.mine(chain.sent[0].Hash(), ethtypes.ReceiptStatusFailed, 100)

	status, err := w.GetBundleStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.BundleFailure, status.Status)
	require.Len(t, status.Receipts, 1)

	w.mu.Lock()
	assert.Empty(t, w.bundles, "failed bundle is dropped")
	w.mu.Unlock()
}

func TestKeyWallet_GetBundleStatus_Errors(t *testing.T) {
	chain := newFakeChain()
	w, _ := newKeyWallet(t, chain)
	ctx := context.Background()

	_, err := w.GetBundleStatus(ctx, "0xunknown")
	require.Error(t, err)

	id, err := w.SubmitBatch(ctx, twoCalls())
	require.NoError(t, err)

	chain.receiptErr = errors.New("connection refused")
	_, err = w.GetBundleStatus(ctx, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKeyWallet_ReadBalance(t *testing.T) {
	chain := newFakeChain()
	w, _ := newKeyWallet(t, chain)
	chain.balances[w.Account()] = big.NewInt(10_000_000)

	balance, err := w.ReadBalance(context.Background(), common.HexToAddress("0x1111111111111111111111111111111111111111"), w.Account())
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), balance.Int64())
}

// Compile-time checks that both wallets satisfy Adapter.
var (
	_ Adapter = (*KeyWallet)(nil)
	_ Adapter = (*BatchWallet)(nil)
)
