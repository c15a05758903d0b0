package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewReader(t *testing.T) {
	_, err := NewReader(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewReader(newFakeChain(), nil)
	assert.Error(t, err)

	r, err := NewReader(newFakeChain(), zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestReader_ERC20Reads(t *testing.T) {
	chain := newFakeChain()
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender := common.HexToAddress("0x2222222222222222222222222222222222222222")

	chain.balances[owner] = big.NewInt(25_000_000)
	chain.allowance = big.NewInt(7)
	chain.decimals = 18
	chain.native = big.NewInt(1e18)

	r, err := NewReader(chain, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	balance, err := r.BalanceOf(ctx, token, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(25_000_000), balance.Int64())

	allowance, err := r.Allowance(ctx, token, owner, spender)
	require.NoError(t, err)
	assert.Equal(t, int64(7), allowance.Int64())

	decimals, err := r.Decimals(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint8(18), decimals)

	native, err := r.NativeBalance(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1e18), native.Int64())
}

func TestReader_CallError(t *testing.T) {
	chain := newFakeChain()
	chain.callErr = errors.New("execution reverted")

	r, err := NewReader(chain, zap.NewNop())
	require.NoError(t, err)

	_, err = r.BalanceOf(context.Background(), common.Address{}, common.Address{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution reverted")
}
