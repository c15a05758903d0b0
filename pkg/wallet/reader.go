package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const erc20ReadABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

//nolint:gochecknoglobals // parsed once, read-only
var erc20Read = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20ReadABI))
	if err != nil {
		panic("wallet: parse ABI: " + err.Error())
	}
	return parsed
}()

// ChainCaller is the read-only part of ethclient.Client the reader needs.
type ChainCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Reader reads ERC-20 and native balances through an RPC node.
type Reader struct {
	client ChainCaller
	logger *zap.Logger
}

// NewReader creates a reader on top of an RPC client.
func NewReader(client ChainCaller, logger *zap.Logger) (*Reader, error) {
	if client == nil {
		return nil, errors.New("chain client cannot be nil")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Reader{client: client, logger: logger}, nil
}

// BalanceOf returns the raw token balance of owner.
func (r *Reader) BalanceOf(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error) {
	balance, err := r.callUint(ctx, token, "balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", token.Hex(), err)
	}

	return balance, nil
}

// Allowance returns how much spender may move on behalf of owner.
func (r *Reader) Allowance(ctx context.Context, token common.Address, owner common.Address, spender common.Address) (*big.Int, error) {
	allowance, err := r.callUint(ctx, token, "allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("allowance %s: %w", token.Hex(), err)
	}

	return allowance, nil
}

// Decimals returns the token's decimals.
func (r *Reader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := r.call(ctx, token, "decimals")
	if err != nil {
		return 0, fmt.Errorf("decimals %s: %w", token.Hex(), err)
	}

	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals %s: unexpected type %T", token.Hex(), out[0])
	}

	return decimals, nil
}

// NativeBalance returns the gas token balance of owner in wei.
func (r *Reader) NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	balance, err := r.client.BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, fmt.Errorf("get native balance: %w", err)
	}

	return balance, nil
}

func (r *Reader) callUint(ctx context.Context, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	out, err := r.call(ctx, token, method, args...)
	if err != nil {
		return nil, err
	}

	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T", out[0])
	}

	return value, nil
}

func (r *Reader) call(ctx context.Context, token common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := erc20Read.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	msg := ethereum.CallMsg{
		To:   &token,
		Data: data,
	}

	result, err := r.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	out, err := erc20Read.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}

	r.logger.Debug("erc20-call",
		zap.String("method", method),
		zap.String("token", token.Hex()))

	return out, nil
}
