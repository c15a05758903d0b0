package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"go.uber.org/zap"
)

// TxBackend is the part of ethclient.Client a KeyWallet signs and sends through.
type TxBackend interface {
	ChainCaller
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// KeyWallet signs each call with a local private key and sends them as
// consecutive transactions. The bundle id is the keccak hash of the ordered
// transaction hashes.
type KeyWallet struct {
	backend     TxBackend
	reader      *Reader
	key         *ecdsa.PrivateKey
	from        common.Address
	signer      ethtypes.Signer
	fallbackGas uint64
	logger      *zap.Logger

	mu      sync.Mutex
	bundles map[string][]common.Hash
}

// KeyConfig holds configuration for a KeyWallet.
type KeyConfig struct {
	Backend     TxBackend
	PrivateKey  string // hex, with or without 0x
	ChainID     uint64
	FallbackGas uint64 // used when estimation fails, e.g. a call that depends on an unmined approve
	Logger      *zap.Logger
}

// NewKeyWallet creates a wallet adapter backed by a local key.
func NewKeyWallet(cfg *KeyConfig) (*KeyWallet, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Backend == nil {
		return nil, errors.New("backend cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	reader, err := NewReader(cfg.Backend, cfg.Logger)
	if err != nil {
		return nil, err
	}

	fallbackGas := cfg.FallbackGas
	if fallbackGas == 0 {
		fallbackGas = 500000
	}

	return &KeyWallet{
		backend:     cfg.Backend,
		reader:      reader,
		key:         key,
		from:        crypto.PubkeyToAddress(key.PublicKey),
		signer:      ethtypes.NewEIP155Signer(new(big.Int).SetUint64(cfg.ChainID)),
		fallbackGas: fallbackGas,
		logger:      cfg.Logger,
		bundles:     make(map[string][]common.Hash),
	}, nil
}

// SubmitBatch signs and sends every call in order with consecutive nonces.
// If a later send fails, the already-sent transactions are not undone.
func (w *KeyWallet) SubmitBatch(ctx context.Context, calls []types.Call) (string, error) {
	if len(calls) == 0 {
		return "", errors.New("empty batch")
	}

	nonce, err := w.backend.PendingNonceAt(ctx, w.from)
	if err != nil {
		BatchSubmitErrorsTotal.WithLabelValues("key").Inc()
		return "", fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		BatchSubmitErrorsTotal.WithLabelValues("key").Inc()
		return "", fmt.Errorf("get gas price: %w", err)
	}

	hashes := make([]common.Hash, 0, len(calls))
	for i, call := range calls {
		value := call.Value
		if value == nil {
			value = big.NewInt(0)
		}

		gasLimit := w.estimateGas(ctx, call, value)

		tx := ethtypes.NewTransaction(nonce+uint64(i), call.To, value, gasLimit, gasPrice, call.Data)
		signed, err := ethtypes.SignTx(tx, w.signer, w.key)
		if err != nil {
			BatchSubmitErrorsTotal.WithLabelValues("key").Inc()
			return "", fmt.Errorf("sign call %d: %w", i, err)
		}

		err = w.backend.SendTransaction(ctx, signed)
		if err != nil {
			BatchSubmitErrorsTotal.WithLabelValues("key").Inc()
			return "", fmt.Errorf("send call %d: %w", i, err)
		}

		hashes = append(hashes, signed.Hash())
		w.logger.Debug("transaction-sent",
			zap.Int("index", i),
			zap.String("tx-hash", signed.Hash().Hex()),
			zap.Uint64("nonce", nonce+uint64(i)),
			zap.Uint64("gas-limit", gasLimit))
	}

	id := bundleID(hashes)

	w.mu.Lock()
	w.bundles[id] = hashes
	w.mu.Unlock()

	BatchesSubmittedTotal.WithLabelValues("key").Inc()
	w.logger.Info("batch-submitted",
		zap.String("bundle-id", id),
		zap.Int("calls", len(calls)))

	return id, nil
}

// GetBundleStatus derives the bundle status from the receipts of its
// transactions. A missing receipt means the bundle is still pending. A bundle
// is forgotten once it reports success or failure.
func (w *KeyWallet) GetBundleStatus(ctx context.Context, id string) (*types.BundleStatus, error) {
	w.mu.Lock()
	hashes, ok := w.bundles[id]
	w.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown bundle %s", id)
	}

	status := &types.BundleStatus{ID: id, Status: types.BundlePending}

	for _, hash := range hashes {
		receipt, err := w.backend.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			StatusPollsTotal.WithLabelValues(string(types.BundlePending)).Inc()
			return status, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get receipt %s: %w", hash.Hex(), err)
		}

		status.Receipts = append(status.Receipts, types.Receipt{
			TransactionHash: receipt.TxHash,
			BlockNumber:     receiptBlock(receipt),
			GasUsed:         receipt.GasUsed,
			Status:          receipt.Status,
		})

		if receipt.Status != ethtypes.ReceiptStatusSuccessful {
			status.Status = types.BundleFailure
			break
		}
	}

	if status.Status != types.BundleFailure {
		status.Status = types.BundleSuccess
	}

	w.mu.Lock()
	delete(w.bundles, id)
	w.mu.Unlock()

	StatusPollsTotal.WithLabelValues(string(status.Status)).Inc()
	return status, nil
}

// ReadBalance reads the token balance through the chain RPC.
func (w *KeyWallet) ReadBalance(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error) {
	return w.reader.BalanceOf(ctx, token, owner)
}

// Account returns the address derived from the private key.
func (w *KeyWallet) Account() common.Address {
	return w.from
}

func (w *KeyWallet) estimateGas(ctx context.Context, call types.Call, value *big.Int) uint64 {
	to := call.To
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.from,
		To:    &to,
		Value: value,
		Data:  call.Data,
	})
	if err != nil || gas == 0 {
		w.logger.Debug("gas-estimate-fallback",
			zap.String("to", call.To.Hex()),
			zap.Uint64("fallback", w.fallbackGas),
			zap.Error(err))
		return w.fallbackGas
	}

	// 20% headroom
	return gas + gas/5
}

func bundleID(hashes []common.Hash) string {
	buf := make([]byte, 0, len(hashes)*common.HashLength)
	for _, h := range hashes {
		buf = append(buf, h.Bytes()...)
	}
	return crypto.Keccak256Hash(buf).Hex()
}

func receiptBlock(r *ethtypes.Receipt) uint64 {
	if r.BlockNumber == nil {
		return 0
	}
	return r.BlockNumber.Uint64()
}
