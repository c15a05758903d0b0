package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goccy/go-json"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"go.uber.org/zap"
)

const callsAPIVersion = "2.0.0"

// RPCCaller is the JSON-RPC surface of rpc.Client used by BatchWallet.
type RPCCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// BatchWallet submits batches to an EIP-5792 wallet endpoint with
// wallet_sendCalls and polls them with wallet_getCallsStatus.
type BatchWallet struct {
	rpc     RPCCaller
	reader  *Reader
	account common.Address
	chainID uint64
	logger  *zap.Logger
}

// BatchConfig holds configuration for a BatchWallet.
type BatchConfig struct {
	RPC     RPCCaller
	Reader  *Reader
	Account common.Address
	ChainID uint64
	Logger  *zap.Logger
}

// NewBatchWallet creates an EIP-5792 wallet adapter.
func NewBatchWallet(cfg *BatchConfig) (*BatchWallet, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RPC == nil {
		return nil, errors.New("wallet RPC client cannot be nil")
	}

	if cfg.Reader == nil {
		return nil, errors.New("reader cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Account == (common.Address{}) {
		return nil, errors.New("account address cannot be empty")
	}

	return &BatchWallet{
		rpc:     cfg.RPC,
		reader:  cfg.Reader,
		account: cfg.Account,
		chainID: cfg.ChainID,
		logger:  cfg.Logger,
	}, nil
}

// DialBatchWallet connects to a wallet endpoint over go-ethereum's rpc client.
func DialBatchWallet(ctx context.Context, walletURL string, cfg *BatchConfig) (*BatchWallet, *rpc.Client, error) {
	client, err := rpc.DialContext(ctx, walletURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial wallet RPC: %w", err)
	}

	cfg.RPC = client
	w, err := NewBatchWallet(cfg)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	return w, client, nil
}

type sendCallsParams struct {
	Version        string           `json:"version"`
	ChainID        string           `json:"chainId"`
	From           string           `json:"from"`
	AtomicRequired bool             `json:"atomicRequired"`
	Calls          []types.CallJSON `json:"calls"`
}

type callsStatusReceipt struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	BlockNumber     hexutil.Uint64 `json:"blockNumber"`
	GasUsed         hexutil.Uint64 `json:"gasUsed"`
	Status          hexutil.Uint64 `json:"status"`
}

type callsStatusResult struct {
	ID       string               `json:"id"`
	Status   json.RawMessage      `json:"status"`
	Receipts []callsStatusReceipt `json:"receipts"`
}

// SubmitBatch sends all calls as one atomic wallet_sendCalls request.
func (w *BatchWallet) SubmitBatch(ctx context.Context, calls []types.Call) (string, error) {
	if len(calls) == 0 {
		return "", errors.New("empty batch")
	}

	params := sendCallsParams{
		Version:        callsAPIVersion,
		ChainID:        hexutil.EncodeUint64(w.chainID),
		From:           w.account.Hex(),
		AtomicRequired: true,
		Calls:          make([]types.CallJSON, len(calls)),
	}
	for i, call := range calls {
		params.Calls[i] = call.JSON()
	}

	start := time.Now()
	var raw json.RawMessage
	err := w.rpc.CallContext(ctx, &raw, "wallet_sendCalls", params)
	if err != nil {
		BatchSubmitErrorsTotal.WithLabelValues("batch").Inc()
		return "", fmt.Errorf("wallet_sendCalls: %w", err)
	}

	id, err := parseBundleID(raw)
	if err != nil {
		BatchSubmitErrorsTotal.WithLabelValues("batch").Inc()
		return "", err
	}

	BatchesSubmittedTotal.WithLabelValues("batch").Inc()
	w.logger.Info("batch-submitted",
		zap.String("bundle-id", id),
		zap.Int("calls", len(calls)),
		zap.Duration("duration", time.Since(start)))

	return id, nil
}

// GetBundleStatus polls wallet_getCallsStatus and normalizes the status code.
func (w *BatchWallet) GetBundleStatus(ctx context.Context, bundleID string) (*types.BundleStatus, error) {
	var result callsStatusResult
	err := w.rpc.CallContext(ctx, &result, "wallet_getCallsStatus", bundleID)
	if err != nil {
		return nil, fmt.Errorf("wallet_getCallsStatus: %w", err)
	}

	state, err := NormalizeStatus(result.Status)
	if err != nil {
		return nil, err
	}

	status := &types.BundleStatus{
		ID:       bundleID,
		Status:   state,
		Receipts: make([]types.Receipt, 0, len(result.Receipts)),
	}
	for _, r := range result.Receipts {
		status.Receipts = append(status.Receipts, types.Receipt{
			TransactionHash: r.TransactionHash,
			BlockNumber:     uint64(r.BlockNumber),
			GasUsed:         uint64(r.GasUsed),
			Status:          uint64(r.Status),
		})
	}

	StatusPollsTotal.WithLabelValues(string(state)).Inc()
	return status, nil
}

// ReadBalance reads the token balance through the chain RPC.
func (w *BatchWallet) ReadBalance(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error) {
	return w.reader.BalanceOf(ctx, token, owner)
}

// Account returns the connected wallet address.
func (w *BatchWallet) Account() common.Address {
	return w.account
}

// parseBundleID accepts both the object form {"id": "..."} and a bare string.
func parseBundleID(raw json.RawMessage) (string, error) {
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.ID != "" {
		return obj.ID, nil
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil && id != "" {
		return id, nil
	}

	return "", fmt.Errorf("unexpected wallet_sendCalls result: %s", string(raw))
}

// NormalizeStatus maps EIP-5792 status values to a BundleState. Numeric codes
// 1xx are pending, 200 is success and 4xx-6xx are failures. The legacy string
// form uses PENDING and CONFIRMED.
func NormalizeStatus(raw json.RawMessage) (types.BundleState, error) {
	var code int
	if err := json.Unmarshal(raw, &code); err == nil {
		return normalizeCode(code)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("unexpected status %s", string(raw))
	}

	if n, err := strconv.Atoi(text); err == nil {
		return normalizeCode(n)
	}

	switch strings.ToUpper(text) {
	case "PENDING":
		return types.BundlePending, nil
	case "CONFIRMED":
		return types.BundleSuccess, nil
	case "FAILED", "REVERTED":
		return types.BundleFailure, nil
	default:
		return "", fmt.Errorf("unexpected status %q", text)
	}
}

func normalizeCode(code int) (types.BundleState, error) {
	switch {
	case code >= 100 && code < 200:
		return types.BundlePending, nil
	case code == 200:
		return types.BundleSuccess, nil
	case code >= 400 && code < 700:
		return types.BundleFailure, nil
	default:
		return "", fmt.Errorf("unexpected status code %d", code)
	}
}
