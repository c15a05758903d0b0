package execution

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/shopspring/decimal"
)

// fakeWallet scripts bundle statuses. The last status repeats once the
// script is exhausted.
type fakeWallet struct {
	mu sync.Mutex

	account    common.Address
	submitErr  error
	submitGate chan struct{}
	statuses   []types.BundleStatus
	statusErrs []error
	balance    *big.Int
	balanceErr error

	submitted [][]types.Call
	polls     int
}

func newFakeWallet(statuses ...types.BundleStatus) *fakeWallet {
	return &fakeWallet{
		account:  common.HexToAddress("0xAbCdEf0000000000000000000000000000000001"),
		statuses: statuses,
		balance:  big.NewInt(1_000_000_000),
	}
}

func (w *fakeWallet) SubmitBatch(_ context.Context, calls []types.Call) (string, error) {
	if w.submitGate != nil {
		<-w.submitGate
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitErr != nil {
		return "", w.submitErr
	}

	w.submitted = append(w.submitted, calls)
	return "0xbundle", nil
}

func (w *fakeWallet) GetBundleStatus(_ context.Context, id string) (*types.BundleStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.polls++

	if len(w.statusErrs) > 0 {
		err := w.statusErrs[0]
		w.statusErrs = w.statusErrs[1:]
		return nil, err
	}

	if len(w.statuses) == 0 {
		return &types.BundleStatus{ID: id, Status: types.BundlePending}, nil
	}

	status := w.statuses[0]
	if len(w.statuses) > 1 {
		w.statuses = w.statuses[1:]
	}
	status.ID = id
	return &status, nil
}

func (w *fakeWallet) ReadBalance(_ context.Context, _, _ common.Address) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance, w.balanceErr
}

func (w *fakeWallet) Account() common.Address {
	return w.account
}

func (w *fakeWallet) pollCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polls
}

func (w *fakeWallet) submitCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.submitted)
}

type fakeInvalidator struct {
	mu       sync.Mutex
	markets  int
	accounts []string
}

func (f *fakeInvalidator) InvalidateMarkets() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markets++
}

func (f *fakeInvalidator) InvalidateAccount(address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append(f.accounts, address)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (f *fakeNotifier) Notify(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
}

func (f *fakeNotifier) all() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.sent...)
}

type fakeQuoter struct {
	quote *types.Quote
	err   error
	reqs  []types.QuoteRequest
}

func (f *fakeQuoter) Quote(_ context.Context, req types.QuoteRequest) (*types.Quote, error) {
	f.reqs = append(f.reqs, req)
	return f.quote, f.err
}

type fakeGuard struct {
	mu       sync.Mutex
	disabled bool
	recorded []decimal.Decimal
}

func (f *fakeGuard) IsEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disabled
}

func (f *fakeGuard) RecordTrade(value decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, value)
}

func (f *fakeGuard) trades() []decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]decimal.Decimal(nil), f.recorded...)
}
