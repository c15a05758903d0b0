// Package execution submits trade and claim batches and tracks them to a
// terminal state.
package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/polkamarkets-trader/internal/txbuilder"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/mselser95/polkamarkets-trader/pkg/wallet"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPollInterval = 1 * time.Second
	defaultResetDelay   = 3 * time.Second
	pollTimeout         = 10 * time.Second
	recordTimeout       = 5 * time.Second
)

// Invalidator drops cached reads made stale by a confirmed attempt.
type Invalidator interface {
	InvalidateMarkets()
	InvalidateAccount(address string)
}

// Notifier surfaces terminal outcomes to the user.
type Notifier interface {
	Notify(n Notification)
}

// Recorder journals finished attempts.
type Recorder interface {
	StoreAttempt(ctx context.Context, rec *types.AttemptRecord) error
}

// Guard gates buys on account health and learns from confirmed buys.
type Guard interface {
	IsEnabled() bool
	RecordTrade(value decimal.Decimal)
}

// Tracker runs one attempt at a time through the state machine
// idle -> [approving] -> pending_signature -> confirming -> confirmed|failed -> idle.
type Tracker struct {
	wallet       wallet.Adapter
	contracts    txbuilder.Contracts
	invalidator  Invalidator
	notifier     Notifier
	recorder     Recorder
	guard        Guard
	pollInterval time.Duration
	resetDelay   time.Duration
	txURL        func(hash string) string
	checkBalance bool
	logger       *zap.Logger

	mu      sync.Mutex
	state   State
	current *Attempt
	last    *types.AttemptRecord
	updated time.Time
	timer   *time.Timer
	closed  bool

	wg sync.WaitGroup
}

// Config holds tracker configuration. Invalidator, Notifier, Recorder, Guard
// and TxURL are optional.
type Config struct {
	Wallet       wallet.Adapter
	Contracts    txbuilder.Contracts
	Invalidator  Invalidator
	Notifier     Notifier
	Recorder     Recorder
	Guard        Guard
	PollInterval time.Duration
	ResetDelay   time.Duration
	TxURL        func(hash string) string
	CheckBalance bool // read the token balance before submitting a buy
	Logger       *zap.Logger
}

// New creates a new tracker in the idle state.
func New(cfg *Config) (*Tracker, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Wallet == nil {
		return nil, errors.New("wallet cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	resetDelay := cfg.ResetDelay
	if resetDelay < 0 {
		resetDelay = defaultResetDelay
	}

	return &Tracker{
		wallet:       cfg.Wallet,
		contracts:    cfg.Contracts,
		invalidator:  cfg.Invalidator,
		notifier:     cfg.Notifier,
		recorder:     cfg.Recorder,
		guard:        cfg.Guard,
		pollInterval: pollInterval,
		resetDelay:   resetDelay,
		txURL:        cfg.TxURL,
		checkBalance: cfg.CheckBalance,
		logger:       cfg.Logger,
		state:        StateIdle,
		updated:      time.Now(),
	}, nil
}

// Trade validates, builds and submits a buy or sell. Errors are returned only
// when no attempt was started; once started, the outcome is reported on the
// returned Attempt.
func (t *Tracker) Trade(ctx context.Context, p types.TradeParams) (*Attempt, error) {
	err := p.Validate()
	if err != nil {
		AttemptsRejectedTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	calls, err := txbuilder.BuildTradeTransaction(p, t.contracts)
	if err != nil {
		AttemptsRejectedTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("build %s: %w", p.Action, err)
	}

	if p.Action == types.ActionBuy && t.guard != nil && !t.guard.IsEnabled() {
		AttemptsRejectedTotal.WithLabelValues("paused").Inc()
		return nil, types.ErrBuysPaused
	}

	initial := StatePendingSignature
	if p.Action == types.ActionBuy {
		initial = StateApproving
	}

	outcomeID := p.OutcomeID
	a, err := t.begin(string(p.Action), initial, types.AttemptRecord{
		MarketID:  p.MarketID,
		OutcomeID: &outcomeID,
		Value:     p.Value,
	})
	if err != nil {
		return nil, err
	}

	if p.Action == types.ActionBuy {
		err = t.preflight(ctx, p)
		if err != nil {
			t.finish(a, StateFailed, err, nil)
			return a, nil
		}
		t.transition(a, StatePendingSignature)
	}

	t.submit(ctx, a, calls)
	return a, nil
}

// Claim validates, builds and submits a claim.
func (t *Tracker) Claim(ctx context.Context, p types.ClaimParams) (*Attempt, error) {
	calls, err := txbuilder.BuildClaimTransaction(p, t.contracts)
	if err != nil {
		AttemptsRejectedTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	a, err := t.begin(string(p.Action), StatePendingSignature, types.AttemptRecord{
		MarketID:  p.MarketID,
		OutcomeID: p.OutcomeID,
	})
	if err != nil {
		return nil, err
	}

	t.submit(ctx, a, calls)
	return a, nil
}

// Wait blocks until the attempt is done or ctx ends.
func (t *Tracker) Wait(ctx context.Context, a *Attempt) (types.AttemptRecord, error) {
	select {
	case <-a.Done():
		return a.Record(), nil
	case <-ctx.Done():
		return a.Record(), ctx.Err()
	}
}

// Snapshot returns the current state. After the cool-down the state is idle
// and the bundle id is empty.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{State: t.state, UpdatedAt: t.updated}
	if t.current != nil {
		rec := t.current.Record()
		snap.AttemptID = rec.ID
		snap.Kind = rec.Kind
		snap.BundleID = rec.BundleID
		snap.TxHash = rec.TxHash
		snap.TxURL = t.current.TxURL()
		snap.Error = rec.Error
	}

	return snap
}

// LastAttempt returns the most recent finished attempt.
func (t *Tracker) LastAttempt() (types.AttemptRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last == nil {
		return types.AttemptRecord{}, false
	}
	return *t.last, true
}

// Close stops polling and the pending reset, and waits for the poller to exit.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	current := t.current
	t.mu.Unlock()

	if current != nil {
		current.stop()
	}

	t.wg.Wait()
	t.logger.Info("tracker-closed")
}

func (t *Tracker) begin(kind string, initial State, rec types.AttemptRecord) (*Attempt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		AttemptsRejectedTotal.WithLabelValues("closed").Inc()
		return nil, ErrTrackerClosed
	}

	if t.state != StateIdle {
		AttemptsRejectedTotal.WithLabelValues("in_progress").Inc()
		return nil, fmt.Errorf("%w: %s", ErrAttemptInProgress, t.state)
	}

	ctx, cancel := context.WithCancel(context.Background())

	rec.ID = uuid.NewString()
	rec.Kind = kind
	rec.Account = t.wallet.Account()
	rec.State = string(initial)
	rec.StartedAt = nowUTC()

	a := &Attempt{
		ID:     rec.ID,
		Kind:   kind,
		record: rec,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	t.current = a
	t.state = initial
	t.updated = time.Now()
	AttemptsInFlight.Set(1)

	t.logger.Info("attempt-started",
		zap.String("attempt-id", a.ID),
		zap.String("kind", kind),
		zap.Uint64("market-id", rec.MarketID),
		zap.String("state", string(initial)))

	return a, nil
}

func (t *Tracker) transition(a *Attempt, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != a || t.state.Terminal() {
		return
	}

	t.state = s
	t.updated = time.Now()
	a.setState(s)
}

func (t *Tracker) preflight(ctx context.Context, p types.TradeParams) error {
	if !t.checkBalance {
		return nil
	}

	required, err := txbuilder.ScaleAmount(p.Value, p.TokenDecimals)
	if err != nil {
		return err
	}

	balance, err := t.wallet.ReadBalance(ctx, p.TokenAddress, t.wallet.Account())
	if err != nil {
		t.logger.Warn("balance-check-skipped", zap.Error(err))
		return nil
	}

	if balance.Cmp(required) < 0 {
		return fmt.Errorf("%w: have %s, need %s", types.ErrInsufficientBalance, balance, required)
	}

	return nil
}

func (t *Tracker) submit(ctx context.Context, a *Attempt, calls []types.Call) {
	bundleID, err := t.wallet.SubmitBatch(ctx, calls)
	if err != nil {
		t.finish(a, StateFailed, fmt.Errorf("submit batch: %w", err), nil)
		return
	}

	t.mu.Lock()
	a.setBundle(bundleID)
	if t.current == a {
		t.state = StateConfirming
		t.updated = time.Now()
	}
	closed := t.closed
	if !closed {
		t.wg.Add(1)
	}
	t.mu.Unlock()

	t.logger.Info("bundle-submitted",
		zap.String("attempt-id", a.ID),
		zap.String("bundle-id", bundleID),
		zap.Int("calls", len(calls)))

	if closed {
		a.stop()
		a.markDone()
		return
	}

	go t.poll(a, bundleID)
}

// poll checks the bundle every pollInterval until it is terminal or the
// attempt's stop signal fires. Poll errors are retried on the next tick.
func (t *Tracker) poll(a *Attempt, bundleID string) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			t.logger.Debug("bundle-poll-stopped", zap.String("attempt-id", a.ID))
			a.markDone()
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(a.ctx, pollTimeout)
		status, err := t.wallet.GetBundleStatus(ctx, bundleID)
		cancel()
		BundlePollsTotal.Inc()

		if err != nil {
			BundlePollErrorsTotal.Inc()
			t.logger.Warn("bundle-poll-failed",
				zap.String("attempt-id", a.ID),
				zap.String("bundle-id", bundleID),
				zap.Error(err))
			continue
		}

		switch status.Status {
		case types.BundleSuccess:
			t.finish(a, StateConfirmed, nil, status)
			return
		case types.BundleFailure:
			t.finish(a, StateFailed, types.ErrTransactionReverted, status)
			return
		default:
			t.logger.Debug("bundle-pending",
				zap.String("attempt-id", a.ID),
				zap.String("bundle-id", bundleID))
		}
	}
}

// finish moves the attempt to a terminal state exactly once, runs the
// side effects and schedules the reset to idle.
func (t *Tracker) finish(a *Attempt, s State, cause error, status *types.BundleStatus) {
	var txHash, txURL string
	if hash, ok := status.LastTxHash(); ok {
		txHash = hash.Hex()
		if t.txURL != nil {
			txURL = t.txURL(txHash)
		}
	}

	t.mu.Lock()
	rec, ok := a.complete(s, cause, txHash, txURL)
	if !ok {
		t.mu.Unlock()
		return
	}
	if t.current == a {
		t.state = s
		t.updated = time.Now()
		t.last = &rec
		if !t.closed {
			t.timer = time.AfterFunc(t.resetDelay, func() { t.reset(a) })
		}
	}
	t.mu.Unlock()

	a.stop()

	AttemptsTotal.WithLabelValues(rec.Kind, string(s)).Inc()
	AttemptDurationSeconds.WithLabelValues(rec.Kind).Observe(rec.Duration().Seconds())

	n := Notification{
		AttemptID: rec.ID,
		Kind:      rec.Kind,
		TxHash:    txHash,
		TxURL:     txURL,
		Time:      rec.CompletedAt,
	}

	if s == StateConfirmed {
		if t.invalidator != nil {
			t.invalidator.InvalidateMarkets()
			t.invalidator.InvalidateAccount(rec.Account.Hex())
		}
		if t.guard != nil && rec.Kind == string(types.ActionBuy) {
			t.guard.RecordTrade(rec.Value)
		}

		n.Level = LevelSuccess
		n.Message = fmt.Sprintf("%s confirmed", describe(rec.Kind))

		t.logger.Info("attempt-confirmed",
			zap.String("attempt-id", rec.ID),
			zap.String("kind", rec.Kind),
			zap.String("tx-hash", txHash),
			zap.String("tx-url", txURL),
			zap.Duration("duration", rec.Duration()))
	} else {
		n.Level = LevelError
		n.Message = fmt.Sprintf("%s failed: %v", describe(rec.Kind), cause)

		t.logger.Warn("attempt-failed",
			zap.String("attempt-id", rec.ID),
			zap.String("kind", rec.Kind),
			zap.String("bundle-id", rec.BundleID),
			zap.Error(cause))
	}

	if t.notifier != nil {
		t.notifier.Notify(n)
	}

	if t.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		err := t.recorder.StoreAttempt(ctx, &rec)
		cancel()
		if err != nil {
			t.logger.Error("attempt-record-failed",
				zap.String("attempt-id", rec.ID),
				zap.Error(err))
		}
	}

	a.markDone()
}

func (t *Tracker) reset(a *Attempt) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != a {
		return
	}

	t.current = nil
	t.state = StateIdle
	t.timer = nil
	t.updated = time.Now()
	AttemptsInFlight.Set(0)

	t.logger.Debug("tracker-reset", zap.String("attempt-id", a.ID))
}

func describe(kind string) string {
	switch kind {
	case string(types.ActionBuy):
		return "Buy"
	case string(types.ActionSell):
		return "Sell"
	case string(types.ActionClaimWinnings):
		return "Claim"
	case string(types.ActionClaimVoided):
		return "Voided shares claim"
	default:
		return kind
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
