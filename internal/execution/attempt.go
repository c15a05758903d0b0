package execution

import (
	"context"
	"sync"

	"github.com/mselser95/polkamarkets-trader/pkg/types"
)

// Attempt is one trade or claim, from submission to its terminal state.
type Attempt struct {
	ID   string
	Kind string

	mu     sync.Mutex
	record types.AttemptRecord
	txURL  string
	err    error

	// ctx is the poller's stop signal. cancel runs at most once.
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	done     chan struct{}
	doneOnce sync.Once
	finished bool
}

// Done is closed once the attempt is terminal or abandoned by Close.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Record returns a copy of the attempt's current record.
func (a *Attempt) Record() types.AttemptRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.record
}

// Err returns the failure cause once the attempt has failed.
func (a *Attempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// TxURL returns the explorer link of the last transaction, if known.
func (a *Attempt) TxURL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.txURL
}

func (a *Attempt) setState(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record.State = string(s)
}

func (a *Attempt) setBundle(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record.BundleID = id
	a.record.State = string(StateConfirming)
}

// complete records the terminal outcome. It returns false if the attempt
// was already finished.
func (a *Attempt) complete(s State, err error, txHash string, txURL string) (types.AttemptRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finished {
		return a.record, false
	}

	a.finished = true
	a.err = err
	a.txURL = txURL
	a.record.State = string(s)
	a.record.TxHash = txHash
	a.record.CompletedAt = nowUTC()
	if err != nil {
		a.record.Error = err.Error()
	}

	return a.record, true
}

func (a *Attempt) stop() {
	a.stopOnce.Do(a.cancel)
}

func (a *Attempt) markDone() {
	a.doneOnce.Do(func() { close(a.done) })
}
