package execution

import (
	"errors"
	"time"
)

// State is the tracker's position in the attempt lifecycle.
type State string

const (
	StateIdle             State = "idle"
	StateApproving        State = "approving" // buy only
	StatePendingSignature State = "pending_signature"
	StateConfirming       State = "confirming"
	StateConfirmed        State = "confirmed"
	StateFailed           State = "failed"
)

// Terminal reports whether the state ends an attempt.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

var (
	// ErrAttemptInProgress is returned when a trade or claim is started while
	// another attempt has not yet been reset to idle.
	ErrAttemptInProgress = errors.New("another attempt is in progress")

	// ErrTrackerClosed is returned after Close.
	ErrTrackerClosed = errors.New("tracker is closed")
)

// Snapshot is a point-in-time view of the tracker.
type Snapshot struct {
	State     State     `json:"state"`
	AttemptID string    `json:"attemptId,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	BundleID  string    `json:"bundleId,omitempty"`
	TxHash    string    `json:"txHash,omitempty"`
	TxURL     string    `json:"txUrl,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is the user-facing message emitted when an attempt ends.
type Notification struct {
	AttemptID string    `json:"attemptId"`
	Kind      string    `json:"kind"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	TxHash    string    `json:"txHash,omitempty"`
	TxURL     string    `json:"txUrl,omitempty"`
	Time      time.Time `json:"time"`
}
