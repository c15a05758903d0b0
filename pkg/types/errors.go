package types

import (
	"errors"
	"fmt"
)

// Validation failures. Callers match them with errors.Is.
var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrExcessPrecision     = errors.New("amount has more decimal places than the token")
	ErrMissingOutcome      = errors.New("outcome id is required")
	ErrMissingAddress      = errors.New("address is required")
	ErrUnknownAction       = errors.New("unknown action")
	ErrInsufficientBalance = errors.New("insufficient token balance")
)

// ErrBuysPaused is returned while the balance circuit breaker is open.
var ErrBuysPaused = errors.New("buys paused: collateral balance below threshold")

// ErrTransactionReverted is reported for any bundle that resolves to failure.
// The revert reason is not decoded.
var ErrTransactionReverted = errors.New("transaction reverted")

// ValidationError wraps an input error with the offending field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// APIError is returned by the REST client for non-2xx responses.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error on %s: status %d", e.Path, e.StatusCode)
	}

	return fmt.Sprintf("API error on %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}
