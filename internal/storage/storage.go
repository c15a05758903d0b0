// Package storage journals finished trade and claim attempts.
package storage

import (
	"context"

	"github.com/mselser95/polkamarkets-trader/pkg/types"
)

// Storage is the interface for persisting attempt records.
type Storage interface {
	// StoreAttempt persists a finished attempt.
	StoreAttempt(ctx context.Context, rec *types.AttemptRecord) error

	// Close closes the storage connection.
	Close() error
}

// NoopStorage discards every record.
type NoopStorage struct{}

// StoreAttempt does nothing.
func (NoopStorage) StoreAttempt(context.Context, *types.AttemptRecord) error { return nil }

// Close does nothing.
func (NoopStorage) Close() error { return nil }
