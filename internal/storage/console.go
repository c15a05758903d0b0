package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"go.uber.org/zap"
)

const rule = "------------------------------------------------------------"

// ConsoleStorage implements Storage by printing a summary of each attempt.
type ConsoleStorage struct {
	out    io.Writer
	logger *zap.Logger
}

// NewConsoleStorage creates a console storage writing to stdout.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	return NewConsoleStorageWriter(os.Stdout, logger)
}

// NewConsoleStorageWriter creates a console storage writing to out.
func NewConsoleStorageWriter(out io.Writer, logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		out:    out,
		logger: logger,
	}
}

// StoreAttempt prints the attempt.
func (c *ConsoleStorage) StoreAttempt(ctx context.Context, rec *types.AttemptRecord) error {
	var b strings.Builder

	b.WriteString("\n" + rule + "\n")
	fmt.Fprintf(&b, "%s %s\n", strings.ToUpper(rec.Kind), strings.ToUpper(rec.State))
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "ID:       %s\n", rec.ID)
	fmt.Fprintf(&b, "Market:   %d\n", rec.MarketID)
	if rec.OutcomeID != nil {
		fmt.Fprintf(&b, "Outcome:  %d\n", *rec.OutcomeID)
	}
	if !rec.Value.IsZero() {
		fmt.Fprintf(&b, "Value:    %s\n", rec.Value.String())
	}
	fmt.Fprintf(&b, "Account:  %s\n", rec.Account.Hex())
	if rec.BundleID != "" {
		fmt.Fprintf(&b, "Bundle:   %s\n", rec.BundleID)
	}
	if rec.TxHash != "" {
		fmt.Fprintf(&b, "Tx:       %s\n", rec.TxHash)
	}
	if rec.Error != "" {
		fmt.Fprintf(&b, "Error:    %s\n", rec.Error)
	}
	fmt.Fprintf(&b, "Duration: %s\n", rec.Duration().Round(time.Millisecond))
	b.WriteString(rule + "\n")

	_, err := io.WriteString(c.out, b.String())
	if err != nil {
		return fmt.Errorf("write attempt: %w", err)
	}

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
