package app

import (
	"context"
	"time"

	"github.com/mselser95/polkamarkets-trader/internal/execution"
	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application. An attempt still
// confirming is abandoned; its bundle may still land on chain.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Stops the balance tracker and the circuit breaker
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if snap := a.components.snapshotState(); snap != "" {
		a.logger.Warn("attempt-abandoned", zap.String("state", snap))
	}

	a.components.Close()

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}

func (c *Components) snapshotState() string {
	if c.Tracker == nil {
		return ""
	}

	snap := c.Tracker.Snapshot()
	if snap.State == execution.StateIdle || snap.State.Terminal() {
		return ""
	}
	return string(snap.State)
}
