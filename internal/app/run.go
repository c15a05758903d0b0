package app

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("network", a.cfg.Network),
		zap.Uint64("chain-id", a.cfg.ChainID),
		zap.Bool("trading", a.components.TradingEnabled()),
		zap.String("log-level", a.cfg.LogLevel))

	a.startComponents()

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("api-url", a.cfg.APIBaseURL))

	return a.waitForShutdown()
}

func (a *App) startComponents() {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	if a.balanceTracker != nil {
		a.wg.Add(1)
		go a.runBalanceTracker()
	}

	if a.components.Breaker != nil {
		a.wg.Add(1)
		go a.runBreaker()
	}

	if a.cfg.BalancePollInterval > 0 {
		a.wg.Add(1)
		go a.runCacheStats()
	}
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runBalanceTracker() {
	defer a.wg.Done()
	err := a.balanceTracker.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("balance-tracker-error", zap.Error(err))
	}
}

func (a *App) runBreaker() {
	defer a.wg.Done()
	err := a.components.Breaker.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("circuit-breaker-error", zap.Error(err))
	}
}

func (a *App) runCacheStats() {
	defer a.wg.Done()
	err := a.components.Cache.RunStats(a.ctx, a.cfg.BalancePollInterval)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("cache-stats-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
