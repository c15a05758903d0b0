// Package app wires configuration into running components for the daemon
// and the one-shot CLI commands.
package app

import (
	"context"
	"sync"

	"github.com/mselser95/polkamarkets-trader/internal/api"
	"github.com/mselser95/polkamarkets-trader/internal/circuitbreaker"
	"github.com/mselser95/polkamarkets-trader/internal/execution"
	"github.com/mselser95/polkamarkets-trader/internal/markets"
	"github.com/mselser95/polkamarkets-trader/internal/notify"
	"github.com/mselser95/polkamarkets-trader/internal/storage"
	"github.com/mselser95/polkamarkets-trader/pkg/cache"
	"github.com/mselser95/polkamarkets-trader/pkg/config"
	"github.com/mselser95/polkamarkets-trader/pkg/healthcheck"
	"github.com/mselser95/polkamarkets-trader/pkg/httpserver"
	"github.com/mselser95/polkamarkets-trader/pkg/wallet"
	"go.uber.org/zap"
)

// App is the long-running daemon: the HTTP API, the attempt tracker and
// the balance tracker.
type App struct {
	cfg            *config.Config
	logger         *zap.Logger
	components     *Components
	healthChecker  *healthcheck.HealthChecker
	httpServer     *httpserver.Server
	balanceTracker *wallet.Tracker
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// Components are the pieces shared by the daemon and the CLI. Wallet,
// Reader and Tracker are nil when trading is not configured. Breaker is nil
// unless BREAKER_ENABLED is set.
type Components struct {
	Config  *config.Config
	Cache   *cache.RistrettoCache
	API     *api.Client
	Markets *markets.Service
	Reader  *wallet.Reader
	Wallet  wallet.Adapter
	Breaker *circuitbreaker.BalanceCircuitBreaker
	Tracker *execution.Tracker
	Feed    *notify.Feed
	Storage storage.Storage

	closers []func()
	logger  *zap.Logger
}

// TradingEnabled reports whether trades and claims can be submitted.
func (c *Components) TradingEnabled() bool {
	return c.Tracker != nil
}
