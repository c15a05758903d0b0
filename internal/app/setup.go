package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mselser95/polkamarkets-trader/internal/api"
	"github.com/mselser95/polkamarkets-trader/internal/circuitbreaker"
	"github.com/mselser95/polkamarkets-trader/internal/execution"
	"github.com/mselser95/polkamarkets-trader/internal/markets"
	"github.com/mselser95/polkamarkets-trader/internal/notify"
	"github.com/mselser95/polkamarkets-trader/internal/storage"
	"github.com/mselser95/polkamarkets-trader/internal/txbuilder"
	"github.com/mselser95/polkamarkets-trader/pkg/cache"
	"github.com/mselser95/polkamarkets-trader/pkg/config"
	"github.com/mselser95/polkamarkets-trader/pkg/healthcheck"
	"github.com/mselser95/polkamarkets-trader/pkg/httpserver"
	"github.com/mselser95/polkamarkets-trader/pkg/wallet"
	"go.uber.org/zap"
)

const feedSize = 50

// Options holds component options.
type Options struct {
	RequireTrading bool // fail instead of running read-only when wallet settings are missing
}

// New creates the daemon. Trading is enabled when the wallet settings are
// complete; otherwise the API serves reads only.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	components, err := NewComponents(ctx, cfg, logger, &Options{})
	if err != nil {
		cancel()
		return nil, err
	}

	healthChecker := setupHealthChecker(components)

	balanceTracker, err := setupBalanceTracker(cfg, logger, components)
	if err != nil {
		components.Close()
		cancel()
		return nil, fmt.Errorf("setup balance tracker: %w", err)
	}

	httpServer := setupHTTPServer(cfg, logger, healthChecker, components)

	return &App{
		cfg:            cfg,
		logger:         logger,
		components:     components,
		healthChecker:  healthChecker,
		httpServer:     httpServer,
		balanceTracker: balanceTracker,
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}

// NewComponents builds the cache, API client, market service and, when the
// wallet settings allow it, the wallet, attempt journal and tracker.
func NewComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts *Options) (*Components, error) {
	if opts == nil {
		opts = &Options{}
	}

	c := &Components{Config: cfg, logger: logger}

	readCache, err := setupCache(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup cache: %w", err)
	}
	c.Cache = readCache
	c.closers = append(c.closers, readCache.Close)

	c.API = setupAPIClient(cfg, logger)
	c.Markets = setupMarketService(cfg, logger, c.API, readCache)
	c.Feed = notify.NewFeed(feedSize)

	tradingErr := cfg.ValidateTrading()
	if tradingErr != nil {
		if opts.RequireTrading {
			c.Close()
			return nil, tradingErr
		}
		logger.Warn("trading-disabled", zap.String("reason", tradingErr.Error()))
		return c, nil
	}

	err = c.setupWallet(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("setup wallet: %w", err)
	}

	c.Storage, err = setupStorage(ctx, cfg, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("setup storage: %w", err)
	}
	c.closers = append(c.closers, func() {
		closeErr := c.Storage.Close()
		if closeErr != nil {
			logger.Error("storage-close-error", zap.Error(closeErr))
		}
	})

	c.Breaker, err = setupBreaker(cfg, logger, c)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	c.Tracker, err = setupTracker(cfg, logger, c)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("setup tracker: %w", err)
	}
	c.closers = append(c.closers, c.Tracker.Close)

	logger.Info("trading-enabled",
		zap.String("wallet-mode", cfg.WalletMode),
		zap.String("account", c.Wallet.Account().Hex()),
		zap.String("network", cfg.Network))

	return c, nil
}

// Close releases components in reverse creation order.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Components) setupWallet(ctx context.Context) error {
	cfg := c.Config

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("dial RPC %s: %w", cfg.RPCURL, err)
	}
	c.closers = append(c.closers, client.Close)

	c.Reader, err = wallet.NewReader(client, c.logger)
	if err != nil {
		return err
	}

	err = checkTokenDecimals(ctx, c.Reader, cfg.Token(), cfg.TokenDecimals, c.logger)
	if err != nil {
		return err
	}

	switch cfg.WalletMode {
	case config.WalletModeBatch:
		w, rpcClient, dialErr := wallet.DialBatchWallet(ctx, cfg.WalletRPCURL, &wallet.BatchConfig{
			Reader:  c.Reader,
			Account: common.HexToAddress(cfg.AccountAddress),
			ChainID: cfg.ChainID,
			Logger:  c.logger,
		})
		if dialErr != nil {
			return dialErr
		}
		c.closers = append(c.closers, rpcClient.Close)
		c.Wallet = w
	default:
		w, keyErr := wallet.NewKeyWallet(&wallet.KeyConfig{
			Backend:     client,
			PrivateKey:  cfg.PrivateKey,
			ChainID:     cfg.ChainID,
			FallbackGas: cfg.FallbackGas,
			Logger:      c.logger,
		})
		if keyErr != nil {
			return keyErr
		}
		c.Wallet = w
	}

	return nil
}

const decimalsCheckTimeout = 5 * time.Second

type decimalsReader interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// checkTokenDecimals compares TOKEN_DECIMALS with the token contract. A
// mismatch scales every amount by the wrong power of ten. An unreachable node
// only logs; the wallet reports the same failure on first use.
func checkTokenDecimals(ctx context.Context, r decimalsReader, token common.Address, configured uint8, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, decimalsCheckTimeout)
	defer cancel()

	onChain, err := r.Decimals(ctx, token)
	if err != nil {
		logger.Warn("token-decimals-unverified",
			zap.String("token", token.Hex()),
			zap.Uint8("configured", configured),
			zap.Error(err))
		return nil
	}

	if onChain != configured {
		return fmt.Errorf("TOKEN_DECIMALS is %d but token %s reports %d", configured, token.Hex(), onChain)
	}

	logger.Debug("token-decimals-verified", zap.String("token", token.Hex()), zap.Uint8("decimals", onChain))
	return nil
}

func setupHealthChecker(c *Components) *healthcheck.HealthChecker {
	hc := healthcheck.New()
	hc.Register("api", c.API.Ping)
	if c.Reader != nil {
		account := c.Wallet.Account()
		hc.Register("rpc", func(ctx context.Context) error {
			_, err := c.Reader.NativeBalance(ctx, account)
			return err
		})
	}
	if pinger, ok := c.Storage.(interface{ Ping(context.Context) error }); ok {
		hc.Register("storage", pinger.Ping)
	}
	return hc
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthcheck.HealthChecker,
	c *Components,
) *httpserver.Server {
	apiCfg := &httpserver.APIConfig{
		Markets: c.Markets,
		Quoter:  c.Markets,
		Feed:    c.Feed,
		Defaults: httpserver.TradeDefaults{
			Contracts:     contracts(cfg),
			TokenAddress:  cfg.Token(),
			TokenDecimals: cfg.TokenDecimals,
			ReferralCode:  cfg.ReferralCode,
			Slippage:      cfg.DefaultSlippage,
		},
		Logger: logger,
	}
	if c.Tracker != nil {
		apiCfg.Runner = c.Tracker
	}
	if c.Breaker != nil {
		apiCfg.Breaker = c.Breaker
	}

	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		API:           httpserver.NewAPIHandler(apiCfg),
	})
}

func setupCache(cfg *config.Config, logger *zap.Logger) (*cache.RistrettoCache, error) {
	maxItems := cfg.CacheMaxItems
	if maxItems <= 0 {
		maxItems = 1000
	}

	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupAPIClient(cfg *config.Config, logger *zap.Logger) *api.Client {
	return api.NewClient(&api.Config{
		BaseURL:   cfg.APIBaseURL,
		NetworkID: cfg.ChainID,
		Timeout:   cfg.APITimeout,
		Logger:    logger,
	})
}

func setupMarketService(cfg *config.Config, logger *zap.Logger, client *api.Client, readCache cache.Cache) *markets.Service {
	return markets.New(&markets.Config{
		Source: client,
		Cache:  readCache,
		TTL:    cfg.CacheTTL,
		Logger: logger,
	})
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.StorageMode {
	case config.StorageModePostgres:
		pgStorage, err := storage.NewPostgresStorage(ctx, &storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	case config.StorageModeNone:
		return storage.NoopStorage{}, nil
	default:
		return storage.NewConsoleStorage(logger), nil
	}
}

func setupBreaker(cfg *config.Config, logger *zap.Logger, c *Components) (*circuitbreaker.BalanceCircuitBreaker, error) {
	if !cfg.BreakerEnabled {
		return nil, nil
	}

	return circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.BreakerCheckInterval,
		TradeMultiplier: cfg.BreakerTradeMultiplier,
		MinAbsolute:     cfg.BreakerMinBalance,
		HysteresisRatio: cfg.BreakerHysteresisRatio,
		Reader:          c.Reader,
		Token:           cfg.Token(),
		TokenDecimals:   cfg.TokenDecimals,
		Account:         c.Wallet.Account(),
		Logger:          logger,
	})
}

func setupTracker(cfg *config.Config, logger *zap.Logger, c *Components) (*execution.Tracker, error) {
	trackerCfg := &execution.Config{
		Wallet:       c.Wallet,
		Contracts:    contracts(cfg),
		Invalidator:  c.Markets,
		Notifier:     notify.Multi{notify.NewLogNotifier(logger), c.Feed},
		Recorder:     c.Storage,
		PollInterval: cfg.BundlePollInterval,
		ResetDelay:   cfg.AttemptResetDelay,
		TxURL:        cfg.TxURL,
		CheckBalance: true,
		Logger:       logger,
	}
	if c.Breaker != nil {
		trackerCfg.Guard = c.Breaker
	}

	return execution.New(trackerCfg)
}

func setupBalanceTracker(cfg *config.Config, logger *zap.Logger, c *Components) (*wallet.Tracker, error) {
	if c.Reader == nil || cfg.BalancePollInterval <= 0 {
		return nil, nil
	}

	return wallet.New(&wallet.Config{
		Reader:        c.Reader,
		Portfolio:     c.Markets,
		Address:       c.Wallet.Account(),
		Token:         cfg.Token(),
		Spender:       cfg.PredictionMarket(),
		TokenDecimals: cfg.TokenDecimals,
		PollInterval:  cfg.BalancePollInterval,
		Logger:        logger,
	})
}

func contracts(cfg *config.Config) txbuilder.Contracts {
	return txbuilder.Contracts{PredictionMarket: cfg.PredictionMarket()}
}
