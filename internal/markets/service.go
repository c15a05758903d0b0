// Package markets serves cached market and portfolio reads and drops them
// when a confirmed transaction makes them stale.
package markets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mselser95/polkamarkets-trader/pkg/cache"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Cache key prefixes. Every market read lives under marketsPrefix so a single
// prefix delete drops them all.
const (
	marketsPrefix   = "markets:"
	portfolioPrefix = "portfolio:"
	eventsPrefix    = "events:"
)

// Source is the upstream the service reads through.
type Source interface {
	ListMarkets(ctx context.Context, filter types.MarketFilter) ([]types.Market, error)
	GetMarket(ctx context.Context, slug string) (*types.Market, error)
	GetPortfolio(ctx context.Context, address string) (*types.Portfolio, error)
	GetUserEvents(ctx context.Context, address string) ([]types.UserEvent, error)
	CalculateQuote(ctx context.Context, req types.QuoteRequest) (*types.Quote, error)
}

// Service wraps a Source with a TTL cache.
type Service struct {
	source Source
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// Config holds configuration for the service.
type Config struct {
	Source Source
	Cache  cache.Cache // nil disables caching
	TTL    time.Duration
	Logger *zap.Logger
}

// Overview is a user's portfolio together with their trading history.
type Overview struct {
	Portfolio *types.Portfolio  `json:"portfolio"`
	Events    []types.UserEvent `json:"events"`
}

// New creates a new market service.
func New(cfg *Config) *Service {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &Service{
		source: cfg.Source,
		cache:  cfg.Cache,
		ttl:    ttl,
		logger: cfg.Logger,
	}
}

// ListMarkets returns markets matching filter.
func (s *Service) ListMarkets(ctx context.Context, filter types.MarketFilter) ([]types.Market, error) {
	key := fmt.Sprintf("%slist:%s:%s:%d:%d", marketsPrefix, filter.State, filter.Category, filter.Limit, filter.Offset)

	if cached, ok := s.lookup(key); ok {
		if markets, ok := cached.([]types.Market); ok {
			return markets, nil
		}
	}

	start := time.Now()
	markets, err := s.source.ListMarkets(ctx, filter)
	FetchDurationSeconds.WithLabelValues("markets").Observe(time.Since(start).Seconds())
	if err != nil {
		FetchErrorsTotal.WithLabelValues("markets").Inc()
		return nil, fmt.Errorf("list markets: %w", err)
	}

	s.store(key, markets)
	return markets, nil
}

// GetMarket returns the market with the given slug.
func (s *Service) GetMarket(ctx context.Context, slug string) (*types.Market, error) {
	key := marketsPrefix + "slug:" + slug

	if cached, ok := s.lookup(key); ok {
		if market, ok := cached.(*types.Market); ok {
			return market, nil
		}
	}

	start := time.Now()
	market, err := s.source.GetMarket(ctx, slug)
	FetchDurationSeconds.WithLabelValues("market").Observe(time.Since(start).Seconds())
	if err != nil {
		FetchErrorsTotal.WithLabelValues("market").Inc()
		return nil, fmt.Errorf("get market %s: %w", slug, err)
	}

	s.store(key, market)
	return market, nil
}

// GetPortfolio returns the positions held by address.
func (s *Service) GetPortfolio(ctx context.Context, address string) (*types.Portfolio, error) {
	key := portfolioPrefix + normalizeAddress(address)

	if cached, ok := s.lookup(key); ok {
		if portfolio, ok := cached.(*types.Portfolio); ok {
			return portfolio, nil
		}
	}

	start := time.Now()
	portfolio, err := s.source.GetPortfolio(ctx, address)
	FetchDurationSeconds.WithLabelValues("portfolio").Observe(time.Since(start).Seconds())
	if err != nil {
		FetchErrorsTotal.WithLabelValues("portfolio").Inc()
		return nil, fmt.Errorf("get portfolio %s: %w", address, err)
	}

	portfolio.RefreshedAt = time.Now().UTC()
	s.store(key, portfolio)
	return portfolio, nil
}

// GetUserEvents returns the trading history of address.
func (s *Service) GetUserEvents(ctx context.Context, address string) ([]types.UserEvent, error) {
	key := eventsPrefix + normalizeAddress(address)

	if cached, ok := s.lookup(key); ok {
		if events, ok := cached.([]types.UserEvent); ok {
			return events, nil
		}
	}

	start := time.Now()
	events, err := s.source.GetUserEvents(ctx, address)
	FetchDurationSeconds.WithLabelValues("events").Observe(time.Since(start).Seconds())
	if err != nil {
		FetchErrorsTotal.WithLabelValues("events").Inc()
		return nil, fmt.Errorf("get events %s: %w", address, err)
	}

	s.store(key, events)
	return events, nil
}

// Overview fetches the portfolio and the event history of address concurrently.
func (s *Service) Overview(ctx context.Context, address string) (*Overview, error) {
	var overview Overview

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		portfolio, err := s.GetPortfolio(gctx, address)
		if err != nil {
			return err
		}
		overview.Portfolio = portfolio
		return nil
	})
	g.Go(func() error {
		events, err := s.GetUserEvents(gctx, address)
		if err != nil {
			return err
		}
		overview.Events = events
		return nil
	})

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return &overview, nil
}

// Quote asks the upstream for a trade estimate. Quotes are never cached.
func (s *Service) Quote(ctx context.Context, req types.QuoteRequest) (*types.Quote, error) {
	quote, err := s.source.CalculateQuote(ctx, req)
	if err != nil {
		FetchErrorsTotal.WithLabelValues("quote").Inc()
		return nil, fmt.Errorf("calculate quote: %w", err)
	}

	return quote, nil
}

// InvalidateMarkets drops every cached market read.
func (s *Service) InvalidateMarkets() {
	if s.cache == nil {
		return
	}

	removed := s.cache.DeletePrefix(marketsPrefix)
	InvalidationsTotal.WithLabelValues("markets").Inc()

	s.logger.Debug("markets-invalidated", zap.Int("keys", removed))
}

// InvalidateAccount drops the cached portfolio and event history of address.
func (s *Service) InvalidateAccount(address string) {
	if s.cache == nil {
		return
	}

	addr := normalizeAddress(address)
	s.cache.Delete(portfolioPrefix + addr)
	s.cache.Delete(eventsPrefix + addr)
	InvalidationsTotal.WithLabelValues("account").Inc()

	s.logger.Debug("account-invalidated", zap.String("address", addr))
}

func (s *Service) lookup(key string) (interface{}, bool) {
	if s.cache == nil {
		return nil, false
	}

	value, ok := s.cache.Get(key)
	if ok {
		ReadCacheHitsTotal.Inc()
	} else {
		ReadCacheMissesTotal.Inc()
	}
	return value, ok
}

func (s *Service) store(key string, value interface{}) {
	if s.cache == nil {
		return
	}

	s.cache.Set(key, value, s.ttl)
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
