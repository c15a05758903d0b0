// Package testutil provides fixtures and fakes shared by package tests.
package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/mselser95/polkamarkets-trader/pkg/casing"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/shopspring/decimal"
)

// MockPolkamarketsAPI is an httptest server that serves the REST endpoints
// the client reads, with snake_case keys like the real API.
type MockPolkamarketsAPI struct {
	*httptest.Server

	mu         sync.RWMutex
	markets    []*types.Market
	portfolios map[string]*types.Portfolio
	events     map[string][]types.UserEvent
	quotePrice decimal.Decimal
	requests   map[string]int
}

// NewMockPolkamarketsAPI starts a mock API serving the given markets.
// Quotes price every outcome at 0.5 until SetQuotePrice is called.
func NewMockPolkamarketsAPI(markets ...*types.Market) *MockPolkamarketsAPI {
	mock := &MockPolkamarketsAPI{
		markets:    markets,
		portfolios: make(map[string]*types.Portfolio),
		events:     make(map[string][]types.UserEvent),
		quotePrice: decimal.RequireFromString("0.5"),
		requests:   make(map[string]int),
	}
	mock.Server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

func (m *MockPolkamarketsAPI) serve(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	m.mu.Lock()
	m.requests[r.URL.Path]++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case r.Method == http.MethodGet && len(parts) == 1 && parts[0] == "markets":
		m.writeJSON(w, m.listMarkets(r))
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "markets":
		for _, market := range m.markets {
			if market.Slug == parts[1] {
				m.writeJSON(w, market)
				return
			}
		}
		http.NotFound(w, r)
	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "markets" && parts[2] == "quote":
		m.quote(w, r)
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "portfolios":
		portfolio, ok := m.portfolios[parts[1]]
		if !ok {
			portfolio = &types.Portfolio{Address: parts[1], Positions: []types.Position{}}
		}
		m.writeJSON(w, portfolio)
	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "users" && parts[2] == "events":
		events := m.events[parts[1]]
		if events == nil {
			events = []types.UserEvent{}
		}
		m.writeJSON(w, events)
	default:
		http.NotFound(w, r)
	}
}

func (m *MockPolkamarketsAPI) listMarkets(r *http.Request) []*types.Market {
	query := r.URL.Query()
	state := query.Get("state")
	category := query.Get("category")

	filtered := make([]*types.Market, 0, len(m.markets))
	for _, market := range m.markets {
		if state != "" && market.State != state {
			continue
		}
		if category != "" && !strings.EqualFold(market.Category, category) {
			continue
		}
		filtered = append(filtered, market)
	}

	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset >= len(filtered) {
		return []*types.Market{}
	}
	filtered = filtered[offset:]

	limit, err := strconv.Atoi(query.Get("limit"))
	if err == nil && limit > 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}
	return filtered
}

func (m *MockPolkamarketsAPI) quote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value decimal.Decimal `json:"value"`
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.writeJSON(w, &types.Quote{
		Shares:       req.Value.Div(m.quotePrice),
		PriceFrom:    m.quotePrice,
		PriceTo:      m.quotePrice,
		AveragePrice: m.quotePrice,
	})
}

func (m *MockPolkamarketsAPI) writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := casing.MarshalSnake(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// AddMarket adds a market to the mock API.
func (m *MockPolkamarketsAPI) AddMarket(market *types.Market) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markets = append(m.markets, market)
}

// SetPortfolio serves p for its lower-cased address.
func (m *MockPolkamarketsAPI) SetPortfolio(p *types.Portfolio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portfolios[strings.ToLower(p.Address)] = p
}

// SetEvents serves events for address.
func (m *MockPolkamarketsAPI) SetEvents(address string, events []types.UserEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[strings.ToLower(address)] = events
}

// SetQuotePrice sets the flat price used for quotes.
func (m *MockPolkamarketsAPI) SetQuotePrice(price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotePrice = price
}

// Requests returns how many requests hit path.
func (m *MockPolkamarketsAPI) Requests(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[path]
}

// MockStorage is an in-memory attempt journal.
type MockStorage struct {
	Err error

	mu       sync.Mutex
	attempts []types.AttemptRecord
	closed   bool
}

// NewMockStorage creates an empty journal.
func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

// StoreAttempt records a copy of rec and returns Err.
func (m *MockStorage) StoreAttempt(_ context.Context, rec *types.AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, *rec)
	return m.Err
}

// Close marks the journal closed.
func (m *MockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Attempts returns the stored records in order.
func (m *MockStorage) Attempts() []types.AttemptRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]types.AttemptRecord, len(m.attempts))
	copy(result, m.attempts)
	return result
}

// Closed reports whether Close was called.
func (m *MockStorage) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
