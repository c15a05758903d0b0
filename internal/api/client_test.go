package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&Config{
		BaseURL:   server.URL,
		NetworkID: 11124,
		Logger:    zap.NewNop(),
	})
}

func TestClient_GetMarket(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/will-it-rain", r.URL.Path)
		assert.Equal(t, "11124", r.URL.Query().Get("network_id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 42,
			"slug": "will-it-rain",
			"title": "Will it rain?",
			"state": "open",
			"network_id": 11124,
			"outcomes": [
				{"id": 0, "market_id": 42, "title": "Yes", "price": "0.61"},
				{"id": 1, "market_id": 42, "title": "No", "price": 0.39}
			],
			"token": {"address": "0x1111111111111111111111111111111111111111", "symbol": "USDC", "decimals": 6}
		}`))
	})

	market, err := client.GetMarket(context.Background(), "will-it-rain")
	require.NoError(t, err)

	assert.Equal(t, uint64(42), market.ID)
	assert.Equal(t, uint64(11124), market.NetworkID)
	require.Len(t, market.Outcomes, 2)
	assert.Equal(t, uint64(42), market.Outcomes[1].MarketID)
	assert.True(t, market.Outcomes[0].Price.Equal(decimal.RequireFromString("0.61")))
	assert.True(t, market.Outcomes[1].Price.Equal(decimal.RequireFromString("0.39")))
	assert.Equal(t, uint8(6), market.Token.Decimals)
	assert.True(t, market.Tradeable())
}

func TestClient_GetMarket_EmptySlug(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.GetMarket(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "market not found", http.StatusNotFound)
	})

	_, err := client.GetMarket(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *types.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "/markets/missing", apiErr.Path)
	assert.Equal(t, "market not found", apiErr.Body)
}

func TestClient_ListMarkets_SinglePage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "open", q.Get("state"))
		assert.Equal(t, "10", q.Get("limit"))

		_, _ = w.Write([]byte(`[{"id":1,"slug":"a"},{"id":2,"slug":"b"}]`))
	})

	markets, err := client.ListMarkets(context.Background(), types.MarketFilter{State: "open", Limit: 10})
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "b", markets[1].Slug)
}

func TestClient_ListMarkets_Paginates(t *testing.T) {
	var requests atomic.Int32
	const total = 250

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		page := make([]map[string]interface{}, 0, limit)
		for i := offset; i < offset+limit && i < total; i++ {
			page = append(page, map[string]interface{}{"id": i, "slug": "m-" + strconv.Itoa(i)})
		}

		data, _ := json.Marshal(page)
		_, _ = w.Write(data)
	})

	markets, err := client.ListMarkets(context.Background(), types.MarketFilter{})
	require.NoError(t, err)
	assert.Len(t, markets, total)
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, uint64(249), markets[249].ID)
}

func TestClient_ListMarkets_LimitAboveOnePage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		page := make([]map[string]interface{}, limit)
		for i := range page {
			page[i] = map[string]interface{}{"id": i}
		}
		data, _ := json.Marshal(page)
		_, _ = w.Write(data)
	})

	markets, err := client.ListMarkets(context.Background(), types.MarketFilter{Limit: 150})
	require.NoError(t, err)
	assert.Len(t, markets, 150)
}

func TestClient_GetPortfolio(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portfolios/0xabcdef", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"open_value": "12.5",
			"positions": [
				{"market_id": 7, "outcome_id": 1, "shares": "3", "voided_winnings_to_claim": true}
			]
		}`))
	})

	portfolio, err := client.GetPortfolio(context.Background(), "0xABCDEF")
	require.NoError(t, err)

	assert.Equal(t, "0xABCDEF", portfolio.Address)
	assert.True(t, portfolio.OpenValue.Equal(decimal.RequireFromString("12.5")))
	require.Len(t, portfolio.Positions, 1)

	action, ok := portfolio.Positions[0].Claimable()
	assert.True(t, ok)
	assert.Equal(t, types.ActionClaimVoided, action)
}

func TestClient_GetUserEvents(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/0xabc/events", r.URL.Path)
		_, _ = w.Write([]byte(`[{"action":"buy","market_id":42,"transaction_hash":"0xdead"}]`))
	})

	events, err := client.GetUserEvents(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "0xdead", events[0].TransactionHash)
	assert.Equal(t, uint64(42), events[0].MarketID)
}

func TestClient_CalculateQuote_SendsSnakeCase(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/markets/42/quote", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Contains(t, got, "market_id")
		assert.Contains(t, got, "outcome_id")
		assert.Equal(t, float64(11124), got["network_id"])

		_, _ = w.Write([]byte(`{"shares":"15.2","price_from":"0.6","price_to":"0.66","average_price":"0.63","fee":"0.2"}`))
	})

	quote, err := client.CalculateQuote(context.Background(), types.QuoteRequest{
		MarketID:  42,
		OutcomeID: 0,
		Action:    types.ActionBuy,
		Value:     decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	assert.True(t, quote.Shares.Equal(decimal.RequireFromString("15.2")))
	assert.True(t, quote.AveragePrice.Equal(decimal.RequireFromString("0.63")))
}

func TestClient_Ping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[]`))
	})

	assert.NoError(t, client.Ping(context.Background()))
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/markets", "markets"},
		{"/markets/some-slug", "markets_detail"},
		{"/markets/42/quote", "markets_quote"},
		{"/portfolios/0xabc", "portfolios_detail"},
		{"/users/0xabc/events", "users_events"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, endpointLabel(tt.path))
		})
	}
}
