// Package api is a client for the prediction market REST backend.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mselser95/polkamarkets-trader/pkg/casing"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"go.uber.org/zap"
)

const (
	// MaxPageSize is the largest page the API serves per request.
	MaxPageSize = 100

	userAgent = "polkamarkets-trader/1.0"
)

// Client is an HTTP client for the markets REST API. Request bodies are sent
// with snake_case keys and responses are re-keyed to camelCase before decoding.
type Client struct {
	baseURL    string
	networkID  uint64
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds the client settings.
type Config struct {
	BaseURL   string
	NetworkID uint64
	Timeout   time.Duration
	Logger    *zap.Logger
}

// NewClient creates a new REST API client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		networkID: cfg.NetworkID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: cfg.Logger,
	}
}

// ListMarkets fetches markets matching the filter. A limit above MaxPageSize
// is served by paging through consecutive requests.
func (c *Client) ListMarkets(ctx context.Context, filter types.MarketFilter) ([]types.Market, error) {
	limit := filter.Limit
	if limit > 0 && limit <= MaxPageSize {
		return c.fetchMarketPage(ctx, filter)
	}

	var (
		all     []types.Market
		page    = filter
		fetched = 0
	)

	for {
		page.Limit = MaxPageSize
		if limit > 0 && limit-fetched < MaxPageSize {
			page.Limit = limit - fetched
		}

		markets, err := c.fetchMarketPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetch page at offset %d: %w", page.Offset, err)
		}

		all = append(all, markets...)
		fetched += len(markets)

		if len(markets) < page.Limit || (limit > 0 && fetched >= limit) {
			break
		}

		page.Offset += len(markets)
	}

	c.logger.Debug("fetched-markets-paginated",
		zap.Int("total", len(all)),
		zap.Int("requested-limit", limit))

	return all, nil
}

func (c *Client) fetchMarketPage(ctx context.Context, filter types.MarketFilter) ([]types.Market, error) {
	params := url.Values{}
	if filter.State != "" {
		params.Set("state", filter.State)
	}
	if filter.Category != "" {
		params.Set("category", filter.Category)
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		params.Set("offset", strconv.Itoa(filter.Offset))
	}

	var markets []types.Market
	err := c.get(ctx, "/markets", params, &markets)
	if err != nil {
		return nil, err
	}

	MarketsFetchedTotal.Add(float64(len(markets)))

	return markets, nil
}

// GetMarket fetches a single market by slug.
func (c *Client) GetMarket(ctx context.Context, slug string) (*types.Market, error) {
	if slug == "" {
		return nil, fmt.Errorf("market slug is required")
	}

	var market types.Market
	err := c.get(ctx, "/markets/"+url.PathEscape(slug), nil, &market)
	if err != nil {
		return nil, err
	}

	return &market, nil
}

// GetPortfolio fetches the positions held by an address.
func (c *Client) GetPortfolio(ctx context.Context, address string) (*types.Portfolio, error) {
	var portfolio types.Portfolio
	err := c.get(ctx, "/portfolios/"+url.PathEscape(strings.ToLower(address)), nil, &portfolio)
	if err != nil {
		return nil, err
	}

	if portfolio.Address == "" {
		portfolio.Address = address
	}

	return &portfolio, nil
}

// GetUserEvents fetches the trading history of an address.
func (c *Client) GetUserEvents(ctx context.Context, address string) ([]types.UserEvent, error) {
	var events []types.UserEvent
	err := c.get(ctx, "/users/"+url.PathEscape(strings.ToLower(address))+"/events", nil, &events)
	if err != nil {
		return nil, err
	}

	return events, nil
}

// CalculateQuote asks the API how many shares a trade would move.
func (c *Client) CalculateQuote(ctx context.Context, req types.QuoteRequest) (*types.Quote, error) {
	if req.NetworkID == 0 {
		req.NetworkID = c.networkID
	}

	var quote types.Quote
	err := c.post(ctx, fmt.Sprintf("/markets/%d/quote", req.MarketID), req, &quote)
	if err != nil {
		return nil, err
	}

	return &quote, nil
}

// Ping checks that the API answers.
func (c *Client) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("limit", "1")

	var markets []types.Market
	return c.get(ctx, "/markets", params, &markets)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	if c.networkID != 0 {
		params.Set("network_id", strconv.FormatUint(c.networkID, 10))
	}

	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	return c.do(req, path, out)
}

func (c *Client) post(ctx context.Context, path string, in interface{}, out interface{}) error {
	body, err := casing.MarshalSnake(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	endpoint := endpointLabel(path)
	start := time.Now()

	c.logger.Debug("api-request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()))

	resp, err := c.httpClient.Do(req)
	RequestDurationSeconds.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		RequestErrorsTotal.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		RequestErrorsTotal.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		RequestErrorsTotal.WithLabelValues(endpoint).Inc()
		return &types.APIError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	err = casing.UnmarshalCamel(body, out)
	if err != nil {
		RequestErrorsTotal.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}

// endpointLabel collapses path parameters so metric cardinality stays bounded.
func endpointLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 1:
		return parts[0]
	case parts[0] == "markets" && len(parts) == 3:
		return "markets_" + parts[2]
	case parts[0] == "users" && len(parts) == 3:
		return "users_" + parts[2]
	default:
		return parts[0] + "_detail"
	}
}
