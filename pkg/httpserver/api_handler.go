package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/mselser95/polkamarkets-trader/internal/circuitbreaker"
	"github.com/mselser95/polkamarkets-trader/internal/execution"
	"github.com/mselser95/polkamarkets-trader/internal/markets"
	"github.com/mselser95/polkamarkets-trader/internal/txbuilder"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultNotificationLimit = 20

// MarketReader serves the read side of the API.
type MarketReader interface {
	ListMarkets(ctx context.Context, filter types.MarketFilter) ([]types.Market, error)
	GetMarket(ctx context.Context, slug string) (*types.Market, error)
	Overview(ctx context.Context, address string) (*markets.Overview, error)
}

// AttemptRunner starts trades and claims and reports their progress.
type AttemptRunner interface {
	Trade(ctx context.Context, p types.TradeParams) (*execution.Attempt, error)
	Claim(ctx context.Context, p types.ClaimParams) (*execution.Attempt, error)
	Snapshot() execution.Snapshot
	LastAttempt() (types.AttemptRecord, bool)
}

// NotificationFeed returns recent notifications, newest first.
type NotificationFeed interface {
	Recent(n int) []execution.Notification
}

// BreakerStatus reports the balance circuit breaker state.
type BreakerStatus interface {
	Status() circuitbreaker.Status
}

// TradeDefaults fills the parts of a trade request the caller does not send.
type TradeDefaults struct {
	Contracts     txbuilder.Contracts
	TokenAddress  common.Address
	TokenDecimals uint8
	ReferralCode  string
	Slippage      decimal.Decimal
}

// APIHandler serves the trading API. Runner, Quoter, Feed and Breaker are
// optional; routes that need a missing one answer 503.
type APIHandler struct {
	markets  MarketReader
	runner   AttemptRunner
	quoter   execution.Quoter
	feed     NotificationFeed
	breaker  BreakerStatus
	defaults TradeDefaults
	logger   *zap.Logger
}

// APIConfig holds the API handler dependencies.
type APIConfig struct {
	Markets  MarketReader
	Runner   AttemptRunner
	Quoter   execution.Quoter
	Feed     NotificationFeed
	Breaker  BreakerStatus
	Defaults TradeDefaults
	Logger   *zap.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(cfg *APIConfig) *APIHandler {
	return &APIHandler{
		markets:  cfg.Markets,
		runner:   cfg.Runner,
		quoter:   cfg.Quoter,
		feed:     cfg.Feed,
		breaker:  cfg.Breaker,
		defaults: cfg.Defaults,
		logger:   cfg.Logger,
	}
}

// Routes mounts the API under r.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/markets", h.HandleListMarkets)
	r.Get("/markets/{slug}", h.HandleGetMarket)
	r.Get("/portfolio/{address}", h.HandlePortfolio)
	r.Post("/transactions/build", h.HandleBuild)
	r.Post("/trades", h.HandleTrade)
	r.Post("/claims", h.HandleClaim)
	r.Get("/attempt", h.HandleAttempt)
	r.Get("/notifications", h.HandleNotifications)
}

// ActionRequest is the body of the build, trade and claim endpoints.
type ActionRequest struct {
	Action          string              `json:"action"`
	MarketID        uint64              `json:"marketId"`
	OutcomeID       *uint64             `json:"outcomeId,omitempty"`
	Value           decimal.Decimal     `json:"value"`
	SharesThreshold decimal.NullDecimal `json:"sharesThreshold"`
}

// BuildResponse is the ordered call batch for an action.
type BuildResponse struct {
	Calls []types.CallJSON `json:"calls"`
}

// AttemptResponse acknowledges a started attempt.
type AttemptResponse struct {
	AttemptID string `json:"attemptId"`
	Kind      string `json:"kind"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
}

// AttemptStatusResponse is the tracker state, the last finished attempt and
// the circuit breaker state when one is running.
type AttemptStatusResponse struct {
	Current execution.Snapshot     `json:"current"`
	Last    *types.AttemptRecord   `json:"last,omitempty"`
	Breaker *circuitbreaker.Status `json:"breaker,omitempty"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleListMarkets handles GET /api/markets?state=&category=&limit=&offset=.
func (h *APIHandler) HandleListMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := types.MarketFilter{
		State:    q.Get("state"),
		Category: q.Get("category"),
	}

	var err error
	filter.Limit, err = intParam(q.Get("limit"))
	if err != nil {
		h.writeError(w, "invalid limit", http.StatusBadRequest)
		return
	}
	filter.Offset, err = intParam(q.Get("offset"))
	if err != nil {
		h.writeError(w, "invalid offset", http.StatusBadRequest)
		return
	}

	list, err := h.markets.ListMarkets(r.Context(), filter)
	if err != nil {
		h.writeUpstreamError(w, "list-markets-failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, list)
}

// HandleGetMarket handles GET /api/markets/{slug}.
func (h *APIHandler) HandleGetMarket(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	market, err := h.markets.GetMarket(r.Context(), slug)
	if err != nil {
		h.writeUpstreamError(w, "get-market-failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, market)
}

// HandlePortfolio handles GET /api/portfolio/{address}.
func (h *APIHandler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !common.IsHexAddress(address) {
		h.writeError(w, "invalid address", http.StatusBadRequest)
		return
	}

	overview, err := h.markets.Overview(r.Context(), address)
	if err != nil {
		h.writeUpstreamError(w, "get-portfolio-failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, overview)
}

// HandleBuild handles POST /api/transactions/build. Nothing is submitted.
func (h *APIHandler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAction(w, r)
	if !ok {
		return
	}

	var calls []types.Call
	var err error

	switch req.Action {
	case string(types.ActionBuy), string(types.ActionSell):
		var p types.TradeParams
		p, err = h.tradeParams(req)
		if err != nil {
			break
		}
		err = h.resolveThreshold(r.Context(), req, &p)
		if err != nil {
			h.writeUpstreamError(w, "quote-failed", err)
			return
		}
		calls, err = txbuilder.BuildTradeTransaction(p, h.defaults.Contracts)
	default:
		calls, err = txbuilder.BuildClaimTransaction(claimParams(req), h.defaults.Contracts)
	}

	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := BuildResponse{Calls: make([]types.CallJSON, 0, len(calls))}
	for _, c := range calls {
		resp.Calls = append(resp.Calls, c.JSON())
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleTrade handles POST /api/trades. A missing sharesThreshold is filled
// from a quote with the default slippage.
func (h *APIHandler) HandleTrade(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		h.writeError(w, "trading is not configured", http.StatusServiceUnavailable)
		return
	}

	req, ok := h.decodeAction(w, r)
	if !ok {
		return
	}

	p, err := h.tradeParams(req)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.resolveThreshold(r.Context(), req, &p)
	if err != nil {
		h.writeUpstreamError(w, "quote-failed", err)
		return
	}

	attempt, err := h.runner.Trade(r.Context(), p)
	h.writeAttempt(w, attempt, err)
}

// HandleClaim handles POST /api/claims.
func (h *APIHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		h.writeError(w, "trading is not configured", http.StatusServiceUnavailable)
		return
	}

	req, ok := h.decodeAction(w, r)
	if !ok {
		return
	}

	attempt, err := h.runner.Claim(r.Context(), claimParams(req))
	h.writeAttempt(w, attempt, err)
}

// HandleAttempt handles GET /api/attempt.
func (h *APIHandler) HandleAttempt(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		h.writeError(w, "trading is not configured", http.StatusServiceUnavailable)
		return
	}

	resp := AttemptStatusResponse{Current: h.runner.Snapshot()}
	if last, ok := h.runner.LastAttempt(); ok {
		resp.Last = &last
	}
	if h.breaker != nil {
		status := h.breaker.Status()
		resp.Breaker = &status
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleNotifications handles GET /api/notifications?limit=.
func (h *APIHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		h.writeJSON(w, http.StatusOK, []execution.Notification{})
		return
	}

	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, "invalid limit", http.StatusBadRequest)
		return
	}
	if limit == 0 {
		limit = defaultNotificationLimit
	}

	h.writeJSON(w, http.StatusOK, h.feed.Recent(limit))
}

func (h *APIHandler) decodeAction(w http.ResponseWriter, r *http.Request) (ActionRequest, bool) {
	var req ActionRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(&req)
	if err != nil {
		h.writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return req, false
	}

	req.Action = strings.ToLower(strings.TrimSpace(req.Action))
	return req, true
}

// tradeParams maps a buy or sell request and validates it. Both actions need
// an explicit outcome.
func (h *APIHandler) tradeParams(req ActionRequest) (types.TradeParams, error) {
	p := types.TradeParams{
		Action:          types.TradeAction(req.Action),
		MarketID:        req.MarketID,
		Value:           req.Value,
		SharesThreshold: req.SharesThreshold.Decimal,
		TokenAddress:    h.defaults.TokenAddress,
		TokenDecimals:   h.defaults.TokenDecimals,
		ReferralCode:    h.defaults.ReferralCode,
	}

	err := p.Validate()
	if err != nil {
		return p, err
	}

	if req.OutcomeID == nil {
		return p, &types.ValidationError{Field: "outcomeId", Err: types.ErrMissingOutcome}
	}
	p.OutcomeID = *req.OutcomeID

	return p, nil
}

// resolveThreshold quotes a threshold when the request left it out. Without
// a quoter the threshold stays zero.
func (h *APIHandler) resolveThreshold(ctx context.Context, req ActionRequest, p *types.TradeParams) error {
	if req.SharesThreshold.Valid || h.quoter == nil {
		return nil
	}

	return execution.ApplyQuotedThreshold(ctx, h.quoter, p, h.defaults.Slippage)
}

func claimParams(req ActionRequest) types.ClaimParams {
	return types.ClaimParams{
		Action:    types.ClaimAction(req.Action),
		MarketID:  req.MarketID,
		OutcomeID: req.OutcomeID,
	}
}

func (h *APIHandler) writeAttempt(w http.ResponseWriter, attempt *execution.Attempt, err error) {
	var validation *types.ValidationError

	switch {
	case err == nil:
		rec := attempt.Record()
		h.writeJSON(w, http.StatusAccepted, AttemptResponse{
			AttemptID: rec.ID,
			Kind:      rec.Kind,
			State:     rec.State,
			Error:     rec.Error,
		})
	case errors.As(err, &validation):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, execution.ErrAttemptInProgress):
		h.writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, execution.ErrTrackerClosed), errors.Is(err, types.ErrBuysPaused):
		h.writeError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.logger.Error("attempt-start-failed", zap.Error(err))
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *APIHandler) writeUpstreamError(w http.ResponseWriter, event string, err error) {
	var apiErr *types.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		h.writeError(w, "not found", http.StatusNotFound)
		return
	}

	h.logger.Warn(event, zap.Error(err))
	h.writeError(w, err.Error(), http.StatusBadGateway)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("must be a non-negative integer")
	}
	return n, nil
}
