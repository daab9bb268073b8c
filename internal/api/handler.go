// Package api provides the HTTP surface over the settlement core: team and
// fixture management, order placement, portfolio queries, and the audit
// endpoints. Handlers are thin; all invariants live in the settlement
// service and the store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/ledger"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/limits"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/market"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/metrics"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/position"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/settlement"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/store"
)

// Handler exposes the settlement core over HTTP.
type Handler struct {
	store  store.Store
	settle *settlement.Service
	hub    *WSHub // optional; nil disables broadcasts
}

// NewHandler creates an API handler. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewHandler(st store.Store, settle *settlement.Service, hub *WSHub) *Handler {
	return &Handler{store: st, settle: settle, hub: hub}
}

// Mount registers all routes on the given router.
func (h *Handler) Mount(r chi.Router) {
	if h.hub != nil {
		r.Get("/ws", h.hub.HandleWS)
	}

	r.Get("/teams", h.ListTeams)
	r.Post("/teams", h.CreateTeam)
	r.Get("/teams/{teamID}", h.GetTeam)
	r.Get("/teams/{teamID}/price", h.GetPrice)
	r.Get("/teams/{teamID}/ledger", h.GetLedger)
	r.Get("/teams/{teamID}/audit", h.AuditLedger)
	r.Post("/teams/{teamID}/adjust", h.AdjustMarketCap)

	r.Post("/orders/buy", h.Buy)
	r.Post("/orders/sell", h.Sell)
	r.Get("/users/{userID}/orders", h.ListUserOrders)
	r.Get("/portfolio/{userID}", h.GetPortfolio)

	r.Post("/fixtures", h.CreateFixture)
	r.Get("/fixtures/{fixtureID}", h.GetFixture)
	r.Post("/fixtures/{fixtureID}/result", h.SetFixtureResult)
	r.Post("/fixtures/{fixtureID}/apply", h.ApplyFixture)

	r.Post("/wallets", h.CreateWallet)
	r.Get("/wallets/{userID}", h.GetWallet)
}

// --- Request/Response types ---

// TradeRequest is the JSON body for POST /orders/buy and /orders/sell.
// ExpectedPriceCents is the price the caller was quoted; settlement rejects
// the trade if the live price has drifted beyond tolerance.
type TradeRequest struct {
	UserID             string `json:"user_id"`
	TeamID             string `json:"team_id"`
	Quantity           int64  `json:"quantity"`
	ExpectedPriceCents int64  `json:"expected_price_cents"`
}

// CreateTeamRequest is the JSON body for team creation.
type CreateTeamRequest struct {
	Name           string `json:"name"`
	MarketCapCents int64  `json:"market_cap_cents"`
	TotalShares    int64  `json:"total_shares"` // 0 → default 1000
	IsTradeable    *bool  `json:"is_tradeable,omitempty"`
}

// CreateFixtureRequest is the JSON body for fixture creation. The buy
// window closes a fixed offset before kickoff.
type CreateFixtureRequest struct {
	HomeTeamID        string    `json:"home_team_id"`
	AwayTeamID        string    `json:"away_team_id"`
	KickoffAt         time.Time `json:"kickoff_at"`
	BuyCloseOffsetMin int       `json:"buy_close_offset_minutes"` // 0 → default 60
}

// FixtureResultRequest records a final score; the result is derived from
// the scores.
type FixtureResultRequest struct {
	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`
}

// CreateWalletRequest seeds a user wallet.
type CreateWalletRequest struct {
	UserID              string `json:"user_id"`
	InitialBalanceCents int64  `json:"initial_balance_cents"`
}

// AdjustRequest is the JSON body for a manual market-cap adjustment.
type AdjustRequest struct {
	NewMarketCapCents int64  `json:"new_market_cap_cents"`
	Reason            string `json:"reason"`
}

// PriceResponse carries the current share price for one team.
type PriceResponse struct {
	TeamID          string `json:"team_id"`
	SharePriceCents int64  `json:"share_price_cents"`
	SharePrice      string `json:"share_price"` // formatted, e.g. "0.10"
	MarketCapCents  int64  `json:"market_cap_cents"`
	AvailableShares int64  `json:"available_shares"`
}

// PortfolioPosition is one holding marked to the current price.
type PortfolioPosition struct {
	model.Position
	SharePriceCents    int64 `json:"share_price_cents"`
	CurrentValueCents  int64 `json:"current_value_cents"`
	UnrealizedPnLCents int64 `json:"unrealized_pnl_cents"`
}

// PortfolioResponse aggregates a user's holdings, wallet, and P&L.
type PortfolioResponse struct {
	UserID                  string              `json:"user_id"`
	BalanceCents            int64               `json:"balance_cents"`
	Positions               []PortfolioPosition `json:"positions"`
	TotalInvestedCents      int64               `json:"total_invested_cents"`
	TotalValueCents         int64               `json:"total_value_cents"`
	TotalUnrealizedPnLCents int64               `json:"total_unrealized_pnl_cents"`
	TotalRealizedPnLCents   int64               `json:"total_realized_pnl_cents"`
}

// AuditResponse reports whether a team's ledger chain replays cleanly.
type AuditResponse struct {
	TeamID  string `json:"team_id"`
	Entries int    `json:"entries"`
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
}

// --- Trading ---

// Buy handles POST /api/v1/orders/buy.
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, model.OrderTypeBuy)
}

// Sell handles POST /api/v1/orders/sell.
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, model.OrderTypeSell)
}

func (h *Handler) trade(w http.ResponseWriter, r *http.Request, orderType string) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.TeamID == "" {
		writeError(w, "user_id and team_id are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var (
		res *settlement.OrderResult
		err error
	)
	if orderType == model.OrderTypeBuy {
		res, err = h.settle.Buy(ctx, req.UserID, req.TeamID, req.Quantity, req.ExpectedPriceCents)
	} else {
		res, err = h.settle.Sell(ctx, req.UserID, req.TeamID, req.Quantity, req.ExpectedPriceCents)
	}
	if err != nil {
		writeSettlementError(w, err)
		return
	}

	h.broadcastTeam(ctx, "order_settled", req.TeamID, func(msg *WSMessage) {
		msg.OrderType = orderType
		msg.Quantity = req.Quantity
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// --- Teams ---

// CreateTeam handles POST /api/v1/teams.
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.MarketCapCents < market.DefaultMinMarketCapCents {
		writeError(w, "market_cap_cents below platform floor", http.StatusBadRequest)
		return
	}

	totalShares := req.TotalShares
	if totalShares <= 0 {
		totalShares = 1000 // default issue size
	}
	tradeable := true
	if req.IsTradeable != nil {
		tradeable = *req.IsTradeable
	}

	team := &model.Team{
		ID:              uuid.New().String(),
		Name:            req.Name,
		MarketCapCents:  req.MarketCapCents,
		TotalShares:     totalShares,
		AvailableShares: totalShares,
		IsTradeable:     tradeable,
		CreatedAt:       time.Now().UTC(),
	}

	if err := h.store.CreateTeam(r.Context(), team); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	slog.Info("team created",
		"id", team.ID,
		"name", team.Name,
		"market_cap_cents", team.MarketCapCents,
		"total_shares", team.TotalShares,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(team)
}

// ListTeams handles GET /api/v1/teams.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.store.ListTeams(r.Context())
	if err != nil {
		writeError(w, "failed to list teams", http.StatusInternalServerError)
		return
	}
	if teams == nil {
		teams = []model.Team{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(teams)
}

// GetTeam handles GET /api/v1/teams/{teamID}.
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.store.GetTeam(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		writeError(w, "team not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(team)
}

// GetPrice handles GET /api/v1/teams/{teamID}/price.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	team, err := h.store.GetTeam(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		writeError(w, "team not found", http.StatusNotFound)
		return
	}

	priceCents := market.SharePrice(team.MarketCapCents, team.TotalShares)
	resp := PriceResponse{
		TeamID:          team.ID,
		SharePriceCents: priceCents,
		SharePrice:      formatCents(priceCents),
		MarketCapCents:  team.MarketCapCents,
		AvailableShares: team.AvailableShares,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetLedger handles GET /api/v1/teams/{teamID}/ledger with optional
// ?since=RFC3339&until=RFC3339 bounds.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	since, ok := parseTimeParam(w, r, "since")
	if !ok {
		return
	}
	until, ok := parseTimeParam(w, r, "until")
	if !ok {
		return
	}

	entries, err := h.store.LedgerByTeam(r.Context(), chi.URLParam(r, "teamID"), since, until)
	if err != nil {
		writeError(w, "failed to load ledger", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// AuditLedger handles GET /api/v1/teams/{teamID}/audit. It replays the
// team's full ledger history and verifies the before/after chain.
func (h *Handler) AuditLedger(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	entries, err := h.store.LedgerByTeam(r.Context(), teamID, time.Time{}, time.Time{})
	if err != nil {
		writeError(w, "failed to load ledger", http.StatusInternalServerError)
		return
	}

	resp := AuditResponse{TeamID: teamID, Entries: len(entries), Valid: true}
	if err := ledger.VerifyChain(entries); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// AdjustMarketCap handles POST /api/v1/teams/{teamID}/adjust.
func (h *Handler) AdjustMarketCap(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	adjustmentID := uuid.New().String()
	entry, err := h.settle.AdjustMarketCap(r.Context(), chi.URLParam(r, "teamID"), req.NewMarketCapCents, adjustmentID)
	if err != nil {
		writeSettlementError(w, err)
		return
	}

	slog.Info("manual adjustment accepted",
		"adjustment_id", adjustmentID,
		"team", entry.TeamID,
		"reason", req.Reason,
	)

	h.broadcastTeam(r.Context(), "match_applied", entry.TeamID, nil)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// --- Portfolio ---

// GetPortfolio handles GET /api/v1/portfolio/{userID}.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	positions, err := h.store.ListUserPositions(ctx, userID)
	if err != nil {
		writeError(w, "failed to load positions", http.StatusInternalServerError)
		return
	}

	balance, err := h.store.GetWalletBalance(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, "failed to load wallet", http.StatusInternalServerError)
		return
	}

	resp := PortfolioResponse{
		UserID:       userID,
		BalanceCents: balance,
		Positions:    []PortfolioPosition{},
	}

	for i := range positions {
		p := positions[i]
		team, err := h.store.GetTeam(ctx, p.TeamID)
		if err != nil {
			writeError(w, "failed to load team for position", http.StatusInternalServerError)
			return
		}
		priceCents := market.SharePrice(team.MarketCapCents, team.TotalShares)
		pp := PortfolioPosition{
			Position:           p,
			SharePriceCents:    priceCents,
			CurrentValueCents:  p.Quantity * priceCents,
			UnrealizedPnLCents: position.UnrealizedPnL(&p, priceCents),
		}
		resp.Positions = append(resp.Positions, pp)
		resp.TotalInvestedCents += p.TotalInvestedCents
		resp.TotalValueCents += pp.CurrentValueCents
		resp.TotalUnrealizedPnLCents += pp.UnrealizedPnLCents
		resp.TotalRealizedPnLCents += p.RealizedPnLCents
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListUserOrders handles GET /api/v1/users/{userID}/orders.
func (h *Handler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListOrdersByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, "failed to load orders", http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// --- Fixtures ---

// CreateFixture handles POST /api/v1/fixtures.
func (h *Handler) CreateFixture(w http.ResponseWriter, r *http.Request) {
	var req CreateFixtureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.HomeTeamID == "" || req.AwayTeamID == "" || req.HomeTeamID == req.AwayTeamID {
		writeError(w, "two distinct team ids are required", http.StatusBadRequest)
		return
	}
	if req.KickoffAt.IsZero() {
		writeError(w, "kickoff_at is required", http.StatusBadRequest)
		return
	}

	offset := req.BuyCloseOffsetMin
	if offset <= 0 {
		offset = 60 // default buy window close, minutes before kickoff
	}

	fixture := &model.Fixture{
		ID:         uuid.New().String(),
		HomeTeamID: req.HomeTeamID,
		AwayTeamID: req.AwayTeamID,
		Status:     model.FixtureScheduled,
		Result:     model.ResultPending,
		KickoffAt:  req.KickoffAt,
		BuyCloseAt: req.KickoffAt.Add(-time.Duration(offset) * time.Minute),
	}

	if err := h.store.CreateFixture(r.Context(), fixture); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(fixture)
}

// GetFixture handles GET /api/v1/fixtures/{fixtureID}.
func (h *Handler) GetFixture(w http.ResponseWriter, r *http.Request) {
	fixture, err := h.store.GetFixture(r.Context(), chi.URLParam(r, "fixtureID"))
	if err != nil {
		writeError(w, "fixture not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fixture)
}

// SetFixtureResult handles POST /api/v1/fixtures/{fixtureID}/result,
// recording a final score from the fixture feed. The result is derived
// from the scores; settlement happens separately (applier job or explicit
// apply call).
func (h *Handler) SetFixtureResult(w http.ResponseWriter, r *http.Request) {
	var req FixtureResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.HomeScore < 0 || req.AwayScore < 0 {
		writeError(w, "scores must be non-negative", http.StatusBadRequest)
		return
	}

	result := model.ResultDraw
	switch {
	case req.HomeScore > req.AwayScore:
		result = model.ResultHomeWin
	case req.AwayScore > req.HomeScore:
		result = model.ResultAwayWin
	}

	fixtureID := chi.URLParam(r, "fixtureID")
	if err := h.store.SetFixtureResult(r.Context(), fixtureID, result, req.HomeScore, req.AwayScore); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "fixture not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to record result", http.StatusInternalServerError)
		return
	}

	slog.Info("fixture result recorded",
		"fixture", fixtureID,
		"result", result,
		"home_score", req.HomeScore,
		"away_score", req.AwayScore,
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"fixture_id": fixtureID, "result": result})
}

// ApplyFixture handles POST /api/v1/fixtures/{fixtureID}/apply.
func (h *Handler) ApplyFixture(w http.ResponseWriter, r *http.Request) {
	fixtureID := chi.URLParam(r, "fixtureID")
	res, err := h.settle.ApplyMatchResult(r.Context(), fixtureID)
	if err != nil {
		writeSettlementError(w, err)
		return
	}

	if !res.AlreadyApplied {
		fixture, ferr := h.store.GetFixture(r.Context(), fixtureID)
		if ferr == nil {
			for _, teamID := range []string{fixture.HomeTeamID, fixture.AwayTeamID} {
				h.broadcastTeam(r.Context(), "match_applied", teamID, func(msg *WSMessage) {
					msg.FixtureID = fixtureID
					msg.Result = res.Result
				})
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// --- Wallets ---

// CreateWallet handles POST /api/v1/wallets.
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.InitialBalanceCents < 0 {
		writeError(w, "initial_balance_cents must be non-negative", http.StatusBadRequest)
		return
	}

	if err := h.store.CreateWallet(r.Context(), req.UserID, req.InitialBalanceCents); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"user_id":       req.UserID,
		"balance_cents": req.InitialBalanceCents,
	})
}

// GetWallet handles GET /api/v1/wallets/{userID}.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	balance, err := h.store.GetWalletBalance(r.Context(), userID)
	if err != nil {
		writeError(w, "wallet not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"user_id":       userID,
		"balance_cents": balance,
	})
}

// --- Helpers ---

// broadcastTeam pushes the team's fresh market state to WebSocket clients.
func (h *Handler) broadcastTeam(ctx context.Context, msgType, teamID string, decorate func(*WSMessage)) {
	if h.hub == nil {
		return
	}
	team, err := h.store.GetTeam(ctx, teamID)
	if err != nil {
		return
	}
	msg := WSMessage{
		Type:            msgType,
		TeamID:          teamID,
		SharePriceCents: market.SharePrice(team.MarketCapCents, team.TotalShares),
		MarketCapCents:  team.MarketCapCents,
		AvailableShares: team.AvailableShares,
	}
	if decorate != nil {
		decorate(&msg)
	}
	h.hub.Broadcast(msg)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeSettlementError maps settlement errors onto HTTP statuses and
// records rejection metrics.
func writeSettlementError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	reason := "internal"

	switch {
	case errors.Is(err, settlement.ErrInvalidQuantity):
		status, reason = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, settlement.ErrTeamNotFound),
		errors.Is(err, settlement.ErrFixtureNotFound),
		errors.Is(err, settlement.ErrWalletNotFound):
		status, reason = http.StatusNotFound, "not_found"
	case errors.Is(err, settlement.ErrInsufficientFunds):
		status, reason = http.StatusConflict, "insufficient_funds"
	case errors.Is(err, settlement.ErrInsufficientShares):
		status, reason = http.StatusConflict, "insufficient_shares"
	case errors.Is(err, settlement.ErrPriceMismatch):
		status, reason = http.StatusConflict, "price_mismatch"
	case errors.Is(err, settlement.ErrTeamNotTradeable):
		status, reason = http.StatusConflict, "not_tradeable"
	case errors.Is(err, settlement.ErrFixtureNotFinal):
		status, reason = http.StatusConflict, "fixture_not_final"
	case errors.Is(err, limits.ErrPerTeamLimitExceeded),
		errors.Is(err, limits.ErrExposureLimitExceeded):
		status, reason = http.StatusConflict, "holding_limit"
	case errors.Is(err, settlement.ErrTransactionConflict):
		status, reason = http.StatusConflict, "transaction_conflict"
	}

	if status != http.StatusInternalServerError {
		metrics.SettlementRejections.WithLabelValues(reason).Inc()
	}
	writeError(w, err.Error(), status)
}

// parseTimeParam reads an optional RFC3339 query parameter; writes a 400
// and returns ok=false when the value is present but malformed.
func parseTimeParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		writeError(w, name+" must be RFC3339", http.StatusBadRequest)
		return time.Time{}, false
	}
	return t, true
}

// formatCents renders an integer cent amount as a decimal string.
func formatCents(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
