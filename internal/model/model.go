// Package model defines the core domain types shared across the settlement
// engine. All monetary values are int64 amounts in minor units (cents) —
// never float64 for money.
package model

import "time"

// Order types.
const (
	OrderTypeBuy  = "BUY"
	OrderTypeSell = "SELL"
)

// Order statuses. The atomic settlement path only ever produces FILLED;
// PENDING and CANCELLED exist for schema compatibility with importers.
const (
	OrderStatusFilled    = "FILLED"
	OrderStatusPending   = "PENDING"
	OrderStatusCancelled = "CANCELLED"
)

// Ledger entry types.
const (
	LedgerSharePurchase    = "share_purchase"
	LedgerShareSale        = "share_sale"
	LedgerMatchWin         = "match_win"
	LedgerMatchLoss        = "match_loss"
	LedgerMatchDraw        = "match_draw"
	LedgerManualAdjustment = "manual_adjustment"
)

// Trigger event types correlating a ledger entry to its cause.
const (
	TriggerOrder   = "order"
	TriggerFixture = "fixture"
	TriggerAdmin   = "admin"
)

// Fixture statuses. "applied" is terminal: a fixture whose result has been
// settled is never reprocessed.
const (
	FixtureScheduled = "scheduled"
	FixtureClosed    = "closed"
	FixtureApplied   = "applied"
	FixturePostponed = "postponed"
)

// Fixture results.
const (
	ResultHomeWin = "home_win"
	ResultAwayWin = "away_win"
	ResultDraw    = "draw"
	ResultPending = "pending"
)

// Team holds the current market state for one club. TotalShares is fixed at
// creation; trades only move shares between the pool (AvailableShares) and
// user positions. MarketCapCents changes only on match results and manual
// adjustments, never on trades.
type Team struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	MarketCapCents  int64     `json:"market_cap_cents" db:"market_cap_cents"`
	TotalShares     int64     `json:"total_shares" db:"total_shares"`
	AvailableShares int64     `json:"available_shares" db:"available_shares"`
	IsTradeable     bool      `json:"is_tradeable" db:"is_tradeable"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// SharesOutstanding returns the number of shares currently held by users.
func (t *Team) SharesOutstanding() int64 {
	return t.TotalShares - t.AvailableShares
}

// Position is a user's aggregate holding in one team. Quantity is always
// positive; a sell that brings it to zero deletes the row. Unrealized P&L
// is derived at query time (quantity * currentPrice - totalInvested) and
// never stored.
type Position struct {
	UserID             string    `json:"user_id" db:"user_id"`
	TeamID             string    `json:"team_id" db:"team_id"`
	Quantity           int64     `json:"quantity" db:"quantity"`
	TotalInvestedCents int64     `json:"total_invested_cents" db:"total_invested_cents"`
	RealizedPnLCents   int64     `json:"realized_pnl_cents" db:"realized_pnl_cents"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Order is an immutable record of one executed trade. The market state
// snapshots are taken at execution time and are never recalculated, no
// matter how the team's live market cap moves afterwards.
type Order struct {
	ID                      string    `json:"id" db:"id"`
	UserID                  string    `json:"user_id" db:"user_id"`
	TeamID                  string    `json:"team_id" db:"team_id"`
	Type                    string    `json:"type" db:"type"`
	Status                  string    `json:"status" db:"status"`
	Quantity                int64     `json:"quantity" db:"quantity"`
	PricePerShareCents      int64     `json:"price_per_share_cents" db:"price_per_share_cents"`
	TotalAmountCents        int64     `json:"total_amount_cents" db:"total_amount_cents"`
	MarketCapBeforeCents    int64     `json:"market_cap_before_cents" db:"market_cap_before_cents"`
	MarketCapAfterCents     int64     `json:"market_cap_after_cents" db:"market_cap_after_cents"`
	SharesOutstandingBefore int64     `json:"shares_outstanding_before" db:"shares_outstanding_before"`
	SharesOutstandingAfter  int64     `json:"shares_outstanding_after" db:"shares_outstanding_after"`
	ExecutedAt              time.Time `json:"executed_at" db:"executed_at"`
}

// LedgerEntry is one immutable row in the per-team audit trail. For a given
// team, entries form a chain: the before-values of entry N equal the
// after-values of entry N-1.
type LedgerEntry struct {
	ID                      string    `json:"id" db:"id"`
	TeamID                  string    `json:"team_id" db:"team_id"`
	LedgerType              string    `json:"ledger_type" db:"ledger_type"`
	MarketCapBeforeCents    int64     `json:"market_cap_before_cents" db:"market_cap_before_cents"`
	MarketCapAfterCents     int64     `json:"market_cap_after_cents" db:"market_cap_after_cents"`
	SharePriceBeforeCents   int64     `json:"share_price_before_cents" db:"share_price_before_cents"`
	SharePriceAfterCents    int64     `json:"share_price_after_cents" db:"share_price_after_cents"`
	SharesOutstandingBefore int64     `json:"shares_outstanding_before" db:"shares_outstanding_before"`
	SharesOutstandingAfter  int64     `json:"shares_outstanding_after" db:"shares_outstanding_after"`
	TriggerEventType        string    `json:"trigger_event_type" db:"trigger_event_type"`
	TriggerEventID          string    `json:"trigger_event_id" db:"trigger_event_id"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
}

// Fixture is one scheduled match between two teams.
type Fixture struct {
	ID         string    `json:"id" db:"id"`
	HomeTeamID string    `json:"home_team_id" db:"home_team_id"`
	AwayTeamID string    `json:"away_team_id" db:"away_team_id"`
	Status     string    `json:"status" db:"status"`
	Result     string    `json:"result" db:"result"`
	HomeScore  int       `json:"home_score" db:"home_score"`
	AwayScore  int       `json:"away_score" db:"away_score"`
	KickoffAt  time.Time `json:"kickoff_at" db:"kickoff_at"`
	BuyCloseAt time.Time `json:"buy_close_at" db:"buy_close_at"`
}

// HasFinalResult reports whether the fixture carries a settled result.
func (f *Fixture) HasFinalResult() bool {
	switch f.Result {
	case ResultHomeWin, ResultAwayWin, ResultDraw:
		return true
	}
	return false
}

// WinnerLoser returns the winning and losing team IDs for a decided
// fixture. ok is false for draws and pending results.
func (f *Fixture) WinnerLoser() (winnerID, loserID string, ok bool) {
	switch f.Result {
	case ResultHomeWin:
		return f.HomeTeamID, f.AwayTeamID, true
	case ResultAwayWin:
		return f.AwayTeamID, f.HomeTeamID, true
	}
	return "", "", false
}

// Wallet is a user's cash balance. Debits and credits only happen inside a
// settlement transaction, together with the order/position/ledger writes.
type Wallet struct {
	UserID       string    `json:"user_id" db:"user_id"`
	BalanceCents int64     `json:"balance_cents" db:"balance_cents"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
