// Package store defines the persistence interface for the settlement
// engine. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrInsufficientFunds is returned by DebitWallet when the balance is
	// below the requested amount.
	ErrInsufficientFunds = errors.New("store: insufficient funds")

	// ErrConflict is returned when the backing store detects a concurrent
	// modification; the whole transaction should be retried.
	ErrConflict = errors.New("store: transaction conflict")
)

// Tx is the write-side capability handed to a settlement transaction
// function. Wallet mutation is deliberately only reachable here: no code
// path outside ExecTx can move wallet money, so a wallet change without a
// matching order (or vice versa) cannot happen.
type Tx interface {
	// GetTeamForUpdate reads a team's market state with a write lock held
	// for the remainder of the transaction.
	GetTeamForUpdate(ctx context.Context, teamID string) (*model.Team, error)

	// UpdateTeamMarket writes a team's market cap and available shares.
	UpdateTeamMarket(ctx context.Context, teamID string, marketCapCents, availableShares int64) error

	// GetPositionForUpdate reads a position with a write lock, or
	// ErrNotFound when the user holds nothing in the team.
	GetPositionForUpdate(ctx context.Context, userID, teamID string) (*model.Position, error)

	// SavePosition inserts or updates a position row.
	SavePosition(ctx context.Context, pos *model.Position) error

	// DeletePosition removes a position row (quantity reached zero).
	DeletePosition(ctx context.Context, userID, teamID string) error

	// InsertOrder appends an immutable order record. Orders are write-once.
	InsertOrder(ctx context.Context, order *model.Order) error

	// AppendLedgerEntry appends an immutable audit row. Never updated or
	// deleted.
	AppendLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error

	// GetFixtureForUpdate reads a fixture with a write lock held.
	GetFixtureForUpdate(ctx context.Context, fixtureID string) (*model.Fixture, error)

	// MarkFixtureApplied moves a fixture to its terminal applied status.
	MarkFixtureApplied(ctx context.Context, fixtureID string) error

	// DebitWallet subtracts amountCents from the user's balance and
	// returns the new balance, or ErrInsufficientFunds.
	DebitWallet(ctx context.Context, userID string, amountCents int64) (int64, error)

	// CreditWallet adds amountCents and returns the new balance.
	CreditWallet(ctx context.Context, userID string, amountCents int64) (int64, error)

	// SumUserInvested returns the user's cost basis across all teams,
	// including any position rows already written in this transaction.
	SumUserInvested(ctx context.Context, userID string) (int64, error)
}

// Store is the persistence interface. ExecTx runs fn atomically: either
// every write fn performs is committed, or none are.
type Store interface {
	// ExecTx executes fn inside one transaction. Serialization failures
	// surface as ErrConflict after rollback.
	ExecTx(ctx context.Context, fn func(tx Tx) error) error

	// --- Teams ---

	CreateTeam(ctx context.Context, team *model.Team) error
	GetTeam(ctx context.Context, teamID string) (*model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)

	// --- Positions (read side) ---

	GetPosition(ctx context.Context, userID, teamID string) (*model.Position, error)
	ListUserPositions(ctx context.Context, userID string) ([]model.Position, error)

	// --- Orders (read side; orders are written only inside ExecTx) ---

	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)

	// --- Ledger (read side) ---

	// LedgerByTeam returns a team's ledger entries in chronological order,
	// optionally bounded to [since, until). Zero times mean unbounded.
	LedgerByTeam(ctx context.Context, teamID string, since, until time.Time) ([]model.LedgerEntry, error)

	// --- Fixtures ---

	CreateFixture(ctx context.Context, fixture *model.Fixture) error
	GetFixture(ctx context.Context, fixtureID string) (*model.Fixture, error)
	ListFixturesByStatus(ctx context.Context, status string) ([]model.Fixture, error)

	// SetFixtureResult records the final score for a fixture and moves it
	// to closed. Called by the fixture feed, not by settlement.
	SetFixtureResult(ctx context.Context, fixtureID, result string, homeScore, awayScore int) error

	// --- Wallets ---

	CreateWallet(ctx context.Context, userID string, initialCents int64) error
	GetWalletBalance(ctx context.Context, userID string) (int64, error)
}
