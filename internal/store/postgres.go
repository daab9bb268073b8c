package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as BIGINT cents. Per-team serializability
// comes from SELECT ... FOR UPDATE row locks inside ExecTx; serialization
// and deadlock failures are surfaced as ErrConflict.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the settlement tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// mapPgError translates driver errors into store sentinels.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return ErrConflict
		case "23505": // unique_violation
			return ErrConflict
		}
	}
	return err
}

// ExecTx runs fn inside one database transaction. Any error from fn (or
// from commit) rolls the whole transaction back.
func (s *PostgresStore) ExecTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapPgError(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetTeamForUpdate(ctx context.Context, teamID string) (*model.Team, error) {
	var m model.Team
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, market_cap_cents, total_shares, available_shares, is_tradeable, created_at
		 FROM teams WHERE id = $1 FOR UPDATE`, teamID).
		Scan(&m.ID, &m.Name, &m.MarketCapCents, &m.TotalShares, &m.AvailableShares, &m.IsTradeable, &m.CreatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &m, nil
}

func (t *pgTx) UpdateTeamMarket(ctx context.Context, teamID string, marketCapCents, availableShares int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE teams SET market_cap_cents = $2, available_shares = $3 WHERE id = $1`,
		teamID, marketCapCents, availableShares)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) GetPositionForUpdate(ctx context.Context, userID, teamID string) (*model.Position, error) {
	var p model.Position
	err := t.tx.QueryRow(ctx,
		`SELECT user_id, team_id, quantity, total_invested_cents, realized_pnl_cents, updated_at
		 FROM positions WHERE user_id = $1 AND team_id = $2 FOR UPDATE`, userID, teamID).
		Scan(&p.UserID, &p.TeamID, &p.Quantity, &p.TotalInvestedCents, &p.RealizedPnLCents, &p.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}

func (t *pgTx) SavePosition(ctx context.Context, pos *model.Position) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO positions (user_id, team_id, quantity, total_invested_cents, realized_pnl_cents, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, team_id) DO UPDATE
		 SET quantity = EXCLUDED.quantity,
		     total_invested_cents = EXCLUDED.total_invested_cents,
		     realized_pnl_cents = EXCLUDED.realized_pnl_cents,
		     updated_at = EXCLUDED.updated_at`,
		pos.UserID, pos.TeamID, pos.Quantity, pos.TotalInvestedCents, pos.RealizedPnLCents, pos.UpdatedAt)
	return mapPgError(err)
}

func (t *pgTx) DeletePosition(ctx context.Context, userID, teamID string) error {
	_, err := t.tx.Exec(ctx,
		`DELETE FROM positions WHERE user_id = $1 AND team_id = $2`, userID, teamID)
	return mapPgError(err)
}

func (t *pgTx) InsertOrder(ctx context.Context, o *model.Order) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO orders (id, user_id, team_id, type, status, quantity,
		                     price_per_share_cents, total_amount_cents,
		                     market_cap_before_cents, market_cap_after_cents,
		                     shares_outstanding_before, shares_outstanding_after, executed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.ID, o.UserID, o.TeamID, o.Type, o.Status, o.Quantity,
		o.PricePerShareCents, o.TotalAmountCents,
		o.MarketCapBeforeCents, o.MarketCapAfterCents,
		o.SharesOutstandingBefore, o.SharesOutstandingAfter, o.ExecutedAt)
	return mapPgError(err)
}

func (t *pgTx) AppendLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ledger_entries (id, team_id, ledger_type,
		                             market_cap_before_cents, market_cap_after_cents,
		                             share_price_before_cents, share_price_after_cents,
		                             shares_outstanding_before, shares_outstanding_after,
		                             trigger_event_type, trigger_event_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.TeamID, e.LedgerType,
		e.MarketCapBeforeCents, e.MarketCapAfterCents,
		e.SharePriceBeforeCents, e.SharePriceAfterCents,
		e.SharesOutstandingBefore, e.SharesOutstandingAfter,
		e.TriggerEventType, e.TriggerEventID, e.CreatedAt)
	return mapPgError(err)
}

func (t *pgTx) GetFixtureForUpdate(ctx context.Context, fixtureID string) (*model.Fixture, error) {
	var f model.Fixture
	err := t.tx.QueryRow(ctx,
		`SELECT id, home_team_id, away_team_id, status, result, home_score, away_score, kickoff_at, buy_close_at
		 FROM fixtures WHERE id = $1 FOR UPDATE`, fixtureID).
		Scan(&f.ID, &f.HomeTeamID, &f.AwayTeamID, &f.Status, &f.Result,
			&f.HomeScore, &f.AwayScore, &f.KickoffAt, &f.BuyCloseAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &f, nil
}

func (t *pgTx) MarkFixtureApplied(ctx context.Context, fixtureID string) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE fixtures SET status = $2 WHERE id = $1`, fixtureID, model.FixtureApplied)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) DebitWallet(ctx context.Context, userID string, amountCents int64) (int64, error) {
	var balance int64
	err := t.tx.QueryRow(ctx,
		`SELECT balance_cents FROM wallets WHERE user_id = $1 FOR UPDATE`, userID).
		Scan(&balance)
	if err != nil {
		return 0, mapPgError(err)
	}
	if balance < amountCents {
		return 0, ErrInsufficientFunds
	}
	newBalance := balance - amountCents
	_, err = t.tx.Exec(ctx,
		`UPDATE wallets SET balance_cents = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, newBalance)
	if err != nil {
		return 0, mapPgError(err)
	}
	return newBalance, nil
}

func (t *pgTx) CreditWallet(ctx context.Context, userID string, amountCents int64) (int64, error) {
	var newBalance int64
	err := t.tx.QueryRow(ctx,
		`UPDATE wallets SET balance_cents = balance_cents + $2, updated_at = NOW()
		 WHERE user_id = $1 RETURNING balance_cents`,
		userID, amountCents).
		Scan(&newBalance)
	if err != nil {
		return 0, mapPgError(err)
	}
	return newBalance, nil
}

func (t *pgTx) SumUserInvested(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_invested_cents), 0) FROM positions WHERE user_id = $1`,
		userID).Scan(&total)
	if err != nil {
		return 0, mapPgError(err)
	}
	return total, nil
}

// --- Read side ---

func (s *PostgresStore) CreateTeam(ctx context.Context, m *model.Team) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO teams (id, name, market_cap_cents, total_shares, available_shares, is_tradeable, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Name, m.MarketCapCents, m.TotalShares, m.AvailableShares, m.IsTradeable, m.CreatedAt)
	return mapPgError(err)
}

func (s *PostgresStore) GetTeam(ctx context.Context, teamID string) (*model.Team, error) {
	var m model.Team
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, market_cap_cents, total_shares, available_shares, is_tradeable, created_at
		 FROM teams WHERE id = $1`, teamID).
		Scan(&m.ID, &m.Name, &m.MarketCapCents, &m.TotalShares, &m.AvailableShares, &m.IsTradeable, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get team %s: %w", teamID, mapPgError(err))
	}
	return &m, nil
}

func (s *PostgresStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, market_cap_cents, total_shares, available_shares, is_tradeable, created_at
		 FROM teams ORDER BY name`)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		var m model.Team
		if err := rows.Scan(&m.ID, &m.Name, &m.MarketCapCents, &m.TotalShares,
			&m.AvailableShares, &m.IsTradeable, &m.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, m)
	}
	return teams, rows.Err()
}

func (s *PostgresStore) GetPosition(ctx context.Context, userID, teamID string) (*model.Position, error) {
	var p model.Position
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, team_id, quantity, total_invested_cents, realized_pnl_cents, updated_at
		 FROM positions WHERE user_id = $1 AND team_id = $2`, userID, teamID).
		Scan(&p.UserID, &p.TeamID, &p.Quantity, &p.TotalInvestedCents, &p.RealizedPnLCents, &p.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}

func (s *PostgresStore) ListUserPositions(ctx context.Context, userID string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, team_id, quantity, total_invested_cents, realized_pnl_cents, updated_at
		 FROM positions WHERE user_id = $1 ORDER BY team_id`, userID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.UserID, &p.TeamID, &p.Quantity,
			&p.TotalInvestedCents, &p.RealizedPnLCents, &p.UpdatedAt); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	var o model.Order
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, team_id, type, status, quantity,
		        price_per_share_cents, total_amount_cents,
		        market_cap_before_cents, market_cap_after_cents,
		        shares_outstanding_before, shares_outstanding_after, executed_at
		 FROM orders WHERE id = $1`, orderID).
		Scan(&o.ID, &o.UserID, &o.TeamID, &o.Type, &o.Status, &o.Quantity,
			&o.PricePerShareCents, &o.TotalAmountCents,
			&o.MarketCapBeforeCents, &o.MarketCapAfterCents,
			&o.SharesOutstandingBefore, &o.SharesOutstandingAfter, &o.ExecutedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &o, nil
}

func (s *PostgresStore) ListOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, team_id, type, status, quantity,
		        price_per_share_cents, total_amount_cents,
		        market_cap_before_cents, market_cap_after_cents,
		        shares_outstanding_before, shares_outstanding_after, executed_at
		 FROM orders WHERE user_id = $1 ORDER BY executed_at`, userID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TeamID, &o.Type, &o.Status, &o.Quantity,
			&o.PricePerShareCents, &o.TotalAmountCents,
			&o.MarketCapBeforeCents, &o.MarketCapAfterCents,
			&o.SharesOutstandingBefore, &o.SharesOutstandingAfter, &o.ExecutedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *PostgresStore) LedgerByTeam(ctx context.Context, teamID string, since, until time.Time) ([]model.LedgerEntry, error) {
	query := `SELECT id, team_id, ledger_type,
	                 market_cap_before_cents, market_cap_after_cents,
	                 share_price_before_cents, share_price_after_cents,
	                 shares_outstanding_before, shares_outstanding_after,
	                 trigger_event_type, trigger_event_id, created_at
	          FROM ledger_entries WHERE team_id = $1`
	args := []any{teamID}
	if !since.IsZero() {
		args = append(args, since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !until.IsZero() {
		args = append(args, until)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	query += " ORDER BY created_at, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TeamID, &e.LedgerType,
			&e.MarketCapBeforeCents, &e.MarketCapAfterCents,
			&e.SharePriceBeforeCents, &e.SharePriceAfterCents,
			&e.SharesOutstandingBefore, &e.SharesOutstandingAfter,
			&e.TriggerEventType, &e.TriggerEventID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) CreateFixture(ctx context.Context, f *model.Fixture) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fixtures (id, home_team_id, away_team_id, status, result, home_score, away_score, kickoff_at, buy_close_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.HomeTeamID, f.AwayTeamID, f.Status, f.Result,
		f.HomeScore, f.AwayScore, f.KickoffAt, f.BuyCloseAt)
	return mapPgError(err)
}

func (s *PostgresStore) GetFixture(ctx context.Context, fixtureID string) (*model.Fixture, error) {
	var f model.Fixture
	err := s.pool.QueryRow(ctx,
		`SELECT id, home_team_id, away_team_id, status, result, home_score, away_score, kickoff_at, buy_close_at
		 FROM fixtures WHERE id = $1`, fixtureID).
		Scan(&f.ID, &f.HomeTeamID, &f.AwayTeamID, &f.Status, &f.Result,
			&f.HomeScore, &f.AwayScore, &f.KickoffAt, &f.BuyCloseAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &f, nil
}

func (s *PostgresStore) ListFixturesByStatus(ctx context.Context, status string) ([]model.Fixture, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, home_team_id, away_team_id, status, result, home_score, away_score, kickoff_at, buy_close_at
		 FROM fixtures WHERE status = $1 ORDER BY kickoff_at`, status)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var fixtures []model.Fixture
	for rows.Next() {
		var f model.Fixture
		if err := rows.Scan(&f.ID, &f.HomeTeamID, &f.AwayTeamID, &f.Status, &f.Result,
			&f.HomeScore, &f.AwayScore, &f.KickoffAt, &f.BuyCloseAt); err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, rows.Err()
}

func (s *PostgresStore) SetFixtureResult(ctx context.Context, fixtureID, result string, homeScore, awayScore int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE fixtures
		 SET result = $2, home_score = $3, away_score = $4,
		     status = CASE WHEN status = $5 THEN $6 ELSE status END
		 WHERE id = $1`,
		fixtureID, result, homeScore, awayScore, model.FixtureScheduled, model.FixtureClosed)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateWallet(ctx context.Context, userID string, initialCents int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO wallets (user_id, balance_cents, updated_at) VALUES ($1, $2, NOW())`,
		userID, initialCents)
	return mapPgError(err)
}

func (s *PostgresStore) GetWalletBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx,
		`SELECT balance_cents FROM wallets WHERE user_id = $1`, userID).
		Scan(&balance)
	if err != nil {
		return 0, mapPgError(err)
	}
	return balance, nil
}
