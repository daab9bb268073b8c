package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the hot read paths: team market state, user positions, and
// wallet balances. Writes go through the primary store's transaction; keys
// touched by the transaction are invalidated after commit, so the cache
// never serves state from a rolled-back transaction.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// ExecTx delegates to the primary store, recording which teams and users
// the transaction touched. On commit those keys are dropped; the next read
// re-populates from the primary.
func (s *CachedStore) ExecTx(ctx context.Context, fn func(tx Tx) error) error {
	rec := &recordingTx{}
	err := s.primary.ExecTx(ctx, func(tx Tx) error {
		rec.Tx = tx
		return fn(rec)
	})
	if err != nil {
		return err
	}

	for teamID := range rec.teams {
		s.rdb.Del(ctx, teamKey(teamID))
	}
	for userID := range rec.users {
		s.rdb.Del(ctx, positionsKey(userID), walletKey(userID))
	}
	return nil
}

// recordingTx passes every call through to the wrapped Tx while noting
// which cache keys the mutations dirty.
type recordingTx struct {
	Tx
	teams map[string]struct{}
	users map[string]struct{}
}

func (r *recordingTx) touchTeam(teamID string) {
	if r.teams == nil {
		r.teams = make(map[string]struct{})
	}
	r.teams[teamID] = struct{}{}
}

func (r *recordingTx) touchUser(userID string) {
	if r.users == nil {
		r.users = make(map[string]struct{})
	}
	r.users[userID] = struct{}{}
}

func (r *recordingTx) UpdateTeamMarket(ctx context.Context, teamID string, marketCapCents, availableShares int64) error {
	r.touchTeam(teamID)
	return r.Tx.UpdateTeamMarket(ctx, teamID, marketCapCents, availableShares)
}

func (r *recordingTx) SavePosition(ctx context.Context, pos *model.Position) error {
	r.touchUser(pos.UserID)
	return r.Tx.SavePosition(ctx, pos)
}

func (r *recordingTx) DeletePosition(ctx context.Context, userID, teamID string) error {
	r.touchUser(userID)
	return r.Tx.DeletePosition(ctx, userID, teamID)
}

func (r *recordingTx) DebitWallet(ctx context.Context, userID string, amountCents int64) (int64, error) {
	r.touchUser(userID)
	return r.Tx.DebitWallet(ctx, userID, amountCents)
}

func (r *recordingTx) CreditWallet(ctx context.Context, userID string, amountCents int64) (int64, error) {
	r.touchUser(userID)
	return r.Tx.CreditWallet(ctx, userID, amountCents)
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetTeam(ctx context.Context, teamID string) (*model.Team, error) {
	data, err := s.rdb.Get(ctx, teamKey(teamID)).Bytes()
	if err == nil {
		var m model.Team
		if json.Unmarshal(data, &m) == nil {
			return &m, nil
		}
	}

	m, err := s.primary.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(m); err == nil {
		s.rdb.Set(ctx, teamKey(teamID), data, s.ttl)
	}
	return m, nil
}

func (s *CachedStore) ListUserPositions(ctx context.Context, userID string) ([]model.Position, error) {
	data, err := s.rdb.Get(ctx, positionsKey(userID)).Bytes()
	if err == nil {
		var positions []model.Position
		if json.Unmarshal(data, &positions) == nil {
			return positions, nil
		}
	}

	positions, err := s.primary.ListUserPositions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(positions); err == nil {
		s.rdb.Set(ctx, positionsKey(userID), data, s.ttl)
	}
	return positions, nil
}

func (s *CachedStore) GetWalletBalance(ctx context.Context, userID string) (int64, error) {
	balance, err := s.rdb.Get(ctx, walletKey(userID)).Int64()
	if err == nil {
		return balance, nil
	}

	balance, err = s.primary.GetWalletBalance(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.rdb.Set(ctx, walletKey(userID), balance, s.ttl)
	return balance, nil
}

// --- Writes that dirty cached keys outside ExecTx ---

func (s *CachedStore) CreateTeam(ctx context.Context, team *model.Team) error {
	if err := s.primary.CreateTeam(ctx, team); err != nil {
		return err
	}
	s.rdb.Del(ctx, teamKey(team.ID))
	return nil
}

func (s *CachedStore) CreateWallet(ctx context.Context, userID string, initialCents int64) error {
	if err := s.primary.CreateWallet(ctx, userID, initialCents); err != nil {
		return err
	}
	s.rdb.Del(ctx, walletKey(userID))
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	return s.primary.ListTeams(ctx)
}

func (s *CachedStore) GetPosition(ctx context.Context, userID, teamID string) (*model.Position, error) {
	return s.primary.GetPosition(ctx, userID, teamID)
}

func (s *CachedStore) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return s.primary.GetOrder(ctx, orderID)
}

func (s *CachedStore) ListOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return s.primary.ListOrdersByUser(ctx, userID)
}

func (s *CachedStore) LedgerByTeam(ctx context.Context, teamID string, since, until time.Time) ([]model.LedgerEntry, error) {
	return s.primary.LedgerByTeam(ctx, teamID, since, until)
}

func (s *CachedStore) CreateFixture(ctx context.Context, fixture *model.Fixture) error {
	return s.primary.CreateFixture(ctx, fixture)
}

func (s *CachedStore) GetFixture(ctx context.Context, fixtureID string) (*model.Fixture, error) {
	return s.primary.GetFixture(ctx, fixtureID)
}

func (s *CachedStore) ListFixturesByStatus(ctx context.Context, status string) ([]model.Fixture, error) {
	return s.primary.ListFixturesByStatus(ctx, status)
}

func (s *CachedStore) SetFixtureResult(ctx context.Context, fixtureID, result string, homeScore, awayScore int) error {
	return s.primary.SetFixtureResult(ctx, fixtureID, result, homeScore, awayScore)
}

// --- Cache keys ---

func teamKey(id string) string       { return fmt.Sprintf("team:%s", id) }
func positionsKey(uid string) string { return fmt.Sprintf("positions:%s", uid) }
func walletKey(uid string) string    { return fmt.Sprintf("wallet:%s", uid) }
