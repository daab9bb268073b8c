package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
//
// Transactions are serialized under one mutex; atomicity comes from taking
// a full snapshot before running the transaction function and restoring it
// when the function fails. That matches the contract the Postgres store
// honors with row locks and rollback.
type MemoryStore struct {
	mu        sync.Mutex
	teams     map[string]*model.Team
	positions map[string]*model.Position // key: userID|teamID
	orders    map[string]*model.Order
	ledger    []model.LedgerEntry
	fixtures  map[string]*model.Fixture
	wallets   map[string]*model.Wallet
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:     make(map[string]*model.Team),
		positions: make(map[string]*model.Position),
		orders:    make(map[string]*model.Order),
		fixtures:  make(map[string]*model.Fixture),
		wallets:   make(map[string]*model.Wallet),
	}
}

func posKey(userID, teamID string) string { return userID + "|" + teamID }

type memSnapshot struct {
	teams     map[string]*model.Team
	positions map[string]*model.Position
	orders    map[string]*model.Order
	ledger    []model.LedgerEntry
	fixtures  map[string]*model.Fixture
	wallets   map[string]*model.Wallet
}

func (s *MemoryStore) snapshot() memSnapshot {
	snap := memSnapshot{
		teams:     make(map[string]*model.Team, len(s.teams)),
		positions: make(map[string]*model.Position, len(s.positions)),
		orders:    make(map[string]*model.Order, len(s.orders)),
		ledger:    append([]model.LedgerEntry(nil), s.ledger...),
		fixtures:  make(map[string]*model.Fixture, len(s.fixtures)),
		wallets:   make(map[string]*model.Wallet, len(s.wallets)),
	}
	for k, v := range s.teams {
		c := *v
		snap.teams[k] = &c
	}
	for k, v := range s.positions {
		c := *v
		snap.positions[k] = &c
	}
	for k, v := range s.orders {
		c := *v
		snap.orders[k] = &c
	}
	for k, v := range s.fixtures {
		c := *v
		snap.fixtures[k] = &c
	}
	for k, v := range s.wallets {
		c := *v
		snap.wallets[k] = &c
	}
	return snap
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.teams = snap.teams
	s.positions = snap.positions
	s.orders = snap.orders
	s.ledger = snap.ledger
	s.fixtures = snap.fixtures
	s.wallets = snap.wallets
}

// ExecTx runs fn atomically. On error the pre-transaction state is
// restored, so no partial writes survive.
func (s *MemoryStore) ExecTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// memTx operates directly on the store's live state; MemoryStore.ExecTx
// holds the lock and rolls back via snapshot on failure.
type memTx struct {
	s *MemoryStore
}

func (t *memTx) GetTeamForUpdate(_ context.Context, teamID string) (*model.Team, error) {
	m, ok := t.s.teams[teamID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *m
	return &c, nil
}

func (t *memTx) UpdateTeamMarket(_ context.Context, teamID string, marketCapCents, availableShares int64) error {
	m, ok := t.s.teams[teamID]
	if !ok {
		return ErrNotFound
	}
	m.MarketCapCents = marketCapCents
	m.AvailableShares = availableShares
	return nil
}

func (t *memTx) GetPositionForUpdate(_ context.Context, userID, teamID string) (*model.Position, error) {
	p, ok := t.s.positions[posKey(userID, teamID)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (t *memTx) SavePosition(_ context.Context, pos *model.Position) error {
	c := *pos
	t.s.positions[posKey(pos.UserID, pos.TeamID)] = &c
	return nil
}

func (t *memTx) DeletePosition(_ context.Context, userID, teamID string) error {
	delete(t.s.positions, posKey(userID, teamID))
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, order *model.Order) error {
	c := *order
	t.s.orders[order.ID] = &c
	return nil
}

func (t *memTx) AppendLedgerEntry(_ context.Context, entry *model.LedgerEntry) error {
	t.s.ledger = append(t.s.ledger, *entry)
	return nil
}

func (t *memTx) GetFixtureForUpdate(_ context.Context, fixtureID string) (*model.Fixture, error) {
	f, ok := t.s.fixtures[fixtureID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *f
	return &c, nil
}

func (t *memTx) MarkFixtureApplied(_ context.Context, fixtureID string) error {
	f, ok := t.s.fixtures[fixtureID]
	if !ok {
		return ErrNotFound
	}
	f.Status = model.FixtureApplied
	return nil
}

func (t *memTx) DebitWallet(_ context.Context, userID string, amountCents int64) (int64, error) {
	w, ok := t.s.wallets[userID]
	if !ok {
		return 0, ErrNotFound
	}
	if w.BalanceCents < amountCents {
		return 0, ErrInsufficientFunds
	}
	w.BalanceCents -= amountCents
	w.UpdatedAt = time.Now().UTC()
	return w.BalanceCents, nil
}

func (t *memTx) CreditWallet(_ context.Context, userID string, amountCents int64) (int64, error) {
	w, ok := t.s.wallets[userID]
	if !ok {
		return 0, ErrNotFound
	}
	w.BalanceCents += amountCents
	w.UpdatedAt = time.Now().UTC()
	return w.BalanceCents, nil
}

func (t *memTx) SumUserInvested(_ context.Context, userID string) (int64, error) {
	var total int64
	for _, p := range t.s.positions {
		if p.UserID == userID {
			total += p.TotalInvestedCents
		}
	}
	return total, nil
}

// --- Read side ---

func (s *MemoryStore) CreateTeam(_ context.Context, team *model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.teams[team.ID]; exists {
		return ErrConflict
	}
	c := *team
	s.teams[team.ID] = &c
	return nil
}

func (s *MemoryStore) GetTeam(_ context.Context, teamID string) (*model.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.teams[teamID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *m
	return &c, nil
}

func (s *MemoryStore) ListTeams(_ context.Context) ([]model.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	teams := make([]model.Team, 0, len(s.teams))
	for _, m := range s.teams {
		teams = append(teams, *m)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

func (s *MemoryStore) GetPosition(_ context.Context, userID, teamID string) (*model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[posKey(userID, teamID)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) ListUserPositions(_ context.Context, userID string) ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var positions []model.Position
	for _, p := range s.positions {
		if p.UserID == userID {
			positions = append(positions, *p)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].TeamID < positions[j].TeamID })
	return positions, nil
}

func (s *MemoryStore) GetOrder(_ context.Context, orderID string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *o
	return &c, nil
}

func (s *MemoryStore) ListOrdersByUser(_ context.Context, userID string) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var orders []model.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ExecutedAt.Before(orders[j].ExecutedAt) })
	return orders, nil
}

func (s *MemoryStore) LedgerByTeam(_ context.Context, teamID string, since, until time.Time) ([]model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []model.LedgerEntry
	for _, e := range s.ledger {
		if e.TeamID != teamID {
			continue
		}
		if !since.IsZero() && e.CreatedAt.Before(since) {
			continue
		}
		if !until.IsZero() && !e.CreatedAt.Before(until) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *MemoryStore) CreateFixture(_ context.Context, fixture *model.Fixture) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.fixtures[fixture.ID]; exists {
		return ErrConflict
	}
	c := *fixture
	s.fixtures[fixture.ID] = &c
	return nil
}

func (s *MemoryStore) GetFixture(_ context.Context, fixtureID string) (*model.Fixture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fixtures[fixtureID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *f
	return &c, nil
}

func (s *MemoryStore) ListFixturesByStatus(_ context.Context, status string) ([]model.Fixture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fixtures []model.Fixture
	for _, f := range s.fixtures {
		if f.Status == status {
			fixtures = append(fixtures, *f)
		}
	}
	sort.Slice(fixtures, func(i, j int) bool { return fixtures[i].KickoffAt.Before(fixtures[j].KickoffAt) })
	return fixtures, nil
}

func (s *MemoryStore) SetFixtureResult(_ context.Context, fixtureID, result string, homeScore, awayScore int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fixtures[fixtureID]
	if !ok {
		return ErrNotFound
	}
	f.Result = result
	f.HomeScore = homeScore
	f.AwayScore = awayScore
	if f.Status == model.FixtureScheduled {
		f.Status = model.FixtureClosed
	}
	return nil
}

func (s *MemoryStore) CreateWallet(_ context.Context, userID string, initialCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.wallets[userID]; exists {
		return ErrConflict
	}
	s.wallets[userID] = &model.Wallet{
		UserID:       userID,
		BalanceCents: initialCents,
		UpdatedAt:    time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStore) GetWalletBalance(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return 0, ErrNotFound
	}
	return w.BalanceCents, nil
}
