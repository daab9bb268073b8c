package fixtures_test

import (
	"context"
	"testing"
	"time"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/fixtures"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/settlement"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/store"
)

func seedTeam(t *testing.T, st *store.MemoryStore, id string, capCents int64) {
	t.Helper()
	err := st.CreateTeam(context.Background(), &model.Team{
		ID: id, Name: "Team " + id, MarketCapCents: capCents,
		TotalShares: 1000, AvailableShares: 1000, IsTradeable: true,
	})
	if err != nil {
		t.Fatalf("seed team %s: %v", id, err)
	}
}

func seedFixture(t *testing.T, st *store.MemoryStore, id, result string, closed bool) {
	t.Helper()
	ctx := context.Background()
	err := st.CreateFixture(ctx, &model.Fixture{
		ID:         id,
		HomeTeamID: "team-x",
		AwayTeamID: "team-y",
		Status:     model.FixtureScheduled,
		Result:     model.ResultPending,
		KickoffAt:  time.Now().UTC().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("seed fixture %s: %v", id, err)
	}
	if closed {
		if err := st.SetFixtureResult(ctx, id, result, 2, 0); err != nil {
			t.Fatalf("set result: %v", err)
		}
	}
}

func TestApplyPending(t *testing.T) {
	st := store.NewMemoryStore()
	svc := settlement.NewService(st, nil, settlement.Config{})
	ctx := context.Background()

	seedTeam(t, st, "team-x", 10000)
	seedTeam(t, st, "team-y", 5000)

	// One decided fixture, one closed without a result yet, one still
	// scheduled.
	seedFixture(t, st, "fx-decided", model.ResultHomeWin, true)
	seedFixture(t, st, "fx-no-result", model.ResultPending, true)
	seedFixture(t, st, "fx-scheduled", model.ResultPending, false)

	applier := fixtures.NewApplier(st, svc, time.Minute)
	applier.ApplyPending(ctx)

	fx, err := st.GetFixture(ctx, "fx-decided")
	if err != nil {
		t.Fatalf("get fixture: %v", err)
	}
	if fx.Status != model.FixtureApplied {
		t.Errorf("decided fixture status = %s, want applied", fx.Status)
	}

	// Home win moved cap from away to home.
	home, _ := st.GetTeam(ctx, "team-x")
	away, _ := st.GetTeam(ctx, "team-y")
	if home.MarketCapCents != 10500 || away.MarketCapCents != 4500 {
		t.Errorf("caps = %d/%d, want 10500/4500", home.MarketCapCents, away.MarketCapCents)
	}

	for _, id := range []string{"fx-no-result", "fx-scheduled"} {
		fx, err := st.GetFixture(ctx, id)
		if err != nil {
			t.Fatalf("get fixture %s: %v", id, err)
		}
		if fx.Status == model.FixtureApplied {
			t.Errorf("fixture %s applied prematurely", id)
		}
	}

	// A second sweep is a no-op thanks to the applied guard.
	applier.ApplyPending(ctx)
	home, _ = st.GetTeam(ctx, "team-x")
	if home.MarketCapCents != 10500 {
		t.Errorf("second sweep moved cap: %d", home.MarketCapCents)
	}
}
