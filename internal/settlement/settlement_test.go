package settlement_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/ledger"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/limits"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/settlement"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/store"
)

func newTestService(t *testing.T) (*settlement.Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return settlement.NewService(st, nil, settlement.Config{}), st
}

func seedTeam(t *testing.T, st *store.MemoryStore, id string, capCents, totalShares int64) {
	t.Helper()
	err := st.CreateTeam(context.Background(), &model.Team{
		ID:              id,
		Name:            "Team " + id,
		MarketCapCents:  capCents,
		TotalShares:     totalShares,
		AvailableShares: totalShares,
		IsTradeable:     true,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed team %s: %v", id, err)
	}
}

func seedWallet(t *testing.T, st *store.MemoryStore, userID string, balanceCents int64) {
	t.Helper()
	if err := st.CreateWallet(context.Background(), userID, balanceCents); err != nil {
		t.Fatalf("seed wallet %s: %v", userID, err)
	}
}

func seedFixture(t *testing.T, st *store.MemoryStore, id, homeID, awayID, result string) {
	t.Helper()
	ctx := context.Background()
	kickoff := time.Now().UTC().Add(-2 * time.Hour)
	err := st.CreateFixture(ctx, &model.Fixture{
		ID:         id,
		HomeTeamID: homeID,
		AwayTeamID: awayID,
		Status:     model.FixtureScheduled,
		Result:     model.ResultPending,
		KickoffAt:  kickoff,
		BuyCloseAt: kickoff.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("seed fixture %s: %v", id, err)
	}
	if result != model.ResultPending {
		var home, away int
		switch result {
		case model.ResultHomeWin:
			home = 2
		case model.ResultAwayWin:
			away = 2
		case model.ResultDraw:
			home, away = 1, 1
		}
		if err := st.SetFixtureResult(ctx, id, result, home, away); err != nil {
			t.Fatalf("set fixture result: %v", err)
		}
	}
}

func walletBalance(t *testing.T, st store.Store, userID string) int64 {
	t.Helper()
	bal, err := st.GetWalletBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("wallet balance %s: %v", userID, err)
	}
	return bal
}

func teamState(t *testing.T, st store.Store, teamID string) *model.Team {
	t.Helper()
	team, err := st.GetTeam(context.Background(), teamID)
	if err != nil {
		t.Fatalf("get team %s: %v", teamID, err)
	}
	return team
}

func TestBuy_HappyPath(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-1", 10000, 1000) // price = 10 cents
	seedWallet(t, st, "user-1", 10000)

	res, err := svc.Buy(ctx, "user-1", "team-1", 10, 10)
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}

	if res.Order.TotalAmountCents != 100 {
		t.Errorf("total = %d, want 100", res.Order.TotalAmountCents)
	}
	if res.Order.PricePerShareCents != 10 {
		t.Errorf("price = %d, want 10", res.Order.PricePerShareCents)
	}
	if res.NewBalanceCents != 9900 {
		t.Errorf("balance = %d, want 9900", res.NewBalanceCents)
	}
	if res.Position.Quantity != 10 || res.Position.TotalInvestedCents != 100 {
		t.Errorf("position %d/%d, want 10/100", res.Position.Quantity, res.Position.TotalInvestedCents)
	}

	team := teamState(t, st, "team-1")
	if team.MarketCapCents != 10000 {
		t.Errorf("market cap changed on trade: %d", team.MarketCapCents)
	}
	if team.AvailableShares != 990 {
		t.Errorf("available = %d, want 990", team.AvailableShares)
	}

	// Order snapshots capture market state on both sides of execution.
	if res.Order.MarketCapBeforeCents != 10000 || res.Order.MarketCapAfterCents != 10000 {
		t.Errorf("order cap snapshots %d/%d, want 10000/10000", res.Order.MarketCapBeforeCents, res.Order.MarketCapAfterCents)
	}
	if res.Order.SharesOutstandingBefore != 0 || res.Order.SharesOutstandingAfter != 10 {
		t.Errorf("outstanding snapshots %d/%d, want 0/10", res.Order.SharesOutstandingBefore, res.Order.SharesOutstandingAfter)
	}

	entries, err := st.LedgerByTeam(ctx, "team-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("LedgerByTeam: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	if entries[0].LedgerType != model.LedgerSharePurchase {
		t.Errorf("ledger type = %s, want %s", entries[0].LedgerType, model.LedgerSharePurchase)
	}
	if entries[0].TriggerEventID != res.Order.ID {
		t.Errorf("trigger event ID = %s, want order %s", entries[0].TriggerEventID, res.Order.ID)
	}
}

func TestBuy_PriceMismatch(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-1", 10000, 1000)
	seedWallet(t, st, "user-1", 10000)

	// Quoted 15 vs current 10 is outside the 1-cent tolerance.
	if _, err := svc.Buy(ctx, "user-1", "team-1", 10, 15); !errors.Is(err, settlement.ErrPriceMismatch) {
		t.Fatalf("expected ErrPriceMismatch, got %v", err)
	}
	if bal := walletBalance(t, st, "user-1"); bal != 10000 {
		t.Errorf("wallet mutated on rejection: %d", bal)
	}

	// Off by one cent is within tolerance.
	if _, err := svc.Buy(ctx, "user-1", "team-1", 10, 11); err != nil {
		t.Errorf("buy within tolerance failed: %v", err)
	}
}

func TestBuy_InsufficientFunds(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-1", 10000, 1000)
	seedWallet(t, st, "user-1", 50) // needs 100

	_, err := svc.Buy(ctx, "user-1", "team-1", 10, 10)
	if !errors.Is(err, settlement.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Nothing committed: shares back in the pool, wallet untouched.
	if team := teamState(t, st, "team-1"); team.AvailableShares != 1000 {
		t.Errorf("available = %d, want 1000", team.AvailableShares)
	}
	if bal := walletBalance(t, st, "user-1"); bal != 50 {
		t.Errorf("balance = %d, want 50", bal)
	}
	if orders, _ := st.ListOrdersByUser(ctx, "user-1"); len(orders) != 0 {
		t.Errorf("order written on failed buy: %d", len(orders))
	}
}

func TestBuy_Rejections(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-1", 10000, 1000)
	seedWallet(t, st, "user-1", 100000)

	if _, err := svc.Buy(ctx, "user-1", "team-1", 0, 10); !errors.Is(err, settlement.ErrInvalidQuantity) {
		t.Errorf("zero quantity: got %v", err)
	}
	if _, err := svc.Buy(ctx, "user-1", "team-1", -5, 10); !errors.Is(err, settlement.ErrInvalidQuantity) {
		t.Errorf("negative quantity: got %v", err)
	}
	if _, err := svc.Buy(ctx, "user-1", "missing", 10, 10); !errors.Is(err, settlement.ErrTeamNotFound) {
		t.Errorf("unknown team: got %v", err)
	}
	if _, err := svc.Buy(ctx, "user-1", "team-1", 2000, 10); !errors.Is(err, settlement.ErrInsufficientShares) {
		t.Errorf("oversized buy: got %v", err)
	}
	if _, err := svc.Buy(ctx, "no-wallet", "team-1", 10, 10); !errors.Is(err, settlement.ErrWalletNotFound) {
		t.Errorf("missing wallet: got %v", err)
	}
}

func TestBuy_NotTradeable(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	err := st.CreateTeam(ctx, &model.Team{
		ID: "team-1", Name: "Gated", MarketCapCents: 10000,
		TotalShares: 1000, AvailableShares: 1000, IsTradeable: false,
	})
	if err != nil {
		t.Fatalf("seed team: %v", err)
	}
	seedWallet(t, st, "user-1", 10000)

	if _, err := svc.Buy(ctx, "user-1", "team-1", 10, 10); !errors.Is(err, settlement.ErrTeamNotTradeable) {
		t.Fatalf("expected ErrTeamNotTradeable, got %v", err)
	}
}

func TestBuy_HoldingLimits(t *testing.T) {
	st := store.NewMemoryStore()
	svc := settlement.NewService(st, limits.NewHoldingLimiter(15, 0), settlement.Config{})
	ctx := context.Background()
	seedTeam(t, st, "team-1", 10000, 1000)
	seedWallet(t, st, "user-1", 100000)

	if _, err := svc.Buy(ctx, "user-1", "team-1", 10, 10); err != nil {
		t.Fatalf("first buy failed: %v", err)
	}
	_, err := svc.Buy(ctx, "user-1", "team-1", 10, 10)
	if !errors.Is(err, limits.ErrPerTeamLimitExceeded) {
		t.Fatalf("expected ErrPerTeamLimitExceeded, got %v", err)
	}
	// The rejected buy left no trace.
	if team := teamState(t, st, "team-1"); team.AvailableShares != 990 {
		t.Errorf("available = %d, want 990", team.AvailableShares)
	}
}

func TestSell_RoundTripRestoresWallet(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-1", 10000, 1000)
	seedWallet(t, st, "user-1", 10000)

	if _, err := svc.Buy(ctx, "user-1", "team-1", 10, 10); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	res, err := svc.Sell(ctx, "user-1", "team-1", 10, 10)
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	// Price unchanged, so proceeds equal cost and realized P&L is zero.
	if res.NewBalanceCents != 10000 {
		t.Errorf("balance = %d, want 10000", res.NewBalanceCents)
	}
	if res.RealizedPnLCents != 0 {
		t.Errorf("realized = %d, want 0", res.RealizedPnLCents)
	}
	if res.Position != nil {
		t.Errorf("position should be closed, got %+v", res.Position)
	}
	if _, err := st.GetPosition(ctx, "user-1", "team-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("closed position still stored: %v", err)
	}
	if team := teamState(t, st, "team-1"); team.AvailableShares != 1000 {
		t.Errorf("available = %d, want 1000", team.AvailableShares)
	}
}

func TestSell_MoreThanHeld(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-1", 10000, 1000)
	seedWallet(t, st, "user-1", 10000)

	if _, err := svc.Buy(ctx, "user-1", "team-1", 10, 10); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	balAfterBuy := walletBalance(t, st, "user-1")

	_, err := svc.Sell(ctx, "user-1", "team-1", 15, 10)
	if !errors.Is(err, settlement.ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}

	// Full rollback: position, pool, and wallet all unchanged.
	pos, err := st.GetPosition(ctx, "user-1", "team-1")
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	if pos.Quantity != 10 || pos.TotalInvestedCents != 100 {
		t.Errorf("position mutated: %d/%d", pos.Quantity, pos.TotalInvestedCents)
	}
	if team := teamState(t, st, "team-1"); team.AvailableShares != 990 {
		t.Errorf("available = %d, want 990", team.AvailableShares)
	}
	if bal := walletBalance(t, st, "user-1"); bal != balAfterBuy {
		t.Errorf("balance = %d, want %d", bal, balAfterBuy)
	}
}

func TestSell_NoPosition(t *testing.T) {
	svc, st := newTestService(t)
	seedTeam(t, st, "team-1", 10000, 1000)
	seedWallet(t, st, "user-1", 10000)

	if _, err := svc.Sell(context.Background(), "user-1", "team-1", 5, 10); !errors.Is(err, settlement.ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
}

func TestApplyMatchResult_Transfer(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-x", 10000, 1000)
	seedTeam(t, st, "team-y", 5000, 1000)
	seedFixture(t, st, "fx-1", "team-x", "team-y", model.ResultAwayWin)

	res, err := svc.ApplyMatchResult(ctx, "fx-1")
	if err != nil {
		t.Fatalf("ApplyMatchResult failed: %v", err)
	}

	if res.AlreadyApplied {
		t.Error("fresh application reported AlreadyApplied")
	}
	if res.WinnerTeamID != "team-y" || res.LoserTeamID != "team-x" {
		t.Errorf("winner/loser = %s/%s", res.WinnerTeamID, res.LoserTeamID)
	}
	if res.TransferAmountCents != 1000 {
		t.Errorf("transfer = %d, want 1000", res.TransferAmountCents)
	}

	loser := teamState(t, st, "team-x")
	winner := teamState(t, st, "team-y")
	if loser.MarketCapCents != 9000 {
		t.Errorf("loser cap = %d, want 9000", loser.MarketCapCents)
	}
	if winner.MarketCapCents != 6000 {
		t.Errorf("winner cap = %d, want 6000", winner.MarketCapCents)
	}
	// Conservation across the pair.
	if loser.MarketCapCents+winner.MarketCapCents != 15000 {
		t.Errorf("total cap = %d, want 15000", loser.MarketCapCents+winner.MarketCapCents)
	}

	fx, err := st.GetFixture(ctx, "fx-1")
	if err != nil {
		t.Fatalf("get fixture: %v", err)
	}
	if fx.Status != model.FixtureApplied {
		t.Errorf("fixture status = %s, want applied", fx.Status)
	}

	for teamID, wantType := range map[string]string{
		"team-x": model.LedgerMatchLoss,
		"team-y": model.LedgerMatchWin,
	} {
		entries, err := st.LedgerByTeam(ctx, teamID, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("ledger %s: %v", teamID, err)
		}
		if len(entries) != 1 || entries[0].LedgerType != wantType {
			t.Errorf("team %s ledger = %+v, want one %s entry", teamID, entries, wantType)
		}
	}
}

func TestApplyMatchResult_Idempotent(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-x", 10000, 1000)
	seedTeam(t, st, "team-y", 5000, 1000)
	seedFixture(t, st, "fx-1", "team-x", "team-y", model.ResultAwayWin)

	if _, err := svc.ApplyMatchResult(ctx, "fx-1"); err != nil {
		t.Fatalf("first application failed: %v", err)
	}

	res, err := svc.ApplyMatchResult(ctx, "fx-1")
	if err != nil {
		t.Fatalf("re-application errored: %v", err)
	}
	if !res.AlreadyApplied {
		t.Error("re-application not reported as AlreadyApplied")
	}
	if res.TransferAmountCents != 0 {
		t.Errorf("re-application moved cap: %d", res.TransferAmountCents)
	}

	// Caps and ledger are exactly as after the first application.
	if cap := teamState(t, st, "team-x").MarketCapCents; cap != 9000 {
		t.Errorf("loser cap = %d, want 9000", cap)
	}
	if cap := teamState(t, st, "team-y").MarketCapCents; cap != 6000 {
		t.Errorf("winner cap = %d, want 6000", cap)
	}
	entries, _ := st.LedgerByTeam(ctx, "team-x", time.Time{}, time.Time{})
	if len(entries) != 1 {
		t.Errorf("duplicate ledger entries after re-application: %d", len(entries))
	}
}

func TestApplyMatchResult_Draw(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-x", 10000, 1000)
	seedTeam(t, st, "team-y", 5000, 1000)
	seedFixture(t, st, "fx-1", "team-x", "team-y", model.ResultDraw)

	res, err := svc.ApplyMatchResult(ctx, "fx-1")
	if err != nil {
		t.Fatalf("ApplyMatchResult failed: %v", err)
	}
	if res.TransferAmountCents != 0 {
		t.Errorf("draw moved cap: %d", res.TransferAmountCents)
	}

	if cap := teamState(t, st, "team-x").MarketCapCents; cap != 10000 {
		t.Errorf("home cap = %d, want 10000", cap)
	}
	for _, teamID := range []string{"team-x", "team-y"} {
		entries, _ := st.LedgerByTeam(ctx, teamID, time.Time{}, time.Time{})
		if len(entries) != 1 || entries[0].LedgerType != model.LedgerMatchDraw {
			t.Fatalf("team %s: want one match_draw entry, got %+v", teamID, entries)
		}
		if entries[0].MarketCapBeforeCents != entries[0].MarketCapAfterCents {
			t.Errorf("draw entry changed cap: %d -> %d", entries[0].MarketCapBeforeCents, entries[0].MarketCapAfterCents)
		}
	}

	fx, _ := st.GetFixture(ctx, "fx-1")
	if fx.Status != model.FixtureApplied {
		t.Errorf("fixture status = %s, want applied", fx.Status)
	}
}

func TestApplyMatchResult_FloorClamp(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-x", 1050, 1000) // loser barely above the 1000 floor
	seedTeam(t, st, "team-y", 5000, 1000)
	seedFixture(t, st, "fx-1", "team-x", "team-y", model.ResultAwayWin)

	res, err := svc.ApplyMatchResult(ctx, "fx-1")
	if err != nil {
		t.Fatalf("ApplyMatchResult failed: %v", err)
	}
	if res.TransferAmountCents != 50 {
		t.Errorf("transfer = %d, want clamped 50", res.TransferAmountCents)
	}
	if res.ClampedCents != 55 {
		t.Errorf("clamped = %d, want 55", res.ClampedCents)
	}
	if cap := teamState(t, st, "team-x").MarketCapCents; cap != 1000 {
		t.Errorf("loser cap = %d, want floor 1000", cap)
	}
}

func TestApplyMatchResult_NotFinal(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-x", 10000, 1000)
	seedTeam(t, st, "team-y", 5000, 1000)
	seedFixture(t, st, "fx-1", "team-x", "team-y", model.ResultPending)

	if _, err := svc.ApplyMatchResult(ctx, "fx-1"); !errors.Is(err, settlement.ErrFixtureNotFinal) {
		t.Fatalf("expected ErrFixtureNotFinal, got %v", err)
	}
	if _, err := svc.ApplyMatchResult(ctx, "missing"); !errors.Is(err, settlement.ErrFixtureNotFound) {
		t.Fatalf("expected ErrFixtureNotFound, got %v", err)
	}
}

func TestOrderSnapshotsFrozenAcrossMatchResult(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-x", 10000, 1000)
	seedTeam(t, st, "team-y", 5000, 1000)
	seedWallet(t, st, "user-1", 10000)
	seedFixture(t, st, "fx-1", "team-x", "team-y", model.ResultAwayWin)

	buy, err := svc.Buy(ctx, "user-1", "team-x", 10, 10)
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, err := svc.ApplyMatchResult(ctx, "fx-1"); err != nil {
		t.Fatalf("ApplyMatchResult failed: %v", err)
	}

	// The stored order still reflects execution-time market state even
	// though team-x's cap has since dropped to 9000.
	stored, err := st.GetOrder(ctx, buy.Order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.MarketCapBeforeCents != 10000 || stored.MarketCapAfterCents != 10000 {
		t.Errorf("order snapshots recomputed: %d/%d", stored.MarketCapBeforeCents, stored.MarketCapAfterCents)
	}
	if stored.PricePerShareCents != 10 {
		t.Errorf("order price recomputed: %d", stored.PricePerShareCents)
	}
}

func TestLedgerChainAcrossOperations(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-x", 10000, 1000)
	seedTeam(t, st, "team-y", 5000, 1000)
	seedWallet(t, st, "user-1", 100000)
	seedFixture(t, st, "fx-1", "team-x", "team-y", model.ResultAwayWin)

	if _, err := svc.Buy(ctx, "user-1", "team-x", 100, 10); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, err := svc.Sell(ctx, "user-1", "team-x", 40, 10); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if _, err := svc.ApplyMatchResult(ctx, "fx-1"); err != nil {
		t.Fatalf("ApplyMatchResult failed: %v", err)
	}
	if _, err := svc.AdjustMarketCap(ctx, "team-x", 12000, "adj-1"); err != nil {
		t.Fatalf("AdjustMarketCap failed: %v", err)
	}

	for _, teamID := range []string{"team-x", "team-y"} {
		entries, err := st.LedgerByTeam(ctx, teamID, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("ledger %s: %v", teamID, err)
		}
		if err := ledger.VerifyChain(entries); err != nil {
			t.Errorf("team %s chain broken: %v", teamID, err)
		}
	}
}

func TestAdjustMarketCap(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedTeam(t, st, "team-1", 10000, 1000)

	entry, err := svc.AdjustMarketCap(ctx, "team-1", 20000, "adj-1")
	if err != nil {
		t.Fatalf("AdjustMarketCap failed: %v", err)
	}
	if entry.LedgerType != model.LedgerManualAdjustment {
		t.Errorf("ledger type = %s, want manual_adjustment", entry.LedgerType)
	}
	if entry.TriggerEventType != model.TriggerAdmin || entry.TriggerEventID != "adj-1" {
		t.Errorf("trigger = %s/%s, want admin/adj-1", entry.TriggerEventType, entry.TriggerEventID)
	}
	if cap := teamState(t, st, "team-1").MarketCapCents; cap != 20000 {
		t.Errorf("cap = %d, want 20000", cap)
	}

	// Below the floor is rejected outright.
	if _, err := svc.AdjustMarketCap(ctx, "team-1", 500, "adj-2"); err == nil {
		t.Error("adjustment below floor accepted")
	}
}

func TestConcurrentBuys_LastSharesSingleWinner(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	err := st.CreateTeam(ctx, &model.Team{
		ID: "team-1", Name: "Scarce", MarketCapCents: 10000,
		TotalShares: 1000, AvailableShares: 5, IsTradeable: true,
	})
	if err != nil {
		t.Fatalf("seed team: %v", err)
	}

	const buyers = 20
	for i := 0; i < buyers; i++ {
		seedWallet(t, st, fmt.Sprintf("user-%d", i), 10000)
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Buy(ctx, fmt.Sprintf("user-%d", i), "team-1", 5, 10)
		}(i)
	}
	wg.Wait()

	var wins, rejections int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, settlement.ErrInsufficientShares):
			rejections++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
	if rejections != buyers-1 {
		t.Errorf("rejections = %d, want %d", rejections, buyers-1)
	}
	if team := teamState(t, st, "team-1"); team.AvailableShares != 0 {
		t.Errorf("available = %d, want 0", team.AvailableShares)
	}
}

// failingStore wraps a Store and injects an error into the ledger append so
// tests can observe that no partial writes survive a failure at the very
// end of a transaction.
type failingStore struct {
	store.Store
}

type failingTx struct {
	store.Tx
}

func (s *failingStore) ExecTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.ExecTx(ctx, func(tx store.Tx) error {
		return fn(&failingTx{Tx: tx})
	})
}

func (t *failingTx) AppendLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	return errors.New("ledger append failed")
}

func TestBuy_RollsBackOnLateFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := settlement.NewService(&failingStore{Store: mem}, nil, settlement.Config{})
	ctx := context.Background()
	seedTeam(t, mem, "team-1", 10000, 1000)
	seedWallet(t, mem, "user-1", 10000)

	if _, err := svc.Buy(ctx, "user-1", "team-1", 10, 10); err == nil {
		t.Fatal("buy succeeded despite ledger failure")
	}

	// Wallet, pool, position, orders: all as before the attempt.
	if bal := walletBalance(t, mem, "user-1"); bal != 10000 {
		t.Errorf("balance = %d, want 10000", bal)
	}
	if team := teamState(t, mem, "team-1"); team.AvailableShares != 1000 {
		t.Errorf("available = %d, want 1000", team.AvailableShares)
	}
	if _, err := mem.GetPosition(ctx, "user-1", "team-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("position survived rollback: %v", err)
	}
	if orders, _ := mem.ListOrdersByUser(ctx, "user-1"); len(orders) != 0 {
		t.Errorf("orders survived rollback: %d", len(orders))
	}
}
