package ledger_test

import (
	"strings"
	"testing"
	"time"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/ledger"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
)

var now = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func TestNewEntry_SnapshotsBothSides(t *testing.T) {
	before := ledger.Snapshot{MarketCapCents: 10000, TotalShares: 1000, SharesOutstanding: 10}
	after := ledger.Snapshot{MarketCapCents: 10000, TotalShares: 1000, SharesOutstanding: 20}

	e := ledger.NewEntry("team-1", model.LedgerSharePurchase, before, after, model.TriggerOrder, "order-1", now)

	if e.ID == "" {
		t.Error("entry ID not assigned")
	}
	if e.MarketCapBeforeCents != 10000 || e.MarketCapAfterCents != 10000 {
		t.Errorf("cap %d -> %d, want 10000 -> 10000", e.MarketCapBeforeCents, e.MarketCapAfterCents)
	}
	if e.SharePriceBeforeCents != 10 || e.SharePriceAfterCents != 10 {
		t.Errorf("price %d -> %d, want 10 -> 10", e.SharePriceBeforeCents, e.SharePriceAfterCents)
	}
	if e.SharesOutstandingBefore != 10 || e.SharesOutstandingAfter != 20 {
		t.Errorf("outstanding %d -> %d, want 10 -> 20", e.SharesOutstandingBefore, e.SharesOutstandingAfter)
	}
	if e.TriggerEventType != model.TriggerOrder || e.TriggerEventID != "order-1" {
		t.Errorf("trigger %s/%s, want order/order-1", e.TriggerEventType, e.TriggerEventID)
	}
}

func chain(t *testing.T, teamID string, caps ...int64) []model.LedgerEntry {
	t.Helper()
	entries := make([]model.LedgerEntry, 0, len(caps)-1)
	for i := 1; i < len(caps); i++ {
		before := ledger.Snapshot{MarketCapCents: caps[i-1], TotalShares: 1000}
		after := ledger.Snapshot{MarketCapCents: caps[i], TotalShares: 1000}
		entries = append(entries, *ledger.NewEntry(teamID, model.LedgerMatchWin, before, after, model.TriggerFixture, "fx", now))
	}
	return entries
}

func TestVerifyChain_Unbroken(t *testing.T) {
	entries := chain(t, "team-1", 10000, 11000, 9900, 9900)
	if err := ledger.VerifyChain(entries); err != nil {
		t.Errorf("VerifyChain failed on valid chain: %v", err)
	}
	if err := ledger.VerifyChain(nil); err != nil {
		t.Errorf("VerifyChain failed on empty chain: %v", err)
	}
}

func TestVerifyChain_DetectsGap(t *testing.T) {
	entries := chain(t, "team-1", 10000, 11000)
	entries = append(entries, chain(t, "team-1", 12000, 13000)...)

	err := ledger.VerifyChain(entries)
	if err == nil {
		t.Fatal("VerifyChain accepted a broken chain")
	}
	if !strings.Contains(err.Error(), "market cap before") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVerifyChain_DetectsMixedTeams(t *testing.T) {
	entries := chain(t, "team-1", 10000, 11000)
	entries = append(entries, chain(t, "team-2", 11000, 12000)...)

	if err := ledger.VerifyChain(entries); err == nil {
		t.Fatal("VerifyChain accepted entries from two teams")
	}
}
