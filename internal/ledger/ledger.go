// Package ledger builds and verifies the append-only per-team audit trail.
// Entries are constructed here so every settlement path snapshots the same
// fields the same way; verification replays a team's history and checks the
// before/after chain.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/market"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
)

// Snapshot captures one team's market state at a point in time.
type Snapshot struct {
	MarketCapCents    int64
	TotalShares       int64
	SharesOutstanding int64
}

// Of takes a snapshot of the given team.
func Of(t *model.Team) Snapshot {
	return Snapshot{
		MarketCapCents:    t.MarketCapCents,
		TotalShares:       t.TotalShares,
		SharesOutstanding: t.SharesOutstanding(),
	}
}

// NewEntry builds an immutable ledger entry from before/after snapshots of
// one team, correlated to the order or fixture that caused it.
func NewEntry(teamID, ledgerType string, before, after Snapshot, triggerType, triggerID string, now time.Time) *model.LedgerEntry {
	return &model.LedgerEntry{
		ID:                      uuid.New().String(),
		TeamID:                  teamID,
		LedgerType:              ledgerType,
		MarketCapBeforeCents:    before.MarketCapCents,
		MarketCapAfterCents:     after.MarketCapCents,
		SharePriceBeforeCents:   market.SharePrice(before.MarketCapCents, before.TotalShares),
		SharePriceAfterCents:    market.SharePrice(after.MarketCapCents, after.TotalShares),
		SharesOutstandingBefore: before.SharesOutstanding,
		SharesOutstandingAfter:  after.SharesOutstanding,
		TriggerEventType:        triggerType,
		TriggerEventID:          triggerID,
		CreatedAt:               now,
	}
}

// VerifyChain checks that a single team's entries, in chronological order,
// form an unbroken chain: each entry's before-values must equal the
// previous entry's after-values. Used by the audit endpoint and tests.
func VerifyChain(entries []model.LedgerEntry) error {
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.TeamID != prev.TeamID {
			return fmt.Errorf("ledger: entry %s team %s does not match chain team %s", cur.ID, cur.TeamID, prev.TeamID)
		}
		if cur.MarketCapBeforeCents != prev.MarketCapAfterCents {
			return fmt.Errorf("ledger: entry %s market cap before %d != previous after %d",
				cur.ID, cur.MarketCapBeforeCents, prev.MarketCapAfterCents)
		}
		if cur.SharesOutstandingBefore != prev.SharesOutstandingAfter {
			return fmt.Errorf("ledger: entry %s shares outstanding before %d != previous after %d",
				cur.ID, cur.SharesOutstandingBefore, prev.SharesOutstandingAfter)
		}
		if cur.SharePriceBeforeCents != prev.SharePriceAfterCents {
			return fmt.Errorf("ledger: entry %s share price before %d != previous after %d",
				cur.ID, cur.SharePriceBeforeCents, prev.SharePriceAfterCents)
		}
	}
	return nil
}
