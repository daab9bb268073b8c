package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/ledger"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/store"
)

// AdjustMarketCap sets a team's market cap to newCapCents as an audited
// manual adjustment. The change goes through the same transaction and
// ledger machinery as every other valuation move; the floor still applies.
// adjustmentID correlates the ledger entry to the admin action that caused
// it.
func (s *Service) AdjustMarketCap(ctx context.Context, teamID string, newCapCents int64, adjustmentID string) (*model.LedgerEntry, error) {
	if newCapCents < s.cfg.MinMarketCapCents {
		return nil, fmt.Errorf("settlement: adjusted cap %d below floor %d", newCapCents, s.cfg.MinMarketCapCents)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	var entry *model.LedgerEntry
	err := s.store.ExecTx(ctx, func(tx store.Tx) error {
		team, err := tx.GetTeamForUpdate(ctx, teamID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTeamNotFound
			}
			return err
		}

		before := ledger.Of(team)
		team.MarketCapCents = newCapCents
		after := ledger.Of(team)

		if err := tx.UpdateTeamMarket(ctx, teamID, newCapCents, team.AvailableShares); err != nil {
			return err
		}

		entry = ledger.NewEntry(teamID, model.LedgerManualAdjustment, before, after, model.TriggerAdmin, adjustmentID, time.Now().UTC())
		return tx.AppendLedgerEntry(ctx, entry)
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	slog.Info("market cap adjusted",
		"team", teamID,
		"new_cap_cents", newCapCents,
		"adjustment_id", adjustmentID,
	)
	return entry, nil
}
