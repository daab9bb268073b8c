package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/ledger"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/market"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/metrics"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/store"
)

// TransferResult is the success payload of ApplyMatchResult.
type TransferResult struct {
	FixtureID string `json:"fixture_id"`
	Result    string `json:"result"`

	// AlreadyApplied is true when the fixture had been settled before this
	// call; the call was a no-op and no state changed.
	AlreadyApplied bool `json:"already_applied"`

	WinnerTeamID string `json:"winner_team_id,omitempty"`
	LoserTeamID  string `json:"loser_team_id,omitempty"`

	TransferAmountCents int64 `json:"transfer_amount_cents"`
	// ClampedCents is the part of the nominal transfer withheld by the
	// market-cap floor; zero when the clamp did not engage.
	ClampedCents        int64 `json:"clamped_cents,omitempty"`
	WinnerCapAfterCents int64 `json:"winner_cap_after_cents,omitempty"`
	LoserCapAfterCents  int64 `json:"loser_cap_after_cents,omitempty"`
}

// ApplyMatchResult settles a decided fixture: it moves a fraction of the
// loser's market cap to the winner (clamped at the platform floor), writes
// one ledger entry per team, and moves the fixture to its terminal applied
// status. Draws change no capitalization but are still ledgered and marked
// applied.
//
// The operation is idempotent: applying an already-applied fixture is a
// successful no-op, so an at-least-once scheduled job can invoke it
// redundantly. Existing order snapshots are never touched; they stay
// frozen at their execution-time values.
func (s *Service) ApplyMatchResult(ctx context.Context, fixtureID string) (*TransferResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	start := time.Now()
	var res TransferResult

	err := s.store.ExecTx(ctx, func(tx store.Tx) error {
		fixture, err := tx.GetFixtureForUpdate(ctx, fixtureID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrFixtureNotFound
			}
			return err
		}

		res.FixtureID = fixtureID
		res.Result = fixture.Result

		// Applied is terminal; reprocessing is rejected idempotently.
		if fixture.Status == model.FixtureApplied {
			res.AlreadyApplied = true
			return nil
		}
		if !fixture.HasFinalResult() {
			return ErrFixtureNotFinal
		}

		now := time.Now().UTC()

		if fixture.Result == model.ResultDraw {
			for _, teamID := range lockOrder(fixture.HomeTeamID, fixture.AwayTeamID) {
				team, err := tx.GetTeamForUpdate(ctx, teamID)
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return ErrTeamNotFound
					}
					return err
				}
				snap := ledger.Of(team)
				entry := ledger.NewEntry(teamID, model.LedgerMatchDraw, snap, snap, model.TriggerFixture, fixtureID, now)
				if err := tx.AppendLedgerEntry(ctx, entry); err != nil {
					return err
				}
			}
			return tx.MarkFixtureApplied(ctx, fixtureID)
		}

		winnerID, loserID, _ := fixture.WinnerLoser()

		// Lock both teams in a stable order to avoid deadlocking against a
		// concurrent application touching the same pair.
		teams := make(map[string]*model.Team, 2)
		for _, teamID := range lockOrder(winnerID, loserID) {
			team, err := tx.GetTeamForUpdate(ctx, teamID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return ErrTeamNotFound
				}
				return err
			}
			teams[teamID] = team
		}
		winner, loser := teams[winnerID], teams[loserID]

		transfer := market.ComputeTransfer(winner.MarketCapCents, loser.MarketCapCents, s.cfg.TransferRate, s.cfg.MinMarketCapCents)

		winnerBefore, loserBefore := ledger.Of(winner), ledger.Of(loser)
		winner.MarketCapCents = transfer.WinnerCapAfterCents
		loser.MarketCapCents = transfer.LoserCapAfterCents

		if err := tx.UpdateTeamMarket(ctx, winnerID, winner.MarketCapCents, winner.AvailableShares); err != nil {
			return err
		}
		if err := tx.UpdateTeamMarket(ctx, loserID, loser.MarketCapCents, loser.AvailableShares); err != nil {
			return err
		}

		winEntry := ledger.NewEntry(winnerID, model.LedgerMatchWin, winnerBefore, ledger.Of(winner), model.TriggerFixture, fixtureID, now)
		if err := tx.AppendLedgerEntry(ctx, winEntry); err != nil {
			return err
		}
		lossEntry := ledger.NewEntry(loserID, model.LedgerMatchLoss, loserBefore, ledger.Of(loser), model.TriggerFixture, fixtureID, now)
		if err := tx.AppendLedgerEntry(ctx, lossEntry); err != nil {
			return err
		}

		if err := tx.MarkFixtureApplied(ctx, fixtureID); err != nil {
			return err
		}

		res.WinnerTeamID = winnerID
		res.LoserTeamID = loserID
		res.TransferAmountCents = transfer.AmountCents
		res.ClampedCents = transfer.ClampedCents
		res.WinnerCapAfterCents = transfer.WinnerCapAfterCents
		res.LoserCapAfterCents = transfer.LoserCapAfterCents
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	if res.AlreadyApplied {
		metrics.MatchApplicationsTotal.WithLabelValues("already_applied").Inc()
		return &res, nil
	}

	metrics.MatchApplicationsTotal.WithLabelValues(res.Result).Inc()
	metrics.SettlementLatency.WithLabelValues("apply_match_result").Observe(time.Since(start).Seconds())

	slog.Info("match result applied",
		"fixture", fixtureID,
		"result", res.Result,
		"winner", res.WinnerTeamID,
		"loser", res.LoserTeamID,
		"transfer_cents", res.TransferAmountCents,
		"clamped_cents", res.ClampedCents,
	)

	return &res, nil
}

// lockOrder returns the two team IDs sorted so every transaction acquires
// team locks in the same order.
func lockOrder(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}
