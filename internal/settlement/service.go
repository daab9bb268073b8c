// Package settlement orchestrates the value-moving operations (buy, sell,
// match-result application, manual adjustment) as single atomic
// transactions over the store. Every sub-write (market state, position,
// order, ledger, wallet) either commits together or not at all; no failure
// is ever caught-and-continued mid-operation.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/ledger"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/limits"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/market"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/metrics"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/position"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/store"
)

// Typed settlement errors. All are expected, recoverable-by-caller
// conditions; anything else propagating out of an operation is an opaque
// internal fault and the transaction has been rolled back.
var (
	ErrInsufficientFunds  = errors.New("settlement: insufficient funds")
	ErrInsufficientShares = errors.New("settlement: insufficient shares")

	// ErrPriceMismatch means the caller's quoted price diverged from the
	// current price beyond tolerance; re-quote and retry.
	ErrPriceMismatch = errors.New("settlement: quoted price does not match current price")

	ErrInvalidQuantity  = errors.New("settlement: quantity must be positive")
	ErrTeamNotFound     = errors.New("settlement: team not found")
	ErrTeamNotTradeable = errors.New("settlement: team is not tradeable")
	ErrFixtureNotFound  = errors.New("settlement: fixture not found")
	ErrFixtureNotFinal  = errors.New("settlement: fixture result is not final")
	ErrWalletNotFound   = errors.New("settlement: wallet not found")

	// ErrTransactionConflict means the store detected a concurrent
	// modification; retry the whole operation.
	ErrTransactionConflict = errors.New("settlement: transaction conflict, retry")
)

// Config tunes the settlement service. Zero values fall back to platform
// defaults.
type Config struct {
	// MinMarketCapCents is the valuation floor a match transfer never
	// breaches.
	MinMarketCapCents int64

	// TransferRate is the fraction of the loser's cap moved on a decided
	// match.
	TransferRate decimal.Decimal

	// PriceToleranceCents is the maximum allowed divergence between the
	// caller's quoted price and the current price.
	PriceToleranceCents int64

	// TxTimeout bounds every settlement transaction.
	TxTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinMarketCapCents == 0 {
		c.MinMarketCapCents = market.DefaultMinMarketCapCents
	}
	if c.TransferRate.IsZero() {
		c.TransferRate = market.DefaultTransferRate
	}
	if c.PriceToleranceCents == 0 {
		c.PriceToleranceCents = 1
	}
	if c.TxTimeout == 0 {
		c.TxTimeout = 5 * time.Second
	}
	return c
}

// Service executes settlement operations. Concurrency correctness is
// delegated to the store: GetTeamForUpdate holds a per-team write lock for
// the duration of the transaction, so operations on the same team are
// serialized while cross-team operations run in parallel.
type Service struct {
	store   store.Store
	limiter *limits.HoldingLimiter // nil disables holding limits
	cfg     Config
}

// NewService creates a settlement service. Pass nil for limiter if holding
// limits are not enforced.
func NewService(st store.Store, limiter *limits.HoldingLimiter, cfg Config) *Service {
	return &Service{
		store:   st,
		limiter: limiter,
		cfg:     cfg.withDefaults(),
	}
}

// OrderResult is the success payload of Buy and Sell.
type OrderResult struct {
	Order *model.Order `json:"order"`
	// Position is the post-trade holding; nil when a sell closed it.
	Position         *model.Position `json:"position,omitempty"`
	NewBalanceCents  int64           `json:"new_balance_cents"`
	RealizedPnLCents int64           `json:"realized_pnl_cents,omitempty"`
}

// mapStoreErr translates store sentinels that can escape any transaction.
func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return ErrTransactionConflict
	}
	return err
}

// checkPrice validates the caller's quote against the current price within
// the configured tolerance. Guards against stale quotes raced by a
// concurrent match-result application.
func (s *Service) checkPrice(currentCents, expectedCents int64) error {
	diff := expectedCents - currentCents
	if diff < 0 {
		diff = -diff
	}
	if diff > s.cfg.PriceToleranceCents {
		return fmt.Errorf("%w: quoted %d, current %d", ErrPriceMismatch, expectedCents, currentCents)
	}
	return nil
}

// Buy purchases quantity shares of a team at the current price. Share
// reservation, position update, order snapshot, ledger append, and wallet
// debit commit as one atomic transaction.
func (s *Service) Buy(ctx context.Context, userID, teamID string, quantity, expectedPriceCents int64) (*OrderResult, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	start := time.Now()
	var res OrderResult

	err := s.store.ExecTx(ctx, func(tx store.Tx) error {
		team, err := tx.GetTeamForUpdate(ctx, teamID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if !team.IsTradeable {
			return ErrTeamNotTradeable
		}

		price := market.SharePrice(team.MarketCapCents, team.TotalShares)
		if err := s.checkPrice(price, expectedPriceCents); err != nil {
			return err
		}

		newAvailable, err := market.Reserve(team.AvailableShares, quantity)
		if err != nil {
			if errors.Is(err, market.ErrInsufficientShares) {
				return ErrInsufficientShares
			}
			return err
		}
		totalCents := quantity * price

		pos, err := tx.GetPositionForUpdate(ctx, userID, teamID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			pos = nil
		}

		if s.limiter != nil {
			var held int64
			if pos != nil {
				held = pos.Quantity
			}
			invested, err := tx.SumUserInvested(ctx, userID)
			if err != nil {
				return err
			}
			if err := s.limiter.CheckBuy(held, invested, quantity, totalCents); err != nil {
				return err
			}
		}

		newBalance, err := tx.DebitWallet(ctx, userID, totalCents)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrInsufficientFunds):
				return ErrInsufficientFunds
			case errors.Is(err, store.ErrNotFound):
				return ErrWalletNotFound
			}
			return err
		}

		now := time.Now().UTC()
		before := ledger.Of(team)
		team.AvailableShares = newAvailable
		after := ledger.Of(team)

		if err := tx.UpdateTeamMarket(ctx, teamID, team.MarketCapCents, newAvailable); err != nil {
			return err
		}

		pos, err = position.ApplyBuy(pos, userID, teamID, quantity, totalCents, now)
		if err != nil {
			return err
		}
		if err := tx.SavePosition(ctx, pos); err != nil {
			return err
		}

		order := &model.Order{
			ID:                      uuid.New().String(),
			UserID:                  userID,
			TeamID:                  teamID,
			Type:                    model.OrderTypeBuy,
			Status:                  model.OrderStatusFilled,
			Quantity:                quantity,
			PricePerShareCents:      price,
			TotalAmountCents:        totalCents,
			MarketCapBeforeCents:    before.MarketCapCents,
			MarketCapAfterCents:     after.MarketCapCents,
			SharesOutstandingBefore: before.SharesOutstanding,
			SharesOutstandingAfter:  after.SharesOutstanding,
			ExecutedAt:              now,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		entry := ledger.NewEntry(teamID, model.LedgerSharePurchase, before, after, model.TriggerOrder, order.ID, now)
		if err := tx.AppendLedgerEntry(ctx, entry); err != nil {
			return err
		}

		res = OrderResult{Order: order, Position: pos, NewBalanceCents: newBalance}
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	metrics.OrdersTotal.WithLabelValues(model.OrderTypeBuy).Inc()
	metrics.SettlementLatency.WithLabelValues("buy").Observe(time.Since(start).Seconds())

	slog.Info("buy settled",
		"order_id", res.Order.ID,
		"user", userID,
		"team", teamID,
		"qty", quantity,
		"price_cents", res.Order.PricePerShareCents,
		"total_cents", res.Order.TotalAmountCents,
	)

	return &res, nil
}

// Sell disposes of quantity shares at the current price. Cost basis is
// removed proportionally (floor division); a sell that brings the holding
// to zero deletes the position row.
func (s *Service) Sell(ctx context.Context, userID, teamID string, quantity, expectedPriceCents int64) (*OrderResult, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	start := time.Now()
	var res OrderResult

	err := s.store.ExecTx(ctx, func(tx store.Tx) error {
		team, err := tx.GetTeamForUpdate(ctx, teamID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if !team.IsTradeable {
			return ErrTeamNotTradeable
		}

		price := market.SharePrice(team.MarketCapCents, team.TotalShares)
		if err := s.checkPrice(price, expectedPriceCents); err != nil {
			return err
		}

		pos, err := tx.GetPositionForUpdate(ctx, userID, teamID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInsufficientShares
			}
			return err
		}

		proceedsCents := quantity * price
		sellRes, err := position.ApplySell(pos, quantity, proceedsCents, time.Now().UTC())
		if err != nil {
			if errors.Is(err, position.ErrInsufficientShares) {
				return ErrInsufficientShares
			}
			return err
		}

		newAvailable, err := market.Release(team.AvailableShares, team.TotalShares, quantity)
		if err != nil {
			// Release can only fail on internal inconsistency; propagate
			// opaque so nothing commits.
			return err
		}

		now := time.Now().UTC()
		before := ledger.Of(team)
		team.AvailableShares = newAvailable
		after := ledger.Of(team)

		if err := tx.UpdateTeamMarket(ctx, teamID, team.MarketCapCents, newAvailable); err != nil {
			return err
		}

		if sellRes.Closed {
			if err := tx.DeletePosition(ctx, userID, teamID); err != nil {
				return err
			}
		} else {
			if err := tx.SavePosition(ctx, pos); err != nil {
				return err
			}
		}

		newBalance, err := tx.CreditWallet(ctx, userID, proceedsCents)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrWalletNotFound
			}
			return err
		}

		order := &model.Order{
			ID:                      uuid.New().String(),
			UserID:                  userID,
			TeamID:                  teamID,
			Type:                    model.OrderTypeSell,
			Status:                  model.OrderStatusFilled,
			Quantity:                quantity,
			PricePerShareCents:      price,
			TotalAmountCents:        proceedsCents,
			MarketCapBeforeCents:    before.MarketCapCents,
			MarketCapAfterCents:     after.MarketCapCents,
			SharesOutstandingBefore: before.SharesOutstanding,
			SharesOutstandingAfter:  after.SharesOutstanding,
			ExecutedAt:              now,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		entry := ledger.NewEntry(teamID, model.LedgerShareSale, before, after, model.TriggerOrder, order.ID, now)
		if err := tx.AppendLedgerEntry(ctx, entry); err != nil {
			return err
		}

		res = OrderResult{
			Order:            order,
			NewBalanceCents:  newBalance,
			RealizedPnLCents: sellRes.RealizedPnLCents,
		}
		if !sellRes.Closed {
			res.Position = pos
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	metrics.OrdersTotal.WithLabelValues(model.OrderTypeSell).Inc()
	metrics.SettlementLatency.WithLabelValues("sell").Observe(time.Since(start).Seconds())

	slog.Info("sell settled",
		"order_id", res.Order.ID,
		"user", userID,
		"team", teamID,
		"qty", quantity,
		"proceeds_cents", res.Order.TotalAmountCents,
		"realized_pnl_cents", res.RealizedPnLCents,
		"closed", res.Position == nil,
	)

	return &res, nil
}
