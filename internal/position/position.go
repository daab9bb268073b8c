// Package position implements the position-book arithmetic: cost-basis
// accumulation on buys and proportional cost-basis removal on sells.
//
// All division is truncating integer division on int64 cents, applied
// consistently on both paths so rounding drift never accumulates in either
// direction across repeated partial sells.
package position

import (
	"errors"
	"time"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
)

var (
	// ErrInsufficientShares is returned when a sell asks for more shares
	// than the position holds.
	ErrInsufficientShares = errors.New("position: insufficient shares held")

	// ErrInvalidQuantity is returned for zero or negative share counts.
	ErrInvalidQuantity = errors.New("position: quantity must be positive")
)

// SellResult describes the outcome of applying a sell to a position.
type SellResult struct {
	// RemovedCostCents is the proportional cost basis taken out:
	// totalInvested * quantity / heldQuantity, floored.
	RemovedCostCents int64
	// RealizedPnLCents is proceeds minus removed cost for this sell.
	RealizedPnLCents int64
	// Closed is true when the sell brought the quantity to zero and the
	// position row must be deleted rather than kept at zero.
	Closed bool
}

// ApplyBuy folds a buy into an existing position, or creates the position
// if pos is nil. totalCost is the full cash amount paid for the shares.
func ApplyBuy(pos *model.Position, userID, teamID string, quantity, totalCostCents int64, now time.Time) (*model.Position, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if pos == nil {
		return &model.Position{
			UserID:             userID,
			TeamID:             teamID,
			Quantity:           quantity,
			TotalInvestedCents: totalCostCents,
			UpdatedAt:          now,
		}, nil
	}
	pos.Quantity += quantity
	pos.TotalInvestedCents += totalCostCents
	pos.UpdatedAt = now
	return pos, nil
}

// ApplySell reduces a position by quantity shares against the given
// proceeds. The cost basis removed is proportional to the fraction sold,
// using floor division. A sell of the full quantity closes the position.
func ApplySell(pos *model.Position, quantity, proceedsCents int64, now time.Time) (SellResult, error) {
	if quantity <= 0 {
		return SellResult{}, ErrInvalidQuantity
	}
	if pos == nil || pos.Quantity < quantity {
		return SellResult{}, ErrInsufficientShares
	}

	removed := pos.TotalInvestedCents * quantity / pos.Quantity
	realized := proceedsCents - removed

	pos.Quantity -= quantity
	pos.TotalInvestedCents -= removed
	pos.RealizedPnLCents += realized
	pos.UpdatedAt = now

	if pos.Quantity == 0 {
		// The residual basis of a fully-closed position is rounding dust;
		// it was already accounted in removed via the final full-quantity
		// division, which is exact when quantity == heldQuantity.
		return SellResult{RemovedCostCents: removed, RealizedPnLCents: realized, Closed: true}, nil
	}
	return SellResult{RemovedCostCents: removed, RealizedPnLCents: realized}, nil
}

// UnrealizedPnL returns quantity * currentPrice - totalInvested for a
// position at the given share price. Derived, never persisted.
func UnrealizedPnL(pos *model.Position, sharePriceCents int64) int64 {
	if pos == nil {
		return 0
	}
	return pos.Quantity*sharePriceCents - pos.TotalInvestedCents
}
