// Package market implements the fixed-shares market model: share price is
// the team's market cap divided by its fixed total share count, trades move
// shares between pool and users without touching the cap, and match results
// transfer a fraction of the loser's cap to the winner.
//
// All monetary values are int64 cents. The transfer rate is the only
// fractional quantity and is handled with shopspring/decimal.
package market

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientShares is returned when the pool holds fewer shares
	// than a buy requests.
	ErrInsufficientShares = errors.New("market: insufficient available shares")

	// ErrPoolOverflow indicates a release that would push availableShares
	// past totalShares. This is an internal consistency fault, never a
	// user-facing condition.
	ErrPoolOverflow = errors.New("market: share release exceeds total shares")

	// ErrInvalidQuantity is returned for zero or negative share counts.
	ErrInvalidQuantity = errors.New("market: quantity must be positive")
)

// DefaultMinMarketCapCents is the platform-wide valuation floor ($10.00).
// A match transfer never takes the loser below this.
const DefaultMinMarketCapCents int64 = 1000

// DefaultTransferRate is the fraction of the loser's market cap moved to
// the winner on a decided match.
var DefaultTransferRate = decimal.NewFromFloat(0.10)

// SharePrice returns marketCap / totalShares in integer cents, rounded
// half-up. totalShares is fixed at team creation and always positive.
func SharePrice(marketCapCents, totalShares int64) int64 {
	if totalShares <= 0 {
		return 0
	}
	q := marketCapCents / totalShares
	r := marketCapCents % totalShares
	if 2*r >= totalShares {
		q++
	}
	return q
}

// Reserve takes quantity shares out of the pool for a buy. The market cap
// is unchanged: a trade moves cash and shares between user and pool, not
// team valuation.
func Reserve(availableShares, quantity int64) (int64, error) {
	if quantity <= 0 {
		return availableShares, ErrInvalidQuantity
	}
	if availableShares < quantity {
		return availableShares, ErrInsufficientShares
	}
	return availableShares - quantity, nil
}

// Release returns quantity shares to the pool after a sell.
func Release(availableShares, totalShares, quantity int64) (int64, error) {
	if quantity <= 0 {
		return availableShares, ErrInvalidQuantity
	}
	next := availableShares + quantity
	if next > totalShares {
		return availableShares, ErrPoolOverflow
	}
	return next, nil
}

// Transfer describes a market-cap movement between the two teams of a
// decided fixture.
type Transfer struct {
	// AmountCents is the cap actually moved (after any floor clamp).
	AmountCents int64
	// ClampedCents is how much of the nominal transfer the floor clamp
	// withheld; zero when the clamp did not engage.
	ClampedCents int64
	WinnerCapAfterCents int64
	LoserCapAfterCents  int64
}

// ComputeTransfer computes the match-result transfer: floor(loserCap*rate),
// clamped so the loser's resulting cap never drops below minCap. The winner
// gains exactly the clamped amount, so cap is conserved and any clamp
// shortfall is reported explicitly rather than silently dropped.
func ComputeTransfer(winnerCapCents, loserCapCents int64, rate decimal.Decimal, minCapCents int64) Transfer {
	nominal := decimal.NewFromInt(loserCapCents).Mul(rate).Floor().IntPart()
	if nominal < 0 {
		nominal = 0
	}

	amount := nominal
	if loserCapCents-amount < minCapCents {
		amount = loserCapCents - minCapCents
		if amount < 0 {
			amount = 0
		}
	}

	return Transfer{
		AmountCents:         amount,
		ClampedCents:        nominal - amount,
		WinnerCapAfterCents: winnerCapCents + amount,
		LoserCapAfterCents:  loserCapCents - amount,
	}
}
