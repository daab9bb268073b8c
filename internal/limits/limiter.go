// Package limits enforces per-user holding limits at buy time.
//
// Two limits apply: a cap on how many of a single team's shares one user
// may hold (keeps any one user from cornering a club), and a cap on the
// user's total invested cash across all teams (aggregate exposure).
package limits

import "errors"

var (
	// ErrPerTeamLimitExceeded is returned when a buy would push the user's
	// holding in one team beyond the per-team maximum.
	ErrPerTeamLimitExceeded = errors.New("limits: per-team holding limit exceeded")

	// ErrExposureLimitExceeded is returned when a buy would push the
	// user's total invested amount beyond the portfolio maximum.
	ErrExposureLimitExceeded = errors.New("limits: total exposure limit exceeded")
)

// HoldingLimiter enforces per-user holding limits.
//
// MaxSharesPerTeam is an absolute share count; MaxTotalInvestedCents caps
// the cost basis summed across every position the user holds. Either limit
// set to zero disables that check.
type HoldingLimiter struct {
	MaxSharesPerTeam      int64
	MaxTotalInvestedCents int64
}

// NewHoldingLimiter creates a limiter with the given per-team and
// portfolio-wide limits.
func NewHoldingLimiter(maxSharesPerTeam, maxTotalInvestedCents int64) *HoldingLimiter {
	return &HoldingLimiter{
		MaxSharesPerTeam:      maxSharesPerTeam,
		MaxTotalInvestedCents: maxTotalInvestedCents,
	}
}

// CheckBuy validates whether a buy respects the holding limits.
//
// Parameters:
//   - heldInTeam: shares the user already holds in the target team
//   - totalInvestedCents: the user's cost basis summed across all teams
//   - quantity, costCents: the proposed buy
//
// Returns nil if the buy is within limits, or an error naming the
// violated limit.
func (l *HoldingLimiter) CheckBuy(heldInTeam, totalInvestedCents, quantity, costCents int64) error {
	if l.MaxSharesPerTeam > 0 && heldInTeam+quantity > l.MaxSharesPerTeam {
		return ErrPerTeamLimitExceeded
	}
	if l.MaxTotalInvestedCents > 0 && totalInvestedCents+costCents > l.MaxTotalInvestedCents {
		return ErrExposureLimitExceeded
	}
	return nil
}
