package limits_test

import (
	"errors"
	"testing"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/limits"
)

func TestCheckBuy(t *testing.T) {
	tests := []struct {
		name     string
		limiter  *limits.HoldingLimiter
		held     int64
		invested int64
		quantity int64
		cost     int64
		wantErr  error
	}{
		{
			name:     "within both limits",
			limiter:  limits.NewHoldingLimiter(100, 50000),
			held:     10, invested: 1000, quantity: 5, cost: 500,
		},
		{
			name:     "exactly at per-team limit",
			limiter:  limits.NewHoldingLimiter(100, 0),
			held:     95, quantity: 5,
		},
		{
			name:     "per-team limit exceeded",
			limiter:  limits.NewHoldingLimiter(100, 0),
			held:     96, quantity: 5,
			wantErr: limits.ErrPerTeamLimitExceeded,
		},
		{
			name:     "exposure limit exceeded",
			limiter:  limits.NewHoldingLimiter(0, 50000),
			invested: 49900, quantity: 5, cost: 200,
			wantErr: limits.ErrExposureLimitExceeded,
		},
		{
			name:     "exactly at exposure limit",
			limiter:  limits.NewHoldingLimiter(0, 50000),
			invested: 49800, quantity: 5, cost: 200,
		},
		{
			name:    "zero limits disable checks",
			limiter: limits.NewHoldingLimiter(0, 0),
			held:    1 << 40, invested: 1 << 50, quantity: 1000, cost: 1 << 40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.limiter.CheckBuy(tt.held, tt.invested, tt.quantity, tt.cost)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckBuy = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
