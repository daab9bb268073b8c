package position_test

import (
	"errors"
	"testing"
	"time"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/position"
)

var now = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func TestApplyBuy_CreatesPosition(t *testing.T) {
	pos, err := position.ApplyBuy(nil, "user-1", "team-1", 10, 100, now)
	if err != nil {
		t.Fatalf("ApplyBuy failed: %v", err)
	}
	if pos.UserID != "user-1" || pos.TeamID != "team-1" {
		t.Errorf("wrong identity: %s/%s", pos.UserID, pos.TeamID)
	}
	if pos.Quantity != 10 || pos.TotalInvestedCents != 100 {
		t.Errorf("quantity=%d invested=%d, want 10/100", pos.Quantity, pos.TotalInvestedCents)
	}
}

func TestApplyBuy_Accumulates(t *testing.T) {
	pos, _ := position.ApplyBuy(nil, "user-1", "team-1", 10, 100, now)
	pos, err := position.ApplyBuy(pos, "user-1", "team-1", 5, 60, now)
	if err != nil {
		t.Fatalf("second ApplyBuy failed: %v", err)
	}
	if pos.Quantity != 15 || pos.TotalInvestedCents != 160 {
		t.Errorf("quantity=%d invested=%d, want 15/160", pos.Quantity, pos.TotalInvestedCents)
	}
}

func TestApplyBuy_RejectsNonPositiveQuantity(t *testing.T) {
	for _, q := range []int64{0, -3} {
		if _, err := position.ApplyBuy(nil, "u", "t", q, 0, now); !errors.Is(err, position.ErrInvalidQuantity) {
			t.Errorf("quantity %d: expected ErrInvalidQuantity, got %v", q, err)
		}
	}
}

func TestApplySell_ProportionalCostBasis(t *testing.T) {
	pos, _ := position.ApplyBuy(nil, "user-1", "team-1", 10, 105, now)

	// Sell 3 of 10: removed = floor(105*3/10) = 31.
	res, err := position.ApplySell(pos, 3, 45, now)
	if err != nil {
		t.Fatalf("ApplySell failed: %v", err)
	}
	if res.RemovedCostCents != 31 {
		t.Errorf("removed = %d, want 31", res.RemovedCostCents)
	}
	if res.RealizedPnLCents != 14 {
		t.Errorf("realized = %d, want 14", res.RealizedPnLCents)
	}
	if res.Closed {
		t.Error("position should remain open")
	}
	if pos.Quantity != 7 || pos.TotalInvestedCents != 74 {
		t.Errorf("quantity=%d invested=%d, want 7/74", pos.Quantity, pos.TotalInvestedCents)
	}
}

func TestApplySell_FullQuantityCloses(t *testing.T) {
	pos, _ := position.ApplyBuy(nil, "user-1", "team-1", 10, 105, now)

	res, err := position.ApplySell(pos, 10, 120, now)
	if err != nil {
		t.Fatalf("ApplySell failed: %v", err)
	}
	if !res.Closed {
		t.Error("expected Closed")
	}
	if res.RemovedCostCents != 105 {
		t.Errorf("removed = %d, want full basis 105", res.RemovedCostCents)
	}
	if pos.Quantity != 0 || pos.TotalInvestedCents != 0 {
		t.Errorf("quantity=%d invested=%d, want 0/0", pos.Quantity, pos.TotalInvestedCents)
	}
	if pos.RealizedPnLCents != 15 {
		t.Errorf("realized total = %d, want 15", pos.RealizedPnLCents)
	}
}

func TestApplySell_RepeatedPartialSellsDrainBasisExactly(t *testing.T) {
	// 7 shares at 100 cents basis: floor division never lets the residual
	// basis go negative, and the final sell removes whatever is left.
	pos, _ := position.ApplyBuy(nil, "user-1", "team-1", 7, 100, now)

	var removedTotal int64
	for pos.Quantity > 0 {
		res, err := position.ApplySell(pos, 1, 15, now)
		if err != nil {
			t.Fatalf("ApplySell failed: %v", err)
		}
		removedTotal += res.RemovedCostCents
		if pos.TotalInvestedCents < 0 {
			t.Fatalf("basis went negative: %d", pos.TotalInvestedCents)
		}
	}
	if removedTotal != 100 {
		t.Errorf("removed over all sells = %d, want 100", removedTotal)
	}
}

func TestApplySell_InsufficientShares(t *testing.T) {
	pos, _ := position.ApplyBuy(nil, "user-1", "team-1", 10, 100, now)

	_, err := position.ApplySell(pos, 15, 150, now)
	if !errors.Is(err, position.ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
	// The position is untouched on rejection.
	if pos.Quantity != 10 || pos.TotalInvestedCents != 100 {
		t.Errorf("position mutated on rejected sell: %+v", pos)
	}

	if _, err := position.ApplySell(nil, 1, 10, now); !errors.Is(err, position.ErrInsufficientShares) {
		t.Errorf("nil position: expected ErrInsufficientShares, got %v", err)
	}
}

func TestUnrealizedPnL(t *testing.T) {
	pos := &model.Position{Quantity: 10, TotalInvestedCents: 100}
	if got := position.UnrealizedPnL(pos, 12); got != 20 {
		t.Errorf("UnrealizedPnL = %d, want 20", got)
	}
	if got := position.UnrealizedPnL(pos, 8); got != -20 {
		t.Errorf("UnrealizedPnL = %d, want -20", got)
	}
	if got := position.UnrealizedPnL(nil, 12); got != 0 {
		t.Errorf("UnrealizedPnL(nil) = %d, want 0", got)
	}
}
