// Package fixtures runs the background job that feeds finished matches
// into the settlement service. Delivery is at-least-once: the job may see
// the same fixture across ticks, and application is safe to repeat because
// an applied fixture settles as a no-op.
package fixtures

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oasis-digital-ae/football-mvp-sub003/internal/model"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/settlement"
	"github.com/oasis-digital-ae/football-mvp-sub003/internal/store"
)

// Applier periodically scans for closed fixtures carrying a final result
// and applies them.
type Applier struct {
	store    store.Store
	svc      *settlement.Service
	interval time.Duration
}

// NewApplier creates an applier polling at the given interval.
func NewApplier(st store.Store, svc *settlement.Service, interval time.Duration) *Applier {
	return &Applier{
		store:    st,
		svc:      svc,
		interval: interval,
	}
}

// Run starts the polling loop and blocks until ctx is cancelled. Must be
// called in a goroutine.
func (a *Applier) Run(ctx context.Context) {
	slog.Info("fixture applier started", "interval", a.interval)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.ApplyPending(ctx)
		case <-ctx.Done():
			slog.Info("fixture applier stopped")
			return
		}
	}
}

// ApplyPending applies every closed fixture with a final result. Individual
// failures are logged and skipped; the next tick retries them.
func (a *Applier) ApplyPending(ctx context.Context) {
	fixturesClosed, err := a.store.ListFixturesByStatus(ctx, model.FixtureClosed)
	if err != nil {
		slog.Error("fixture applier: list closed fixtures failed", "err", err)
		return
	}

	for _, f := range fixturesClosed {
		if !f.HasFinalResult() {
			continue
		}
		res, err := a.svc.ApplyMatchResult(ctx, f.ID)
		if err != nil {
			if errors.Is(err, settlement.ErrTransactionConflict) {
				// Another instance got there first; the applied guard
				// handles the rerun next tick.
				continue
			}
			slog.Error("fixture applier: apply failed", "fixture", f.ID, "err", err)
			continue
		}
		if !res.AlreadyApplied {
			slog.Info("fixture applied by job",
				"fixture", f.ID,
				"result", res.Result,
				"transfer_cents", res.TransferAmountCents,
			)
		}
	}
}
