// File: internal/infra/sched/reconciler.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
	"intelligrid-billing/internal/infra/metrics"
	"intelligrid-billing/internal/usecase"
)

// Reconciler periodically scans stale pending orders and tries to finalize
// them against the gateway. This covers lost return redirects, missed
// webhooks and crashes mid-confirm. Orders that never obtained a provider id
// cannot be queried and are failed outright.
type Reconciler struct {
	uc         usecase.PaymentUseCase
	interval   time.Duration
	staleAfter time.Duration
	log        zerolog.Logger
}

func NewReconciler(uc usecase.PaymentUseCase, interval, staleAfter time.Duration, logger *zerolog.Logger) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &Reconciler{
		uc:         uc,
		interval:   interval,
		staleAfter: staleAfter,
		log:        logger.With().Str("component", "payment-reconciler").Logger(),
	}
}

func (w *Reconciler) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *Reconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.uc.ListStalePending(ctx, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("reconciler list pending failed")
		return
	}

	for _, o := range pending {
		if o.ProviderOrderID == "" {
			if err := w.uc.FailOrder(ctx, o.ID); err != nil {
				w.log.Error().Err(err).Str("order_id", o.ID).Msg("reconciler fail order failed")
				continue
			}
			metrics.IncReconciledOrder("orphaned")
			continue
		}

		order, err := w.uc.Confirm(ctx, o.Gateway, adapter.ConfirmProof{
			PaymentID: o.ProviderOrderID,
			OrderID:   o.ID,
		})
		if err != nil {
			w.log.Warn().Err(err).Str("order_id", o.ID).Msg("reconciler confirm failed")
			continue
		}
		if order.Status == model.OrderStatusCompleted {
			metrics.IncReconciledOrder("completed")
			w.log.Info().Str("order_id", o.ID).Msg("stale pending order reconciled as paid")
		} else {
			metrics.IncReconciledOrder(string(order.Status))
		}
	}
}
