// Package worker drains the reconcile-request queue and rebuilds performance
// snapshots out of band.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ssandworth/incomeLineUpdatex/internal/amqp"
	"github.com/ssandworth/incomeLineUpdatex/internal/services"
)

// ReconcileWorker applies queued reconcile requests through the performance
// service. It also supports a periodic pass so snapshots stay fresh even
// when nobody asks.
type ReconcileWorker struct {
	performance *services.PerformanceService
	interval    time.Duration
}

func NewReconcileWorker(performance *services.PerformanceService, interval time.Duration) *ReconcileWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ReconcileWorker{performance: performance, interval: interval}
}

// HandleReconcileRequest processes one queued request. Errors propagate so
// the consumer requeues the message.
func (w *ReconcileWorker) HandleReconcileRequest(ctx context.Context, msg *amqp.ReconcileRequestMessage) error {
	slog.InfoContext(ctx, "Processing reconcile request",
		"year", msg.Year, "month", msg.Month)

	if err := w.performance.Reconcile(ctx, msg.Year, msg.Month); err != nil {
		return fmt.Errorf("reconcile %d/%d: %w", msg.Month, msg.Year, err)
	}
	return nil
}

// RunPeriodic reconciles the current month on a timer until ctx is
// cancelled.
func (w *ReconcileWorker) RunPeriodic(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping periodic reconciliation", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			now := time.Now()
			if err := w.performance.Reconcile(ctx, now.Year(), int(now.Month())); err != nil {
				slog.ErrorContext(ctx, "Periodic reconciliation failed",
					"year", now.Year(), "month", int(now.Month()), "error", err)
			}
		}
	}
}
