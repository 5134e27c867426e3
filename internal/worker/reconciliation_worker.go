package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Reconciler resolves open reconciliation events.
type Reconciler interface {
	ReconcileOpen(ctx context.Context, limit int) (int, error)
}

// ReconciliationWorker periodically resolves orders whose commit outcome was
// unknown when the request failed.
type ReconciliationWorker struct {
	reconciler Reconciler
	interval   time.Duration
	batchSize  int
}

// NewReconciliationWorker constructs a ReconciliationWorker.
func NewReconciliationWorker(reconciler Reconciler, interval time.Duration, batchSize int) *ReconciliationWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReconciliationWorker{
		reconciler: reconciler,
		interval:   interval,
		batchSize:  batchSize,
	}
}

// Start runs the reconciliation loop until ctx is canceled. A non-positive
// interval disables the worker.
func (w *ReconciliationWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Info().Msg("Reconciliation worker disabled")
		return
	}
	log.Info().Dur("interval", w.interval).Msg("Starting reconciliation worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Reconciliation worker stopped")
			return
		}
	}
}

func (w *ReconciliationWorker) run(ctx context.Context) {
	resolved, err := w.reconciler.ReconcileOpen(ctx, w.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to reconcile open events")
		return
	}
	if resolved > 0 {
		log.Info().Int("resolved", resolved).Msg("Reconciliation events resolved")
	}
}
