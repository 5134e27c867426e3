package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/tenant_pos/internal/models"
)

// ReconciliationRepository stores order commits whose outcome is unknown.
type ReconciliationRepository struct {
	db *sqlx.DB
}

// NewReconciliationRepository creates a new ReconciliationRepository.
func NewReconciliationRepository(db *sqlx.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

// Record inserts an open event.
func (r *ReconciliationRepository) Record(ctx context.Context, ev *models.ReconciliationEvent) error {
	const q = `
        INSERT INTO reconciliation_events (id, tenant_id, order_id, request_key, order_type, reason, payload, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at`

	payload := []byte("{}")
	if len(ev.Payload) > 0 {
		payload = ev.Payload
	}
	err := r.db.QueryRowxContext(ctx, q,
		ev.ID, ev.TenantID, ev.OrderID, ev.RequestKey, ev.OrderType, ev.Reason, payload, ev.Status,
	).Scan(&ev.CreatedAt)
	return translateError(err, nil, "reconciliation event")
}

// ListOpen returns the oldest unresolved events.
func (r *ReconciliationRepository) ListOpen(ctx context.Context, limit int) ([]models.ReconciliationEvent, error) {
	const q = `
        SELECT id, tenant_id, order_id, request_key, order_type, reason, payload, status, created_at, resolved_at
        FROM reconciliation_events
        WHERE status = 'open'
        ORDER BY created_at
        LIMIT $1`

	var events []models.ReconciliationEvent
	if err := r.db.SelectContext(ctx, &events, q, limit); err != nil {
		return nil, translateError(err, nil, "reconciliation events")
	}
	return events, nil
}

// Resolve closes an event with its final status.
func (r *ReconciliationRepository) Resolve(ctx context.Context, id string, status models.ReconciliationStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reconciliation_events SET status = $2, resolved_at = NOW() WHERE id = $1 AND status = 'open'`,
		id, status)
	return translateError(err, nil, "reconciliation event")
}
