package models

import (
	"encoding/json"
	"time"
)

// ReconciliationStatus tracks an order commit whose outcome was not confirmed.
type ReconciliationStatus string

const (
	ReconciliationOpen       ReconciliationStatus = "open"
	ReconciliationCommitted  ReconciliationStatus = "committed"
	ReconciliationRolledBack ReconciliationStatus = "rolled_back"
)

// ReconciliationEvent records a failed or ambiguous order commit so an
// operator or the reconciliation worker can settle it.
type ReconciliationEvent struct {
	ID         string               `db:"id" json:"id"`
	TenantID   string               `db:"tenant_id" json:"tenantId"`
	OrderID    string               `db:"order_id" json:"orderId"`
	RequestKey *string              `db:"request_key" json:"requestKey,omitempty"`
	OrderType  OrderType            `db:"order_type" json:"orderType"`
	Reason     string               `db:"reason" json:"reason"`
	Payload    json.RawMessage      `db:"payload" json:"payload,omitempty"`
	Status     ReconciliationStatus `db:"status" json:"status"`
	CreatedAt  time.Time            `db:"created_at" json:"createdAt"`
	ResolvedAt *time.Time           `db:"resolved_at" json:"resolvedAt,omitempty"`
}
