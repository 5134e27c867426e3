// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GTDGit/tenant_pos/internal/utils"
)

var (
	OrdersCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_committed_total",
		Help: "Orders committed, by order type.",
	}, []string{"type"})

	OrderRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_rejections_total",
		Help: "Order commits rejected, by error kind.",
	}, []string{"reason"})

	StockAdjustments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Manual stock adjustments applied.",
	})

	ReconciliationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_events_total",
		Help: "Reconciliation events, by status.",
	}, []string{"status"})
)

// RejectionReason labels a failed commit for OrderRejections.
func RejectionReason(err error) string {
	if kind := utils.KindOf(err); kind != "" {
		return string(kind)
	}
	return "INTERNAL"
}
