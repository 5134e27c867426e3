package sse

import (
	"time"

	"github.com/GTDGit/tenant_pos/internal/models"
)

// Notifier is the interface services use to emit live events.
type Notifier interface {
	NotifySchemaChanged(tenantID, action, fieldKey string)
	NotifyOrderCommitted(order *models.Order)
}

// HubNotifier implements Notifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifySchemaChanged(tenantID, action, fieldKey string) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(tenantID, &Event{
		Event:     EventSchemaChanged,
		Action:    action,
		FieldKey:  fieldKey,
		Timestamp: time.Now(),
	})
}

func (n *HubNotifier) NotifyOrderCommitted(order *models.Order) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(order.TenantID, &Event{
		Event:       EventOrderCommitted,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OrderType:   string(order.Type),
		Total:       order.Total.StringFixed(models.MoneyPlaces),
		Timestamp:   time.Now(),
	})
}

// NopNotifier is a no-op implementation for when SSE is not needed.
type NopNotifier struct{}

func (n *NopNotifier) NotifySchemaChanged(tenantID, action, fieldKey string) {}
func (n *NopNotifier) NotifyOrderCommitted(order *models.Order)              {}
