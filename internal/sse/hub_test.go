package sse

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/tenant_pos/internal/models"
)

func TestHub_BroadcastIsTenantScoped(t *testing.T) {
	hub := NewHub()
	a := hub.Register("c1", "tenant-a")
	b := hub.Register("c2", "tenant-b")
	defer hub.Unregister("c1")
	defer hub.Unregister("c2")

	NewHubNotifier(hub).NotifySchemaChanged("tenant-a", "added", "warranty_period")

	require.Len(t, a.Events, 1)
	assert.Len(t, b.Events, 0)

	var ev Event
	require.NoError(t, json.Unmarshal(<-a.Events, &ev))
	assert.Equal(t, EventSchemaChanged, ev.Event)
	assert.Equal(t, "warranty_period", ev.FieldKey)
}

func TestHubNotifier_OrderCommitted(t *testing.T) {
	hub := NewHub()
	c := hub.Register("c1", "t1")
	defer hub.Unregister("c1")

	NewHubNotifier(hub).NotifyOrderCommitted(&models.Order{
		ID: "o1", TenantID: "t1", OrderNumber: "ORD-20261016-000001",
		Type: models.OrderTypeSale, Total: decimal.RequireFromString("12.5"),
	})

	var ev Event
	require.NoError(t, json.Unmarshal(<-c.Events, &ev))
	assert.Equal(t, EventOrderCommitted, ev.Event)
	assert.Equal(t, "12.50", ev.Total)
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := hub.Register("c1", "t1")
	defer hub.Unregister("c1")

	for i := 0; i < cap(c.Events)+5; i++ {
		hub.Broadcast("t1", &Event{Event: EventSchemaChanged})
	}
	assert.Len(t, c.Events, cap(c.Events))
}
