package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/tenant_pos/internal/utils"
)

func TestRejectionReason(t *testing.T) {
	assert.Equal(t, "INSUFFICIENT_STOCK", RejectionReason(utils.InsufficientStock("only %d left", 1)))
	assert.Equal(t, "VALIDATION_ERROR", RejectionReason(utils.Validation("cart is empty")))
	assert.Equal(t, "INTERNAL", RejectionReason(errors.New("connection refused")))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestOrdersCommittedCounter(t *testing.T) {
	before := counterValue(t, OrdersCommitted.WithLabelValues("Sale"))
	OrdersCommitted.WithLabelValues("Sale").Inc()
	assert.Equal(t, before+1, counterValue(t, OrdersCommitted.WithLabelValues("Sale")))
}
