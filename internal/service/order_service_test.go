package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/repository"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

type orderFixture struct {
	svc      *OrderService
	mem      *repository.MemoryStore
	stores   repository.Stores
	notifier *fakeNotifier
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	mem := repository.NewMemoryStore()
	stores := mem.Stores()
	n := &fakeNotifier{}
	svc := NewOrderService(stores.Orders, stores.Reconciliation, nil, n)
	svc.now = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }
	return &orderFixture{svc: svc, mem: mem, stores: stores, notifier: n}
}

func (f *orderFixture) addProduct(t *testing.T, price string, stock int) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, f.stores.Products.Create(context.Background(), &models.Product{
		ID: id, TenantID: tenantA.TenantID, SKU: "SKU-" + id[:4], Name: "Item " + id[:4],
		SalePrice: decimal.RequireFromString(price), Stock: stock, IsActive: true,
	}))
	return id
}

func (f *orderFixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.stores.Products.Get(context.Background(), tenantA.TenantID, id)
	require.NoError(t, err)
	return p.Stock
}

func TestOrderService_CreateSale(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	id := f.addProduct(t, "10.00", 10)

	order, err := f.svc.CreateSale(ctx, tenantA, &models.CartSpec{
		Items:   []models.CartItem{{ProductID: id, Quantity: 3}},
		TaxRate: decimal.RequireFromString("0.1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-20261016-000001", order.OrderNumber)
	assert.Equal(t, models.OrderTypeSale, order.Type)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("33")))
	assert.Equal(t, "user-1", order.CreatedBy)
	assert.NoError(t, order.CheckTotals())
	assert.Equal(t, 7, f.stock(t, id))
	assert.Len(t, f.notifier.orders, 1)

	moves := f.mem.StockMovements(tenantA.TenantID, id)
	require.Len(t, moves, 1)
	assert.Equal(t, models.StockReasonSale, moves[0].Reason)
	assert.Equal(t, order.ID, *moves[0].OrderID)

	second, err := f.svc.CreateSale(ctx, tenantA, &models.CartSpec{Items: []models.CartItem{{ProductID: id, Quantity: 1}}})
	require.NoError(t, err)
	assert.Equal(t, "ORD-20261016-000002", second.OrderNumber)

	got, err := f.svc.GetOrder(ctx, tenantA, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)
	assert.Len(t, got.Lines, 1)

	list, total, err := f.svc.ListOrders(ctx, tenantA, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)
}

func TestOrderService_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newOrderFixture(t)
	id := f.addProduct(t, "5.00", 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateSale(context.Background(), tenantA, &models.CartSpec{
				Items: []models.CartItem{{ProductID: id, Quantity: 3}},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, utils.IsKind(err, utils.KindInsufficientStock), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, f.stock(t, id))
}

func TestOrderService_CartIsAtomic(t *testing.T) {
	f := newOrderFixture(t)
	plenty := f.addProduct(t, "1.00", 10)
	scarce := f.addProduct(t, "1.00", 1)

	_, err := f.svc.CreateSale(context.Background(), tenantA, &models.CartSpec{
		Items: []models.CartItem{{ProductID: plenty, Quantity: 4}, {ProductID: scarce, Quantity: 2}},
	})
	assert.True(t, utils.IsKind(err, utils.KindInsufficientStock))
	assert.Equal(t, 10, f.stock(t, plenty))
	assert.Equal(t, 1, f.stock(t, scarce))
	assert.Empty(t, f.mem.StockMovements(tenantA.TenantID, plenty))

	_, err = f.svc.CreateSale(context.Background(), tenantA, &models.CartSpec{
		Items: []models.CartItem{{ProductID: plenty, Quantity: 6}, {ProductID: plenty, Quantity: 6}},
	})
	assert.True(t, utils.IsKind(err, utils.KindInsufficientStock))
	assert.Equal(t, 10, f.stock(t, plenty))
}

func TestOrderService_UnknownProduct(t *testing.T) {
	f := newOrderFixture(t)
	id := f.addProduct(t, "1.00", 3)

	_, err := f.svc.CreateSale(context.Background(), tenantA, &models.CartSpec{
		Items: []models.CartItem{{ProductID: id, Quantity: 1}, {ProductID: uuid.NewString(), Quantity: 1}},
	})
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
	assert.Equal(t, 3, f.stock(t, id))
}

func TestOrderService_ReturnBeyondStockLimit(t *testing.T) {
	f := newOrderFixture(t)
	guard := &fakeGuard{}
	f.svc.guard = guard
	id := f.addProduct(t, "1.00", models.MaxStock-1)

	_, err := f.svc.CreateReturn(context.Background(), tenantA, &models.CartSpec{
		Items: []models.CartItem{{ProductID: id, Quantity: models.MaxStock}},
	})
	assert.True(t, utils.IsKind(err, utils.KindValidation), "got %v", err)

	_, err = f.svc.CreateReturn(context.Background(), tenantA, &models.CartSpec{
		Items: []models.CartItem{{ProductID: id, Quantity: models.MaxStock + 1}}, RequestKey: "ret-1",
	})
	assert.True(t, utils.IsKind(err, utils.KindValidation), "got %v", err)

	_, err = f.svc.CreateReturn(context.Background(), tenantA, &models.CartSpec{
		Items: []models.CartItem{{ProductID: id, Quantity: 2}}, RequestKey: "ret-2",
	})
	assert.True(t, utils.IsKind(err, utils.KindValidation), "got %v", err)
	assert.Equal(t, []string{"ret-2"}, guard.released)

	assert.Equal(t, models.MaxStock-1, f.stock(t, id))
	open, err := f.stores.Reconciliation.ListOpen(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestOrderService_CreateReturn(t *testing.T) {
	f := newOrderFixture(t)
	id := f.addProduct(t, "10.00", 5)

	order, err := f.svc.CreateReturn(context.Background(), tenantA, &models.CartSpec{
		Items:         []models.CartItem{{ProductID: id, Quantity: 2}},
		DiscountType:  models.DiscountFixed,
		DiscountValue: decimal.RequireFromString("3"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderTypeRefund, order.Type)
	assert.True(t, order.Subtotal.Equal(decimal.RequireFromString("20")))
	assert.True(t, order.TaxRate.Equal(models.ReturnTaxRate))
	assert.True(t, order.Tax.Equal(decimal.RequireFromString("2")))
	assert.True(t, order.DiscountAmount.IsZero())
	assert.True(t, order.Total.Equal(decimal.RequireFromString("22")))
	assert.Equal(t, 7, f.stock(t, id))

	moves := f.mem.StockMovements(tenantA.TenantID, id)
	require.Len(t, moves, 1)
	assert.Equal(t, models.StockReasonReturn, moves[0].Reason)
	assert.Equal(t, 2, moves[0].Delta)
}

func TestOrderService_ValidationRejectsBeforeStore(t *testing.T) {
	f := newOrderFixture(t)
	id := f.addProduct(t, "1.00", 3)

	_, err := f.svc.CreateSale(context.Background(), tenantA, &models.CartSpec{
		Items: []models.CartItem{{ProductID: id, Quantity: -1}},
	})
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = f.svc.CreateSale(context.Background(), models.TenantContext{}, &models.CartSpec{
		Items: []models.CartItem{{ProductID: id, Quantity: 1}},
	})
	assert.True(t, utils.IsKind(err, utils.KindValidation))
	assert.Equal(t, 3, f.stock(t, id))
}

func TestOrderService_RequestKeyReplaysCommittedOrder(t *testing.T) {
	f := newOrderFixture(t)
	id := f.addProduct(t, "2.00", 10)
	spec := &models.CartSpec{Items: []models.CartItem{{ProductID: id, Quantity: 2}}, RequestKey: "req-42"}

	first, err := f.svc.CreateSale(context.Background(), tenantA, spec)
	require.NoError(t, err)
	second, err := f.svc.CreateSale(context.Background(), tenantA, spec)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 8, f.stock(t, id))
}

type fakeGuard struct {
	mu       sync.Mutex
	held     map[string]string
	released []string
}

func (g *fakeGuard) Reserve(_ context.Context, tenantID, key, orderID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held == nil {
		g.held = map[string]string{}
	}
	if _, ok := g.held[tenantID+key]; ok {
		return false, nil
	}
	g.held[tenantID+key] = orderID
	return true, nil
}

func (g *fakeGuard) Holder(_ context.Context, tenantID, key string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held[tenantID+key], nil
}

func (g *fakeGuard) Release(_ context.Context, tenantID, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, tenantID+key)
	g.released = append(g.released, key)
	return nil
}

func TestOrderService_InFlightRequestKey(t *testing.T) {
	f := newOrderFixture(t)
	guard := &fakeGuard{held: map[string]string{tenantA.TenantID + "req-1": "other"}}
	f.svc.guard = guard
	id := f.addProduct(t, "2.00", 10)

	_, err := f.svc.CreateSale(context.Background(), tenantA, &models.CartSpec{
		Items: []models.CartItem{{ProductID: id, Quantity: 1}}, RequestKey: "req-1",
	})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindDuplicate))
	assert.ErrorIs(t, err, utils.ErrRequestInFlight)
	assert.Contains(t, err.Error(), "as order other")
	assert.Equal(t, 10, f.stock(t, id))
}

func TestOrderService_DomainFailureReleasesReservation(t *testing.T) {
	f := newOrderFixture(t)
	guard := &fakeGuard{}
	f.svc.guard = guard
	id := f.addProduct(t, "2.00", 1)

	_, err := f.svc.CreateSale(context.Background(), tenantA, &models.CartSpec{
		Items: []models.CartItem{{ProductID: id, Quantity: 5}}, RequestKey: "req-9",
	})
	assert.True(t, utils.IsKind(err, utils.KindInsufficientStock))
	assert.Equal(t, []string{"req-9"}, guard.released)
}

type failingOrderStore struct {
	repository.OrderStore
	err error
}

func (s *failingOrderStore) Commit(context.Context, repository.OrderDraft) (*models.Order, error) {
	return nil, s.err
}

func TestOrderService_InfrastructureFailureIsReconciled(t *testing.T) {
	f := newOrderFixture(t)
	id := f.addProduct(t, "2.00", 5)
	broken := NewOrderService(&failingOrderStore{OrderStore: f.stores.Orders, err: errors.New("connection reset")},
		f.stores.Reconciliation, nil, nil)

	_, err := broken.CreateSale(context.Background(), tenantA, &models.CartSpec{
		Items: []models.CartItem{{ProductID: id, Quantity: 1}}, RequestKey: "req-7",
	})
	require.Error(t, err)
	assert.False(t, utils.IsDomainError(err))

	open, err := f.stores.Reconciliation.ListOpen(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, models.OrderTypeSale, open[0].OrderType)
	assert.Equal(t, "req-7", *open[0].RequestKey)
	assert.Contains(t, open[0].Reason, "connection reset")

	resolved, err := f.svc.ReconcileOpen(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	open, err = f.stores.Reconciliation.ListOpen(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, open)
	assert.Equal(t, 5, f.stock(t, id))
}

func TestOrderService_ReconcileMarksCommittedOrders(t *testing.T) {
	f := newOrderFixture(t)
	id := f.addProduct(t, "2.00", 5)
	order, err := f.svc.CreateSale(context.Background(), tenantA, &models.CartSpec{Items: []models.CartItem{{ProductID: id, Quantity: 1}}})
	require.NoError(t, err)

	require.NoError(t, f.stores.Reconciliation.Record(context.Background(), &models.ReconciliationEvent{
		ID: uuid.NewString(), TenantID: tenantA.TenantID, OrderID: order.ID,
		OrderType: models.OrderTypeSale, Reason: "commit timeout", Status: models.ReconciliationOpen,
	}))

	resolved, err := f.svc.ReconcileOpen(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
}
