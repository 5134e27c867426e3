package repository

import (
	"context"
	"sort"
	"time"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

// MemoryOrderStore implements OrderStore on a MemoryStore.
type MemoryOrderStore struct {
	m *MemoryStore
}

// Commit validates every stock change before applying any, so a failed
// commit leaves no trace.
func (s *MemoryOrderStore) Commit(_ context.Context, d OrderDraft) (*models.Order, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if d.RequestKey != nil {
		for _, o := range s.m.orders[d.TenantID] {
			if o.RequestKey != nil && *o.RequestKey == *d.RequestKey {
				return nil, utils.Duplicate(utils.ErrDuplicateRequest, "request key already committed")
			}
		}
	}

	tenant := s.m.products[d.TenantID]
	byID := make(map[string]models.Product)
	for _, id := range distinctProductIDs(d.Items) {
		p, ok := tenant[id]
		if !ok {
			return nil, utils.NotFound(utils.ErrProductNotFound, "product %s not found", id)
		}
		byID[id] = cloneProduct(p)
	}

	order, err := d.Build(byID)
	if err != nil {
		return nil, err
	}
	if err := checkOrderTotals(order); err != nil {
		return nil, err
	}

	staged := make(map[string]int, len(byID))
	for id, p := range byID {
		staged[id] = p.Stock
	}
	for _, l := range order.Lines {
		delta := d.Type.StockDelta(l.Quantity)
		next, err := models.NextStock(staged[l.ProductID], delta, models.StockStrict)
		if err != nil {
			return nil, stockError(err, l.ProductID, staged[l.ProductID], delta)
		}
		staged[l.ProductID] = next
	}

	order.ID = d.OrderID
	order.TenantID = d.TenantID
	order.Type = d.Type
	order.RequestKey = d.RequestKey
	order.CreatedBy = d.CreatedBy
	order.CreatedAt = d.Now

	day := d.Now.UTC().Truncate(24 * time.Hour)
	seqKey := d.TenantID + "|" + day.Format("20060102")
	s.m.sequences[seqKey]++
	order.OrderNumber = models.FormatOrderNumber(day, s.m.sequences[seqKey])

	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
		lineNo := order.Lines[i].LineNo
		if _, err := s.m.applyStockLocked(stockMutation{
			TenantID:  d.TenantID,
			ProductID: order.Lines[i].ProductID,
			Delta:     d.Type.StockDelta(order.Lines[i].Quantity),
			Policy:    models.StockStrict,
			Reason:    d.Type.StockReason(),
			OrderID:   &order.ID,
			LineNo:    &lineNo,
		}); err != nil {
			// Unreachable after staging; the store mutex is held throughout.
			return nil, err
		}
	}

	s.m.orders[d.TenantID] = append(s.m.orders[d.TenantID], cloneOrder(*order))
	return order, nil
}

// Get returns an order by id.
func (s *MemoryOrderStore) Get(_ context.Context, tenantID, id string) (*models.Order, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for _, o := range s.m.orders[tenantID] {
		if o.ID == id {
			out := cloneOrder(o)
			return &out, nil
		}
	}
	return nil, utils.NotFound(utils.ErrOrderNotFound, "order %s not found", id)
}

// GetByRequestKey returns the order committed under key.
func (s *MemoryOrderStore) GetByRequestKey(_ context.Context, tenantID, key string) (*models.Order, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for _, o := range s.m.orders[tenantID] {
		if o.RequestKey != nil && *o.RequestKey == key {
			out := cloneOrder(o)
			return &out, nil
		}
	}
	return nil, utils.NotFound(utils.ErrOrderNotFound, "order with request key %s not found", key)
}

// List returns a page of orders, newest first.
func (s *MemoryOrderStore) List(_ context.Context, tenantID string, page, limit int) ([]models.Order, int, error) {
	page, limit = normalizePage(page, limit)

	s.m.mu.Lock()
	all := make([]models.Order, len(s.m.orders[tenantID]))
	for i, o := range s.m.orders[tenantID] {
		all[i] = cloneOrder(o)
	}
	s.m.mu.Unlock()

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].OrderNumber > all[j].OrderNumber
	})

	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Order{}, len(all), nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

// MemoryReconciliationStore implements ReconciliationStore on a MemoryStore.
type MemoryReconciliationStore struct {
	m *MemoryStore
}

// Record stores an event.
func (s *MemoryReconciliationStore) Record(_ context.Context, ev *models.ReconciliationEvent) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	ev.CreatedAt = s.m.now()
	s.m.events = append(s.m.events, *ev)
	return nil
}

// ListOpen returns unresolved events, oldest first.
func (s *MemoryReconciliationStore) ListOpen(_ context.Context, limit int) ([]models.ReconciliationEvent, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	var out []models.ReconciliationEvent
	for _, ev := range s.m.events {
		if ev.Status != models.ReconciliationOpen {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Resolve closes an open event.
func (s *MemoryReconciliationStore) Resolve(_ context.Context, id string, status models.ReconciliationStatus) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for i := range s.m.events {
		if s.m.events[i].ID == id && s.m.events[i].Status == models.ReconciliationOpen {
			now := s.m.now()
			s.m.events[i].Status = status
			s.m.events[i].ResolvedAt = &now
		}
	}
	return nil
}
