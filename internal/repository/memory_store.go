package repository

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

// MemoryStore is an in-process implementation of every store contract. A
// single mutex plays the role of the database's transactions and row locks.
// It backs STORE_DRIVER=memory and the service tests.
type MemoryStore struct {
	mu        sync.Mutex
	fields    map[string][]models.FieldDefinition
	products  map[string]map[string]models.Product
	orders    map[string][]models.Order
	sequences map[string]int
	movements []models.StockMovement
	events    []models.ReconciliationEvent
	now       func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		fields:    make(map[string][]models.FieldDefinition),
		products:  make(map[string]map[string]models.Product),
		orders:    make(map[string][]models.Order),
		sequences: make(map[string]int),
		now:       time.Now,
	}
}

// Stores exposes the memory store through the store interfaces.
func (m *MemoryStore) Stores() Stores {
	return Stores{
		Fields:         &MemoryFieldStore{m: m},
		Products:       &MemoryProductStore{m: m},
		Orders:         &MemoryOrderStore{m: m},
		Reconciliation: &MemoryReconciliationStore{m: m},
	}
}

// StockMovements returns the recorded movements of one product, oldest first.
func (m *MemoryStore) StockMovements(tenantID, productID string) []models.StockMovement {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.StockMovement
	for _, mv := range m.movements {
		if mv.TenantID == tenantID && mv.ProductID == productID {
			out = append(out, mv)
		}
	}
	return out
}

// applyStockLocked mirrors mutateStock. Callers hold m.mu.
func (m *MemoryStore) applyStockLocked(mut stockMutation) (*models.StockMovement, error) {
	tenant := m.products[mut.TenantID]
	p, ok := tenant[mut.ProductID]
	if !ok {
		return nil, utils.NotFound(utils.ErrProductNotFound, "product %s not found", mut.ProductID)
	}
	next, err := models.NextStock(p.Stock, mut.Delta, mut.Policy)
	if err != nil {
		return nil, stockError(err, mut.ProductID, p.Stock, mut.Delta)
	}

	now := m.now()
	mv := models.StockMovement{
		ID:        uuid.NewString(),
		TenantID:  mut.TenantID,
		ProductID: mut.ProductID,
		OrderID:   mut.OrderID,
		LineNo:    mut.LineNo,
		Reason:    mut.Reason,
		Delta:     next - p.Stock,
		PrevStock: p.Stock,
		NewStock:  next,
		CreatedAt: now,
	}
	p.Stock = next
	p.UpdatedAt = now
	tenant[mut.ProductID] = p
	m.movements = append(m.movements, mv)
	return &mv, nil
}

func cloneField(f models.FieldDefinition) models.FieldDefinition {
	if f.Options != nil {
		f.Options = append([]string{}, f.Options...)
	}
	return f
}

func cloneProduct(p models.Product) models.Product {
	if p.Attributes != nil {
		attrs := make(models.Attributes, len(p.Attributes))
		for k, v := range p.Attributes {
			if ms, ok := v.(models.MultiSelectValue); ok {
				v = append(models.MultiSelectValue{}, ms...)
			}
			attrs[k] = v
		}
		p.Attributes = attrs
	}
	return p
}

func cloneOrder(o models.Order) models.Order {
	o.Lines = append([]models.OrderLine{}, o.Lines...)
	return o
}
