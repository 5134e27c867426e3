package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

// MemoryProductStore implements ProductStore on a MemoryStore.
type MemoryProductStore struct {
	m *MemoryStore
}

// List returns the tenant's products ordered by name.
func (s *MemoryProductStore) List(_ context.Context, tenantID, search string) ([]models.Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	var out []models.Product
	for _, p := range s.m.products[tenantID] {
		if needle != "" && !productMatches(p, needle) {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func productMatches(p models.Product, needle string) bool {
	for _, v := range []string{p.SKU, p.Name, p.Brand, p.Category} {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// Get returns a single product.
func (s *MemoryProductStore) Get(_ context.Context, tenantID, id string) (*models.Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	p, ok := s.m.products[tenantID][id]
	if !ok {
		return nil, utils.NotFound(utils.ErrProductNotFound, "product %s not found", id)
	}
	p = cloneProduct(p)
	return &p, nil
}

// Create stores a new product.
func (s *MemoryProductStore) Create(_ context.Context, p *models.Product) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	tenant, ok := s.m.products[p.TenantID]
	if !ok {
		tenant = make(map[string]models.Product)
		s.m.products[p.TenantID] = tenant
	}
	if _, exists := tenant[p.ID]; exists {
		return utils.Duplicate(nil, "product %s already exists", p.ID)
	}
	now := s.m.now()
	p.CreatedAt, p.UpdatedAt = now, now
	tenant[p.ID] = cloneProduct(*p)
	return nil
}

// Update writes everything but stock, then applies stockDelta.
func (s *MemoryProductStore) Update(_ context.Context, p *models.Product, stockDelta int) (*models.Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	tenant := s.m.products[p.TenantID]
	cur, ok := tenant[p.ID]
	if !ok {
		return nil, utils.NotFound(utils.ErrProductNotFound, "product %s not found", p.ID)
	}
	next := cloneProduct(*p)
	next.Stock = cur.Stock
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = s.m.now()
	tenant[p.ID] = next

	if stockDelta != 0 {
		if _, err := s.m.applyStockLocked(stockMutation{
			TenantID:  p.TenantID,
			ProductID: p.ID,
			Delta:     stockDelta,
			Policy:    models.StockClamp,
			Reason:    models.StockReasonAdjustment,
		}); err != nil {
			tenant[p.ID] = cur
			return nil, err
		}
	}
	out := cloneProduct(tenant[p.ID])
	return &out, nil
}

// Delete removes a product.
func (s *MemoryProductStore) Delete(_ context.Context, tenantID, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.products[tenantID][id]; !ok {
		return utils.NotFound(utils.ErrProductNotFound, "product %s not found", id)
	}
	delete(s.m.products[tenantID], id)
	return nil
}

// AdjustStock applies delta with the clamping policy.
func (s *MemoryProductStore) AdjustStock(_ context.Context, tenantID, id string, delta int) (*models.StockMovement, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	return s.m.applyStockLocked(stockMutation{
		TenantID:  tenantID,
		ProductID: id,
		Delta:     delta,
		Policy:    models.StockClamp,
		Reason:    models.StockReasonAdjustment,
	})
}
