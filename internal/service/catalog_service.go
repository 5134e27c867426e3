package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/tenant_pos/internal/metrics"
	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/repository"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

// ProductForm is the raw key/value submission of a product entry form. Keys
// are field keys; values are decoded JSON.
type ProductForm map[string]any

// CatalogService handles product CRUD against the tenant's dynamic schema.
type CatalogService struct {
	products repository.ProductStore
	schema   *SchemaService
	now      func() time.Time
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(products repository.ProductStore, schema *SchemaService) *CatalogService {
	return &CatalogService{products: products, schema: schema, now: time.Now}
}

// ListProducts returns the tenant's products, optionally filtered by a
// case-insensitive search on sku, name, brand and category.
func (s *CatalogService) ListProducts(ctx context.Context, tc models.TenantContext, search string) ([]models.Product, error) {
	if !tc.Valid() {
		return nil, utils.Validation("tenant is required")
	}
	return s.products.List(ctx, tc.TenantID, search)
}

// GetProduct retrieves a product by id.
func (s *CatalogService) GetProduct(ctx context.Context, tc models.TenantContext, id string) (*models.Product, error) {
	if err := checkProductID(tc, id); err != nil {
		return nil, err
	}
	return s.products.Get(ctx, tc.TenantID, id)
}

// CreateProduct validates form against the tenant's schema and stores a new
// product.
func (s *CatalogService) CreateProduct(ctx context.Context, tc models.TenantContext, form ProductForm) (*models.Product, error) {
	defs, err := s.schema.ListFields(ctx, tc)
	if err != nil {
		return nil, err
	}

	p := &models.Product{
		ID:       uuid.NewString(),
		TenantID: tc.TenantID,
		IsActive: true,
	}
	if _, err := applyCoreFields(p, form); err != nil {
		return nil, err
	}
	if p.Attributes, err = buildAttributes(defs, form); err != nil {
		return nil, err
	}
	if err := s.fillDefaults(p); err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Info().Str("tenant_id", tc.TenantID).Str("product_id", p.ID).Str("sku", p.SKU).Msg("product created")
	return p, nil
}

// UpdateProduct applies form to an existing product. Core fields absent from
// the form keep their stored values; the attribute bag is replaced as a
// whole. A supplied stock level is applied as a delta from the stored one.
func (s *CatalogService) UpdateProduct(ctx context.Context, tc models.TenantContext, id string, form ProductForm) (*models.Product, error) {
	if err := checkProductID(tc, id); err != nil {
		return nil, err
	}
	defs, err := s.schema.ListFields(ctx, tc)
	if err != nil {
		return nil, err
	}
	cur, err := s.products.Get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}

	next := *cur
	stockSet, err := applyCoreFields(&next, form)
	if err != nil {
		return nil, err
	}
	if next.Attributes, err = buildAttributes(defs, form); err != nil {
		return nil, err
	}
	if err := s.fillDefaults(&next); err != nil {
		return nil, err
	}

	delta := 0
	if stockSet {
		delta = next.Stock - cur.Stock
	}
	updated, err := s.products.Update(ctx, &next, delta)
	if err != nil {
		return nil, err
	}
	log.Info().Str("tenant_id", tc.TenantID).Str("product_id", id).Int("stock_delta", delta).Msg("product updated")
	return updated, nil
}

// DeleteProduct removes a product.
func (s *CatalogService) DeleteProduct(ctx context.Context, tc models.TenantContext, id string) error {
	if err := checkProductID(tc, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, tc.TenantID, id); err != nil {
		return err
	}
	log.Info().Str("tenant_id", tc.TenantID).Str("product_id", id).Msg("product deleted")
	return nil
}

// AdjustStock sets stock to max(0, current+delta).
func (s *CatalogService) AdjustStock(ctx context.Context, tc models.TenantContext, id string, delta int) (*models.StockMovement, error) {
	if err := checkProductID(tc, id); err != nil {
		return nil, err
	}
	if delta > models.MaxStock || delta < -models.MaxStock {
		return nil, utils.Validation("delta must be between -%d and %d", models.MaxStock, models.MaxStock)
	}
	mv, err := s.products.AdjustStock(ctx, tc.TenantID, id, delta)
	if err != nil {
		return nil, err
	}
	metrics.StockAdjustments.Inc()
	log.Info().Str("tenant_id", tc.TenantID).Str("product_id", id).
		Int("prev_stock", mv.PrevStock).Int("new_stock", mv.NewStock).Msg("stock adjusted")
	return mv, nil
}

// VisibleFields returns the columns worth showing for products: every core
// field, plus active custom fields that at least one product has a value for.
func VisibleFields(products []models.Product, defs []models.FieldDefinition) []models.FieldDefinition {
	out := make([]models.FieldDefinition, 0, len(defs))
	for _, d := range defs {
		if !d.IsCustom {
			out = append(out, d)
			continue
		}
		if !d.Active {
			continue
		}
		for i := range products {
			if v, ok := products[i].Attributes[d.FieldKey]; ok && v != nil && !v.IsEmpty() {
				out = append(out, d)
				break
			}
		}
	}
	models.SortFields(out)
	return out
}

// Row renders a product for every active field. Missing or stale values
// become the field type's default; rendering never fails.
func Row(p models.Product, defs []models.FieldDefinition) models.Attributes {
	row := make(models.Attributes, len(defs))
	for _, d := range defs {
		if !d.Active {
			continue
		}
		if !d.IsCustom {
			row[d.FieldKey] = coreValue(p, d)
			continue
		}
		row[d.FieldKey] = p.Attributes.ValueOr(d)
	}
	return row
}

func coreValue(p models.Product, d models.FieldDefinition) models.FieldValue {
	switch d.FieldKey {
	case models.FieldSKU:
		return models.TextValue(p.SKU)
	case models.FieldName:
		return models.TextValue(p.Name)
	case models.FieldBrand:
		return models.TextValue(p.Brand)
	case models.FieldCategory:
		return models.TextValue(p.Category)
	case models.FieldSalePrice:
		return models.NumberValue(p.SalePrice.InexactFloat64())
	case models.FieldRetailPrice:
		if !p.RetailPrice.Valid {
			return models.DefaultValue(models.FieldTypeNumber)
		}
		return models.NumberValue(p.RetailPrice.Decimal.InexactFloat64())
	case models.FieldStock:
		return models.NumberValue(float64(p.Stock))
	}
	return models.DefaultValue(d.Type)
}

// applyCoreFields copies the core keys present in form onto p. It reports
// whether the form carried a stock value.
func applyCoreFields(p *models.Product, form ProductForm) (bool, error) {
	stockSet := false
	for key, raw := range form {
		if !models.IsCoreField(key) {
			continue
		}
		switch key {
		case models.FieldSKU, models.FieldName, models.FieldBrand, models.FieldCategory:
			s, err := coerceString(models.FieldDefinition{Label: key}, orEmpty(raw))
			if err != nil {
				return false, err
			}
			switch key {
			case models.FieldSKU:
				p.SKU = s
			case models.FieldName:
				p.Name = s
			case models.FieldBrand:
				p.Brand = s
			case models.FieldCategory:
				p.Category = s
			}
		case models.FieldSalePrice:
			d, ok, err := parseMoney(key, raw)
			if err != nil {
				return false, err
			}
			if !ok {
				d = decimal.Zero
			}
			p.SalePrice = d
		case models.FieldRetailPrice:
			d, ok, err := parseMoney(key, raw)
			if err != nil {
				return false, err
			}
			p.RetailPrice = decimal.NullDecimal{Decimal: d, Valid: ok}
		case models.FieldStock:
			if isBlank(raw) {
				continue
			}
			f, err := parseNumber(key, raw)
			if err != nil {
				return false, err
			}
			f = math.Max(0, math.Round(f))
			if f > models.MaxStock {
				return false, utils.Validation("%s must not exceed %d", key, models.MaxStock)
			}
			p.Stock = int(f)
			stockSet = true
		}
	}
	return stockSet, nil
}

// buildAttributes validates the non-core form keys against defs and returns
// the complete attribute bag.
func buildAttributes(defs []models.FieldDefinition, form ProductForm) (models.Attributes, error) {
	byKey := make(map[string]models.FieldDefinition, len(defs))
	for _, d := range defs {
		if d.IsCustom {
			byKey[d.FieldKey] = d
		}
	}
	for key := range form {
		if models.IsCoreField(key) {
			continue
		}
		if _, ok := byKey[key]; !ok {
			return nil, utils.Validation("unknown field %q", key)
		}
	}

	attrs := make(models.Attributes)
	for _, d := range defs {
		if !d.IsCustom {
			continue
		}
		raw, present := form[d.FieldKey]
		if !present && !d.Active {
			continue
		}
		v, err := coerceValue(d, raw)
		if err != nil {
			return nil, err
		}
		if v == nil {
			if d.Active && d.Required {
				return nil, utils.Validation("%s is required", d.Label)
			}
			continue
		}
		attrs[d.FieldKey] = v
	}
	return attrs, nil
}

// parseMoney reads a price, rounding to cents and clamping into range. ok is
// false for a blank value.
func parseMoney(label string, raw any) (decimal.Decimal, bool, error) {
	if isBlank(raw) {
		return decimal.Zero, false, nil
	}
	if s, isString := raw.(string); isString {
		if _, err := parseNumber(label, s); err != nil {
			return decimal.Zero, false, err
		}
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return decimal.Zero, false, utils.Validation("%s must be a number, got %q", label, s)
		}
		return models.ClampMoney(d), true, nil
	}
	f, err := parseNumber(label, raw)
	if err != nil {
		return decimal.Zero, false, err
	}
	return models.ClampMoney(decimal.NewFromFloat(f)), true, nil
}

func (s *CatalogService) fillDefaults(p *models.Product) error {
	var err error
	if strings.TrimSpace(p.SKU) == "" {
		if p.SKU, err = utils.GenerateDefaultCode("SKU", s.now()); err != nil {
			return err
		}
	}
	if strings.TrimSpace(p.Name) == "" {
		if p.Name, err = utils.GenerateDefaultCode("Product", s.now()); err != nil {
			return err
		}
	}
	return nil
}

func checkProductID(tc models.TenantContext, id string) error {
	if !tc.Valid() {
		return utils.Validation("tenant is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return utils.NotFound(utils.ErrProductNotFound, "product %s not found", id)
	}
	return nil
}

func orEmpty(raw any) any {
	if raw == nil {
		return ""
	}
	return raw
}
