package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

// FieldStore persists tenant field definitions.
type FieldStore interface {
	// List returns the tenant's definitions in any order.
	List(ctx context.Context, tenantID string) ([]models.FieldDefinition, error)
	// WithSchemaLock serializes schema mutations for one tenant. fn sees the
	// current definitions and returns the writes to apply; they are applied
	// atomically, or not at all when fn fails.
	WithSchemaLock(ctx context.Context, tenantID string, fn SchemaMutation) error
}

// SchemaMutation computes the writes for one schema operation.
type SchemaMutation func(fields []models.FieldDefinition) (*models.SchemaChange, error)

// ProductStore persists products and their stock.
type ProductStore interface {
	List(ctx context.Context, tenantID, search string) ([]models.Product, error)
	Get(ctx context.Context, tenantID, id string) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	// Update writes every column except stock, then applies stockDelta with
	// the clamping policy. The stored row is returned.
	Update(ctx context.Context, p *models.Product, stockDelta int) (*models.Product, error)
	Delete(ctx context.Context, tenantID, id string) error
	AdjustStock(ctx context.Context, tenantID, id string, delta int) (*models.StockMovement, error)
}

// OrderDraft is everything an order commit needs apart from the locked
// product rows.
type OrderDraft struct {
	OrderID    string
	TenantID   string
	Type       models.OrderType
	Items      []models.CartItem
	RequestKey *string
	CreatedBy  string
	Now        time.Time
	// Build prices the order against the locked product rows (keyed by id).
	// It must not perform I/O.
	Build func(products map[string]models.Product) (*models.Order, error)
}

// checkOrderTotals refuses a built order whose arithmetic does not add up,
// before anything is written.
func checkOrderTotals(o *models.Order) error {
	if err := o.CheckTotals(); err != nil {
		return utils.Invariant(utils.ErrOrderTotals, "order totals are inconsistent: %v", err)
	}
	return nil
}

// OrderStore commits and reads orders.
type OrderStore interface {
	// Commit locks the referenced products, builds the order, allocates its
	// number and writes header, lines and stock movements in one transaction.
	Commit(ctx context.Context, draft OrderDraft) (*models.Order, error)
	Get(ctx context.Context, tenantID, id string) (*models.Order, error)
	GetByRequestKey(ctx context.Context, tenantID, key string) (*models.Order, error)
	List(ctx context.Context, tenantID string, page, limit int) ([]models.Order, int, error)
}

// ReconciliationStore records commits whose outcome is unknown.
type ReconciliationStore interface {
	Record(ctx context.Context, ev *models.ReconciliationEvent) error
	ListOpen(ctx context.Context, limit int) ([]models.ReconciliationEvent, error)
	Resolve(ctx context.Context, id string, status models.ReconciliationStatus) error
}

// Stores groups the store implementations selected at startup.
type Stores struct {
	Fields         FieldStore
	Products       ProductStore
	Orders         OrderStore
	Reconciliation ReconciliationStore
}

// NewPostgresStores wires the PostgreSQL implementations onto db.
func NewPostgresStores(db *sqlx.DB) Stores {
	return Stores{
		Fields:         NewFieldRepository(db),
		Products:       NewProductRepository(db),
		Orders:         NewOrderRepository(db),
		Reconciliation: NewReconciliationRepository(db),
	}
}

// normalizePage applies the same paging defaults as the API envelope.
func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return page, limit
}
