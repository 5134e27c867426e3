package repository

import (
	"context"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

const (
	orderColumns = `id, tenant_id, order_number, type, subtotal, discount_type, discount_value,
        discount_amount, tax_rate, tax, total, request_key, created_by, created_at`
	orderLineColumns = `order_id, line_no, product_id, sku, name, category, unit_price, quantity, line_total`

	requestKeyConstraint = "uq_orders_tenant_request_key"
)

// OrderRepository handles data access for orders, their lines and the
// tenant order number sequences.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Commit implements OrderStore. Product rows are locked in ascending id order
// so concurrent carts touching the same products cannot deadlock.
func (r *OrderRepository) Commit(ctx context.Context, d OrderDraft) (_ *models.Order, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, translateError(err, nil, "order")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ids := distinctProductIDs(d.Items)
	var locked []models.Product
	err = tx.SelectContext(ctx, &locked,
		`SELECT `+productColumns+` FROM products
        WHERE tenant_id = $1 AND id = ANY($2::uuid[])
        ORDER BY id
        FOR UPDATE`,
		d.TenantID, pq.Array(ids),
	)
	if err != nil {
		return nil, translateError(err, nil, "products")
	}
	byID := make(map[string]models.Product, len(locked))
	for _, p := range locked {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			err = utils.NotFound(utils.ErrProductNotFound, "product %s not found", id)
			return nil, err
		}
	}

	order, err := d.Build(byID)
	if err != nil {
		return nil, err
	}
	if err = checkOrderTotals(order); err != nil {
		return nil, err
	}
	order.ID = d.OrderID
	order.TenantID = d.TenantID
	order.Type = d.Type
	order.RequestKey = d.RequestKey
	order.CreatedBy = d.CreatedBy

	var seq int
	day := d.Now.UTC().Truncate(24 * time.Hour)
	err = tx.QueryRowxContext(ctx, `
        INSERT INTO order_sequences (tenant_id, day, last_value) VALUES ($1, $2, 1)
        ON CONFLICT (tenant_id, day) DO UPDATE SET last_value = order_sequences.last_value + 1
        RETURNING last_value`,
		d.TenantID, day,
	).Scan(&seq)
	if err != nil {
		return nil, translateError(err, nil, "order sequence")
	}
	order.OrderNumber = models.FormatOrderNumber(day, seq)

	err = tx.QueryRowxContext(ctx, `
        INSERT INTO orders (
            id, tenant_id, order_number, type, subtotal, discount_type, discount_value,
            discount_amount, tax_rate, tax, total, request_key, created_by, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING created_at`,
		order.ID, order.TenantID, order.OrderNumber, order.Type, order.Subtotal, order.DiscountType, order.DiscountValue,
		order.DiscountAmount, order.TaxRate, order.Tax, order.Total, order.RequestKey, order.CreatedBy, d.Now,
	).Scan(&order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, requestKeyConstraint) {
			err = utils.Duplicate(utils.ErrDuplicateRequest, "request key already committed")
			return nil, err
		}
		return nil, translateError(err, nil, "order")
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		line.OrderID = order.ID
		if _, err = tx.ExecContext(ctx, `
            INSERT INTO order_lines (`+orderLineColumns+`)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			line.OrderID, line.LineNo, line.ProductID, line.SKU, line.Name, line.Category,
			line.UnitPrice, line.Quantity, line.LineTotal,
		); err != nil {
			return nil, translateError(err, nil, "order line")
		}

		lineNo := line.LineNo
		if _, err = mutateStock(ctx, tx, stockMutation{
			TenantID:  order.TenantID,
			ProductID: line.ProductID,
			Delta:     order.Type.StockDelta(line.Quantity),
			Policy:    models.StockStrict,
			Reason:    order.Type.StockReason(),
			OrderID:   &order.ID,
			LineNo:    &lineNo,
		}); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

// Get returns an order with its lines.
func (r *OrderRepository) Get(ctx context.Context, tenantID, id string) (*models.Order, error) {
	var o models.Order
	err := r.db.GetContext(ctx, &o,
		`SELECT `+orderColumns+` FROM orders WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return nil, translateError(err, utils.ErrOrderNotFound, "order "+id)
	}
	if err := r.loadLines(ctx, []*models.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByRequestKey returns the order committed under an idempotency key.
func (r *OrderRepository) GetByRequestKey(ctx context.Context, tenantID, key string) (*models.Order, error) {
	var o models.Order
	err := r.db.GetContext(ctx, &o,
		`SELECT `+orderColumns+` FROM orders WHERE tenant_id = $1 AND request_key = $2`, tenantID, key)
	if err != nil {
		return nil, translateError(err, utils.ErrOrderNotFound, "order with request key "+key)
	}
	if err := r.loadLines(ctx, []*models.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns a page of the tenant's orders, newest first, and the total count.
func (r *OrderRepository) List(ctx context.Context, tenantID string, page, limit int) ([]models.Order, int, error) {
	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM orders WHERE tenant_id = $1`, tenantID); err != nil {
		return nil, 0, translateError(err, nil, "orders")
	}

	var orders []models.Order
	err := r.db.SelectContext(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders WHERE tenant_id = $1
        ORDER BY created_at DESC, order_number DESC LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
	if err != nil {
		return nil, 0, translateError(err, nil, "orders")
	}

	ptrs := make([]*models.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := r.loadLines(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepository) loadLines(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*models.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Lines = []models.OrderLine{}
	}

	var lines []models.OrderLine
	err := r.db.SelectContext(ctx, &lines,
		`SELECT `+orderLineColumns+` FROM order_lines WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, line_no`,
		pq.Array(ids))
	if err != nil {
		return translateError(err, nil, "order lines")
	}
	for _, l := range lines {
		if o, ok := byID[l.OrderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	return nil
}

func distinctProductIDs(items []models.CartItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	sort.Strings(ids)
	return ids
}
