package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

const productColumns = `id, tenant_id, sku, name, brand, category, sale_price, retail_price,
        stock, attributes, is_active, created_at, updated_at`

// ProductRepository handles data access for products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns the tenant's products. A non-empty search matches sku, name,
// brand or category case-insensitively.
func (r *ProductRepository) List(ctx context.Context, tenantID, search string) ([]models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products
        WHERE tenant_id = $1
        AND ($2 = '' OR sku ILIKE $3 OR name ILIKE $3 OR brand ILIKE $3 OR category ILIKE $3)
        ORDER BY name, id`

	search = strings.TrimSpace(search)
	var products []models.Product
	if err := r.db.SelectContext(ctx, &products, q, tenantID, search, "%"+escapeLike(search)+"%"); err != nil {
		return nil, translateError(err, nil, "products")
	}
	return products, nil
}

// Get returns a single product by id.
func (r *ProductRepository) Get(ctx context.Context, tenantID, id string) (*models.Product, error) {
	return getProduct(ctx, r.db, tenantID, id)
}

func getProduct(ctx context.Context, q sqlx.QueryerContext, tenantID, id string) (*models.Product, error) {
	var p models.Product
	err := sqlx.GetContext(ctx, q, &p,
		`SELECT `+productColumns+` FROM products WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return nil, translateError(err, utils.ErrProductNotFound, "product "+id)
	}
	return &p, nil
}

// Create inserts a new product row. The initial stock is written directly.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	const q = `
        INSERT INTO products (
            id, tenant_id, sku, name, brand, category, sale_price, retail_price,
            stock, attributes, is_active, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW())
        RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, q,
		p.ID, p.TenantID, p.SKU, p.Name, p.Brand, p.Category, p.SalePrice, p.RetailPrice,
		p.Stock, p.Attributes, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return translateError(err, nil, "product "+p.ID)
}

// Update writes the product's columns and applies stockDelta through the
// shared stock mutator, all in one transaction.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product, stockDelta int) (_ *models.Product, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, translateError(err, nil, "product")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const q = `
        UPDATE products SET
            sku = $3,
            name = $4,
            brand = $5,
            category = $6,
            sale_price = $7,
            retail_price = $8,
            attributes = $9,
            is_active = $10,
            updated_at = NOW()
        WHERE tenant_id = $1 AND id = $2`
	res, err := tx.ExecContext(ctx, q,
		p.TenantID, p.ID, p.SKU, p.Name, p.Brand, p.Category, p.SalePrice, p.RetailPrice,
		p.Attributes, p.IsActive,
	)
	if err != nil {
		return nil, translateError(err, nil, "product "+p.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = utils.NotFound(utils.ErrProductNotFound, "product %s not found", p.ID)
		return nil, err
	}

	if stockDelta != 0 {
		if _, err = mutateStock(ctx, tx, stockMutation{
			TenantID:  p.TenantID,
			ProductID: p.ID,
			Delta:     stockDelta,
			Policy:    models.StockClamp,
			Reason:    models.StockReasonAdjustment,
		}); err != nil {
			return nil, err
		}
	}

	updated, err := getProduct(ctx, tx, p.TenantID, p.ID)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, translateError(err, nil, "product")
	}
	return updated, nil
}

// Delete removes a product. Committed order lines keep their snapshot.
func (r *ProductRepository) Delete(ctx context.Context, tenantID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return translateError(err, nil, "product "+id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NotFound(utils.ErrProductNotFound, "product %s not found", id)
	}
	return nil
}

// AdjustStock applies delta with the clamping policy and records the movement.
func (r *ProductRepository) AdjustStock(ctx context.Context, tenantID, id string, delta int) (_ *models.StockMovement, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, translateError(err, nil, "product")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	mv, err := mutateStock(ctx, tx, stockMutation{
		TenantID:  tenantID,
		ProductID: id,
		Delta:     delta,
		Policy:    models.StockClamp,
		Reason:    models.StockReasonAdjustment,
	})
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, translateError(err, nil, "product")
	}
	return mv, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
