package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

// stockMutation is one change to a product's stock level.
type stockMutation struct {
	TenantID  string
	ProductID string
	Delta     int
	Policy    models.StockPolicy
	Reason    models.StockReason
	OrderID   *string
	LineNo    *int
}

// mutateStock is the single stock writer for the postgres stores. It must run
// inside a transaction: the row is locked, the new level computed with
// models.NextStock, written, and a stock movement recorded.
func mutateStock(ctx context.Context, tx sqlx.ExtContext, m stockMutation) (*models.StockMovement, error) {
	var current int
	err := tx.QueryRowxContext(ctx,
		`SELECT stock FROM products WHERE tenant_id = $1 AND id = $2 FOR UPDATE`,
		m.TenantID, m.ProductID,
	).Scan(&current)
	if err != nil {
		return nil, translateError(err, utils.ErrProductNotFound, "product "+m.ProductID)
	}

	next, err := models.NextStock(current, m.Delta, m.Policy)
	if err != nil {
		return nil, stockError(err, m.ProductID, current, m.Delta)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET stock = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3`,
		next, m.TenantID, m.ProductID,
	); err != nil {
		return nil, translateError(err, utils.ErrProductNotFound, "product "+m.ProductID)
	}

	mv := &models.StockMovement{
		ID:        uuid.NewString(),
		TenantID:  m.TenantID,
		ProductID: m.ProductID,
		OrderID:   m.OrderID,
		LineNo:    m.LineNo,
		Reason:    m.Reason,
		Delta:     next - current,
		PrevStock: current,
		NewStock:  next,
	}
	err = tx.QueryRowxContext(ctx, `
        INSERT INTO stock_movements (id, tenant_id, product_id, order_id, line_no, reason, delta, prev_stock, new_stock)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at`,
		mv.ID, mv.TenantID, mv.ProductID, mv.OrderID, mv.LineNo, mv.Reason, mv.Delta, mv.PrevStock, mv.NewStock,
	).Scan(&mv.CreatedAt)
	if err != nil {
		return nil, translateError(err, nil, "stock movement")
	}
	return mv, nil
}

// stockError classifies a models.NextStock failure.
func stockError(err error, productID string, current, delta int) error {
	switch {
	case errors.Is(err, models.ErrStockWouldGoNegative):
		return utils.InsufficientStock("product %s has %d in stock, %d requested", productID, current, -delta)
	case errors.Is(err, models.ErrStockOutOfRange):
		return utils.Validation("product %s stock of %d cannot grow by %d, the limit is %d", productID, current, delta, models.MaxStock)
	}
	return err
}
