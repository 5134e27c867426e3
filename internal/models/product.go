package models

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item: fixed core columns plus the tenant-defined
// attribute bag.
type Product struct {
	ID          string              `db:"id" json:"id"`
	TenantID    string              `db:"tenant_id" json:"-"`
	SKU         string              `db:"sku" json:"sku"`
	Name        string              `db:"name" json:"name"`
	Brand       string              `db:"brand" json:"brand"`
	Category    string              `db:"category" json:"category"`
	SalePrice   decimal.Decimal     `db:"sale_price" json:"salePrice"`
	RetailPrice decimal.NullDecimal `db:"retail_price" json:"retailPrice"`
	Stock       int                 `db:"stock" json:"stock"`
	Attributes  Attributes          `db:"attributes" json:"attributes"`
	IsActive    bool                `db:"is_active" json:"isActive"`
	CreatedAt   time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updatedAt"`
}

// StockPolicy selects how a stock delta that would cross zero is handled.
type StockPolicy int

const (
	// StockClamp floors the result at zero (manual adjustments).
	StockClamp StockPolicy = iota
	// StockStrict refuses any delta that would leave stock negative (order lines).
	StockStrict
)

// MaxStock is the largest stock level, and the largest single quantity or
// delta, a product accepts. It matches the INTEGER stock column.
const MaxStock = math.MaxInt32

var (
	// ErrStockWouldGoNegative is returned by NextStock under StockStrict.
	ErrStockWouldGoNegative = errors.New("STOCK_WOULD_GO_NEGATIVE")
	// ErrStockOutOfRange is returned by NextStock when the result would
	// exceed MaxStock, whatever the policy.
	ErrStockOutOfRange = errors.New("STOCK_OUT_OF_RANGE")
)

// NextStock computes the stock level after applying delta. Every stock
// mutation in the system, for adjustments and order lines alike, goes
// through this function.
func NextStock(current, delta int, policy StockPolicy) (int, error) {
	if delta > 0 && current > MaxStock-delta {
		return current, ErrStockOutOfRange
	}
	next := current + delta
	if next >= 0 {
		return next, nil
	}
	if policy == StockStrict {
		return current, ErrStockWouldGoNegative
	}
	return 0, nil
}

// StockReason labels a stock movement.
type StockReason string

const (
	StockReasonSale       StockReason = "sale"
	StockReasonReturn     StockReason = "return"
	StockReasonAdjustment StockReason = "adjustment"
)

// StockMovement is the audit row written for every stock mutation.
type StockMovement struct {
	ID        string      `db:"id" json:"id"`
	TenantID  string      `db:"tenant_id" json:"-"`
	ProductID string      `db:"product_id" json:"productId"`
	OrderID   *string     `db:"order_id" json:"orderId,omitempty"`
	LineNo    *int        `db:"line_no" json:"lineNo,omitempty"`
	Reason    StockReason `db:"reason" json:"reason"`
	Delta     int         `db:"delta" json:"delta"`
	PrevStock int         `db:"prev_stock" json:"prevStock"`
	NewStock  int         `db:"new_stock" json:"newStock"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}
