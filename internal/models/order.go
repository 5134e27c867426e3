package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderType distinguishes sales from compensating refunds.
type OrderType string

const (
	OrderTypeSale   OrderType = "Sale"
	OrderTypeRefund OrderType = "Refund"
)

// DiscountType selects how DiscountValue is interpreted.
type DiscountType string

const (
	DiscountNone       DiscountType = "none"
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// TaxRatePlaces is the number of decimal places a tax rate may carry. It
// matches the stored NUMERIC(5,4) column.
const TaxRatePlaces = 4

// ReturnTaxRate is the fixed tax convention applied to refunds.
var ReturnTaxRate = decimal.RequireFromString("0.10")

// OrderLine is one product line of a committed order. Product details are
// snapshotted at commit time.
type OrderLine struct {
	OrderID   string          `db:"order_id" json:"-"`
	LineNo    int             `db:"line_no" json:"lineNo"`
	ProductID string          `db:"product_id" json:"productId"`
	SKU       string          `db:"sku" json:"sku"`
	Name      string          `db:"name" json:"name"`
	Category  string          `db:"category" json:"category"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unitPrice"`
	Quantity  int             `db:"quantity" json:"quantity"`
	LineTotal decimal.Decimal `db:"line_total" json:"lineTotal"`
}

// Order is an immutable sale or refund.
type Order struct {
	ID             string          `db:"id" json:"id"`
	TenantID       string          `db:"tenant_id" json:"-"`
	OrderNumber    string          `db:"order_number" json:"orderNumber"`
	Type           OrderType       `db:"type" json:"type"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	DiscountType   DiscountType    `db:"discount_type" json:"discountType"`
	DiscountValue  decimal.Decimal `db:"discount_value" json:"discountValue"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discountAmount"`
	TaxRate        decimal.Decimal `db:"tax_rate" json:"taxRate"`
	Tax            decimal.Decimal `db:"tax" json:"tax"`
	Total          decimal.Decimal `db:"total" json:"total"`
	RequestKey     *string         `db:"request_key" json:"requestKey,omitempty"`
	CreatedBy      string          `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	Lines          []OrderLine     `db:"-" json:"lines"`
}

// FormatOrderNumber renders a tenant daily sequence value as
// ORD-YYYYMMDD-NNNNNN.
func FormatOrderNumber(day time.Time, seq int) string {
	return fmt.Sprintf("ORD-%s-%06d", day.Format("20060102"), seq)
}

// StockDelta returns the signed stock change for a line of this order type.
func (t OrderType) StockDelta(quantity int) int {
	if t == OrderTypeRefund {
		return quantity
	}
	return -quantity
}

// StockReason returns the movement label for lines of this order type.
func (t OrderType) StockReason() StockReason {
	if t == OrderTypeRefund {
		return StockReasonReturn
	}
	return StockReasonSale
}

// CheckTotals verifies the arithmetic invariants of an order.
func (o *Order) CheckTotals() error {
	sum := decimal.Zero
	for _, l := range o.Lines {
		if l.Quantity <= 0 {
			return errors.New("line quantity must be positive")
		}
		if !l.LineTotal.Equal(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))) {
			return errors.New("line total does not match unit price times quantity")
		}
		sum = sum.Add(l.LineTotal)
	}
	if !sum.Equal(o.Subtotal) {
		return errors.New("subtotal does not match line totals")
	}
	if o.DiscountAmount.IsNegative() || o.DiscountAmount.GreaterThan(o.Subtotal) {
		return errors.New("discount amount outside [0, subtotal]")
	}
	want := RoundMoney(o.Subtotal.Sub(o.DiscountAmount).Add(o.Tax))
	if !o.Total.Equal(want) {
		return errors.New("total does not match subtotal - discount + tax")
	}
	return nil
}

// CartItem is one requested product and quantity.
type CartItem struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// CartSpec is the input to a sale or return.
type CartSpec struct {
	Items         []CartItem      `json:"items" binding:"required"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	DiscountType  DiscountType    `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	// RequestKey makes the commit idempotent when supplied.
	RequestKey string `json:"requestKey,omitempty"`
}
