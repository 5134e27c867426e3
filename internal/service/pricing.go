package service

import (
	"github.com/shopspring/decimal"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

var hundred = decimal.NewFromInt(100)

// validateCart checks a cart before any store access.
func validateCart(spec *models.CartSpec) error {
	if len(spec.Items) == 0 {
		return utils.Validation("cart is empty")
	}
	for i, it := range spec.Items {
		if it.ProductID == "" {
			return utils.Validation("item %d: productId is required", i+1)
		}
		if it.Quantity <= 0 {
			return utils.Validation("item %d: quantity must be positive", i+1)
		}
		if it.Quantity > models.MaxStock {
			return utils.Validation("item %d: quantity must not exceed %d", i+1, models.MaxStock)
		}
	}
	if spec.TaxRate.IsNegative() || spec.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return utils.Validation("taxRate must be between 0 and 1")
	}
	if !spec.TaxRate.Equal(spec.TaxRate.Round(models.TaxRatePlaces)) {
		return utils.Validation("taxRate must have at most %d decimal places", models.TaxRatePlaces)
	}
	switch spec.DiscountType {
	case "", models.DiscountNone, models.DiscountFixed:
	case models.DiscountPercentage:
		if spec.DiscountValue.GreaterThan(hundred) {
			return utils.Validation("percentage discount must not exceed 100")
		}
	default:
		return utils.Validation("unknown discount type %q", spec.DiscountType)
	}
	if spec.DiscountValue.IsNegative() {
		return utils.Validation("discountValue must not be negative")
	}
	return nil
}

// discountAmount returns the discount for subtotal, never above it.
func discountAmount(subtotal decimal.Decimal, typ models.DiscountType, value decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch typ {
	case models.DiscountPercentage:
		d = models.RoundMoney(subtotal.Mul(value).Div(hundred))
	case models.DiscountFixed:
		d = models.RoundMoney(decimal.Min(value, subtotal))
	default:
		return decimal.Zero
	}
	if d.GreaterThan(subtotal) {
		return subtotal
	}
	return d
}

// priceOrder builds the lines and totals of an order from the cart and the
// authoritative product rows. Each cart item becomes one line.
func priceOrder(typ models.OrderType, spec *models.CartSpec, products map[string]models.Product) (*models.Order, error) {
	taxRate := spec.TaxRate
	discountType := spec.DiscountType
	discountValue := spec.DiscountValue
	if discountType == "" {
		discountType = models.DiscountNone
	}
	if typ == models.OrderTypeRefund {
		taxRate = models.ReturnTaxRate
		discountType = models.DiscountNone
		discountValue = decimal.Zero
	}

	order := &models.Order{
		Type:          typ,
		DiscountType:  discountType,
		DiscountValue: discountValue,
		TaxRate:       taxRate,
		Lines:         make([]models.OrderLine, 0, len(spec.Items)),
	}

	subtotal := decimal.Zero
	for i, it := range spec.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, utils.NotFound(utils.ErrProductNotFound, "product %s not found", it.ProductID)
		}
		qty := decimal.NewFromInt(int64(it.Quantity))
		line := models.OrderLine{
			LineNo:    i + 1,
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Category:  p.Category,
			UnitPrice: p.SalePrice,
			Quantity:  it.Quantity,
			LineTotal: p.SalePrice.Mul(qty),
		}
		subtotal = subtotal.Add(line.LineTotal)
		order.Lines = append(order.Lines, line)
	}

	order.Subtotal = subtotal
	order.DiscountAmount = discountAmount(subtotal, discountType, discountValue)
	taxable := subtotal.Sub(order.DiscountAmount)
	order.Tax = models.RoundMoney(taxable.Mul(taxRate))
	order.Total = models.RoundMoney(taxable.Add(order.Tax))
	return order, nil
}
