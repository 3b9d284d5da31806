package cart

import (
	"github.com/shopspring/decimal"

	"github.com/nhannt26/e-commerce-website-v3/internal/coupons"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
)

var (
	taxRate               = decimal.RequireFromString("0.10")
	freeShippingThreshold = decimal.NewFromInt(100)
	flatShipping          = decimal.NewFromInt(10)
)

// Totals is the derived pricing of a cart.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals derives tax, shipping and total from subtotal and discount.
// Tax is rounded to cents half away from zero, so 1.005 becomes 1.01.
func ComputeTotals(subtotal, discount decimal.Decimal) Totals {
	tax := subtotal.Mul(taxRate).Round(2)

	shipping := flatShipping
	if subtotal.IsZero() || subtotal.GreaterThanOrEqual(freeShippingThreshold) {
		shipping = decimal.Zero
	}

	total := subtotal.Add(tax).Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    total,
	}
}

// recalculate refreshes line subtotals, the coupon discount and cart totals.
func recalculate(cart *models.Cart) {
	subtotal := decimal.Zero
	for i := range cart.Items {
		item := &cart.Items[i]
		item.Position = i
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(item.Subtotal)
	}

	discount := decimal.Zero
	if cart.Coupon != nil {
		discount = coupons.Recompute(cart.Coupon, subtotal)
		cart.Coupon.DiscountAmount = discount
	}

	totals := ComputeTotals(subtotal, discount)
	cart.Subtotal = totals.Subtotal
	cart.Tax = totals.Tax
	cart.Shipping = totals.Shipping
	cart.Discount = totals.Discount
	cart.Total = totals.Total
}

// TotalsOf reads the stored totals of a cart.
func TotalsOf(cart *models.Cart) Totals {
	return Totals{
		Subtotal: cart.Subtotal,
		Tax:      cart.Tax,
		Shipping: cart.Shipping,
		Discount: cart.Discount,
		Total:    cart.Total,
	}
}
