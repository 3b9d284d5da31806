package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/types"
)

// CartDTO is the API shape of a cart.
type CartDTO struct {
	ID        uuid.UUID            `json:"id"`
	UserID    *uuid.UUID           `json:"userId,omitempty"`
	SessionID *string              `json:"sessionId,omitempty"`
	Items     []CartItemDTO        `json:"items"`
	Totals    Totals               `json:"totals"`
	Coupon    *types.AppliedCoupon `json:"coupon,omitempty"`
	ItemCount int                  `json:"itemCount"`
	ExpiresAt time.Time            `json:"expiresAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// CartItemDTO is one cart line.
type CartItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Summary is the compact view used by the cart badge.
type Summary struct {
	ItemCount  int     `json:"itemCount"`
	LineCount  int     `json:"lineCount"`
	Totals     Totals  `json:"totals"`
	CouponCode *string `json:"couponCode,omitempty"`
}

// ValidationResult reports what a validation pass found and fixed.
type ValidationResult struct {
	IsValid      bool     `json:"isValid"`
	Errors       []string `json:"errors"`
	RemovedCount int      `json:"removedItems"`
}

// ProductCheck answers whether a product is in the cart and can grow.
type ProductCheck struct {
	ProductID  uuid.UUID `json:"productId"`
	InCart     bool      `json:"inCart"`
	Quantity   int       `json:"quantity"`
	Available  int       `json:"available"`
	CanAddMore bool      `json:"canAddMore"`
}

// CartFromModel maps a cart row to its DTO.
func CartFromModel(cart *models.Cart) CartDTO {
	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	return CartDTO{
		ID:        cart.ID,
		UserID:    cart.UserID,
		SessionID: cart.SessionID,
		Items:     items,
		Totals:    TotalsOf(cart),
		Coupon:    cart.Coupon,
		ItemCount: cart.ItemCount(),
		ExpiresAt: cart.ExpiresAt,
		UpdatedAt: cart.UpdatedAt,
	}
}

func summaryOf(cart *models.Cart) *Summary {
	summary := &Summary{
		ItemCount: cart.ItemCount(),
		LineCount: len(cart.Items),
		Totals:    TotalsOf(cart),
	}
	if cart.Coupon != nil {
		code := cart.Coupon.Code
		summary.CouponCode = &code
	}
	return summary
}
