package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/pkg/types"
)

// Cart belongs to either an authenticated user or a guest session.
type Cart struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID    *uuid.UUID           `gorm:"column:user_id;type:uuid"`
	SessionID *string              `gorm:"column:session_id"`
	Subtotal  decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax       decimal.Decimal      `gorm:"column:tax;type:numeric(12,2);not null"`
	Shipping  decimal.Decimal      `gorm:"column:shipping;type:numeric(12,2);not null"`
	Discount  decimal.Decimal      `gorm:"column:discount;type:numeric(12,2);not null"`
	Total     decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	Coupon    *types.AppliedCoupon `gorm:"column:coupon;type:jsonb"`
	ExpiresAt time.Time            `gorm:"column:expires_at;not null"`
	Items     []CartItem           `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsGuest reports whether the cart is keyed by a session token.
func (c Cart) IsGuest() bool {
	return c.UserID == nil
}

// ItemCount sums the quantity across every line.
func (c Cart) ItemCount() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// CartItem is a single product line with its captured price.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID       `gorm:"column:cart_id;type:uuid;not null"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Position  int             `gorm:"column:position;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
