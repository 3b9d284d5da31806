package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
)

// Coupon is a discount code redeemable against a cart subtotal.
type Coupon struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code            string           `gorm:"column:code;not null;uniqueIndex"`
	Description     *string          `gorm:"column:description"`
	DiscountType    enums.CouponType `gorm:"column:discount_type;not null"`
	DiscountValue   decimal.Decimal  `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MinimumPurchase decimal.Decimal  `gorm:"column:minimum_purchase;type:numeric(12,2);not null"`
	MaximumDiscount *decimal.Decimal `gorm:"column:maximum_discount;type:numeric(12,2)"`
	ValidFrom       time.Time        `gorm:"column:valid_from;not null"`
	ValidUntil      time.Time        `gorm:"column:valid_until;not null"`
	UsageLimit      *int             `gorm:"column:usage_limit"`
	UsedCount       int              `gorm:"column:used_count;not null"`
	IsActive        bool             `gorm:"column:is_active;not null"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
