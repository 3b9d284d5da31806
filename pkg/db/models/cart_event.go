package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
)

// CartEvent is an informational record of a cart mutation.
type CartEvent struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CartID    uuid.UUID           `gorm:"column:cart_id;type:uuid;not null" json:"cart_id"`
	UserID    *uuid.UUID          `gorm:"column:user_id;type:uuid" json:"user_id,omitempty"`
	SessionID *string             `gorm:"column:session_id" json:"session_id,omitempty"`
	EventType enums.CartEventType `gorm:"column:event_type;not null" json:"event_type"`
	ProductID *uuid.UUID          `gorm:"column:product_id;type:uuid" json:"product_id,omitempty"`
	Quantity  *int                `gorm:"column:quantity" json:"quantity,omitempty"`
	Price     *decimal.Decimal    `gorm:"column:price;type:numeric(12,2)" json:"price,omitempty"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (e *CartEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
