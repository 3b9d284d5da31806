package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	"github.com/nhannt26/e-commerce-website-v3/pkg/types"
)

// Order is the immutable purchase snapshot plus its mutable lifecycle fields.
type Order struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string                `gorm:"column:order_number;not null;uniqueIndex"`
	UserID            uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	Subtotal          decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax               decimal.Decimal       `gorm:"column:tax;type:numeric(12,2);not null"`
	Shipping          decimal.Decimal       `gorm:"column:shipping;type:numeric(12,2);not null"`
	Discount          decimal.Decimal       `gorm:"column:discount;type:numeric(12,2);not null"`
	Total             decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	CouponCode        *string               `gorm:"column:coupon_code"`
	ShippingAddress   types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	PaymentMethod     enums.PaymentMethod   `gorm:"column:payment_method;not null"`
	PaymentStatus     enums.PaymentStatus   `gorm:"column:payment_status;not null"`
	PaymentDate       *time.Time            `gorm:"column:payment_date"`
	TransactionID     *string               `gorm:"column:transaction_id"`
	Status            enums.OrderStatus     `gorm:"column:order_status;not null"`
	TrackingNumber    *string               `gorm:"column:tracking_number"`
	Carrier           *string               `gorm:"column:carrier"`
	EstimatedDelivery *time.Time            `gorm:"column:estimated_delivery"`
	DeliveredAt       *time.Time            `gorm:"column:delivered_at"`
	CustomerNote      *string               `gorm:"column:customer_note"`
	CancelReason      *string               `gorm:"column:cancel_reason"`
	CancelledAt       *time.Time            `gorm:"column:cancelled_at"`
	CancelledBy       *uuid.UUID            `gorm:"column:cancelled_by;type:uuid"`
	Items             []OrderLineItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory     []OrderStatusEvent    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IsPaid reports whether the order has been settled.
func (o Order) IsPaid() bool {
	return o.PaymentStatus == enums.PaymentStatusPaid
}

// OrderLineItem freezes the product data at checkout time.
type OrderLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	ImageURL  *string         `gorm:"column:image_url"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderLineItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// OrderStatusEvent is one append-only entry in the order status history.
type OrderStatusEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	Status    enums.OrderStatus `gorm:"column:status;not null"`
	Note      string            `gorm:"column:note;not null"`
	ActorID   *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	CreatedAt time.Time         `gorm:"column:created_at;not null"`
}

func (OrderStatusEvent) TableName() string {
	return "order_status_history"
}

func (e *OrderStatusEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
