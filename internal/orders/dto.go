package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	"github.com/nhannt26/e-commerce-website-v3/pkg/types"
)

// CreateOrderInput is the checkout payload.
type CreateOrderInput struct {
	UserID          uuid.UUID              `json:"-"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress" validate:"required_without=AddressID"`
	// AddressID picks a saved address book entry instead of an inline address.
	AddressID     *uuid.UUID          `json:"addressId" validate:"required_without=ShippingAddress"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod" validate:"required,oneof=cod credit_card debit_card bank_transfer e_wallet"`
	CustomerNote  *string             `json:"customerNote" validate:"omitempty,max=500"`
}

// TrackingInput records shipment details.
type TrackingInput struct {
	TrackingNumber    string     `json:"trackingNumber" validate:"required,max=64"`
	Carrier           string     `json:"carrier" validate:"required,max=64"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
}

// Actor is the caller performing an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the actor may manage any order.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

func (a Actor) canAccess(order *models.Order) bool {
	return a.IsAdmin() || (a.UserID != uuid.Nil && a.UserID == order.UserID)
}

func (a Actor) id() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

// OrderDTO is the API shape of an order.
type OrderDTO struct {
	ID                uuid.UUID             `json:"id"`
	OrderNumber       string                `json:"orderNumber"`
	UserID            uuid.UUID             `json:"userId"`
	Items             []LineItemDTO         `json:"items"`
	Pricing           PricingDTO            `json:"pricing"`
	CouponCode        *string               `json:"couponCode,omitempty"`
	ShippingAddress   types.ShippingAddress `json:"shippingAddress"`
	PaymentMethod     enums.PaymentMethod   `json:"paymentMethod"`
	PaymentStatus     enums.PaymentStatus   `json:"paymentStatus"`
	PaymentDate       *time.Time            `json:"paymentDate,omitempty"`
	TransactionID     *string               `json:"transactionId,omitempty"`
	OrderStatus       enums.OrderStatus     `json:"orderStatus"`
	StatusHistory     []StatusEventDTO      `json:"statusHistory"`
	TrackingNumber    *string               `json:"trackingNumber,omitempty"`
	Carrier           *string               `json:"carrier,omitempty"`
	EstimatedDelivery *time.Time            `json:"estimatedDelivery,omitempty"`
	DeliveredAt       *time.Time            `json:"deliveredAt,omitempty"`
	CustomerNote      *string               `json:"customerNote,omitempty"`
	CancelReason      *string               `json:"cancelReason,omitempty"`
	CancelledAt       *time.Time            `json:"cancelledAt,omitempty"`
	CancelledBy       *uuid.UUID            `json:"cancelledBy,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// LineItemDTO is one frozen order line.
type LineItemDTO struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	ImageURL  *string         `json:"imageUrl,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// PricingDTO mirrors the cart totals frozen at checkout.
type PricingDTO struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// StatusEventDTO is one status history entry.
type StatusEventDTO struct {
	Status    enums.OrderStatus `json:"status"`
	Note      string            `json:"note"`
	UpdatedBy *uuid.UUID        `json:"updatedBy,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// TimelineEntryDTO is one step of an order's progress.
type TimelineEntryDTO struct {
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
	Completed bool      `json:"completed"`
}

// TimelineDTO is the customer-facing progress view of an order.
type TimelineDTO struct {
	CurrentStatus enums.OrderStatus  `json:"currentStatus"`
	Timeline      []TimelineEntryDTO `json:"timeline"`
}

// StatusStatDTO aggregates a user's orders in one status.
type StatusStatDTO struct {
	Status      enums.OrderStatus `json:"status"`
	Count       int               `json:"count"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
}

// StatsDTO summarises a user's order history. TotalSpent only counts paid
// orders.
type StatsDTO struct {
	TotalOrders int             `json:"totalOrders"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	ByStatus    []StatusStatDTO `json:"byStatus"`
}

// OrderFromModel maps an order row to its DTO.
func OrderFromModel(order *models.Order) OrderDTO {
	items := make([]LineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			Price:     item.UnitPrice,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		})
	}
	history := make([]StatusEventDTO, 0, len(order.StatusHistory))
	for _, entry := range order.StatusHistory {
		history = append(history, StatusEventDTO{
			Status:    entry.Status,
			Note:      entry.Note,
			UpdatedBy: entry.ActorID,
			Timestamp: entry.CreatedAt,
		})
	}
	return OrderDTO{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Items:       items,
		Pricing: PricingDTO{
			Subtotal: order.Subtotal,
			Tax:      order.Tax,
			Shipping: order.Shipping,
			Discount: order.Discount,
			Total:    order.Total,
		},
		CouponCode:        order.CouponCode,
		ShippingAddress:   order.ShippingAddress,
		PaymentMethod:     order.PaymentMethod,
		PaymentStatus:     order.PaymentStatus,
		PaymentDate:       order.PaymentDate,
		TransactionID:     order.TransactionID,
		OrderStatus:       order.Status,
		StatusHistory:     history,
		TrackingNumber:    order.TrackingNumber,
		Carrier:           order.Carrier,
		EstimatedDelivery: order.EstimatedDelivery,
		DeliveredAt:       order.DeliveredAt,
		CustomerNote:      order.CustomerNote,
		CancelReason:      order.CancelReason,
		CancelledAt:       order.CancelledAt,
		CancelledBy:       order.CancelledBy,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}
