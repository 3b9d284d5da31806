package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
)

// Event is a lifecycle fact pushed to user-facing channels.
type Event struct {
	Type        enums.NotificationType `json:"type"`
	OrderID     *uuid.UUID             `json:"orderId,omitempty"`
	OrderNumber string                 `json:"orderNumber,omitempty"`
	UserID      *uuid.UUID             `json:"userId,omitempty"`
	ProductID   *uuid.UUID             `json:"productId,omitempty"`
	Extra       map[string]any         `json:"extra,omitempty"`
	OccurredAt  time.Time              `json:"occurredAt"`
}

// Attributes returns the routing attributes attached to published messages.
func (e Event) Attributes() map[string]string {
	attrs := map[string]string{"event_type": string(e.Type)}
	if e.OrderID != nil {
		attrs["order_id"] = e.OrderID.String()
	}
	if e.UserID != nil {
		attrs["user_id"] = e.UserID.String()
	}
	if e.ProductID != nil {
		attrs["product_id"] = e.ProductID.String()
	}
	return attrs
}
