package enums

import "fmt"

// NotificationType names the lifecycle events pushed to the notification sink.
type NotificationType string

const (
	NotificationTypeOrderCreated       NotificationType = "order_created"
	NotificationTypeOrderStatusUpdated NotificationType = "order_status_updated"
	NotificationTypeOrderShipped       NotificationType = "order_shipped"
	NotificationTypeOrderDelivered     NotificationType = "order_delivered"
	NotificationTypeOrderCancelled     NotificationType = "order_cancelled"
	NotificationTypePaymentConfirmed   NotificationType = "payment_confirmed"
	NotificationTypePaymentFailed      NotificationType = "payment_failed"
	NotificationTypeRefundProcessed    NotificationType = "refund_processed"
	NotificationTypeLowStock           NotificationType = "low_stock"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderCreated,
	NotificationTypeOrderStatusUpdated,
	NotificationTypeOrderShipped,
	NotificationTypeOrderDelivered,
	NotificationTypeOrderCancelled,
	NotificationTypePaymentConfirmed,
	NotificationTypePaymentFailed,
	NotificationTypeRefundProcessed,
	NotificationTypeLowStock,
}

func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known notification type.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts the raw string to NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
