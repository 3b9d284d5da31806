package enums

import "fmt"

type CartEventType string

const (
	CartEventTypeCreated         CartEventType = "created"
	CartEventTypeItemAdded       CartEventType = "item_added"
	CartEventTypeItemRemoved     CartEventType = "item_removed"
	CartEventTypeQuantityUpdated CartEventType = "quantity_updated"
	CartEventTypeCleared         CartEventType = "cleared"
	CartEventTypeCheckedOut      CartEventType = "checked_out"
	CartEventTypeAbandoned       CartEventType = "abandoned"
)

var validCartEventTypes = []CartEventType{
	CartEventTypeCreated,
	CartEventTypeItemAdded,
	CartEventTypeItemRemoved,
	CartEventTypeQuantityUpdated,
	CartEventTypeCleared,
	CartEventTypeCheckedOut,
	CartEventTypeAbandoned,
}

func (c CartEventType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known cart event type.
func (c CartEventType) IsValid() bool {
	for _, candidate := range validCartEventTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartEventType converts the raw string to CartEventType.
func ParseCartEventType(value string) (CartEventType, error) {
	for _, candidate := range validCartEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart event type %q", value)
}
