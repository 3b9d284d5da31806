package enums

import "fmt"

// StockStatus is derived from available stock and the low-stock threshold.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in-stock"
	StockStatusLowStock   StockStatus = "low-stock"
	StockStatusOutOfStock StockStatus = "out-of-stock"
)

var validStockStatuses = []StockStatus{
	StockStatusInStock,
	StockStatusLowStock,
	StockStatusOutOfStock,
}

func (s StockStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known stock status.
func (s StockStatus) IsValid() bool {
	for _, candidate := range validStockStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockStatus converts the raw string to StockStatus.
func ParseStockStatus(value string) (StockStatus, error) {
	for _, candidate := range validStockStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock status %q", value)
}

// StockStatusFor derives the status from the available quantity.
func StockStatusFor(available, lowStockThreshold int) StockStatus {
	switch {
	case available <= 0:
		return StockStatusOutOfStock
	case available <= lowStockThreshold:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}
