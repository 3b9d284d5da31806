package cart

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
)

var priceDriftTolerance = decimal.RequireFromString("0.05")

// validateItems re-checks every line against current product state. Lines for
// missing, inactive or sold-out products are dropped and short lines are
// clamped to stock. Price drift is reported without touching the line.
func validateItems(cart *models.Cart, products map[uuid.UUID]models.Product, now time.Time) (ValidationResult, []models.CartItem, bool) {
	result := ValidationResult{Errors: []string{}}
	kept := make([]models.CartItem, 0, len(cart.Items))
	var removed []models.CartItem
	changed := false

	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok || !product.IsActive {
			result.Errors = append(result.Errors, fmt.Sprintf("Product %s is no longer available", item.ProductID))
			removed = append(removed, item)
			changed = true
			continue
		}

		if product.Stock < item.Quantity {
			result.Errors = append(result.Errors, fmt.Sprintf("Only %d of %s available (you have %d in cart)", product.Stock, product.Name, item.Quantity))
			if product.Stock <= 0 {
				removed = append(removed, item)
				changed = true
				continue
			}
			item.Quantity = product.Stock
			changed = true
		}

		current := product.FinalPrice(now)
		if item.UnitPrice.IsPositive() {
			drift := current.Sub(item.UnitPrice).Abs().Div(item.UnitPrice)
			if drift.GreaterThan(priceDriftTolerance) {
				result.Errors = append(result.Errors, fmt.Sprintf("Price of %s has changed from %s to %s", product.Name, item.UnitPrice.StringFixed(2), current.StringFixed(2)))
			}
		}

		kept = append(kept, item)
	}

	cart.Items = kept
	result.RemovedCount = len(removed)
	result.IsValid = len(result.Errors) == 0
	return result, removed, changed
}

func indexOfProduct(items []models.CartItem, productID uuid.UUID) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func indexOfItem(items []models.CartItem, itemID uuid.UUID) int {
	for i := range items {
		if items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func productIDs(items []models.CartItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}
