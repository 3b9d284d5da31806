package inventory

import (
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
)

// Available returns the units that can still be promised, never negative.
func Available(product models.Product) int {
	return product.Available()
}

// CanFulfill reports whether an active product can cover qty units.
func CanFulfill(product models.Product, qty int) bool {
	return product.IsActive && Available(product) >= qty
}
