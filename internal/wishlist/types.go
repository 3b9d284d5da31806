package wishlist

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemDTO is a saved product as rendered to the owner.
type ItemDTO struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	ImageURL  *string         `json:"imageUrl,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Available int             `json:"available"`
	InStock   bool            `json:"inStock"`
	AddedAt   time.Time       `json:"addedAt"`
}

// WishlistDTO is the full wishlist of a user.
type WishlistDTO struct {
	Count int       `json:"count"`
	Items []ItemDTO `json:"data"`
}
