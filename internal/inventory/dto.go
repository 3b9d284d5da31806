package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
)

// ProductDTO is the API shape of a product.
type ProductDTO struct {
	ID                uuid.UUID         `json:"id"`
	SKU               string            `json:"sku"`
	Name              string            `json:"name"`
	ImageURL          *string           `json:"imageUrl,omitempty"`
	Price             decimal.Decimal   `json:"price"`
	SalePrice         *decimal.Decimal  `json:"salePrice,omitempty"`
	OnSale            bool              `json:"onSale"`
	SaleStartsAt      *time.Time        `json:"saleStartsAt,omitempty"`
	SaleEndsAt        *time.Time        `json:"saleEndsAt,omitempty"`
	FinalPrice        decimal.Decimal   `json:"finalPrice"`
	Stock             int               `json:"stock"`
	Reserved          int               `json:"reserved"`
	Available         int               `json:"available"`
	LowStockThreshold int               `json:"lowStockThreshold"`
	StockStatus       enums.StockStatus `json:"stockStatus"`
	IsActive          bool              `json:"isActive"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	SKU               string           `json:"sku" validate:"required,max=64"`
	Name              string           `json:"name" validate:"required,max=255"`
	ImageURL          *string          `json:"imageUrl" validate:"omitempty,url"`
	Price             decimal.Decimal  `json:"price"`
	SalePrice         *decimal.Decimal `json:"salePrice"`
	OnSale            bool             `json:"onSale"`
	SaleStartsAt      *time.Time       `json:"saleStartsAt"`
	SaleEndsAt        *time.Time       `json:"saleEndsAt"`
	Stock             int              `json:"stock" validate:"gte=0"`
	Reserved          int              `json:"reserved" validate:"gte=0"`
	LowStockThreshold *int             `json:"lowStockThreshold" validate:"omitempty,gte=0"`
	IsActive          *bool            `json:"isActive"`
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name              *string          `json:"name" validate:"omitempty,max=255"`
	ImageURL          *string          `json:"imageUrl" validate:"omitempty,url"`
	Price             *decimal.Decimal `json:"price"`
	SalePrice         *decimal.Decimal `json:"salePrice"`
	OnSale            *bool            `json:"onSale"`
	SaleStartsAt      *time.Time       `json:"saleStartsAt"`
	SaleEndsAt        *time.Time       `json:"saleEndsAt"`
	Stock             *int             `json:"stock" validate:"omitempty,gte=0"`
	Reserved          *int             `json:"reserved" validate:"omitempty,gte=0"`
	LowStockThreshold *int             `json:"lowStockThreshold" validate:"omitempty,gte=0"`
	IsActive          *bool            `json:"isActive"`
}

// ProductFromModel maps the row to its DTO, pricing it at now.
func ProductFromModel(p models.Product, now time.Time) ProductDTO {
	return ProductDTO{
		ID:                p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		ImageURL:          p.ImageURL,
		Price:             p.Price,
		SalePrice:         p.SalePrice,
		OnSale:            p.OnSale,
		SaleStartsAt:      p.SaleStartsAt,
		SaleEndsAt:        p.SaleEndsAt,
		FinalPrice:        p.FinalPrice(now),
		Stock:             p.Stock,
		Reserved:          p.Reserved,
		Available:         p.Available(),
		LowStockThreshold: p.LowStockThreshold,
		StockStatus:       p.StockStatus,
		IsActive:          p.IsActive,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}
