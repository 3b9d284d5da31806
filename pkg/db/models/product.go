package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
)

// Product is the catalog entry plus its stock counters.
type Product struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SKU               string            `gorm:"column:sku;not null"`
	Name              string            `gorm:"column:name;not null"`
	ImageURL          *string           `gorm:"column:image_url"`
	Price             decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice         *decimal.Decimal  `gorm:"column:sale_price;type:numeric(12,2)"`
	OnSale            bool              `gorm:"column:on_sale;not null"`
	SaleStartsAt      *time.Time        `gorm:"column:sale_starts_at"`
	SaleEndsAt        *time.Time        `gorm:"column:sale_ends_at"`
	Stock             int               `gorm:"column:stock;not null"`
	Reserved          int               `gorm:"column:reserved;not null"`
	LowStockThreshold int               `gorm:"column:low_stock_threshold;not null"`
	StockStatus       enums.StockStatus `gorm:"column:stock_status;not null"`
	IsActive          bool              `gorm:"column:is_active;not null"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Available returns the units that can still be promised to buyers.
func (p Product) Available() int {
	if available := p.Stock - p.Reserved; available > 0 {
		return available
	}
	return 0
}

// FinalPrice returns the sale price while a sale is running, else the list price.
func (p Product) FinalPrice(now time.Time) decimal.Decimal {
	if !p.OnSale || p.SalePrice == nil {
		return p.Price
	}
	if p.SaleStartsAt != nil && now.Before(*p.SaleStartsAt) {
		return p.Price
	}
	if p.SaleEndsAt != nil && now.After(*p.SaleEndsAt) {
		return p.Price
	}
	return *p.SalePrice
}
