package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

// Service exposes the inventory ledger and product administration.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, limit, offset int) ([]ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	GetAvailable(ctx context.Context, id uuid.UUID) (int, error)
	CanFulfill(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	CommitSale(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
	Restock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
	ListLowStock(ctx context.Context) ([]ProductDTO, error)
}

type service struct {
	repo              *Repository
	dbClient          *db.Client
	lowStockThreshold int
	now               func() time.Time
}

// NewService constructs an inventory service instance.
func NewService(repo *Repository, dbClient *db.Client, lowStockThreshold int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if lowStockThreshold < 0 {
		return nil, fmt.Errorf("low stock threshold must be non-negative")
	}
	return &service{
		repo:              repo,
		dbClient:          dbClient,
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
	}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ProductFromModel(*product, s.now())
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, limit, offset int) ([]ProductDTO, error) {
	rows, err := s.repo.ListProducts(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.toDTOs(rows), nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validatePricing(input.Price, input.SalePrice); err != nil {
		return nil, err
	}
	if err := validateSaleWindow(input.SaleStartsAt, input.SaleEndsAt); err != nil {
		return nil, err
	}

	threshold := s.lowStockThreshold
	if input.LowStockThreshold != nil {
		threshold = *input.LowStockThreshold
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	product := &models.Product{
		SKU:               strings.TrimSpace(input.SKU),
		Name:              strings.TrimSpace(input.Name),
		ImageURL:          input.ImageURL,
		Price:             input.Price,
		SalePrice:         input.SalePrice,
		OnSale:            input.OnSale,
		SaleStartsAt:      input.SaleStartsAt,
		SaleEndsAt:        input.SaleEndsAt,
		Stock:             input.Stock,
		Reserved:          input.Reserved,
		LowStockThreshold: threshold,
		IsActive:          isActive,
	}
	product.StockStatus = enums.StockStatusFor(product.Available(), threshold)

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
	}
	dto := ProductFromModel(*product, s.now())
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var updated models.Product
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.FindProduct(ctx, id)
		if err != nil {
			return err
		}
		applyUpdate(product, input)
		if err := validatePricing(product.Price, product.SalePrice); err != nil {
			return err
		}
		if err := validateSaleWindow(product.SaleStartsAt, product.SaleEndsAt); err != nil {
			return err
		}
		product.StockStatus = enums.StockStatusFor(product.Available(), product.LowStockThreshold)
		if err := txRepo.SaveProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		updated = *product
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := ProductFromModel(updated, s.now())
	return &dto, nil
}

func (s *service) GetAvailable(ctx context.Context, id uuid.UUID) (int, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return 0, err
	}
	return Available(*product), nil
}

func (s *service) CanFulfill(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return CanFulfill(*product, qty), nil
}

// CommitSale decrements stock for a sold line inside tx.
func (s *service) CommitSale(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	ok, err := s.repo.WithTx(tx).DecrementStock(ctx, id, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit sale")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"productId": id, "requested": qty})
	}
	return nil
}

// Restock returns qty units to stock inside tx.
func (s *service) Restock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	ok, err := s.repo.WithTx(tx).IncrementStock(ctx, id, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock product")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) ListLowStock(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	return s.toDTOs(rows), nil
}

func (s *service) toDTOs(rows []models.Product) []ProductDTO {
	now := s.now()
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ProductFromModel(row, now))
	}
	return out
}

func applyUpdate(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.SalePrice != nil {
		product.SalePrice = input.SalePrice
	}
	if input.OnSale != nil {
		product.OnSale = *input.OnSale
	}
	if input.SaleStartsAt != nil {
		product.SaleStartsAt = input.SaleStartsAt
	}
	if input.SaleEndsAt != nil {
		product.SaleEndsAt = input.SaleEndsAt
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Reserved != nil {
		product.Reserved = *input.Reserved
	}
	if input.LowStockThreshold != nil {
		product.LowStockThreshold = *input.LowStockThreshold
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
}
