package wishlist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

type productReader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Service exposes business rules for wishlist management.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) (*WishlistDTO, error)
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	// Save adds the product unless already present and returns the new count.
	Save(ctx context.Context, userID, productID uuid.UUID) (int64, error)
}

type service struct {
	repo     *Repository
	products productReader
	now      func() time.Time
}

// NewService builds a wishlist service with the required dependencies.
func NewService(repo *Repository, products productReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	return &service{repo: repo, products: products, now: time.Now}, nil
}

// List returns the saved products still in the catalog.
func (s *service) List(ctx context.Context, userID uuid.UUID) (*WishlistDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	rows, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist")
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	products, err := s.products.FindProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]ItemDTO, 0, len(rows))
	for _, row := range rows {
		product, ok := products[row.ProductID]
		if !ok {
			continue
		}
		items = append(items, ItemDTO{
			ProductID: product.ID,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			Price:     product.FinalPrice(now),
			Available: product.Available(),
			InStock:   product.IsActive && product.Available() > 0,
			AddedAt:   row.CreatedAt,
		})
	}
	return &WishlistDTO{Count: len(items), Items: items}, nil
}

// Add ensures the product exists and rejects a duplicate entry.
func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.ensureProduct(ctx, userID, productID); err != nil {
		return err
	}
	added, err := s.repo.AddItem(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	if !added {
		return pkgerrors.New(pkgerrors.CodeConflict, "product already in wishlist")
	}
	return nil
}

// Remove drops the wishlist entry regardless of prior state.
func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear wishlist")
	}
	return nil
}

func (s *service) Save(ctx context.Context, userID, productID uuid.UUID) (int64, error) {
	if err := s.ensureProduct(ctx, userID, productID); err != nil {
		return 0, err
	}
	if _, err := s.repo.AddItem(ctx, userID, productID); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	count, err := s.repo.Count(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count wishlist")
	}
	return count, nil
}

func (s *service) ensureProduct(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	_, err := s.products.FindProduct(ctx, productID)
	return err
}
