package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/types"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByOwner(ctx context.Context, owner Owner) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	SaveTotals(ctx context.Context, cart *models.Cart) error
	ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListExpiredGuests(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productReader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type stockChecker interface {
	GetAvailable(ctx context.Context, id uuid.UUID) (int, error)
	CanFulfill(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

type wishlistSaver interface {
	Save(ctx context.Context, userID, productID uuid.UUID) (int64, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) error
}

type couponApplier interface {
	Apply(ctx context.Context, code string, subtotal decimal.Decimal) (*types.AppliedCoupon, error)
}
