package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/internal/cart"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	"github.com/nhannt26/e-commerce-website-v3/pkg/types"
)

// Repository defines persistence operations for orders and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	ListUserOrderTotals(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error)
	AppendStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartCheckout interface {
	Validate(ctx context.Context, owner cart.Owner) (*cart.ValidationResult, *models.Cart, error)
	LoadForCheckout(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error)
	ClearInTx(ctx context.Context, tx *gorm.DB, cart *models.Cart) error
	RecordCheckedOut(ctx context.Context, cart *models.Cart)
}

type productReader interface {
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type stockLedger interface {
	CommitSale(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
	Restock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
}

type addressResolver interface {
	Resolve(ctx context.Context, userID, id uuid.UUID) (types.ShippingAddress, error)
}

type couponRedeemer interface {
	Redeem(ctx context.Context, tx *gorm.DB, code string) error
}

// Sequencer hands out the per-day order sequence.
type Sequencer interface {
	Next(ctx context.Context, day time.Time) (int64, error)
}
