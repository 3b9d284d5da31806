package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhannt26/e-commerce-website-v3/internal/inventory"
	"github.com/nhannt26/e-commerce-website-v3/internal/notifications"
	"github.com/nhannt26/e-commerce-website-v3/internal/payments"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

const defaultBatchSize = 200

type guestCartPurger interface {
	PurgeExpiredGuests(ctx context.Context, limit int) (int, error)
}

type GuestCartPurgeJobParams struct {
	Logger    *logger.Logger
	Carts     guestCartPurger
	BatchSize int
}

// NewGuestCartPurgeJob deletes guest carts past their retention window.
func NewGuestCartPurgeJob(params GuestCartPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &guestCartPurgeJob{logg: params.Logger, carts: params.Carts, batch: batch}, nil
}

type guestCartPurgeJob struct {
	logg  *logger.Logger
	carts guestCartPurger
	batch int
}

func (j *guestCartPurgeJob) Name() string { return "guest-cart-purge" }

// Run drains expired carts batch by batch until a short batch comes back.
func (j *guestCartPurgeJob) Run(ctx context.Context) error {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := j.carts.PurgeExpiredGuests(ctx, j.batch)
		total += n
		if err != nil {
			return fmt.Errorf("purge guest carts: %w", err)
		}
		if n < j.batch {
			break
		}
	}
	j.logg.Info(j.logg.WithField(ctx, "carts_deleted", total), "guest cart purge complete")
	return nil
}

type pendingSweeper interface {
	SweepPending(ctx context.Context, opts payments.SweepOptions) (payments.SweepResult, error)
}

type PaymentSweepJobParams struct {
	Logger      *logger.Logger
	Payments    pendingSweeper
	StaleAfter  time.Duration
	ExpireAfter time.Duration
	BatchSize   int
}

// NewPaymentSweepJob resolves pending transactions whose callback never
// arrived by querying the gateway, and expires abandoned ones.
func NewPaymentSweepJob(params PaymentSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	return &paymentSweepJob{
		logg:     params.Logger,
		payments: params.Payments,
		opts: payments.SweepOptions{
			StaleAfter:  params.StaleAfter,
			ExpireAfter: params.ExpireAfter,
			Limit:       params.BatchSize,
		},
	}, nil
}

type paymentSweepJob struct {
	logg     *logger.Logger
	payments pendingSweeper
	opts     payments.SweepOptions
}

func (j *paymentSweepJob) Name() string { return "pending-transaction-sweep" }

func (j *paymentSweepJob) Run(ctx context.Context) error {
	result, err := j.payments.SweepPending(ctx, j.opts)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked": result.Checked,
		"settled": result.Settled,
		"failed":  result.Failed,
		"expired": result.Expired,
	})
	if err != nil {
		return fmt.Errorf("sweep pending transactions: %w", err)
	}
	j.logg.Info(logCtx, "pending transaction sweep complete")
	return nil
}

type lowStockLister interface {
	ListLowStock(ctx context.Context) ([]inventory.ProductDTO, error)
}

type LowStockAlertJobParams struct {
	Logger    *logger.Logger
	Inventory lowStockLister
	Notifier  notifications.Notifier
}

// NewLowStockAlertJob emits a low_stock notification for each product at or
// under its threshold. A product is reported again only once its available
// quantity drops further or after it recovers and runs low again.
func NewLowStockAlertJob(params LowStockAlertJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &lowStockAlertJob{
		logg:      params.Logger,
		inventory: params.Inventory,
		notifier:  params.Notifier,
		reported:  map[uuid.UUID]int{},
		now:       time.Now,
	}, nil
}

type lowStockAlertJob struct {
	logg      *logger.Logger
	inventory lowStockLister
	notifier  notifications.Notifier
	reported  map[uuid.UUID]int
	now       func() time.Time
}

func (j *lowStockAlertJob) Name() string { return "low-stock-alert" }

func (j *lowStockAlertJob) Run(ctx context.Context) error {
	products, err := j.inventory.ListLowStock(ctx)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}

	seen := make(map[uuid.UUID]int, len(products))
	alerted := 0
	for _, product := range products {
		seen[product.ID] = product.Available
		if last, ok := j.reported[product.ID]; ok && product.Available >= last {
			continue
		}
		productID := product.ID
		j.notifier.Notify(ctx, notifications.Event{
			Type:      enums.NotificationTypeLowStock,
			ProductID: &productID,
			Extra: map[string]any{
				"sku":       product.SKU,
				"name":      product.Name,
				"available": product.Available,
				"threshold": product.LowStockThreshold,
			},
			OccurredAt: j.now(),
		})
		alerted++
	}
	j.reported = seen

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"low_stock_products": len(products),
		"alerts_sent":        alerted,
	})
	j.logg.Info(logCtx, "low stock check complete")
	return nil
}
