package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/internal/cart"
	"github.com/nhannt26/e-commerce-website-v3/internal/notifications"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/types"
)

// Service drives checkout and the order status machine.
type Service interface {
	CreateFromCart(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetForActor(ctx context.Context, id uuid.UUID, actor Actor) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	Timeline(ctx context.Context, id uuid.UUID, actor Actor) (*TimelineDTO, error)
	Stats(ctx context.Context, userID uuid.UUID) (*StatsDTO, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus, note string, actor Actor) (*models.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string, actor Actor) (*models.Order, error)
	MarkAsPaid(ctx context.Context, id uuid.UUID, transactionID string, actor Actor) (*models.Order, error)
	AddTracking(ctx context.Context, id uuid.UUID, input TrackingInput, actor Actor) (*models.Order, error)

	// MarkAsPaidTx and SetPaymentStatusTx run inside a caller-owned
	// transaction and leave notification to the caller.
	MarkAsPaidTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, transactionID string) (*models.Order, error)
	SetPaymentStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.PaymentStatus) error
}

type service struct {
	repo     Repository
	tx       txRunner
	carts    cartCheckout
	products productReader
	ledger   stockLedger
	coupons  couponRedeemer
	address  addressResolver
	seq      Sequencer
	notifier notifications.Notifier
	now      func() time.Time
}

// ServiceParams groups the collaborators of the order service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Carts     cartCheckout
	Products  productReader
	Ledger    stockLedger
	Coupons   couponRedeemer
	Sequencer Sequencer
	Notifier  notifications.Notifier
	// Addresses resolves checkout's addressId. Without it only inline
	// addresses are accepted.
	Addresses addressResolver
}

// NewService validates the collaborators and builds the order service.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if p.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if p.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if p.Coupons == nil {
		return nil, fmt.Errorf("coupon redeemer required")
	}
	if p.Sequencer == nil {
		return nil, fmt.Errorf("order sequencer required")
	}
	notifier := p.Notifier
	if notifier == nil {
		notifier = notifications.Discard
	}
	return &service{
		repo:     p.Repo,
		tx:       p.Tx,
		carts:    p.Carts,
		products: p.Products,
		ledger:   p.Ledger,
		coupons:  p.Coupons,
		address:  p.Addresses,
		seq:      p.Sequencer,
		notifier: notifier,
		now:      time.Now,
	}, nil
}

// CreateFromCart validates the user's cart, freezes it into an order and
// commits stock. Order insert, stock commit, coupon redemption and cart clear
// share one transaction.
func (s *service) CreateFromCart(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"paymentMethod": input.PaymentMethod})
	}
	address, err := s.shippingAddress(ctx, input)
	if err != nil {
		return nil, err
	}

	result, validated, err := s.carts.Validate(ctx, cart.UserOwner(input.UserID))
	if err != nil {
		return nil, err
	}
	if !result.IsValid {
		return nil, pkgerrors.New(pkgerrors.CodeCartInvalid, "cart validation failed").
			WithDetails(map[string]any{"errors": result.Errors, "removedItems": result.RemovedCount})
	}
	if len(validated.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	ids := make([]uuid.UUID, 0, len(validated.Items))
	for _, item := range validated.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	seq, err := s.seq.Next(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
	}

	var (
		order    *models.Order
		consumed *models.Cart
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		source, err := s.carts.LoadForCheckout(ctx, tx, input.UserID)
		if err != nil {
			return err
		}

		order, err = buildOrder(source, products, input, now)
		if err != nil {
			return err
		}
		order.OrderNumber = FormatOrderNumber(now, seq)
		order.ShippingAddress = address

		if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already used")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for _, item := range order.Items {
			if err := s.ledger.CommitSale(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if order.CouponCode != nil {
			if err := s.coupons.Redeem(ctx, tx, *order.CouponCode); err != nil {
				return err
			}
		}
		consumed = source
		return s.carts.ClearInTx(ctx, tx, source)
	})
	if err != nil {
		return nil, err
	}

	s.carts.RecordCheckedOut(ctx, consumed)
	s.notify(ctx, enums.NotificationTypeOrderCreated, order, map[string]any{
		"total":         order.Total.StringFixed(2),
		"paymentMethod": order.PaymentMethod,
	})
	return order, nil
}

// shippingAddress resolves the destination of a checkout. A saved entry wins
// over an inline address.
func (s *service) shippingAddress(ctx context.Context, input CreateOrderInput) (types.ShippingAddress, error) {
	var address types.ShippingAddress
	switch {
	case input.AddressID != nil:
		if s.address == nil {
			return types.ShippingAddress{}, pkgerrors.New(pkgerrors.CodeValidation, "saved addresses are not supported")
		}
		resolved, err := s.address.Resolve(ctx, input.UserID, *input.AddressID)
		if err != nil {
			return types.ShippingAddress{}, err
		}
		address = resolved
	case input.ShippingAddress != nil:
		address = *input.ShippingAddress
	default:
		return types.ShippingAddress{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping address or addressId is required")
	}
	address = address.Normalize()
	if missing := address.MissingFields(); len(missing) > 0 {
		return types.ShippingAddress{}, pkgerrors.New(pkgerrors.CodeValidation, "incomplete shipping address").
			WithDetails(map[string]any{"missingFields": missing})
	}
	return address, nil
}

func buildOrder(source *models.Cart, products map[uuid.UUID]models.Product, input CreateOrderInput, now time.Time) (*models.Order, error) {
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        input.UserID,
		Subtotal:      source.Subtotal,
		Tax:           source.Tax,
		Shipping:      source.Shipping,
		Discount:      source.Discount,
		Total:         source.Total,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: input.PaymentMethod.InitialPaymentStatus(),
		Status:        enums.OrderStatusPending,
		CustomerNote:  trimmedPtr(input.CustomerNote),
	}
	if source.Coupon != nil {
		code := source.Coupon.Code
		order.CouponCode = &code
	}

	items := make([]models.OrderLineItem, 0, len(source.Items))
	for i, line := range source.Items {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeCartInvalid, "cart changed during checkout").
				WithDetails(map[string]any{"productId": line.ProductID})
		}
		items = append(items, models.OrderLineItem{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Subtotal:  line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		})
	}
	order.Items = items
	order.StatusHistory = []models.OrderStatusEvent{{
		OrderID:   order.ID,
		Status:    enums.OrderStatusPending,
		Note:      "Order created",
		ActorID:   &order.UserID,
		CreatedAt: now,
	}}
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.repo.FindOrder(ctx, id)
}

// GetForActor loads an order visible to actor. Non-owners get Forbidden.
func (s *service) GetForActor(ctx context.Context, id uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	return s.repo.ListUserOrders(ctx, userID, limit)
}

// UpdateStatus applies an administrative transition. Cancellation goes through
// Cancel so stock is restored.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus, note string, actor Actor) (*models.Order, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": next})
	}
	if next == enums.OrderStatusCancelled {
		return s.Cancel(ctx, id, note, actor)
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, id)
		if err != nil {
			return err
		}
		updated, err = s.transition(ctx, repo, order, statusChange{
			to:    next,
			note:  note,
			actor: actor.id(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifyStatus(ctx, updated)
	return updated, nil
}

// Cancel moves a pending or processing order to cancelled and restocks its
// lines. A paid order is flagged for refund.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason string, actor Actor) (*models.Order, error) {
	reason = strings.TrimSpace(reason)

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, id)
		if err != nil {
			return err
		}
		if !actor.canAccess(order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if !order.Status.IsCancellable() {
			return pkgerrors.New(pkgerrors.CodeNotCancellable, "order cannot be cancelled").
				WithDetails(map[string]any{"status": order.Status})
		}

		now := s.now()
		updates := map[string]any{
			"cancelled_at": now,
			"cancelled_by": actor.id(),
		}
		if reason != "" {
			updates["cancel_reason"] = reason
		}
		if order.IsPaid() {
			updates["payment_status"] = enums.PaymentStatusRefunded
		}
		note := "Order cancelled"
		if reason != "" {
			note = "Order cancelled: " + reason
		}

		updated, err = s.transition(ctx, repo, order, statusChange{
			to:      enums.OrderStatusCancelled,
			note:    note,
			actor:   actor.id(),
			updates: updates,
		})
		if err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := s.ledger.Restock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, enums.NotificationTypeOrderCancelled, updated, map[string]any{"reason": reason})
	return updated, nil
}

// MarkAsPaid records a settled payment outside the gateway flow.
func (s *service) MarkAsPaid(ctx context.Context, id uuid.UUID, transactionID string, actor Actor) (*models.Order, error) {
	var (
		updated *models.Order
		before  enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindOrder(ctx, id)
		if err != nil {
			return err
		}
		before = order.Status
		updated, err = s.markPaid(ctx, s.repo.WithTx(tx), order, transactionID, actor.id())
		return err
	})
	if err != nil {
		return nil, err
	}
	if updated.Status != before {
		s.notifyStatus(ctx, updated)
	}
	return updated, nil
}

func (s *service) MarkAsPaidTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, transactionID string) (*models.Order, error) {
	repo := s.repo.WithTx(tx)
	order, err := repo.FindOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.markPaid(ctx, repo, order, transactionID, nil)
}

func (s *service) markPaid(ctx context.Context, repo Repository, order *models.Order, transactionID string, actor *uuid.UUID) (*models.Order, error) {
	if order.IsPaid() {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyPaid, "order already paid").
			WithDetails(map[string]any{"orderNumber": order.OrderNumber})
	}
	if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusReturned {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed").
			WithDetails(map[string]any{"status": order.Status})
	}

	updates := map[string]any{
		"payment_status": enums.PaymentStatusPaid,
		"payment_date":   s.now(),
	}
	if transactionID = strings.TrimSpace(transactionID); transactionID != "" {
		updates["transaction_id"] = transactionID
	}

	if order.Status == enums.OrderStatusPending {
		return s.transition(ctx, repo, order, statusChange{
			to:      enums.OrderStatusProcessing,
			note:    "Payment received",
			actor:   actor,
			updates: updates,
		})
	}

	ok, err := repo.UpdateOrder(ctx, order.ID, order.Status, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment")
	}
	if !ok {
		return nil, staleOrder(order)
	}
	return repo.FindOrder(ctx, order.ID)
}

func (s *service) SetPaymentStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.PaymentStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	ok, err := s.repo.WithTx(tx).UpdateOrder(ctx, id, "", map[string]any{"payment_status": status})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

// AddTracking stores shipment details and ships a processing order.
func (s *service) AddTracking(ctx context.Context, id uuid.UUID, input TrackingInput, actor Actor) (*models.Order, error) {
	number := strings.TrimSpace(input.TrackingNumber)
	carrier := strings.TrimSpace(input.Carrier)
	if number == "" || carrier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number and carrier are required")
	}

	var (
		updated *models.Order
		before  enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, id)
		if err != nil {
			return err
		}
		before = order.Status
		switch order.Status {
		case enums.OrderStatusPending, enums.OrderStatusCancelled, enums.OrderStatusReturned:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot take tracking details").
				WithDetails(map[string]any{"status": order.Status})
		}

		updates := map[string]any{
			"tracking_number": number,
			"carrier":         carrier,
		}
		if input.EstimatedDelivery != nil {
			updates["estimated_delivery"] = *input.EstimatedDelivery
		}

		if order.Status == enums.OrderStatusProcessing {
			updated, err = s.transition(ctx, repo, order, statusChange{
				to:      enums.OrderStatusShipped,
				note:    "Shipped via " + carrier,
				actor:   actor.id(),
				updates: updates,
			})
			return err
		}

		ok, err := repo.UpdateOrder(ctx, order.ID, order.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tracking")
		}
		if !ok {
			return staleOrder(order)
		}
		updated, err = repo.FindOrder(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if updated.Status != before {
		s.notifyStatus(ctx, updated)
	}
	return updated, nil
}

type statusChange struct {
	to      enums.OrderStatus
	note    string
	actor   *uuid.UUID
	updates map[string]any
}

// transition moves order to change.to when the state table allows it. The
// write is conditional on the status that was read, and a history entry is
// appended in the same transaction.
func (s *service) transition(ctx context.Context, repo Repository, order *models.Order, change statusChange) (*models.Order, error) {
	from := order.Status
	if !from.CanTransitionTo(change.to) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot change order status from %s to %s", from, change.to)).
			WithDetails(map[string]any{
				"from":    from,
				"to":      change.to,
				"allowed": from.NextStatuses(),
			})
	}

	now := s.now()
	updates := map[string]any{"order_status": change.to}
	for k, v := range change.updates {
		updates[k] = v
	}
	switch change.to {
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusCancelled:
		if _, ok := updates["cancelled_at"]; !ok {
			updates["cancelled_at"] = now
		}
		if _, ok := updates["cancelled_by"]; !ok {
			updates["cancelled_by"] = change.actor
		}
	}

	ok, err := repo.UpdateOrder(ctx, order.ID, from, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return nil, staleOrder(order)
	}

	note := strings.TrimSpace(change.note)
	if note == "" {
		note = "Status changed to " + change.to.String()
	}
	event := &models.OrderStatusEvent{
		OrderID:   order.ID,
		Status:    change.to,
		Note:      note,
		ActorID:   change.actor,
		CreatedAt: now,
	}
	if err := repo.AppendStatusEvent(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}
	return repo.FindOrder(ctx, order.ID)
}

func staleOrder(order *models.Order) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently").
		WithDetails(map[string]any{"orderNumber": order.OrderNumber, "status": order.Status})
}

func (s *service) notifyStatus(ctx context.Context, order *models.Order) {
	eventType := enums.NotificationTypeOrderStatusUpdated
	switch order.Status {
	case enums.OrderStatusShipped:
		eventType = enums.NotificationTypeOrderShipped
	case enums.OrderStatusDelivered:
		eventType = enums.NotificationTypeOrderDelivered
	}
	extra := map[string]any{"status": order.Status}
	if order.TrackingNumber != nil {
		extra["trackingNumber"] = *order.TrackingNumber
	}
	if order.Carrier != nil {
		extra["carrier"] = *order.Carrier
	}
	s.notify(ctx, eventType, order, extra)
}

func (s *service) notify(ctx context.Context, eventType enums.NotificationType, order *models.Order, extra map[string]any) {
	orderID := order.ID
	userID := order.UserID
	s.notifier.Notify(ctx, notifications.Event{
		Type:        eventType,
		OrderID:     &orderID,
		OrderNumber: order.OrderNumber,
		UserID:      &userID,
		Extra:       extra,
		OccurredAt:  s.now(),
	})
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
