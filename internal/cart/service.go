package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/internal/cartevents"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

// Service exposes cart mutation, validation and checkout hand-off.
type Service interface {
	GetCart(ctx context.Context, owner Owner) (*models.Cart, error)
	Summary(ctx context.Context, owner Owner) (*Summary, error)
	AddItem(ctx context.Context, owner Owner, productID uuid.UUID, qty int) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, owner Owner, itemID uuid.UUID, qty int) (*models.Cart, error)
	RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, owner Owner) (*models.Cart, error)
	Validate(ctx context.Context, owner Owner) (*ValidationResult, *models.Cart, error)
	ApplyCoupon(ctx context.Context, owner Owner, code string) (*models.Cart, error)
	RemoveCoupon(ctx context.Context, owner Owner) (*models.Cart, error)
	Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*models.Cart, error)
	CheckProduct(ctx context.Context, owner Owner, productID uuid.UUID) (*ProductCheck, error)
	Recover(ctx context.Context, owner Owner) (*ValidationResult, *models.Cart, error)
	SaveForLater(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, int64, error)
	MoveToCart(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.Cart, error)

	LoadForCheckout(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error)
	ClearInTx(ctx context.Context, tx *gorm.DB, cart *models.Cart) error
	RecordCheckedOut(ctx context.Context, cart *models.Cart)
	PurgeExpiredGuests(ctx context.Context, limit int) (int, error)
}

type service struct {
	repo      CartRepository
	tx        txRunner
	products  productReader
	stock     stockChecker
	coupons   couponApplier
	wishlist  wishlistSaver
	events    cartevents.Recorder
	retention time.Duration
	now       func() time.Time
}

// ServiceParams groups the cart service dependencies. Wishlist and Events
// are optional.
type ServiceParams struct {
	Repo      CartRepository
	Tx        txRunner
	Products  productReader
	Stock     stockChecker
	Coupons   couponApplier
	Wishlist  wishlistSaver
	Events    cartevents.Recorder
	Retention time.Duration
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock checker required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon applier required")
	}
	events := params.Events
	if events == nil {
		events = cartevents.Discard
	}
	if params.Retention <= 0 {
		return nil, fmt.Errorf("cart retention must be positive")
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		products:  params.Products,
		stock:     params.Stock,
		coupons:   params.Coupons,
		wishlist:  params.Wishlist,
		events:    events,
		retention: params.Retention,
		now:       time.Now,
	}, nil
}

// mutation edits a cart loaded inside the transaction. Returning persist=false
// leaves the stored cart untouched.
type mutation func(ctx context.Context, cart *models.Cart) (events []models.CartEvent, persist bool, err error)

func (s *service) GetCart(ctx context.Context, owner Owner) (*models.Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	cart, created, err := s.ensureCart(ctx, owner)
	s.events.Record(ctx, created...)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) Summary(ctx context.Context, owner Owner) (*Summary, error) {
	cart, err := s.GetCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	return summaryOf(cart), nil
}

// AddItem adds qty units of a product, merging into an existing line.
// An existing line keeps its captured price.
func (s *service) AddItem(ctx context.Context, owner Owner, productID uuid.UUID, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	product, err := s.products.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	price := product.FinalPrice(s.now())

	return s.mutate(ctx, owner, func(ctx context.Context, cart *models.Cart) ([]models.CartEvent, bool, error) {
		idx := indexOfProduct(cart.Items, productID)
		current := 0
		if idx >= 0 {
			current = cart.Items[idx].Quantity
		}
		needed := current + qty

		ok, err := s.stock.CanFulfill(ctx, productID, needed)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			available, err := s.stock.GetAvailable(ctx, productID)
			if err != nil {
				return nil, false, err
			}
			if needed > product.Stock {
				remaining := available - current
				if remaining < 0 {
					remaining = 0
				}
				return nil, false, insufficientStock(fmt.Sprintf("Cannot add %d more. Only %d available.", qty, remaining), productID, needed, available)
			}
			return nil, false, insufficientStock(fmt.Sprintf("Only %d items available. You already have %d in cart.", available, current), productID, needed, available)
		}

		if idx >= 0 {
			cart.Items[idx].Quantity = needed
		} else {
			cart.Items = append(cart.Items, models.CartItem{
				ID:        uuid.New(),
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  qty,
				UnitPrice: price,
			})
		}

		event := newEvent(cart, enums.CartEventTypeItemAdded)
		event.ProductID = &productID
		event.Quantity = &qty
		event.Price = &price
		return []models.CartEvent{event}, true, nil
	})
}

func (s *service) UpdateItemQuantity(ctx context.Context, owner Owner, itemID uuid.UUID, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return s.mutate(ctx, owner, func(ctx context.Context, cart *models.Cart) ([]models.CartEvent, bool, error) {
		idx := indexOfItem(cart.Items, itemID)
		if idx < 0 {
			return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
		}
		item := &cart.Items[idx]
		product, err := s.products.FindProduct(ctx, item.ProductID)
		if err != nil {
			return nil, false, err
		}
		if qty > product.Stock {
			return nil, false, insufficientStock(fmt.Sprintf("Only %d items available in stock", product.Stock), product.ID, qty, product.Stock)
		}
		item.Quantity = qty

		event := newEvent(cart, enums.CartEventTypeQuantityUpdated)
		event.ProductID = &item.ProductID
		event.Quantity = &qty
		return []models.CartEvent{event}, true, nil
	})
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*models.Cart, error) {
	return s.mutate(ctx, owner, func(_ context.Context, cart *models.Cart) ([]models.CartEvent, bool, error) {
		idx := indexOfItem(cart.Items, itemID)
		if idx < 0 {
			return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
		}
		removed := cart.Items[idx]
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

		event := newEvent(cart, enums.CartEventTypeItemRemoved)
		event.ProductID = &removed.ProductID
		event.Quantity = &removed.Quantity
		return []models.CartEvent{event}, true, nil
	})
}

func (s *service) Clear(ctx context.Context, owner Owner) (*models.Cart, error) {
	return s.mutate(ctx, owner, func(_ context.Context, cart *models.Cart) ([]models.CartEvent, bool, error) {
		cart.Items = nil
		cart.Coupon = nil
		return []models.CartEvent{newEvent(cart, enums.CartEventTypeCleared)}, true, nil
	})
}

func (s *service) Validate(ctx context.Context, owner Owner) (*ValidationResult, *models.Cart, error) {
	var result ValidationResult
	cart, err := s.mutate(ctx, owner, func(ctx context.Context, cart *models.Cart) ([]models.CartEvent, bool, error) {
		products, err := s.products.FindProducts(ctx, productIDs(cart.Items))
		if err != nil {
			return nil, false, err
		}
		var removed []models.CartItem
		var changed bool
		result, removed, changed = validateItems(cart, products, s.now())

		events := make([]models.CartEvent, 0, len(removed))
		for i := range removed {
			event := newEvent(cart, enums.CartEventTypeItemRemoved)
			event.ProductID = &removed[i].ProductID
			event.Quantity = &removed[i].Quantity
			events = append(events, event)
		}
		return events, changed, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &result, cart, nil
}

func (s *service) ApplyCoupon(ctx context.Context, owner Owner, code string) (*models.Cart, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	return s.mutate(ctx, owner, func(ctx context.Context, cart *models.Cart) ([]models.CartEvent, bool, error) {
		recalculate(cart)
		applied, err := s.coupons.Apply(ctx, code, cart.Subtotal)
		if err != nil {
			return nil, false, err
		}
		cart.Coupon = applied
		return nil, true, nil
	})
}

func (s *service) RemoveCoupon(ctx context.Context, owner Owner) (*models.Cart, error) {
	return s.mutate(ctx, owner, func(_ context.Context, cart *models.Cart) ([]models.CartEvent, bool, error) {
		if cart.Coupon == nil {
			return nil, false, nil
		}
		cart.Coupon = nil
		return nil, true, nil
	})
}

// Merge folds a guest cart into the user's cart and deletes the guest cart.
// Shared products sum their quantities at the user cart's price.
func (s *service) Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*models.Cart, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	guest, err := s.repo.FindByOwner(ctx, SessionOwner(sessionID))
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}
	if guest == nil || len(guest.Items) == 0 {
		return s.GetCart(ctx, UserOwner(userID))
	}

	userCart, created, err := s.ensureCart(ctx, UserOwner(userID))
	s.events.Record(ctx, created...)
	if err != nil {
		return nil, err
	}

	var (
		result *models.Cart
		events []models.CartEvent
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		target, err := txRepo.FindByIDForUpdate(ctx, userCart.ID)
		if err != nil {
			return err
		}
		source, err := txRepo.FindByIDForUpdate(ctx, guest.ID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				result = target
				return nil
			}
			return err
		}

		for _, line := range source.Items {
			if idx := indexOfProduct(target.Items, line.ProductID); idx >= 0 {
				target.Items[idx].Quantity += line.Quantity
			} else {
				target.Items = append(target.Items, models.CartItem{
					ID:        uuid.New(),
					CartID:    target.ID,
					ProductID: line.ProductID,
					Quantity:  line.Quantity,
					UnitPrice: line.UnitPrice,
				})
			}
			productID, qty, price := line.ProductID, line.Quantity, line.UnitPrice
			event := newEvent(target, enums.CartEventTypeItemAdded)
			event.ProductID = &productID
			event.Quantity = &qty
			event.Price = &price
			events = append(events, event)
		}

		if err := s.persist(ctx, txRepo, target); err != nil {
			return err
		}
		if err := txRepo.Delete(ctx, source.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete guest cart")
		}
		result = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Record(ctx, events...)
	return result, nil
}

// CheckProduct reports whether a product is in the owner's cart and whether
// one more unit could still be added. It never creates a cart.
func (s *service) CheckProduct(ctx context.Context, owner Owner, productID uuid.UUID) (*ProductCheck, error) {
	available, err := s.stock.GetAvailable(ctx, productID)
	if err != nil {
		return nil, err
	}
	check := &ProductCheck{ProductID: productID, Available: available}

	if owner.validate() == nil {
		cart, err := s.repo.FindByOwner(ctx, owner)
		switch {
		case err == nil:
			if idx := indexOfProduct(cart.Items, productID); idx >= 0 {
				check.InCart = true
				check.Quantity = cart.Items[idx].Quantity
			}
		case !pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			return nil, err
		}
	}

	check.CanAddMore, err = s.stock.CanFulfill(ctx, productID, check.Quantity+1)
	if err != nil {
		return nil, err
	}
	return check, nil
}

// Recover reloads a signed-in user's existing cart and revalidates it.
func (s *service) Recover(ctx context.Context, owner Owner) (*ValidationResult, *models.Cart, error) {
	if !owner.IsUser() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required to recover cart")
	}
	if _, err := s.repo.FindByOwner(ctx, owner); err != nil {
		return nil, nil, err
	}
	return s.Validate(ctx, owner)
}

// SaveForLater moves a cart line to the wishlist. The wishlist write happens
// first so a failure never loses the product.
func (s *service) SaveForLater(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, int64, error) {
	if userID == uuid.Nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	if s.wishlist == nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeDependency, "wishlist unavailable")
	}
	owner := UserOwner(userID)
	current, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
		}
		return nil, 0, err
	}
	idx := indexOfItem(current.Items, itemID)
	if idx < 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
	}

	count, err := s.wishlist.Save(ctx, userID, current.Items[idx].ProductID)
	if err != nil {
		return nil, 0, err
	}
	cart, err := s.RemoveItem(ctx, owner, itemID)
	if err != nil {
		return nil, 0, err
	}
	return cart, count, nil
}

// MoveToCart adds a wishlist product to the user's cart, then drops it from
// the wishlist. A failed add leaves the wishlist untouched.
func (s *service) MoveToCart(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	if s.wishlist == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wishlist unavailable")
	}
	cart, err := s.AddItem(ctx, UserOwner(userID), productID, qty)
	if err != nil {
		return nil, err
	}
	if err := s.wishlist.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	return cart, nil
}

// LoadForCheckout loads the user's cart inside tx and rejects an empty one.
func (s *service) LoadForCheckout(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	txRepo := s.repo.WithTx(tx)
	cart, err := txRepo.FindByOwner(ctx, UserOwner(userID))
	if err == nil {
		cart, err = txRepo.FindByIDForUpdate(ctx, cart.ID)
	}
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	return cart, nil
}

// ClearInTx empties a cart consumed by checkout inside tx.
func (s *service) ClearInTx(ctx context.Context, tx *gorm.DB, cart *models.Cart) error {
	cart.Items = nil
	cart.Coupon = nil
	return s.persist(ctx, s.repo.WithTx(tx), cart)
}

func (s *service) RecordCheckedOut(ctx context.Context, cart *models.Cart) {
	if cart == nil {
		return
	}
	s.events.Record(ctx, newEvent(cart, enums.CartEventTypeCheckedOut))
}

// PurgeExpiredGuests deletes up to limit guest carts past their retention window.
func (s *service) PurgeExpiredGuests(ctx context.Context, limit int) (int, error) {
	carts, err := s.repo.ListExpiredGuests(ctx, s.now(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired carts")
	}

	var (
		errs    error
		deleted int
		events  []models.CartEvent
	)
	for i := range carts {
		if err := s.repo.Delete(ctx, carts[i].ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete cart %s: %w", carts[i].ID, err))
			continue
		}
		deleted++
		events = append(events, newEvent(&carts[i], enums.CartEventTypeAbandoned))
	}
	s.events.Record(ctx, events...)
	return deleted, errs
}

func (s *service) mutate(ctx context.Context, owner Owner, fn mutation) (*models.Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	base, created, err := s.ensureCart(ctx, owner)
	s.events.Record(ctx, created...)
	if err != nil {
		return nil, err
	}

	var (
		result *models.Cart
		events []models.CartEvent
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		cart, err := txRepo.FindByIDForUpdate(ctx, base.ID)
		if err != nil {
			return err
		}
		evts, persist, err := fn(ctx, cart)
		if err != nil {
			return err
		}
		if persist {
			if err := s.persist(ctx, txRepo, cart); err != nil {
				return err
			}
		}
		result = cart
		events = evts
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Record(ctx, events...)
	return result, nil
}

func (s *service) persist(ctx context.Context, repo CartRepository, cart *models.Cart) error {
	recalculate(cart)
	cart.ExpiresAt = s.now().Add(s.retention)
	for i := range cart.Items {
		cart.Items[i].CartID = cart.ID
	}
	if err := repo.SaveTotals(ctx, cart); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	if err := repo.ReplaceItems(ctx, cart.ID, cart.Items); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart items")
	}
	return nil
}

// ensureCart loads the owner's cart, creating it on first access.
func (s *service) ensureCart(ctx context.Context, owner Owner) (*models.Cart, []models.CartEvent, error) {
	cart, err := s.repo.FindByOwner(ctx, owner)
	if err == nil {
		return cart, nil, nil
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, nil, err
	}

	cart = &models.Cart{ExpiresAt: s.now().Add(s.retention)}
	if owner.IsUser() {
		userID := *owner.UserID
		cart.UserID = &userID
	} else {
		sessionID := strings.TrimSpace(owner.SessionID)
		cart.SessionID = &sessionID
	}
	recalculate(cart)

	if err := s.repo.Create(ctx, cart); err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, findErr := s.repo.FindByOwner(ctx, owner)
			return existing, nil, findErr
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return cart, []models.CartEvent{newEvent(cart, enums.CartEventTypeCreated)}, nil
}

func newEvent(cart *models.Cart, eventType enums.CartEventType) models.CartEvent {
	return models.CartEvent{
		CartID:    cart.ID,
		UserID:    cart.UserID,
		SessionID: cart.SessionID,
		EventType: eventType,
	}
}

func insufficientStock(message string, productID uuid.UUID, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, message).WithDetails(map[string]any{
		"productId": productID,
		"requested": requested,
		"available": available,
	})
}
