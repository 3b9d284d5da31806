package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nhannt26/e-commerce-website-v3/api/controllers/requestctx"
	"github.com/nhannt26/e-commerce-website-v3/api/middleware"
	"github.com/nhannt26/e-commerce-website-v3/api/responses"
	"github.com/nhannt26/e-commerce-website-v3/api/validators"
	cartsvc "github.com/nhannt26/e-commerce-website-v3/internal/cart"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=999"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=999"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

type moveToCartRequest struct {
	Quantity int `json:"quantity" validate:"omitempty,min=1,max=999"`
}

type saveForLaterResponse struct {
	Cart          cartsvc.CartDTO `json:"cart"`
	WishlistCount int64           `json:"wishlistCount"`
}

type validateResponse struct {
	cartsvc.ValidationResult
	Cart cartsvc.CartDTO `json:"cart"`
}

// CartFetch returns the caller's cart, creating an empty one on first use.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		record, err := svc.GetCart(r.Context(), owner)
		writeCart(w, r, logg, record, err)
	})
}

func CartSummary(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		summary, err := svc.Summary(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	})
}

func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.AddItem(r.Context(), owner, payload.ProductID, payload.Quantity)
		writeCart(w, r, logg, record, err)
	})
}

func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.UpdateItemQuantity(r.Context(), owner, itemID, payload.Quantity)
		writeCart(w, r, logg, record, err)
	})
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.RemoveItem(r.Context(), owner, itemID)
		writeCart(w, r, logg, record, err)
	})
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		record, err := svc.Clear(r.Context(), owner)
		writeCart(w, r, logg, record, err)
	})
}

// CartValidate re-checks every line against the catalog, dropping or
// clamping lines that can no longer be fulfilled.
func CartValidate(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		result, record, err := svc.Validate(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, validateResponse{ValidationResult: *result, Cart: cartsvc.CartFromModel(record)})
	})
}

func CartApplyCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.ApplyCoupon(r.Context(), owner, validators.SanitizeString(payload.Code, 32))
		writeCart(w, r, logg, record, err)
	})
}

func CartRemoveCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		record, err := svc.RemoveCoupon(r.Context(), owner)
		writeCart(w, r, logg, record, err)
	})
}

// CartMerge folds the guest cart named by X-Session-Id into the
// authenticated user's cart. Called right after login.
func CartMerge(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := requestctx.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id header required"))
			return
		}
		record, err := svc.Merge(r.Context(), sessionID, userID)
		writeCart(w, r, logg, record, err)
	}
}

// CartCheckProduct reports whether a product is already in the cart and can
// take one more unit. It never creates a cart.
func CartCheckProduct(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		check, err := svc.CheckProduct(r.Context(), owner, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, check)
	})
}

// CartRecover revalidates a signed-in user's saved cart, typically on a new
// device.
func CartRecover(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withOwner(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) {
		result, record, err := svc.Recover(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, validateResponse{ValidationResult: *result, Cart: cartsvc.CartFromModel(record)})
	})
}

func CartSaveForLater(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, count, err := svc.SaveForLater(r.Context(), userID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, saveForLaterResponse{Cart: cartsvc.CartFromModel(record), WishlistCount: count})
	})
}

// CartMoveToCart moves a wishlist product into the cart. The body is
// optional; quantity defaults to 1.
func CartMoveToCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload moveToCartRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Quantity == 0 {
			payload.Quantity = 1
		}
		record, err := svc.MoveToCart(r.Context(), userID, productID, payload.Quantity)
		writeCart(w, r, logg, record, err)
	})
}

type ownerHandler func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner)

func withOwner(svc cartsvc.Service, logg *logger.Logger, next ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		owner, err := requestctx.ResolveCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next(w, r, owner)
	}
}

func withUser(svc cartsvc.Service, logg *logger.Logger, next func(w http.ResponseWriter, r *http.Request, userID uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := requestctx.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next(w, r, userID)
	}
}

func writeCart(w http.ResponseWriter, r *http.Request, logg *logger.Logger, record *models.Cart, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, cartsvc.CartFromModel(record))
}
