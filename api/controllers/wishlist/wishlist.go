package wishlist

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nhannt26/e-commerce-website-v3/api/controllers/requestctx"
	"github.com/nhannt26/e-commerce-website-v3/api/responses"
	"github.com/nhannt26/e-commerce-website-v3/api/validators"
	cartsvc "github.com/nhannt26/e-commerce-website-v3/internal/cart"
	wishlistsvc "github.com/nhannt26/e-commerce-website-v3/internal/wishlist"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

type moveRequest struct {
	Quantity int `json:"quantity" validate:"omitempty,min=1,max=999"`
}

// List returns the caller's saved products with live stock.
func List(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
		list, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	})
}

func Add(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withProduct(svc, logg, func(w http.ResponseWriter, r *http.Request, userID, productID uuid.UUID) {
		if err := svc.Add(r.Context(), userID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"productId": productID})
	})
}

func Remove(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withProduct(svc, logg, func(w http.ResponseWriter, r *http.Request, userID, productID uuid.UUID) {
		if err := svc.Remove(r.Context(), userID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"productId": productID})
	})
}

func Clear(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"count": 0})
	})
}

// MoveToCart adds a saved product to the cart and drops it from the
// wishlist once the add succeeds.
func MoveToCart(svc wishlistsvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withProduct(svc, logg, func(w http.ResponseWriter, r *http.Request, userID, productID uuid.UUID) {
		if carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var payload moveRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Quantity == 0 {
			payload.Quantity = 1
		}
		record, err := carts.MoveToCart(r.Context(), userID, productID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartsvc.CartFromModel(record))
	})
}

func withUser(svc wishlistsvc.Service, logg *logger.Logger, next func(http.ResponseWriter, *http.Request, uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
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

func withProduct(svc wishlistsvc.Service, logg *logger.Logger, next func(http.ResponseWriter, *http.Request, uuid.UUID, uuid.UUID)) http.HandlerFunc {
	return withUser(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next(w, r, userID, productID)
	})
}
