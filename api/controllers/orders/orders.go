package orders

import (
	"net/http"

	"github.com/nhannt26/e-commerce-website-v3/api/controllers/requestctx"
	"github.com/nhannt26/e-commerce-website-v3/api/responses"
	"github.com/nhannt26/e-commerce-website-v3/api/validators"
	internalorders "github.com/nhannt26/e-commerce-website-v3/internal/orders"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

type markPaidRequest struct {
	TransactionID string `json:"transactionId" validate:"max=64"`
}

// Checkout converts the caller's cart into an order.
func Checkout(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := requestctx.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input internalorders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.UserID = userID

		order, err := svc.CreateFromCart(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, order.ID.String())
			logg.Info(logg.WithField(ctx, "order_number", order.OrderNumber), "order.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalorders.OrderFromModel(order))
	}
}

// List returns the caller's most recent orders.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := requestctx.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListForUser(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]internalorders.OrderDTO, 0, len(rows))
		for i := range rows {
			out = append(out, internalorders.OrderFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{"orders": out})
	}
}

// Detail returns one order to its owner or an admin.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, ref orderRef) {
		order, err := svc.GetForActor(r.Context(), ref.id, ref.actor)
		writeOrder(w, r, logg, order, err)
	})
}

// Timeline returns the progress of one order to its owner or an admin.
func Timeline(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, ref orderRef) {
		timeline, err := svc.Timeline(r.Context(), ref.id, ref.actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, timeline)
	})
}

// Stats summarises the caller's order history.
func Stats(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := requestctx.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Stats(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// Cancel cancels a pending or processing order and restocks its lines.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, ref orderRef) {
		var payload cancelRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), ref.id, validators.SanitizeString(payload.Reason, 500), ref.actor)
		writeOrder(w, r, logg, order, err)
	})
}

// AdminUpdateStatus moves an order along the status machine. Cancellation
// goes through the same path as a customer cancel.
func AdminUpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, ref orderRef) {
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]string{"status": "must be a known order status"}))
			return
		}

		note := validators.SanitizeString(payload.Note, 500)
		var order *models.Order
		if next == enums.OrderStatusCancelled {
			order, err = svc.Cancel(r.Context(), ref.id, note, ref.actor)
		} else {
			order, err = svc.UpdateStatus(r.Context(), ref.id, next, note, ref.actor)
		}
		writeOrder(w, r, logg, order, err)
	})
}

// AdminMarkPaid records an out-of-band payment such as cash on delivery.
func AdminMarkPaid(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, ref orderRef) {
		var payload markPaidRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.MarkAsPaid(r.Context(), ref.id, validators.SanitizeString(payload.TransactionID, 64), ref.actor)
		writeOrder(w, r, logg, order, err)
	})
}

func AdminTracking(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, ref orderRef) {
		var input internalorders.TrackingInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.AddTracking(r.Context(), ref.id, input, ref.actor)
		writeOrder(w, r, logg, order, err)
	})
}
