package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nhannt26/e-commerce-website-v3/api/controllers/requestctx"
	"github.com/nhannt26/e-commerce-website-v3/api/responses"
	"github.com/nhannt26/e-commerce-website-v3/api/validators"
	internalorders "github.com/nhannt26/e-commerce-website-v3/internal/orders"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

type orderRef struct {
	id    uuid.UUID
	actor internalorders.Actor
}

func withOrder(svc internalorders.Service, logg *logger.Logger, next func(http.ResponseWriter, *http.Request, orderRef)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		actor, err := requestctx.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			r = r.WithContext(logg.WithOrderID(r.Context(), orderID.String()))
		}
		next(w, r, orderRef{id: orderID, actor: actor})
	}
}

func writeOrder(w http.ResponseWriter, r *http.Request, logg *logger.Logger, order *models.Order, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, internalorders.OrderFromModel(order))
}
