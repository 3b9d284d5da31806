package addresses

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nhannt26/e-commerce-website-v3/api/controllers/requestctx"
	"github.com/nhannt26/e-commerce-website-v3/api/responses"
	"github.com/nhannt26/e-commerce-website-v3/api/validators"
	addresssvc "github.com/nhannt26/e-commerce-website-v3/internal/addresses"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

// List returns the caller's address book, default entry first.
func List(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
		rows, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	})
}

func Create(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
		var input addresssvc.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	})
}

func Update(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withAddress(svc, logg, func(w http.ResponseWriter, r *http.Request, userID, id uuid.UUID) {
		var input addresssvc.UpdateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Update(r.Context(), userID, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	})
}

func Delete(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withAddress(svc, logg, func(w http.ResponseWriter, r *http.Request, userID, id uuid.UUID) {
		if err := svc.Delete(r.Context(), userID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id})
	})
}

func SetDefault(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withAddress(svc, logg, func(w http.ResponseWriter, r *http.Request, userID, id uuid.UUID) {
		updated, err := svc.SetDefault(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	})
}

func withUser(svc addresssvc.Service, logg *logger.Logger, next func(http.ResponseWriter, *http.Request, uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
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

func withAddress(svc addresssvc.Service, logg *logger.Logger, next func(http.ResponseWriter, *http.Request, uuid.UUID, uuid.UUID)) http.HandlerFunc {
	return withUser(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
		id, err := validators.ParseUUIDParam(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next(w, r, userID, id)
	})
}
