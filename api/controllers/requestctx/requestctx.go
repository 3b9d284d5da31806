package requestctx

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nhannt26/e-commerce-website-v3/api/middleware"
	"github.com/nhannt26/e-commerce-website-v3/internal/cart"
	"github.com/nhannt26/e-commerce-website-v3/internal/orders"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

// ResolveUserID returns the authenticated user id.
func ResolveUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// ResolveActor builds the order actor from the authenticated claims.
func ResolveActor(r *http.Request) (orders.Actor, error) {
	userID, err := ResolveUserID(r)
	if err != nil {
		return orders.Actor{}, err
	}
	return orders.Actor{
		UserID: userID,
		Role:   enums.UserRole(middleware.RoleFromContext(r.Context())),
	}, nil
}

// ResolveCartOwner prefers the authenticated user and falls back to the
// guest session header.
func ResolveCartOwner(r *http.Request) (cart.Owner, error) {
	if middleware.UserIDFromContext(r.Context()) != "" {
		userID, err := ResolveUserID(r)
		if err != nil {
			return cart.Owner{}, err
		}
		return cart.UserOwner(userID), nil
	}
	sessionID := strings.TrimSpace(middleware.SessionIDFromContext(r.Context()))
	if sessionID == "" {
		return cart.Owner{}, pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id header or authentication required")
	}
	return cart.SessionOwner(sessionID), nil
}
