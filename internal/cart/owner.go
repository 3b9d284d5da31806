package cart

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

// Owner identifies a cart by user or, for guests, by session token.
// A user id takes precedence over the session.
type Owner struct {
	UserID    *uuid.UUID
	SessionID string
}

// UserOwner returns the owner for an authenticated user.
func UserOwner(userID uuid.UUID) Owner {
	return Owner{UserID: &userID}
}

// SessionOwner returns the owner for a guest session.
func SessionOwner(sessionID string) Owner {
	return Owner{SessionID: sessionID}
}

// IsUser reports whether the owner is an authenticated user.
func (o Owner) IsUser() bool {
	return o.UserID != nil && *o.UserID != uuid.Nil
}

func (o Owner) validate() error {
	if o.IsUser() {
		return nil
	}
	if strings.TrimSpace(o.SessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id or authenticated user required")
	}
	return nil
}
