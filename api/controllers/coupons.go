package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nhannt26/e-commerce-website-v3/api/responses"
	"github.com/nhannt26/e-commerce-website-v3/api/validators"
	"github.com/nhannt26/e-commerce-website-v3/internal/coupons"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

// AdminCreateCoupon registers a new coupon code.
func AdminCreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		var input coupons.CreateCouponInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(coupon))
	}
}

type couponResponse struct {
	ID              uuid.UUID        `json:"id"`
	Code            string           `json:"code"`
	Description     *string          `json:"description,omitempty"`
	DiscountType    enums.CouponType `json:"discountType"`
	DiscountValue   decimal.Decimal  `json:"discountValue"`
	MinimumPurchase decimal.Decimal  `json:"minimumPurchase"`
	MaximumDiscount *decimal.Decimal `json:"maximumDiscount,omitempty"`
	ValidFrom       time.Time        `json:"validFrom"`
	ValidUntil      time.Time        `json:"validUntil"`
	UsageLimit      *int             `json:"usageLimit,omitempty"`
	UsedCount       int              `json:"usedCount"`
	IsActive        bool             `json:"isActive"`
}

func newCouponResponse(c *models.Coupon) couponResponse {
	return couponResponse{
		ID:              c.ID,
		Code:            c.Code,
		Description:     c.Description,
		DiscountType:    c.DiscountType,
		DiscountValue:   c.DiscountValue,
		MinimumPurchase: c.MinimumPurchase,
		MaximumDiscount: c.MaximumDiscount,
		ValidFrom:       c.ValidFrom,
		ValidUntil:      c.ValidUntil,
		UsageLimit:      c.UsageLimit,
		UsedCount:       c.UsedCount,
		IsActive:        c.IsActive,
	}
}
