package coupons

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/types"
)

var evalNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func validCoupon() *models.Coupon {
	return &models.Coupon{
		Code:            "SAVE10",
		DiscountType:    enums.CouponTypePercentage,
		DiscountValue:   decimal.NewFromInt(10),
		MinimumPurchase: decimal.NewFromInt(50),
		ValidFrom:       evalNow.Add(-24 * time.Hour),
		ValidUntil:      evalNow.Add(24 * time.Hour),
		IsActive:        true,
	}
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func intPtr(v int) *int { return &v }

func TestEvaluateDiscounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*models.Coupon)
		subtotal int64
		want     string
	}{
		{name: "percentage", subtotal: 200, want: "20"},
		{
			name:     "percentageCapped",
			mutate:   func(c *models.Coupon) { c.MaximumDiscount = decPtr(15) },
			subtotal: 200,
			want:     "15",
		},
		{
			name: "fixed",
			mutate: func(c *models.Coupon) {
				c.DiscountType = enums.CouponTypeFixed
				c.DiscountValue = decimal.NewFromInt(30)
			},
			subtotal: 80,
			want:     "30",
		},
		{
			name: "fixedClampedToSubtotal",
			mutate: func(c *models.Coupon) {
				c.DiscountType = enums.CouponTypeFixed
				c.DiscountValue = decimal.NewFromInt(500)
				c.MinimumPurchase = decimal.Zero
			},
			subtotal: 60,
			want:     "60",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			coupon := validCoupon()
			if tc.mutate != nil {
				tc.mutate(coupon)
			}
			got, err := Evaluate(coupon, decimal.NewFromInt(tc.subtotal), evalNow)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s", got)
		})
	}
}

func TestEvaluateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*models.Coupon)
		subtotal int64
		code     pkgerrors.Code
		message  string
	}{
		{name: "inactive", mutate: func(c *models.Coupon) { c.IsActive = false }, subtotal: 100, code: pkgerrors.CodeValidation, message: "coupon is not active"},
		{name: "notYetValid", mutate: func(c *models.Coupon) { c.ValidFrom = evalNow.Add(time.Hour) }, subtotal: 100, code: pkgerrors.CodeValidation, message: "coupon is not yet valid"},
		{name: "expired", mutate: func(c *models.Coupon) { c.ValidUntil = evalNow.Add(-time.Hour) }, subtotal: 100, code: pkgerrors.CodeValidation, message: "coupon has expired"},
		{name: "exhausted", mutate: func(c *models.Coupon) { c.UsageLimit = intPtr(5); c.UsedCount = 5 }, subtotal: 100, code: pkgerrors.CodeValidation, message: "coupon usage limit reached"},
		{name: "zeroSubtotal", subtotal: 0, code: pkgerrors.CodeValidation, message: "cart subtotal must be positive"},
		{name: "zeroValue", mutate: func(c *models.Coupon) { c.DiscountValue = decimal.Zero }, subtotal: 100, code: pkgerrors.CodeValidation, message: "coupon value must be positive"},
		{name: "belowMinimum", subtotal: 49, code: pkgerrors.CodeValidation, message: "minimum purchase not met"},
		{
			name: "inactiveWinsOverExpired",
			mutate: func(c *models.Coupon) {
				c.IsActive = false
				c.ValidUntil = evalNow.Add(-time.Hour)
			},
			subtotal: 100,
			code:     pkgerrors.CodeValidation,
			message:  "coupon is not active",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			coupon := validCoupon()
			if tc.mutate != nil {
				tc.mutate(coupon)
			}
			_, err := Evaluate(coupon, decimal.NewFromInt(tc.subtotal), evalNow)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, tc.code, typed.Code())
			assert.Equal(t, tc.message, typed.Message())
		})
	}
}

func TestEvaluateMissingCoupon(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(nil, decimal.NewFromInt(10), evalNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestEvaluateIsIdempotent(t *testing.T) {
	t.Parallel()

	coupon := validCoupon()
	first, err := Evaluate(coupon, decimal.NewFromInt(120), evalNow)
	require.NoError(t, err)
	second, err := Evaluate(coupon, decimal.NewFromInt(120), evalNow)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestRecompute(t *testing.T) {
	t.Parallel()

	applied := &types.AppliedCoupon{
		Code:          "SAVE10",
		DiscountType:  enums.CouponTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
	}
	assert.True(t, Recompute(applied, decimal.NewFromInt(90)).Equal(decimal.NewFromInt(9)))
	assert.True(t, Recompute(applied, decimal.Zero).IsZero())
	assert.True(t, Recompute(nil, decimal.NewFromInt(90)).IsZero())
}
