package coupons

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Evaluate checks the coupon against subtotal at now and returns the discount.
// Checks run in order and the first failure wins.
func Evaluate(coupon *models.Coupon, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if coupon == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	if !coupon.IsActive {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active")
	}
	if now.Before(coupon.ValidFrom) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not yet valid")
	}
	if now.After(coupon.ValidUntil) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "coupon has expired")
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "coupon usage limit reached")
	}
	if !subtotal.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "cart subtotal must be positive")
	}
	if !coupon.DiscountValue.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "coupon value must be positive")
	}
	if subtotal.LessThan(coupon.MinimumPurchase) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "minimum purchase not met").
			WithDetails(map[string]any{"minimumPurchase": coupon.MinimumPurchase.StringFixed(2)})
	}

	return Compute(coupon.DiscountType, coupon.DiscountValue, coupon.MaximumDiscount, subtotal)
}

// Compute applies the discount formula and clamps the result to subtotal.
func Compute(discountType enums.CouponType, value decimal.Decimal, maximum *decimal.Decimal, subtotal decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch discountType {
	case enums.CouponTypePercentage:
		amount = subtotal.Mul(value).Div(hundred).Round(2)
		if maximum != nil && amount.GreaterThan(*maximum) {
			amount = *maximum
		}
	case enums.CouponTypeFixed:
		amount = value
	default:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "unknown coupon type")
	}

	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount amount")
	}
	return amount, nil
}

// Recompute refreshes the discount of an attached coupon for a new subtotal.
func Recompute(applied *types.AppliedCoupon, subtotal decimal.Decimal) decimal.Decimal {
	if applied == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}
	amount, err := Compute(applied.DiscountType, applied.DiscountValue, applied.MaximumDiscount, subtotal)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// Snapshot captures the coupon fields a cart keeps after it is applied.
func Snapshot(coupon *models.Coupon, amount decimal.Decimal) *types.AppliedCoupon {
	return &types.AppliedCoupon{
		Code:            coupon.Code,
		DiscountType:    coupon.DiscountType,
		DiscountValue:   coupon.DiscountValue,
		MaximumDiscount: coupon.MaximumDiscount,
		DiscountAmount:  amount,
	}
}
