package coupons

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/types"
)

// Service validates and redeems coupons.
type Service interface {
	Apply(ctx context.Context, code string, subtotal decimal.Decimal) (*types.AppliedCoupon, error)
	Redeem(ctx context.Context, tx *gorm.DB, code string) error
	Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error)
}

// CreateCouponInput is the admin payload for a new coupon.
type CreateCouponInput struct {
	Code            string           `json:"code" validate:"required,max=32"`
	Description     *string          `json:"description"`
	DiscountType    enums.CouponType `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue   decimal.Decimal  `json:"discountValue"`
	MinimumPurchase decimal.Decimal  `json:"minimumPurchase"`
	MaximumDiscount *decimal.Decimal `json:"maximumDiscount"`
	ValidFrom       time.Time        `json:"validFrom" validate:"required"`
	ValidUntil      time.Time        `json:"validUntil" validate:"required"`
	UsageLimit      *int             `json:"usageLimit" validate:"omitempty,gte=1"`
	IsActive        *bool            `json:"isActive"`
}

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService constructs a coupon service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Apply evaluates code against subtotal and returns the snapshot to attach to a cart.
func (s *service) Apply(ctx context.Context, code string, subtotal decimal.Decimal) (*types.AppliedCoupon, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	amount, err := Evaluate(coupon, subtotal, s.now())
	if err != nil {
		return nil, err
	}
	return Snapshot(coupon, amount), nil
}

// Redeem consumes one use of the coupon inside tx.
func (s *service) Redeem(ctx context.Context, tx *gorm.DB, code string) error {
	ok, err := s.repo.WithTx(tx).IncrementUsage(ctx, code)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem coupon")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon usage limit reached")
	}
	return nil
}

func (s *service) Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if !input.DiscountValue.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}
	if input.DiscountType == enums.CouponTypePercentage && input.DiscountValue.GreaterThan(hundred) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if input.MinimumPurchase.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum purchase must be non-negative")
	}
	if !input.ValidUntil.After(input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validUntil must be after validFrom")
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	coupon := &models.Coupon{
		Code:            NormalizeCode(input.Code),
		Description:     input.Description,
		DiscountType:    input.DiscountType,
		DiscountValue:   input.DiscountValue,
		MinimumPurchase: input.MinimumPurchase,
		MaximumDiscount: input.MaximumDiscount,
		ValidFrom:       input.ValidFrom,
		ValidUntil:      input.ValidUntil,
		UsageLimit:      input.UsageLimit,
		IsActive:        isActive,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert coupon")
	}
	return coupon, nil
}
