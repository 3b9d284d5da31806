package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

func validatePricing(price decimal.Decimal, salePrice *decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if salePrice != nil && salePrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale price must be non-negative")
	}
	return nil
}

func validateSaleWindow(startsAt, endsAt *time.Time) error {
	if startsAt != nil && endsAt != nil && endsAt.Before(*startsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale end must not precede sale start")
	}
	return nil
}
