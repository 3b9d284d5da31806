package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	"github.com/shopspring/decimal"
)

// AppliedCoupon is the coupon snapshot attached to a cart.
type AppliedCoupon struct {
	Code            string           `json:"code"`
	DiscountType    enums.CouponType `json:"discountType"`
	DiscountValue   decimal.Decimal  `json:"discountValue"`
	MaximumDiscount *decimal.Decimal `json:"maximumDiscount,omitempty"`
	DiscountAmount  decimal.Decimal  `json:"discountAmount"`
}

// Value stores the snapshot as a JSON document.
func (c AppliedCoupon) Value() (driver.Value, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("applied coupon: %w", err)
	}
	return string(raw), nil
}

// Scan reads the JSON document written by Value.
func (c *AppliedCoupon) Scan(value interface{}) error {
	if value == nil {
		*c = AppliedCoupon{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("applied coupon: unsupported scan type %T", value)
	}
	return json.Unmarshal(raw, c)
}
