package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/checkout-core/internal/model"
)

var hundred = decimal.NewFromInt(100)

// CheckUsable reports why a coupon cannot be used at now for orderAmount.
// Expiry is checked first so an expired coupon always reports ErrCouponExpired.
func CheckUsable(c *model.Coupon, orderAmount decimal.Decimal, now time.Time) error {
	switch {
	case now.After(c.ValidUntil):
		return ErrCouponExpired
	case !c.IsActive:
		return ErrCouponInactive
	case now.Before(c.ValidFrom):
		return ErrCouponNotYetValid
	case c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit:
		return ErrCouponLimitReached
	case c.MinOrderAmount != nil && orderAmount.LessThan(*c.MinOrderAmount):
		return &MinimumNotMetError{Minimum: *c.MinOrderAmount}
	}
	return nil
}

// ComputeDiscount prices a coupon against an order amount.
// Both amounts are rounded to 2 places, half away from zero.
func ComputeDiscount(c *model.Coupon, orderAmount decimal.Decimal) (discount, final decimal.Decimal) {
	switch c.DiscountType {
	case model.DiscountPercentage:
		discount = orderAmount.Mul(c.DiscountValue).Div(hundred)
		if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
			discount = *c.MaxDiscount
		}
	default:
		discount = decimal.Min(c.DiscountValue, orderAmount)
	}

	discount = discount.Round(2)
	final = orderAmount.Sub(discount).Round(2)
	return discount, final
}

// Price validates a coupon and, when usable, returns its quote.
func Price(c *model.Coupon, orderAmount decimal.Decimal, now time.Time) (*model.Quote, error) {
	if err := CheckUsable(c, orderAmount, now); err != nil {
		return nil, err
	}

	discount, final := ComputeDiscount(c, orderAmount)
	return &model.Quote{
		Code:           c.Code,
		DiscountType:   c.DiscountType,
		DiscountValue:  c.DiscountValue,
		OrderAmount:    orderAmount,
		DiscountAmount: discount,
		FinalAmount:    final,
	}, nil
}
