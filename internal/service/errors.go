package service

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrCouponExists is returned when attempting to create a coupon that already exists
	ErrCouponExists = errors.New("coupon already exists")

	// ErrCouponNotFound is returned when a coupon cannot be found
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrCouponInactive is returned when the coupon has been deactivated
	ErrCouponInactive = errors.New("coupon is not active")

	// ErrCouponNotYetValid is returned before the coupon's validity window opens
	ErrCouponNotYetValid = errors.New("coupon is not yet valid")

	// ErrCouponExpired is returned after the coupon's validity window closes
	ErrCouponExpired = errors.New("coupon has expired")

	// ErrCouponLimitReached is returned when the coupon's usage limit is exhausted
	ErrCouponLimitReached = errors.New("coupon has reached its usage limit")

	// ErrOrderRedeemedOther is returned when the order already redeemed a different coupon
	ErrOrderRedeemedOther = errors.New("order already redeemed a different coupon")

	// ErrMinimumNotMet is returned when the order amount is below the coupon minimum
	ErrMinimumNotMet = errors.New("minimum order amount not met")

	// ErrInvalidMethod is returned for a payment method no gateway serves
	ErrInvalidMethod = errors.New("invalid payment method")

	// ErrGateway is returned when a payment gateway call fails
	ErrGateway = errors.New("payment gateway error")

	// ErrPaymentNotFound is returned when no payment record matches
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrOrderNotFound is returned when the referenced order does not exist
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderAlreadyPaid is returned when initiating payment for a paid order
	ErrOrderAlreadyPaid = errors.New("order already paid")

	// ErrAmountMismatch is returned when the payment amount differs from the order total
	ErrAmountMismatch = errors.New("amount does not match order total")
)

// MinimumNotMetError carries the coupon minimum that the order amount missed.
// It matches ErrMinimumNotMet with errors.Is.
type MinimumNotMetError struct {
	Minimum decimal.Decimal
}

func (e *MinimumNotMetError) Error() string {
	return ErrMinimumNotMet.Error() + ": " + e.Minimum.StringFixed(2)
}

func (e *MinimumNotMetError) Unwrap() error { return ErrMinimumNotMet }
