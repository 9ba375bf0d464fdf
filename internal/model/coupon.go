package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType is the kind of discount a coupon grants.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon represents a coupon in the system
type Coupon struct {
	Code           string
	Description    *string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount *decimal.Decimal
	MaxDiscount    *decimal.Decimal
	UsageLimit     *int
	UsedCount      int
	ValidFrom      time.Time
	ValidUntil     time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CouponResponse is the API response DTO for coupon administration endpoints
type CouponResponse struct {
	Code           string    `json:"code"`
	Description    *string   `json:"description"`
	DiscountType   string    `json:"discount_type"`
	DiscountValue  float64   `json:"discount_value"`
	MinOrderAmount *float64  `json:"min_order_amount"`
	MaxDiscount    *float64  `json:"max_discount"`
	UsageLimit     *int      `json:"usage_limit"`
	UsedCount      int       `json:"used_count"`
	ValidFrom      time.Time `json:"valid_from"`
	ValidUntil     time.Time `json:"valid_until"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	RedeemedOrders []string  `json:"redeemed_orders,omitempty"`
}

// NewCouponResponse converts a Coupon into its API representation.
func NewCouponResponse(c *Coupon) *CouponResponse {
	return &CouponResponse{
		Code:           c.Code,
		Description:    c.Description,
		DiscountType:   string(c.DiscountType),
		DiscountValue:  c.DiscountValue.InexactFloat64(),
		MinOrderAmount: decimalToFloatPtr(c.MinOrderAmount),
		MaxDiscount:    decimalToFloatPtr(c.MaxDiscount),
		UsageLimit:     c.UsageLimit,
		UsedCount:      c.UsedCount,
		ValidFrom:      c.ValidFrom,
		ValidUntil:     c.ValidUntil,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// CouponRequest is the DTO for creating or replacing a coupon
type CouponRequest struct {
	Code           string    `json:"code" validate:"required,notblank,max=64"`
	Description    *string   `json:"description" validate:"omitempty,max=500"`
	DiscountType   string    `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue  *float64  `json:"discount_value" validate:"required,gt=0,money"`
	MinOrderAmount *float64  `json:"min_order_amount" validate:"omitempty,gte=0,money"`
	MaxDiscount    *float64  `json:"max_discount" validate:"omitempty,gt=0,money"`
	UsageLimit     *int      `json:"usage_limit" validate:"omitempty,gte=1"`
	ValidFrom      time.Time `json:"valid_from" validate:"required"`
	ValidUntil     time.Time `json:"valid_until" validate:"required,gtfield=ValidFrom"`
	IsActive       *bool     `json:"is_active"`
}

// ValidateCouponRequest is the DTO for POST /api/coupons/validate
type ValidateCouponRequest struct {
	Code        string   `json:"code" validate:"required,notblank,max=64"`
	OrderAmount *float64 `json:"order_amount" validate:"required,gt=0,money"`
}

// RedeemCouponRequest is the DTO for POST /api/coupons/redeem
type RedeemCouponRequest struct {
	Code    string `json:"code" validate:"required,notblank,max=64"`
	OrderID string `json:"order_id" validate:"required,notblank,max=100"`
}

// Quote is the priced outcome of validating a coupon against an order amount.
type Quote struct {
	Code           string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	OrderAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
}

// QuoteResponse is the API response DTO for a successful coupon validation
type QuoteResponse struct {
	Valid          bool    `json:"valid"`
	Code           string  `json:"code"`
	DiscountType   string  `json:"discount_type"`
	DiscountValue  float64 `json:"discount_value"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
	Message        string  `json:"message"`
}

func decimalToFloatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}
