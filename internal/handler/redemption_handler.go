package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/checkout-core/internal/model"
	"github.com/fairyhunter13/checkout-core/internal/service"
)

// RedemptionServiceInterface defines the checkout-facing coupon operations.
type RedemptionServiceInterface interface {
	Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*model.Quote, error)
	Redeem(ctx context.Context, code, orderID string) error
}

// RedemptionHandler handles coupon validation and redemption at checkout.
type RedemptionHandler struct {
	service   RedemptionServiceInterface
	validator *validator.Validate
}

// NewRedemptionHandler creates a new RedemptionHandler with the given service and validator.
func NewRedemptionHandler(svc RedemptionServiceInterface, v *validator.Validate) *RedemptionHandler {
	return &RedemptionHandler{service: svc, validator: v}
}

// couponErrorStatus maps coupon rejections to a status code and client message.
// ok is false for errors that are not a known rejection.
func couponErrorStatus(err error) (status int, msg string, ok bool) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		return fiber.StatusNotFound, "Invalid coupon code", true
	case errors.Is(err, service.ErrCouponInactive):
		return fiber.StatusBadRequest, "This coupon is not active", true
	case errors.Is(err, service.ErrCouponNotYetValid):
		return fiber.StatusBadRequest, "This coupon is not yet valid", true
	case errors.Is(err, service.ErrCouponExpired):
		return fiber.StatusBadRequest, "This coupon has expired", true
	case errors.Is(err, service.ErrCouponLimitReached):
		return fiber.StatusBadRequest, "This coupon has reached its usage limit", true
	case errors.Is(err, service.ErrMinimumNotMet):
		var minErr *service.MinimumNotMetError
		if errors.As(err, &minErr) {
			return fiber.StatusBadRequest, "Minimum order amount of ৳" + minErr.Minimum.StringFixed(2) + " is required for this coupon", true
		}
		return fiber.StatusBadRequest, "Minimum order amount is required for this coupon", true
	case errors.Is(err, service.ErrInvalidRequest):
		return fiber.StatusBadRequest, "invalid request", true
	}
	return 0, "", false
}

// ValidateCoupon handles POST /api/coupons/validate. It prices the coupon
// against the order amount without consuming a use.
func (h *RedemptionHandler) ValidateCoupon(c *fiber.Ctx) error {
	var req model.ValidateCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"valid": false, "error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"valid": false, "error": formatValidationError(err)})
	}

	quote, err := h.service.Validate(c.Context(), req.Code, decimal.NewFromFloat(*req.OrderAmount))
	if err != nil {
		if status, msg, ok := couponErrorStatus(err); ok {
			return c.Status(status).JSON(fiber.Map{"valid": false, "error": msg})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("coupon_code", req.Code).
			Msg("failed to validate coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"valid": false, "error": "internal server error"})
	}

	return c.JSON(model.QuoteResponse{
		Valid:          true,
		Code:           quote.Code,
		DiscountType:   string(quote.DiscountType),
		DiscountValue:  quote.DiscountValue.InexactFloat64(),
		DiscountAmount: quote.DiscountAmount.InexactFloat64(),
		FinalAmount:    quote.FinalAmount.InexactFloat64(),
		Message:        "Coupon applied successfully! You saved ৳" + quote.DiscountAmount.StringFixed(2),
	})
}

// RedeemCoupon handles POST /api/coupons/redeem requests to consume one use
// of a coupon for an order. Redeeming the same order twice succeeds once.
func (h *RedemptionHandler) RedeemCoupon(c *fiber.Ctx) error {
	var req model.RedeemCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.Redeem(c.Context(), req.Code, req.OrderID); err != nil {
		if errors.Is(err, service.ErrCouponLimitReached) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "coupon usage limit reached"})
		}
		if errors.Is(err, service.ErrOrderRedeemedOther) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "order already redeemed a different coupon"})
		}
		if status, msg, ok := couponErrorStatus(err); ok {
			return c.Status(status).JSON(fiber.Map{"error": msg})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("order_id", req.OrderID).
			Str("coupon_code", req.Code).
			Msg("failed to redeem coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("order_id", req.OrderID).
		Str("coupon_code", req.Code).
		Msg("coupon redeemed successfully")

	return c.JSON(fiber.Map{"success": true, "code": service.NormalizeCode(req.Code), "order_id": req.OrderID})
}
