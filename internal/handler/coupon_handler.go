package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/checkout-core/internal/model"
	"github.com/fairyhunter13/checkout-core/internal/service"
)

// CouponServiceInterface defines the interface for coupon administration.
type CouponServiceInterface interface {
	Create(ctx context.Context, req *model.CouponRequest) (*model.Coupon, error)
	List(ctx context.Context, isActive *bool) ([]*model.Coupon, error)
	GetDetail(ctx context.Context, code string) (*model.CouponResponse, error)
	Update(ctx context.Context, code string, req *model.CouponRequest) (*model.Coupon, error)
	Deactivate(ctx context.Context, code string) error
}

// CouponHandler handles HTTP requests for coupon administration.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// formatValidationError converts the first validator error into a client message.
// Field names are the JSON names registered by internal/validator.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return "invalid request: " + field + " is required"
	case "notblank":
		return "invalid request: " + field + " cannot be whitespace only"
	case "max":
		return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
	case "gt":
		return "invalid request: " + field + " must be greater than " + fe.Param()
	case "gte":
		return "invalid request: " + field + " must be at least " + fe.Param()
	case "money":
		return "invalid request: " + field + " must have at most two decimal places"
	case "oneof":
		return "invalid request: " + field + " must be one of: " + fe.Param()
	case "email":
		return "invalid request: " + field + " must be a valid email address"
	case "gtfield":
		if field == "valid_until" {
			return "invalid request: valid_until must be after valid_from"
		}
		return "invalid request: " + field + " is out of range"
	default:
		return "invalid request: " + field + " is invalid"
	}
}

// CreateCoupon handles POST /api/coupons requests to create a new coupon.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req model.CouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	coupon, err := h.service.Create(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrCouponExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "coupon already exists"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("coupon_code", req.Code).
			Msg("failed to create coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("coupon_code", coupon.Code).
		Str("discount_type", string(coupon.DiscountType)).
		Msg("coupon created")

	return c.Status(fiber.StatusCreated).JSON(model.NewCouponResponse(coupon))
}

// ListCoupons handles GET /api/coupons with an optional ?is_active= filter.
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request: is_active must be true or false",
			})
		}
		isActive = &v
	}

	coupons, err := h.service.List(c.Context(), isActive)
	if err != nil {
		log.Error().Err(err).Str("request_id", c.GetRespHeader("X-Request-ID")).Msg("failed to list coupons")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	resp := make([]*model.CouponResponse, 0, len(coupons))
	for _, coupon := range coupons {
		resp = append(resp, model.NewCouponResponse(coupon))
	}
	return c.JSON(resp)
}

// GetCoupon handles GET /api/coupons/:code requests to retrieve coupon details.
func (h *CouponHandler) GetCoupon(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request: code is required",
		})
	}

	coupon, err := h.service.GetDetail(c.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "coupon not found",
			})
		}
		log.Error().Err(err).Str("coupon_code", code).Msg("failed to get coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	log.Info().
		Str("coupon_code", coupon.Code).
		Int("used_count", coupon.UsedCount).
		Int("redemptions", len(coupon.RedeemedOrders)).
		Msg("coupon retrieved")

	return c.JSON(coupon)
}

// UpdateCoupon handles PUT /api/coupons/:code. The path code wins when the body omits it.
func (h *CouponHandler) UpdateCoupon(c *fiber.Ctx) error {
	code := c.Params("code")
	var req model.CouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Code == "" {
		req.Code = code
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	coupon, err := h.service.Update(c.Context(), code, &req)
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon not found"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: code cannot be changed"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("coupon_code", code).
			Msg("failed to update coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("coupon_code", coupon.Code).
		Msg("coupon updated")

	return c.JSON(model.NewCouponResponse(coupon))
}

// DeleteCoupon handles DELETE /api/coupons/:code by deactivating the coupon.
func (h *CouponHandler) DeleteCoupon(c *fiber.Ctx) error {
	code := c.Params("code")

	if err := h.service.Deactivate(c.Context(), code); err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon not found"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("coupon_code", code).
			Msg("failed to deactivate coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("coupon_code", code).
		Msg("coupon deactivated")

	return c.SendStatus(fiber.StatusNoContent)
}
