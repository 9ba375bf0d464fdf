package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/checkout-core/internal/gateway"
	"github.com/fairyhunter13/checkout-core/internal/model"
	"github.com/fairyhunter13/checkout-core/internal/service"
)

// PaymentServiceInterface defines the interface for payment orchestration.
type PaymentServiceInterface interface {
	Initiate(ctx context.Context, in service.InitiateInput) (*model.InitiatePaymentResult, error)
	HandleCallback(ctx context.Context, orderID string, payload []byte) (*model.CallbackResult, error)
	GetStatus(ctx context.Context, paymentID string) (*model.Payment, error)
}

// PaymentHandler handles HTTP requests for payment operations.
type PaymentHandler struct {
	service   PaymentServiceInterface
	validator *validator.Validate
}

// NewPaymentHandler creates a new PaymentHandler with the given service and validator.
func NewPaymentHandler(svc PaymentServiceInterface, v *validator.Validate) *PaymentHandler {
	return &PaymentHandler{service: svc, validator: v}
}

// InitiatePayment handles POST /api/payment/initiate.
func (h *PaymentHandler) InitiatePayment(c *fiber.Ctx) error {
	var req model.InitiatePaymentRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": formatValidationError(err)})
	}

	result, err := h.service.Initiate(c.Context(), service.InitiateInput{
		OrderID: req.OrderID,
		Amount:  decimal.NewFromFloat(*req.Amount),
		Method:  model.PaymentMethod(req.PaymentMethod),
		Customer: model.Customer{
			Name:  req.CustomerName,
			Phone: req.CustomerPhone,
			Email: req.CustomerEmail,
		},
	})
	if err != nil {
		return h.initiateError(c, &req, result, err)
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("payment_id", result.PaymentID).
		Str("order_id", req.OrderID).
		Str("payment_method", req.PaymentMethod).
		Msg("payment session created")

	return c.JSON(fiber.Map{
		"success":     true,
		"payment_id":  result.PaymentID,
		"payment_url": result.RedirectURL,
	})
}

func (h *PaymentHandler) initiateError(c *fiber.Ctx, req *model.InitiatePaymentRequest, result *model.InitiatePaymentResult, err error) error {
	body := fiber.Map{"success": false}
	if result != nil && result.PaymentID != "" {
		body["payment_id"] = result.PaymentID
	}

	switch {
	case errors.Is(err, service.ErrInvalidMethod):
		body["error"] = "invalid payment method"
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.Is(err, service.ErrInvalidRequest):
		body["error"] = "invalid request"
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.Is(err, service.ErrOrderNotFound):
		body["error"] = "order not found"
		return c.Status(fiber.StatusNotFound).JSON(body)
	case errors.Is(err, service.ErrOrderAlreadyPaid):
		body["error"] = "order already paid"
		return c.Status(fiber.StatusConflict).JSON(body)
	case errors.Is(err, service.ErrAmountMismatch):
		body["error"] = "amount does not match order total"
		return c.Status(fiber.StatusConflict).JSON(body)
	case errors.Is(err, service.ErrGateway):
		evt := log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("order_id", req.OrderID).
			Str("payment_method", req.PaymentMethod)
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			evt = evt.Str("gateway_op", gwErr.Op).Int("gateway_status", gwErr.StatusCode)
		}
		evt.Msg("payment gateway rejected initiation")
		// Gateway detail stays in the logs.
		body["error"] = "payment gateway error"
		return c.Status(fiber.StatusBadGateway).JSON(body)
	}

	log.Error().
		Err(err).
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("order_id", req.OrderID).
		Msg("failed to initiate payment")
	body["error"] = "internal server error"
	return c.Status(fiber.StatusInternalServerError).JSON(body)
}

// PaymentCallback handles POST /api/payment/callback/:order_id. The raw body
// is handed to the gateway adapter that created the payment.
func (h *PaymentHandler) PaymentCallback(c *fiber.Ctx) error {
	orderID := c.Params("order_id")
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request: order_id is required"})
	}

	// fiber reuses the request buffer once the handler returns
	payload := append([]byte(nil), c.Body()...)
	if len(payload) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request body"})
	}

	result, err := h.service.HandleCallback(c.Context(), orderID, payload)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "payment not found"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("order_id", orderID).
			Msg("failed to process payment callback")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("order_id", orderID).
		Bool("success", result.Success).
		Msg("payment callback processed")

	return c.JSON(result)
}

// PaymentStatus handles GET /api/payment/status/:payment_id.
func (h *PaymentHandler) PaymentStatus(c *fiber.Ctx) error {
	paymentID := c.Params("payment_id")

	payment, err := h.service.GetStatus(c.Context(), paymentID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "payment not found"})
		}
		log.Error().Err(err).Str("payment_id", paymentID).Msg("failed to get payment status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "internal server error"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"payment": model.NewPaymentResponse(payment),
	})
}
