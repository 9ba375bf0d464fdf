package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod identifies the gateway a payment is routed through.
type PaymentMethod string

const (
	MethodBkash PaymentMethod = "bkash"
	MethodNagad PaymentMethod = "nagad"
	MethodUpay  PaymentMethod = "upay"
)

// PaymentStatus is the lifecycle state of a payment record.
type PaymentStatus string

const (
	PaymentInitiated PaymentStatus = "initiated"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

// Payment represents a payment attempt against an order
type Payment struct {
	PaymentID            string
	OrderID              string
	Amount               decimal.Decimal
	Method               PaymentMethod
	CustomerName         string
	CustomerPhone        string
	CustomerEmail        string
	Status               PaymentStatus
	GatewayPaymentID     *string
	GatewayPaymentRef    *string
	GatewayTransactionID *string
	PaymentURL           *string
	TransactionID        *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CompletedAt          *time.Time
	FailedAt             *time.Time
}

// PaymentResponse is the API response DTO for GET /api/payment/status/:payment_id
type PaymentResponse struct {
	PaymentID            string     `json:"payment_id"`
	OrderID              string     `json:"order_id"`
	Amount               float64    `json:"amount"`
	PaymentMethod        string     `json:"payment_method"`
	CustomerName         string     `json:"customer_name"`
	CustomerPhone        string     `json:"customer_phone"`
	CustomerEmail        string     `json:"customer_email"`
	Status               string     `json:"status"`
	GatewayPaymentID     *string    `json:"gateway_payment_id,omitempty"`
	GatewayPaymentRef    *string    `json:"gateway_payment_ref,omitempty"`
	GatewayTransactionID *string    `json:"gateway_transaction_id,omitempty"`
	PaymentURL           *string    `json:"payment_url,omitempty"`
	TransactionID        *string    `json:"transaction_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	FailedAt             *time.Time `json:"failed_at,omitempty"`
}

// NewPaymentResponse converts a Payment into its API representation.
func NewPaymentResponse(p *Payment) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:            p.PaymentID,
		OrderID:              p.OrderID,
		Amount:               p.Amount.InexactFloat64(),
		PaymentMethod:        string(p.Method),
		CustomerName:         p.CustomerName,
		CustomerPhone:        p.CustomerPhone,
		CustomerEmail:        p.CustomerEmail,
		Status:               string(p.Status),
		GatewayPaymentID:     p.GatewayPaymentID,
		GatewayPaymentRef:    p.GatewayPaymentRef,
		GatewayTransactionID: p.GatewayTransactionID,
		PaymentURL:           p.PaymentURL,
		TransactionID:        p.TransactionID,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
		CompletedAt:          p.CompletedAt,
		FailedAt:             p.FailedAt,
	}
}

// SetCorrelation stores the gateway-issued reference in the column owned by
// the payment's method. Unknown methods leave every column empty.
func (p *Payment) SetCorrelation(reference string) {
	switch p.Method {
	case MethodBkash:
		p.GatewayPaymentID = &reference
	case MethodNagad:
		p.GatewayPaymentRef = &reference
	case MethodUpay:
		p.GatewayTransactionID = &reference
	}
}

// Correlation returns the gateway-issued reference, or "" when none is stored.
func (p *Payment) Correlation() string {
	var ref *string
	switch p.Method {
	case MethodBkash:
		ref = p.GatewayPaymentID
	case MethodNagad:
		ref = p.GatewayPaymentRef
	case MethodUpay:
		ref = p.GatewayTransactionID
	}
	if ref == nil {
		return ""
	}
	return *ref
}

// Customer holds the contact fields forwarded to gateways.
type Customer struct {
	Name  string
	Phone string
	Email string
}

// InitiatePaymentRequest is the DTO for POST /api/payment/initiate
type InitiatePaymentRequest struct {
	OrderID       string   `json:"order_id" validate:"required,notblank,max=100"`
	Amount        *float64 `json:"amount" validate:"required,gt=0,money"`
	PaymentMethod string   `json:"payment_method" validate:"required,notblank,max=32"`
	CustomerName  string   `json:"customer_name" validate:"required,notblank,max=255"`
	CustomerPhone string   `json:"customer_phone" validate:"required,notblank,max=32"`
	CustomerEmail string   `json:"customer_email" validate:"required,email,max=255"`
}

// InitiatePaymentResult is returned once a remote payment session exists.
type InitiatePaymentResult struct {
	PaymentID   string `json:"payment_id"`
	RedirectURL string `json:"payment_url"`
}

// CallbackResult is the outcome reported back to the gateway or client.
type CallbackResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PurchaseEvent is emitted after a payment completes.
type PurchaseEvent struct {
	OrderID       string          `json:"order_id"`
	PaymentID     string          `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"payment_method"`
	TransactionID string          `json:"transaction_id"`
	CompletedAt   time.Time       `json:"completed_at"`
}
