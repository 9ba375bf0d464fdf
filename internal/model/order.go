package model

import "github.com/shopspring/decimal"

// OrderPaymentStatus is the denormalized payment state kept on an order.
type OrderPaymentStatus string

const (
	OrderPaymentPending OrderPaymentStatus = "pending"
	OrderPaymentPaid    OrderPaymentStatus = "paid"
	OrderPaymentFailed  OrderPaymentStatus = "failed"
)

// Order is the subset of an order the checkout core reads and updates.
type Order struct {
	OrderID       string
	TotalAmount   decimal.Decimal
	PaymentMethod string
	PaymentStatus OrderPaymentStatus
}
