// Package gateway implements the payment provider adapters behind a common
// contract. Signing schemes and payload shapes stay inside each adapter.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/checkout-core/internal/model"
)

// ErrUnknownMethod is returned by Registry.Get for a method with no adapter.
var ErrUnknownMethod = errors.New("unknown payment method")

// ErrMalformedResponse is wrapped by Error when a provider body cannot be used.
var ErrMalformedResponse = errors.New("malformed gateway response")

// PaymentRequest carries what every provider needs to open a payment session.
type PaymentRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Customer model.Customer
}

// Session is the remote payment session created by a provider.
type Session struct {
	Reference   string
	RedirectURL string
}

// Callback is a provider notification normalized at the boundary.
type Callback struct {
	Success   bool
	Reference string
	Raw       json.RawMessage
}

// Result is the provider-confirmed outcome of a callback.
type Result struct {
	Success       bool
	TransactionID string
	Raw           json.RawMessage
}

// Gateway is implemented by each payment provider adapter.
type Gateway interface {
	Method() model.PaymentMethod
	CreatePayment(ctx context.Context, req PaymentRequest) (*Session, error)
	ParseCallback(payload []byte) (*Callback, error)
	Confirm(ctx context.Context, cb *Callback) (*Result, error)
}

// Error describes a failed provider call without exposing credentials or URLs.
type Error struct {
	Gateway    model.PaymentMethod
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Gateway, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Gateway, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Registry dispatches to the adapter registered for a method.
type Registry struct {
	gateways map[model.PaymentMethod]Gateway
}

// NewRegistry creates a Registry over the given adapters.
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[model.PaymentMethod]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Method()] = g
	}
	return r
}

// Get returns the adapter for method or ErrUnknownMethod.
func (r *Registry) Get(method model.PaymentMethod) (Gateway, error) {
	g, ok := r.gateways[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	return g, nil
}

// callbackURL builds the per-order return URL registered with a provider.
func callbackURL(base, orderID string) string {
	return base + "/" + orderID
}

// formatAmount renders money the way every provider expects it.
func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
