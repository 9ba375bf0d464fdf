package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/checkout-core/internal/config"
	"github.com/fairyhunter13/checkout-core/internal/model"
)

const nagadSuccessStatus = "Success"

type nagadCreateResponse struct {
	PaymentRef  string `json:"paymentRef"`
	RedirectURL string `json:"redirectUrl"`
}

// NagadVerification is the body returned by the verify endpoint.
type NagadVerification struct {
	Status             string `json:"status"`
	IssuerPaymentRefNo string `json:"issuerPaymentRefNo"`
	PaymentRef         string `json:"paymentRef"`
	OrderID            string `json:"orderId"`
}

type nagadCallback struct {
	PaymentRef string `json:"payment_ref"`
	Status     string `json:"status"`
}

// Nagad is the signature-based adapter.
type Nagad struct {
	cfg    config.NagadConfig
	key    []byte
	client *apiClient
	now    func() time.Time
}

// NewNagad creates a Nagad adapter. The merchant private key must be base64.
func NewNagad(cfg config.NagadConfig, client *http.Client) (*Nagad, error) {
	key, err := base64.StdEncoding.DecodeString(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode nagad private key: %w", err)
	}
	return &Nagad{
		cfg:    cfg,
		key:    key,
		client: newAPIClient(model.MethodNagad, client),
		now:    time.Now,
	}, nil
}

// Method implements Gateway.
func (n *Nagad) Method() model.PaymentMethod { return model.MethodNagad }

// Sign returns the hex HMAC-SHA256 of the fields serialized as compact JSON
// with keys in lexical order.
func (n *Nagad) Sign(fields map[string]string) (string, error) {
	// encoding/json writes map keys sorted, which gives the canonical form.
	canonical, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("canonicalize nagad fields: %w", err)
	}
	mac := hmac.New(sha256.New, n.key)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// CreatePayment implements Gateway.
func (n *Nagad) CreatePayment(ctx context.Context, req PaymentRequest) (*Session, error) {
	fields := map[string]string{
		"merchantId":     n.cfg.MerchantID,
		"orderId":        req.OrderID,
		"amount":         formatAmount(req.Amount),
		"currency":       "BDT",
		"challenge":      uuid.NewString(),
		"timestamp":      n.now().UTC().Format(time.RFC3339),
		"redirectUrl":    callbackURL(n.cfg.CallbackURL, req.OrderID),
		"customerMobile": req.Customer.Phone,
	}
	signature, err := n.Sign(fields)
	if err != nil {
		return nil, err
	}
	fields["signature"] = signature

	var resp nagadCreateResponse
	_, err = n.client.do(ctx, apiCall{
		op:     "create payment",
		method: http.MethodPost,
		url:    n.cfg.BaseURL + "/payment/create",
		body:   fields,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.PaymentRef == "" {
		return nil, n.client.malformed("create payment", "paymentRef")
	}
	if resp.RedirectURL == "" {
		return nil, n.client.malformed("create payment", "redirectUrl")
	}
	return &Session{Reference: resp.PaymentRef, RedirectURL: resp.RedirectURL}, nil
}

// Verify queries the provider for the state of a payment reference.
func (n *Nagad) Verify(ctx context.Context, paymentRef string) (*NagadVerification, json.RawMessage, error) {
	var resp NagadVerification
	raw, err := n.client.do(ctx, apiCall{
		op:     "verify payment",
		method: http.MethodGet,
		url:    n.cfg.BaseURL + "/payment/verify/" + url.PathEscape(paymentRef),
		query:  url.Values{"merchantId": {n.cfg.MerchantID}},
		retry:  true,
	}, &resp)
	if err != nil {
		return nil, raw, err
	}
	return &resp, raw, nil
}

// ParseCallback implements Gateway.
func (n *Nagad) ParseCallback(payload []byte) (*Callback, error) {
	var cb nagadCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("parse nagad callback: %w", err)
	}
	return &Callback{
		Success:   cb.Status == nagadSuccessStatus,
		Reference: cb.PaymentRef,
		Raw:       payload,
	}, nil
}

// Confirm implements Gateway with a server-side verification.
func (n *Nagad) Confirm(ctx context.Context, cb *Callback) (*Result, error) {
	if cb.Reference == "" {
		return nil, fmt.Errorf("nagad callback: missing payment_ref")
	}
	v, raw, err := n.Verify(ctx, cb.Reference)
	if err != nil {
		return nil, err
	}
	return &Result{
		Success:       v.Status == nagadSuccessStatus,
		TransactionID: v.IssuerPaymentRefNo,
		Raw:           raw,
	}, nil
}
