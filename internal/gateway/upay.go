package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fairyhunter13/checkout-core/internal/config"
	"github.com/fairyhunter13/checkout-core/internal/model"
)

const upaySuccessStatus = "SUCCESS"

type upayInitResponse struct {
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
}

// UpayVerification is the body returned by the verify endpoint.
type UpayVerification struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

type upayCallback struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// Upay is the hash-based adapter.
type Upay struct {
	cfg    config.UpayConfig
	client *apiClient
	now    func() time.Time
}

// NewUpay creates a Upay adapter.
func NewUpay(cfg config.UpayConfig, client *http.Client) *Upay {
	return &Upay{
		cfg:    cfg,
		client: newAPIClient(model.MethodUpay, client),
		now:    time.Now,
	}
}

// Method implements Gateway.
func (u *Upay) Method() model.PaymentMethod { return model.MethodUpay }

// Hash returns sha256 hex of the concatenated parts followed by the merchant key.
func (u *Upay) Hash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	h.Write([]byte(u.cfg.MerchantKey))
	return hex.EncodeToString(h.Sum(nil))
}

// CreatePayment implements Gateway.
func (u *Upay) CreatePayment(ctx context.Context, req PaymentRequest) (*Session, error) {
	amount := formatAmount(req.Amount)
	body := map[string]any{
		"merchant_id":    u.cfg.MerchantID,
		"order_id":       req.OrderID,
		"amount":         amount,
		"currency":       "BDT",
		"customer_name":  req.Customer.Name,
		"customer_email": req.Customer.Email,
		"customer_phone": req.Customer.Phone,
		"redirect_url":   callbackURL(u.cfg.CallbackURL, req.OrderID),
		"cancel_url":     callbackURL(u.cfg.CallbackURL, req.OrderID) + "/cancel",
		"timestamp":      u.now().Unix(),
		"hash":           u.Hash(u.cfg.MerchantID, req.OrderID, amount),
	}

	var resp upayInitResponse
	_, err := u.client.do(ctx, apiCall{
		op:     "create payment",
		method: http.MethodPost,
		url:    u.cfg.BaseURL + "/payment/init",
		body:   body,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.TransactionID == "" {
		return nil, u.client.malformed("create payment", "transaction_id")
	}
	if resp.PaymentURL == "" {
		return nil, u.client.malformed("create payment", "payment_url")
	}
	return &Session{Reference: resp.TransactionID, RedirectURL: resp.PaymentURL}, nil
}

// Verify asks the provider for the state of a transaction. It is a status
// query and creates no remote state, so it may be retried.
func (u *Upay) Verify(ctx context.Context, transactionID string) (*UpayVerification, json.RawMessage, error) {
	var resp UpayVerification
	raw, err := u.client.do(ctx, apiCall{
		op:     "verify payment",
		method: http.MethodPost,
		url:    u.cfg.BaseURL + "/payment/verify",
		body: map[string]string{
			"merchant_id":    u.cfg.MerchantID,
			"transaction_id": transactionID,
			"hash":           u.Hash(u.cfg.MerchantID, transactionID),
		},
		retry: true,
	}, &resp)
	if err != nil {
		return nil, raw, err
	}
	return &resp, raw, nil
}

// ParseCallback implements Gateway.
func (u *Upay) ParseCallback(payload []byte) (*Callback, error) {
	var cb upayCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("parse upay callback: %w", err)
	}
	return &Callback{
		Success:   cb.Status == upaySuccessStatus,
		Reference: cb.TransactionID,
		Raw:       payload,
	}, nil
}

// Confirm implements Gateway with a server-side verification.
func (u *Upay) Confirm(ctx context.Context, cb *Callback) (*Result, error) {
	if cb.Reference == "" {
		return nil, fmt.Errorf("upay callback: missing transaction_id")
	}
	v, raw, err := u.Verify(ctx, cb.Reference)
	if err != nil {
		return nil, err
	}
	return &Result{
		Success:       v.Status == upaySuccessStatus,
		TransactionID: v.TransactionID,
		Raw:           raw,
	}, nil
}
