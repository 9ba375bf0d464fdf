package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fairyhunter13/checkout-core/internal/config"
	"github.com/fairyhunter13/checkout-core/internal/model"
)

const (
	bkashSuccessCode = "0000"
	// tokenExpirySkew renews the grant token slightly before the provider expires it.
	tokenExpirySkew = 30 * time.Second
)

type bkashTokenResponse struct {
	IDToken       string `json:"id_token"`
	ExpiresIn     int64  `json:"expires_in"`
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
}

type bkashCreateResponse struct {
	PaymentID     string `json:"paymentID"`
	BkashURL      string `json:"bkashURL"`
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
}

// BkashStatus is the body returned by execute and status queries.
type BkashStatus struct {
	PaymentID         string `json:"paymentID"`
	TrxID             string `json:"trxID"`
	TransactionStatus string `json:"transactionStatus"`
	StatusCode        string `json:"statusCode"`
	StatusMessage     string `json:"statusMessage"`
}

type bkashCallback struct {
	PaymentID string `json:"paymentID"`
	Status    string `json:"status"`
}

// Bkash is the token-based tokenized checkout adapter.
type Bkash struct {
	cfg    config.BkashConfig
	client *apiClient
	now    func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	refresh     singleflight.Group
}

// NewBkash creates a bKash adapter. A nil client uses a default bounded client.
func NewBkash(cfg config.BkashConfig, client *http.Client) *Bkash {
	return &Bkash{
		cfg:    cfg,
		client: newAPIClient(model.MethodBkash, client),
		now:    time.Now,
	}
}

// Method implements Gateway.
func (b *Bkash) Method() model.PaymentMethod { return model.MethodBkash }

// Token returns a cached grant token, fetching a new one when it has expired.
// Concurrent callers share a single in-flight grant request.
func (b *Bkash) Token(ctx context.Context) (string, error) {
	if token, ok := b.cachedToken(); ok {
		return token, nil
	}

	v, err, _ := b.refresh.Do("token", func() (any, error) {
		// A flight that finished just before this one may have renewed it.
		if token, ok := b.cachedToken(); ok {
			return token, nil
		}
		return b.grantToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (b *Bkash) cachedToken() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.token != "" && b.now().Before(b.tokenExpiry) {
		return b.token, true
	}
	return "", false
}

func (b *Bkash) grantToken(ctx context.Context) (string, error) {
	var resp bkashTokenResponse
	_, err := b.client.do(ctx, apiCall{
		op:     "token grant",
		method: http.MethodPost,
		url:    b.cfg.BaseURL + "/tokenized/checkout/token/grant",
		headers: map[string]string{
			"username": b.cfg.Username,
			"password": b.cfg.Password,
		},
		body: map[string]string{
			"app_key":    b.cfg.AppKey,
			"app_secret": b.cfg.AppSecret,
		},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.IDToken == "" {
		return "", b.client.malformed("token grant", "id_token")
	}

	expiry := b.now().Add(tokenLifetime(time.Duration(resp.ExpiresIn) * time.Second))
	b.mu.Lock()
	b.token = resp.IDToken
	b.tokenExpiry = expiry
	b.mu.Unlock()
	return resp.IDToken, nil
}

// tokenLifetime is how long a grant stays cached. The renewal skew is at most
// half of the granted lifetime, so short-lived tokens are still reused.
func tokenLifetime(expiresIn time.Duration) time.Duration {
	skew := tokenExpirySkew
	if half := expiresIn / 2; half < skew {
		skew = half
	}
	return expiresIn - skew
}

func (b *Bkash) authHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + token,
		"X-APP-Key":     b.cfg.AppKey,
	}
}

// CreatePayment implements Gateway.
func (b *Bkash) CreatePayment(ctx context.Context, req PaymentRequest) (*Session, error) {
	token, err := b.Token(ctx)
	if err != nil {
		return nil, err
	}

	var resp bkashCreateResponse
	_, err = b.client.do(ctx, apiCall{
		op:      "create payment",
		method:  http.MethodPost,
		url:     b.cfg.BaseURL + "/tokenized/checkout/create",
		headers: b.authHeaders(token),
		body: map[string]string{
			"mode":                  "0011",
			"payerReference":        req.Customer.Phone,
			"callbackURL":           callbackURL(b.cfg.CallbackURL, req.OrderID),
			"amount":                formatAmount(req.Amount),
			"currency":              "BDT",
			"intent":                "sale",
			"merchantInvoiceNumber": req.OrderID,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.PaymentID == "" {
		return nil, b.client.malformed("create payment", "paymentID")
	}
	if resp.BkashURL == "" {
		return nil, b.client.malformed("create payment", "bkashURL")
	}
	return &Session{Reference: resp.PaymentID, RedirectURL: resp.BkashURL}, nil
}

// Execute finalizes a payment the customer approved. It is never retried.
func (b *Bkash) Execute(ctx context.Context, paymentID string) (*BkashStatus, json.RawMessage, error) {
	token, err := b.Token(ctx)
	if err != nil {
		return nil, nil, err
	}

	var resp BkashStatus
	raw, err := b.client.do(ctx, apiCall{
		op:      "execute payment",
		method:  http.MethodPost,
		url:     b.cfg.BaseURL + "/tokenized/checkout/execute",
		headers: b.authHeaders(token),
		body:    map[string]string{"paymentID": paymentID},
	}, &resp)
	if err != nil {
		return nil, raw, err
	}
	return &resp, raw, nil
}

// Query fetches the current status of a payment.
func (b *Bkash) Query(ctx context.Context, paymentID string) (*BkashStatus, error) {
	token, err := b.Token(ctx)
	if err != nil {
		return nil, err
	}

	var resp BkashStatus
	_, err = b.client.do(ctx, apiCall{
		op:      "query payment",
		method:  http.MethodGet,
		url:     b.cfg.BaseURL + "/tokenized/checkout/payment/status",
		query:   url.Values{"paymentID": {paymentID}},
		headers: b.authHeaders(token),
		retry:   true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ParseCallback implements Gateway.
func (b *Bkash) ParseCallback(payload []byte) (*Callback, error) {
	var cb bkashCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("parse bkash callback: %w", err)
	}
	return &Callback{
		Success:   cb.Status == "success",
		Reference: cb.PaymentID,
		Raw:       payload,
	}, nil
}

// Confirm implements Gateway by executing the approved payment.
func (b *Bkash) Confirm(ctx context.Context, cb *Callback) (*Result, error) {
	if cb.Reference == "" {
		return nil, fmt.Errorf("bkash callback: missing paymentID")
	}
	status, raw, err := b.Execute(ctx, cb.Reference)
	if err != nil {
		return nil, err
	}
	return &Result{
		Success:       status.StatusCode == bkashSuccessCode && status.TrxID != "",
		TransactionID: status.TrxID,
		Raw:           raw,
	}, nil
}
