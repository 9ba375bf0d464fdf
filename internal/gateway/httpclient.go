package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/checkout-core/internal/model"
)

// maxResponseBytes bounds how much of a provider body is read.
const maxResponseBytes = 1 << 20

var errUnexpectedStatus = errors.New("unexpected status")

// apiCall is one outbound provider request.
type apiCall struct {
	op      string
	method  string
	url     string
	query   url.Values
	headers map[string]string
	body    any
	// retry allows a single repeat; only for status queries that create no remote state.
	retry bool
}

// apiClient performs JSON calls against one provider.
type apiClient struct {
	gateway model.PaymentMethod
	http    *http.Client
}

// NewHTTPClient returns the client shared by adapters, bounded by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func newAPIClient(gateway model.PaymentMethod, client *http.Client) *apiClient {
	if client == nil {
		client = NewHTTPClient(10 * time.Second)
	}
	return &apiClient{gateway: gateway, http: client}
}

// do sends the call and decodes a 2xx JSON body into out.
// It returns the raw body alongside so adapters can keep it for audit.
func (c *apiClient) do(ctx context.Context, call apiCall, out any) (json.RawMessage, error) {
	var payload []byte
	if call.body != nil {
		var err error
		payload, err = json.Marshal(call.body)
		if err != nil {
			return nil, c.fail(call.op, 0, fmt.Errorf("marshal request: %w", err))
		}
	}

	attempts := 1
	if call.retry {
		attempts = 2
	}

	var (
		raw    json.RawMessage
		status int
		err    error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, status, err = c.send(ctx, call, payload)
		if err == nil && status < http.StatusInternalServerError {
			break
		}
		if attempt == attempts || ctx.Err() != nil {
			break
		}
		log.Warn().
			Err(err).
			Str("gateway", string(c.gateway)).
			Str("op", call.op).
			Int("status", status).
			Msg("gateway call failed, retrying once")
	}
	if err != nil {
		return nil, c.fail(call.op, 0, err)
	}
	if status < 200 || status > 299 {
		return raw, c.fail(call.op, status, errUnexpectedStatus)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, c.fail(call.op, status, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
		}
	}
	return raw, nil
}

func (c *apiClient) send(ctx context.Context, call apiCall, payload []byte) (json.RawMessage, int, error) {
	target := call.url
	if len(call.query) > 0 {
		target += "?" + call.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, call.method, target, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range call.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func (c *apiClient) fail(op string, status int, err error) error {
	return &Error{Gateway: c.gateway, Op: op, StatusCode: status, Err: err}
}

// malformed reports a 2xx body that lacks a required field.
func (c *apiClient) malformed(op, field string) error {
	return c.fail(op, 0, fmt.Errorf("%w: missing %s", ErrMalformedResponse, field))
}
