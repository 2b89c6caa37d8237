// Package paypal is a minimal PayPal Orders v2 client: create an order for
// an amount and capture it once the buyer approved it.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

// StatusCompleted is the capture status of a settled payment.
const StatusCompleted = "COMPLETED"

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Currency     string
	Timeout      time.Duration
}

// CaptureResult is the subset of a capture response the checkout verifies.
type CaptureResult struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Payer         Payer          `json:"payer"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

type PurchaseUnit struct {
	Payments struct {
		Captures []Capture `json:"captures"`
	} `json:"payments"`
}

type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount Amount `json:"amount"`
}

type Payer struct {
	EmailAddress string `json:"email_address"`
}

type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// CapturedAmount returns the value of the first capture, or "".
func (r *CaptureResult) CapturedAmount() string {
	for _, pu := range r.PurchaseUnits {
		if len(pu.Payments.Captures) > 0 {
			return pu.Payments.Captures[0].Amount.Value
		}
	}
	return ""
}

// APIError is a non-2xx response from PayPal.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal: status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func New(cfg Config) *Client {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "paypal",
			MaxRequests: 3,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			// Client errors mean a bad request, not a degraded provider.
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				var apiErr *APIError
				return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
			},
		}),
	}
}

// CreateOrder opens a CAPTURE-intent order for amount and returns its id.
func (c *Client) CreateOrder(ctx context.Context, amount string) (string, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("paypal: amount %q: %w", amount, err)
	}
	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"amount": Amount{CurrencyCode: c.cfg.Currency, Value: value.StringFixed(2)},
		}},
	}
	raw, err := c.call(ctx, "/v2/checkout/orders", body)
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("paypal: decode order: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("paypal: order response without id")
	}
	return out.ID, nil
}

// CapturePayment captures the approved order orderID.
func (c *Client) CapturePayment(ctx context.Context, orderID string) (*CaptureResult, error) {
	raw, err := c.call(ctx, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", nil)
	if err != nil {
		return nil, err
	}
	var out CaptureResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("paypal: decode capture: %w", err)
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, path string, body interface{}) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		var payload io.Reader = http.NoBody
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			payload = bytes.NewReader(b)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, payload)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		return c.do(req)
	})
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("paypal: decode token: %w", err)
	}
	return out.AccessToken, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal: %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
