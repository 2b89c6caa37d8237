package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
	})
	mux.HandleFunc("/v2/checkout/orders", handler)
	mux.HandleFunc("/v2/checkout/orders/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateOrder(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body struct {
			Intent        string `json:"intent"`
			PurchaseUnits []struct {
				Amount Amount `json:"amount"`
			} `json:"purchase_units"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CAPTURE", body.Intent)
		assert.Equal(t, Amount{CurrencyCode: "USD", Value: "74.75"}, body.PurchaseUnits[0].Amount)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "PAY-1", "status": "CREATED"})
	})

	c := New(Config{BaseURL: srv.URL, ClientID: "client", ClientSecret: "secret"})
	id, err := c.CreateOrder(context.Background(), "74.75")
	require.NoError(t, err)
	assert.Equal(t, "PAY-1", id)
}

func TestCapturePayment(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/checkout/orders/PAY-1/capture", r.URL.Path)
		_, _ = w.Write([]byte(`{
  "id": "PAY-1",
  "status": "COMPLETED",
  "payer": {"email_address": "buyer@example.com"},
  "purchase_units": [{"payments": {"captures": [{"amount": {"currency_code": "USD", "value": "74.75"}}]}}]
}`))
	})

	c := New(Config{BaseURL: srv.URL, ClientID: "client", ClientSecret: "secret"})
	res, err := c.CapturePayment(context.Background(), "PAY-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "buyer@example.com", res.Payer.EmailAddress)
	assert.Equal(t, "74.75", res.CapturedAmount())
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY"}`))
	})

	c := New(Config{BaseURL: srv.URL, ClientID: "client", ClientSecret: "secret"})
	for i := 0; i < 6; i++ {
		_, err := c.CapturePayment(context.Background(), "PAY-1")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	c := New(Config{BaseURL: srv.URL, ClientID: "client", ClientSecret: "secret"})
	for i := 0; i < 5; i++ {
		_, err := c.CreateOrder(context.Background(), "10.00")
		require.Error(t, err)
	}
	_, err := c.CreateOrder(context.Background(), "10.00")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), hits.Load())
}

func TestCreateOrderRejectsBadAmount(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:0"})
	_, err := c.CreateOrder(context.Background(), "abc")
	assert.Error(t, err)
}
