package pos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.POSConfig{
		BaseURL:     srv.URL,
		AccessToken: "sandbox-token",
		LocationID:  "LOC-1",
		Timeout:     2 * time.Second,
	})
}

func TestClient_CreateOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/orders", r.URL.Path)
		assert.Equal(t, "Bearer sandbox-token", r.Header.Get("Authorization"))

		var body Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "order-1", body.IdempotencyKey)
		assert.Equal(t, "ORD-20240315-ABC123", body.Order.ReferenceID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order":{"id":"SQ-ORDER-1"}}`))
	})

	ref, err := client.CreateOrder(context.Background(), &Payload{
		IdempotencyKey: "order-1",
		Order:          Order{ReferenceID: "ORD-20240315-ABC123"},
	})

	require.NoError(t, err)
	assert.Equal(t, "SQ-ORDER-1", ref)
}

func TestClient_CreateOrderErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		permanent bool
	}{
		{"server error retries", http.StatusBadGateway, false},
		{"rate limited retries", http.StatusTooManyRequests, false},
		{"bad request is permanent", http.StatusBadRequest, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"errors":[{"code":"X"}]}`))
			})

			_, err := client.CreateOrder(context.Background(), &Payload{})

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.permanent, IsPermanent(err))
		})
	}
}

func TestClient_AttachCashTender(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"created", http.StatusOK, `{"payment":{"id":"P1"}}`, false},
		{"conflict tolerated", http.StatusConflict, `{}`, false},
		{"already attached tolerated", http.StatusBadRequest, `{"errors":[{"detail":"Order already paid"}]}`, false},
		{"other bad request fails", http.StatusBadRequest, `{"errors":[{"detail":"bad amount"}]}`, true},
		{"server error fails", http.StatusInternalServerError, `{}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v2/payments", r.URL.Path)

				var body createPaymentRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "CASH", body.SourceID)
				assert.Equal(t, "SQ-ORDER-1", body.OrderID)
				assert.Equal(t, "LOC-1", body.LocationID)
				assert.Equal(t, int64(4161), body.AmountMoney.Amount)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := client.AttachCashTender(context.Background(), "SQ-ORDER-1", Money{Amount: 4161, Currency: "USD"}, "order-1-cash")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
