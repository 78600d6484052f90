package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

func serviceConfig(t *testing.T, handler http.HandlerFunc) config.ServiceConfig {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return config.ServiceConfig{BaseURL: srv.URL, APIKey: "key-1", Timeout: 2 * time.Second}
}

func TestHTTPDistanceClient_Estimate(t *testing.T) {
	cfg := serviceConfig(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/distance", r.URL.Path)
		assert.Equal(t, "12 Fairway Dr", r.URL.Query().Get("destination"))
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		assert.Equal(t, "req-42", r.Header.Get(headerRequestID))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"distance":3.4,"travelTimeMinutes":14}`))
	})

	ctx := logging.WithRequestID(context.Background(), "req-42")
	est, err := NewHTTPDistanceClient(cfg).Estimate(ctx, "12 Fairway Dr")

	require.NoError(t, err)
	assert.True(t, est.Distance.Equal(decimal.RequireFromString("3.4")))
	assert.Equal(t, 14, est.TravelTimeMinutes)
}

func TestHTTPDistanceClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		noRoute bool
	}{
		{"unroutable address", http.StatusNotFound, `{}`, true},
		{"server error", http.StatusServiceUnavailable, `{}`, false},
		{"negative estimate", http.StatusOK, `{"distance":-1,"travelTimeMinutes":3}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := serviceConfig(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := NewHTTPDistanceClient(cfg).Estimate(context.Background(), "nowhere")

			require.Error(t, err)
			assert.Equal(t, tt.noRoute, errors.Is(err, ErrNoRoute))
		})
	}
}

func TestHTTPNotificationClient_SendOrderConfirmation(t *testing.T) {
	var got Notification
	cfg := serviceConfig(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/notifications", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	})

	order := &models.Order{
		ID:           "order-1",
		OrderCode:    "ORD-20240315-ABC123",
		Guest:        &models.GuestContact{Name: "Pat", Email: "pat@example.com"},
		Status:       models.OrderStatusReceived,
		DeliveryType: models.DeliveryTypeDelivery,
		TotalAmount:  decimal.RequireFromString("41.6"),
	}

	err := NewHTTPNotificationClient(cfg).SendOrderConfirmation(context.Background(), order)

	require.NoError(t, err)
	assert.Equal(t, TemplateOrderConfirmation, got.Template)
	assert.Equal(t, "pat@example.com", got.Email)
	assert.Equal(t, "ORD-20240315-ABC123", got.Data["order_id"])
	assert.Equal(t, "41.60", got.Data["total_amount"])
}

func TestHTTPNotificationClient_SendStatusChangedFailure(t *testing.T) {
	cfg := serviceConfig(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	order := &models.Order{ID: "order-1", CustomerID: "cust-1", Status: models.OrderStatusReady}
	err := NewHTTPNotificationClient(cfg).SendStatusChanged(context.Background(), order, models.OrderStatusReceived)

	assert.Error(t, err)
}
