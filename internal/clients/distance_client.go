package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

// ErrNoRoute is returned when the distance service cannot route to the
// address.
var ErrNoRoute = errors.New("no route to delivery address")

type distanceResponse struct {
	Distance          float64 `json:"distance"`
	TravelTimeMinutes int     `json:"travelTimeMinutes"`
}

// HTTPDistanceClient asks the distance-matrix service for the trip from the
// restaurant to a delivery address.
type HTTPDistanceClient struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewHTTPDistanceClient(cfg config.ServiceConfig) *HTTPDistanceClient {
	return &HTTPDistanceClient{
		http:   newRestClient(cfg),
		logger: logging.Named("distance-client"),
	}
}

// Estimate returns distance in miles and travel time in minutes.
func (c *HTTPDistanceClient) Estimate(ctx context.Context, address string) (*models.DistanceEstimate, error) {
	resp, err := request(ctx, c.http).
		SetQueryParam("destination", address).
		Get("/api/v1/distance")
	if err != nil {
		return nil, fmt.Errorf("distance request: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound || resp.StatusCode() == http.StatusUnprocessableEntity {
		return nil, ErrNoRoute
	}
	if resp.IsError() {
		return nil, statusError("distance service", resp)
	}

	var out distanceResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode distance: %w", err)
	}
	if out.Distance < 0 || out.TravelTimeMinutes < 0 {
		return nil, errors.New("distance service returned negative estimate")
	}

	logging.FromCtx(ctx, c.logger).Debug("distance estimated",
		zap.Float64("distance_miles", out.Distance),
		zap.Int("travel_time_minutes", out.TravelTimeMinutes),
	)

	return &models.DistanceEstimate{
		Distance:          decimal.NewFromFloat(out.Distance),
		TravelTimeMinutes: out.TravelTimeMinutes,
	}, nil
}
