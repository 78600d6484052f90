// Package clients holds the outbound collaborators of the order service:
// the distance-matrix service and the notification service.
package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/service"
)

const headerRequestID = "X-Request-ID"

var (
	_ service.DistanceEstimator  = (*HTTPDistanceClient)(nil)
	_ service.NotificationSender = (*HTTPNotificationClient)(nil)
)

func newRestClient(cfg config.ServiceConfig) *resty.Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		c.SetAuthToken(cfg.APIKey)
	}
	return c
}

// request starts a request bound to ctx that forwards the request id.
func request(ctx context.Context, c *resty.Client) *resty.Request {
	r := c.R().SetContext(ctx)
	if requestID := logging.RequestIDFrom(ctx); requestID != "" {
		r.SetHeader(headerRequestID, requestID)
	}
	return r
}

func statusError(service string, resp *resty.Response) error {
	return fmt.Errorf("%s returned status %d", service, resp.StatusCode())
}
