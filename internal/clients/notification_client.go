package clients

import (
	"context"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateOrderStatus       = "order_status_changed"
)

// Notification is the body accepted by the notification service. The service
// resolves contact details for registered customers from UserID.
type Notification struct {
	UserID   string            `json:"user_id,omitempty"`
	Email    string            `json:"email,omitempty"`
	Phone    string            `json:"phone,omitempty"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}

// HTTPNotificationClient sends customer notifications over HTTP.
type HTTPNotificationClient struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewHTTPNotificationClient(cfg config.ServiceConfig) *HTTPNotificationClient {
	return &HTTPNotificationClient{
		http:   newRestClient(cfg),
		logger: logging.Named("notification-client"),
	}
}

// SendOrderConfirmation tells the customer the order was placed.
func (c *HTTPNotificationClient) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	n := recipient(order)
	n.Template = TemplateOrderConfirmation
	n.Data = map[string]string{
		"order_id":      order.OrderCode,
		"status":        string(order.Status),
		"delivery_type": string(order.DeliveryType),
		"total_amount":  order.TotalAmount.StringFixed(2),
	}
	return c.send(ctx, order, n)
}

// SendStatusChanged tells the customer the order moved to a new status.
func (c *HTTPNotificationClient) SendStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error {
	n := recipient(order)
	n.Template = TemplateOrderStatus
	n.Data = map[string]string{
		"order_id":        order.OrderCode,
		"previous_status": string(previous),
		"status":          string(order.Status),
	}
	return c.send(ctx, order, n)
}

func recipient(order *models.Order) *Notification {
	n := &Notification{UserID: order.CustomerID}
	if order.Guest != nil {
		n.Email = order.Guest.Email
		n.Phone = order.Guest.Phone
	}
	return n
}

func (c *HTTPNotificationClient) send(ctx context.Context, order *models.Order, n *Notification) error {
	log := logging.FromCtx(ctx, c.logger).With(
		zap.String("order_id", order.ID),
		zap.String("template", n.Template),
	)

	resp, err := request(ctx, c.http).
		SetBody(n).
		Post("/api/v2/notifications")
	if err != nil {
		log.Error("failed to send notification", zap.Error(err))
		return err
	}
	if resp.IsError() {
		log.Error("notification service rejected request", zap.Int("status_code", resp.StatusCode()))
		return statusError("notification service", resp)
	}

	log.Info("notification sent")
	return nil
}
