package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
)

// APIError is a non-2xx answer from the POS.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pos returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// IsPermanent reports whether err is a POS rejection that retrying cannot fix.
func IsPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && !apiErr.Retryable()
}

// Client talks to a Square-compatible orders and payments API.
type Client struct {
	http       *resty.Client
	locationID string
	logger     *zap.Logger
}

func NewClient(cfg config.POSConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:       httpClient,
		locationID: cfg.LocationID,
		logger:     logging.Named("pos-client"),
	}
}

// CreateOrder creates the POS order and returns its id.
func (c *Client) CreateOrder(ctx context.Context, payload *Payload) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/v2/orders")
	if err != nil {
		return "", fmt.Errorf("create pos order: %w", err)
	}
	if resp.IsError() {
		return "", &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var out createOrderResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("decode pos order: %w", err)
	}
	if out.Order.ID == "" {
		return "", errors.New("pos order response has no id")
	}

	logging.FromCtx(ctx, c.logger).Info("pos order created",
		zap.String("order_code", payload.Order.ReferenceID),
		zap.String("pos_order_ref", out.Order.ID),
	)
	return out.Order.ID, nil
}

// AttachCashTender records a cash payment of amount against the POS order.
// A tender that already exists counts as success.
func (c *Client) AttachCashTender(ctx context.Context, posOrderRef string, amount Money, idempotencyKey string) error {
	body := createPaymentRequest{
		IdempotencyKey: idempotencyKey,
		SourceID:       "CASH",
		OrderID:        posOrderRef,
		LocationID:     c.locationID,
		AmountMoney:    amount,
		CashDetails:    cashDetails{BuyerSuppliedMoney: amount},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/v2/payments")
	if err != nil {
		return fmt.Errorf("attach cash tender: %w", err)
	}
	if resp.IsError() {
		if alreadyAttached(resp.StatusCode(), resp.Body()) {
			logging.FromCtx(ctx, c.logger).Info("cash tender already attached", zap.String("pos_order_ref", posOrderRef))
			return nil
		}
		return &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}

// alreadyAttached recognises the sandbox answers for a repeated tender. They
// arrive as 409 or as a 400 mentioning the existing payment.
func alreadyAttached(status int, body []byte) bool {
	if status == http.StatusConflict {
		return true
	}
	if status != http.StatusBadRequest {
		return false
	}
	text := strings.ToLower(string(body))
	return strings.Contains(text, "already") || strings.Contains(text, "idempotency_key_reused")
}
