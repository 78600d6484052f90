// Package handlers implements the HTTP API on gin.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/apperr"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/service"
)

// OrderService is the order lifecycle as seen by the HTTP layer.
type OrderService interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	PreviewOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.OrderSummary, error)
	GetOrder(ctx context.Context, ref string) (*models.Order, error)
	ListOrders(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error)
	GetHistory(ctx context.Context, ref string) ([]models.StatusHistoryEntry, error)
	UpdateOrderStatus(ctx context.Context, ref string, req *models.UpdateOrderStatusRequest) (*models.Order, error)
	CancelOrder(ctx context.Context, ref, reason, changedBy string) (*models.Order, error)
	AssignDriver(ctx context.Context, ref string, req *models.AssignDriverRequest) (*models.Order, error)
	RequeuePOSSync(ctx context.Context, ref string) error
}

type FinanceReporter interface {
	Report(ctx context.Context, from, to time.Time) (*service.FinanceReport, error)
}

type DeliveryConfigManager interface {
	Current(ctx context.Context) (*models.DeliveryChargeConfig, error)
	Update(ctx context.Context, req *models.UpdateDeliveryConfigRequest) (*models.DeliveryChargeConfig, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handlers holds all HTTP handlers for the orders service.
type Handlers struct {
	orders         OrderService
	finance        FinanceReporter
	deliveryConfig DeliveryConfigManager
	checks         map[string]ReadinessCheck
	logger         *zap.Logger
	now            func() time.Time
}

// NewHandlers creates a new handlers instance. checks are run by /ready.
func NewHandlers(
	orders OrderService,
	finance FinanceReporter,
	deliveryConfig DeliveryConfigManager,
	checks map[string]ReadinessCheck,
) *Handlers {
	return &Handlers{
		orders:         orders,
		finance:        finance,
		deliveryConfig: deliveryConfig,
		checks:         checks,
		logger:         logging.Named("handlers"),
		now:            time.Now,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

// handleError maps service errors to HTTP responses. Unknown errors are
// logged and answered with a generic 500.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "order not found"})
	case errors.Is(err, apperr.ErrConfigMissing):
		c.JSON(http.StatusNotFound, errorResponse{Error: "delivery charge config not set"})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		_ = c.Error(err)
		logging.FromCtx(c.Request.Context(), nil).Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
