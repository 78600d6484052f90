package service

import (
	"context"
	"time"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

// OrderRepository persists orders and their status history. Lookups return
// apperr.ErrNotFound for missing rows; UpdateStatus returns apperr.ErrConflict
// when the stored status no longer matches from.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order, initial models.StatusHistoryEntry, enqueuePOS bool) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus, entry models.StatusHistoryEntry) (*models.Order, error)
	AssignDriver(ctx context.Context, id, driverID string) (*models.Order, error)
	ListHistory(ctx context.Context, orderID string) ([]models.StatusHistoryEntry, error)
	ListDeliveredBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error)
}

// CatalogRepository loads authoritative menu items keyed by id. Unknown ids
// are absent from the result.
type CatalogRepository interface {
	GetMenuItems(ctx context.Context, ids []string) (map[string]*models.MenuItem, error)
}

// DeliveryConfigRepository reads and replaces the delivery charge singleton.
// Get returns apperr.ErrConfigMissing when nothing was ever saved.
type DeliveryConfigRepository interface {
	Get(ctx context.Context) (*models.DeliveryChargeConfig, error)
	Save(ctx context.Context, cfg *models.DeliveryChargeConfig) (*models.DeliveryChargeConfig, error)
}

// OutboxEnqueuer schedules an order for POS sync.
type OutboxEnqueuer interface {
	Enqueue(ctx context.Context, orderID string) error
}

type OrderCache interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
}

type DeliveryConfigCache interface {
	Get(ctx context.Context) (*models.DeliveryChargeConfig, error)
	Set(ctx context.Context, cfg *models.DeliveryChargeConfig) error
	Delete(ctx context.Context) error
}

// DistanceEstimator is the distance-matrix collaborator.
type DistanceEstimator interface {
	Estimate(ctx context.Context, address string) (*models.DistanceEstimate, error)
}

// NotificationSender delivers customer notifications. Failures are never
// surfaced to callers of the service.
type NotificationSender interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
	SendStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error
}

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error
}

// DeliveryConfigSource returns the delivery charge config in effect now.
type DeliveryConfigSource interface {
	Current(ctx context.Context) (*models.DeliveryChargeConfig, error)
}
