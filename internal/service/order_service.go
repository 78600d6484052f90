package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/apperr"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/metrics"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/pricing"
)

// Actors recorded in status history for transitions not made by a person.
const (
	ChangedBySystem         = "system"
	ChangedByPaymentGateway = "payment-gateway"
)

// OrderService handles order business logic.
type OrderService struct {
	orderRepo      OrderRepository
	catalogRepo    CatalogRepository
	outbox         OutboxEnqueuer
	orderCache     OrderCache
	assembler      *Assembler
	notifier       NotificationSender
	eventPublisher EventPublisher
	config         *config.Config
	metrics        *metrics.Metrics
	logger         *zap.Logger
	now            func() time.Time
}

// NewOrderService creates a new order service. orderCache, notifier and
// eventPublisher may be nil.
func NewOrderService(
	orderRepo OrderRepository,
	catalogRepo CatalogRepository,
	outbox OutboxEnqueuer,
	orderCache OrderCache,
	assembler *Assembler,
	notifier NotificationSender,
	eventPublisher EventPublisher,
	cfg *config.Config,
	m *metrics.Metrics,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		catalogRepo:    catalogRepo,
		outbox:         outbox,
		orderCache:     orderCache,
		assembler:      assembler,
		notifier:       notifier,
		eventPublisher: eventPublisher,
		config:         cfg,
		metrics:        m,
		logger:         logging.Named("order-service"),
		now:            time.Now,
	}
}

// CreateOrder validates the cart against the catalog, prices it and
// persists the order with its first history row in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	log := logging.FromCtx(ctx, s.logger)
	now := s.now()

	log.Info("creating order",
		zap.String("customer_id", req.CustomerID),
		zap.String("delivery_type", string(req.DeliveryType)),
		zap.Int("item_count", len(req.Items)),
	)

	if err := validateCreateOrderRequest(req, now); err != nil {
		return nil, err
	}

	lines, err := s.resolveCatalog(ctx, req)
	if err != nil {
		return nil, err
	}

	order, err := s.assembler.Assemble(ctx, req, lines)
	if err != nil {
		return nil, err
	}

	order.ID = uuid.NewString()
	order.OrderCode = newOrderCode(now)
	order.CreatedAt = now
	order.UpdatedAt = now

	changedBy := req.CustomerID
	if changedBy == "" {
		changedBy = "guest"
	}
	initial := models.StatusHistoryEntry{
		OrderID:   order.ID,
		Status:    order.Status,
		ChangedBy: changedBy,
		Note:      "order placed",
		CreatedAt: now,
	}

	if err := s.orderRepo.Create(ctx, order, initial, s.config.Features.EnablePOSSync); err != nil {
		log.Error("failed to create order", zap.String("order_code", order.OrderCode), zap.Error(err))
		return nil, err
	}

	s.metrics.OrderCreated(string(order.DeliveryType), string(order.PaymentMethod))
	s.metrics.StatusChanged(string(order.Status))

	s.cacheOrder(ctx, order)
	if s.config.Features.EnableOrderEvents && s.eventPublisher != nil {
		if err := s.eventPublisher.PublishOrderCreated(ctx, order); err != nil {
			// Log but don't fail
			log.Error("failed to publish order created event", zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	go s.sendOrderConfirmation(order)

	log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("order_code", order.OrderCode),
		zap.String("status", string(order.Status)),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
	)
	return order, nil
}

// PreviewOrder prices a cart exactly like CreateOrder without persisting it.
func (s *OrderService) PreviewOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.OrderSummary, error) {
	if err := validateCart(req, s.now()); err != nil {
		return nil, err
	}

	lines, err := s.resolveCatalog(ctx, req)
	if err != nil {
		return nil, err
	}

	order, err := s.assembler.Assemble(ctx, req, lines)
	if err != nil {
		return nil, err
	}
	return models.SummaryOf(order), nil
}

// resolveCatalog replaces client item data with catalog rows and checks the
// selection policy of every line.
func (s *OrderService) resolveCatalog(ctx context.Context, req *models.CreateOrderRequest) ([]models.CartLine, error) {
	ids := make([]string, 0, len(req.Items))
	seen := make(map[string]bool, len(req.Items))
	for _, line := range req.Items {
		if !seen[line.MenuItemID] {
			seen[line.MenuItemID] = true
			ids = append(ids, line.MenuItemID)
		}
	}

	items, err := s.catalogRepo.GetMenuItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}

	lines := make([]models.CartLine, 0, len(req.Items))
	for i, line := range req.Items {
		item, ok := items[line.MenuItemID]
		if !ok || !item.Available {
			return nil, apperr.NewValidationError(fmt.Sprintf("items[%d].menu_item_id", i), "menu item is not available")
		}

		if err := pricing.ValidateSelections(item, line.SelectedOptions); err != nil {
			var ve *apperr.ValidationError
			if errors.As(err, &ve) {
				return nil, apperr.NewValidationError(fmt.Sprintf("items[%d].%s", i, ve.Field), ve.Message)
			}
			return nil, err
		}

		line.MenuItem = item
		if !item.HasSpiceLevel {
			line.SpiceLevel = ""
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// GetOrder retrieves an order by uuid or by display code.
func (s *OrderService) GetOrder(ctx context.Context, ref string) (*models.Order, error) {
	if _, err := uuid.Parse(ref); err != nil {
		return s.orderRepo.GetByCode(ctx, ref)
	}

	// Check cache first
	if s.config.Features.EnableOrderCaching && s.orderCache != nil {
		if order, err := s.orderCache.Get(ctx, ref); err == nil && order != nil {
			return order, nil
		}
	}

	order, err := s.orderRepo.GetByID(ctx, ref)
	if err != nil {
		return nil, err
	}

	s.cacheOrder(ctx, order)
	return order, nil
}

// ListOrders retrieves orders based on filter criteria.
func (s *OrderService) ListOrders(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return s.orderRepo.List(ctx, filter)
}

// GetHistory returns the status history of an order, oldest first.
func (s *OrderService) GetHistory(ctx context.Context, ref string) ([]models.StatusHistoryEntry, error) {
	order, err := s.loadOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.orderRepo.ListHistory(ctx, order.ID)
}

// UpdateOrderStatus moves an order along its state machine. A transition the
// machine forbids, or one that races another writer, returns ErrConflict.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, ref string, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	log := logging.FromCtx(ctx, s.logger)

	current, err := s.loadOrder(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !isValidStatusTransition(current.DeliveryType, current.Status, req.Status) {
		return nil, apperr.Conflictf("invalid status transition from %s to %s", current.Status, req.Status)
	}

	changedBy := req.ChangedBy
	if changedBy == "" {
		changedBy = ChangedBySystem
	}

	previous := current.Status
	order, err := s.orderRepo.UpdateStatus(ctx, current.ID, previous, req.Status, models.StatusHistoryEntry{
		OrderID:   current.ID,
		Status:    req.Status,
		ChangedBy: changedBy,
		Note:      req.Note,
		CreatedAt: s.now(),
	})
	if err != nil {
		log.Warn("failed to update order status",
			zap.String("order_id", current.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(req.Status)),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.StatusChanged(string(order.Status))
	s.invalidate(ctx, order.ID)

	if s.config.Features.EnableOrderEvents && s.eventPublisher != nil {
		if err := s.eventPublisher.PublishOrderStatusChanged(ctx, order, previous); err != nil {
			log.Error("failed to publish status change event", zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	go s.sendStatusChange(order, previous)

	log.Info("order status updated",
		zap.String("order_id", order.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(order.Status)),
		zap.String("changed_by", changedBy),
	)
	return order, nil
}

// CancelOrder cancels an order that has not reached a terminal state.
func (s *OrderService) CancelOrder(ctx context.Context, ref, reason, changedBy string) (*models.Order, error) {
	return s.UpdateOrderStatus(ctx, ref, &models.UpdateOrderStatusRequest{
		Status:    models.OrderStatusCancelled,
		Note:      reason,
		ChangedBy: changedBy,
	})
}

// AssignDriver sets the driver on an active delivery order.
func (s *OrderService) AssignDriver(ctx context.Context, ref string, req *models.AssignDriverRequest) (*models.Order, error) {
	if req.DriverID == "" {
		return nil, apperr.NewValidationError("driver_id", "driver ID is required")
	}

	current, err := s.loadOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	if current.DeliveryType != models.DeliveryTypeDelivery {
		return nil, apperr.NewValidationError("delivery_type", "drivers can only be assigned to delivery orders")
	}
	if current.Status.IsTerminal() {
		return nil, apperr.Conflictf("order is %s", current.Status)
	}

	order, err := s.orderRepo.AssignDriver(ctx, current.ID, req.DriverID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, order.ID)

	logging.FromCtx(ctx, s.logger).Info("driver assigned",
		zap.String("order_id", order.ID),
		zap.String("driver_id", req.DriverID),
	)
	return order, nil
}

// RequeuePOSSync schedules another POS sync attempt for an order.
func (s *OrderService) RequeuePOSSync(ctx context.Context, ref string) error {
	order, err := s.loadOrder(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.outbox.Enqueue(ctx, order.ID); err != nil {
		return err
	}

	logging.FromCtx(ctx, s.logger).Info("POS sync requeued", zap.String("order_id", order.ID))
	return nil
}

// HandlePaymentCompleted confirms a card order. Redelivered events for
// orders that already moved on are ignored.
func (s *OrderService) HandlePaymentCompleted(ctx context.Context, orderRef string) error {
	return s.applyPaymentOutcome(ctx, orderRef, models.OrderStatusReceived, "payment completed")
}

// HandlePaymentFailed cancels a card order whose payment was declined.
func (s *OrderService) HandlePaymentFailed(ctx context.Context, orderRef, reason string) error {
	note := "payment failed"
	if reason != "" {
		note += ": " + reason
	}
	return s.applyPaymentOutcome(ctx, orderRef, models.OrderStatusCancelled, note)
}

func (s *OrderService) applyPaymentOutcome(ctx context.Context, orderRef string, to models.OrderStatus, note string) error {
	order, err := s.loadOrder(ctx, orderRef)
	if err != nil {
		return err
	}
	if order.Status != models.OrderStatusPendingPayment {
		logging.FromCtx(ctx, s.logger).Info("ignoring payment event for order not awaiting payment",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)),
		)
		return nil
	}

	_, err = s.UpdateOrderStatus(ctx, order.ID, &models.UpdateOrderStatusRequest{
		Status:    to,
		Note:      note,
		ChangedBy: ChangedByPaymentGateway,
	})
	return err
}

// loadOrder reads from the database, bypassing the cache, for writes.
func (s *OrderService) loadOrder(ctx context.Context, ref string) (*models.Order, error) {
	if _, err := uuid.Parse(ref); err != nil {
		return s.orderRepo.GetByCode(ctx, ref)
	}
	return s.orderRepo.GetByID(ctx, ref)
}

func (s *OrderService) cacheOrder(ctx context.Context, order *models.Order) {
	if !s.config.Features.EnableOrderCaching || s.orderCache == nil {
		return
	}
	if err := s.orderCache.Set(ctx, order); err != nil {
		// Log but don't fail
		logging.FromCtx(ctx, s.logger).Warn("failed to cache order", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (s *OrderService) invalidate(ctx context.Context, id string) {
	if !s.config.Features.EnableOrderCaching || s.orderCache == nil {
		return
	}
	if err := s.orderCache.Delete(ctx, id); err != nil {
		logging.FromCtx(ctx, s.logger).Warn("failed to invalidate cached order", zap.String("order_id", id), zap.Error(err))
	}
}

func (s *OrderService) notifyContext() (context.Context, context.CancelFunc) {
	timeout := s.config.Worker.NotifyTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (s *OrderService) sendOrderConfirmation(order *models.Order) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := s.notifyContext()
	defer cancel()

	if err := s.notifier.SendOrderConfirmation(ctx, order); err != nil {
		s.logger.Warn("failed to send order confirmation", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (s *OrderService) sendStatusChange(order *models.Order, previous models.OrderStatus) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := s.notifyContext()
	defer cancel()

	if err := s.notifier.SendStatusChanged(ctx, order, previous); err != nil {
		s.logger.Warn("failed to send status change notification", zap.String("order_id", order.ID), zap.Error(err))
	}
}
