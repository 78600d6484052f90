package pos

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

// ErrSkipped is returned for orders that must not reach the POS.
var ErrSkipped = errors.New("pos sync skipped")

// OrderStore is the slice of the order repository the syncer needs.
type OrderStore interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	SetPOSOrderRef(ctx context.Context, id, ref string) error
	MarkPOSTenderAttached(ctx context.Context, id string) error
}

// API is the POS endpoint set used by Syncer.
type API interface {
	CreateOrder(ctx context.Context, payload *Payload) (string, error)
	AttachCashTender(ctx context.Context, posOrderRef string, amount Money, idempotencyKey string) error
}

type Syncer struct {
	orders OrderStore
	api    API
	mapper *Mapper
	logger *zap.Logger
}

func NewSyncer(orders OrderStore, api API, mapper *Mapper) *Syncer {
	return &Syncer{
		orders: orders,
		api:    api,
		mapper: mapper,
		logger: logging.Named("pos-syncer"),
	}
}

// Sync pushes the order to the POS unless it already has a POS reference,
// then attaches the cash tender for cash orders. It returns the POS order
// reference.
func (s *Syncer) Sync(ctx context.Context, orderID string) (string, error) {
	log := logging.FromCtx(ctx, s.logger).With(zap.String("order_id", orderID))

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("load order: %w", err)
	}

	ref := order.POSOrderRef
	if ref != "" {
		log.Debug("order already in pos", zap.String("pos_order_ref", ref))
	} else {
		if order.Status == models.OrderStatusCancelled {
			return "", ErrSkipped
		}

		ref, err = s.api.CreateOrder(ctx, s.mapper.MapOrderToPOSPayload(order))
		if err != nil {
			return "", err
		}
		if err := s.orders.SetPOSOrderRef(ctx, order.ID, ref); err != nil {
			return "", err
		}
	}

	if order.PaymentMethod == models.PaymentMethodCash && !order.POSTenderAttached {
		amount := *s.mapper.money(order.TotalAmount)
		if err := s.api.AttachCashTender(ctx, ref, amount, order.ID+"-cash"); err != nil {
			return ref, fmt.Errorf("attach cash tender: %w", err)
		}
		if err := s.orders.MarkPOSTenderAttached(ctx, order.ID); err != nil {
			return ref, err
		}
	}

	log.Info("order synced to pos",
		zap.String("order_code", order.OrderCode),
		zap.String("pos_order_ref", ref),
	)
	return ref, nil
}
