package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/apperr"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
)

type PaymentEventType string

const (
	PaymentEventCompleted PaymentEventType = "payment.completed"
	PaymentEventFailed    PaymentEventType = "payment.failed"
)

// PaymentEvent is emitted by the payment gateway. OrderID may be the order
// primary key or its display code.
type PaymentEvent struct {
	ID        string           `json:"id"`
	Type      PaymentEventType `json:"type"`
	PaymentID string           `json:"payment_id"`
	OrderID   string           `json:"order_id"`
	Reason    string           `json:"reason,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// PaymentHandler applies payment outcomes to orders.
type PaymentHandler interface {
	HandlePaymentCompleted(ctx context.Context, orderRef string) error
	HandlePaymentFailed(ctx context.Context, orderRef, reason string) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads the payments topic. Messages are committed after they
// are handled, so a crash replays them; the handlers are idempotent.
type KafkaConsumer struct {
	reader  messageReader
	handler PaymentHandler
	logger  *zap.Logger
	stopCh  chan struct{}

	retryDelay time.Duration
}

func NewKafkaConsumer(cfg config.KafkaConfig, handler PaymentHandler) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.PaymentsTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return newConsumer(reader, handler)
}

func newConsumer(r messageReader, handler PaymentHandler) *KafkaConsumer {
	return &KafkaConsumer{
		reader:  r,
		handler: handler,
		logger:  logging.Named("payment-consumer"),
		stopCh:  make(chan struct{}),

		retryDelay: time.Second,
	}
}

// Start consumes until ctx is cancelled or Stop is called.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting payment consumer")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("payment consumer stopped")
				return nil
			}
			c.logger.Error("failed to read message", zap.Error(err))
			continue
		}

		if err := c.handleWithRetry(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("giving up on payment event",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

const handleAttempts = 3

// handleWithRetry retries transient failures before the offset is committed.
func (c *KafkaConsumer) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	var err error
	for attempt := 1; attempt <= handleAttempts; attempt++ {
		if err = c.HandleMessage(ctx, msg); err == nil {
			return nil
		}
		if attempt == handleAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.retryDelay):
		}
	}
	return err
}

// Stop ends Start and closes the reader.
func (c *KafkaConsumer) Stop() error {
	close(c.stopCh)
	return c.reader.Close()
}

// HandleMessage applies a single payment event. Malformed messages, unknown
// event types and unknown orders are dropped without error.
func (c *KafkaConsumer) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Warn("dropping malformed payment event", zap.Int64("offset", msg.Offset), zap.Error(err))
		return nil
	}

	log := c.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("order_ref", event.OrderID),
	)

	var err error
	switch event.Type {
	case PaymentEventCompleted:
		err = c.handler.HandlePaymentCompleted(ctx, event.OrderID)
	case PaymentEventFailed:
		err = c.handler.HandlePaymentFailed(ctx, event.OrderID, event.Reason)
	default:
		log.Debug("ignoring event type")
		return nil
	}

	switch {
	case err == nil:
		log.Info("payment event applied", zap.String("payment_id", event.PaymentID))
		return nil
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrConflict):
		log.Warn("payment event not applicable", zap.Error(err))
		return nil
	default:
		return err
	}
}
