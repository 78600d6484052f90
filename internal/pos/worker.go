package pos

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/apperr"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/metrics"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

// OutboxStore leases and settles pos_sync_outbox rows.
type OutboxStore interface {
	ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]models.OutboxEntry, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error
}

type OrderSyncer interface {
	Sync(ctx context.Context, orderID string) (string, error)
}

// Worker drains the POS outbox. Each poll claims a batch of due rows and
// syncs them one at a time, paced by a token bucket.
type Worker struct {
	outbox  OutboxStore
	syncer  OrderSyncer
	cfg     config.WorkerConfig
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewWorker(outbox OutboxStore, syncer OrderSyncer, cfg config.WorkerConfig, m *metrics.Metrics) *Worker {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	return &Worker{
		outbox:  outbox,
		syncer:  syncer,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		metrics: m,
		logger:  logging.Named("pos-worker"),
		now:     time.Now,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start polls until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	w.logger.Info("pos worker started",
		zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Int("batch_size", w.cfg.BatchSize),
	)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("pos outbox poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			w.logger.Info("pos worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Stop asks the worker to finish and waits for the in-flight row.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
}

// RunOnce processes one batch and returns how many rows it claimed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	entries, err := w.outbox.ClaimDue(ctx, w.cfg.BatchSize, w.cfg.Lease)
	if err != nil {
		return 0, err
	}
	w.metrics.OutboxClaimed(len(entries))

	for _, entry := range entries {
		if err := w.limiter.Wait(ctx); err != nil {
			return len(entries), err
		}
		w.process(ctx, entry)
	}
	return len(entries), nil
}

func (w *Worker) process(ctx context.Context, entry models.OutboxEntry) {
	log := w.logger.With(
		zap.String("outbox_id", entry.ID),
		zap.String("order_id", entry.OrderID),
		zap.Int("attempt", entry.Attempts+1),
	)

	_, err := w.syncer.Sync(ctx, entry.OrderID)
	switch {
	case err == nil:
		w.settle(log, w.outbox.MarkDone(ctx, entry.ID))
		w.metrics.POSSyncResult(metrics.POSResultSuccess)
		return
	case errors.Is(err, ErrSkipped):
		log.Info("pos sync skipped for cancelled order")
		w.settle(log, w.outbox.MarkDone(ctx, entry.ID))
		w.metrics.POSSyncResult(metrics.POSResultSkipped)
		return
	}

	attempts := entry.Attempts + 1
	if attempts >= w.cfg.MaxAttempts || permanent(err) {
		log.Error("pos sync failed permanently", zap.Error(err))
		w.settle(log, w.outbox.MarkFailed(ctx, entry.ID, attempts, err.Error()))
		w.metrics.POSSyncResult(metrics.POSResultFailed)
		return
	}

	next := w.now().Add(Backoff(w.cfg.BaseBackoff, w.cfg.MaxBackoff, entry.Attempts))
	log.Warn("pos sync failed, will retry", zap.Error(err), zap.Time("next_attempt_at", next))
	w.settle(log, w.outbox.Reschedule(ctx, entry.ID, attempts, next, err.Error()))
	w.metrics.POSSyncResult(metrics.POSResultRetry)
}

// permanent reports failures that retrying cannot fix: a POS rejection or an
// order that no longer exists.
func permanent(err error) bool {
	return IsPermanent(err) || errors.Is(err, apperr.ErrNotFound)
}

// settle logs a failed outbox write. The lease expires on its own, so the row
// is picked up again later.
func (w *Worker) settle(log *zap.Logger, err error) {
	if err != nil {
		log.Error("failed to update pos outbox", zap.Error(err))
	}
}

// Backoff returns base * 2^attempt capped at max. attempt counts completed
// failures, starting at zero.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}
