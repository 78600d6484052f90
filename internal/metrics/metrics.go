// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clubhouse_orders"

// Metrics groups the service collectors. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry setup.
type Metrics struct {
	OrdersCreated         *prometheus.CounterVec
	StatusTransitions     *prometheus.CounterVec
	POSSync               *prometheus.CounterVec
	DeliveryConfigMissing prometheus.Counter
	HTTPRequests          *prometheus.CounterVec
	HTTPDuration          *prometheus.HistogramVec
	OutboxBacklog         prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders persisted, by delivery type and payment method.",
		}, []string{"delivery_type", "payment_method"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Order status transitions, by target status.",
		}, []string{"to"}),
		POSSync: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pos_sync_total",
			Help:      "POS sync attempts, by result.",
		}, []string{"result"}),
		DeliveryConfigMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_config_missing_total",
			Help:      "Delivery orders priced without a delivery charge config.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		OutboxBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pos_outbox_claimed",
			Help:      "Outbox rows claimed in the last worker poll.",
		}),
	}

	reg.MustRegister(
		m.OrdersCreated,
		m.StatusTransitions,
		m.POSSync,
		m.DeliveryConfigMissing,
		m.HTTPRequests,
		m.HTTPDuration,
		m.OutboxBacklog,
	)
	return m
}

func (m *Metrics) OrderCreated(deliveryType, paymentMethod string) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(deliveryType, paymentMethod).Inc()
}

func (m *Metrics) StatusChanged(to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(to).Inc()
}

// POS sync results.
const (
	POSResultSuccess = "success"
	POSResultRetry   = "retry"
	POSResultFailed  = "failed"
	POSResultSkipped = "skipped"
)

func (m *Metrics) POSSyncResult(result string) {
	if m == nil {
		return
	}
	m.POSSync.WithLabelValues(result).Inc()
}

func (m *Metrics) ConfigMissing() {
	if m == nil {
		return
	}
	m.DeliveryConfigMissing.Inc()
}

func (m *Metrics) OutboxClaimed(n int) {
	if m == nil {
		return
	}
	m.OutboxBacklog.Set(float64(n))
}

// ObserveHTTP records one served request. route is the matched gin pattern.
func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}
