package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/apperr"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/metrics"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/pricing"
)

// Assembler turns a validated cart into the priced order record. It is the
// only place that decides persisted monetary fields, and checkout preview
// runs the same code path.
type Assembler struct {
	configs  DeliveryConfigSource
	distance DistanceEstimator
	taxRate  decimal.Decimal
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewAssembler creates a new Assembler. distance may be nil, in which case
// orders without a client estimate are priced at zero distance.
func NewAssembler(configs DeliveryConfigSource, distance DistanceEstimator, taxRate decimal.Decimal, m *metrics.Metrics, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = logging.Named("assembler")
	}
	return &Assembler{
		configs:  configs,
		distance: distance,
		taxRate:  taxRate,
		metrics:  m,
		logger:   logger,
	}
}

// Assemble prices lines, whose MenuItem must already be resolved from the
// catalog, and returns an order without identity or timestamps.
func (a *Assembler) Assemble(ctx context.Context, req *models.CreateOrderRequest, lines []models.CartLine) (*models.Order, error) {
	log := logging.FromCtx(ctx, a.logger)

	items := make([]models.OrderLineItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, pricing.ResolveLine(line))
	}

	subtotal := pricing.Subtotal(items)
	tipSelector, _ := pricing.NormalizeTipSelector(req.Tip)
	tax := pricing.Tax(subtotal, a.taxRate)
	tip := pricing.Tip(subtotal, tipSelector, req.CustomTip)

	order := &models.Order{
		CustomerID:      req.CustomerID,
		Guest:           req.Guest,
		Status:          initialStatus(req.PaymentMethod),
		DeliveryType:    req.DeliveryType,
		PaymentMethod:   req.PaymentMethod,
		Items:           items,
		ContainsAlcohol: pricing.ContainsAlcohol(items),
		Subtotal:        subtotal,
		TaxRate:         a.taxRate,
		TaxAmount:       tax,
		TipSelector:     tipSelector,
		TipAmount:       tip,
		Notes:           req.Notes,
	}

	if req.DeliveryType.IsGolf() {
		// Served at the club: always immediate, no trip, no driver.
		order.ScheduledFor = nil
		order.OrderType = ""
		order.CourseLocation = req.CourseLocation
		order.DistanceMiles = decimal.Zero
		order.TravelTimeMinutes = 0
		order.CustomerDeliveryFee = decimal.Zero
		order.RestaurantDeliveryFee = decimal.Zero
		order.TotalDeliveryFee = decimal.Zero
		order.DriverPayout = decimal.Zero
	} else {
		order.DeliveryAddress = req.DeliveryAddress
		order.ScheduledFor = req.ScheduledFor
		order.OrderType = models.OrderTypeASAP
		if req.ScheduledFor != nil {
			order.OrderType = models.OrderTypeScheduled
		}

		est := a.estimate(ctx, req)
		order.DistanceMiles = est.Distance
		order.TravelTimeMinutes = est.TravelTimeMinutes

		if err := a.applyDeliveryFees(ctx, order, est); err != nil {
			return nil, err
		}
		order.DriverPayout = pricing.PayoutsFor(order.DeliveryType, order.TotalDeliveryFee, order.TipAmount).Driver
	}

	order.TotalAmount = pricing.Total(order.Subtotal, order.TaxAmount, order.TipAmount, order.CustomerDeliveryFee)

	log.Debug("order assembled",
		zap.String("delivery_type", string(order.DeliveryType)),
		zap.String("subtotal", order.Subtotal.StringFixed(2)),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int64("delivery_config_version", order.DeliveryConfigVersion),
	)
	return order, nil
}

func (a *Assembler) applyDeliveryFees(ctx context.Context, order *models.Order, est models.DistanceEstimate) error {
	cfg, err := a.configs.Current(ctx)
	if errors.Is(err, apperr.ErrConfigMissing) {
		logging.FromCtx(ctx, a.logger).Error("delivery charge config missing, pricing delivery at zero",
			zap.Bool("delivery_config_missing", true),
			zap.String("delivery_type", string(order.DeliveryType)),
		)
		a.metrics.ConfigMissing()
		order.CustomerDeliveryFee = decimal.Zero
		order.RestaurantDeliveryFee = decimal.Zero
		order.TotalDeliveryFee = decimal.Zero
		return nil
	}
	if err != nil {
		return fmt.Errorf("load delivery config: %w", err)
	}

	fees := pricing.DeliveryFee(pricing.NewDeliveryParams(*cfg, est, order.Subtotal))
	order.CustomerDeliveryFee = fees.CustomerFee
	order.TotalDeliveryFee = fees.TotalFee
	order.RestaurantDeliveryFee = pricing.RestaurantDeliveryFee(cfg.RestaurantFeePercentage, order.Subtotal)
	order.DeliveryConfigVersion = cfg.Version
	return nil
}

// estimate prefers the client estimate, then the distance service. Failure
// is not fatal: the minimum charge still applies at zero distance.
func (a *Assembler) estimate(ctx context.Context, req *models.CreateOrderRequest) models.DistanceEstimate {
	if req.Estimate != nil {
		return *req.Estimate
	}
	if a.distance == nil || req.DeliveryAddress == "" {
		return models.DistanceEstimate{Distance: decimal.Zero}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	est, err := a.distance.Estimate(ctx, req.DeliveryAddress)
	if err != nil || est == nil {
		logging.FromCtx(ctx, a.logger).Warn("distance estimate unavailable, using zero distance",
			zap.Error(err),
		)
		return models.DistanceEstimate{Distance: decimal.Zero}
	}
	return *est
}
