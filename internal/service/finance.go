package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/apperr"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/pricing"
)

// FinanceRow is one delivered order in the finance report.
type FinanceRow struct {
	OrderID               string              `json:"id"`
	OrderCode             string              `json:"order_id"`
	DeliveryType          models.DeliveryType `json:"delivery_type"`
	DeliveredAt           *time.Time          `json:"delivered_at"`
	Subtotal              decimal.Decimal     `json:"subtotal"`
	TaxAmount             decimal.Decimal     `json:"tax_amount"`
	TipAmount             decimal.Decimal     `json:"tip_amount"`
	CustomerDeliveryFee   decimal.Decimal     `json:"customer_delivery_fee"`
	RestaurantDeliveryFee decimal.Decimal     `json:"restaurant_delivery_fee"`
	TotalDeliveryFee      decimal.Decimal     `json:"total_delivery_fee"`
	TotalAmount           decimal.Decimal     `json:"total_amount"`
	DriverPayout          decimal.Decimal     `json:"driver_payout"`
	ServerPayout          decimal.Decimal     `json:"server_payout"`
	DeliveryConfigVersion int64               `json:"delivery_config_version"`
}

type FinanceTotals struct {
	Subtotal              decimal.Decimal `json:"subtotal"`
	TaxAmount             decimal.Decimal `json:"tax_amount"`
	TipAmount             decimal.Decimal `json:"tip_amount"`
	CustomerDeliveryFee   decimal.Decimal `json:"customer_delivery_fee"`
	RestaurantDeliveryFee decimal.Decimal `json:"restaurant_delivery_fee"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	DriverPayout          decimal.Decimal `json:"driver_payout"`
	ServerPayout          decimal.Decimal `json:"server_payout"`
}

type FinanceReport struct {
	From       time.Time     `json:"from"`
	To         time.Time     `json:"to"`
	OrderCount int           `json:"order_count"`
	Totals     FinanceTotals `json:"totals"`
	Orders     []FinanceRow  `json:"orders"`
}

// FinanceService aggregates delivered orders for the admin finances view.
type FinanceService struct {
	orders OrderRepository
	logger *zap.Logger
}

func NewFinanceService(orders OrderRepository) *FinanceService {
	return &FinanceService{orders: orders, logger: logging.Named("finance-service")}
}

// Report sums delivered orders in [from, to). Payouts are recomputed with
// the same rule the assembler used.
func (s *FinanceService) Report(ctx context.Context, from, to time.Time) (*FinanceReport, error) {
	if !from.Before(to) {
		return nil, apperr.NewValidationError("from", "from must be before to")
	}

	orders, err := s.orders.ListDeliveredBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &FinanceReport{From: from, To: to, Orders: make([]FinanceRow, 0, len(orders))}
	t := &report.Totals

	for _, o := range orders {
		payouts := pricing.PayoutsFor(o.DeliveryType, o.TotalDeliveryFee, o.TipAmount)
		if !payouts.Driver.Equal(o.DriverPayout) {
			logging.FromCtx(ctx, s.logger).Warn("stored driver payout differs from recomputed payout",
				zap.String("order_id", o.ID),
				zap.String("stored", o.DriverPayout.StringFixed(2)),
				zap.String("recomputed", payouts.Driver.StringFixed(2)),
			)
		}

		report.Orders = append(report.Orders, FinanceRow{
			OrderID:               o.ID,
			OrderCode:             o.OrderCode,
			DeliveryType:          o.DeliveryType,
			DeliveredAt:           o.DeliveredAt,
			Subtotal:              o.Subtotal,
			TaxAmount:             o.TaxAmount,
			TipAmount:             o.TipAmount,
			CustomerDeliveryFee:   o.CustomerDeliveryFee,
			RestaurantDeliveryFee: o.RestaurantDeliveryFee,
			TotalDeliveryFee:      o.TotalDeliveryFee,
			TotalAmount:           o.TotalAmount,
			DriverPayout:          payouts.Driver,
			ServerPayout:          payouts.Server,
			DeliveryConfigVersion: o.DeliveryConfigVersion,
		})

		t.Subtotal = t.Subtotal.Add(o.Subtotal)
		t.TaxAmount = t.TaxAmount.Add(o.TaxAmount)
		t.TipAmount = t.TipAmount.Add(o.TipAmount)
		t.CustomerDeliveryFee = t.CustomerDeliveryFee.Add(o.CustomerDeliveryFee)
		t.RestaurantDeliveryFee = t.RestaurantDeliveryFee.Add(o.RestaurantDeliveryFee)
		t.TotalAmount = t.TotalAmount.Add(o.TotalAmount)
		t.DriverPayout = t.DriverPayout.Add(payouts.Driver)
		t.ServerPayout = t.ServerPayout.Add(payouts.Server)
	}

	report.OrderCount = len(report.Orders)
	return report, nil
}
