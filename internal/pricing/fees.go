package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

// Tip selectors accepted at checkout.
const (
	TipNone   = "0"
	Tip10     = "10"
	Tip15     = "15"
	Tip20     = "20"
	TipCustom = "custom"
)

// NormalizeTipSelector maps client input such as "15%" or "" onto a known
// selector. ok is false for anything else.
func NormalizeTipSelector(s string) (selector string, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "%")
	switch s {
	case "":
		return TipNone, true
	case TipNone, Tip10, Tip15, Tip20, TipCustom:
		return s, true
	}
	return "", false
}

// Tax returns subtotal * rate rounded to cents.
func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Mul(rate))
}

// Tip returns the tip for selector. A custom value that does not parse is
// treated as zero and negative values clamp to zero.
func Tip(subtotal decimal.Decimal, selector, custom string) decimal.Decimal {
	sel, ok := NormalizeTipSelector(selector)
	if !ok {
		return decimal.Zero
	}

	if sel == TipCustom {
		v, err := decimal.NewFromString(strings.TrimSpace(custom))
		if err != nil || v.IsNegative() {
			return decimal.Zero
		}
		return Round2(v)
	}

	pct, _ := decimal.NewFromString(sel)
	return Round2(subtotal.Mul(pct).Div(hundred))
}

// DeliveryParams are the inputs of DeliveryFee.
type DeliveryParams struct {
	Distance                decimal.Decimal
	TravelTimeMinutes       int
	RatePerMile             decimal.Decimal
	RatePerHour             decimal.Decimal
	RestaurantFeePercentage decimal.Decimal
	OrderSubtotal           decimal.Decimal
	MinimumCharge           decimal.Decimal
	FreeDeliveryThreshold   decimal.Decimal
}

// NewDeliveryParams combines the charge config, a trip estimate and the
// order subtotal.
func NewDeliveryParams(cfg models.DeliveryChargeConfig, est models.DistanceEstimate, subtotal decimal.Decimal) DeliveryParams {
	return DeliveryParams{
		Distance:                est.Distance,
		TravelTimeMinutes:       est.TravelTimeMinutes,
		RatePerMile:             cfg.RatePerMile,
		RatePerHour:             cfg.RatePerHour,
		RestaurantFeePercentage: cfg.RestaurantFeePercentage,
		OrderSubtotal:           subtotal,
		MinimumCharge:           cfg.MinimumCharge,
		FreeDeliveryThreshold:   cfg.FreeDeliveryThreshold,
	}
}

// DeliveryFees is the trip cost and the part of it the customer pays.
type DeliveryFees struct {
	CustomerFee decimal.Decimal
	TotalFee    decimal.Decimal
}

// FreeDelivery reports whether the customer fee was waived.
func (f DeliveryFees) FreeDelivery() bool {
	return f.CustomerFee.IsZero() && f.TotalFee.IsPositive()
}

// DeliveryFee computes the trip cost, floored at the minimum charge. The
// customer pays nothing once the subtotal reaches the free delivery
// threshold (inclusive).
func DeliveryFee(p DeliveryParams) DeliveryFees {
	minutes := decimal.NewFromInt(int64(p.TravelTimeMinutes))
	raw := p.Distance.Mul(p.RatePerMile).
		Add(minutes.Mul(p.RatePerHour).Div(sixty))

	total := Round2(decimal.Max(raw, p.MinimumCharge))

	customer := total
	if p.OrderSubtotal.GreaterThanOrEqual(p.FreeDeliveryThreshold) {
		customer = decimal.Zero
	}
	return DeliveryFees{CustomerFee: customer, TotalFee: total}
}

// RestaurantDeliveryFee is the restaurant's share, a percentage of the food
// subtotal independent of trip cost.
func RestaurantDeliveryFee(pct, subtotal decimal.Decimal) decimal.Decimal {
	return Round2(pct.Mul(subtotal))
}

// Total is the amount charged to the customer.
func Total(subtotal, tax, tip, customerDeliveryFee decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Add(tip).Add(customerDeliveryFee)
}

// Payouts splits what staff are owed for an order.
type Payouts struct {
	Driver decimal.Decimal `json:"driver_payout"`
	Server decimal.Decimal `json:"server_payout"`
}

// PayoutsFor is the single payout rule: delivery orders pay the driver the
// trip cost plus tip, every other order pays the tip to the server.
func PayoutsFor(deliveryType models.DeliveryType, totalDeliveryFee, tip decimal.Decimal) Payouts {
	if deliveryType == models.DeliveryTypeDelivery {
		return Payouts{Driver: totalDeliveryFee.Add(tip), Server: decimal.Zero}
	}
	return Payouts{Driver: decimal.Zero, Server: tip}
}
