package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest is the checkout submission. Any prices it carries are
// ignored and recomputed.
type CreateOrderRequest struct {
	CustomerID      string            `json:"customer_id,omitempty"`
	Guest           *GuestContact     `json:"guest,omitempty"`
	Items           []CartLine        `json:"items"`
	DeliveryType    DeliveryType      `json:"delivery_type"`
	PaymentMethod   PaymentMethod     `json:"payment_method"`
	Tip             string            `json:"tip"`
	CustomTip       string            `json:"custom_tip,omitempty"`
	ScheduledFor    *time.Time        `json:"scheduled_for,omitempty"`
	DeliveryAddress string            `json:"delivery_address,omitempty"`
	CourseLocation  string            `json:"course_location,omitempty"`
	Estimate        *DistanceEstimate `json:"estimate,omitempty"`
	Notes           string            `json:"notes,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
	ChangedBy string      `json:"-"`
}

type AssignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

type OrderListFilter struct {
	Status     *OrderStatus
	CustomerID string
	Limit      int
	Offset     int
}

// UpdateDeliveryConfigRequest is the admin form payload.
type UpdateDeliveryConfigRequest struct {
	RatePerMile             decimal.Decimal `json:"rate_per_mile"`
	RatePerHour             decimal.Decimal `json:"rate_per_hour"`
	RestaurantFeePercentage decimal.Decimal `json:"restaurant_fee_percentage"`
	MinimumCharge           decimal.Decimal `json:"minimum_charge"`
	FreeDeliveryThreshold   decimal.Decimal `json:"free_delivery_threshold"`
	UpdatedBy               string          `json:"-"`
}

// OrderSummary is the priced breakdown shown at checkout before submission.
type OrderSummary struct {
	Items                 []OrderLineItem `json:"items"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	TaxAmount             decimal.Decimal `json:"tax_amount"`
	TipAmount             decimal.Decimal `json:"tip_amount"`
	CustomerDeliveryFee   decimal.Decimal `json:"customer_delivery_fee"`
	TotalDeliveryFee      decimal.Decimal `json:"total_delivery_fee"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	ContainsAlcohol       bool            `json:"contains_alcohol"`
	FreeDelivery          bool            `json:"free_delivery"`
	DeliveryConfigVersion int64           `json:"delivery_config_version"`
}

// SummaryOf projects the customer-facing fields of o.
func SummaryOf(o *Order) *OrderSummary {
	return &OrderSummary{
		Items:                 o.Items,
		Subtotal:              o.Subtotal,
		TaxAmount:             o.TaxAmount,
		TipAmount:             o.TipAmount,
		CustomerDeliveryFee:   o.CustomerDeliveryFee,
		TotalDeliveryFee:      o.TotalDeliveryFee,
		TotalAmount:           o.TotalAmount,
		ContainsAlcohol:       o.ContainsAlcohol,
		FreeDelivery:          o.DeliveryType == DeliveryTypeDelivery && o.CustomerDeliveryFee.IsZero() && o.TotalDeliveryFee.IsPositive(),
		DeliveryConfigVersion: o.DeliveryConfigVersion,
	}
}
