package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DeliveryType string

const (
	DeliveryTypeDelivery      DeliveryType = "DELIVERY"
	DeliveryTypeClubhouse     DeliveryType = "PICKUP_AT_CLUBHOUSE"
	DeliveryTypeOnCourse      DeliveryType = "ON_COURSE"
	DeliveryTypeEventPavilion DeliveryType = "EVENT_PAVILION"
)

// Valid reports whether t is a known delivery type.
func (t DeliveryType) Valid() bool {
	switch t {
	case DeliveryTypeDelivery, DeliveryTypeClubhouse, DeliveryTypeOnCourse, DeliveryTypeEventPavilion:
		return true
	}
	return false
}

// IsGolf reports whether an order of this type is served on the course or at
// the clubhouse rather than delivered.
func (t DeliveryType) IsGolf() bool {
	return t != DeliveryTypeDelivery
}

type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "CARD"
	PaymentMethodCash PaymentMethod = "CASH"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCard || m == PaymentMethodCash
}

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusReceived       OrderStatus = "ORDER_RECEIVED"
	OrderStatusReady          OrderStatus = "ORDER_READY"
	OrderStatusPickedUp       OrderStatus = "PICKED_UP_BY_DRIVER"
	OrderStatusOnTheWay       OrderStatus = "ON_THE_WAY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusReceived, OrderStatusReady, OrderStatusPickedUp,
		OrderStatusOnTheWay, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Order types for scheduling. Golf orders carry an empty order type.
const (
	OrderTypeASAP      = "ASAP"
	OrderTypeScheduled = "SCHEDULED"
)

// GuestContact identifies a customer without an account.
type GuestContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// SelectedModifier is the order-time snapshot of one selected choice.
type SelectedModifier struct {
	GroupID           string          `json:"group_id"`
	GroupTitle        string          `json:"group_title"`
	POSModifierListID string          `json:"pos_modifier_list_id,omitempty"`
	ChoiceID          string          `json:"choice_id"`
	Label             string          `json:"label"`
	PriceAdjustment   decimal.Decimal `json:"price_adjustment"`
	POSModifierID     string          `json:"pos_modifier_id,omitempty"`
	ParentChoiceID    string          `json:"parent_choice_id,omitempty"`
}

// Nested reports whether the modifier was picked inside a nested group.
func (m SelectedModifier) Nested() bool {
	return m.ParentChoiceID != ""
}

// OrderLineItem is the persisted snapshot of a cart line.
type OrderLineItem struct {
	MenuItemID          string             `json:"menu_item_id"`
	Title               string             `json:"title"`
	BasePrice           decimal.Decimal    `json:"base_price"`
	UnitPrice           decimal.Decimal    `json:"unit_price"`
	Quantity            int                `json:"quantity"`
	LineTotal           decimal.Decimal    `json:"line_total"`
	IsAlcohol           bool               `json:"is_alcohol"`
	POSCatalogID        string             `json:"pos_catalog_id,omitempty"`
	Modifiers           []SelectedModifier `json:"modifiers"`
	SpecialInstructions string             `json:"special_instructions,omitempty"`
	SpiceLevel          string             `json:"spice_level,omitempty"`
}

// Order is the authoritative persisted record. Monetary fields are fixed at
// creation and never recomputed.
type Order struct {
	ID                    string          `json:"id"`
	OrderCode             string          `json:"order_id"`
	CustomerID            string          `json:"customer_id,omitempty"`
	Guest                 *GuestContact   `json:"guest,omitempty"`
	Status                OrderStatus     `json:"status"`
	DeliveryType          DeliveryType    `json:"delivery_type"`
	PaymentMethod         PaymentMethod   `json:"payment_method"`
	OrderType             string          `json:"order_type"`
	ScheduledFor          *time.Time      `json:"scheduled_for"`
	DeliveryAddress       string          `json:"delivery_address,omitempty"`
	CourseLocation        string          `json:"course_location,omitempty"`
	Items                 []OrderLineItem `json:"items"`
	ContainsAlcohol       bool            `json:"contains_alcohol"`
	DistanceMiles         decimal.Decimal `json:"distance_miles"`
	TravelTimeMinutes     int             `json:"travel_time_minutes"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	TaxRate               decimal.Decimal `json:"tax_rate"`
	TaxAmount             decimal.Decimal `json:"tax_amount"`
	TipSelector           string          `json:"tip_selector"`
	TipAmount             decimal.Decimal `json:"tip_amount"`
	CustomerDeliveryFee   decimal.Decimal `json:"customer_delivery_fee"`
	RestaurantDeliveryFee decimal.Decimal `json:"restaurant_delivery_fee"`
	TotalDeliveryFee      decimal.Decimal `json:"total_delivery_fee"`
	DriverPayout          decimal.Decimal `json:"driver_payout"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	DeliveryConfigVersion int64           `json:"delivery_config_version"`
	DriverID              string          `json:"driver_id,omitempty"`
	POSOrderRef           string          `json:"pos_order_ref,omitempty"`
	POSTenderAttached     bool            `json:"pos_tender_attached"`
	Notes                 string          `json:"notes,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	DeliveredAt           *time.Time      `json:"delivered_at,omitempty"`
}

// StatusHistoryEntry is one append-only audit row for an order.
type StatusHistoryEntry struct {
	ID        int64       `json:"id"`
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changed_by"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// DeliveryChargeConfig is the admin-editable singleton of delivery rates.
// Version increments on every save so orders can record what they used.
type DeliveryChargeConfig struct {
	RatePerMile             decimal.Decimal `json:"rate_per_mile"`
	RatePerHour             decimal.Decimal `json:"rate_per_hour"`
	RestaurantFeePercentage decimal.Decimal `json:"restaurant_fee_percentage"`
	MinimumCharge           decimal.Decimal `json:"minimum_charge"`
	FreeDeliveryThreshold   decimal.Decimal `json:"free_delivery_threshold"`
	Version                 int64           `json:"version"`
	UpdatedAt               time.Time       `json:"updated_at"`
	UpdatedBy               string          `json:"updated_by,omitempty"`
}

// DistanceEstimate comes from the distance-matrix collaborator.
type DistanceEstimate struct {
	Distance          decimal.Decimal `json:"distance"`
	TravelTimeMinutes int             `json:"travel_time_minutes"`
}

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusDone    OutboxStatus = "DONE"
	OutboxStatusFailed  OutboxStatus = "FAILED"
)

// OutboxEntry is a durable request to push an order to the POS.
type OutboxEntry struct {
	ID            string       `json:"id"`
	OrderID       string       `json:"order_id"`
	Status        OutboxStatus `json:"status"`
	Attempts      int          `json:"attempts"`
	NextAttemptAt time.Time    `json:"next_attempt_at"`
	LastError     string       `json:"last_error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
