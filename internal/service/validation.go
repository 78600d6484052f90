package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/apperr"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/pricing"
)

const maxLineQuantity = 99

// validateCart checks the parts of a checkout request that pricing depends
// on. It runs for both preview and order creation.
func validateCart(req *models.CreateOrderRequest, now time.Time) error {
	if len(req.Items) == 0 {
		return apperr.NewValidationError("items", "at least one item is required")
	}

	for i, line := range req.Items {
		if strings.TrimSpace(line.MenuItemID) == "" {
			return apperr.NewValidationError(fmt.Sprintf("items[%d].menu_item_id", i), "menu item ID is required")
		}
		if line.Quantity < 0 {
			return apperr.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "quantity cannot be negative")
		}
		if line.Quantity > maxLineQuantity {
			return apperr.NewValidationError(fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("quantity cannot exceed %d", maxLineQuantity))
		}
	}

	if !req.DeliveryType.Valid() {
		return apperr.NewValidationError("delivery_type", "unknown delivery type")
	}
	if !req.PaymentMethod.Valid() {
		return apperr.NewValidationError("payment_method", "payment method must be CARD or CASH")
	}

	sel, ok := pricing.NormalizeTipSelector(req.Tip)
	if !ok {
		return apperr.NewValidationError("tip", "tip must be one of 0, 10, 15, 20 or custom")
	}
	if sel == pricing.TipCustom {
		if _, err := decimal.NewFromString(strings.TrimSpace(req.CustomTip)); err != nil {
			return apperr.NewValidationError("custom_tip", "custom tip must be a number")
		}
	}

	if req.DeliveryType == models.DeliveryTypeDelivery {
		if req.ScheduledFor != nil && req.ScheduledFor.Before(now) {
			return apperr.NewValidationError("scheduled_for", "scheduled time is in the past")
		}
		if est := req.Estimate; est != nil {
			if est.Distance.IsNegative() || est.TravelTimeMinutes < 0 {
				return apperr.NewValidationError("estimate", "distance and travel time cannot be negative")
			}
		}
	}

	return nil
}

// validateCreateOrderRequest adds the checks that only matter once an order
// is persisted.
func validateCreateOrderRequest(req *models.CreateOrderRequest, now time.Time) error {
	if err := validateCart(req, now); err != nil {
		return err
	}

	if req.CustomerID == "" {
		if req.Guest == nil {
			return apperr.NewValidationError("guest", "guest contact is required without a customer ID")
		}
		if strings.TrimSpace(req.Guest.Name) == "" {
			return apperr.NewValidationError("guest.name", "name is required")
		}
		if req.Guest.Email == "" && req.Guest.Phone == "" {
			return apperr.NewValidationError("guest", "email or phone is required")
		}
		if req.Guest.Email != "" && !strings.Contains(req.Guest.Email, "@") {
			return apperr.NewValidationError("guest.email", "email is invalid")
		}
	}

	if req.DeliveryType == models.DeliveryTypeDelivery && strings.TrimSpace(req.DeliveryAddress) == "" {
		return apperr.NewValidationError("delivery_address", "delivery address is required")
	}

	return nil
}

func validateDeliveryConfig(req *models.UpdateDeliveryConfigRequest) error {
	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{"rate_per_mile", req.RatePerMile},
		{"rate_per_hour", req.RatePerHour},
		{"minimum_charge", req.MinimumCharge},
		{"free_delivery_threshold", req.FreeDeliveryThreshold},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			return apperr.NewValidationError(a.field, "cannot be negative")
		}
	}

	pct := req.RestaurantFeePercentage
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(1)) {
		return apperr.NewValidationError("restaurant_fee_percentage", "must be between 0 and 1")
	}
	return nil
}
